package postgresadapter

import "time"

// SystemClock drives expiration and retry cooldown checks off
// wall-clock UTC time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
