package postgresadapter

import "time"

// SystemClock is the production Clock. Registry timestamps are UTC so
// activation windows compare consistently across processes.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
