package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator mints outbox and callback correlation ids as
// RFC 4122 UUID v4 strings.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
