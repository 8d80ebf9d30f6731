package ports

import (
	"context"
	"time"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
	orchv1 "maestro/contracts/orchestration/v1"
)

// Repository owns every piece of registry state: authorizations, the
// external-domain registry, sub-owners, grants and execution bookkeeping.
type Repository interface {
	SaveAuthorization(ctx context.Context, authorization entities.Authorization) error
	UpdateAuthorization(ctx context.Context, authorization entities.Authorization) error
	GetAuthorization(ctx context.Context, label string) (entities.Authorization, error)
	ListAuthorizations(ctx context.Context, limit int, offset int) ([]entities.Authorization, error)

	SaveExternalDomain(ctx context.Context, domain entities.ExternalDomain) error
	UpdateExternalDomain(ctx context.Context, domain entities.ExternalDomain) error
	GetExternalDomain(ctx context.Context, name string) (entities.ExternalDomain, error)
	ListExternalDomains(ctx context.Context, limit int, offset int) ([]entities.ExternalDomain, error)
	// DomainNameEverRegistered also covers removed names; a domain name can
	// never be re-added.
	DomainNameEverRegistered(ctx context.Context, name string) (bool, error)

	AddSubOwner(ctx context.Context, address string) error
	RemoveSubOwner(ctx context.Context, address string) error
	ListSubOwners(ctx context.Context) ([]string, error)
	IsSubOwner(ctx context.Context, address string) (bool, error)

	UpsertGrant(ctx context.Context, grant entities.MintGrant) error
	GetGrant(ctx context.Context, label string, grantee string) (entities.MintGrant, error)
	ListGrants(ctx context.Context, label string) ([]entities.MintGrant, error)

	// NextExecutionID returns a monotonic id; ids are never reused.
	NextExecutionID(ctx context.Context) (uint64, error)
	SaveExecution(ctx context.Context, execution entities.Execution) error
	UpdateExecution(ctx context.Context, execution entities.Execution) error
	GetExecution(ctx context.Context, executionID uint64) (entities.Execution, error)
	ListExecutions(ctx context.Context, limit int, offset int) ([]entities.Execution, error)
	CountActiveExecutions(ctx context.Context, label string) (uint64, error)
}

// CallbackDedup reserves callback deliveries keyed by execution id so a
// replayed callback can never settle bookkeeping twice.
type CallbackDedup interface {
	// ReserveCallback returns alreadyProcessed=true when the execution id
	// was settled before; the stored hash distinguishes benign replays from
	// conflicting results.
	ReserveCallback(ctx context.Context, executionID uint64, resultHash string) (alreadyProcessed bool, storedHash string, err error)
}

// Router hands a wrapped processor message to the domain router for
// dispatch to the target domain's processor.
type Router interface {
	RouteProcessorMessage(ctx context.Context, domain orchv1.Domain, msg orchv1.ProcessorMessage) error
	// RegisterDomain announces a new external domain to the router. For
	// CosmWasm domains the router also issues the zero-message Polytone
	// call that materializes the remote proxy account.
	RegisterDomain(ctx context.Context, domain entities.ExternalDomain) error
}

// EventEnvelope is the outbox event shape appended on finalized executions.
type EventEnvelope struct {
	EventID          string
	EventType        string
	OccurredAt       time.Time
	SourceService    string
	TraceID          string
	SchemaVersion    int
	PartitionKeyPath string
	PartitionKey     string
	Data             []byte
}

// OutboxMessage is a pending outbox row awaiting relay to the bus.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxWriter persists events in the same store as the state change that
// produced them; a relay worker publishes pending rows later.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher pushes relayed outbox events onto the bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, envelope EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
