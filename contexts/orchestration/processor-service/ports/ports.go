package ports

import (
	"context"
	"encoding/json"
	"time"

	"maestro/contexts/orchestration/processor-service/domain/entities"
	orchv1 "maestro/contracts/orchestration/v1"
)

// QueueRepository persists the processor config, the two FIFO lanes and
// the head-of-line retry bookkeeping.
type QueueRepository interface {
	GetConfig(ctx context.Context) (entities.Config, error)
	SaveConfig(ctx context.Context, config entities.Config) error

	Enqueue(ctx context.Context, lane orchv1.Priority, batch entities.QueuedBatch) error
	InsertAt(ctx context.Context, lane orchv1.Priority, position uint64, batch entities.QueuedBatch) error
	Head(ctx context.Context, lane orchv1.Priority) (entities.QueuedBatch, bool, error)
	UpdateHead(ctx context.Context, lane orchv1.Priority, batch entities.QueuedBatch) error
	Dequeue(ctx context.Context, lane orchv1.Priority) (entities.QueuedBatch, error)
	RemoveAt(ctx context.Context, lane orchv1.Priority, position uint64) (entities.QueuedBatch, error)
	RemoveByExecutionID(ctx context.Context, executionID uint64) (entities.QueuedBatch, error)
	List(ctx context.Context, lane orchv1.Priority) ([]entities.QueuedBatch, error)

	GetRetry(ctx context.Context, executionID uint64) (entities.RetryState, bool, error)
	PutRetry(ctx context.Context, retry entities.RetryState) error
	ClearRetry(ctx context.Context, executionID uint64) error
}

// FunctionCall is one resolved library invocation.
type FunctionCall struct {
	ExecutionID     uint64
	FunctionIndex   int
	ContractAddress string
	Message         orchv1.Message
}

// Executor runs a single library call. A returned error is the library's
// failure and is captured into the batch result, never propagated out of
// Tick.
type Executor interface {
	Execute(ctx context.Context, call FunctionCall) error
}

// AtomicExecutor runs a batch of calls as one all-or-nothing unit. On
// failure no side effect of any call in the batch remains, and the index
// of the failing call is reported.
type AtomicExecutor interface {
	ExecuteAll(ctx context.Context, calls []FunctionCall) (int, error)
}

// CallbackSender delivers terminal results toward the authorization
// registry and confirmation requests toward collaborator contracts.
type CallbackSender interface {
	SendCallback(ctx context.Context, callback orchv1.ExecutionCallback) error
	RequestConfirmation(ctx context.Context, executionID uint64, address string, payload json.RawMessage) error
}

type Clock interface {
	Now() time.Time
}
