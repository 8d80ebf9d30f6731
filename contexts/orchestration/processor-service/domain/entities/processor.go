package entities

import (
	"time"

	orchv1 "maestro/contracts/orchestration/v1"
)

// ProcessorState gates batch execution; control messages are accepted in
// both states.
type ProcessorState string

const (
	ProcessorActive ProcessorState = "active"
	ProcessorPaused ProcessorState = "paused"
)

// Config identifies one processor instance and its sole permitted control
// caller.
type Config struct {
	AuthorizationContract string
	Domain                orchv1.Domain
	State                 ProcessorState
	UpdatedAt             time.Time
}

// QueuedBatch is a message batch plus the processor-side progress it has
// made. NextFunction and ExecutedCount only move for non-atomic batches;
// an atomic batch is all-or-nothing and keeps both at zero until terminal.
type QueuedBatch struct {
	Batch                orchv1.MessageBatch
	NextFunction         int
	ExecutedCount        int
	AwaitingConfirmation bool
	EnqueuedAt           time.Time
}

// Started reports whether the batch has begun non-atomic execution, which
// makes it immune to removal and eviction.
func (b QueuedBatch) Started() bool {
	return b.NextFunction > 0 || b.AwaitingConfirmation
}

// RetryState tracks the head-of-line retry of one execution id. It exists
// only while the batch is blocked on a failed attempt and is cleared on
// any terminal outcome.
type RetryState struct {
	ExecutionID   uint64
	Consumed      uint64
	CooldownUntil time.Time
}

// Blocked reports whether the cooldown window is still open.
func (r RetryState) Blocked(now time.Time) bool {
	return now.Before(r.CooldownUntil)
}
