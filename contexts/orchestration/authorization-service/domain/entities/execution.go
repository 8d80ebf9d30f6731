package entities

import (
	"time"

	orchv1 "maestro/contracts/orchestration/v1"
)

// ExecutionStatus tracks one triggered batch from acceptance to its
// single terminal callback.
type ExecutionStatus string

const (
	ExecutionQueued    ExecutionStatus = "queued"
	ExecutionFinalized ExecutionStatus = "finalized"
)

// Execution is the registry-side bookkeeping for one accepted SendMsgs.
// The execution id is monotonic and never reused.
type Execution struct {
	ExecutionID  uint64
	Label        string
	Domain       orchv1.Domain
	Initiator    string
	Messages     []orchv1.Message
	ConsumedMint bool
	Status       ExecutionStatus
	Result       *orchv1.ExecutionResult
	SubmittedAt  time.Time
	FinalizedAt  *time.Time
}
