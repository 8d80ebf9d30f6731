package v1

import "time"

// MessageBatch is one queued instance of a subroutine's messages. The
// execution id is monotonic and never reused; the batch is destroyed
// exactly once, on terminal outcome.
type MessageBatch struct {
	ExecutionID uint64     `json:"execution_id"`
	Messages    []Message  `json:"messages"`
	Subroutine  Subroutine `json:"subroutine"`
	Priority    Priority   `json:"priority"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the batch's expiration time has elapsed.
func (b MessageBatch) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// ProcessorMessageKind enumerates the control messages a processor accepts
// from its authorization contract.
type ProcessorMessageKind string

const (
	ProcessorSendMsgs   ProcessorMessageKind = "send_msgs"
	ProcessorInsertMsgs ProcessorMessageKind = "insert_msgs"
	ProcessorEvictMsgs  ProcessorMessageKind = "evict_msgs"
	ProcessorRemoveMsgs ProcessorMessageKind = "remove_msgs"
	ProcessorPause      ProcessorMessageKind = "pause"
	ProcessorResume     ProcessorMessageKind = "resume"
)

// ProcessorMessage is the control message routed to a domain's processor.
type ProcessorMessage struct {
	Kind        ProcessorMessageKind `json:"kind"`
	Batch       *MessageBatch        `json:"batch,omitempty"`
	Position    uint64               `json:"position,omitempty"`
	Priority    Priority             `json:"priority,omitempty"`
	ExecutionID uint64               `json:"execution_id,omitempty"`
}

// SendMsgsMessage wraps a fresh batch for tail enqueue.
func SendMsgsMessage(batch MessageBatch) ProcessorMessage {
	return ProcessorMessage{Kind: ProcessorSendMsgs, Batch: &batch}
}

// InsertMsgsMessage re-queues a batch at an explicit queue position.
func InsertMsgsMessage(batch MessageBatch, position uint64) ProcessorMessage {
	return ProcessorMessage{Kind: ProcessorInsertMsgs, Batch: &batch, Position: position}
}

// EvictMsgsMessage cancels a not-yet-started batch by execution id.
func EvictMsgsMessage(executionID uint64) ProcessorMessage {
	return ProcessorMessage{Kind: ProcessorEvictMsgs, ExecutionID: executionID}
}

// RemoveMsgsMessage cancels the batch at a queue position in a lane.
func RemoveMsgsMessage(priority Priority, position uint64) ProcessorMessage {
	return ProcessorMessage{Kind: ProcessorRemoveMsgs, Priority: priority, Position: position}
}

// PauseMessage halts batch execution on the processor.
func PauseMessage() ProcessorMessage {
	return ProcessorMessage{Kind: ProcessorPause}
}

// ResumeMessage re-activates a paused processor.
func ResumeMessage() ProcessorMessage {
	return ProcessorMessage{Kind: ProcessorResume}
}
