package application

import (
	"context"
	"time"

	"maestro/contexts/orchestration/processor-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/processor-service/domain/errors"
	"maestro/contexts/orchestration/processor-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"
)

// Tick makes at most one unit of progress on the queue. It is
// permissionless and the only way batches execute. Library call failures
// never fail Tick; they are captured into the batch result. The high lane
// is drained before the medium lane is considered, and a head blocked on
// retry cooldown blocks its whole lane.
func (s Service) Tick(ctx context.Context) error {
	config, err := s.Queue.GetConfig(ctx)
	if err != nil {
		return err
	}
	if config.State == entities.ProcessorPaused {
		return nil
	}

	lane, head, ok, err := s.selectHead(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	now := s.now()
	executionID := head.Batch.ExecutionID

	// A batch past its expiration is finalized no matter how much retry
	// budget is left or what it is parked on. A lost confirmation must
	// not block the head of its lane forever.
	if head.Batch.Expired(now) {
		return s.finalizeHead(ctx, config, lane, head, orchv1.ExpiredResult(head.ExecutedCount))
	}

	if head.AwaitingConfirmation {
		return nil
	}

	retry, hasRetry, err := s.Queue.GetRetry(ctx, executionID)
	if err != nil {
		return err
	}
	if hasRetry && retry.Blocked(now) {
		return nil
	}

	if head.Batch.Subroutine.IsAtomic() {
		return s.tickAtomic(ctx, config, lane, head, retry, now)
	}
	return s.tickNonAtomic(ctx, config, lane, head, retry, now)
}

// selectHead picks the head of high, else the head of medium.
func (s Service) selectHead(ctx context.Context) (orchv1.Priority, entities.QueuedBatch, bool, error) {
	for _, lane := range []orchv1.Priority{orchv1.PriorityHigh, orchv1.PriorityMedium} {
		head, ok, err := s.Queue.Head(ctx, lane)
		if err != nil {
			return "", entities.QueuedBatch{}, false, err
		}
		if ok {
			return lane, head, true, nil
		}
	}
	return "", entities.QueuedBatch{}, false, nil
}

func (s Service) tickAtomic(
	ctx context.Context,
	config entities.Config,
	lane orchv1.Priority,
	head entities.QueuedBatch,
	retry entities.RetryState,
	now time.Time,
) error {
	calls := make([]ports.FunctionCall, 0, head.Batch.Subroutine.FunctionCount())
	for i := range head.Batch.Messages {
		slot, _ := head.Batch.Subroutine.FunctionAt(i)
		calls = append(calls, ports.FunctionCall{
			ExecutionID:     head.Batch.ExecutionID,
			FunctionIndex:   i,
			ContractAddress: slot.ContractAddress,
			Message:         head.Batch.Messages[i],
		})
	}

	failedIndex, execErr := s.Atomic.ExecuteAll(ctx, calls)
	if execErr == nil {
		return s.finalizeHead(ctx, config, lane, head, orchv1.SuccessResult())
	}

	s.logger().Info("atomic batch attempt failed",
		"event", "processor_atomic_attempt_failed",
		"module", "contexts/orchestration/processor-service",
		"layer", "application",
		"execution_id", head.Batch.ExecutionID,
		"failed_index", failedIndex,
		"error", execErr.Error(),
	)

	var policy orchv1.RetryLogic
	if head.Batch.Subroutine.Atomic != nil && head.Batch.Subroutine.Atomic.Retry != nil {
		policy = *head.Batch.Subroutine.Atomic.Retry
	}
	if policy.BudgetRemaining(retry.Consumed) {
		return s.recordRetry(ctx, head.Batch.ExecutionID, retry, policy, now)
	}
	return s.finalizeHead(ctx, config, lane, head, orchv1.RejectedResult(execErr.Error()))
}

func (s Service) tickNonAtomic(
	ctx context.Context,
	config entities.Config,
	lane orchv1.Priority,
	head entities.QueuedBatch,
	retry entities.RetryState,
	now time.Time,
) error {
	slot, ok := head.Batch.Subroutine.FunctionAt(head.NextFunction)
	if !ok {
		return domainerrors.ErrInvalidBatch
	}
	call := ports.FunctionCall{
		ExecutionID:     head.Batch.ExecutionID,
		FunctionIndex:   head.NextFunction,
		ContractAddress: slot.ContractAddress,
		Message:         head.Batch.Messages[head.NextFunction],
	}

	if execErr := s.Exec.Execute(ctx, call); execErr != nil {
		s.logger().Info("non-atomic function attempt failed",
			"event", "processor_function_attempt_failed",
			"module", "contexts/orchestration/processor-service",
			"layer", "application",
			"execution_id", head.Batch.ExecutionID,
			"function_index", head.NextFunction,
			"error", execErr.Error(),
		)
		var policy orchv1.RetryLogic
		if slot.Retry != nil {
			policy = *slot.Retry
		}
		if policy.BudgetRemaining(retry.Consumed) {
			return s.recordRetry(ctx, head.Batch.ExecutionID, retry, policy, now)
		}
		result := orchv1.PartiallyExecutedResult(head.ExecutedCount, execErr.Error())
		return s.finalizeHead(ctx, config, lane, head, result)
	}

	head.ExecutedCount++
	if err := s.Queue.ClearRetry(ctx, head.Batch.ExecutionID); err != nil {
		return err
	}

	if slot.Confirmation != nil {
		head.AwaitingConfirmation = true
		if err := s.Queue.UpdateHead(ctx, lane, head); err != nil {
			return err
		}
		return s.Callbacks.RequestConfirmation(ctx, head.Batch.ExecutionID, slot.Confirmation.Address, slot.Confirmation.Payload)
	}
	return s.advanceNonAtomic(ctx, config, lane, head)
}

// ConfirmFunction acknowledges the confirmation the head batch is waiting
// on and lets the batch advance past its confirmed function.
func (s Service) ConfirmFunction(ctx context.Context, executionID uint64) error {
	config, err := s.Queue.GetConfig(ctx)
	if err != nil {
		return err
	}
	lane, head, ok, err := s.selectHead(ctx)
	if err != nil {
		return err
	}
	if !ok || head.Batch.ExecutionID != executionID {
		if _, _, err := s.findExecution(ctx, executionID); err != nil {
			return err
		}
		return domainerrors.ErrNotAwaitingConfirmation
	}
	if !head.AwaitingConfirmation {
		return domainerrors.ErrNotAwaitingConfirmation
	}
	head.AwaitingConfirmation = false
	if err := s.Queue.UpdateHead(ctx, lane, head); err != nil {
		return err
	}
	return s.advanceNonAtomic(ctx, config, lane, head)
}

func (s Service) advanceNonAtomic(
	ctx context.Context,
	config entities.Config,
	lane orchv1.Priority,
	head entities.QueuedBatch,
) error {
	if head.NextFunction+1 >= head.Batch.Subroutine.FunctionCount() {
		return s.finalizeHead(ctx, config, lane, head, orchv1.SuccessResult())
	}
	head.NextFunction++
	return s.Queue.UpdateHead(ctx, lane, head)
}

func (s Service) recordRetry(
	ctx context.Context,
	executionID uint64,
	retry entities.RetryState,
	policy orchv1.RetryLogic,
	now time.Time,
) error {
	next := entities.RetryState{
		ExecutionID:   executionID,
		Consumed:      retry.Consumed + 1,
		CooldownUntil: now.Add(time.Duration(policy.IntervalSeconds) * time.Second),
	}
	return s.Queue.PutRetry(ctx, next)
}

// finalizeHead destroys the head batch and reports its single terminal
// outcome.
func (s Service) finalizeHead(
	ctx context.Context,
	config entities.Config,
	lane orchv1.Priority,
	head entities.QueuedBatch,
	result orchv1.ExecutionResult,
) error {
	if _, err := s.Queue.Dequeue(ctx, lane); err != nil {
		return err
	}
	if err := s.Queue.ClearRetry(ctx, head.Batch.ExecutionID); err != nil {
		return err
	}
	s.logger().Info("batch finalized",
		"event", "processor_batch_finalized",
		"module", "contexts/orchestration/processor-service",
		"layer", "application",
		"execution_id", head.Batch.ExecutionID,
		"result", string(result.Kind),
	)
	callback := orchv1.ExecutionCallback{
		ExecutionID: head.Batch.ExecutionID,
		Result:      result,
		DomainName:  config.Domain.Name,
	}
	return s.Callbacks.SendCallback(ctx, callback)
}
