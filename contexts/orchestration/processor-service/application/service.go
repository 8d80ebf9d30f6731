package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maestro/contexts/orchestration/processor-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/processor-service/domain/errors"
	"maestro/contexts/orchestration/processor-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"
)

// Service is one domain's execution engine. It accepts control messages
// from its authorization contract only and makes progress exclusively
// through permissionless Tick calls.
type Service struct {
	Queue     ports.QueueRepository
	Exec      ports.Executor
	Atomic    ports.AtomicExecutor
	Callbacks ports.CallbackSender
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) requireAuthorized(ctx context.Context, caller string) (entities.Config, error) {
	config, err := s.Queue.GetConfig(ctx)
	if err != nil {
		return entities.Config{}, err
	}
	if strings.TrimSpace(caller) != config.AuthorizationContract {
		return entities.Config{}, domainerrors.ErrUnauthorizedCaller
	}
	return config, nil
}

// HandleMessage dispatches one routed control message. It is the single
// entry point the domain router delivers into.
func (s Service) HandleMessage(ctx context.Context, caller string, msg orchv1.ProcessorMessage) error {
	switch msg.Kind {
	case orchv1.ProcessorSendMsgs:
		if msg.Batch == nil {
			return domainerrors.ErrInvalidBatch
		}
		return s.EnqueueMsgs(ctx, caller, *msg.Batch)
	case orchv1.ProcessorInsertMsgs:
		if msg.Batch == nil {
			return domainerrors.ErrInvalidBatch
		}
		return s.InsertMsgs(ctx, caller, *msg.Batch, msg.Position)
	case orchv1.ProcessorRemoveMsgs:
		return s.RemoveMsgs(ctx, caller, msg.Priority, msg.Position)
	case orchv1.ProcessorEvictMsgs:
		return s.EvictMsgs(ctx, caller, msg.ExecutionID)
	case orchv1.ProcessorPause:
		return s.Pause(ctx, caller)
	case orchv1.ProcessorResume:
		return s.Resume(ctx, caller)
	default:
		return fmt.Errorf("%w: unknown control kind %q", domainerrors.ErrInvalidBatch, msg.Kind)
	}
}

// EnqueueMsgs appends a fresh batch to the tail of its priority lane.
func (s Service) EnqueueMsgs(ctx context.Context, caller string, batch orchv1.MessageBatch) error {
	if _, err := s.requireAuthorized(ctx, caller); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}
	lane := orchv1.NormalizePriority(batch.Priority)
	queued := entities.QueuedBatch{Batch: batch, EnqueuedAt: s.now()}
	if err := s.Queue.Enqueue(ctx, lane, queued); err != nil {
		return err
	}
	s.logger().Info("batch enqueued",
		"event", "processor_batch_enqueued",
		"module", "contexts/orchestration/processor-service",
		"layer", "application",
		"execution_id", batch.ExecutionID,
		"priority", string(lane),
	)
	return nil
}

// InsertMsgs places a batch at an explicit position in its lane.
func (s Service) InsertMsgs(ctx context.Context, caller string, batch orchv1.MessageBatch, position uint64) error {
	if _, err := s.requireAuthorized(ctx, caller); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}
	lane := orchv1.NormalizePriority(batch.Priority)
	queued := entities.QueuedBatch{Batch: batch, EnqueuedAt: s.now()}
	return s.Queue.InsertAt(ctx, lane, position, queued)
}

// RemoveMsgs cancels the batch at a lane position. A batch that has begun
// non-atomic execution cannot be cancelled. The removed execution is
// finalized as rejected through the regular callback path.
func (s Service) RemoveMsgs(ctx context.Context, caller string, priority orchv1.Priority, position uint64) error {
	config, err := s.requireAuthorized(ctx, caller)
	if err != nil {
		return err
	}
	lane := orchv1.NormalizePriority(priority)
	items, err := s.Queue.List(ctx, lane)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return domainerrors.ErrEmptyQueue
	}
	if position >= uint64(len(items)) {
		return domainerrors.ErrPositionOutOfRange
	}
	if items[position].Started() {
		return domainerrors.ErrBatchStarted
	}
	removed, err := s.Queue.RemoveAt(ctx, lane, position)
	if err != nil {
		return err
	}
	return s.finalizeRemoved(ctx, config, removed)
}

// EvictMsgs cancels a not-yet-started batch anywhere in either lane by
// execution id.
func (s Service) EvictMsgs(ctx context.Context, caller string, executionID uint64) error {
	config, err := s.requireAuthorized(ctx, caller)
	if err != nil {
		return err
	}
	queued, _, err := s.findExecution(ctx, executionID)
	if err != nil {
		return err
	}
	if queued.Started() {
		return domainerrors.ErrBatchStarted
	}
	removed, err := s.Queue.RemoveByExecutionID(ctx, executionID)
	if err != nil {
		return err
	}
	return s.finalizeRemoved(ctx, config, removed)
}

func (s Service) finalizeRemoved(ctx context.Context, config entities.Config, removed entities.QueuedBatch) error {
	if err := s.Queue.ClearRetry(ctx, removed.Batch.ExecutionID); err != nil {
		return err
	}
	callback := orchv1.ExecutionCallback{
		ExecutionID: removed.Batch.ExecutionID,
		Result:      orchv1.RejectedResult("removed by owner"),
		DomainName:  config.Domain.Name,
	}
	return s.Callbacks.SendCallback(ctx, callback)
}

func (s Service) findExecution(ctx context.Context, executionID uint64) (entities.QueuedBatch, orchv1.Priority, error) {
	for _, lane := range []orchv1.Priority{orchv1.PriorityHigh, orchv1.PriorityMedium} {
		items, err := s.Queue.List(ctx, lane)
		if err != nil {
			return entities.QueuedBatch{}, "", err
		}
		for _, item := range items {
			if item.Batch.ExecutionID == executionID {
				return item, lane, nil
			}
		}
	}
	return entities.QueuedBatch{}, "", domainerrors.ErrUnknownExecution
}

// Pause halts batch execution. Control messages keep being accepted.
func (s Service) Pause(ctx context.Context, caller string) error {
	return s.setState(ctx, caller, entities.ProcessorPaused)
}

// Resume re-activates a paused processor.
func (s Service) Resume(ctx context.Context, caller string) error {
	return s.setState(ctx, caller, entities.ProcessorActive)
}

func (s Service) setState(ctx context.Context, caller string, state entities.ProcessorState) error {
	config, err := s.requireAuthorized(ctx, caller)
	if err != nil {
		return err
	}
	if config.State == state {
		return nil
	}
	config.State = state
	config.UpdatedAt = s.now()
	if err := s.Queue.SaveConfig(ctx, config); err != nil {
		return err
	}
	s.logger().Info("processor state changed",
		"event", "processor_state_changed",
		"module", "contexts/orchestration/processor-service",
		"layer", "application",
		"domain", config.Domain.String(),
		"state", string(state),
	)
	return nil
}

// UpdateConfigInput carries the mutable config fields; nil pointers leave
// the current value untouched.
type UpdateConfigInput struct {
	AuthorizationContract *string
}

func (s Service) UpdateConfig(ctx context.Context, caller string, input UpdateConfigInput) error {
	config, err := s.requireAuthorized(ctx, caller)
	if err != nil {
		return err
	}
	if input.AuthorizationContract != nil {
		next := strings.TrimSpace(*input.AuthorizationContract)
		if next == "" {
			return domainerrors.ErrInvalidBatch
		}
		config.AuthorizationContract = next
	}
	config.UpdatedAt = s.now()
	return s.Queue.SaveConfig(ctx, config)
}

// Config returns the processor configuration.
func (s Service) Config(ctx context.Context) (entities.Config, error) {
	return s.Queue.GetConfig(ctx)
}

// QueueContents lists the batches of one lane in FIFO order.
func (s Service) QueueContents(ctx context.Context, priority orchv1.Priority) ([]entities.QueuedBatch, error) {
	return s.Queue.List(ctx, orchv1.NormalizePriority(priority))
}

// RetryStatus reports the live retry entry for an execution id, if any.
func (s Service) RetryStatus(ctx context.Context, executionID uint64) (entities.RetryState, bool, error) {
	return s.Queue.GetRetry(ctx, executionID)
}

func (s Service) logger() *slog.Logger {
	return ResolveLogger(s.Logger)
}

func validateBatch(batch orchv1.MessageBatch) error {
	if batch.ExecutionID == 0 {
		return fmt.Errorf("%w: execution id is required", domainerrors.ErrInvalidBatch)
	}
	count := batch.Subroutine.FunctionCount()
	if count == 0 {
		return fmt.Errorf("%w: subroutine has no functions", domainerrors.ErrInvalidBatch)
	}
	if len(batch.Messages) != count {
		return fmt.Errorf("%w: message count does not match subroutine functions", domainerrors.ErrInvalidBatch)
	}
	return nil
}
