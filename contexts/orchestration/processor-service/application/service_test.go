package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"maestro/contexts/orchestration/processor-service/adapters/memory"
	"maestro/contexts/orchestration/processor-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/processor-service/domain/errors"
	orchv1 "maestro/contracts/orchestration/v1"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type recordingCallbacks struct {
	callbacks     []orchv1.ExecutionCallback
	confirmations []uint64
}

func (r *recordingCallbacks) SendCallback(_ context.Context, callback orchv1.ExecutionCallback) error {
	r.callbacks = append(r.callbacks, callback)
	return nil
}

func (r *recordingCallbacks) RequestConfirmation(_ context.Context, executionID uint64, _ string, _ json.RawMessage) error {
	r.confirmations = append(r.confirmations, executionID)
	return nil
}

type processorFixture struct {
	service   Service
	store     *memory.Store
	libraries *memory.LibraryRegistry
	callbacks *recordingCallbacks
	clock     *fakeClock
}

func newProcessorFixture() processorFixture {
	store := memory.NewStore(entities.Config{
		AuthorizationContract: "authorization",
		Domain:                orchv1.MainDomain(),
		State:                 entities.ProcessorActive,
	})
	libraries := memory.NewLibraryRegistry()
	callbacks := &recordingCallbacks{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return processorFixture{
		service: Service{
			Queue:     store,
			Exec:      libraries,
			Atomic:    libraries,
			Callbacks: callbacks,
			Clock:     clock,
		},
		store:     store,
		libraries: libraries,
		callbacks: callbacks,
		clock:     clock,
	}
}

func execMessage(body string) orchv1.Message {
	return orchv1.Message{Type: orchv1.MessageTypeExecute, Body: json.RawMessage(body)}
}

func atomicBatch(executionID uint64, priority orchv1.Priority, retry *orchv1.RetryLogic, addresses []string, bodies []string) orchv1.MessageBatch {
	functions := make([]orchv1.AtomicFunction, len(addresses))
	messages := make([]orchv1.Message, len(addresses))
	for i, address := range addresses {
		functions[i] = orchv1.AtomicFunction{Domain: orchv1.MainDomain(), ContractAddress: address}
		messages[i] = execMessage(bodies[i])
	}
	return orchv1.MessageBatch{
		ExecutionID: executionID,
		Messages:    messages,
		Priority:    priority,
		Subroutine: orchv1.Subroutine{
			Kind:   orchv1.SubroutineAtomic,
			Atomic: &orchv1.AtomicSubroutine{Functions: functions, Retry: retry},
		},
	}
}

func nonAtomicBatch(executionID uint64, priority orchv1.Priority, functions []orchv1.NonAtomicFunction, bodies []string) orchv1.MessageBatch {
	messages := make([]orchv1.Message, len(bodies))
	for i, body := range bodies {
		messages[i] = execMessage(body)
	}
	return orchv1.MessageBatch{
		ExecutionID: executionID,
		Messages:    messages,
		Priority:    priority,
		Subroutine: orchv1.Subroutine{
			Kind:      orchv1.SubroutineNonAtomic,
			NonAtomic: &orchv1.NonAtomicSubroutine{Functions: functions},
		},
	}
}

func TestEnqueueRejectsUnknownCaller(t *testing.T) {
	f := newProcessorFixture()
	batch := atomicBatch(1, orchv1.PriorityMedium, nil, []string{"lib"}, []string{`{}`})

	err := f.service.EnqueueMsgs(context.Background(), "intruder", batch)
	if !errors.Is(err, domainerrors.ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}
}

func TestEnqueueValidatesBatchShape(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()

	missingID := atomicBatch(0, orchv1.PriorityMedium, nil, []string{"lib"}, []string{`{}`})
	if err := f.service.EnqueueMsgs(ctx, "authorization", missingID); !errors.Is(err, domainerrors.ErrInvalidBatch) {
		t.Fatalf("expected ErrInvalidBatch for zero execution id, got %v", err)
	}

	mismatch := atomicBatch(1, orchv1.PriorityMedium, nil, []string{"lib"}, []string{`{}`})
	mismatch.Messages = nil
	if err := f.service.EnqueueMsgs(ctx, "authorization", mismatch); !errors.Is(err, domainerrors.ErrInvalidBatch) {
		t.Fatalf("expected ErrInvalidBatch for message count mismatch, got %v", err)
	}
}

func TestEnqueueDefaultsUnknownPriorityToMedium(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()
	batch := atomicBatch(1, orchv1.Priority("urgent"), nil, []string{"lib"}, []string{`{}`})

	if err := f.service.EnqueueMsgs(ctx, "authorization", batch); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	medium, err := f.service.QueueContents(ctx, orchv1.PriorityMedium)
	if err != nil {
		t.Fatalf("list medium lane failed: %v", err)
	}
	if len(medium) != 1 {
		t.Fatalf("expected batch in medium lane, got %d entries", len(medium))
	}
}

func TestRemoveMsgsCannotCancelStartedBatch(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()
	f.libraries.Register("lib", &memory.RecordingLibrary{})

	functions := []orchv1.NonAtomicFunction{
		{Domain: orchv1.MainDomain(), ContractAddress: "lib"},
		{Domain: orchv1.MainDomain(), ContractAddress: "lib"},
	}
	batch := nonAtomicBatch(7, orchv1.PriorityMedium, functions, []string{`{}`, `{}`})
	if err := f.service.EnqueueMsgs(ctx, "authorization", batch); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := f.service.Tick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	err := f.service.RemoveMsgs(ctx, "authorization", orchv1.PriorityMedium, 0)
	if !errors.Is(err, domainerrors.ErrBatchStarted) {
		t.Fatalf("expected ErrBatchStarted, got %v", err)
	}
	err = f.service.EvictMsgs(ctx, "authorization", 7)
	if !errors.Is(err, domainerrors.ErrBatchStarted) {
		t.Fatalf("expected ErrBatchStarted from evict, got %v", err)
	}
}

func TestRemoveMsgsPositionChecks(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()

	if err := f.service.RemoveMsgs(ctx, "authorization", orchv1.PriorityMedium, 0); !errors.Is(err, domainerrors.ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}

	batch := atomicBatch(3, orchv1.PriorityMedium, nil, []string{"lib"}, []string{`{}`})
	if err := f.service.EnqueueMsgs(ctx, "authorization", batch); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := f.service.RemoveMsgs(ctx, "authorization", orchv1.PriorityMedium, 5); !errors.Is(err, domainerrors.ErrPositionOutOfRange) {
		t.Fatalf("expected ErrPositionOutOfRange, got %v", err)
	}
}

func TestEvictFinalizesBatchAsRejected(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()

	batch := atomicBatch(9, orchv1.PriorityHigh, nil, []string{"lib"}, []string{`{}`})
	if err := f.service.EnqueueMsgs(ctx, "authorization", batch); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := f.service.EvictMsgs(ctx, "authorization", 9); err != nil {
		t.Fatalf("evict failed: %v", err)
	}

	if len(f.callbacks.callbacks) != 1 {
		t.Fatalf("expected one callback, got %d", len(f.callbacks.callbacks))
	}
	callback := f.callbacks.callbacks[0]
	if callback.ExecutionID != 9 || callback.Result.Kind != orchv1.ResultRejected {
		t.Fatalf("expected rejected callback for execution 9, got %+v", callback)
	}

	if err := f.service.EvictMsgs(ctx, "authorization", 9); !errors.Is(err, domainerrors.ErrUnknownExecution) {
		t.Fatalf("expected ErrUnknownExecution after eviction, got %v", err)
	}
}

func TestPauseStopsTicksAndResumeRestarts(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()
	library := &memory.RecordingLibrary{}
	f.libraries.Register("lib", library)

	batch := atomicBatch(4, orchv1.PriorityMedium, nil, []string{"lib"}, []string{`{}`})
	if err := f.service.EnqueueMsgs(ctx, "authorization", batch); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := f.service.Pause(ctx, "authorization"); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := f.service.Tick(ctx); err != nil {
		t.Fatalf("tick on paused processor failed: %v", err)
	}
	if len(library.Messages) != 0 {
		t.Fatalf("paused processor executed %d messages", len(library.Messages))
	}

	if err := f.service.Resume(ctx, "authorization"); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if err := f.service.Tick(ctx); err != nil {
		t.Fatalf("tick after resume failed: %v", err)
	}
	if len(library.Messages) != 1 {
		t.Fatalf("expected one executed message after resume, got %d", len(library.Messages))
	}
}

func TestUpdateConfigChangesAcceptedCaller(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()

	next := "authorization-v2"
	if err := f.service.UpdateConfig(ctx, "authorization", UpdateConfigInput{AuthorizationContract: &next}); err != nil {
		t.Fatalf("update config failed: %v", err)
	}

	batch := atomicBatch(1, orchv1.PriorityMedium, nil, []string{"lib"}, []string{`{}`})
	if err := f.service.EnqueueMsgs(ctx, "authorization", batch); !errors.Is(err, domainerrors.ErrUnauthorizedCaller) {
		t.Fatalf("expected old caller to be rejected, got %v", err)
	}
	if err := f.service.EnqueueMsgs(ctx, "authorization-v2", batch); err != nil {
		t.Fatalf("enqueue under new caller failed: %v", err)
	}
}
