package memory

import (
	"context"
	"sync"
	"time"

	"maestro/contexts/orchestration/processor-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/processor-service/domain/errors"
	orchv1 "maestro/contracts/orchestration/v1"
)

// Store is the in-memory queue repository backing one processor instance.
type Store struct {
	mu      sync.RWMutex
	config  entities.Config
	lanes   map[orchv1.Priority][]entities.QueuedBatch
	retries map[uint64]entities.RetryState
}

func NewStore(config entities.Config) *Store {
	if config.State == "" {
		config.State = entities.ProcessorActive
	}
	return &Store{
		config: config,
		lanes: map[orchv1.Priority][]entities.QueuedBatch{
			orchv1.PriorityHigh:   {},
			orchv1.PriorityMedium: {},
		},
		retries: make(map[uint64]entities.RetryState),
	}
}

func (s *Store) GetConfig(_ context.Context) (entities.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, nil
}

func (s *Store) SaveConfig(_ context.Context, config entities.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
	return nil
}

func (s *Store) Enqueue(_ context.Context, lane orchv1.Priority, batch entities.QueuedBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lanes[lane] = append(s.lanes[lane], batch)
	return nil
}

func (s *Store) InsertAt(_ context.Context, lane orchv1.Priority, position uint64, batch entities.QueuedBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.lanes[lane]
	if position > uint64(len(items)) {
		return domainerrors.ErrPositionOutOfRange
	}
	items = append(items, entities.QueuedBatch{})
	copy(items[position+1:], items[position:])
	items[position] = batch
	s.lanes[lane] = items
	return nil
}

func (s *Store) Head(_ context.Context, lane orchv1.Priority) (entities.QueuedBatch, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.lanes[lane]
	if len(items) == 0 {
		return entities.QueuedBatch{}, false, nil
	}
	return items[0], true, nil
}

func (s *Store) UpdateHead(_ context.Context, lane orchv1.Priority, batch entities.QueuedBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.lanes[lane]
	if len(items) == 0 {
		return domainerrors.ErrEmptyQueue
	}
	items[0] = batch
	return nil
}

func (s *Store) Dequeue(_ context.Context, lane orchv1.Priority) (entities.QueuedBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.lanes[lane]
	if len(items) == 0 {
		return entities.QueuedBatch{}, domainerrors.ErrEmptyQueue
	}
	head := items[0]
	s.lanes[lane] = items[1:]
	return head, nil
}

func (s *Store) RemoveAt(_ context.Context, lane orchv1.Priority, position uint64) (entities.QueuedBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.lanes[lane]
	if position >= uint64(len(items)) {
		return entities.QueuedBatch{}, domainerrors.ErrPositionOutOfRange
	}
	removed := items[position]
	s.lanes[lane] = append(items[:position], items[position+1:]...)
	return removed, nil
}

func (s *Store) RemoveByExecutionID(_ context.Context, executionID uint64) (entities.QueuedBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for lane, items := range s.lanes {
		for i, item := range items {
			if item.Batch.ExecutionID == executionID {
				s.lanes[lane] = append(items[:i], items[i+1:]...)
				return item, nil
			}
		}
	}
	return entities.QueuedBatch{}, domainerrors.ErrUnknownExecution
}

func (s *Store) List(_ context.Context, lane orchv1.Priority) ([]entities.QueuedBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.QueuedBatch, len(s.lanes[lane]))
	copy(items, s.lanes[lane])
	return items, nil
}

func (s *Store) GetRetry(_ context.Context, executionID uint64) (entities.RetryState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	retry, ok := s.retries[executionID]
	return retry, ok, nil
}

func (s *Store) PutRetry(_ context.Context, retry entities.RetryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries[retry.ExecutionID] = retry
	return nil
}

func (s *Store) ClearRetry(_ context.Context, executionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retries, executionID)
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}
