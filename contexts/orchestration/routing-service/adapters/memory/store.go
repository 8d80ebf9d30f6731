package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"maestro/contexts/orchestration/routing-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/routing-service/domain/errors"

	"github.com/google/uuid"
)

// Store is the in-memory route table.
type Store struct {
	mu      sync.RWMutex
	targets map[string]entities.RouteTarget
}

func NewStore() *Store {
	return &Store{targets: make(map[string]entities.RouteTarget)}
}

func (s *Store) PutTarget(_ context.Context, target entities.RouteTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[target.Name] = target
	return nil
}

func (s *Store) GetTarget(_ context.Context, name string) (entities.RouteTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.targets[name]
	if !ok {
		return entities.RouteTarget{}, domainerrors.ErrUnknownRoute
	}
	return target, nil
}

func (s *Store) MarkProxyCreated(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[name]
	if !ok {
		return domainerrors.ErrUnknownRoute
	}
	target.ProxyCreated = true
	s.targets[name] = target
	return nil
}

func (s *Store) ListTargets(_ context.Context) ([]entities.RouteTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.RouteTarget, 0, len(s.targets))
	for _, target := range s.targets {
		items = append(items, target)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
