package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	"maestro/contexts/orchestration/authorization-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory adapter backing every registry port. It mirrors
// the host's serialized mutation model with a single RWMutex.
type Store struct {
	mu sync.RWMutex

	authorizations map[string]entities.Authorization
	domains        map[string]entities.ExternalDomain
	domainHistory  map[string]bool
	subOwners      map[string]bool
	grants         map[string]entities.MintGrant
	executions     map[uint64]entities.Execution
	nextExecution  uint64
	callbacks      map[uint64]string
	outbox         map[string]outboxRecord
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

func NewStore() *Store {
	return &Store{
		authorizations: make(map[string]entities.Authorization),
		domains:        make(map[string]entities.ExternalDomain),
		domainHistory:  make(map[string]bool),
		subOwners:      make(map[string]bool),
		grants:         make(map[string]entities.MintGrant),
		executions:     make(map[uint64]entities.Execution),
		callbacks:      make(map[uint64]string),
		outbox:         make(map[string]outboxRecord),
	}
}

func grantKey(label string, grantee string) string {
	return label + "|" + grantee
}

func (s *Store) SaveAuthorization(_ context.Context, authorization entities.Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	label := strings.TrimSpace(authorization.Label)
	if label == "" {
		return domainerrors.ErrInvalidInput
	}
	if _, exists := s.authorizations[label]; exists {
		return domainerrors.ErrLabelExists
	}
	s.authorizations[label] = authorization
	return nil
}

func (s *Store) UpdateAuthorization(_ context.Context, authorization entities.Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	label := strings.TrimSpace(authorization.Label)
	if _, exists := s.authorizations[label]; !exists {
		return domainerrors.ErrUnknownLabel
	}
	s.authorizations[label] = authorization
	return nil
}

func (s *Store) GetAuthorization(_ context.Context, label string) (entities.Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.authorizations[strings.TrimSpace(label)]
	if !ok {
		return entities.Authorization{}, domainerrors.ErrUnknownLabel
	}
	return item, nil
}

func (s *Store) ListAuthorizations(_ context.Context, limit int, offset int) ([]entities.Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Authorization, 0, len(s.authorizations))
	for _, item := range s.authorizations {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Label < items[j].Label
	})
	return pageAuthorizations(items, limit, offset), nil
}

func (s *Store) SaveExternalDomain(_ context.Context, domain entities.ExternalDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(domain.Name)
	if name == "" {
		return domainerrors.ErrInvalidInput
	}
	if s.domainHistory[name] {
		return domainerrors.ErrDuplicateDomain
	}
	s.domains[name] = domain
	s.domainHistory[name] = true
	return nil
}

func (s *Store) UpdateExternalDomain(_ context.Context, domain entities.ExternalDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(domain.Name)
	if _, exists := s.domains[name]; !exists {
		return domainerrors.ErrUnknownDomain
	}
	s.domains[name] = domain
	return nil
}

func (s *Store) GetExternalDomain(_ context.Context, name string) (entities.ExternalDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.domains[strings.TrimSpace(name)]
	if !ok {
		return entities.ExternalDomain{}, domainerrors.ErrUnknownDomain
	}
	return item, nil
}

func (s *Store) ListExternalDomains(_ context.Context, limit int, offset int) ([]entities.ExternalDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.ExternalDomain, 0, len(s.domains))
	for _, item := range s.domains {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	if offset >= len(items) {
		return []entities.ExternalDomain{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]entities.ExternalDomain(nil), items[offset:end]...), nil
}

func (s *Store) DomainNameEverRegistered(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domainHistory[strings.TrimSpace(name)], nil
}

func (s *Store) AddSubOwner(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subOwners[strings.TrimSpace(address)] = true
	return nil
}

func (s *Store) RemoveSubOwner(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subOwners, strings.TrimSpace(address))
	return nil
}

func (s *Store) ListSubOwners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.subOwners))
	for address := range s.subOwners {
		items = append(items, address)
	}
	sort.Strings(items)
	return items, nil
}

func (s *Store) IsSubOwner(_ context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subOwners[strings.TrimSpace(address)], nil
}

func (s *Store) UpsertGrant(_ context.Context, grant entities.MintGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(grant.Label) == "" || strings.TrimSpace(grant.Grantee) == "" {
		return domainerrors.ErrInvalidInput
	}
	s.grants[grantKey(grant.Label, grant.Grantee)] = grant
	return nil
}

func (s *Store) GetGrant(_ context.Context, label string, grantee string) (entities.MintGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.grants[grantKey(strings.TrimSpace(label), strings.TrimSpace(grantee))]
	if !ok {
		return entities.MintGrant{}, domainerrors.ErrCallerNotPermitted
	}
	return item, nil
}

func (s *Store) ListGrants(_ context.Context, label string) ([]entities.MintGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.MintGrant, 0)
	for _, grant := range s.grants {
		if grant.Label == strings.TrimSpace(label) {
			items = append(items, grant)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Grantee < items[j].Grantee
	})
	return items, nil
}

func (s *Store) NextExecutionID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExecution++
	return s.nextExecution, nil
}

func (s *Store) SaveExecution(_ context.Context, execution entities.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[execution.ExecutionID]; exists {
		return domainerrors.ErrInvalidInput
	}
	s.executions[execution.ExecutionID] = execution
	return nil
}

func (s *Store) UpdateExecution(_ context.Context, execution entities.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[execution.ExecutionID]; !exists {
		return domainerrors.ErrUnknownExecution
	}
	s.executions[execution.ExecutionID] = execution
	return nil
}

func (s *Store) GetExecution(_ context.Context, executionID uint64) (entities.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.executions[executionID]
	if !ok {
		return entities.Execution{}, domainerrors.ErrUnknownExecution
	}
	return item, nil
}

func (s *Store) ListExecutions(_ context.Context, limit int, offset int) ([]entities.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Execution, 0, len(s.executions))
	for _, item := range s.executions {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ExecutionID > items[j].ExecutionID
	})
	if offset >= len(items) {
		return []entities.Execution{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]entities.Execution(nil), items[offset:end]...), nil
}

func (s *Store) CountActiveExecutions(_ context.Context, label string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count uint64
	for _, execution := range s.executions {
		if execution.Label == strings.TrimSpace(label) && execution.Status == entities.ExecutionQueued {
			count++
		}
	}
	return count, nil
}

func (s *Store) ReserveCallback(_ context.Context, executionID uint64, resultHash string) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.callbacks[executionID]; ok {
		return true, stored, nil
	}
	s.callbacks[executionID] = resultHash
	return false, "", nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		return domainerrors.ErrInvalidInput
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.Message.Payload, payload) {
			return domainerrors.ErrInvalidInput
		}
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		Message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		},
		Status: outboxStatusPending,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.Status == outboxStatusPending {
			items = append(items, row.Message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrInvalidInput
	}
	ts := publishedAt.UTC()
	row.Status = outboxStatusPublished
	row.PublishedAt = &ts
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func pageAuthorizations(items []entities.Authorization, limit int, offset int) []entities.Authorization {
	if offset >= len(items) {
		return []entities.Authorization{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]entities.Authorization(nil), items[offset:end]...)
}
