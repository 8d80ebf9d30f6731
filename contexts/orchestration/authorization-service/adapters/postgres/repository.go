package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"maestro/contexts/orchestration/authorization-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	"maestro/contexts/orchestration/authorization-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the PostgreSQL adapter for every registry port.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) SaveAuthorization(ctx context.Context, authorization entities.Authorization) error {
	row, err := authorizationModelFromEntity(authorization)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrLabelExists
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateAuthorization(ctx context.Context, authorization entities.Authorization) error {
	row, err := authorizationModelFromEntity(authorization)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&authorizationModel{}).
		Where("label = ?", row.Label).
		Updates(map[string]any{
			"not_before":                row.NotBefore,
			"expiration":                row.Expiration,
			"max_concurrent_executions": row.MaxConcurrentExecutions,
			"priority":                  row.Priority,
			"state":                     row.State,
			"updated_at":                row.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrUnknownLabel
	}
	return nil
}

func (r *Repository) GetAuthorization(ctx context.Context, label string) (entities.Authorization, error) {
	var row authorizationModel
	err := r.db.WithContext(ctx).
		Where("label = ?", strings.TrimSpace(label)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Authorization{}, domainerrors.ErrUnknownLabel
		}
		return entities.Authorization{}, err
	}
	return row.toEntity()
}

func (r *Repository) ListAuthorizations(ctx context.Context, limit int, offset int) ([]entities.Authorization, error) {
	var rows []authorizationModel
	if err := r.db.WithContext(ctx).
		Order("label ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Authorization, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) SaveExternalDomain(ctx context.Context, domain entities.ExternalDomain) error {
	row, err := externalDomainModelFromEntity(domain)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateDomain
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateExternalDomain(ctx context.Context, domain entities.ExternalDomain) error {
	result := r.db.WithContext(ctx).
		Model(&externalDomainModel{}).
		Where("name = ?", strings.TrimSpace(domain.Name)).
		Updates(map[string]any{
			"proxy_state": string(domain.ProxyState),
			"proxy_error": domain.ProxyError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrUnknownDomain
	}
	return nil
}

func (r *Repository) GetExternalDomain(ctx context.Context, name string) (entities.ExternalDomain, error) {
	var row externalDomainModel
	err := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ExternalDomain{}, domainerrors.ErrUnknownDomain
		}
		return entities.ExternalDomain{}, err
	}
	return row.toEntity()
}

func (r *Repository) ListExternalDomains(ctx context.Context, limit int, offset int) ([]entities.ExternalDomain, error) {
	var rows []externalDomainModel
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.ExternalDomain, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) DomainNameEverRegistered(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&externalDomainModel{}).
		Where("name = ?", strings.TrimSpace(name)).
		Count(&count).
		Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) AddSubOwner(ctx context.Context, address string) error {
	row := subOwnerModel{Address: strings.TrimSpace(address), AddedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).
		Error
}

func (r *Repository) RemoveSubOwner(ctx context.Context, address string) error {
	return r.db.WithContext(ctx).
		Where("address = ?", strings.TrimSpace(address)).
		Delete(&subOwnerModel{}).
		Error
}

func (r *Repository) ListSubOwners(ctx context.Context) ([]string, error) {
	var rows []subOwnerModel
	if err := r.db.WithContext(ctx).Order("address ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]string, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Address)
	}
	return items, nil
}

func (r *Repository) IsSubOwner(ctx context.Context, address string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&subOwnerModel{}).
		Where("address = ?", strings.TrimSpace(address)).
		Count(&count).
		Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) UpsertGrant(ctx context.Context, grant entities.MintGrant) error {
	row := grantModel{
		Label:         strings.TrimSpace(grant.Label),
		Grantee:       strings.TrimSpace(grant.Grantee),
		Unlimited:     grant.Unlimited,
		RemainingUses: grant.RemainingUses,
		UpdatedAt:     grant.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "label"}, {Name: "grantee"}},
			DoUpdates: clause.AssignmentColumns([]string{"unlimited", "remaining_uses", "updated_at"}),
		}).
		Create(&row).
		Error
}

func (r *Repository) GetGrant(ctx context.Context, label string, grantee string) (entities.MintGrant, error) {
	var row grantModel
	err := r.db.WithContext(ctx).
		Where("label = ? AND grantee = ?", strings.TrimSpace(label), strings.TrimSpace(grantee)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.MintGrant{}, domainerrors.ErrCallerNotPermitted
		}
		return entities.MintGrant{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListGrants(ctx context.Context, label string) ([]entities.MintGrant, error) {
	var rows []grantModel
	if err := r.db.WithContext(ctx).
		Where("label = ?", strings.TrimSpace(label)).
		Order("grantee ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.MintGrant, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// NextExecutionID allocates from a single-row sequence table so ids stay
// monotonic across processes.
func (r *Repository) NextExecutionID(ctx context.Context) (uint64, error) {
	var next uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row executionSequenceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", 1).
			First(&row).
			Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			row = executionSequenceModel{ID: 1, LastValue: 0}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		row.LastValue++
		next = row.LastValue
		return tx.Model(&executionSequenceModel{}).
			Where("id = ?", 1).
			Update("last_value", row.LastValue).
			Error
	})
	return next, err
}

func (r *Repository) SaveExecution(ctx context.Context, execution entities.Execution) error {
	row, err := executionModelFromEntity(execution)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateExecution(ctx context.Context, execution entities.Execution) error {
	row, err := executionModelFromEntity(execution)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&executionModel{}).
		Where("execution_id = ?", row.ExecutionID).
		Updates(map[string]any{
			"status":       row.Status,
			"result":       row.Result,
			"finalized_at": row.FinalizedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrUnknownExecution
	}
	return nil
}

func (r *Repository) GetExecution(ctx context.Context, executionID uint64) (entities.Execution, error) {
	var row executionModel
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Execution{}, domainerrors.ErrUnknownExecution
		}
		return entities.Execution{}, err
	}
	return row.toEntity()
}

func (r *Repository) ListExecutions(ctx context.Context, limit int, offset int) ([]entities.Execution, error) {
	var rows []executionModel
	if err := r.db.WithContext(ctx).
		Order("execution_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Execution, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) CountActiveExecutions(ctx context.Context, label string) (uint64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&executionModel{}).
		Where("label = ? AND status = ?", strings.TrimSpace(label), string(entities.ExecutionQueued)).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (r *Repository) ReserveCallback(ctx context.Context, executionID uint64, resultHash string) (bool, string, error) {
	row := callbackModel{
		ExecutionID: executionID,
		ResultHash:  resultHash,
		ReceivedAt:  time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return false, "", nil
	}
	if !isUniqueViolation(err) {
		return false, "", err
	}
	var existing callbackModel
	if err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		First(&existing).
		Error; err != nil {
		return false, "", err
	}
	return true, existing.ResultHash, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidInput
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type authorizationModel struct {
	Label                   string     `gorm:"column:label;primaryKey"`
	Mode                    string     `gorm:"column:mode"`
	Subroutine              []byte     `gorm:"column:subroutine;type:jsonb"`
	Priority                string     `gorm:"column:priority"`
	NotBefore               *time.Time `gorm:"column:not_before"`
	Expiration              *time.Time `gorm:"column:expiration"`
	MaxConcurrentExecutions uint64     `gorm:"column:max_concurrent_executions"`
	State                   string     `gorm:"column:state"`
	CreatedAt               time.Time  `gorm:"column:created_at"`
	UpdatedAt               time.Time  `gorm:"column:updated_at"`
}

func (authorizationModel) TableName() string { return "authz_authorizations" }

func authorizationModelFromEntity(authorization entities.Authorization) (authorizationModel, error) {
	subroutine, err := json.Marshal(authorization.Subroutine)
	if err != nil {
		return authorizationModel{}, err
	}
	row := authorizationModel{
		Label:                   strings.TrimSpace(authorization.Label),
		Mode:                    string(authorization.Mode),
		Subroutine:              subroutine,
		Priority:                string(authorization.Priority),
		MaxConcurrentExecutions: authorization.MaxConcurrentExecutions,
		State:                   string(authorization.State),
		CreatedAt:               authorization.CreatedAt.UTC(),
		UpdatedAt:               authorization.UpdatedAt.UTC(),
	}
	if !authorization.NotBefore.IsZero() {
		notBefore := authorization.NotBefore.UTC()
		row.NotBefore = &notBefore
	}
	if !authorization.Expiration.IsZero() {
		expiration := authorization.Expiration.UTC()
		row.Expiration = &expiration
	}
	return row, nil
}

func (m authorizationModel) toEntity() (entities.Authorization, error) {
	var subroutine orchv1.Subroutine
	if err := json.Unmarshal(m.Subroutine, &subroutine); err != nil {
		return entities.Authorization{}, err
	}
	item := entities.Authorization{
		Label:                   m.Label,
		Mode:                    entities.AuthorizationMode(m.Mode),
		Subroutine:              subroutine,
		Priority:                orchv1.Priority(m.Priority),
		MaxConcurrentExecutions: m.MaxConcurrentExecutions,
		State:                   entities.AuthorizationState(m.State),
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
	if m.NotBefore != nil {
		item.NotBefore = *m.NotBefore
	}
	if m.Expiration != nil {
		item.Expiration = *m.Expiration
	}
	return item, nil
}

type externalDomainModel struct {
	Name             string    `gorm:"column:name;primaryKey"`
	Environment      string    `gorm:"column:environment"`
	ProcessorAddress string    `gorm:"column:processor_address"`
	CallbackOrigin   string    `gorm:"column:callback_origin"`
	BridgeConfig     []byte    `gorm:"column:bridge_config;type:jsonb"`
	ProxyState       string    `gorm:"column:proxy_state"`
	ProxyError       string    `gorm:"column:proxy_error"`
	RegisteredAt     time.Time `gorm:"column:registered_at"`
}

func (externalDomainModel) TableName() string { return "authz_external_domains" }

type bridgeConfigPayload struct {
	Polytone  *entities.PolytoneConfig  `json:"polytone,omitempty"`
	Hyperlane *entities.HyperlaneConfig `json:"hyperlane,omitempty"`
}

func externalDomainModelFromEntity(domain entities.ExternalDomain) (externalDomainModel, error) {
	bridge, err := json.Marshal(bridgeConfigPayload{
		Polytone:  domain.Polytone,
		Hyperlane: domain.Hyperlane,
	})
	if err != nil {
		return externalDomainModel{}, err
	}
	return externalDomainModel{
		Name:             strings.TrimSpace(domain.Name),
		Environment:      string(domain.Environment),
		ProcessorAddress: domain.ProcessorAddress,
		CallbackOrigin:   domain.CallbackOrigin,
		BridgeConfig:     bridge,
		ProxyState:       string(domain.ProxyState),
		ProxyError:       domain.ProxyError,
		RegisteredAt:     domain.RegisteredAt.UTC(),
	}, nil
}

func (m externalDomainModel) toEntity() (entities.ExternalDomain, error) {
	var bridge bridgeConfigPayload
	if len(m.BridgeConfig) > 0 {
		if err := json.Unmarshal(m.BridgeConfig, &bridge); err != nil {
			return entities.ExternalDomain{}, err
		}
	}
	return entities.ExternalDomain{
		Name:             m.Name,
		Environment:      entities.ExecutionEnvironment(m.Environment),
		ProcessorAddress: m.ProcessorAddress,
		CallbackOrigin:   m.CallbackOrigin,
		Polytone:         bridge.Polytone,
		Hyperlane:        bridge.Hyperlane,
		ProxyState:       entities.ProxyState(m.ProxyState),
		ProxyError:       m.ProxyError,
		RegisteredAt:     m.RegisteredAt,
	}, nil
}

type subOwnerModel struct {
	Address string    `gorm:"column:address;primaryKey"`
	AddedAt time.Time `gorm:"column:added_at"`
}

func (subOwnerModel) TableName() string { return "authz_sub_owners" }

type grantModel struct {
	Label         string    `gorm:"column:label;primaryKey"`
	Grantee       string    `gorm:"column:grantee;primaryKey"`
	Unlimited     bool      `gorm:"column:unlimited"`
	RemainingUses uint64    `gorm:"column:remaining_uses"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (grantModel) TableName() string { return "authz_grants" }

func (m grantModel) toEntity() entities.MintGrant {
	return entities.MintGrant{
		Label:         m.Label,
		Grantee:       m.Grantee,
		Unlimited:     m.Unlimited,
		RemainingUses: m.RemainingUses,
		UpdatedAt:     m.UpdatedAt,
	}
}

type executionSequenceModel struct {
	ID        int    `gorm:"column:id;primaryKey"`
	LastValue uint64 `gorm:"column:last_value"`
}

func (executionSequenceModel) TableName() string { return "authz_execution_sequence" }

type executionModel struct {
	ExecutionID  uint64     `gorm:"column:execution_id;primaryKey"`
	Label        string     `gorm:"column:label"`
	Domain       string     `gorm:"column:domain"`
	DomainName   string     `gorm:"column:domain_name"`
	Initiator    string     `gorm:"column:initiator"`
	Messages     []byte     `gorm:"column:messages;type:jsonb"`
	ConsumedMint bool       `gorm:"column:consumed_mint"`
	Status       string     `gorm:"column:status"`
	Result       []byte     `gorm:"column:result;type:jsonb"`
	SubmittedAt  time.Time  `gorm:"column:submitted_at"`
	FinalizedAt  *time.Time `gorm:"column:finalized_at"`
}

func (executionModel) TableName() string { return "authz_executions" }

func executionModelFromEntity(execution entities.Execution) (executionModel, error) {
	messages, err := json.Marshal(execution.Messages)
	if err != nil {
		return executionModel{}, err
	}
	row := executionModel{
		ExecutionID:  execution.ExecutionID,
		Label:        strings.TrimSpace(execution.Label),
		Domain:       string(execution.Domain.Kind),
		DomainName:   execution.Domain.Name,
		Initiator:    execution.Initiator,
		Messages:     messages,
		ConsumedMint: execution.ConsumedMint,
		Status:       string(execution.Status),
		SubmittedAt:  execution.SubmittedAt.UTC(),
		FinalizedAt:  execution.FinalizedAt,
	}
	if execution.Result != nil {
		result, err := json.Marshal(execution.Result)
		if err != nil {
			return executionModel{}, err
		}
		row.Result = result
	}
	return row, nil
}

func (m executionModel) toEntity() (entities.Execution, error) {
	var messages []orchv1.Message
	if len(m.Messages) > 0 {
		if err := json.Unmarshal(m.Messages, &messages); err != nil {
			return entities.Execution{}, err
		}
	}
	item := entities.Execution{
		ExecutionID:  m.ExecutionID,
		Label:        m.Label,
		Domain:       orchv1.Domain{Kind: orchv1.DomainKind(m.Domain), Name: m.DomainName},
		Initiator:    m.Initiator,
		Messages:     messages,
		ConsumedMint: m.ConsumedMint,
		Status:       entities.ExecutionStatus(m.Status),
		SubmittedAt:  m.SubmittedAt,
		FinalizedAt:  m.FinalizedAt,
	}
	if len(m.Result) > 0 {
		var result orchv1.ExecutionResult
		if err := json.Unmarshal(m.Result, &result); err != nil {
			return entities.Execution{}, err
		}
		item.Result = &result
	}
	return item, nil
}

type callbackModel struct {
	ExecutionID uint64    `gorm:"column:execution_id;primaryKey"`
	ResultHash  string    `gorm:"column:result_hash"`
	ReceivedAt  time.Time `gorm:"column:received_at"`
}

func (callbackModel) TableName() string { return "authz_processed_callbacks" }

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "authz_outbox" }
