package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"maestro/contexts/orchestration/processor-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/processor-service/domain/errors"
	orchv1 "maestro/contracts/orchestration/v1"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the PostgreSQL adapter for the processor queue. Each
// processor instance owns its tables through a distinct instance key.
type Repository struct {
	db       *gorm.DB
	instance string
	logger   *slog.Logger
}

func NewRepository(db *gorm.DB, instance string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, instance: instance, logger: logger}
}

func (r *Repository) GetConfig(ctx context.Context) (entities.Config, error) {
	var row configModel
	err := r.db.WithContext(ctx).
		Where("instance = ?", r.instance).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Config{}, domainerrors.ErrInvalidBatch
		}
		return entities.Config{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveConfig(ctx context.Context, config entities.Config) error {
	row := configModel{
		Instance:              r.instance,
		AuthorizationContract: config.AuthorizationContract,
		DomainKind:            string(config.Domain.Kind),
		DomainName:            config.Domain.Name,
		State:                 string(config.State),
		UpdatedAt:             config.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance"}},
			DoUpdates: clause.AssignmentColumns([]string{"authorization_contract", "domain_kind", "domain_name", "state", "updated_at"}),
		}).
		Create(&row).
		Error
}

func (r *Repository) Enqueue(ctx context.Context, lane orchv1.Priority, batch entities.QueuedBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&batchModel{}).
			Where("instance = ? AND lane = ?", r.instance, string(lane)).
			Count(&count).
			Error; err != nil {
			return err
		}
		row, err := batchModelFromEntity(batch, r.instance, lane, uint64(count))
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

func (r *Repository) InsertAt(ctx context.Context, lane orchv1.Priority, position uint64, batch entities.QueuedBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&batchModel{}).
			Where("instance = ? AND lane = ?", r.instance, string(lane)).
			Count(&count).
			Error; err != nil {
			return err
		}
		if position > uint64(count) {
			return domainerrors.ErrPositionOutOfRange
		}
		if err := tx.Model(&batchModel{}).
			Where("instance = ? AND lane = ? AND position >= ?", r.instance, string(lane), position).
			UpdateColumn("position", gorm.Expr("position + 1")).
			Error; err != nil {
			return err
		}
		row, err := batchModelFromEntity(batch, r.instance, lane, position)
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

func (r *Repository) Head(ctx context.Context, lane orchv1.Priority) (entities.QueuedBatch, bool, error) {
	var row batchModel
	err := r.db.WithContext(ctx).
		Where("instance = ? AND lane = ?", r.instance, string(lane)).
		Order("position ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.QueuedBatch{}, false, nil
		}
		return entities.QueuedBatch{}, false, err
	}
	item, err := row.toEntity()
	if err != nil {
		return entities.QueuedBatch{}, false, err
	}
	return item, true, nil
}

func (r *Repository) UpdateHead(ctx context.Context, lane orchv1.Priority, batch entities.QueuedBatch) error {
	result := r.db.WithContext(ctx).
		Model(&batchModel{}).
		Where("instance = ? AND lane = ? AND position = (?)",
			r.instance, string(lane),
			r.db.Model(&batchModel{}).
				Select("MIN(position)").
				Where("instance = ? AND lane = ?", r.instance, string(lane)),
		).
		Updates(map[string]any{
			"next_function":         batch.NextFunction,
			"executed_count":        batch.ExecutedCount,
			"awaiting_confirmation": batch.AwaitingConfirmation,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEmptyQueue
	}
	return nil
}

func (r *Repository) Dequeue(ctx context.Context, lane orchv1.Priority) (entities.QueuedBatch, error) {
	var head entities.QueuedBatch
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row batchModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("instance = ? AND lane = ?", r.instance, string(lane)).
			Order("position ASC").
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrEmptyQueue
			}
			return err
		}
		item, err := row.toEntity()
		if err != nil {
			return err
		}
		head = item
		return tx.Delete(&batchModel{}, "id = ?", row.ID).Error
	})
	return head, err
}

func (r *Repository) RemoveAt(ctx context.Context, lane orchv1.Priority, position uint64) (entities.QueuedBatch, error) {
	var removed entities.QueuedBatch
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []batchModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("instance = ? AND lane = ?", r.instance, string(lane)).
			Order("position ASC").
			Find(&rows).
			Error; err != nil {
			return err
		}
		if position >= uint64(len(rows)) {
			return domainerrors.ErrPositionOutOfRange
		}
		row := rows[position]
		item, err := row.toEntity()
		if err != nil {
			return err
		}
		removed = item
		if err := tx.Delete(&batchModel{}, "id = ?", row.ID).Error; err != nil {
			return err
		}
		return tx.Model(&batchModel{}).
			Where("instance = ? AND lane = ? AND position > ?", r.instance, string(lane), row.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).
			Error
	})
	return removed, err
}

func (r *Repository) RemoveByExecutionID(ctx context.Context, executionID uint64) (entities.QueuedBatch, error) {
	var removed entities.QueuedBatch
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row batchModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("instance = ? AND execution_id = ?", r.instance, executionID).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrUnknownExecution
			}
			return err
		}
		item, err := row.toEntity()
		if err != nil {
			return err
		}
		removed = item
		if err := tx.Delete(&batchModel{}, "id = ?", row.ID).Error; err != nil {
			return err
		}
		return tx.Model(&batchModel{}).
			Where("instance = ? AND lane = ? AND position > ?", r.instance, row.Lane, row.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).
			Error
	})
	return removed, err
}

func (r *Repository) List(ctx context.Context, lane orchv1.Priority) ([]entities.QueuedBatch, error) {
	var rows []batchModel
	if err := r.db.WithContext(ctx).
		Where("instance = ? AND lane = ?", r.instance, string(lane)).
		Order("position ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.QueuedBatch, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) GetRetry(ctx context.Context, executionID uint64) (entities.RetryState, bool, error) {
	var row retryModel
	err := r.db.WithContext(ctx).
		Where("instance = ? AND execution_id = ?", r.instance, executionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RetryState{}, false, nil
		}
		return entities.RetryState{}, false, err
	}
	return entities.RetryState{
		ExecutionID:   row.ExecutionID,
		Consumed:      row.Consumed,
		CooldownUntil: row.CooldownUntil,
	}, true, nil
}

func (r *Repository) PutRetry(ctx context.Context, retry entities.RetryState) error {
	row := retryModel{
		Instance:      r.instance,
		ExecutionID:   retry.ExecutionID,
		Consumed:      retry.Consumed,
		CooldownUntil: retry.CooldownUntil.UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance"}, {Name: "execution_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"consumed", "cooldown_until"}),
		}).
		Create(&row).
		Error
}

func (r *Repository) ClearRetry(ctx context.Context, executionID uint64) error {
	return r.db.WithContext(ctx).
		Where("instance = ? AND execution_id = ?", r.instance, executionID).
		Delete(&retryModel{}).
		Error
}

type configModel struct {
	Instance              string    `gorm:"column:instance;primaryKey"`
	AuthorizationContract string    `gorm:"column:authorization_contract"`
	DomainKind            string    `gorm:"column:domain_kind"`
	DomainName            string    `gorm:"column:domain_name"`
	State                 string    `gorm:"column:state"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (configModel) TableName() string { return "processor_configs" }

func (m configModel) toEntity() entities.Config {
	return entities.Config{
		AuthorizationContract: m.AuthorizationContract,
		Domain:                orchv1.Domain{Kind: orchv1.DomainKind(m.DomainKind), Name: m.DomainName},
		State:                 entities.ProcessorState(m.State),
		UpdatedAt:             m.UpdatedAt,
	}
}

type batchModel struct {
	ID                   uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Instance             string    `gorm:"column:instance;index"`
	Lane                 string    `gorm:"column:lane"`
	Position             uint64    `gorm:"column:position"`
	ExecutionID          uint64    `gorm:"column:execution_id"`
	Batch                []byte    `gorm:"column:batch;type:jsonb"`
	NextFunction         int       `gorm:"column:next_function"`
	ExecutedCount        int       `gorm:"column:executed_count"`
	AwaitingConfirmation bool      `gorm:"column:awaiting_confirmation"`
	EnqueuedAt           time.Time `gorm:"column:enqueued_at"`
}

func (batchModel) TableName() string { return "processor_batches" }

func batchModelFromEntity(batch entities.QueuedBatch, instance string, lane orchv1.Priority, position uint64) (batchModel, error) {
	payload, err := json.Marshal(batch.Batch)
	if err != nil {
		return batchModel{}, err
	}
	return batchModel{
		Instance:             instance,
		Lane:                 string(lane),
		Position:             position,
		ExecutionID:          batch.Batch.ExecutionID,
		Batch:                payload,
		NextFunction:         batch.NextFunction,
		ExecutedCount:        batch.ExecutedCount,
		AwaitingConfirmation: batch.AwaitingConfirmation,
		EnqueuedAt:           batch.EnqueuedAt.UTC(),
	}, nil
}

func (m batchModel) toEntity() (entities.QueuedBatch, error) {
	var payload orchv1.MessageBatch
	if err := json.Unmarshal(m.Batch, &payload); err != nil {
		return entities.QueuedBatch{}, err
	}
	return entities.QueuedBatch{
		Batch:                payload,
		NextFunction:         m.NextFunction,
		ExecutedCount:        m.ExecutedCount,
		AwaitingConfirmation: m.AwaitingConfirmation,
		EnqueuedAt:           m.EnqueuedAt,
	}, nil
}

type retryModel struct {
	Instance      string    `gorm:"column:instance;primaryKey"`
	ExecutionID   uint64    `gorm:"column:execution_id;primaryKey"`
	Consumed      uint64    `gorm:"column:consumed"`
	CooldownUntil time.Time `gorm:"column:cooldown_until"`
}

func (retryModel) TableName() string { return "processor_retries" }
