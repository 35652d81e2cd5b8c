package repository

import (
	"context"
	"time"

	"relay-chat/internal/domain/outbox"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresOutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

func (r *PostgresOutboxRepository) Create(ctx context.Context, e *outbox.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *PostgresOutboxRepository) GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error) {
	var pending []outbox.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", outbox.StatusPending, time.Now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&pending).Error
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *PostgresOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&outbox.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       outbox.StatusCompleted,
			"processed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

// MarkDead moves a row to FAILED so GetPending never selects it again.
func (r *PostgresOutboxRepository) MarkDead(ctx context.Context, id uuid.UUID, cause string) error {
	res := r.db.WithContext(ctx).
		Model(&outbox.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     outbox.StatusFailed,
			"error":      cause,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, nextRetry time.Time, cause string) error {
	res := r.db.WithContext(ctx).
		Model(&outbox.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error":         cause,
			"next_retry_at": nextRetry,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}
