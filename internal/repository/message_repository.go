package repository

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/message"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, relay_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) SetContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": editedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"content":    "",
			"deleted_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID)

	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}

	// Tombstones stay in the page so clients keep a stable ordering.
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) ListUnread(ctx context.Context, conversationID, excludeAuthor uuid.UUID, after time.Time) ([]message.Message, error) {
	var messages []message.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND author_id <> ? AND deleted_at IS NULL AND created_at > ?",
			conversationID, excludeAuthor, after).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) CountSince(ctx context.Context, conversationID, excludeAuthor uuid.UUID, after time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ? AND author_id <> ? AND deleted_at IS NULL AND created_at > ?",
			conversationID, excludeAuthor, after).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountUnreadTotal counts, in one query, every non-deleted message
// authored by someone else that postdates the caller's read position, in
// conversations the caller participates in and has not hidden.
func (r *PostgresMessageRepository) CountUnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
        SELECT COUNT(*)
        FROM messages m
        JOIN participants p
          ON p.conversation_id = m.conversation_id
         AND p.user_id = ?
         AND p.hidden_at IS NULL
        LEFT JOIN read_receipts rr
          ON rr.conversation_id = m.conversation_id
         AND rr.user_id = ?
        WHERE m.author_id <> ?
          AND m.deleted_at IS NULL
          AND m.created_at > COALESCE(rr.last_read_at, 'epoch'::timestamptz)
    `, userID, userID, userID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) GetReaction(ctx context.Context, messageID, userID uuid.UUID) (message.Reaction, error) {
	var reaction message.Reaction
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Reaction{}, relay_errors.ErrNotFound
		}
		return message.Reaction{}, err
	}
	return reaction, nil
}

// UpsertReaction inserts the (message, user) reaction or replaces its
// type. The primary key keeps concurrent toggles from ever producing two
// rows for one pair.
func (r *PostgresMessageRepository) UpsertReaction(ctx context.Context, reaction *message.Reaction) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"reaction_type": reaction.ReactionType,
			"created_at":    reaction.CreatedAt,
		}),
	}).Create(reaction).Error
}

func (r *PostgresMessageRepository) DeleteReaction(ctx context.Context, messageID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Delete(&message.Reaction{}, "message_id = ? AND user_id = ?", messageID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) ListReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	var reactions []message.Reaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}
