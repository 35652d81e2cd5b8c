package repository

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/conversation"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, relay_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetDirect(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation

	// Find the DIRECT conversation where both users are participants
	subQuery := r.db.Model(&conversation.Participant{}).
		Select("conversation_id").
		Where("user_id IN (?, ?)", userA, userB).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = 2")

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?) AND kind = ?", subQuery, conversation.KindDirect).
		First(&c).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, relay_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]conversation.Conversation, error) {
	var conversations []conversation.Conversation

	subQuery := r.db.Model(&conversation.Participant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)
	if !includeHidden {
		subQuery = subQuery.Where("hidden_at IS NULL")
	}

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?)", subQuery).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *PostgresConversationRepository) AddParticipant(ctx context.Context, p *conversation.Participant) error {
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Participant, error) {
	var p conversation.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Participant{}, relay_errors.ErrNotFound
		}
		return conversation.Participant{}, err
	}
	return p, nil
}

func (r *PostgresConversationRepository) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error) {
	var participants []conversation.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PostgresConversationRepository) SetHidden(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("hidden_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) ClearHidden(ctx context.Context, conversationID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("hidden_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) RevealHiddenBefore(ctx context.Context, conversationID uuid.UUID, exceptUserID uuid.UUID, cutoff time.Time) ([]uuid.UUID, error) {
	var hidden []conversation.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id <> ? AND hidden_at IS NOT NULL AND hidden_at < ?",
			conversationID, exceptUserID, cutoff).
		Find(&hidden).Error
	if err != nil {
		return nil, err
	}
	if len(hidden) == 0 {
		return nil, nil
	}

	ids := lo.Map(hidden, func(p conversation.Participant, _ int) uuid.UUID { return p.UserID })
	res := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND user_id IN (?)", conversationID, ids).
		Update("hidden_at", nil)
	if res.Error != nil {
		return nil, res.Error
	}
	return ids, nil
}

func (r *PostgresConversationRepository) GetReceipt(ctx context.Context, conversationID, userID uuid.UUID) (conversation.ReadReceipt, error) {
	var receipt conversation.ReadReceipt
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.ReadReceipt{}, relay_errors.ErrNotFound
		}
		return conversation.ReadReceipt{}, err
	}
	return receipt, nil
}

// AdvanceReceipt upserts the read position guarded by a monotonicity
// predicate, so two concurrent writers can never move it backwards. The
// row-level guard replaces locking entirely.
func (r *PostgresConversationRepository) AdvanceReceipt(ctx context.Context, receipt conversation.ReadReceipt) (bool, error) {
	receipt.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_read_at":         receipt.LastReadAt,
			"last_read_message_id": receipt.LastReadMessageID,
			"updated_at":           receipt.UpdatedAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("read_receipts.last_read_at < EXCLUDED.last_read_at"),
		}},
	}).Create(&receipt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
