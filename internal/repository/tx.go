package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormTxManager binds the repository set to a gorm handle and rebinds it
// to the transaction handle inside WithinTx, following the same swap the
// store would otherwise do by hand.
type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) Repos() Repositories {
	return bind(m.db)
}

func (m *GormTxManager) WithinTx(ctx context.Context, fn func(r Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx))
	})
}

func bind(db *gorm.DB) Repositories {
	return Repositories{
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		Outbox:        NewOutboxRepository(db),
	}
}
