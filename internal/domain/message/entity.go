package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message represents the messages table. AuthorID and ConversationID are
// immutable after creation. A soft delete redacts Content and sets
// DeletedAt but keeps the row so ordering and dedup by id still work.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorID       uuid.UUID `gorm:"type:uuid;not null"`
	Content        string
	CreatedAt      time.Time `gorm:"not null;index"`
	EditedAt       sql.NullTime
	DeletedAt      sql.NullTime
}

// Reaction represents the reactions table. One row per (message, user);
// sending a different type replaces the row, re-sending the same type
// removes it.
type Reaction struct {
	MessageID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReactionType string    `gorm:"type:varchar(40);not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Message) TableName() string {
	return "messages"
}

func (Reaction) TableName() string {
	return "reactions"
}

// Deleted reports whether the message is a tombstone.
func (m Message) Deleted() bool {
	return m.DeletedAt.Valid
}
