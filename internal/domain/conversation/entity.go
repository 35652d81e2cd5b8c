package conversation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversation kinds. Direct threads carry no owning tenant.
const (
	KindDirect = "DIRECT"
	KindGroup  = "GROUP"
	KindTenant = "TENANT"
)

// Conversation represents the conversations table. Rows are never
// physically deleted; ArchivedAt is the strongest removal it supports.
type Conversation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind       string    `gorm:"type:varchar(20);not null"`
	TenantID   uuid.NullUUID
	Title      sql.NullString
	CreatedBy  uuid.NullUUID
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	ArchivedAt sql.NullTime

	// Relationships
	Participants []Participant
}

// Participant represents the participants table. A row exists for every
// (conversation, user) pair that has ever seen the conversation; hiding
// only sets HiddenAt, it never deletes the row.
type Participant struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role           sql.NullString
	JoinedAt       time.Time `gorm:"not null"`
	HiddenAt       sql.NullTime
}

// ReadReceipt represents the read_receipts table. LastReadAt only moves
// forward; stale writes are dropped at the repository.
type ReadReceipt struct {
	ConversationID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastReadAt        time.Time `gorm:"not null"`
	LastReadMessageID uuid.NullUUID
	UpdatedAt         time.Time `gorm:"not null"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "participants"
}

func (ReadReceipt) TableName() string {
	return "read_receipts"
}

// Hidden reports whether the participant has soft-deleted the conversation.
func (p Participant) Hidden() bool {
	return p.HiddenAt.Valid
}
