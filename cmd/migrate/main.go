package main

import (
	"log"

	"relay-chat/config"
	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/outbox"
	"relay-chat/pkg/database"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}

	if err := db.AutoMigrate(
		&conversation.Conversation{},
		&conversation.Participant{},
		&conversation.ReadReceipt{},
		&message.Message{},
		&message.Reaction{},
		&outbox.OutboxEvent{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Composite indexes AutoMigrate does not cover.
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages (conversation_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_user ON participants (user_id) WHERE hidden_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events (status, created_at) WHERE status = 'PENDING'`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			log.Fatalf("index: %v", err)
		}
	}

	log.Println("migrations applied")
}
