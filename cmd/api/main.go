package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"relay-chat/config"
	"relay-chat/internal/auth"
	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/message"
	outboxdomain "relay-chat/internal/domain/outbox"
	"relay-chat/internal/handler"
	"relay-chat/internal/middleware"
	"relay-chat/internal/outbox"
	"relay-chat/internal/realtime"
	"relay-chat/internal/repository"
	"relay-chat/internal/store"
	"relay-chat/internal/websocket"
	"relay-chat/pkg/database"
	"relay-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == "release" {
		mode = logger.ProductionMode
		gin.SetMode(gin.ReleaseMode)
	}
	appLog := logger.New(mode)
	logger.SetGlobalLogger(appLog)

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
		&outboxdomain.OutboxEvent{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	broker, err := realtime.OpenBackend(cfg.RealtimeBackend, cfg)
	if err != nil {
		log.Fatalf("open realtime backend %q: %v", cfg.RealtimeBackend, err)
	}
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	txm := repository.NewGormTxManager(db)
	chatStore := store.New(txm, appLog, store.ReviveOnNewMessage)

	processor := outbox.DefaultProcessor(txm.Repos().Outbox, broker, appLog)
	outbox.NewRunner(processor).Start(ctx)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	typing := realtime.NewTypingPublisher(broker)

	hub := websocket.NewHub()
	authorizer := websocket.NewChannelAuthorizer(txm.Repos().Conversations)
	bridge := websocket.NewBridge(broker, hub, authorizer, appLog)
	bridge.Run(ctx)
	go hub.Run(ctx)

	convHandler := handler.NewConversationHandler(chatStore)
	msgHandler := handler.NewMessageHandler(chatStore, typing)
	wsHandler := websocket.NewHandler(verifier, hub, authorizer, typing)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(appLog))
	r.Use(middleware.ErrorHandler(appLog))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/ws", wsHandler.Connect)

	api := r.Group("/api/v1", middleware.AuthMiddleware(verifier))
	{
		api.POST("/conversations", convHandler.Create)
		api.GET("/conversations", convHandler.List)
		api.GET("/conversations/:id", convHandler.GetByID)
		api.POST("/conversations/:id/participants", convHandler.AddParticipant)
		api.DELETE("/conversations/:id", convHandler.Hide)
		api.POST("/conversations/:id/unhide", convHandler.Unhide)
		api.POST("/conversations/:id/read", convHandler.MarkRead)
		api.GET("/conversations/:id/unread", convHandler.UnreadCount)
		api.GET("/unread", convHandler.UnreadTotal)

		api.POST("/conversations/:id/messages", msgHandler.Send)
		api.GET("/conversations/:id/messages", msgHandler.List)
		api.POST("/conversations/:id/typing", msgHandler.Typing)
		api.PATCH("/messages/:id", msgHandler.Edit)
		api.DELETE("/messages/:id", msgHandler.Delete)
		api.POST("/messages/:id/reactions", msgHandler.React)
		api.GET("/messages/:id/reactions", msgHandler.Reactions)
	}

	appLog.Infof("starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("server: %v", err)
	}
}
