package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"hookline/internal/api"
	"hookline/internal/api/handlers"
	"hookline/internal/api/middleware"
	"hookline/internal/engine/webhooks"
	"hookline/internal/pkg/logger"
	"hookline/internal/platform/auth"
	"hookline/internal/platform/config"
	"hookline/internal/platform/database"
	"hookline/internal/platform/repositories"
	"hookline/internal/workers"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Repositories
	webhookRepo := repositories.NewWebhookRepository(db)
	logRepo := repositories.NewDeliveryLogRepository(db)

	// Engine
	registry := webhooks.NewRegistry(webhookRepo)
	client := webhooks.NewClient(cfg.Webhooks.DeliveryTimeout)
	dispatcher := webhooks.NewDispatcher(registry, client, logRepo)

	// Dispatch queue decouples event ingest from delivery
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := workers.NewDispatchQueue(dispatcher, cfg.Queue.WorkerCount, cfg.Queue.BufferSize)
	queue.Start(ctx)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(registry, logRepo, dispatcher)
	eventHandler := handlers.NewEventHandler(queue)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	serviceToken := middleware.NewServiceTokenMiddleware(cfg.Service.TokenHash)

	router := api.NewRouter(&api.Dependencies{
		WebhookHandler: webhookHandler,
		EventHandler:   eventHandler,
		HealthHandler:  healthHandler,
		AuthMiddleware: authMiddleware,
		ServiceToken:   serviceToken,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
