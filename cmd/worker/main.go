package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"hookline/internal/engine/webhooks"
	"hookline/internal/pkg/logger"
	"hookline/internal/platform/config"
	"hookline/internal/platform/database"
	"hookline/internal/platform/repositories"
	"hookline/internal/workers"
)

// The retry worker is the external scheduler the delivery core requires:
// it wakes up on an interval and re-dispatches every delivery log whose
// next_retry_at has elapsed.
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

	webhookRepo := repositories.NewWebhookRepository(db)
	logRepo := repositories.NewDeliveryLogRepository(db)

	registry := webhooks.NewRegistry(webhookRepo)
	client := webhooks.NewClient(cfg.Webhooks.DeliveryTimeout)
	dispatcher := webhooks.NewDispatcher(registry, client, logRepo)

	worker := workers.NewRetryWorker(dispatcher, logRepo, cfg.Retry.PollInterval, cfg.Retry.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Starting retry worker...")
	worker.Run(ctx)
}
