package workers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"hookline/internal/engine/webhooks"
	"hookline/internal/platform/models"
	"hookline/internal/platform/repositories"
)

// RetryWorker is the external scheduler the delivery core depends on: it
// polls for failed attempts whose next_retry_at has elapsed and re-invokes
// the dispatcher with the stored log id. The in-flight set serializes
// attempts per log id so one chain never has two concurrent retries.
type RetryWorker struct {
	dispatcher *webhooks.Dispatcher
	logs       *repositories.DeliveryLogRepository
	interval   time.Duration
	batchSize  int

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewRetryWorker(dispatcher *webhooks.Dispatcher, logs *repositories.DeliveryLogRepository, interval time.Duration, batchSize int) *RetryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RetryWorker{
		dispatcher: dispatcher,
		logs:       logs,
		interval:   interval,
		batchSize:  batchSize,
		inflight:   make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled.
func (w *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RetryWorker) tick(ctx context.Context) {
	due, err := w.logs.ListDue(time.Now().Unix(), w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to scan due retries")
		return
	}

	var wg sync.WaitGroup
	for _, entry := range due {
		if !w.markInflight(entry.ID) {
			continue
		}
		wg.Add(1)
		go func(entry *models.DeliveryLog) {
			defer wg.Done()
			defer w.clearInflight(entry.ID)
			w.retryOne(ctx, entry)
		}(entry)
	}
	wg.Wait()
}

func (w *RetryWorker) retryOne(ctx context.Context, entry *models.DeliveryLog) {
	// The stored payload is the envelope as sent; the retry re-wraps the
	// original data with a fresh timestamp.
	var envelope models.Envelope
	if err := json.Unmarshal([]byte(entry.Payload), &envelope); err != nil {
		log.Error().Err(err).Str("log_id", entry.ID).Msg("stored payload is not a valid envelope")
		return
	}

	result, err := w.dispatcher.Dispatch(ctx, entry.WebhookID, entry.EventType, envelope.Data, entry.ID)
	if err != nil {
		log.Error().Err(err).Str("log_id", entry.ID).Msg("retry dispatch failed")
		return
	}

	log.Info().
		Str("log_id", entry.ID).
		Str("webhook_id", entry.WebhookID).
		Int("attempt", result.AttemptNumber).
		Bool("success", result.Success).
		Bool("will_retry", result.WillRetry).
		Msg("retry attempted")
}

func (w *RetryWorker) markInflight(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.inflight[id]; exists {
		return false
	}
	w.inflight[id] = struct{}{}
	return true
}

func (w *RetryWorker) clearInflight(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, id)
}
