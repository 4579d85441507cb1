package webhooks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"hookline/internal/platform/metrics"
	"hookline/internal/platform/models"
	"hookline/internal/platform/repositories"
)

// DeliveryResult is what one Dispatch call reports back to its caller.
type DeliveryResult struct {
	Success       bool   `json:"success"`
	Skipped       bool   `json:"skipped,omitempty"`
	WebhookID     string `json:"webhook_id"`
	EventType     string `json:"event_type"`
	StatusCode    *int   `json:"status_code,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
	AttemptNumber int    `json:"attempt_number"`
	WillRetry     bool   `json:"will_retry"`
	NextRetryAt   *int64 `json:"next_retry_at,omitempty"`
	LogID         string `json:"log_id,omitempty"`
}

// Dispatcher drives a delivery end to end: envelope build, signing, the HTTP
// attempt, retry bookkeeping, the log row and the webhook counters.
type Dispatcher struct {
	registry *Registry
	client   *Client
	logs     *repositories.DeliveryLogRepository
}

func NewDispatcher(registry *Registry, client *Client, logs *repositories.DeliveryLogRepository) *Dispatcher {
	return &Dispatcher{registry: registry, client: client, logs: logs}
}

// Dispatch delivers one event to one webhook. priorLogID identifies a retry:
// the prior attempt's row supplies the attempt count and is updated in place.
// Pass "" for a fresh delivery.
//
// Persistence failures after the HTTP attempt are logged but do not change
// the returned result; a lost log write is a data-quality issue, not a
// reason to re-deliver.
func (d *Dispatcher) Dispatch(ctx context.Context, webhookID, eventType string, payload interface{}, priorLogID string) (*DeliveryResult, error) {
	webhook, err := d.registry.Get(webhookID)
	if err != nil {
		return nil, err
	}
	if webhook == nil {
		return nil, ErrWebhookNotFound
	}

	if !webhook.Active {
		// Deliberate no-op, not a failure: nothing is sent, logged or counted.
		return &DeliveryResult{
			Success:   true,
			Skipped:   true,
			WebhookID: webhook.ID,
			EventType: eventType,
		}, nil
	}

	priorAttempts := 0
	logID := ""
	if priorLogID != "" {
		prior, err := d.logs.GetByID(priorLogID)
		if err != nil {
			return nil, err
		}
		if prior == nil || prior.WebhookID != webhook.ID {
			return nil, ErrLogNotFound
		}
		priorAttempts = prior.AttemptNumber
		logID = prior.ID
	}

	now := time.Now().UTC()
	envelope := models.Envelope{
		Event:     eventType,
		Timestamp: now.Format(time.RFC3339),
		Data:      payload,
	}

	// Serialized exactly once; the same bytes are signed and sent.
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	signature, err := Sign(webhook.Secret, body)
	if err != nil {
		return nil, err
	}

	outcome := d.client.Deliver(ctx, webhook.URL, body, signature, eventType, webhook.ID, webhook.VerifySSL)
	decision := NextAttempt(priorAttempts, outcome.Success, time.Now())

	metrics.DeliveryDuration.Observe(float64(outcome.DurationMs) / 1000)
	if outcome.Success {
		metrics.DeliveriesTotal.WithLabelValues("success", eventType).Inc()
	} else {
		metrics.DeliveriesTotal.WithLabelValues("failure", eventType).Inc()
	}
	if decision.NextRetryAt != nil {
		metrics.RetriesScheduledTotal.Inc()
	}

	entry := &models.DeliveryLog{
		ID:            logID,
		WebhookID:     webhook.ID,
		EventType:     eventType,
		Payload:       string(body),
		StatusCode:    outcome.StatusCode,
		ResponseBody:  outcome.ResponseBody,
		ErrorMessage:  outcome.ErrorMessage,
		DurationMs:    outcome.DurationMs,
		AttemptNumber: decision.AttemptNumber,
		Success:       outcome.Success,
		CreatedAt:     now.Unix(),
	}
	if decision.NextRetryAt != nil {
		at := decision.NextRetryAt.Unix()
		entry.NextRetryAt = &at
	}

	if entry.ID == "" {
		entry.ID = "del_" + uuid.New().String()
		if err := d.logs.Create(entry); err != nil {
			log.Error().Err(err).Str("webhook_id", webhook.ID).Msg("failed to write delivery log")
		}
	} else {
		if err := d.logs.Update(entry); err != nil {
			log.Error().Err(err).Str("log_id", entry.ID).Msg("failed to update delivery log")
		}
	}

	if err := d.registry.RecordOutcome(webhook.ID, outcome.Success); err != nil {
		log.Error().Err(err).Str("webhook_id", webhook.ID).Msg("failed to update webhook counters")
	}

	result := &DeliveryResult{
		Success:       outcome.Success,
		WebhookID:     webhook.ID,
		EventType:     eventType,
		StatusCode:    outcome.StatusCode,
		DurationMs:    outcome.DurationMs,
		AttemptNumber: decision.AttemptNumber,
		WillRetry:     entry.NextRetryAt != nil,
		NextRetryAt:   entry.NextRetryAt,
		LogID:         entry.ID,
	}

	if !outcome.Success && outcome.ErrorMessage != nil {
		log.Warn().
			Str("webhook_id", webhook.ID).
			Str("event", eventType).
			Int("attempt", decision.AttemptNumber).
			Bool("will_retry", result.WillRetry).
			Str("error", *outcome.ErrorMessage).
			Msg("webhook delivery failed")
	}

	return result, nil
}

// DispatchEvent fans one event out to every active webhook in the workspace
// subscribed to it. Deliveries run concurrently and independently; one
// webhook's failure never blocks another's delivery.
func (d *Dispatcher) DispatchEvent(ctx context.Context, workspaceID, eventType string, payload interface{}) ([]*DeliveryResult, error) {
	webhooks, err := d.registry.ListActiveByEvent(workspaceID, eventType)
	if err != nil {
		return nil, err
	}

	results := make([]*DeliveryResult, len(webhooks))
	var wg sync.WaitGroup
	for i, webhook := range webhooks {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			result, err := d.Dispatch(ctx, id, eventType, payload, "")
			if err != nil {
				log.Error().Err(err).Str("webhook_id", id).Str("event", eventType).Msg("dispatch failed")
				return
			}
			results[i] = result
		}(i, webhook.ID)
	}
	wg.Wait()

	// Compact out slots lost to dispatch errors.
	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}
