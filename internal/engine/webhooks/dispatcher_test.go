package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hookline/internal/platform/models"
	"hookline/internal/platform/repositories"
)

type testPipeline struct {
	registry   *Registry
	dispatcher *Dispatcher
	logs       *repositories.DeliveryLogRepository
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	db := setupTestDB(t)
	registry := NewRegistry(repositories.NewWebhookRepository(db))
	logs := repositories.NewDeliveryLogRepository(db)
	return &testPipeline{
		registry:   registry,
		dispatcher: NewDispatcher(registry, NewClient(5*time.Second), logs),
		logs:       logs,
	}
}

func (p *testPipeline) createWebhook(t *testing.T, url string, events []string) *models.Webhook {
	t.Helper()
	webhook, err := p.registry.Create(CreateWebhookInput{
		WorkspaceID: "ws_1",
		Name:        "hook",
		URL:         url,
		Events:      events,
		Secret:      "s3cr3t",
		CreatedBy:   "user_1",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return webhook
}

func TestDispatchSuccessEndToEnd(t *testing.T) {
	var calls atomic.Int64
	var gotBody []byte
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := newTestPipeline(t)
	webhook := p.createWebhook(t, server.URL, []string{"task.created"})

	results, err := p.dispatcher.DispatchEvent(context.Background(), "ws_1", "task.created", map[string]string{"id": "t1"})
	if err != nil {
		t.Fatalf("DispatchEvent() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if calls.Load() != 1 {
		t.Fatalf("delivery client called %d times, want 1", calls.Load())
	}

	// The envelope wraps the event type, a timestamp and the caller's data.
	var envelope models.Envelope
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("body is not a valid envelope: %v", err)
	}
	if envelope.Event != "task.created" {
		t.Errorf("envelope.Event = %q", envelope.Event)
	}
	if _, err := time.Parse(time.RFC3339, envelope.Timestamp); err != nil {
		t.Errorf("envelope.Timestamp = %q, not RFC 3339", envelope.Timestamp)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok || data["id"] != "t1" {
		t.Errorf("envelope.Data = %v", envelope.Data)
	}

	// Signature covers the exact request body bytes.
	mac := hmac.New(sha256.New, []byte("s3cr3t"))
	mac.Write(gotBody)
	if expected := hex.EncodeToString(mac.Sum(nil)); gotSignature != expected {
		t.Errorf("signature = %q, want %q", gotSignature, expected)
	}

	result := results[0]
	if !result.Success || result.AttemptNumber != 1 || result.WillRetry {
		t.Errorf("result = %+v", result)
	}

	stored, _ := p.registry.Get(webhook.ID)
	if stored.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", stored.SuccessCount)
	}
	if stored.LastTriggeredAt == nil {
		t.Error("LastTriggeredAt not set")
	}

	entries, _ := p.logs.ListByWebhook(webhook.ID, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("got %d log rows, want 1", len(entries))
	}
	entry := entries[0]
	if !entry.Success || entry.AttemptNumber != 1 || entry.NextRetryAt != nil {
		t.Errorf("log = %+v", entry)
	}
	if entry.StatusCode == nil || *entry.StatusCode != 200 {
		t.Errorf("log StatusCode = %v, want 200", entry.StatusCode)
	}
	if entry.Payload != string(gotBody) {
		t.Error("log payload differs from the bytes sent")
	}
}

func TestDispatchFailureAndRetryChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newTestPipeline(t)
	webhook := p.createWebhook(t, server.URL, []string{"task.created"})

	before := time.Now().Unix()
	result, err := p.dispatcher.Dispatch(context.Background(), webhook.ID, "task.created", map[string]string{"id": "t1"}, "")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if result.Success || result.AttemptNumber != 1 || !result.WillRetry {
		t.Errorf("first attempt result = %+v", result)
	}
	if result.StatusCode == nil || *result.StatusCode != 500 {
		t.Errorf("StatusCode = %v, want 500", result.StatusCode)
	}
	if result.NextRetryAt == nil {
		t.Fatal("NextRetryAt = nil after first failure")
	}
	delay := *result.NextRetryAt - before
	if delay < 59 || delay > 62 {
		t.Errorf("first retry delay = %ds, want ~60s", delay)
	}

	stored, _ := p.registry.Get(webhook.ID)
	if stored.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", stored.FailureCount)
	}

	// Retry with the stored log id updates the same row.
	before = time.Now().Unix()
	second, err := p.dispatcher.Dispatch(context.Background(), webhook.ID, "task.created", map[string]string{"id": "t1"}, result.LogID)
	if err != nil {
		t.Fatalf("retry Dispatch() error = %v", err)
	}
	if second.LogID != result.LogID {
		t.Errorf("retry wrote log %q, want same row %q", second.LogID, result.LogID)
	}
	if second.AttemptNumber != 2 || !second.WillRetry {
		t.Errorf("second attempt result = %+v", second)
	}
	delay = *second.NextRetryAt - before
	if delay < 299 || delay > 302 {
		t.Errorf("second retry delay = %ds, want ~300s", delay)
	}

	// Third failure reaches the cap: no further retry.
	third, err := p.dispatcher.Dispatch(context.Background(), webhook.ID, "task.created", map[string]string{"id": "t1"}, result.LogID)
	if err != nil {
		t.Fatalf("third Dispatch() error = %v", err)
	}
	if third.AttemptNumber != 3 || third.WillRetry || third.NextRetryAt != nil {
		t.Errorf("third attempt result = %+v", third)
	}

	entries, _ := p.logs.ListByWebhook(webhook.ID, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("got %d log rows, want 1 updated in place", len(entries))
	}
	if entries[0].AttemptNumber != 3 || entries[0].NextRetryAt != nil {
		t.Errorf("final log = %+v", entries[0])
	}

	stored, _ = p.registry.Get(webhook.ID)
	if stored.FailureCount != 3 {
		t.Errorf("FailureCount = %d, want 3", stored.FailureCount)
	}
}

func TestDispatchInactiveSkips(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	p := newTestPipeline(t)
	webhook := p.createWebhook(t, server.URL, []string{"task.created"})

	inactive := false
	if _, err := p.registry.Update(webhook.ID, UpdateWebhookInput{Active: &inactive}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	result, err := p.dispatcher.Dispatch(context.Background(), webhook.ID, "task.created", nil, "")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if !result.Skipped {
		t.Error("Skipped = false for inactive webhook")
	}
	if calls.Load() != 0 {
		t.Errorf("delivery client called %d times, want 0", calls.Load())
	}

	entries, _ := p.logs.ListByWebhook(webhook.ID, 10, 0)
	if len(entries) != 0 {
		t.Errorf("got %d log rows, want 0 for a skip", len(entries))
	}
}

func TestDispatchUnknownWebhook(t *testing.T) {
	p := newTestPipeline(t)

	if _, err := p.dispatcher.Dispatch(context.Background(), "wh_missing", "task.created", nil, ""); err != ErrWebhookNotFound {
		t.Errorf("Dispatch() error = %v, want ErrWebhookNotFound", err)
	}
}

func TestDispatchEventOnlyMatchesSubscribed(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	p := newTestPipeline(t)
	p.createWebhook(t, server.URL, []string{"project.created"})

	results, err := p.dispatcher.DispatchEvent(context.Background(), "ws_1", "task.created", nil)
	if err != nil {
		t.Fatalf("DispatchEvent() error = %v", err)
	}
	if len(results) != 0 || calls.Load() != 0 {
		t.Errorf("unsubscribed webhook was delivered to (%d results, %d calls)", len(results), calls.Load())
	}
}
