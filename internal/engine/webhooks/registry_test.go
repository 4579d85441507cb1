package webhooks

import (
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"hookline/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// A second pool connection to :memory: would see a fresh empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE webhooks (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		secret TEXT NOT NULL,
		description TEXT,
		events TEXT NOT NULL,
		verify_ssl INTEGER NOT NULL DEFAULT 1,
		active INTEGER NOT NULL DEFAULT 1,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		last_triggered_at INTEGER,
		created_by TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE delivery_logs (
		id TEXT PRIMARY KEY,
		webhook_id TEXT NOT NULL REFERENCES webhooks(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status_code INTEGER,
		response_body TEXT,
		error_message TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		attempt_number INTEGER NOT NULL DEFAULT 1,
		next_retry_at INTEGER,
		success INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(repositories.NewWebhookRepository(setupTestDB(t)))
}

func validCreateInput() CreateWebhookInput {
	return CreateWebhookInput{
		WorkspaceID: "ws_1",
		Name:        "ci-notify",
		URL:         "https://example.com/hook",
		Events:      []string{"task.created"},
		CreatedBy:   "user_1",
	}
}

func TestRegistryCreateDefaults(t *testing.T) {
	registry := newTestRegistry(t)

	webhook, err := registry.Create(validCreateInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(webhook.ID, "wh_") {
		t.Errorf("ID = %q, want wh_ prefix", webhook.ID)
	}
	if !strings.HasPrefix(webhook.Secret, "whsec_") {
		t.Errorf("Secret = %q, want whsec_ prefix", webhook.Secret)
	}
	if !webhook.Active {
		t.Error("Active = false, want true by default")
	}
	if !webhook.VerifySSL {
		t.Error("VerifySSL = false, want true by default")
	}

	stored, err := registry.Get(webhook.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored == nil || stored.Secret != webhook.Secret {
		t.Error("stored webhook does not round-trip the generated secret")
	}
}

func TestRegistryCreateRejectsBadURL(t *testing.T) {
	registry := newTestRegistry(t)

	for _, bad := range []string{"not-a-url", "", "ftp://example.com", "/relative/path"} {
		in := validCreateInput()
		in.URL = bad

		_, err := registry.Create(in)
		var validationErr *ValidationError
		if !asValidation(err, &validationErr) || validationErr.Field != "url" {
			t.Errorf("Create(url=%q) error = %v, want url ValidationError", bad, err)
		}
	}
}

func TestRegistryCreateRejectsUnknownEvents(t *testing.T) {
	registry := newTestRegistry(t)

	in := validCreateInput()
	in.Events = []string{"task.created", "task.exploded", "unknown.event"}

	_, err := registry.Create(in)
	var validationErr *ValidationError
	if !asValidation(err, &validationErr) {
		t.Fatalf("Create() error = %v, want ValidationError", err)
	}
	if validationErr.Field != "events" {
		t.Errorf("Field = %q, want events", validationErr.Field)
	}
	if len(validationErr.Details) != 2 {
		t.Fatalf("Details = %v, want both invalid entries named", validationErr.Details)
	}
	if validationErr.Details[0] != "task.exploded" || validationErr.Details[1] != "unknown.event" {
		t.Errorf("Details = %v", validationErr.Details)
	}
}

func TestRegistryCreateRejectsEmptyEvents(t *testing.T) {
	registry := newTestRegistry(t)

	in := validCreateInput()
	in.Events = nil

	if _, err := registry.Create(in); err == nil {
		t.Error("Create() with no events should fail")
	}
}

func TestRegistryUpdate(t *testing.T) {
	registry := newTestRegistry(t)

	webhook, err := registry.Create(validCreateInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newURL := "https://example.org/other"
	inactive := false
	updated, err := registry.Update(webhook.ID, UpdateWebhookInput{
		URL:    &newURL,
		Events: []string{"project.created", "project.deleted"},
		Active: &inactive,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.URL != newURL {
		t.Errorf("URL = %q, want %q", updated.URL, newURL)
	}
	if updated.Active {
		t.Error("Active = true, want false")
	}
	if updated.Secret != webhook.Secret {
		t.Error("Secret changed across update; it is immutable")
	}
	if updated.CreatedBy != webhook.CreatedBy {
		t.Error("CreatedBy changed across update; it is immutable")
	}
}

func TestRegistryUpdateValidates(t *testing.T) {
	registry := newTestRegistry(t)

	webhook, _ := registry.Create(validCreateInput())

	bad := "not-a-url"
	if _, err := registry.Update(webhook.ID, UpdateWebhookInput{URL: &bad}); err == nil {
		t.Error("Update() with malformed URL should fail")
	}
	if _, err := registry.Update(webhook.ID, UpdateWebhookInput{Events: []string{"nope"}}); err == nil {
		t.Error("Update() with unknown event should fail")
	}
}

func TestRegistryUpdateNotFound(t *testing.T) {
	registry := newTestRegistry(t)

	name := "x"
	if _, err := registry.Update("wh_missing", UpdateWebhookInput{Name: &name}); err != ErrWebhookNotFound {
		t.Errorf("Update() error = %v, want ErrWebhookNotFound", err)
	}
}

func TestRegistryDelete(t *testing.T) {
	registry := newTestRegistry(t)

	webhook, _ := registry.Create(validCreateInput())

	if err := registry.Delete(webhook.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := registry.Get(webhook.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("webhook still present after delete")
	}

	if err := registry.Delete(webhook.ID); err != ErrWebhookNotFound {
		t.Errorf("second Delete() error = %v, want ErrWebhookNotFound", err)
	}
}

func TestRegistryListByWorkspace(t *testing.T) {
	registry := newTestRegistry(t)

	first := validCreateInput()
	registry.Create(first)

	second := validCreateInput()
	second.WorkspaceID = "ws_2"
	registry.Create(second)

	list, err := registry.List("ws_1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List(ws_1) = %d webhooks, want 1", len(list))
	}
}

func asValidation(err error, target **ValidationError) bool {
	if err == nil {
		return false
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}
