package webhooks

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"hookline/internal/platform/models"
	"hookline/internal/platform/repositories"
)

// Registry owns webhook definitions: validation, secret generation, CRUD and
// the running success/failure counters.
type Registry struct {
	repo *repositories.WebhookRepository
}

func NewRegistry(repo *repositories.WebhookRepository) *Registry {
	return &Registry{repo: repo}
}

type CreateWebhookInput struct {
	WorkspaceID string
	Name        string
	URL         string
	Events      []string
	Description string
	Secret      string
	VerifySSL   *bool
	CreatedBy   string
}

// UpdateWebhookInput carries the patchable fields. Secret and CreatedBy are
// not representable here: update requests cannot touch them.
type UpdateWebhookInput struct {
	Name        *string
	URL         *string
	Events      []string
	Description *string
	VerifySSL   *bool
	Active      *bool
}

func (r *Registry) Create(in CreateWebhookInput) (*models.Webhook, error) {
	if in.Name == "" {
		return nil, newValidationError("name", "name is required")
	}
	if err := validateURL(in.URL); err != nil {
		return nil, err
	}
	if err := validateEvents(in.Events); err != nil {
		return nil, err
	}

	secret := in.Secret
	if secret == "" {
		var err error
		secret, err = generateSecret()
		if err != nil {
			return nil, err
		}
	}

	verifySSL := true
	if in.VerifySSL != nil {
		verifySSL = *in.VerifySSL
	}

	now := time.Now().Unix()
	webhook := &models.Webhook{
		ID:          "wh_" + uuid.New().String(),
		WorkspaceID: in.WorkspaceID,
		Name:        in.Name,
		URL:         in.URL,
		Secret:      secret,
		Description: in.Description,
		Events:      in.Events,
		VerifySSL:   verifySSL,
		Active:      true,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.repo.Create(webhook); err != nil {
		return nil, err
	}

	return webhook, nil
}

func (r *Registry) Update(id string, in UpdateWebhookInput) (*models.Webhook, error) {
	existing, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrWebhookNotFound
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, newValidationError("name", "name is required")
		}
		existing.Name = *in.Name
	}
	if in.URL != nil {
		if err := validateURL(*in.URL); err != nil {
			return nil, err
		}
		existing.URL = *in.URL
	}
	if in.Events != nil {
		if err := validateEvents(in.Events); err != nil {
			return nil, err
		}
		existing.Events = in.Events
	}
	if in.Description != nil {
		existing.Description = *in.Description
	}
	if in.VerifySSL != nil {
		existing.VerifySSL = *in.VerifySSL
	}
	if in.Active != nil {
		existing.Active = *in.Active
	}

	if err := r.repo.Update(existing); err != nil {
		return nil, err
	}

	return existing, nil
}

func (r *Registry) Get(id string) (*models.Webhook, error) {
	return r.repo.GetByID(id)
}

func (r *Registry) List(workspaceID string) ([]*models.Webhook, error) {
	return r.repo.ListByWorkspace(workspaceID)
}

func (r *Registry) ListActiveByEvent(workspaceID, eventType string) ([]*models.Webhook, error) {
	return r.repo.ListActiveByEvent(workspaceID, eventType)
}

// Delete removes the webhook; its delivery logs cascade at the storage layer.
func (r *Registry) Delete(id string) error {
	existing, err := r.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrWebhookNotFound
	}
	return r.repo.Delete(id)
}

// RecordOutcome bumps the matching counter and last_triggered_at. The
// increment happens in SQL, so concurrent deliveries to the same webhook
// never lose updates.
func (r *Registry) RecordOutcome(id string, success bool) error {
	now := time.Now().Unix()
	if success {
		return r.repo.IncrementSuccess(id, now)
	}
	return r.repo.IncrementFailure(id, now)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return newValidationError("url", "must be a valid absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newValidationError("url", "must use http or https")
	}
	return nil
}

func validateEvents(events []string) error {
	if len(events) == 0 {
		return newValidationError("events", "at least one event type is required")
	}
	if invalid := InvalidEvents(events); len(invalid) > 0 {
		return newValidationError("events",
			"unknown event types: "+strings.Join(invalid, ", "), invalid...)
	}
	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
