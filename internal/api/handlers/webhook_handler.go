package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "hookline/internal/api/context"
	"hookline/internal/engine/webhooks"
	"hookline/internal/pkg/errors"
	"hookline/internal/platform/auth"
	"hookline/internal/platform/models"
	"hookline/internal/platform/repositories"
)

type WebhookHandler struct {
	registry   *webhooks.Registry
	logs       *repositories.DeliveryLogRepository
	dispatcher *webhooks.Dispatcher
}

func NewWebhookHandler(registry *webhooks.Registry, logs *repositories.DeliveryLogRepository, dispatcher *webhooks.Dispatcher) *WebhookHandler {
	return &WebhookHandler{registry: registry, logs: logs, dispatcher: dispatcher}
}

type createWebhookRequest struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Events      []string `json:"events"`
	Description string   `json:"description"`
	Secret      string   `json:"secret"`
	VerifySSL   *bool    `json:"verify_ssl"`
}

// createWebhookResponse carries the secret exactly once, at creation time.
type createWebhookResponse struct {
	*models.Webhook
	Secret string `json:"secret"`
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req createWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	webhook, err := h.registry.Create(webhooks.CreateWebhookInput{
		WorkspaceID: claims.WorkspaceID,
		Name:        req.Name,
		URL:         req.URL,
		Events:      req.Events,
		Description: req.Description,
		Secret:      req.Secret,
		VerifySSL:   req.VerifySSL,
		CreatedBy:   claims.UserID,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createWebhookResponse{Webhook: webhook, Secret: webhook.Secret})
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	list, err := h.registry.List(claims.WorkspaceID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list webhooks", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	webhook, ok := h.ownedWebhook(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(webhook)
}

type updateWebhookRequest struct {
	Name        *string  `json:"name"`
	URL         *string  `json:"url"`
	Events      []string `json:"events"`
	Description *string  `json:"description"`
	VerifySSL   *bool    `json:"verify_ssl"`
	Active      *bool    `json:"active"`
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	webhook, ok := h.ownedWebhook(w, r)
	if !ok {
		return
	}

	// Decoding into updateWebhookRequest strips any attempt to change the
	// secret or created_by.
	var req updateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	updated, err := h.registry.Update(webhook.ID, webhooks.UpdateWebhookInput{
		Name:        req.Name,
		URL:         req.URL,
		Events:      req.Events,
		Description: req.Description,
		VerifySSL:   req.VerifySSL,
		Active:      req.Active,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	webhook, ok := h.ownedWebhook(w, r)
	if !ok {
		return
	}

	if err := h.registry.Delete(webhook.ID); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WebhookHandler) Logs(w http.ResponseWriter, r *http.Request) {
	webhook, ok := h.ownedWebhook(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	entries, err := h.logs.ListByWebhook(webhook.ID, limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list delivery logs", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

type testWebhookRequest struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
}

// Test sends one synthetic delivery to the webhook and returns the result
// synchronously, so an operator can verify the endpoint before real traffic.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	webhook, ok := h.ownedWebhook(w, r)
	if !ok {
		return
	}

	var req testWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !stderrors.Is(err, io.EOF) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	eventType := req.EventType
	if eventType == "" && len(webhook.Events) > 0 {
		eventType = webhook.Events[0]
	}
	if !webhooks.IsValidEvent(eventType) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unknown event type", []string{eventType})
		return
	}

	data := req.Data
	if data == nil {
		data = map[string]bool{"test": true}
	}

	result, err := h.dispatcher.Dispatch(r.Context(), webhook.ID, eventType, data, "")
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ownedWebhook loads the webhook from the path and checks it belongs to the
// caller's workspace. A foreign webhook reads as not found.
func (h *WebhookHandler) ownedWebhook(w http.ResponseWriter, r *http.Request) (*models.Webhook, bool) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("webhook_id")

	webhook, err := h.registry.Get(id)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook", nil)
		return nil, false
	}
	if webhook == nil || webhook.WorkspaceID != claims.WorkspaceID {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return nil, false
	}
	return webhook, true
}

func writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *webhooks.ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, validationErr.Error(), validationErr.Details)
	case stderrors.Is(err, webhooks.ErrWebhookNotFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
	default:
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
