package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"hookline/internal/platform/models"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

const webhookColumns = `id, workspace_id, name, url, secret, description, events,
	verify_ssl, active, success_count, failure_count, last_triggered_at,
	created_by, created_at, updated_at`

func (r *WebhookRepository) Create(webhook *models.Webhook) error {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhooks (` + webhookColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		webhook.ID,
		webhook.WorkspaceID,
		webhook.Name,
		webhook.URL,
		webhook.Secret,
		webhook.Description,
		string(eventsJSON),
		webhook.VerifySSL,
		webhook.Active,
		webhook.SuccessCount,
		webhook.FailureCount,
		webhook.LastTriggeredAt,
		webhook.CreatedBy,
		webhook.CreatedAt,
		webhook.UpdatedAt,
	)
	return err
}

func (r *WebhookRepository) GetByID(id string) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = ?`
	webhook, err := scanWebhook(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return webhook, err
}

func (r *WebhookRepository) ListByWorkspace(workspaceID string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE workspace_id = ? ORDER BY created_at DESC`
	rows, err := r.db.Query(query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, webhook)
	}
	return webhooks, rows.Err()
}

// ListActiveByEvent returns the workspace's active webhooks subscribed to
// eventType. The events column is a JSON array, so membership is checked in
// application code after narrowing to active rows.
func (r *WebhookRepository) ListActiveByEvent(workspaceID, eventType string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE workspace_id = ? AND active = 1`
	rows, err := r.db.Query(query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matched []*models.Webhook
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		if webhook.SubscribedTo(eventType) {
			matched = append(matched, webhook)
		}
	}
	return matched, rows.Err()
}

// Update persists mutable fields. Secret and created_by are deliberately not
// in the statement; they are immutable after creation.
func (r *WebhookRepository) Update(webhook *models.Webhook) error {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return err
	}
	webhook.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE webhooks
		SET name = ?, url = ?, description = ?, events = ?, verify_ssl = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query,
		webhook.Name,
		webhook.URL,
		webhook.Description,
		string(eventsJSON),
		webhook.VerifySSL,
		webhook.Active,
		webhook.UpdatedAt,
		webhook.ID,
	)
	return err
}

func (r *WebhookRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM webhooks WHERE id = ?`, id)
	return err
}

// IncrementSuccess bumps success_count with a storage-side increment so
// concurrent deliveries never lose updates.
func (r *WebhookRepository) IncrementSuccess(id string, triggeredAt int64) error {
	_, err := r.db.Exec(
		`UPDATE webhooks SET success_count = success_count + 1, last_triggered_at = ? WHERE id = ?`,
		triggeredAt, id,
	)
	return err
}

func (r *WebhookRepository) IncrementFailure(id string, triggeredAt int64) error {
	_, err := r.db.Exec(
		`UPDATE webhooks SET failure_count = failure_count + 1, last_triggered_at = ? WHERE id = ?`,
		triggeredAt, id,
	)
	return err
}

func scanWebhook(s interface {
	Scan(dest ...interface{}) error
}) (*models.Webhook, error) {
	var webhook models.Webhook
	var eventsRaw string
	var description sql.NullString
	var lastTriggeredAt sql.NullInt64

	err := s.Scan(
		&webhook.ID,
		&webhook.WorkspaceID,
		&webhook.Name,
		&webhook.URL,
		&webhook.Secret,
		&description,
		&eventsRaw,
		&webhook.VerifySSL,
		&webhook.Active,
		&webhook.SuccessCount,
		&webhook.FailureCount,
		&lastTriggeredAt,
		&webhook.CreatedBy,
		&webhook.CreatedAt,
		&webhook.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		webhook.Description = description.String
	}
	if lastTriggeredAt.Valid {
		val := lastTriggeredAt.Int64
		webhook.LastTriggeredAt = &val
	}
	if err := json.Unmarshal([]byte(eventsRaw), &webhook.Events); err != nil {
		return nil, err
	}

	return &webhook, nil
}
