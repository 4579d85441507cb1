package repositories

import (
	"database/sql"

	"hookline/internal/platform/models"
)

type DeliveryLogRepository struct {
	db *sql.DB
}

func NewDeliveryLogRepository(db *sql.DB) *DeliveryLogRepository {
	return &DeliveryLogRepository{db: db}
}

const deliveryLogColumns = `id, webhook_id, event_type, payload, status_code,
	response_body, error_message, duration_ms, attempt_number, next_retry_at,
	success, created_at`

func (r *DeliveryLogRepository) Create(entry *models.DeliveryLog) error {
	query := `
		INSERT INTO delivery_logs (` + deliveryLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		entry.ID,
		entry.WebhookID,
		entry.EventType,
		entry.Payload,
		entry.StatusCode,
		entry.ResponseBody,
		entry.ErrorMessage,
		entry.DurationMs,
		entry.AttemptNumber,
		entry.NextRetryAt,
		entry.Success,
		entry.CreatedAt,
	)
	return err
}

// Update overwrites the outcome fields of an existing attempt row. Retries
// reuse the row created by the first attempt rather than appending.
func (r *DeliveryLogRepository) Update(entry *models.DeliveryLog) error {
	query := `
		UPDATE delivery_logs
		SET payload = ?, status_code = ?, response_body = ?, error_message = ?,
		    duration_ms = ?, attempt_number = ?, next_retry_at = ?, success = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		entry.Payload,
		entry.StatusCode,
		entry.ResponseBody,
		entry.ErrorMessage,
		entry.DurationMs,
		entry.AttemptNumber,
		entry.NextRetryAt,
		entry.Success,
		entry.ID,
	)
	return err
}

func (r *DeliveryLogRepository) GetByID(id string) (*models.DeliveryLog, error) {
	query := `SELECT ` + deliveryLogColumns + ` FROM delivery_logs WHERE id = ?`
	entry, err := scanDeliveryLog(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

func (r *DeliveryLogRepository) ListByWebhook(webhookID string, limit, offset int) ([]*models.DeliveryLog, error) {
	query := `
		SELECT ` + deliveryLogColumns + `
		FROM delivery_logs
		WHERE webhook_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, webhookID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.DeliveryLog
	for rows.Next() {
		entry, err := scanDeliveryLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListDue returns failed attempts whose next_retry_at has elapsed, oldest
// first. The retry worker drives these back through the dispatcher.
func (r *DeliveryLogRepository) ListDue(now int64, limit int) ([]*models.DeliveryLog, error) {
	query := `
		SELECT ` + deliveryLogColumns + `
		FROM delivery_logs
		WHERE success = 0 AND next_retry_at IS NOT NULL AND next_retry_at <= ?
		ORDER BY next_retry_at ASC
		LIMIT ?
	`
	rows, err := r.db.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.DeliveryLog
	for rows.Next() {
		entry, err := scanDeliveryLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanDeliveryLog(s interface {
	Scan(dest ...interface{}) error
}) (*models.DeliveryLog, error) {
	var entry models.DeliveryLog
	var statusCode sql.NullInt64
	var responseBody sql.NullString
	var errorMessage sql.NullString
	var nextRetryAt sql.NullInt64

	err := s.Scan(
		&entry.ID,
		&entry.WebhookID,
		&entry.EventType,
		&entry.Payload,
		&statusCode,
		&responseBody,
		&errorMessage,
		&entry.DurationMs,
		&entry.AttemptNumber,
		&nextRetryAt,
		&entry.Success,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if statusCode.Valid {
		val := int(statusCode.Int64)
		entry.StatusCode = &val
	}
	if responseBody.Valid {
		entry.ResponseBody = responseBody.String
	}
	if errorMessage.Valid {
		val := errorMessage.String
		entry.ErrorMessage = &val
	}
	if nextRetryAt.Valid {
		val := nextRetryAt.Int64
		entry.NextRetryAt = &val
	}

	return &entry, nil
}
