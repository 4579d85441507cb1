package models

// DeliveryLog records one delivery attempt. Retries of the same logical
// delivery reuse the row and bump AttemptNumber instead of appending.
type DeliveryLog struct {
	ID            string  `json:"id"`
	WebhookID     string  `json:"webhook_id"`
	EventType     string  `json:"event_type"`
	Payload       string  `json:"payload"` // envelope JSON as sent
	StatusCode    *int    `json:"status_code,omitempty"`
	ResponseBody  string  `json:"response_body,omitempty"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	DurationMs    int64   `json:"duration_ms"`
	AttemptNumber int     `json:"attempt_number"`
	NextRetryAt   *int64  `json:"next_retry_at,omitempty"`
	Success       bool    `json:"success"`
	CreatedAt     int64   `json:"created_at"`
}
