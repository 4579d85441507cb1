package models

// Webhook is a workspace-scoped subscription to domain events. The secret is
// returned exactly once at creation time and never serialized afterwards.
type Webhook struct {
	ID              string   `json:"id"`
	WorkspaceID     string   `json:"workspace_id"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Secret          string   `json:"-"`
	Description     string   `json:"description,omitempty"`
	Events          []string `json:"events"` // JSON array in DB
	VerifySSL       bool     `json:"verify_ssl"`
	Active          bool     `json:"active"`
	SuccessCount    int64    `json:"success_count"`
	FailureCount    int64    `json:"failure_count"`
	LastTriggeredAt *int64   `json:"last_triggered_at,omitempty"`
	CreatedBy       string   `json:"created_by"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

func (w *Webhook) SubscribedTo(eventType string) bool {
	for _, e := range w.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Envelope is the wire payload POSTed to a webhook URL. Timestamp is RFC 3339.
type Envelope struct {
	Event     string      `json:"event"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}
