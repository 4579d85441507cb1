package webhooks

import (
	"errors"
	"fmt"
)

var (
	ErrWebhookNotFound = errors.New("webhook not found")
	ErrLogNotFound     = errors.New("delivery log not found")
	ErrEmptySecret     = errors.New("webhook secret is empty")
)

// ValidationError reports a rejected create/update field. Details carries
// per-entry information, e.g. the list of unknown event types.
type ValidationError struct {
	Field   string
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string, details ...string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Details: details}
}
