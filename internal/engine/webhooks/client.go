package webhooks

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultDeliveryTimeout bounds a single POST attempt end to end.
	DefaultDeliveryTimeout = 30 * time.Second

	// maxResponseBytes caps the captured response body so log rows stay
	// bounded.
	maxResponseBytes = 10000

	userAgent = "Hookline-Webhooks/1.0"
)

// DeliveryOutcome is what one HTTP attempt produced. StatusCode is nil on
// network or timeout failures.
type DeliveryOutcome struct {
	StatusCode   *int
	ResponseBody string
	DurationMs   int64
	ErrorMessage *string
	Success      bool
}

// Client performs single delivery attempts. It keeps two underlying HTTP
// clients so that verify_ssl=false relaxes certificate checks for that
// webhook only, never globally.
type Client struct {
	timeout   time.Duration
	verifying *http.Client
	insecure  *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}

	return &Client{
		timeout:   timeout,
		verifying: &http.Client{Timeout: timeout},
		insecure: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Deliver issues one POST and never retries on its own. It has no side
// effects beyond the outbound call; persistence is the caller's concern.
func (c *Client) Deliver(ctx context.Context, url string, body []byte, signature, eventType, webhookID string, verifySSL bool) DeliveryOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		msg := err.Error()
		return DeliveryOutcome{ErrorMessage: &msg}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event", eventType)
	req.Header.Set("X-Webhook-ID", webhookID)
	req.Header.Set("User-Agent", userAgent)

	httpClient := c.verifying
	if !verifySSL {
		httpClient = c.insecure
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		msg := err.Error()
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("delivery timed out after %s", c.timeout)
		}
		return DeliveryOutcome{DurationMs: durationMs, ErrorMessage: &msg}
	}
	defer resp.Body.Close()

	captured, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	responseBody := string(captured)
	code := resp.StatusCode

	if code >= 200 && code <= 299 {
		return DeliveryOutcome{
			StatusCode:   &code,
			ResponseBody: responseBody,
			DurationMs:   durationMs,
			Success:      true,
		}
	}

	msg := fmt.Sprintf("HTTP %d: %s", code, responseBody)
	return DeliveryOutcome{
		StatusCode:   &code,
		ResponseBody: responseBody,
		DurationMs:   durationMs,
		ErrorMessage: &msg,
	}
}
