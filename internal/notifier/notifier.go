// Package notifier posts habit reminders to a webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
)

var ErrNoEndpoint = errors.New("no reminder webhook configured")

type WebhookPayload struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

type Notifier struct {
	url    string
	secret string
	client *http.Client
	// retryDelay is the wait before the first retry; it doubles each attempt.
	retryDelay time.Duration
}

// New returns a Notifier posting to endpoint. secret, when non-empty, is sent
// in the X-Habitual-Secret header.
func New(endpoint, secret string) (*Notifier, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook URL %q", endpoint)
	}
	return &Notifier{
		url:        endpoint,
		secret:     secret,
		client:     &http.Client{Timeout: 5 * time.Second},
		retryDelay: 100 * time.Millisecond,
	}, nil
}

// Notify sends text, retrying transport errors and 5xx responses.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(WebhookPayload{
		Text:       text,
		DurationMs: constants.NotificationDurationMs,
	})
	if err != nil {
		return err
	}

	delay := n.retryDelay
	var lastErr error
	for attempt := 1; attempt <= constants.NotifyMaxRetries; attempt++ {
		retry, err := n.send(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == constants.NotifyMaxRetries {
			break
		}
		logger.Debug("Reminder webhook failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

// send posts body once and reports whether a failure is worth retrying.
func (n *Notifier) send(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(constants.NotifySecretHeader, n.secret)
	}

	res, err := n.client.Do(req)
	if err != nil {
		return true, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return false, nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return res.StatusCode >= 500, fmt.Errorf("notification failed with status %d: %s", res.StatusCode, bytes.TrimSpace(msg))
}
