// Package alert posts blocked-action and job-failure notifications to
// configured webhooks.
package alert

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

const (
	postTimeout  = 5 * time.Second
	sendAttempts = 3
	retryStep    = 500 * time.Millisecond
)

var httpClient = &http.Client{Timeout: postTimeout}

// Send posts an alert event to a webhook endpoint. Server-side errors
// are retried with a linear backoff; client-side rejections are not.
func Send(cfg AlertConfig, event AlertEvent) error {
	body, err := FormatPayload(cfg.Format, event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		retry, err := post(cfg, body)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
		if attempt < sendAttempts {
			time.Sleep(time.Duration(attempt) * retryStep)
		}
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", sendAttempts, lastErr)
}

// post performs one delivery attempt. The bool reports whether the
// failure is worth retrying: transport errors and 5xx are, 4xx is not.
func post(cfg AlertConfig, body []byte) (bool, error) {
	req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return true, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, fmt.Errorf("webhook rejected: HTTP %d", resp.StatusCode)
	default:
		return true, fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	}
}
