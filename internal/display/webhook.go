package display

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WebhookSink POSTs {"text": ...} to a board endpoint.
type WebhookSink struct {
	url        string
	header     string
	token      string
	client     *http.Client
	maxElapsed time.Duration
	initial    time.Duration
}

type webhookPayload struct {
	Text      string `json:"text"`
	StationID string `json:"station_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Category  string `json:"category,omitempty"`
}

// NewWebhookSink returns a sink posting to url. When token is set it is sent
// in the header named header. maxElapsed bounds retries of one write.
func NewWebhookSink(url, header, token string, client *http.Client, maxElapsed time.Duration) *WebhookSink {
	return &WebhookSink{
		url:        url,
		header:     header,
		token:      token,
		client:     client,
		maxElapsed: maxElapsed,
		initial:    backoff.DefaultInitialInterval,
	}
}

func (s *WebhookSink) Write(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Text:      msg.Text,
		StationID: msg.StationID,
		Kind:      string(msg.Kind),
		Category:  string(msg.Category),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if s.token != "" && s.header != "" {
			req.Header.Set(s.header, s.token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("post webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("post webhook: status %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("post webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(b)))
		}
		return nil
	}

	if s.maxElapsed <= 0 {
		return backoff.Retry(operation, backoff.WithContext(&backoff.StopBackOff{}, ctx))
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initial
	bo.MaxElapsedTime = s.maxElapsed
	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}
