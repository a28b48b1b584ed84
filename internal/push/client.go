// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package push delivers notifications to an ntfy-style push service.
//
// A message is one JSON POST to the configured base URL:
//
//	{"topic":"plex","title":"Plex: Started","message":"Heat (1995)\nby alice","tags":["plex","started"]}
//
// Outbound calls pass through a token-bucket limiter and a circuit breaker.
// Nothing is retried; a failed send is reported to the caller once.
package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/plexntfy/internal/models"
)

// maxErrorBody bounds how much of an upstream error response is kept.
const maxErrorBody = 64 << 10

// UpstreamError is a non-2xx response from the push service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("push service returned %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	URL     string
	Timeout time.Duration

	// RatePerSecond limits outbound sends. Zero disables limiting.
	RatePerSecond float64
	Burst         int

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client posts PushMessages to one endpoint.
type Client struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		url:     opts.URL,
		client:  httpClient,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Send posts msg. token, when non-empty, is sent as a bearer credential.
// A non-2xx response returns *UpstreamError.
func (c *Client) Send(ctx context.Context, msg *models.PushMessage, token string) error {
	if c.url == "" {
		return errors.New("push URL is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push rate limit: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // drain for keep-alive
	return nil
}
