// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/plexntfy/internal/config"
)

// downStore is an AttachmentStore whose backend is unavailable.
type downStore struct{}

func (downStore) Store(context.Context, []byte) (string, error) {
	return "", errors.New("store closed")
}
func (downStore) Retrieve(context.Context, string) ([]byte, error) {
	return nil, errors.New("store closed")
}
func (downStore) TTL() time.Duration         { return time.Hour }
func (downStore) Ping(context.Context) error { return errors.New("store closed") }

// statefulSender reports a fixed breaker state.
type statefulSender struct{ recordingSender }

func (*statefulSender) State() string { return "half-open" }

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	resp := APIResponse{Data: data}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(testHandlerConfig(), &recordingSender{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status HealthStatus
	resp := decodeResponse(t, rec, &status)
	if resp.Status != "success" || status.Status != "alive" {
		t.Errorf("response = %+v, data = %+v", resp, status)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(testHandlerConfig(), newTestCache(), &statefulSender{}, nil)
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var status ReadinessStatus
		decodeResponse(t, rec, &status)
		if !status.Ready || !status.PushConfigured || status.PushBreakerState != "half-open" {
			t.Errorf("status = %+v", status)
		}
	})

	t.Run("store down", func(t *testing.T) {
		t.Parallel()
		cfg := testHandlerConfig()
		cfg.PushTopic = ""
		h := NewHandler(cfg, downStore{}, &recordingSender{}, nil)
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
		var status ReadinessStatus
		decodeResponse(t, rec, &status)
		if status.Ready || status.PushConfigured || status.AttachmentStore != "store closed" {
			t.Errorf("status = %+v", status)
		}
	})
}

func TestWebhook_StoreFailure(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	h := NewHandler(testHandlerConfig(), downStore{}, sender, nil)
	router := NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})).SetupChi()

	ct, body := multipartBody(t, alicePlayMovie, fakeJPEG)
	rec := postWebhook(t, router, "/", ct, body)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "error: ") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if sender.calls() != 0 {
		t.Error("push attempted after store failure")
	}
}

func TestThumbnail_BackendError(t *testing.T) {
	t.Parallel()

	h := NewHandler(testHandlerConfig(), downStore{}, &recordingSender{}, nil)
	router := NewRouter(h, nil).SetupChi()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thumb/00000000-0000-4000-8000-000000000000", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	mw := NewChiMiddleware(NewChiMiddlewareConfig(&config.SecurityConfig{
		RateLimitReqs:   2,
		RateLimitWindow: time.Minute,
	}))
	h := NewHandler(testHandlerConfig(), newTestCache(), &recordingSender{}, nil)
	router := NewRouter(h, mw).SetupChi()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thumb/missing", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNotFound || codes[1] != http.StatusNotFound || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [404 404 429]", codes)
	}

	// Probes bypass the limiter.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute, RateLimitDisabled: true})
	h := NewHandler(testHandlerConfig(), newTestCache(), &recordingSender{}, nil)
	router := NewRouter(h, mw).SetupChi()

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thumb/missing", nil))
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited with limiting disabled", i)
		}
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(testHandlerConfig(), &recordingSender{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "plexntfy_") {
		t.Error("metrics output has no plexntfy series")
	}
}

func TestNewHandlerConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Server:  config.ServerConfig{PublicURL: "https://relay.example.net"},
		Webhook: config.WebhookConfig{AllowedIdentity: "alice", Secret: "s", MaxBodyBytes: 4096},
		Push:    config.PushConfig{URL: "https://ntfy.sh", Topic: "plex"},
	}
	got := NewHandlerConfig(cfg)
	want := HandlerConfig{
		AllowedIdentity: "alice",
		WebhookSecret:   "s",
		MaxBodyBytes:    4096,
		PushURL:         "https://ntfy.sh",
		PushTopic:       "plex",
		PublicURL:       "https://relay.example.net",
	}
	if got != want {
		t.Errorf("NewHandlerConfig() = %+v, want %+v", got, want)
	}
}
