// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/plexntfy/internal/attachment"
	"github.com/tomtom215/plexntfy/internal/config"
	"github.com/tomtom215/plexntfy/internal/models"
	"github.com/tomtom215/plexntfy/internal/push"
)

const alicePlayMovie = `{"event":"media.play","Account":{"title":"alice"},"Metadata":{"type":"movie","title":"Dune","year":2021}}`

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

// recordingSender captures outbound messages instead of sending them.
type recordingSender struct {
	mu     sync.Mutex
	msgs   []models.PushMessage
	tokens []string
	err    error
}

func (s *recordingSender) Send(_ context.Context, msg *models.PushMessage, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, *msg)
	s.tokens = append(s.tokens, token)
	return s.err
}

func (s *recordingSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type failingCredential struct{}

func (failingCredential) RetrieveCredential(context.Context) (string, error) {
	return "", errors.New("secret mount unreadable")
}

func testHandlerConfig() HandlerConfig {
	return HandlerConfig{
		AllowedIdentity: "alice",
		MaxBodyBytes:    1 << 20,
		PushURL:         "https://ntfy.example.com",
		PushTopic:       "plex",
	}
}

func newTestCache() *attachment.Cache {
	return attachment.New(attachment.NewMemoryStore(), config.DefaultAttachmentTTL)
}

func newTestRouter(cfg HandlerConfig, sender push.Sender, creds config.CredentialProvider) (http.Handler, *attachment.Cache) {
	cache := newTestCache()
	h := NewHandler(cfg, cache, sender, creds)
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{http.MethodGet},
		RateLimitDisabled:  true,
	})
	return NewRouter(h, mw).SetupChi(), cache
}

func multipartBody(t *testing.T, payload string, thumb []byte) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if payload != "" {
		if err := mw.WriteField("payload", payload); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if thumb != nil {
		part, err := mw.CreateFormFile("thumb", "thumb.jpg")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(thumb); err != nil {
			t.Fatalf("write thumb: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return mw.FormDataContentType(), &buf
}

func postWebhook(t *testing.T, router http.Handler, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_EndToEndWithThumbnail(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received models.PushMessage
		auth     string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := testHandlerConfig()
	cfg.PushURL = upstream.URL
	sender := push.NewClient(push.Options{URL: upstream.URL, Timeout: 5 * time.Second})
	router, _ := newTestRouter(cfg, sender, config.StaticCredential("tk_secret"))

	ct, body := multipartBody(t, alicePlayMovie, fakeJPEG)
	rec := postWebhook(t, router, "/", ct, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}

	mu.Lock()
	msg, gotAuth := received, auth
	mu.Unlock()

	if gotAuth != "Bearer tk_secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if msg.Topic != "plex" {
		t.Errorf("topic = %q", msg.Topic)
	}
	if msg.Title != "Plex: Started" {
		t.Errorf("title = %q", msg.Title)
	}
	if !strings.HasPrefix(msg.Message, "Dune (2021)\nby alice") {
		t.Errorf("message = %q", msg.Message)
	}
	if len(msg.Tags) != 2 || msg.Tags[0] != "plex" || msg.Tags[1] != "started" {
		t.Errorf("tags = %v", msg.Tags)
	}
	if msg.Attach == "" {
		t.Fatal("attach missing")
	}

	attachURL, err := url.Parse(msg.Attach)
	if err != nil {
		t.Fatalf("attach URL: %v", err)
	}
	if attachURL.Host != "example.com" || !strings.HasPrefix(attachURL.Path, "/thumb/") {
		t.Errorf("attach = %q", msg.Attach)
	}

	req := httptest.NewRequest(http.MethodGet, attachURL.Path, nil)
	thumbRec := httptest.NewRecorder()
	router.ServeHTTP(thumbRec, req)

	if thumbRec.Code != http.StatusOK {
		t.Fatalf("thumb status = %d", thumbRec.Code)
	}
	if !bytes.Equal(thumbRec.Body.Bytes(), fakeJPEG) {
		t.Error("thumbnail bytes differ from upload")
	}
	if ct := thumbRec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := thumbRec.Header().Get("Cache-Control"); cc != "public, max-age=10800" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestWebhook_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        func(*HandlerConfig)
		body       func(t *testing.T) (string, io.Reader)
		sendErr    error
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{
			name: "filtered account",
			cfg:  func(c *HandlerConfig) { c.AllowedIdentity = "bob" },
			body: func(t *testing.T) (string, io.Reader) {
				return multipartBody(t, alicePlayMovie, fakeJPEG)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "malformed payload",
			body: func(t *testing.T) (string, io.Reader) {
				return multipartBody(t, `{"event":`, fakeJPEG)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "no payload",
		},
		{
			name: "multipart without payload part",
			body: func(t *testing.T) (string, io.Reader) {
				return multipartBody(t, "", fakeJPEG)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "no payload",
		},
		{
			name: "push URL unset",
			cfg:  func(c *HandlerConfig) { c.PushURL = "" },
			body: func(t *testing.T) (string, io.Reader) {
				return multipartBody(t, alicePlayMovie, fakeJPEG)
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "error: push service not configured (missing NTFY_URL)",
		},
		{
			name: "push URL and topic unset",
			cfg: func(c *HandlerConfig) {
				c.PushURL = ""
				c.PushTopic = " "
			},
			body: func(t *testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(alicePlayMovie)
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "error: push service not configured (missing NTFY_URL, NTFY_TOPIC)",
		},
		{
			name: "upstream rejects",
			body: func(t *testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(alicePlayMovie)
			},
			sendErr:    &push.UpstreamError{StatusCode: http.StatusForbidden, Body: "forbidden"},
			wantStatus: http.StatusBadGateway,
			wantBody:   "push failed: 403 forbidden",
			wantCalls:  1,
		},
		{
			name: "transport failure",
			body: func(t *testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(alicePlayMovie)
			},
			sendErr:    errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "error: connection refused",
			wantCalls:  1,
		},
		{
			name: "open breaker",
			body: func(t *testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(alicePlayMovie)
			},
			sendErr:    errors.Join(push.ErrCircuitOpen, errors.New("circuit breaker is open")),
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
		{
			name: "no allowed identity accepts anyone",
			cfg:  func(c *HandlerConfig) { c.AllowedIdentity = "" },
			body: func(t *testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(alicePlayMovie)
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testHandlerConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			sender := &recordingSender{err: tt.sendErr}
			router, _ := newTestRouter(cfg, sender, nil)

			ct, body := tt.body(t)
			rec := postWebhook(t, router, "/", ct, body)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if got := sender.calls(); got != tt.wantCalls {
				t.Errorf("send calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestWebhook_RawJSONHasNoAttachment(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	router, _ := newTestRouter(testHandlerConfig(), sender, nil)

	rec := postWebhook(t, router, "/plex/hook", "application/json", strings.NewReader(alicePlayMovie))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sender.msgs[0].Attach != "" {
		t.Errorf("attach = %q, want empty", sender.msgs[0].Attach)
	}
	if sender.tokens[0] != "" {
		t.Errorf("token = %q, want empty", sender.tokens[0])
	}
}

func TestWebhook_CredentialFailureSendsUnauthenticated(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	router, _ := newTestRouter(testHandlerConfig(), sender, failingCredential{})

	rec := postWebhook(t, router, "/", "application/json", strings.NewReader(alicePlayMovie))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sender.tokens[0] != "" {
		t.Errorf("token = %q, want empty", sender.tokens[0])
	}
}

func TestWebhook_SharedSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
	}{
		{"missing", "/", "", http.StatusUnauthorized},
		{"wrong query", "/?token=nope", "", http.StatusUnauthorized},
		{"query", "/?token=s3cret", "", http.StatusOK},
		{"header", "/", "s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testHandlerConfig()
			cfg.WebhookSecret = "s3cret"
			sender := &recordingSender{}
			router, _ := newTestRouter(cfg, sender, nil)

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(alicePlayMovie))
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set(webhookTokenHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && sender.calls() != 0 {
				t.Error("unauthorized request reached the push service")
			}
		})
	}
}

func TestWebhook_PublicURLOverride(t *testing.T) {
	t.Parallel()

	cfg := testHandlerConfig()
	cfg.PublicURL = "https://relay.example.net/"
	sender := &recordingSender{}
	router, _ := newTestRouter(cfg, sender, nil)

	ct, body := multipartBody(t, alicePlayMovie, fakeJPEG)
	rec := postWebhook(t, router, "/", ct, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := sender.msgs[0].Attach; !strings.HasPrefix(got, "https://relay.example.net/thumb/") {
		t.Errorf("attach = %q", got)
	}
}

func TestPublicBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured string
		headers    map[string]string
		want       string
	}{
		{"request host", "", nil, "http://example.com"},
		{"configured", "https://relay.example.net", nil, "https://relay.example.net"},
		{"forwarded proto", "", map[string]string{"X-Forwarded-Proto": "https"}, "https://example.com"},
		{"forwarded host", "", map[string]string{"X-Forwarded-Proto": "https, http", "X-Forwarded-Host": "plex.example.org"}, "https://plex.example.org"},
		{"bogus proto ignored", "", map[string]string{"X-Forwarded-Proto": "gopher"}, "http://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := publicBaseURL(req, tt.configured); got != tt.want {
				t.Errorf("publicBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestThumbnail(t *testing.T) {
	t.Parallel()

	router, cache := newTestRouter(testHandlerConfig(), &recordingSender{}, nil)
	id, err := cache.Store(context.Background(), fakeJPEG)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/thumb/" + id, http.StatusOK},
		{"/thumb/", http.StatusBadRequest},
		{"/thumb", http.StatusBadRequest},
		{"/thumb/00000000-0000-4000-8000-000000000000", http.StatusNotFound},
		{"/thumb/not-a-uuid", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestWebhook_AnyPostPath(t *testing.T) {
	t.Parallel()

	paths := []string{"/", "/plex", "/plex/hook", "/thumb", "/thumb/abc"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			sender := &recordingSender{}
			router, _ := newTestRouter(testHandlerConfig(), sender, nil)

			rec := postWebhook(t, router, path, "application/json", strings.NewReader(alicePlayMovie))
			if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
				t.Errorf("POST %s = %d %q, want 200 ok", path, rec.Code, rec.Body.String())
			}
			if sender.calls() != 1 {
				t.Errorf("POST %s send calls = %d, want 1", path, sender.calls())
			}
		})
	}
}
