// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package api

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds the attachment store ping.
const readinessTimeout = 2 * time.Second

// breakerStater is implemented by senders that expose circuit breaker state.
type breakerStater interface {
	State() string
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`
}

// ReadinessStatus is the readiness payload.
type ReadinessStatus struct {
	Ready            bool   `json:"ready"`
	AttachmentStore  string `json:"attachment_store"`
	PushConfigured   bool   `json:"push_configured"`
	PushBreakerState string `json:"push_breaker_state,omitempty"`
}

// Healthz reports that the process is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data: HealthStatus{
			Status: "alive",
			Uptime: time.Since(h.startTime).Seconds(),
		},
		Timestamp: time.Now(),
	})
}

// Readyz reports whether the attachment store is usable. A missing push
// configuration is reported but does not fail readiness.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := ReadinessStatus{
		Ready:           true,
		AttachmentStore: "ok",
		PushConfigured:  len(h.missingPushConfig()) == 0,
	}
	if err := h.attachments.Ping(ctx); err != nil {
		status.Ready = false
		status.AttachmentStore = err.Error()
	}
	if s, ok := h.sender.(breakerStater); ok {
		status.PushBreakerState = s.State()
	}

	code := http.StatusOK
	result := "success"
	if !status.Ready {
		code = http.StatusServiceUnavailable
		result = "error"
	}

	respondJSON(w, code, &APIResponse{
		Status:    result,
		Data:      status,
		Timestamp: time.Now(),
	})
}
