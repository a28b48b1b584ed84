// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/plexntfy/internal/logging"
	"github.com/tomtom215/plexntfy/internal/metrics"
	"github.com/tomtom215/plexntfy/internal/models"
	"github.com/tomtom215/plexntfy/internal/notify"
	"github.com/tomtom215/plexntfy/internal/push"
	"github.com/tomtom215/plexntfy/internal/webhook"
)

// Webhook outcomes, used as metric labels.
const (
	outcomeNotified         = "notified"
	outcomeFiltered         = "filtered"
	outcomeNoPayload        = "no_payload"
	outcomeUnauthorized     = "unauthorized"
	outcomeNotConfigured    = "not_configured"
	outcomeUpstreamRejected = "upstream_rejected"
	outcomeError            = "error"
)

// webhookTokenHeader carries the shared secret when the query string cannot.
const webhookTokenHeader = "X-Webhook-Token"

// Webhook handles a Plex webhook POST.
//
// Responses:
//   - 200 "ok": notification sent
//   - 204: payload accepted but the account is filtered out
//   - 400 "no payload": body had no decodable payload
//   - 401 "unauthorized": shared secret missing or wrong
//   - 500 "error: ...": push not configured, or an unexpected failure
//   - 502 "push failed: <status> <body>": push service rejected the message
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.Ctx(ctx)

	if !h.authorized(r) {
		metrics.RecordWebhookOutcome(outcomeUnauthorized)
		log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Webhook rejected: bad or missing token")
		respondText(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	record, thumb := webhook.Decode(r.Header.Get("Content-Type"), r.Body, h.cfg.MaxBodyBytes)
	if record == nil {
		metrics.RecordWebhookOutcome(outcomeNoPayload)
		log.Debug().Str("content_type", logging.SanitizeValue(r.Header.Get("Content-Type"))).Msg("Webhook without payload")
		respondText(w, http.StatusBadRequest, "no payload")
		return
	}
	metrics.RecordWebhookKind(string(record.Kind))

	if !webhook.Allowed(h.cfg.AllowedIdentity, record.AccountName) {
		metrics.RecordWebhookOutcome(outcomeFiltered)
		log.Debug().
			Str("account", logging.SanitizeValue(record.AccountName)).
			Str("event", logging.SanitizeValue(record.RawEvent)).
			Msg("Webhook ignored for account")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if missing := h.missingPushConfig(); len(missing) > 0 {
		metrics.RecordWebhookOutcome(outcomeNotConfigured)
		log.Error().Strs("missing", missing).Msg("Push service not configured")
		respondText(w, http.StatusInternalServerError,
			fmt.Sprintf("error: push service not configured (missing %s)", strings.Join(missing, ", ")))
		return
	}

	notification := notify.Format(record)

	var attachURL string
	if len(thumb) > 0 {
		id, err := h.attachments.Store(ctx, thumb)
		if err != nil {
			metrics.RecordWebhookOutcome(outcomeError)
			log.Error().Err(err).Int("bytes", len(thumb)).Msg("Failed to store thumbnail")
			respondText(w, http.StatusInternalServerError, "error: "+err.Error())
			return
		}
		attachURL = h.attachmentURL(r, id)
	}

	msg := models.NewPushMessage(h.cfg.PushTopic, notification, attachURL)
	err := h.sender.Send(ctx, &msg, h.credential(ctx))

	var upstream *push.UpstreamError
	switch {
	case errors.As(err, &upstream):
		metrics.RecordWebhookOutcome(outcomeUpstreamRejected)
		log.Warn().Int("upstream_status", upstream.StatusCode).Str("upstream_body", logging.SanitizeValue(upstream.Body)).Msg("Push service rejected notification")
		respondText(w, http.StatusBadGateway, fmt.Sprintf("push failed: %d %s", upstream.StatusCode, upstream.Body))
		return
	case err != nil:
		metrics.RecordWebhookOutcome(outcomeError)
		log.Error().Err(err).Msg("Push send failed")
		respondText(w, http.StatusInternalServerError, "error: "+err.Error())
		return
	}

	metrics.RecordWebhookOutcome(outcomeNotified)
	log.Info().
		Str("event", logging.SanitizeValue(record.RawEvent)).
		Str("account", logging.SanitizeValue(record.AccountName)).
		Bool("attachment", attachURL != "").
		Msg("Notification sent")
	respondText(w, http.StatusOK, "ok")
}

// authorized checks the optional shared secret from ?token= or the
// X-Webhook-Token header.
func (h *Handler) authorized(r *http.Request) bool {
	if h.cfg.WebhookSecret == "" {
		return true
	}
	supplied := r.URL.Query().Get("token")
	if supplied == "" {
		supplied = r.Header.Get(webhookTokenHeader)
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(h.cfg.WebhookSecret)) == 1
}

func (h *Handler) missingPushConfig() []string {
	var missing []string
	if strings.TrimSpace(h.cfg.PushURL) == "" {
		missing = append(missing, "NTFY_URL")
	}
	if strings.TrimSpace(h.cfg.PushTopic) == "" {
		missing = append(missing, "NTFY_TOPIC")
	}
	return missing
}

// credential returns the bearer token, or "" when none is configured or
// retrieval fails. Failures fall back to an unauthenticated send.
func (h *Handler) credential(ctx context.Context) string {
	if h.credentials == nil {
		return ""
	}
	token, err := h.credentials.RetrieveCredential(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Push credential unavailable, sending without authorization")
		return ""
	}
	return token
}

// attachmentURL builds the absolute thumbnail link for id.
func (h *Handler) attachmentURL(r *http.Request, id string) string {
	return publicBaseURL(r, h.cfg.PublicURL) + "/thumb/" + id
}

// publicBaseURL prefers the configured base, then forwarded headers set by a
// reverse proxy, then the request itself.
func publicBaseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		scheme = proto
	}

	host := r.Host
	if fwd := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}

	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
