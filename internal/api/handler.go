// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package api exposes the relay's HTTP surface: the webhook ingest
// endpoint, the thumbnail read endpoint and the health and metrics probes.
package api

import (
	"context"
	"time"

	"github.com/tomtom215/plexntfy/internal/config"
	"github.com/tomtom215/plexntfy/internal/push"
)

// AttachmentStore is the thumbnail cache used by the handlers.
type AttachmentStore interface {
	Store(ctx context.Context, data []byte) (string, error)
	Retrieve(ctx context.Context, id string) ([]byte, error)
	TTL() time.Duration
	Ping(ctx context.Context) error
}

// HandlerConfig is the subset of configuration the handlers consult.
type HandlerConfig struct {
	AllowedIdentity string
	WebhookSecret   string
	MaxBodyBytes    int64

	PushURL   string
	PushTopic string

	// PublicURL overrides the request origin in attachment links.
	PublicURL string
}

// NewHandlerConfig extracts handler settings from the full configuration.
func NewHandlerConfig(cfg *config.Config) HandlerConfig {
	return HandlerConfig{
		AllowedIdentity: cfg.Webhook.AllowedIdentity,
		WebhookSecret:   cfg.Webhook.Secret,
		MaxBodyBytes:    cfg.Webhook.MaxBodyBytes,
		PushURL:         cfg.Push.URL,
		PushTopic:       cfg.Push.Topic,
		PublicURL:       cfg.Server.PublicURL,
	}
}

// Handler holds the dependencies shared by every endpoint. It keeps no
// per-request state.
type Handler struct {
	cfg         HandlerConfig
	attachments AttachmentStore
	sender      push.Sender
	credentials config.CredentialProvider
	startTime   time.Time
}

// NewHandler creates a Handler. credentials may be nil.
func NewHandler(cfg HandlerConfig, attachments AttachmentStore, sender push.Sender, credentials config.CredentialProvider) *Handler {
	return &Handler{
		cfg:         cfg,
		attachments: attachments,
		sender:      sender,
		credentials: credentials,
		startTime:   time.Now(),
	}
}
