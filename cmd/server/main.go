// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package main is the entry point for the plexntfy relay.
//
// plexntfy receives Plex media server webhooks, formats them into short
// notifications and forwards them to an ntfy-compatible push service.
// Thumbnails sent by Plex are cached for a few hours and served back at
// /thumb/{id} so the push service can attach them.
//
// # Startup
//
//  1. Configuration: defaults, optional config.yaml, environment (Koanf v2)
//  2. Logging: zerolog, JSON or console
//  3. Attachment store: BadgerDB (on disk or in memory) or a plain map
//  4. Push client: rate limited, behind a circuit breaker
//  5. HTTP server and attachment maintenance, run under a supervisor tree
//
// # Configuration
//
// The common settings are environment variables:
//
//	NTFY_URL=https://ntfy.sh          push service base URL
//	NTFY_TOPIC=plex                   topic to publish to
//	NTFY_TOKEN=tk_...                 optional bearer token
//	PLEX_USER=alice                   only notify for this Plex account
//	PUBLIC_URL=https://relay.example  base URL used in attachment links
//
// Point Plex at http://<host>:8080/ under Settings > Webhooks.
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the supervisor tree, which shuts the HTTP server
// down gracefully and closes the attachment store.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/plexntfy/internal/api"
	"github.com/tomtom215/plexntfy/internal/attachment"
	"github.com/tomtom215/plexntfy/internal/config"
	"github.com/tomtom215/plexntfy/internal/logging"
	"github.com/tomtom215/plexntfy/internal/push"
	"github.com/tomtom215/plexntfy/internal/supervisor"
	"github.com/tomtom215/plexntfy/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("attachment_backend", cfg.Attachment.Backend).
		Bool("identity_filter", cfg.Webhook.AllowedIdentity != "").
		Bool("webhook_secret", cfg.Webhook.Secret != "").
		Msg("Configuration loaded")

	if !cfg.Push.Configured() {
		logging.Warn().Msg("NTFY_URL or NTFY_TOPIC is not set; webhooks will be answered with an error until configured")
	}

	cache, err := attachment.Open(&cfg.Attachment)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open attachment store")
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing attachment store")
		}
	}()

	credentials, err := config.NewCredentialProvider(&cfg.Push)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure push credentials")
	}

	sender := newSender(&cfg.Push)
	handler := api.NewHandler(api.NewHandlerConfig(cfg), cache, sender, credentials)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(&cfg.Security)))

	server := newHTTPServer(&cfg.Server, router.SetupChi())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	tree.AddStorageService(services.NewAttachmentMaintenanceService(cache, cfg.Attachment.GCInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Stopped")
}

// newSender builds the push client chain: rate limiter, then breaker.
func newSender(cfg *config.PushConfig) *push.CircuitBreakerClient {
	client := push.NewClient(push.Options{
		URL:           cfg.URL,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RateLimitPerSecond,
		Burst:         cfg.RateLimitBurst,
	})
	return push.NewCircuitBreakerClient(client, push.BreakerSettings{
		Name:        "ntfy",
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerTimeout,
	})
}

func newHTTPServer(cfg *config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Timeout,
		WriteTimeout:      cfg.Timeout,
		IdleTimeout:       2 * cfg.Timeout,
	}
}
