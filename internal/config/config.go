// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package config loads relay configuration with koanf.
//
// Sources are layered, later sources overriding earlier ones:
//  1. Struct defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/plexntfy/config.yaml)
//  3. Environment variables mapped through envTransformFunc
//
// The push URL and topic are intentionally optional at startup. A relay
// started without them answers webhooks with 500 until it is reconfigured,
// which keeps a misconfigured deployment visible in Plex's webhook log
// instead of crash-looping.
package config

import "time"

// Config is the complete relay configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Webhook    WebhookConfig    `koanf:"webhook"`
	Push       PushConfig       `koanf:"push"`
	Attachment AttachmentConfig `koanf:"attachment"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// PublicURL is the externally reachable base used in attachment links,
	// e.g. https://relay.example.com. When empty the request origin is used.
	PublicURL string `koanf:"public_url"`

	Environment string `koanf:"environment" validate:"oneof=development staging production"`
}

// WebhookConfig controls what the ingest endpoint accepts.
type WebhookConfig struct {
	// AllowedIdentity is the only Plex account whose events are relayed.
	// Empty relays every account.
	AllowedIdentity string `koanf:"allowed_identity"`

	// Secret, when set, must be supplied as ?token= or X-Webhook-Token.
	Secret string `koanf:"secret"`

	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gte=1024"`
}

// PushConfig describes the ntfy-style push endpoint.
type PushConfig struct {
	URL   string `koanf:"url"`
	Topic string `koanf:"topic"`

	// Credential sources, tried in order: TokenFile, TokenEncrypted, Token.
	Token          string `koanf:"token"`
	TokenFile      string `koanf:"token_file"`
	TokenEncrypted string `koanf:"token_encrypted"`
	EncryptionKey  string `koanf:"encryption_key"`

	Timeout            time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimitPerSecond float64       `koanf:"rate_limit_per_second" validate:"gte=0"`
	RateLimitBurst     int           `koanf:"rate_limit_burst" validate:"gte=1"`

	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"gte=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// Configured reports whether both URL and topic are set.
func (p *PushConfig) Configured() bool {
	return p.URL != "" && p.Topic != ""
}

// AttachmentConfig controls the thumbnail store.
type AttachmentConfig struct {
	Backend    string        `koanf:"backend" validate:"oneof=badger memory"`
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	TTL        time.Duration `koanf:"ttl" validate:"gte=1s"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
}

// SecurityConfig holds inbound rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
