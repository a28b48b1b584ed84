// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/plexntfy/config.yaml",
	"/etc/plexntfy/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultAttachmentTTL is how long a thumbnail stays retrievable.
const DefaultAttachmentTTL = 3 * time.Hour

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Webhook: WebhookConfig{
			MaxBodyBytes: 16 << 20,
		},
		Push: PushConfig{
			Timeout:            10 * time.Second,
			RateLimitPerSecond: 5,
			RateLimitBurst:     10,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Attachment: AttachmentConfig{
			Backend:    "badger",
			Path:       "/data/attachments",
			InMemory:   false,
			TTL:        DefaultAttachmentTTL,
			GCInterval: 10 * time.Minute,
		},
		Security: SecurityConfig{
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads and validates configuration.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
// Values already loaded as slices from YAML are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"public_url":   "server.public_url",
	"environment":  "server.environment",

	// Webhook
	"plex_user":              "webhook.allowed_identity",
	"webhook_secret":         "webhook.secret",
	"webhook_max_body_bytes": "webhook.max_body_bytes",

	// Push
	"ntfy_url":              "push.url",
	"ntfy_topic":            "push.topic",
	"ntfy_token":            "push.token",
	"ntfy_token_file":       "push.token_file",
	"ntfy_token_encrypted":  "push.token_encrypted",
	"ntfy_encryption_key":   "push.encryption_key",
	"ntfy_timeout":          "push.timeout",
	"ntfy_rate_limit":       "push.rate_limit_per_second",
	"ntfy_rate_burst":       "push.rate_limit_burst",
	"ntfy_breaker_failures": "push.breaker_max_failures",
	"ntfy_breaker_timeout":  "push.breaker_timeout",

	// Attachment
	"attachment_backend":     "attachment.backend",
	"attachment_path":        "attachment.path",
	"attachment_in_memory":   "attachment.in_memory",
	"attachment_ttl":         "attachment.ttl",
	"attachment_gc_interval": "attachment.gc_interval",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped, so unrelated environment
// does not leak into the configuration.
//
//	NTFY_TOPIC -> push.topic
//	PLEX_USER  -> webhook.allowed_identity
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
