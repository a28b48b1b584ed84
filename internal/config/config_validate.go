// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package config

import (
	"fmt"
	"net/url"

	"github.com/tomtom215/plexntfy/internal/logging"
	"github.com/tomtom215/plexntfy/internal/validation"
)

// Validate checks struct rules first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validatePush(); err != nil {
		return err
	}

	if err := c.validateAttachment(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.PublicURL == "" {
		return nil
	}
	if err := validateHTTPURL(c.Server.PublicURL, "PUBLIC_URL", true); err != nil {
		return err
	}
	if c.Server.Environment == "production" {
		u, _ := url.Parse(c.Server.PublicURL) //nolint:errcheck // parsed above
		if u.Scheme != "https" {
			return fmt.Errorf("PUBLIC_URL must use https when ENVIRONMENT=production")
		}
	}
	return nil
}

// validatePush only checks what is present. A missing URL or topic is a
// runtime condition reported per request, not a startup failure.
func (c *Config) validatePush() error {
	if c.Push.URL != "" {
		if err := validateHTTPURL(c.Push.URL, "NTFY_URL", true); err != nil {
			return err
		}
	}
	if c.Push.TokenEncrypted != "" && c.Push.EncryptionKey == "" {
		return fmt.Errorf("NTFY_ENCRYPTION_KEY is required when NTFY_TOKEN_ENCRYPTED is set")
	}
	return nil
}

func (c *Config) validateAttachment() error {
	if c.Attachment.Backend == "badger" && !c.Attachment.InMemory && c.Attachment.Path == "" {
		return fmt.Errorf("ATTACHMENT_PATH is required for the badger backend unless ATTACHMENT_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a recognised level", c.Logging.Level)
	}
	return nil
}

// validateHTTPURL requires an http(s) scheme and a host. Query strings are
// rejected; paths are allowed only when allowPath is true.
func validateHTTPURL(rawURL, fieldName string, allowPath bool) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if !allowPath && parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}
