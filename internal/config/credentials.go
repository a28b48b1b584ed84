// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// CredentialProvider yields the bearer token for the push service.
// An empty string with a nil error means no credential is configured.
type CredentialProvider interface {
	RetrieveCredential(ctx context.Context) (string, error)
}

// StaticCredential is a plaintext token taken directly from configuration.
type StaticCredential string

// RetrieveCredential returns the token unchanged.
func (s StaticCredential) RetrieveCredential(context.Context) (string, error) {
	return string(s), nil
}

// FileCredential reads the token from a mounted secret file on every call,
// so a rotated secret is picked up without a restart.
type FileCredential struct {
	Path string
}

// RetrieveCredential reads and trims the file contents.
func (f FileCredential) RetrieveCredential(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read token file %s: %w", f.Path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// EncryptedCredential decrypts a sealed token with a CredentialEncryptor.
type EncryptedCredential struct {
	Ciphertext string
	Encryptor  *CredentialEncryptor
}

// RetrieveCredential decrypts the stored ciphertext.
func (e EncryptedCredential) RetrieveCredential(context.Context) (string, error) {
	token, err := e.Encryptor.Decrypt(e.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt push token: %w", err)
	}
	return token, nil
}

// CredentialChain returns the first non-empty credential. Provider errors do
// not stop the chain; they are returned joined only when no provider yields
// a credential.
type CredentialChain []CredentialProvider

// RetrieveCredential walks the chain in order.
func (c CredentialChain) RetrieveCredential(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c {
		token, err := p.RetrieveCredential(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if token != "" {
			return token, nil
		}
	}
	return "", errors.Join(errs...)
}

// NewCredentialProvider builds the chain for cfg: secret file, then
// encrypted token, then plaintext token.
func NewCredentialProvider(cfg *PushConfig) (CredentialProvider, error) {
	var chain CredentialChain

	if cfg.TokenFile != "" {
		chain = append(chain, FileCredential{Path: cfg.TokenFile})
	}

	if cfg.TokenEncrypted != "" {
		enc, err := NewCredentialEncryptor(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("push token encryption: %w", err)
		}
		chain = append(chain, EncryptedCredential{Ciphertext: cfg.TokenEncrypted, Encryptor: enc})
	}

	if cfg.Token != "" {
		chain = append(chain, StaticCredential(cfg.Token))
	}

	return chain, nil
}
