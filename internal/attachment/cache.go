// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package attachment parks webhook thumbnails under unguessable ids for a
// fixed lifetime so the push service can fetch them by URL.
//
// Expiry belongs to the backend: BadgerStore uses badger's per-entry TTL,
// MemoryStore checks deadlines on read and sweeps periodically. Retrieve
// never returns bytes after the deadline, and an expired id is
// indistinguishable from one that never existed.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/plexntfy/internal/metrics"
)

// KeyPrefix namespaces thumbnail keys in the backend.
const KeyPrefix = "thumb:"

var (
	// ErrNotFound is returned for unknown and expired ids alike.
	ErrNotFound = errors.New("attachment not found")

	// ErrEmpty is returned when storing zero bytes.
	ErrEmpty = errors.New("attachment is empty")
)

// Backend is a key/value store with per-key expiry. Put and Get must be
// atomic per key; no other coordination is required because every Put uses
// a fresh key.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)

	// Maintain reclaims space held by expired entries and returns how many
	// entries were removed when the backend can tell.
	Maintain(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// Cache stores thumbnails in a Backend.
type Cache struct {
	backend Backend
	ttl     time.Duration
}

// New returns a Cache with the given entry lifetime.
func New(backend Backend, ttl time.Duration) *Cache {
	return &Cache{backend: backend, ttl: ttl}
}

// TTL returns the lifetime applied to stored attachments.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Store saves data under a new random UUIDv4 and returns the id.
func (c *Cache) Store(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}

	id, err := uuid.NewRandom()
	if err != nil {
		metrics.RecordAttachmentStore(0, err)
		return "", fmt.Errorf("generate attachment id: %w", err)
	}

	if err := c.backend.Put(ctx, KeyPrefix+id.String(), data, c.ttl); err != nil {
		metrics.RecordAttachmentStore(0, err)
		return "", fmt.Errorf("store attachment: %w", err)
	}

	metrics.RecordAttachmentStore(len(data), nil)
	return id.String(), nil
}

// Retrieve returns the bytes stored under id, or ErrNotFound. Ids that are
// not well-formed UUIDs are rejected without touching the backend.
func (c *Cache) Retrieve(ctx context.Context, id string) ([]byte, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		metrics.RecordAttachmentRetrieve("miss")
		return nil, ErrNotFound
	}

	data, err := c.backend.Get(ctx, KeyPrefix+parsed.String())
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.RecordAttachmentRetrieve("miss")
		return nil, ErrNotFound
	case err != nil:
		metrics.RecordAttachmentRetrieve("error")
		return nil, fmt.Errorf("retrieve attachment: %w", err)
	}

	metrics.RecordAttachmentRetrieve("ok")
	return data, nil
}

// Maintain runs backend housekeeping.
func (c *Cache) Maintain(ctx context.Context) error {
	n, err := c.backend.Maintain(ctx)
	metrics.RecordAttachmentEvictions(n)
	return err
}

// Ping reports whether the backend is usable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}
