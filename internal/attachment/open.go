// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package attachment

import (
	"fmt"

	"github.com/tomtom215/plexntfy/internal/config"
)

// Open builds the Cache selected by cfg.
func Open(cfg *config.AttachmentConfig) (*Cache, error) {
	var backend Backend

	switch cfg.Backend {
	case "memory":
		backend = NewMemoryStore()
	case "badger", "":
		store, err := NewBadgerStore(BadgerOptions{Path: cfg.Path, InMemory: cfg.InMemory})
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		return nil, fmt.Errorf("unknown attachment backend %q", cfg.Backend)
	}

	return New(backend, cfg.TTL), nil
}
