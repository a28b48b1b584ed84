// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package models defines the relay's data types: the Plex webhook wire
// format, the normalised event record derived from it, and the outbound
// notification.
package models
