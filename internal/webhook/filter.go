// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package webhook

import "strings"

// Allowed reports whether an event from accountName should be relayed.
// An empty allowedIdentity relays everything; otherwise the trimmed,
// lowercased names must match exactly.
func Allowed(allowedIdentity, accountName string) bool {
	allowed := strings.ToLower(strings.TrimSpace(allowedIdentity))
	if allowed == "" {
		return true
	}
	return allowed == strings.ToLower(strings.TrimSpace(accountName))
}
