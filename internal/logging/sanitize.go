// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package logging

import (
	"fmt"
	"strings"
)

// maxLoggedValueLen bounds user-supplied strings written to the log.
const maxLoggedValueLen = 256

// SanitizeValue escapes control characters in user-supplied values so a
// crafted webhook cannot forge log lines, and truncates long values.
func SanitizeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return truncateString(b.String(), maxLoggedValueLen)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
