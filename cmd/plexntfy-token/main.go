// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Command plexntfy-token encrypts push service tokens for use with
// NTFY_TOKEN_ENCRYPTED, so the plaintext never has to sit in a compose
// file or environment dump.
//
//	export NTFY_ENCRYPTION_KEY=$(openssl rand -base64 32)
//	echo -n tk_mytoken | plexntfy-token encrypt
//	plexntfy-token verify "$NTFY_TOKEN_ENCRYPTED"
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
