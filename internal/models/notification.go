// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package models

// Notification is the formatted title, message and tags for one event.
type Notification struct {
	Title   string
	Message string
	Tags    []string
}

// PushMessage is the JSON body POSTed to an ntfy-style push service.
type PushMessage struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Tags    []string `json:"tags"`
	Attach  string   `json:"attach,omitempty"`
}

// NewPushMessage combines a notification with a topic and optional
// attachment URL.
func NewPushMessage(topic string, n Notification, attachURL string) PushMessage {
	return PushMessage{
		Topic:   topic,
		Title:   n.Title,
		Message: n.Message,
		Tags:    n.Tags,
		Attach:  attachURL,
	}
}
