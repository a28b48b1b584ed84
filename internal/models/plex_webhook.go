// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package models

import "strings"

// Plex webhook payloads arrive as the "payload" part of a multipart POST.
// Setup: Plex Settings → Webhooks → Add webhook URL
// Events: media.play, media.pause, media.resume, media.stop, media.scrobble,
//         media.rate, library.on.deck, library.new, admin.database.backup,
//         device.new, playback.started

// PlexWebhook represents a Plex webhook HTTP POST payload.
// Every field is optional; numeric metadata uses OptionalInt so a stray
// string or null does not reject the event.
// Documentation: https://support.plex.tv/articles/115002267687-webhooks/
type PlexWebhook struct {
	Event    string               `json:"event"`              // e.g. "media.play", "media.stop"
	User     bool                 `json:"user"`               // True if user-initiated action
	Owner    bool                 `json:"owner"`              // True if server owner triggered event
	Account  PlexWebhookAccount   `json:"Account"`            // User account information
	Server   PlexWebhookServer    `json:"Server"`             // Plex server information
	Player   *PlexWebhookPlayer   `json:"Player,omitempty"`   // Client/device information
	Metadata *PlexWebhookMetadata `json:"Metadata,omitempty"` // Present for media events
}

// PlexWebhookAccount represents the user account in webhook payload
type PlexWebhookAccount struct {
	ID    OptionalInt `json:"id"`
	Thumb string      `json:"thumb"` // Profile picture URL
	Title string      `json:"title"` // Username/display name
}

// PlexWebhookServer represents the Plex server in webhook payload
type PlexWebhookServer struct {
	Title string `json:"title"` // Server name
	UUID  string `json:"uuid"`  // Server machine identifier
}

// PlexWebhookPlayer represents the client/device in webhook payload
type PlexWebhookPlayer struct {
	Local         bool   `json:"local"`
	PublicAddress string `json:"publicAddress"`
	Title         string `json:"title"` // Device name
	UUID          string `json:"uuid"`
}

// PlexWebhookMetadata represents content metadata in webhook payload
type PlexWebhookMetadata struct {
	LibrarySectionType  string      `json:"librarySectionType"`  // "movie", "show", "artist"
	LibrarySectionTitle string      `json:"librarySectionTitle"` // Library name
	RatingKey           string      `json:"ratingKey"`
	GUID                string      `json:"guid"`
	Type                string      `json:"type"` // "movie", "episode", "track", ...
	Title               string      `json:"title"`
	GrandparentTitle    string      `json:"grandparentTitle"` // Show/Artist title
	ParentTitle         string      `json:"parentTitle"`      // Season/Album title
	Index               OptionalInt `json:"index"`            // Episode/track number
	ParentIndex         OptionalInt `json:"parentIndex"`      // Season/disc number
	Year                OptionalInt `json:"year"`
	Thumb               string      `json:"thumb"`
}

// plexEventKinds maps Plex event names onto normalised kinds.
var plexEventKinds = map[string]EventKind{
	"media.play":   EventPlay,
	"media.resume": EventResume,
	"media.pause":  EventPause,
	"media.stop":   EventFinish,
	"media.rate":   EventRate,
}

// ParseEventKind maps a raw Plex event name to an EventKind.
func ParseEventKind(raw string) EventKind {
	if kind, ok := plexEventKinds[strings.TrimSpace(raw)]; ok {
		return kind
	}
	return EventOther
}

// ParseMediaKind maps a Plex metadata type to a MediaKind.
func ParseMediaKind(raw string) MediaKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie":
		return MediaMovie
	case "episode":
		return MediaEpisode
	case "track":
		return MediaTrack
	default:
		return MediaOther
	}
}

// Record normalises the wire payload into an EventRecord.
func (w *PlexWebhook) Record() *EventRecord {
	rec := &EventRecord{
		Kind:        ParseEventKind(w.Event),
		RawEvent:    w.Event,
		AccountName: w.Account.Title,
		Media:       MediaItem{Kind: MediaOther},
	}

	if m := w.Metadata; m != nil {
		rec.Media = MediaItem{
			Kind:           ParseMediaKind(m.Type),
			Title:          m.Title,
			Year:           m.Year,
			SeasonIndex:    m.ParentIndex,
			EpisodeIndex:   m.Index,
			SeriesTitle:    m.GrandparentTitle,
			LibrarySection: m.LibrarySectionTitle,
		}
	}

	if p := w.Player; p != nil && (p.Title != "" || p.PublicAddress != "") {
		rec.Player = &PlayerInfo{Name: p.Title, PublicAddress: p.PublicAddress}
	}

	return rec
}
