// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package notify turns normalised webhook events into push notifications.
//
// Format is pure and total: every EventRecord, however sparse, yields a
// notification. Missing values render as fixed placeholders so the output
// never contains dangling separators.
package notify

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tomtom215/plexntfy/internal/models"
)

const (
	// TitlePrefix precedes the event label in every notification title.
	TitlePrefix = "Plex: "

	// DomainTag is always the first tag.
	DomainTag = "plex"

	rawEventPrefix = "media."
	unknownLabel   = "Unknown"
	unknownIndex   = "?"
	defaultAccount = "User"
)

var eventLabels = map[models.EventKind]string{
	models.EventPlay:   "Started",
	models.EventResume: "Resumed",
	models.EventPause:  "Paused",
	models.EventFinish: "Finished",
	models.EventRate:   "Rated",
}

// Format builds the notification for rec. A nil record formats as an
// unknown event.
func Format(rec *models.EventRecord) models.Notification {
	if rec == nil {
		rec = &models.EventRecord{}
	}

	label := Label(rec)
	return models.Notification{
		Title:   TitlePrefix + label,
		Message: Message(rec),
		Tags:    []string{DomainTag, strings.ToLower(label)},
	}
}

// Label returns the human-readable event label. Kinds outside the known
// set fall back to the raw event: "media.scrobble" becomes "Scrobble",
// anything without the media prefix is returned verbatim.
func Label(rec *models.EventRecord) string {
	if label, ok := eventLabels[rec.Kind]; ok {
		return label
	}

	raw := strings.TrimSpace(rec.RawEvent)
	if raw == "" {
		return unknownLabel
	}
	if suffix, ok := strings.CutPrefix(raw, rawEventPrefix); ok && suffix != "" {
		return upperFirst(suffix)
	}
	return raw
}

// Message returns the media line and the "by <user>" line joined by a
// newline.
func Message(rec *models.EventRecord) string {
	var b strings.Builder
	b.WriteString(MediaLine(&rec.Media))
	b.WriteString("\nby ")
	b.WriteString(firstNonEmpty(rec.AccountName, defaultAccount))

	if p := rec.Player; p != nil {
		if name := strings.TrimSpace(p.Name); name != "" {
			b.WriteString(" on ")
			b.WriteString(name)
		}
		if addr := strings.TrimSpace(p.PublicAddress); addr != "" {
			b.WriteString(" (")
			b.WriteString(addr)
			b.WriteString(")")
		}
	}

	return strings.TrimSpace(b.String())
}

// MediaLine describes the content in one line according to its kind.
func MediaLine(m *models.MediaItem) string {
	title := strings.TrimSpace(m.Title)
	series := strings.TrimSpace(m.SeriesTitle)

	switch m.Kind {
	case models.MediaMovie:
		line := firstNonEmpty(title, "Movie")
		if m.Year.Valid {
			line += fmt.Sprintf(" (%d)", m.Year.Value)
		}
		return line

	case models.MediaEpisode:
		show := firstNonEmpty(series, title, "Episode")
		line := fmt.Sprintf("%s S%sE%s", show, formatIndex(m.SeasonIndex), formatIndex(m.EpisodeIndex))
		if title != "" {
			line += ` — "` + title + `"`
		}
		return line

	case models.MediaTrack:
		line := firstNonEmpty(title, "Track")
		if series != "" {
			line += " — " + series
		}
		return line

	default:
		return firstNonEmpty(title, series, strings.TrimSpace(m.LibrarySection), "Media")
	}
}

// formatIndex pads to two digits; absent or negative renders as "?".
func formatIndex(n models.OptionalInt) string {
	if !n.Valid || n.Value < 0 {
		return unknownIndex
	}
	return fmt.Sprintf("%02d", n.Value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
