// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package models

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// EventKind is the normalised playback event.
type EventKind string

const (
	EventPlay   EventKind = "play"
	EventResume EventKind = "resume"
	EventPause  EventKind = "pause"
	EventFinish EventKind = "finish"
	EventRate   EventKind = "rate"
	EventOther  EventKind = "other"
)

// MediaKind is the normalised content type.
type MediaKind string

const (
	MediaMovie   MediaKind = "movie"
	MediaEpisode MediaKind = "episode"
	MediaTrack   MediaKind = "track"
	MediaOther   MediaKind = "other"
)

// EventRecord is one decoded webhook event. RawEvent keeps the original
// event string so kinds outside the known set can still be labelled.
type EventRecord struct {
	Kind        EventKind
	RawEvent    string
	AccountName string
	Media       MediaItem
	Player      *PlayerInfo
}

// MediaItem describes the content the event is about. Only the fields
// relevant to Kind are consulted when formatting.
type MediaItem struct {
	Kind           MediaKind
	Title          string
	Year           OptionalInt
	SeasonIndex    OptionalInt
	EpisodeIndex   OptionalInt
	SeriesTitle    string
	LibrarySection string
}

// PlayerInfo identifies the client device.
type PlayerInfo struct {
	Name          string
	PublicAddress string
}

// OptionalInt is an integer that may be absent. It decodes from a JSON
// number or a numeric string; any other value, including null, leaves it
// absent instead of failing the whole payload.
type OptionalInt struct {
	Value int
	Valid bool
}

// IntOf returns a present OptionalInt.
func IntOf(v int) OptionalInt {
	return OptionalInt{Value: v, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	*o = OptionalInt{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil //nolint:nilerr // malformed values are treated as absent
		}
		data = []byte(s)
	}

	text := string(bytes.TrimSpace(data))
	if n, err := strconv.Atoi(text); err == nil {
		*o = IntOf(n)
		return nil
	}

	// Integral floats such as 3.0 are accepted; anything else is absent.
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil //nolint:nilerr // non-integer values are treated as absent
	}
	*o = IntOf(int(f))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(o.Value)), nil
}
