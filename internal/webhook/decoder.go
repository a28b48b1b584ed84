// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

// Package webhook decodes inbound Plex webhook requests and applies the
// single-account identity filter.
//
// Plex sends multipart/form-data with a JSON "payload" part and, for media
// events, a JPEG "thumb" part. Other senders (and curl) post the JSON body
// directly; both forms are accepted.
package webhook

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/plexntfy/internal/logging"
	"github.com/tomtom215/plexntfy/internal/models"
)

const (
	payloadPart = "payload"
	thumbPart   = "thumb"
)

// Decode parses a webhook body into an EventRecord and optional thumbnail.
// It never fails: any malformed or missing payload yields a nil record.
// At most maxBytes of body are consumed.
func Decode(contentType string, body io.Reader, maxBytes int64) (*models.EventRecord, []byte) {
	if body == nil {
		return nil, nil
	}
	if maxBytes > 0 {
		body = io.LimitReader(body, maxBytes)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		return decodeMultipart(multipart.NewReader(body, params["boundary"]))
	}

	data, err := io.ReadAll(body)
	if err != nil {
		logging.Debug().Err(err).Msg("Webhook body read failed")
		return nil, nil
	}
	return decodePayload(data), nil
}

func decodeMultipart(mr *multipart.Reader) (*models.EventRecord, []byte) {
	var (
		record *models.EventRecord
		thumb  []byte
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logging.Debug().Err(err).Msg("Multipart webhook truncated or malformed")
			break
		}

		switch part.FormName() {
		case payloadPart:
			data, readErr := io.ReadAll(part)
			if readErr == nil {
				record = decodePayload(data)
			}
		case thumbPart:
			data, readErr := io.ReadAll(part)
			if readErr == nil && len(data) > 0 {
				thumb = data
			}
		}
		_ = part.Close() //nolint:errcheck // drains the remainder of the part
	}

	if record == nil {
		return nil, nil
	}
	return record, thumb
}

// decodePayload parses a Plex JSON document. A JSON null, array or scalar
// is not a payload.
func decodePayload(data []byte) *models.EventRecord {
	var w *models.PlexWebhook
	if err := json.Unmarshal(data, &w); err != nil {
		logging.Debug().Err(err).Int("bytes", len(data)).Msg("Webhook payload is not valid JSON")
		return nil
	}
	if w == nil {
		return nil
	}
	return w.Record()
}
