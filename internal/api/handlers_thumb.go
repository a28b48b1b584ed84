// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/plexntfy/internal/attachment"
	"github.com/tomtom215/plexntfy/internal/logging"
)

// Thumbnail serves a cached thumbnail by id.
func (h *Handler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.ThumbnailMissingID(w, r)
		return
	}

	data, err := h.attachments.Retrieve(r.Context(), id)
	switch {
	case errors.Is(err, attachment.ErrNotFound):
		respondText(w, http.StatusNotFound, "not found")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to read thumbnail")
		respondText(w, http.StatusInternalServerError, "error: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.attachments.TTL().Seconds())))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write thumbnail")
	}
}

// ThumbnailMissingID answers GET /thumb/ with no id.
func (h *Handler) ThumbnailMissingID(w http.ResponseWriter, _ *http.Request) {
	respondText(w, http.StatusBadRequest, "missing id")
}
