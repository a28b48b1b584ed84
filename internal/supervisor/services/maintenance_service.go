// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package services

import (
	"context"
	"time"

	"github.com/tomtom215/plexntfy/internal/logging"
)

// Maintainer is an attachment store that needs periodic housekeeping.
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// AttachmentMaintenanceService runs Maintain on a fixed interval.
// Maintenance errors are logged and the loop continues.
type AttachmentMaintenanceService struct {
	store    Maintainer
	interval time.Duration
}

// NewAttachmentMaintenanceService creates the service. A non-positive
// interval defaults to ten minutes.
func NewAttachmentMaintenanceService(store Maintainer, interval time.Duration) *AttachmentMaintenanceService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &AttachmentMaintenanceService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *AttachmentMaintenanceService) Serve(ctx context.Context) error {
	log := logging.WithComponent("attachment-maintenance")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.store.Maintain(ctx); err != nil {
				log.Warn().Err(err).Msg("Attachment maintenance failed")
				continue
			}
			log.Debug().Dur("duration", time.Since(start)).Msg("Attachment maintenance complete")
		}
	}
}

// String names the service in supervisor events.
func (s *AttachmentMaintenanceService) String() string {
	return "attachment-maintenance"
}
