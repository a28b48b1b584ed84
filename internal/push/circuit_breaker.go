// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package push

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/plexntfy/internal/logging"
	"github.com/tomtom215/plexntfy/internal/metrics"
	"github.com/tomtom215/plexntfy/internal/models"
)

// ErrCircuitOpen is returned while the breaker rejects sends.
var ErrCircuitOpen = errors.New("push circuit breaker is open")

// Sender delivers one push message.
type Sender interface {
	Send(ctx context.Context, msg *models.PushMessage, token string) error
}

// BreakerSettings configures NewCircuitBreakerClient.
type BreakerSettings struct {
	Name string

	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
}

// CircuitBreakerClient wraps a Sender with a gobreaker circuit breaker.
// Upstream 4xx responses are the caller's problem (bad topic, bad token)
// and do not count as failures; 5xx and transport errors do.
type CircuitBreakerClient struct {
	sender Sender
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps sender.
func NewCircuitBreakerClient(sender Sender, s BreakerSettings) *CircuitBreakerClient {
	name := s.Name
	if name == "" {
		name = "push"
	}
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= maxFailures
			if shouldTrip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening push circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var upstream *UpstreamError
			return errors.As(err, &upstream) && upstream.StatusCode < 500
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{sender: sender, cb: cb, name: name}
}

// Send forwards to the wrapped Sender unless the circuit is open.
func (c *CircuitBreakerClient) Send(ctx context.Context, msg *models.PushMessage, token string) error {
	start := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.sender.Send(ctx, msg, token)
	})

	var upstream *UpstreamError
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
		metrics.RecordPush("success", time.Since(start))
		return nil

	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		metrics.RecordPush("error", time.Since(start))
		return errors.Join(ErrCircuitOpen, err)

	case errors.As(err, &upstream):
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		metrics.RecordPush("rejected", time.Since(start))
		return err

	default:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		metrics.RecordPush("error", time.Since(start))
		return err
	}
}

// State returns the breaker state as a string.
func (c *CircuitBreakerClient) State() string {
	return stateToString(c.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
