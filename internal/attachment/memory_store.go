// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package attachment

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStats reports MemoryStore activity.
type MemoryStats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// MemoryStore is a Backend held in a map. Entries past their deadline are
// treated as absent on read and removed by Maintain.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
	closed  bool
	stats   MemoryStats
}

// NewMemoryStore returns an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock returns a store that reads time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
		stats:   MemoryStats{LastCleanup: now()},
	}
}

var errMemoryClosed = errors.New("attachment store is closed")

// Put stores a private copy of data.
func (m *MemoryStore) Put(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("attachment key cannot be empty")
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errMemoryClosed
	}
	m.entries[key] = memoryEntry{data: buf, expiresAt: m.now().Add(ttl)}
	m.stats.TotalKeys = int64(len(m.entries))
	return nil
}

// Get returns a copy of the stored bytes unless the entry has expired.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, exists := m.entries[key]
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return nil, errMemoryClosed
	}

	if !exists {
		m.record(func(s *MemoryStats) { s.Misses++ })
		return nil, ErrNotFound
	}

	if !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && !m.now().Before(cur.expiresAt) {
			delete(m.entries, key)
			m.stats.Evictions++
			m.stats.TotalKeys = int64(len(m.entries))
		}
		m.stats.Misses++
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	m.record(func(s *MemoryStats) { s.Hits++ })
	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

// Maintain removes every expired entry and returns how many were removed.
func (m *MemoryStore) Maintain(context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			evicted++
		}
	}

	m.stats.Evictions += int64(evicted)
	m.stats.TotalKeys = int64(len(m.entries))
	m.stats.LastCleanup = now
	return evicted, nil
}

// Ping fails after Close.
func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errMemoryClosed
	}
	return nil
}

// Close drops all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	m.closed = true
	return nil
}

// Stats returns a snapshot of store counters.
func (m *MemoryStore) Stats() MemoryStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *MemoryStore) record(fn func(*MemoryStats)) {
	m.mu.Lock()
	fn(&m.stats)
	m.mu.Unlock()
}
