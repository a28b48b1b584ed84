// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package attachment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/plexntfy/internal/logging"
)

// gcDiscardRatio is the fraction of stale data a value log file must hold
// before badger rewrites it.
const gcDiscardRatio = 0.5

// BadgerStore is a Backend on badger. Expiry uses badger's entry TTL, so
// expired keys vanish from reads without any bookkeeping here.
type BadgerStore struct {
	db       *badger.DB
	inMemory bool
}

// BadgerOptions configures NewBadgerStore.
type BadgerOptions struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// NewBadgerStore opens (or creates) a badger database.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("badger path is required when not in memory")
		}
		bopts = badger.DefaultOptions(opts.Path)
		bopts.ValueLogFileSize = 16 << 20 // 16MB (smaller than default 1GB)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for attachments: %w", err)
	}

	return NewBadgerStoreFromDB(db, opts.InMemory), nil
}

// NewBadgerStoreFromDB wraps an already open database.
func NewBadgerStoreFromDB(db *badger.DB, inMemory bool) *BadgerStore {
	return &BadgerStore{db: db, inMemory: inMemory}
}

// Put writes data with the given TTL.
func (s *BadgerStore) Put(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("attachment key cannot be empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get returns a copy of the stored value.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get attachment: %w", err)
		}
		if item.IsDeletedOrExpired() {
			return ErrNotFound
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Maintain runs value log GC until badger reports nothing left to rewrite.
// Badger drops expired keys during compaction on its own, so no count is
// available here.
func (s *BadgerStore) Maintain(ctx context.Context) (int, error) {
	if s.inMemory {
		return 0, nil
	}

	rewrites := 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("badger value log gc: %w", err)
		}
		rewrites++
	}

	if rewrites > 0 {
		logging.Debug().Int("rewrites", rewrites).Msg("Attachment value log compacted")
	}
	return 0, nil
}

// Ping fails once the database has been closed.
func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("attachment store is closed")
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
