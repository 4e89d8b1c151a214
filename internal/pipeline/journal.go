// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	// lastRunKey is the BadgerDB key holding the most recent RunRecord.
	lastRunKey = "pipeline:run:last"
)

// Journal persists the most recent RunRecord.
type Journal interface {
	Save(ctx context.Context, rec *RunRecord) error
	// Load returns nil, nil when nothing has been saved.
	Load(ctx context.Context) (*RunRecord, error)
	Clear(ctx context.Context) error
}

// BadgerJournal implements Journal using BadgerDB for persistence across runs.
type BadgerJournal struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerJournal opens (or creates) a journal database at path.
// Badger holds a directory lock, so a second concurrent run sharing the
// path fails here.
func OpenBadgerJournal(path string) (*BadgerJournal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run journal %s: %w", path, err)
	}
	return &BadgerJournal{db: db, ownsDB: true}, nil
}

// NewBadgerJournal wraps an already open database. Close leaves it open.
func NewBadgerJournal(db *badger.DB) *BadgerJournal {
	return &BadgerJournal{db: db}
}

// Save persists rec, replacing the previous record.
func (j *BadgerJournal) Save(_ context.Context, rec *RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lastRunKey), data)
	})
}

// Load retrieves the last saved RunRecord.
func (j *BadgerJournal) Load(_ context.Context) (*RunRecord, error) {
	var rec *RunRecord

	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastRunKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			rec = &RunRecord{}
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load run record: %w", err)
	}

	return rec, nil
}

// Clear removes the saved record.
func (j *BadgerJournal) Clear(_ context.Context) error {
	return j.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(lastRunKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Close releases the database if this journal opened it.
func (j *BadgerJournal) Close() error {
	if j.ownsDB {
		return j.db.Close()
	}
	return nil
}

// InMemoryJournal implements Journal in memory.
type InMemoryJournal struct {
	mu  sync.Mutex
	rec *RunRecord
	// saves counts Save calls, for tests asserting per-stage persistence.
	saves int
}

// NewInMemoryJournal creates an empty in-memory journal.
func NewInMemoryJournal() *InMemoryJournal {
	return &InMemoryJournal{}
}

// Save stores a copy of rec.
func (j *InMemoryJournal) Save(_ context.Context, rec *RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rec = rec.clone()
	j.saves++
	return nil
}

// Load returns a copy of the stored record.
func (j *InMemoryJournal) Load(_ context.Context) (*RunRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.rec == nil {
		return nil, nil
	}
	return j.rec.clone(), nil
}

// Clear removes the stored record.
func (j *InMemoryJournal) Clear(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rec = nil
	return nil
}

// Saves returns how many times Save was called.
func (j *InMemoryJournal) Saves() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.saves
}
