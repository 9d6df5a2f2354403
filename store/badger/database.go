// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package badger provides the badger-backed implementation of the
// ephemeral record store. With no data directory configured it runs
// fully in memory, which is also the mode used by tests.
package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/quoll/store"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// RecordStoreBadger stores sealed action code records in badger with
// per-entry TTLs. Data may not be persisted when running in memory.
type RecordStoreBadger struct {
	promRegistry     prometheus.Registerer
	db               *badger.DB
	logger           *slog.Logger
	gcTicker         *time.Ticker
	gcStopCh         chan struct{}
	dataDir          string
	gcWg             sync.WaitGroup
	metrics          storeMetrics
	valueLogFileSize int64
	valueThreshold   int64
	gcEnabled        bool
}

// New creates a new record store
func New(opts ...RecordStoreBadgerOptionFunc) (*RecordStoreBadger, error) {
	db := &RecordStoreBadger{
		// Set defaults
		gcEnabled:        true, // Enable GC by default for disk-backed stores
		valueLogFileSize: int64(DefaultValueLogFileSize),
		valueThreshold:   int64(DefaultValueThreshold),
	}
	for _, opt := range opts {
		opt(db)
	}

	var recordDb *badger.DB
	var err error

	if db.dataDir == "" {
		// No dataDir, use in-memory config
		badgerOpts := badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(db.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true).
			WithValueThreshold(db.valueThreshold)
		recordDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
		// In-memory stores have no value log on disk to collect
		db.gcEnabled = false
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(db.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			// Create data directory
			if err := os.MkdirAll(db.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		recordDir := filepath.Join(
			db.dataDir,
			"records",
		)
		badgerOpts := badger.DefaultOptions(recordDir).
			WithLogger(NewBadgerLogger(db.logger)).
			WithLoggingLevel(badger.WARNING).
			WithValueLogFileSize(db.valueLogFileSize).
			WithValueThreshold(db.valueThreshold)
		recordDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	}
	db.db = recordDb
	db.init()
	return db, nil
}

func (d *RecordStoreBadger) init() {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Configure metrics
	if d.promRegistry != nil {
		d.registerStoreMetrics()
	}
	// Configure GC
	if d.gcEnabled {
		d.gcTicker = time.NewTicker(5 * time.Minute)
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.valueLogGc(d.gcTicker, d.gcStopCh)
	}
}

func (d *RecordStoreBadger) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
		again:
			err := d.db.RunValueLogGC(0.5)
			if err != nil {
				// Log any actual errors
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("record store: GC failure: %s", err),
						"component", "store",
					)
				}
			} else {
				// Run it again if it just ran successfully
				goto again
			}
		case <-stop:
			return
		}
	}
}

// Close stops the GC goroutine and closes the underlying database
func (d *RecordStoreBadger) Close() error {
	if d.gcTicker != nil {
		d.gcTicker.Stop()
		if d.gcStopCh != nil {
			close(d.gcStopCh)
			d.gcStopCh = nil
		}
		// Wait for GC goroutine to finish
		d.gcWg.Wait()
		d.gcTicker = nil
	}
	return d.db.Close()
}

// DB returns the database handle
func (d *RecordStoreBadger) DB() *badger.DB {
	return d.db
}

// Get retrieves the value at key, mapping badger's key-not-found to
// the store contract error. TTL-evicted entries report as not found.
func (d *RecordStoreBadger) Get(
	ctx context.Context,
	key string,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			d.metrics.missesTotal.inc()
			return nil, store.ErrKeyNotFound
		}
		return nil, err
	}
	d.metrics.readsTotal.inc()
	return val, nil
}

// Set writes the value at key with the given TTL, last write wins
func (d *RecordStoreBadger) Set(
	ctx context.Context,
	key string,
	val []byte,
	ttl time.Duration,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return store.ErrInvalidTTL
	}
	if ttl < store.MinTTL {
		ttl = store.MinTTL
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), val).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return err
	}
	d.metrics.writesTotal.inc()
	return nil
}

// Update runs fn inside a single badger transaction. Badger's
// optimistic conflict detection turns a concurrent write to the same
// key into store.ErrConflict instead of a lost update.
func (d *RecordStoreBadger) Update(
	ctx context.Context,
	key string,
	fn store.UpdateFunc,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		var current []byte
		item, err := txn.Get([]byte(key))
		if err != nil {
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		} else {
			current, err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
		}
		val, ttl, err := fn(current)
		if err != nil {
			return err
		}
		if ttl <= 0 {
			return store.ErrInvalidTTL
		}
		if ttl < store.MinTTL {
			ttl = store.MinTTL
		}
		entry := badger.NewEntry([]byte(key), val).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return store.ErrConflict
		}
		return err
	}
	d.metrics.writesTotal.inc()
	return nil
}
