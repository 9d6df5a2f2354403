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

// Package auditlog persists an operator-facing trail of action code
// lifecycle transitions. It stores only code hashes, never raw codes
// or transaction contents.
package auditlog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/quoll/actioncode"
	"github.com/blinklabs-io/quoll/event"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Entry is one lifecycle transition row
type Entry struct {
	CreatedAt  time.Time
	CodeHash   string `gorm:"index"`
	Transition string
	Chain      string
	Status     string
	ID         uint `gorm:"primarykey"`
	OccurredAt int64
}

func (Entry) TableName() string {
	return "audit_entries"
}

// AuditLog is a SQLite-backed trail of lifecycle transitions
type AuditLog struct {
	db     *gorm.DB
	logger *slog.Logger
	subIds map[event.EventType]event.EventSubscriberId
	bus    *event.EventBus
}

// New creates an audit log. Uses an in-memory database if dataDir is
// empty.
func New(
	dataDir string,
	logger *slog.Logger,
) (*AuditLog, error) {
	var auditDb *gorm.DB
	var err error
	if dataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		auditDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		auditDbPath := filepath.Join(
			dataDir,
			"audit.sqlite",
		)
		// WAL journal mode, disable sync on write
		auditConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
		auditDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", auditDbPath, auditConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	a := &AuditLog{
		db:     auditDb,
		logger: logger,
		subIds: make(map[event.EventType]event.EventSubscriberId),
	}
	if a.logger == nil {
		// Create logger to throw away by default
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	a.logger = a.logger.With("component", "auditlog")
	// Configure tracing for GORM
	if err := a.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	if err := a.db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return a, nil
}

// Record appends an audit entry
func (a *AuditLog) Record(entry Entry) error {
	if result := a.db.Create(&entry); result.Error != nil {
		return result.Error
	}
	return nil
}

// Entries returns all entries for a code hash, oldest first
func (a *AuditLog) Entries(codeHash string) ([]Entry, error) {
	var entries []Entry
	result := a.db.
		Where("code_hash = ?", codeHash).
		Order("id").
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// Listen subscribes to lifecycle events on the bus and records one
// entry per transition
func (a *AuditLog) Listen(bus *event.EventBus) {
	a.bus = bus
	for _, eventType := range []event.EventType{
		actioncode.RegisteredEventType,
		actioncode.AttachedEventType,
		actioncode.FinalizedEventType,
	} {
		a.subIds[eventType] = bus.SubscribeFunc(
			eventType,
			a.handleEvent,
		)
	}
}

func (a *AuditLog) handleEvent(evt event.Event) {
	lcEvt, ok := evt.Data.(actioncode.LifecycleEvent)
	if !ok {
		a.logger.Warn(
			"unexpected event payload",
			"type", string(evt.Type),
		)
		return
	}
	if err := a.Record(Entry{
		CodeHash:   lcEvt.CodeHash,
		Transition: string(evt.Type),
		Chain:      string(lcEvt.Chain),
		Status:     string(lcEvt.Status),
		OccurredAt: lcEvt.Timestamp,
	}); err != nil {
		a.logger.Error(
			"failed to record audit entry",
			"error", err,
		)
	}
}

// Close unsubscribes from the event bus and closes the database
func (a *AuditLog) Close() error {
	if a.bus != nil {
		for eventType, subId := range a.subIds {
			a.bus.Unsubscribe(eventType, subId)
		}
		a.bus = nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
