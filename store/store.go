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

// Package store defines the ephemeral record store contract used by
// the action code lifecycle manager. Implementations hold one opaque
// ciphertext blob per lookup key with a physical time-to-live; logical
// expiry is always derived from record timestamps by the caller, the
// store TTL only bounds physical retention.
package store

import (
	"context"
	"errors"
	"time"
)

// MinTTL is the floor applied to every write. The store must never be
// asked to retain an entry with a non-positive TTL; callers reject
// already-expired writes before they reach the store.
const MinTTL = time.Second

var (
	// ErrKeyNotFound is returned by Get and passed to UpdateFunc
	// consumers when no live entry exists at the key, either because
	// it was never written or because the TTL evicted it.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by Update when a concurrent mutation of
	// the same key won the write. The caller may safely retry the
	// whole read-modify-write.
	ErrConflict = errors.New("store transaction conflict")
	// ErrInvalidTTL is returned by Set for a non-positive TTL.
	ErrInvalidTTL = errors.New("ttl must be positive")
)

// UpdateFunc is the read-modify-write callback passed to Update. It
// receives the current value at the key, or nil when absent, and
// returns the replacement value together with the TTL to apply.
// Returning an error aborts the transaction without writing.
type UpdateFunc func(current []byte) ([]byte, time.Duration, error)

// Store is the ephemeral record store contract.
type Store interface {
	// Get returns the value at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes the value at key with the given TTL, last write
	// wins. A TTL below MinTTL but positive is rounded up to MinTTL;
	// a non-positive TTL is rejected with ErrInvalidTTL.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Update runs fn inside a single store transaction so that
	// concurrent mutations of the same key conflict instead of
	// silently losing writes.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Close releases store resources.
	Close() error
}
