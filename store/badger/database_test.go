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

package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/quoll/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RecordStoreBadger {
	t.Helper()
	s, err := New(
		WithPromRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSetGet(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	err := s.Set(ctx, "some-key", []byte("some-value"), time.Minute)
	require.NoError(t, err)

	val, err := s.Get(ctx, "some-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("some-value"), val)
}

func TestGetAbsent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(t.Context(), "no-such-key")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestSetRejectsNonPositiveTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	err := s.Set(ctx, "some-key", []byte("some-value"), 0)
	assert.ErrorIs(t, err, store.ErrInvalidTTL)
	err = s.Set(ctx, "some-key", []byte("some-value"), -time.Second)
	assert.ErrorIs(t, err, store.ErrInvalidTTL)
}

func TestSetLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "some-key", []byte("first"), time.Minute))
	require.NoError(t, s.Set(ctx, "some-key", []byte("second"), time.Minute))

	val, err := s.Get(ctx, "some-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), val)
}

func TestTTLEviction(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	// MinTTL floor means the shortest possible retention is one second
	err := s.Set(ctx, "short-lived", []byte("some-value"), time.Millisecond)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = s.Get(ctx, "short-lived")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestUpdateAbsentKey(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	var sawCurrent []byte
	err := s.Update(
		ctx,
		"new-key",
		func(current []byte) ([]byte, time.Duration, error) {
			sawCurrent = current
			return []byte("created"), time.Minute, nil
		},
	)
	require.NoError(t, err)
	assert.Nil(t, sawCurrent)

	val, err := s.Get(ctx, "new-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("created"), val)
}

func TestUpdateExistingKey(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "some-key", []byte("before"), time.Minute))
	err := s.Update(
		ctx,
		"some-key",
		func(current []byte) ([]byte, time.Duration, error) {
			assert.Equal(t, []byte("before"), current)
			return []byte("after"), time.Minute, nil
		},
	)
	require.NoError(t, err)

	val, err := s.Get(ctx, "some-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("after"), val)
}

func TestUpdateAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "some-key", []byte("before"), time.Minute))
	testErr := errors.New("domain violation")
	err := s.Update(
		ctx,
		"some-key",
		func(current []byte) ([]byte, time.Duration, error) {
			return nil, 0, testErr
		},
	)
	assert.ErrorIs(t, err, testErr)

	// Aborted updates leave the stored value untouched
	val, err := s.Get(ctx, "some-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("before"), val)
}

func TestUpdateRejectsNonPositiveTTL(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(
		t.Context(),
		"some-key",
		func(current []byte) ([]byte, time.Duration, error) {
			return []byte("some-value"), 0, nil
		},
	)
	assert.ErrorIs(t, err, store.ErrInvalidTTL)
}

func TestContextCancelled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := s.Get(ctx, "some-key")
	assert.Error(t, err)
	err = s.Set(ctx, "some-key", []byte("some-value"), time.Minute)
	assert.Error(t, err)
}
