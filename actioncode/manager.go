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

// Package actioncode implements the action code lifecycle: register,
// resolve, attach, finalize, and status. Records are sealed under the
// raw code before they touch the store, and every one-shot transition
// runs inside a single store update so concurrent calls cannot both
// succeed.
package actioncode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/quoll/codec"
	"github.com/blinklabs-io/quoll/event"
	"github.com/blinklabs-io/quoll/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultCodeTTL is the code lifetime used when none is configured
const DefaultCodeTTL = 2 * time.Minute

const (
	RegisteredEventType event.EventType = "actioncode.registered"
	AttachedEventType   event.EventType = "actioncode.attached"
	FinalizedEventType  event.EventType = "actioncode.finalized"
)

// LifecycleEvent is the payload published on the event bus for each
// lifecycle transition. It carries the lookup key digest, never the
// raw code.
type LifecycleEvent struct {
	CodeHash  string
	Chain     Chain
	Status    Status
	Timestamp int64
}

// Registration carries the fields a chain adapter needs to verify
// code ownership at register time.
type Registration struct {
	Code      string
	Pubkey    string
	Signature string
	Prefix    string
	Timestamp int64
}

// Intent describes what an attach call wants to bind to a code.
type Intent struct {
	Type        IntentType
	Transaction string
	Message     string
}

// Adapter is the per-chain extension point. Implementations verify
// ownership proofs and transaction payloads for a single chain.
type Adapter interface {
	// VerifyRegistration checks the wallet's ownership proof over the
	// canonical registration message
	VerifyRegistration(ctx context.Context, reg Registration) error
	// AttachTransaction validates an intent against the record and
	// returns the payload to persist
	AttachTransaction(
		ctx context.Context,
		rec *Record,
		intent Intent,
	) (*TransactionPayload, error)
	// VerifyFinalized checks a finalize proof for an attached
	// transaction
	VerifyFinalized(
		ctx context.Context,
		rec *Record,
		txSignature string,
	) error
	// VerifySignedMessage checks a finalize proof for a sign-only
	// attachment
	VerifySignedMessage(
		ctx context.Context,
		rec *Record,
		signedMessage string,
	) error
}

// AdapterResolver looks up the adapter for a chain. The chain package
// provides the standard registry-backed implementation.
type AdapterResolver interface {
	Lookup(chain Chain) (Adapter, bool)
}

// ManagerConfig is the configuration for a lifecycle Manager
type ManagerConfig struct {
	Store        store.Store
	Adapters     AdapterResolver
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	CodeTTL      time.Duration
	Now          func() time.Time
}

// Manager drives the action code lifecycle over a TTL record store
type Manager struct {
	store    store.Store
	adapters AdapterResolver
	eventBus *event.EventBus
	logger   *slog.Logger
	codeTTL  time.Duration
	now      func() time.Time
	metrics  struct {
		registered prometheus.Counter
		attached   prometheus.Counter
		finalized  prometheus.Counter
		failures   *prometheus.CounterVec
	}
}

// NewManager creates a new lifecycle Manager
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		store:    cfg.Store,
		adapters: cfg.Adapters,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger,
		codeTTL:  cfg.CodeTTL,
		now:      cfg.Now,
	}
	if m.logger == nil {
		// Create logger to throw away by default
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if m.codeTTL <= 0 {
		m.codeTTL = DefaultCodeTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	if cfg.PromRegistry != nil {
		promautoFactory := promauto.With(cfg.PromRegistry)
		m.metrics.registered = promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "actioncode_registered_total",
				Help: "Total number of action codes registered",
			},
		)
		m.metrics.attached = promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "actioncode_attached_total",
				Help: "Total number of transactions attached",
			},
		)
		m.metrics.finalized = promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "actioncode_finalized_total",
				Help: "Total number of action codes finalized",
			},
		)
		m.metrics.failures = promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actioncode_failures_total",
				Help: "Total number of failed lifecycle operations by error kind",
			},
			[]string{"operation", "kind"},
		)
	}
	return m
}

// CodeTTL returns the configured code lifetime
func (m *Manager) CodeTTL() time.Duration {
	return m.codeTTL
}

// RegisterParams are the inputs to Register
type RegisterParams struct {
	Metadata  map[string]any
	Code      string
	Pubkey    string
	Signature string
	Prefix    string
	Chain     Chain
	Timestamp int64
}

// RegisterResult is the projection returned by Register
type RegisterResult struct {
	CodeHash           string
	Status             Status
	Timestamp          int64
	ExpiresAt          int64
	RemainingInSeconds int64
}

// Register verifies ownership of a fresh code and stores its sealed
// record. Registering a code whose previous record is live fails with
// CODE_ALREADY_EXISTS; an expired leftover record is overwritten.
func (m *Manager) Register(
	ctx context.Context,
	params RegisterParams,
) (*RegisterResult, error) {
	if params.Code == "" || params.Pubkey == "" || params.Signature == "" {
		return nil, m.fail(
			"register",
			ErrInvalidPayload.WithMessage(
				"code, pubkey, and signature are required",
			),
		)
	}
	adapter, ok := m.lookupAdapter(params.Chain)
	if !ok {
		return nil, m.fail("register", ErrUnsupportedChain)
	}
	now := m.now()
	timestamp := params.Timestamp
	if timestamp == 0 {
		timestamp = now.UnixMilli()
	}
	if err := adapter.VerifyRegistration(
		ctx,
		Registration{
			Code:      params.Code,
			Pubkey:    params.Pubkey,
			Signature: params.Signature,
			Prefix:    params.Prefix,
			Timestamp: timestamp,
		},
	); err != nil {
		m.logger.Debug(
			"registration proof rejected",
			"component", "actioncode",
			"chain", string(params.Chain),
			"error", err,
		)
		return nil, m.fail(
			"register",
			ErrInvalidPayload.WithMessage(
				"registration signature rejected",
			),
		)
	}
	rec := &Record{
		Code:      params.Code,
		Pubkey:    params.Pubkey,
		Chain:     params.Chain,
		Prefix:    params.Prefix,
		Signature: params.Signature,
		Timestamp: timestamp,
		Metadata:  params.Metadata,
	}
	remaining := rec.Remaining(now, m.codeTTL)
	if remaining <= 0 {
		return nil, m.fail(
			"register",
			ErrInvalidPayload.WithMessage("registration timestamp too old"),
		)
	}
	sealed, err := m.sealRecord(rec)
	if err != nil {
		m.logger.Error(
			"failed to seal record",
			"component", "actioncode",
			"error", err,
		)
		return nil, m.fail("register", ErrUnknown)
	}
	lookupKey := codec.DeriveLookupKey(params.Code)
	err = m.store.Update(
		ctx,
		lookupKey,
		func(current []byte) ([]byte, time.Duration, error) {
			if current != nil {
				// A record we can't open under this code is garbage
				// from a hash collision or corruption; treat it like
				// an expired leftover and overwrite
				if existing, err := m.openRecord(current, params.Code); err == nil {
					if !existing.Expired(now, m.codeTTL) {
						return nil, 0, ErrCodeAlreadyExists
					}
				}
			}
			return sealed, remaining, nil
		},
	)
	if err != nil {
		return nil, m.fail("register", m.mapStoreError(err))
	}
	m.publish(RegisteredEventType, rec, StatusPending)
	if m.metrics.registered != nil {
		m.metrics.registered.Inc()
	}
	m.logger.Info(
		"registered action code",
		"component", "actioncode",
		"code_hash", lookupKey,
		"chain", string(params.Chain),
	)
	return &RegisterResult{
		CodeHash:           lookupKey,
		Status:             StatusPending,
		Timestamp:          timestamp,
		ExpiresAt:          rec.ExpiresAt(m.codeTTL),
		RemainingInSeconds: remainingSeconds(remaining),
	}, nil
}

// ResolveResult is the full record projection returned by Resolve
type ResolveResult struct {
	Metadata           map[string]any
	Transaction        *TransactionPayload
	CodeHash           string
	Pubkey             string
	Prefix             string
	Chain              Chain
	Status             Status
	Timestamp          int64
	ExpiresAt          int64
	RemainingInSeconds int64
}

// Resolve looks up and opens the record for a code. It never mutates
// the record: a logically expired record still resolves, reporting
// status expired with zero remaining time, and the stored bytes are
// left for the store's TTL eviction to reap.
func (m *Manager) Resolve(
	ctx context.Context,
	code string,
) (*ResolveResult, error) {
	if code == "" {
		return nil, m.fail(
			"resolve",
			ErrInvalidPayload.WithMessage("code is required"),
		)
	}
	rec, err := m.fetchRecord(ctx, code)
	if err != nil {
		return nil, m.fail("resolve", err)
	}
	now := m.now()
	return &ResolveResult{
		CodeHash:           codec.DeriveLookupKey(code),
		Pubkey:             rec.Pubkey,
		Chain:              rec.Chain,
		Prefix:             rec.Prefix,
		Status:             rec.StatusAt(now, m.codeTTL),
		Timestamp:          rec.Timestamp,
		ExpiresAt:          rec.ExpiresAt(m.codeTTL),
		RemainingInSeconds: remainingSeconds(rec.Remaining(now, m.codeTTL)),
		Transaction:        rec.Transaction,
		Metadata:           rec.Metadata,
	}, nil
}

// AttachParams are the inputs to Attach
type AttachParams struct {
	Metadata    map[string]any
	Code        string
	Chain       Chain
	Transaction string
	Message     string
	Intent      IntentType
}

// AttachResult is the projection returned by Attach
type AttachResult struct {
	CodeHash       string
	Status         Status
	Chain          Chain
	ExpiresAt      int64
	HasTransaction bool
	HasMessage     bool
}

// Attach binds a transaction or sign-only message to a registered
// code. The read, validation, and write happen in one store update,
// so of two concurrent attaches exactly one succeeds and the other
// fails with TX_ALREADY_ATTACHED. Attaching never extends the code's
// lifetime.
func (m *Manager) Attach(
	ctx context.Context,
	params AttachParams,
) (*AttachResult, error) {
	intent, err := normalizeIntent(params)
	if err != nil {
		return nil, m.fail("attach", err)
	}
	adapter, ok := m.lookupAdapter(params.Chain)
	if !ok {
		return nil, m.fail("attach", ErrAdapterNotFound)
	}
	now := m.now()
	var result *AttachResult
	var updatedRec *Record
	err = m.store.Update(
		ctx,
		codec.DeriveLookupKey(params.Code),
		func(current []byte) ([]byte, time.Duration, error) {
			if current == nil {
				return nil, 0, ErrCodeNotFound
			}
			rec, err := m.openRecord(current, params.Code)
			if err != nil {
				return nil, 0, err
			}
			if rec.Expired(now, m.codeTTL) {
				return nil, 0, ErrCodeExpired
			}
			if rec.Chain != params.Chain {
				return nil, 0, ErrInvalidPayload.WithMessage(
					"chain does not match registration",
				)
			}
			if rec.Transaction != nil {
				return nil, 0, ErrTxAlreadyAttached
			}
			payload, err := adapter.AttachTransaction(ctx, rec, intent)
			if err != nil {
				var lcErr *Error
				if errors.As(err, &lcErr) {
					return nil, 0, lcErr
				}
				m.logger.Debug(
					"adapter rejected attach payload",
					"component", "actioncode",
					"chain", string(params.Chain),
					"error", err,
				)
				return nil, 0, ErrInvalidPayload.WithMessage(
					"transaction payload rejected",
				)
			}
			rec.Transaction = payload
			rec.Metadata = mergeMetadata(rec.Metadata, params.Metadata)
			sealed, err := m.sealRecord(rec)
			if err != nil {
				return nil, 0, err
			}
			updatedRec = rec
			result = &AttachResult{
				CodeHash:       codec.DeriveLookupKey(params.Code),
				Status:         StatusActive,
				Chain:          rec.Chain,
				ExpiresAt:      rec.ExpiresAt(m.codeTTL),
				HasTransaction: rec.HasTransaction(),
				HasMessage:     rec.HasMessage(),
			}
			return sealed, rec.Remaining(now, m.codeTTL), nil
		},
	)
	if err != nil {
		return nil, m.fail("attach", m.mapStoreError(err))
	}
	m.publish(AttachedEventType, updatedRec, StatusActive)
	if m.metrics.attached != nil {
		m.metrics.attached.Inc()
	}
	m.logger.Info(
		"attached transaction",
		"component", "actioncode",
		"code_hash", result.CodeHash,
		"chain", string(result.Chain),
		"intent", string(intent.Type),
	)
	return result, nil
}

// FinalizeParams are the inputs to Finalize
type FinalizeParams struct {
	Code          string
	Signature     string
	SignedMessage string
}

// FinalizeResult is the projection returned by Finalize
type FinalizeResult struct {
	CodeHash           string
	FinalizedSignature string
	Status             Status
	ExpiresAt          int64
}

// Finalize stamps a finalize proof onto an attached record after the
// chain adapter verifies it. Like Attach, the whole transition is one
// store update and is one-shot: a second finalize fails with
// TX_ALREADY_ATTACHED.
func (m *Manager) Finalize(
	ctx context.Context,
	params FinalizeParams,
) (*FinalizeResult, error) {
	if params.Code == "" {
		return nil, m.fail(
			"finalize",
			ErrInvalidPayload.WithMessage("code is required"),
		)
	}
	if params.Signature == "" && params.SignedMessage == "" {
		return nil, m.fail(
			"finalize",
			ErrInvalidPayload.WithMessage(
				"signature or signedMessage is required",
			),
		)
	}
	now := m.now()
	var result *FinalizeResult
	var updatedRec *Record
	err := m.store.Update(
		ctx,
		codec.DeriveLookupKey(params.Code),
		func(current []byte) ([]byte, time.Duration, error) {
			if current == nil {
				return nil, 0, ErrCodeNotFound
			}
			rec, err := m.openRecord(current, params.Code)
			if err != nil {
				return nil, 0, err
			}
			if rec.Expired(now, m.codeTTL) {
				return nil, 0, ErrCodeExpired
			}
			if rec.Transaction == nil {
				return nil, 0, ErrTxMissing
			}
			if rec.Finalized() {
				return nil, 0, ErrTxAlreadyAttached.WithMessage(
					"action code already finalized",
				)
			}
			adapter, ok := m.lookupAdapter(rec.Chain)
			if !ok {
				return nil, 0, ErrAdapterNotFound
			}
			var proof string
			switch {
			case rec.HasMessage():
				if params.SignedMessage == "" {
					return nil, 0, ErrInvalidPayload.WithMessage(
						"signedMessage is required for sign-only codes",
					)
				}
				if err := adapter.VerifySignedMessage(
					ctx,
					rec,
					params.SignedMessage,
				); err != nil {
					m.logFinalizeReject(rec.Chain, err)
					return nil, 0, ErrSignatureInvalid
				}
				rec.Transaction.SignedMessage = params.SignedMessage
				proof = params.SignedMessage
			default:
				if params.Signature == "" {
					return nil, 0, ErrInvalidPayload.WithMessage(
						"signature is required for transaction codes",
					)
				}
				if err := adapter.VerifyFinalized(
					ctx,
					rec,
					params.Signature,
				); err != nil {
					m.logFinalizeReject(rec.Chain, err)
					return nil, 0, ErrSignatureInvalid
				}
				rec.Transaction.TxSignature = params.Signature
				proof = params.Signature
			}
			sealed, err := m.sealRecord(rec)
			if err != nil {
				return nil, 0, err
			}
			updatedRec = rec
			result = &FinalizeResult{
				CodeHash:           codec.DeriveLookupKey(params.Code),
				FinalizedSignature: proof,
				Status:             StatusFinalized,
				ExpiresAt:          rec.ExpiresAt(m.codeTTL),
			}
			return sealed, rec.Remaining(now, m.codeTTL), nil
		},
	)
	if err != nil {
		return nil, m.fail("finalize", m.mapStoreError(err))
	}
	m.publish(FinalizedEventType, updatedRec, StatusFinalized)
	if m.metrics.finalized != nil {
		m.metrics.finalized.Inc()
	}
	m.logger.Info(
		"finalized action code",
		"component", "actioncode",
		"code_hash", result.CodeHash,
	)
	return result, nil
}

// StatusResult is the minimal projection returned by Status. It
// deliberately excludes metadata and transaction contents.
type StatusResult struct {
	CodeHash           string
	Status             Status
	SignedMessage      string
	FinalizedSignature string
	ExpiresAt          int64
	HasTransaction     bool
	HasMessage         bool
}

// Status reports the lifecycle state of a code without mutating it.
// The status enum is derived from transaction and signature presence
// only; callers judge expiry from the reported expiresAt.
func (m *Manager) Status(
	ctx context.Context,
	code string,
) (*StatusResult, error) {
	if code == "" {
		return nil, m.fail(
			"status",
			ErrInvalidPayload.WithMessage("code is required"),
		)
	}
	rec, err := m.fetchRecord(ctx, code)
	if err != nil {
		return nil, m.fail("status", err)
	}
	result := &StatusResult{
		CodeHash:       codec.DeriveLookupKey(code),
		Status:         rec.PresenceStatus(),
		ExpiresAt:      rec.ExpiresAt(m.codeTTL),
		HasTransaction: rec.HasTransaction(),
		HasMessage:     rec.HasMessage(),
	}
	if rec.Transaction != nil {
		result.SignedMessage = rec.Transaction.SignedMessage
		result.FinalizedSignature = rec.Transaction.TxSignature
	}
	return result, nil
}

// fetchRecord gets and opens the sealed record for a code. A missing
// key and an undecryptable record are both surfaced as CODE_NOT_FOUND
// territory by construction: a wrong code derives a different lookup
// key entirely.
func (m *Manager) fetchRecord(
	ctx context.Context,
	code string,
) (*Record, error) {
	sealed, err := m.store.Get(ctx, codec.DeriveLookupKey(code))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrCodeNotFound
		}
		m.logger.Error(
			"record store read failed",
			"component", "actioncode",
			"error", err,
		)
		return nil, ErrUnknown
	}
	return m.openRecord(sealed, code)
}

func (m *Manager) openRecord(sealed []byte, code string) (*Record, error) {
	plaintext, err := codec.Open(string(sealed), code)
	if err != nil {
		return nil, ErrInvalidPayload.WithMessage(
			"stored record could not be opened",
		)
	}
	var rec Record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return nil, ErrInvalidPayload.WithMessage(
			"stored record could not be decoded",
		)
	}
	return &rec, nil
}

func (m *Manager) sealRecord(rec *Record) ([]byte, error) {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	sealed, err := codec.Seal(plaintext, rec.Code)
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

func (m *Manager) lookupAdapter(chain Chain) (Adapter, bool) {
	if m.adapters == nil {
		return nil, false
	}
	return m.adapters.Lookup(chain)
}

// mapStoreError keeps taxonomy errors intact and maps store-level
// failures to UNKNOWN_ERROR. Badger transaction conflicts get a
// retryable message since the caller lost a write race.
func (m *Manager) mapStoreError(err error) error {
	var lcErr *Error
	if errors.As(err, &lcErr) {
		return lcErr
	}
	if errors.Is(err, store.ErrConflict) {
		return ErrUnknown.WithMessage(
			"concurrent modification, please retry",
		)
	}
	m.logger.Error(
		"record store update failed",
		"component", "actioncode",
		"error", err,
	)
	return ErrUnknown
}

func (m *Manager) fail(operation string, err error) error {
	lcErr := NormalizeError(err)
	if m.metrics.failures != nil {
		m.metrics.failures.WithLabelValues(
			operation,
			string(lcErr.Kind),
		).Inc()
	}
	return lcErr
}

func (m *Manager) publish(
	eventType event.EventType,
	rec *Record,
	status Status,
) {
	if m.eventBus == nil || rec == nil {
		return
	}
	m.eventBus.Publish(
		eventType,
		event.NewEvent(
			eventType,
			LifecycleEvent{
				CodeHash:  codec.DeriveLookupKey(rec.Code),
				Chain:     rec.Chain,
				Status:    status,
				Timestamp: m.now().UnixMilli(),
			},
		),
	)
}

func (m *Manager) logFinalizeReject(chain Chain, err error) {
	m.logger.Debug(
		"finalize proof rejected",
		"component", "actioncode",
		"chain", string(chain),
		"error", err,
	)
}

func normalizeIntent(params AttachParams) (Intent, error) {
	if params.Code == "" {
		return Intent{}, ErrInvalidPayload.WithMessage("code is required")
	}
	intentType := params.Intent
	if intentType == "" {
		intentType = IntentTransaction
	}
	switch intentType {
	case IntentTransaction:
		if params.Transaction == "" {
			return Intent{}, ErrInvalidPayload.WithMessage(
				"transaction is required for transaction intent",
			)
		}
	case IntentSignOnly:
		if params.Message == "" {
			return Intent{}, ErrInvalidPayload.WithMessage(
				"message is required for sign-only intent",
			)
		}
	default:
		return Intent{}, ErrInvalidPayload.WithMessage("unknown intent type")
	}
	return Intent{
		Type:        intentType,
		Transaction: params.Transaction,
		Message:     params.Message,
	}, nil
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return base
	}
	if base == nil {
		base = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// remainingSeconds rounds a remaining duration up to whole seconds so
// a freshly registered code reports its full lifetime
func remainingSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
