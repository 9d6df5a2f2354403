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

package actioncode

import "time"

// Chain identifies the blockchain an action code is bound to.
type Chain string

const (
	ChainSolana  Chain = "solana"
	ChainCardano Chain = "cardano"
)

// Status is the derived lifecycle state of an action code. It is
// never persisted as authoritative; it is recomputed from record
// contents (and, where relevant, the clock) on every read.
type Status string

const (
	// StatusPending means no transaction or message is attached yet
	StatusPending Status = "pending"
	// StatusActive means a transaction or message is attached but not
	// yet finalized
	StatusActive Status = "active"
	// StatusFinalized means a finalize proof has been stamped
	StatusFinalized Status = "finalized"
	// StatusExpired means the code's lifetime has elapsed
	StatusExpired Status = "expired"
)

// IntentType selects what an attach call binds to the code.
type IntentType string

const (
	IntentTransaction IntentType = "transaction"
	IntentSignOnly    IntentType = "sign-only"
)

// TransactionPayload is the nested transaction/message value attached
// to a record. Exactly one of Transaction or Message is set, depending
// on the attach intent. TxSignature and SignedMessage are only set at
// finalize.
type TransactionPayload struct {
	Transaction   string `json:"transaction,omitempty"`
	TxType        string `json:"txType,omitempty"`
	ProtocolMeta  string `json:"protocolMeta,omitempty"`
	TxSignature   string `json:"txSignature,omitempty"`
	Message       string `json:"message,omitempty"`
	SignedMessage string `json:"signedMessage,omitempty"`
}

// Record is the persisted action code entity. It only ever exists in
// the store sealed under the raw code; the raw code itself is never
// stored in cleartext or used directly as a key.
type Record struct {
	Code        string              `json:"code"`
	Pubkey      string              `json:"pubkey"`
	Chain       Chain               `json:"chain"`
	Prefix      string              `json:"prefix,omitempty"`
	Signature   string              `json:"signature"`
	Timestamp   int64               `json:"timestamp"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

// ExpiresAt returns the logical expiry instant in epoch milliseconds.
// It is always anchored to the original registration timestamp; later
// writes never move it.
func (r *Record) ExpiresAt(ttl time.Duration) int64 {
	return r.Timestamp + ttl.Milliseconds()
}

// Remaining returns the time left before logical expiry, floored at
// zero.
func (r *Record) Remaining(now time.Time, ttl time.Duration) time.Duration {
	remaining := r.ExpiresAt(ttl) - now.UnixMilli()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining) * time.Millisecond
}

// Expired reports whether the code's lifetime has elapsed. Exactly at
// expiry counts as expired. This is time-derived: a record may still
// be physically present in the store after its logical expiry.
func (r *Record) Expired(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli() >= r.ExpiresAt(ttl)
}

// HasTransaction reports whether a transaction payload is attached
func (r *Record) HasTransaction() bool {
	return r.Transaction != nil && r.Transaction.Transaction != ""
}

// HasMessage reports whether a sign-only message is attached
func (r *Record) HasMessage() bool {
	return r.Transaction != nil && r.Transaction.Message != ""
}

// Finalized reports whether a finalize proof has been stamped
func (r *Record) Finalized() bool {
	if r.Transaction == nil {
		return false
	}
	return r.Transaction.TxSignature != "" ||
		r.Transaction.SignedMessage != ""
}

// PresenceStatus derives the status enum purely from transaction and
// signature presence, ignoring expiry. This is the projection used by
// the status operation, which reports expiry only via expiresAt.
func (r *Record) PresenceStatus() Status {
	switch {
	case r.Finalized():
		return StatusFinalized
	case r.Transaction != nil:
		return StatusActive
	default:
		return StatusPending
	}
}

// StatusAt derives the full status including expiry
func (r *Record) StatusAt(now time.Time, ttl time.Duration) Status {
	if r.Expired(now, ttl) {
		return StatusExpired
	}
	return r.PresenceStatus()
}
