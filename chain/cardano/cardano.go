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

// Package cardano implements the lifecycle adapter for Cardano
// wallets. Keys and signatures are hex-encoded ed25519; attached
// transactions are CBOR envelopes validated against the known ledger
// eras.
package cardano

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	gledger "github.com/blinklabs-io/gouroboros/ledger"
	"github.com/blinklabs-io/quoll/actioncode"
)

const (
	// DefaultPrefix is the registration message prefix used when a
	// client doesn't supply one
	DefaultPrefix = "DEFAULT"

	txTypeTransaction = "transaction"
	txTypeSignOnly    = "sign-only"
)

// Config is the configuration for the Cardano adapter
type Config struct {
	Logger *slog.Logger
}

// Cardano is the Cardano lifecycle adapter
type Cardano struct {
	logger *slog.Logger
}

// New creates a new Cardano adapter
func New(cfg Config) *Cardano {
	c := &Cardano{
		logger: cfg.Logger,
	}
	if c.logger == nil {
		// Create logger to throw away by default
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return c
}

// RegistrationMessage builds the canonical message a wallet signs to
// prove ownership of a code
func RegistrationMessage(reg actioncode.Registration) string {
	prefix := reg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf(
		"%s:%s:%s:%d",
		prefix,
		reg.Code,
		reg.Pubkey,
		reg.Timestamp,
	)
}

// VerifyRegistration checks the wallet's ed25519 signature over the
// canonical registration message
func (c *Cardano) VerifyRegistration(
	ctx context.Context,
	reg actioncode.Registration,
) error {
	pubkey, err := decodePubkey(reg.Pubkey)
	if err != nil {
		return err
	}
	sig, err := decodeSignature(reg.Signature)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pubkey, []byte(RegistrationMessage(reg)), sig) {
		return fmt.Errorf("signature does not match pubkey %s", reg.Pubkey)
	}
	return nil
}

// AttachTransaction validates an attach intent. Transactions must be
// hex-encoded CBOR parseable as a known-era transaction.
func (c *Cardano) AttachTransaction(
	ctx context.Context,
	rec *actioncode.Record,
	intent actioncode.Intent,
) (*actioncode.TransactionPayload, error) {
	payload := &actioncode.TransactionPayload{}
	switch intent.Type {
	case actioncode.IntentTransaction:
		tx, err := decodeTransaction(intent.Transaction)
		if err != nil {
			return nil, err
		}
		c.logger.Debug(
			"validated attached transaction",
			"component", "chain.cardano",
			"tx_hash", tx.Hash().String(),
		)
		payload.Transaction = intent.Transaction
		payload.TxType = txTypeTransaction
	case actioncode.IntentSignOnly:
		payload.Message = intent.Message
		payload.TxType = txTypeSignOnly
	default:
		return nil, fmt.Errorf("unknown intent type %q", intent.Type)
	}
	return payload, nil
}

// VerifyFinalized checks a finalize proof for an attached
// transaction. The proof is the hex-encoded transaction hash, which
// must match the hash of the attached CBOR.
func (c *Cardano) VerifyFinalized(
	ctx context.Context,
	rec *actioncode.Record,
	txSignature string,
) error {
	if rec.Transaction == nil || rec.Transaction.Transaction == "" {
		return fmt.Errorf("record has no attached transaction")
	}
	tx, err := decodeTransaction(rec.Transaction.Transaction)
	if err != nil {
		return fmt.Errorf("decode attached transaction: %w", err)
	}
	if !strings.EqualFold(txSignature, tx.Hash().String()) {
		return fmt.Errorf(
			"transaction hash mismatch: %s != %s",
			txSignature,
			tx.Hash().String(),
		)
	}
	return nil
}

// VerifySignedMessage checks the wallet's signature over the attached
// sign-only message
func (c *Cardano) VerifySignedMessage(
	ctx context.Context,
	rec *actioncode.Record,
	signedMessage string,
) error {
	if rec.Transaction == nil || rec.Transaction.Message == "" {
		return fmt.Errorf("record has no attached message")
	}
	pubkey, err := decodePubkey(rec.Pubkey)
	if err != nil {
		return err
	}
	sig, err := decodeSignature(signedMessage)
	if err != nil {
		return err
	}
	if !ed25519.Verify(
		pubkey,
		[]byte(rec.Transaction.Message),
		sig,
	) {
		return fmt.Errorf("signed message does not match pubkey %s", rec.Pubkey)
	}
	return nil
}

func decodeTransaction(txHex string) (gledger.Transaction, error) {
	txRawBytes, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("decode transaction hex: %w", err)
	}
	txType, err := gledger.DetermineTransactionType(txRawBytes)
	if err != nil {
		return nil, fmt.Errorf("determine tx type: %w", err)
	}
	tx, err := gledger.NewTransactionFromCbor(txType, txRawBytes)
	if err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	return tx, nil
}

func decodePubkey(pubkey string) (ed25519.PublicKey, error) {
	decoded, err := hex.DecodeString(pubkey)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid pubkey %q", pubkey)
	}
	return ed25519.PublicKey(decoded), nil
}

func decodeSignature(sig string) ([]byte, error) {
	decoded, err := hex.DecodeString(sig)
	if err != nil || len(decoded) != ed25519.SignatureSize {
		return nil, fmt.Errorf("invalid signature %q", sig)
	}
	return decoded, nil
}
