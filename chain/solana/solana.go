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

// Package solana implements the lifecycle adapter for Solana wallets.
// Ownership proofs are ed25519 signatures over a canonical
// registration message, with keys and signatures in base58.
package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/blinklabs-io/quoll/actioncode"
	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	// DefaultPrefix is the registration message prefix used when a
	// client doesn't supply one
	DefaultPrefix = "DEFAULT"

	// DefaultRPCTimeout bounds ledger confirmation queries
	DefaultRPCTimeout = 5 * time.Second

	txTypeTransaction = "transaction"
	txTypeSignOnly    = "sign-only"
)

// Config is the configuration for the Solana adapter
type Config struct {
	Logger *slog.Logger
	// HTTPClient overrides the default ledger query client
	HTTPClient *http.Client
	// RPCEndpoint is the JSON-RPC endpoint used to confirm finalized
	// transactions on the ledger. When empty, finalize proofs are
	// checked for well-formedness only.
	RPCEndpoint string
	// ProtocolKey annotates attached transactions with a relay
	// signature when set
	ProtocolKey ed25519.PrivateKey
	RPCTimeout  time.Duration
}

// Solana is the Solana lifecycle adapter
type Solana struct {
	logger      *slog.Logger
	httpClient  *http.Client
	rpcEndpoint string
	protocolKey ed25519.PrivateKey
}

// New creates a new Solana adapter
func New(cfg Config) *Solana {
	s := &Solana{
		logger:      cfg.Logger,
		httpClient:  cfg.HTTPClient,
		rpcEndpoint: cfg.RPCEndpoint,
		protocolKey: cfg.ProtocolKey,
	}
	if s.logger == nil {
		// Create logger to throw away by default
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.httpClient == nil {
		rpcTimeout := cfg.RPCTimeout
		if rpcTimeout <= 0 {
			rpcTimeout = DefaultRPCTimeout
		}
		s.httpClient = &http.Client{Timeout: rpcTimeout}
	}
	return s
}

// RegistrationMessage builds the canonical message a wallet signs to
// prove ownership of a code. Wallet integrations must produce this
// exact string.
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
func (s *Solana) VerifyRegistration(
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

// AttachTransaction validates an attach intent and returns the
// payload to persist. Transactions must be valid base64; when a
// protocol key is configured, the payload is annotated with a relay
// signature binding it to the code.
func (s *Solana) AttachTransaction(
	ctx context.Context,
	rec *actioncode.Record,
	intent actioncode.Intent,
) (*actioncode.TransactionPayload, error) {
	payload := &actioncode.TransactionPayload{}
	switch intent.Type {
	case actioncode.IntentTransaction:
		if _, err := base64.StdEncoding.DecodeString(
			intent.Transaction,
		); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		payload.Transaction = intent.Transaction
		payload.TxType = txTypeTransaction
	case actioncode.IntentSignOnly:
		payload.Message = intent.Message
		payload.TxType = txTypeSignOnly
	default:
		return nil, fmt.Errorf("unknown intent type %q", intent.Type)
	}
	if s.protocolKey != nil {
		payload.ProtocolMeta = s.protocolAnnotation(rec, payload)
	}
	return payload, nil
}

// protocolAnnotation signs the attached payload with the relay's
// protocol key so wallets can check the transaction came through the
// relay
func (s *Solana) protocolAnnotation(
	rec *actioncode.Record,
	payload *actioncode.TransactionPayload,
) string {
	content := payload.Transaction
	if content == "" {
		content = payload.Message
	}
	msg := fmt.Sprintf("%s:%s:%s", rec.Code, rec.Pubkey, content)
	return base58.Encode(ed25519.Sign(s.protocolKey, []byte(msg)))
}

// VerifyProtocolAnnotation checks a payload annotation against a
// protocol public key. Exposed for wallet-side verification and
// tests.
func VerifyProtocolAnnotation(
	protocolPubkey ed25519.PublicKey,
	rec *actioncode.Record,
	payload *actioncode.TransactionPayload,
) bool {
	content := payload.Transaction
	if content == "" {
		content = payload.Message
	}
	msg := fmt.Sprintf("%s:%s:%s", rec.Code, rec.Pubkey, content)
	return ed25519.Verify(
		protocolPubkey,
		[]byte(msg),
		base58.Decode(payload.ProtocolMeta),
	)
}

// VerifyFinalized checks a transaction signature proof. With an RPC
// endpoint configured the signature must be visible on the ledger;
// transport failures count as verification failures.
func (s *Solana) VerifyFinalized(
	ctx context.Context,
	rec *actioncode.Record,
	txSignature string,
) error {
	if _, err := decodeSignature(txSignature); err != nil {
		return err
	}
	if s.rpcEndpoint == "" {
		return nil
	}
	found, err := s.querySignatureStatus(ctx, txSignature)
	if err != nil {
		return fmt.Errorf("ledger query: %w", err)
	}
	if !found {
		return fmt.Errorf("signature %s not found on ledger", txSignature)
	}
	return nil
}

// VerifySignedMessage checks the wallet's signature over the attached
// sign-only message
func (s *Solana) VerifySignedMessage(
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

type rpcRequest struct {
	Params  []any  `json:"params"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Id      int    `json:"id"`
}

type rpcResponse struct {
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
	Result struct {
		Value []*struct {
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	} `json:"result"`
}

func (s *Solana) querySignatureStatus(
	ctx context.Context,
	txSignature string,
) (bool, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Id:      1,
		Method:  "getSignatureStatuses",
		Params: []any{
			[]string{txSignature},
			map[string]bool{"searchTransactionHistory": true},
		},
	})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.rpcEndpoint,
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return false, err
	}
	if rpcResp.Error != nil {
		return false, fmt.Errorf("rpc error: %s", rpcResp.Error.Message)
	}
	if len(rpcResp.Result.Value) == 0 ||
		rpcResp.Result.Value[0] == nil {
		return false, nil
	}
	return true, nil
}

func decodePubkey(pubkey string) (ed25519.PublicKey, error) {
	decoded := base58.Decode(pubkey)
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid pubkey %q", pubkey)
	}
	return ed25519.PublicKey(decoded), nil
}

func decodeSignature(sig string) ([]byte, error) {
	decoded := base58.Decode(sig)
	if len(decoded) != ed25519.SignatureSize {
		return nil, fmt.Errorf("invalid signature %q", sig)
	}
	return decoded, nil
}
