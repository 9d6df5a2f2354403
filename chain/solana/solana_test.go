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

package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/quoll/actioncode"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateWallet(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub), priv
}

func signedRegistration(
	t *testing.T,
	pubkey string,
	priv ed25519.PrivateKey,
) actioncode.Registration {
	t.Helper()
	reg := actioncode.Registration{
		Code:      "12345678",
		Pubkey:    pubkey,
		Timestamp: 1756339200000,
	}
	sig := ed25519.Sign(priv, []byte(RegistrationMessage(reg)))
	reg.Signature = base58.Encode(sig)
	return reg
}

func TestVerifyRegistration(t *testing.T) {
	adapter := New(Config{})
	pubkey, priv := generateWallet(t)

	reg := signedRegistration(t, pubkey, priv)
	assert.NoError(t, adapter.VerifyRegistration(t.Context(), reg))
}

func TestVerifyRegistrationWrongKey(t *testing.T) {
	adapter := New(Config{})
	pubkey, _ := generateWallet(t)
	_, otherPriv := generateWallet(t)

	reg := signedRegistration(t, pubkey, otherPriv)
	assert.Error(t, adapter.VerifyRegistration(t.Context(), reg))
}

func TestVerifyRegistrationTamperedMessage(t *testing.T) {
	adapter := New(Config{})
	pubkey, priv := generateWallet(t)

	reg := signedRegistration(t, pubkey, priv)
	reg.Code = "87654321"
	assert.Error(t, adapter.VerifyRegistration(t.Context(), reg))
}

func TestVerifyRegistrationMalformed(t *testing.T) {
	adapter := New(Config{})

	err := adapter.VerifyRegistration(
		t.Context(),
		actioncode.Registration{
			Code:      "12345678",
			Pubkey:    "not-base58-!!!",
			Signature: "bogus",
		},
	)
	assert.Error(t, err)
}

func TestRegistrationMessagePrefix(t *testing.T) {
	reg := actioncode.Registration{
		Code:      "12345678",
		Pubkey:    "pubkey",
		Timestamp: 1000,
	}
	assert.Equal(
		t,
		"DEFAULT:12345678:pubkey:1000",
		RegistrationMessage(reg),
	)
	reg.Prefix = "MERCHANT"
	assert.Equal(
		t,
		"MERCHANT:12345678:pubkey:1000",
		RegistrationMessage(reg),
	)
}

func TestAttachTransaction(t *testing.T) {
	adapter := New(Config{})
	rec := &actioncode.Record{Code: "12345678", Pubkey: "pubkey"}

	payload, err := adapter.AttachTransaction(
		t.Context(),
		rec,
		actioncode.Intent{
			Type:        actioncode.IntentTransaction,
			Transaction: "AQABAgME",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "AQABAgME", payload.Transaction)
	assert.Equal(t, "transaction", payload.TxType)
	assert.Empty(t, payload.ProtocolMeta)
}

func TestAttachTransactionInvalidBase64(t *testing.T) {
	adapter := New(Config{})
	rec := &actioncode.Record{Code: "12345678"}

	_, err := adapter.AttachTransaction(
		t.Context(),
		rec,
		actioncode.Intent{
			Type:        actioncode.IntentTransaction,
			Transaction: "not base64 !!!",
		},
	)
	assert.Error(t, err)
}

func TestAttachProtocolAnnotation(t *testing.T) {
	protocolPub, protocolPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	adapter := New(Config{ProtocolKey: protocolPriv})
	rec := &actioncode.Record{Code: "12345678", Pubkey: "pubkey"}

	payload, err := adapter.AttachTransaction(
		t.Context(),
		rec,
		actioncode.Intent{
			Type:        actioncode.IntentTransaction,
			Transaction: "AQABAgME",
		},
	)
	require.NoError(t, err)
	require.NotEmpty(t, payload.ProtocolMeta)
	assert.True(t, VerifyProtocolAnnotation(protocolPub, rec, payload))

	// Annotation binds the payload to the code
	otherRec := &actioncode.Record{Code: "87654321", Pubkey: "pubkey"}
	assert.False(t, VerifyProtocolAnnotation(protocolPub, otherRec, payload))
}

func TestVerifySignedMessage(t *testing.T) {
	adapter := New(Config{})
	pubkey, priv := generateWallet(t)
	rec := &actioncode.Record{
		Code:   "12345678",
		Pubkey: pubkey,
		Transaction: &actioncode.TransactionPayload{
			Message: "approve withdrawal",
		},
	}

	sig := base58.Encode(
		ed25519.Sign(priv, []byte("approve withdrawal")),
	)
	assert.NoError(t, adapter.VerifySignedMessage(t.Context(), rec, sig))

	badSig := base58.Encode(
		ed25519.Sign(priv, []byte("something else")),
	)
	assert.Error(t, adapter.VerifySignedMessage(t.Context(), rec, badSig))
}

func testTxSignature() string {
	sig := make([]byte, ed25519.SignatureSize)
	for i := range sig {
		sig[i] = byte(i)
	}
	return base58.Encode(sig)
}

func TestVerifyFinalizedNoEndpoint(t *testing.T) {
	adapter := New(Config{})
	rec := &actioncode.Record{Code: "12345678"}

	// Format check only when no RPC endpoint is configured
	assert.NoError(
		t,
		adapter.VerifyFinalized(t.Context(), rec, testTxSignature()),
	)
	assert.Error(t, adapter.VerifyFinalized(t.Context(), rec, "bogus"))
}

func TestVerifyFinalizedOnLedger(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(
				[]byte(
					`{"jsonrpc":"2.0","id":1,"result":{"value":[{"confirmationStatus":"finalized"}]}}`,
				),
			)
		}),
	)
	defer srv.Close()

	adapter := New(Config{RPCEndpoint: srv.URL})
	rec := &actioncode.Record{Code: "12345678"}
	assert.NoError(
		t,
		adapter.VerifyFinalized(t.Context(), rec, testTxSignature()),
	)
}

func TestVerifyFinalizedNotOnLedger(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(
				[]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":[null]}}`),
			)
		}),
	)
	defer srv.Close()

	adapter := New(Config{RPCEndpoint: srv.URL})
	rec := &actioncode.Record{Code: "12345678"}
	assert.Error(
		t,
		adapter.VerifyFinalized(t.Context(), rec, testTxSignature()),
	)
}

func TestVerifyFinalizedLedgerUnavailable(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)
	defer srv.Close()

	adapter := New(Config{RPCEndpoint: srv.URL})
	rec := &actioncode.Record{Code: "12345678"}
	assert.Error(
		t,
		adapter.VerifyFinalized(t.Context(), rec, testTxSignature()),
	)
}
