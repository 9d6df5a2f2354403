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

package cardano

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/blinklabs-io/quoll/actioncode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTransactionCBORHex is a mainnet shelley-era transaction
const testTransactionCBORHex = "83a50081825820377732953cbd7eb824e58291dd08599cfcfe6eedb49f590633610674fc3c33c50001818258390187acac5a3d0b41cd1c5e8c03af5be782f261f21beed70970ddee0873ae34f9d442c7f1a01de9f2dd520791122d6fbf3968c5f8328e9091331a597dbcf1021a0002fd99031a025c094a04828a03581c27b1b4470c84db78ce1ffbfff77bb068abb4e47d43cb6009caaa352358204a7537ce9eeaba1c650261f167827b4e12dd403c4bf13c56b2cba06288f7e9ab1a59682f001a1443fd00d81e82011864581de1ae34f9d442c7f1a01de9f2dd520791122d6fbf3968c5f8328e90913381581cae34f9d442c7f1a01de9f2dd520791122d6fbf3968c5f8328e9091338183011917706e33342e3139382e3234312e323336827468747470733a2f2f6769742e696f2f4a7543786e5820fa77d30bb41e2998233245d269ff5763ecf4371388214943ecef277cae45492783028200581cae34f9d442c7f1a01de9f2dd520791122d6fbf3968c5f8328e909133581c27b1b4470c84db78ce1ffbfff77bb068abb4e47d43cb6009caaa3523a10083825820922a22d07c0ca148105760cb767ece603574ea465d6697c87da8207c8936ebea58405594a100197379c0de715de0b5304e0546e661dae2f36b12173cc150a42215356a5600bf0c02954f02ce3620cfb7f12c23a19328fd00dd1194b4f363675ef407825820727c1891d01cf29ccd1146528221827dcf00a093498509404af77a8b15d77c925840f52e0e1403167212b11fe5d87b7cfdb2f39e5384979ac3625917127ad46763d864a7fcb7147c7b85322ada7ba8fe91c0b5152c74ef4ff0c8132b125e681af50382582073c16f2b67ff85307c4c5935bad1389b9ead473419dbad20f5d5e6436982992b58400572eed773b9a199fd486ebe61b480f05803d107ea97ff649f28b8874d3117f890f80657cbb6eea0d833c21e4e8bc7f1a27cddb9e24fc1ed79b04ddbdcd11d0ff6"

func generateWallet(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return hex.EncodeToString(pub), priv
}

func TestVerifyRegistration(t *testing.T) {
	adapter := New(Config{})
	pubkey, priv := generateWallet(t)

	reg := actioncode.Registration{
		Code:      "12345678",
		Pubkey:    pubkey,
		Timestamp: 1756339200000,
	}
	sig := ed25519.Sign(priv, []byte(RegistrationMessage(reg)))
	reg.Signature = hex.EncodeToString(sig)
	assert.NoError(t, adapter.VerifyRegistration(t.Context(), reg))

	reg.Code = "87654321"
	assert.Error(t, adapter.VerifyRegistration(t.Context(), reg))
}

func TestVerifyRegistrationMalformed(t *testing.T) {
	adapter := New(Config{})

	err := adapter.VerifyRegistration(
		t.Context(),
		actioncode.Registration{
			Code:      "12345678",
			Pubkey:    "not-hex",
			Signature: "bogus",
		},
	)
	assert.Error(t, err)
}

func TestAttachTransaction(t *testing.T) {
	adapter := New(Config{})
	rec := &actioncode.Record{Code: "12345678"}

	payload, err := adapter.AttachTransaction(
		t.Context(),
		rec,
		actioncode.Intent{
			Type:        actioncode.IntentTransaction,
			Transaction: testTransactionCBORHex,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, testTransactionCBORHex, payload.Transaction)
	assert.Equal(t, "transaction", payload.TxType)
}

func TestAttachTransactionInvalidCbor(t *testing.T) {
	adapter := New(Config{})
	rec := &actioncode.Record{Code: "12345678"}

	_, err := adapter.AttachTransaction(
		t.Context(),
		rec,
		actioncode.Intent{
			Type:        actioncode.IntentTransaction,
			Transaction: "deadbeef",
		},
	)
	assert.Error(t, err)
}

func TestVerifyFinalized(t *testing.T) {
	adapter := New(Config{})
	tx, err := decodeTransaction(testTransactionCBORHex)
	require.NoError(t, err)
	rec := &actioncode.Record{
		Code: "12345678",
		Transaction: &actioncode.TransactionPayload{
			Transaction: testTransactionCBORHex,
		},
	}

	assert.NoError(
		t,
		adapter.VerifyFinalized(t.Context(), rec, tx.Hash().String()),
	)
	assert.Error(
		t,
		adapter.VerifyFinalized(
			t.Context(),
			rec,
			"0000000000000000000000000000000000000000000000000000000000000000",
		),
	)
}

func TestVerifySignedMessage(t *testing.T) {
	adapter := New(Config{})
	pubkey, priv := generateWallet(t)
	rec := &actioncode.Record{
		Code:   "12345678",
		Pubkey: pubkey,
		Transaction: &actioncode.TransactionPayload{
			Message: "approve delegation",
		},
	}

	sig := hex.EncodeToString(
		ed25519.Sign(priv, []byte("approve delegation")),
	)
	assert.NoError(t, adapter.VerifySignedMessage(t.Context(), rec, sig))

	badSig := hex.EncodeToString(
		ed25519.Sign(priv, []byte("something else")),
	)
	assert.Error(t, adapter.VerifySignedMessage(t.Context(), rec, badSig))
}
