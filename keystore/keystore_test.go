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

package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFile(
	t *testing.T,
	seed []byte,
	mode os.FileMode,
) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocol.key")
	require.NoError(
		t,
		os.WriteFile(path, []byte(hex.EncodeToString(seed)), mode),
	)
	return path
}

func TestLoadFromFile(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	path := writeKeyFile(t, priv.Seed(), 0o600)

	ks := NewKeyStore(KeyStoreConfig{ProtocolKeyPath: path})
	require.False(t, ks.IsLoaded())
	require.NoError(t, ks.LoadFromFile())
	assert.True(t, ks.IsLoaded())
	assert.Equal(t, pub, ks.ProtocolPubkey())
	assert.Equal(t, priv, ks.ProtocolKey())
}

func TestLoadFromFileInsecurePermissions(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	path := writeKeyFile(t, priv.Seed(), 0o644)

	ks := NewKeyStore(KeyStoreConfig{ProtocolKeyPath: path})
	err = ks.LoadFromFile()
	assert.ErrorIs(t, err, ErrInsecureFileMode)
	assert.False(t, ks.IsLoaded())
}

func TestLoadFromFileMissing(t *testing.T) {
	ks := NewKeyStore(KeyStoreConfig{
		ProtocolKeyPath: filepath.Join(t.TempDir(), "no-such.key"),
	})
	assert.Error(t, ks.LoadFromFile())
}

func TestLoadFromFileBadContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocol.key")
	require.NoError(
		t,
		os.WriteFile(path, []byte("not hex at all"), 0o600),
	)

	ks := NewKeyStore(KeyStoreConfig{ProtocolKeyPath: path})
	assert.Error(t, ks.LoadFromFile())
}

func TestLoadFromFileWrongSize(t *testing.T) {
	path := writeKeyFile(t, []byte{0x01, 0x02, 0x03}, 0o600)

	ks := NewKeyStore(KeyStoreConfig{ProtocolKeyPath: path})
	assert.Error(t, ks.LoadFromFile())
}

func TestProtocolKeyNotLoaded(t *testing.T) {
	ks := NewKeyStore(KeyStoreConfig{})
	assert.Nil(t, ks.ProtocolKey())
	assert.Nil(t, ks.ProtocolPubkey())
}
