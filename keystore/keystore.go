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

// Package keystore loads the relay's protocol signing key. The key is
// used by chain adapters to annotate attached transactions so wallets
// can verify they came through the relay. Key files may be plain hex
// seeds or sops-encrypted.
package keystore

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/getsops/sops/v3/decrypt"
)

// Common errors returned by KeyStore operations.
var (
	ErrKeyNotLoaded     = errors.New("protocol key not loaded")
	ErrInsecureFileMode = errors.New("insecure file permissions")
)

// KeyStoreConfig holds configuration for the KeyStore.
type KeyStoreConfig struct {
	// Logger for keystore events.
	Logger *slog.Logger
	// ProtocolKeyPath is the path to the protocol signing key file.
	ProtocolKeyPath string
}

// KeyStore holds the relay's protocol signing key.
type KeyStore struct {
	config      KeyStoreConfig
	logger      *slog.Logger
	protocolKey ed25519.PrivateKey
	mu          sync.RWMutex
}

// NewKeyStore creates a new KeyStore with the given configuration.
func NewKeyStore(config KeyStoreConfig) *KeyStore {
	if config.Logger == nil {
		// Create logger to throw away by default
		config.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &KeyStore{
		config: config,
		logger: config.Logger.With("component", "keystore"),
	}
}

// LoadFromFile loads the protocol key from the configured file path.
// Security: verifies file permissions are not group/other readable.
func (ks *KeyStore) LoadFromFile() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	key, err := loadKeyFromFile(ks.config.ProtocolKeyPath)
	if err != nil {
		return err
	}
	ks.protocolKey = key
	ks.logger.Info(
		"protocol key loaded",
		"pubkey", hex.EncodeToString(
			key.Public().(ed25519.PublicKey),
		),
	)
	return nil
}

// IsLoaded returns true if the protocol key has been loaded.
func (ks *KeyStore) IsLoaded() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.protocolKey != nil
}

// ProtocolKey returns a copy of the protocol signing key. Returns nil
// if not loaded.
func (ks *KeyStore) ProtocolKey() ed25519.PrivateKey {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.protocolKey == nil {
		return nil
	}
	// Defensive copy to prevent modification of internal state
	return ed25519.PrivateKey(bytes.Clone(ks.protocolKey))
}

// ProtocolPubkey returns the protocol verification key. Returns nil
// if not loaded.
func (ks *KeyStore) ProtocolPubkey() ed25519.PublicKey {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.protocolKey == nil {
		return nil
	}
	return ks.protocolKey.Public().(ed25519.PublicKey)
}

// loadKeyFromFile reads and parses a protocol key file. The file
// holds a hex-encoded ed25519 seed, optionally sops-encrypted.
func loadKeyFromFile(path string) (ed25519.PrivateKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()

	if err := checkOpenFilePermissions(f); err != nil {
		return nil, err
	}

	// Limit read to 1 MiB to guard against accidentally pointing at a
	// large file. Valid key files are well under this size.
	const maxKeyFileSize = 1 << 20
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	// sops-encrypted key files are JSON documents with a sops metadata
	// section
	if bytes.Contains(data, []byte(`"sops"`)) {
		decrypted, err := decrypt.Data(data, "binary")
		if err != nil {
			return nil, fmt.Errorf(
				"failed to decrypt key file %q: %w",
				path,
				err,
			)
		}
		data = decrypted
	}
	seed, err := hex.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"invalid protocol key size: expected %d, got %d",
			ed25519.SeedSize,
			len(seed),
		)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// checkOpenFilePermissions verifies permissions on an already-opened
// file using fstat to avoid TOCTOU races between permission check and
// read.
func checkOpenFilePermissions(f *os.File) error {
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat key file %q: %w", f.Name(), err)
	}
	if fi.Mode().Perm()&0o077 != 0 {
		return fmt.Errorf(
			"key file %q has mode %04o, group/other access not permitted: %w",
			f.Name(),
			fi.Mode().Perm(),
			ErrInsecureFileMode,
		)
	}
	return nil
}
