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

// Package codec derives store lookup keys and cipher keys from raw
// action codes and seals record payloads under them. The raw code is
// the only shared secret between the relay and the code holder, so
// both derivations are deterministic and saltless. The lookup key and
// the cipher key use domain-separated digests so the public store
// index never equals the encryption key.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// cipherKeyPrefix domain-separates the cipher key digest from the
// lookup key digest
const cipherKeyPrefix = "quoll-enc:"

// sealSeparator joins the encoded nonce and ciphertext halves of a
// sealed value
const sealSeparator = "."

// ErrDecryptionFailed is returned by Open for any sealed value that
// cannot be authenticated and decrypted, including truncated input,
// invalid encoding, and a wrong code.
var ErrDecryptionFailed = errors.New("decryption failed")

// DeriveLookupKey returns the hex-encoded one-way digest of the raw
// code used as the store index. It is safe to expose publicly and
// cannot be reversed to the code.
func DeriveLookupKey(code string) string {
	digest := sha256.Sum256([]byte(code))
	return hex.EncodeToString(digest[:])
}

// DeriveCipherKey returns the 32-byte symmetric key derived from the
// raw code. The digest input is prefixed so the key is never equal to
// the lookup key digest.
func DeriveCipherKey(code string) []byte {
	digest := sha256.Sum256([]byte(cipherKeyPrefix + code))
	return digest[:]
}

// Seal encrypts plaintext under the key derived from code and returns
// a self-describing string of the form base64(nonce) + "." +
// base64(ciphertext). A fresh random nonce is generated on every call,
// so sealing the same plaintext twice produces different outputs.
func Seal(plaintext []byte, code string) (string, error) {
	aead, err := newAead(code)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(nonce) +
		sealSeparator +
		base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open authenticates and decrypts a value produced by Seal using the
// key derived from code. Any malformed, truncated, or corrupted input,
// or a wrong code, fails with ErrDecryptionFailed. Wrong plaintext is
// never silently returned.
func Open(sealed string, code string) ([]byte, error) {
	nonceB64, ciphertextB64, ok := strings.Cut(sealed, sealSeparator)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	aead, err := newAead(code)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newAead(code string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveCipherKey(code))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create AEAD: %w", err)
	}
	return aead, nil
}
