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

package chain

import (
	"context"
	"testing"

	"github.com/blinklabs-io/quoll/actioncode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopAdapter struct{}

func (noopAdapter) VerifyRegistration(
	ctx context.Context,
	reg actioncode.Registration,
) error {
	return nil
}

func (noopAdapter) AttachTransaction(
	ctx context.Context,
	rec *actioncode.Record,
	intent actioncode.Intent,
) (*actioncode.TransactionPayload, error) {
	return &actioncode.TransactionPayload{}, nil
}

func (noopAdapter) VerifyFinalized(
	ctx context.Context,
	rec *actioncode.Record,
	txSignature string,
) error {
	return nil
}

func (noopAdapter) VerifySignedMessage(
	ctx context.Context,
	rec *actioncode.Record,
	signedMessage string,
) error {
	return nil
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.Lookup(actioncode.ChainSolana)
	assert.False(t, ok)

	registry.Register(actioncode.ChainSolana, noopAdapter{})
	adapter, ok := registry.Lookup(actioncode.ChainSolana)
	require.True(t, ok)
	assert.NotNil(t, adapter)
}

func TestRegistryRegistered(t *testing.T) {
	registry := NewRegistry()
	registry.Register(actioncode.ChainSolana, noopAdapter{})
	registry.Register(actioncode.ChainCardano, noopAdapter{})

	assert.Equal(
		t,
		[]actioncode.Chain{actioncode.ChainCardano, actioncode.ChainSolana},
		registry.Registered(),
	)
}
