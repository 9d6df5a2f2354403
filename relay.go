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

// Package quoll implements an action code relay: short-lived numeric
// codes that let a wallet holder authorize an off-chain-initiated
// transaction without exposing a private key.
package quoll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/quoll/actioncode"
	"github.com/blinklabs-io/quoll/auditlog"
	"github.com/blinklabs-io/quoll/chain"
	"github.com/blinklabs-io/quoll/chain/cardano"
	"github.com/blinklabs-io/quoll/chain/solana"
	"github.com/blinklabs-io/quoll/event"
	"github.com/blinklabs-io/quoll/keystore"
	"github.com/blinklabs-io/quoll/relayapi"
	"github.com/blinklabs-io/quoll/rpc"
	badgerstore "github.com/blinklabs-io/quoll/store/badger"
)

type Relay struct {
	eventBus      *event.EventBus
	recordStore   *badgerstore.RecordStoreBadger
	auditLog      *auditlog.AuditLog
	keyStore      *keystore.KeyStore
	registry      *chain.Registry
	manager       *actioncode.Manager
	api           *relayapi.Server
	rpc           *rpc.Rpc
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Relay, error) {
	eventBus := event.NewEventBus(cfg.promRegistry)
	r := &Relay{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := r.config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return r, nil
}

// Manager returns the lifecycle manager. It is only available after
// Run has started.
func (r *Relay) Manager() *actioncode.Manager {
	return r.manager
}

func (r *Relay) Run() error {
	// Configure tracing
	if r.config.tracing {
		if err := r.setupTracing(); err != nil {
			return err
		}
	}
	// Load record store
	recordStore, err := badgerstore.New(
		badgerstore.WithLogger(r.config.logger),
		badgerstore.WithPromRegistry(r.config.promRegistry),
		badgerstore.WithDataDir(r.config.dataDir),
	)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	r.recordStore = recordStore
	// Load audit log
	if r.config.auditEnabled {
		audit, err := auditlog.New(r.config.dataDir, r.config.logger)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		r.auditLog = audit
		r.auditLog.Listen(r.eventBus)
	}
	// Load protocol key
	if r.config.protocolKeyPath != "" {
		r.keyStore = keystore.NewKeyStore(keystore.KeyStoreConfig{
			Logger:          r.config.logger,
			ProtocolKeyPath: r.config.protocolKeyPath,
		})
		if err := r.keyStore.LoadFromFile(); err != nil {
			return fmt.Errorf("failed to load protocol key: %w", err)
		}
	}
	// Register chain adapters
	r.registry = chain.NewRegistry()
	solanaCfg := solana.Config{
		Logger:      r.config.logger,
		RPCEndpoint: r.config.solanaRPCEndpoint,
	}
	if r.keyStore != nil {
		solanaCfg.ProtocolKey = r.keyStore.ProtocolKey()
	}
	r.registry.Register(
		actioncode.ChainSolana,
		solana.New(solanaCfg),
	)
	r.registry.Register(
		actioncode.ChainCardano,
		cardano.New(cardano.Config{
			Logger: r.config.logger,
		}),
	)
	// Initialize lifecycle manager
	r.manager = actioncode.NewManager(actioncode.ManagerConfig{
		Store:        r.recordStore,
		Adapters:     r.registry,
		EventBus:     r.eventBus,
		PromRegistry: r.config.promRegistry,
		Logger:       r.config.logger,
		CodeTTL:      r.config.codeTTL,
	})
	// Start REST API
	r.api = relayapi.New(
		relayapi.ServerConfig{
			ListenAddress: r.config.apiListenAddress,
		},
		r.manager,
		r.config.logger,
	)
	if err := r.api.Start(context.Background()); err != nil {
		return err
	}
	// Start gRPC listener
	r.rpc = rpc.NewRpc(rpc.RpcConfig{
		Logger:          r.config.logger,
		Port:            r.config.rpcPort,
		TlsCertFilePath: r.config.tlsCertFilePath,
		TlsKeyFilePath:  r.config.tlsKeyFilePath,
	})
	go func() {
		if err := r.rpc.Start(); err != nil {
			r.config.logger.Error(
				"gRPC listener error",
				"error", err,
			)
		}
	}()

	// Wait for shutdown signal
	<-r.done
	return nil
}

func (r *Relay) Stop() error {
	var err error
	r.shutdownOnce.Do(func() {
		err = r.shutdown()
	})
	return err
}

func (r *Relay) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if r.config.shutdownTimeout > 0 {
		shutdownTimeout = r.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	r.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	r.config.logger.Debug("shutdown phase 1: stopping new work")

	if r.api != nil {
		if stopErr := r.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	if r.rpc != nil {
		if stopErr := r.rpc.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("rpc shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state and close stores
	r.config.logger.Debug("shutdown phase 2: closing stores")

	if r.auditLog != nil {
		if closeErr := r.auditLog.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("audit log close: %w", closeErr),
			)
		}
	}

	if r.recordStore != nil {
		if closeErr := r.recordStore.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("record store close: %w", closeErr),
			)
		}
	}

	// Phase 3: Cleanup resources
	r.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range r.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	r.shutdownFuncs = nil

	if r.eventBus != nil {
		r.eventBus.Stop()
	}

	r.config.logger.Debug("graceful shutdown complete")
	close(r.done)
	return err
}
