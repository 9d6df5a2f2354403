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

// Package rpc provides the private gRPC listener exposing health and
// reflection for the relay service.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RelayServiceName is the service name advertised via health and
// reflection
const RelayServiceName = "quoll.relay.v1.RelayService"

type Rpc struct {
	config     RpcConfig
	httpServer *http.Server
	mu         sync.Mutex
}

type RpcConfig struct {
	Logger          *slog.Logger
	Host            string
	TlsCertFilePath string
	TlsKeyFilePath  string
	Port            uint
}

func NewRpc(cfg RpcConfig) *Rpc {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", "rpc")
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	return &Rpc{
		config: cfg,
	}
}

// Start runs the gRPC listener until Stop is called. It blocks, so
// callers typically run it in a goroutine.
func (r *Rpc) Start() error {
	mux := http.NewServeMux()
	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(
				RelayServiceName,
			),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1(
			grpcreflect.NewStaticReflector(
				RelayServiceName,
			),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1Alpha(
			grpcreflect.NewStaticReflector(
				RelayServiceName,
			),
			compress1KB,
		),
	)
	if r.config.TlsCertFilePath != "" && r.config.TlsKeyFilePath != "" {
		r.config.Logger.Info(
			fmt.Sprintf(
				"starting gRPC TLS listener on %s:%d",
				r.config.Host,
				r.config.Port,
			),
		)
		server := &http.Server{
			Addr: fmt.Sprintf(
				"%s:%d",
				r.config.Host,
				r.config.Port,
			),
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
		}
		r.mu.Lock()
		r.httpServer = server
		r.mu.Unlock()
		err := server.ListenAndServeTLS(
			r.config.TlsCertFilePath,
			r.config.TlsKeyFilePath,
		)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	} else {
		r.config.Logger.Info(
			fmt.Sprintf(
				"starting gRPC listener on %s:%d",
				r.config.Host,
				r.config.Port,
			),
		)
		server := &http.Server{
			Addr: fmt.Sprintf(
				"%s:%d",
				r.config.Host,
				r.config.Port,
			),
			// Use h2c so we can serve HTTP/2 without TLS
			Handler:           h2c.NewHandler(mux, &http2.Server{}),
			ReadHeaderTimeout: 60 * time.Second,
		}
		r.mu.Lock()
		r.httpServer = server
		r.mu.Unlock()
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Stop gracefully shuts down the gRPC listener.
func (r *Rpc) Stop(ctx context.Context) error {
	r.mu.Lock()
	srv := r.httpServer
	r.httpServer = nil
	r.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown gRPC listener: %w",
				err,
			)
		}
	}
	return nil
}
