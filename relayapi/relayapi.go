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

// Package relayapi provides the public REST API for the action code
// relay.
package relayapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/quoll/actioncode"
)

// Lifecycle is the slice of the lifecycle manager the API server
// needs.
type Lifecycle interface {
	Register(
		ctx context.Context,
		params actioncode.RegisterParams,
	) (*actioncode.RegisterResult, error)
	Resolve(
		ctx context.Context,
		code string,
	) (*actioncode.ResolveResult, error)
	Attach(
		ctx context.Context,
		params actioncode.AttachParams,
	) (*actioncode.AttachResult, error)
	Finalize(
		ctx context.Context,
		params actioncode.FinalizeParams,
	) (*actioncode.FinalizeResult, error)
	Status(
		ctx context.Context,
		code string,
	) (*actioncode.StatusResult, error)
}

// ServerConfig is the configuration for the relay API server
type ServerConfig struct {
	ListenAddress string
}

// Server is the relay REST API server.
type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	lifecycle  Lifecycle
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new relay API server instance.
func New(
	cfg ServerConfig,
	lifecycle Lifecycle,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "relayapi")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":3000"
	}
	return &Server{
		config:    cfg,
		logger:    logger,
		lifecycle: lifecycle,
	}
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.routes(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	// Start the server with deterministic error detection
	if err := s.startServer(server); err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}

	s.logger.Info(
		"relay API listener started on " +
			s.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()

		if srv != nil {
			s.logger.Debug(
				"context cancelled, shutting down relay API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(
				shutdownCtx,
			); err != nil {
				s.logger.Error(
					"failed to shutdown relay API server on "+
						"context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(
	ctx context.Context,
) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv != nil {
		s.logger.Debug(
			"shutting down relay API server",
		)
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown relay API server: %w",
				err,
			)
		}
	}
	return nil
}

// routes builds the request mux
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc(
		"POST /api/v1/register",
		s.handleRegister,
	)
	mux.HandleFunc(
		"POST /api/v1/resolve",
		s.handleResolve,
	)
	mux.HandleFunc(
		"POST /api/v1/attach",
		s.handleAttach,
	)
	mux.HandleFunc(
		"POST /api/v1/finalize",
		s.handleFinalize,
	)
	mux.HandleFunc(
		"GET /api/v1/status/{code}",
		s.handleStatus,
	)
	return mux
}

// startServer starts the HTTP server with deterministic
// error detection. It binds the listening socket first so
// port conflicts are detected immediately, then serves in
// a background goroutine.
func (s *Server) startServer(
	server *http.Server,
) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for relay API server: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"relay API server error",
				"error", err,
			)
		}
	}()
	return nil
}
