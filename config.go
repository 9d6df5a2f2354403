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

package quoll

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	dataDir      string
	// API listen address (empty = default ":3000")
	apiListenAddress string
	// Solana JSON-RPC endpoint for ledger confirmation (empty = format checks only)
	solanaRPCEndpoint string
	// Protocol signing key path (empty = no protocol annotations)
	protocolKeyPath string
	tlsCertFilePath string
	tlsKeyFilePath  string
	codeTTL         time.Duration
	shutdownTimeout time.Duration
	rpcPort         uint
	tracing         bool
	tracingStdout   bool
	auditEnabled    bool
}

func (c *Config) validate() error {
	if c.codeTTL < 0 {
		return errors.New("code TTL must not be negative")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Relay config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new quoll config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		auditEnabled: true,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithCodeTTL specifies the action code lifetime. The default is 2 minutes
func WithCodeTTL(ttl time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.codeTTL = ttl
	}
}

// WithApiListenAddress specifies the listen address for the relay REST
// API server. The default is ":3000"
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithRpcPort specifies the port to use for the gRPC listener. This defaults to port 9090
func WithRpcPort(port uint) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcPort = port
	}
}

// WithRpcTlsCertFilePath specifies the path to the TLS certificate for the gRPC listener. This defaults to empty
func WithRpcTlsCertFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsCertFilePath = path
	}
}

// WithRpcTlsKeyFilePath specifies the path to the TLS key for the gRPC listener. This defaults to empty
func WithRpcTlsKeyFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsKeyFilePath = path
	}
}

// WithSolanaRPCEndpoint specifies the Solana JSON-RPC endpoint used to
// confirm finalized transactions on the ledger. When empty, finalize
// proofs are checked for well-formedness only
func WithSolanaRPCEndpoint(endpoint string) ConfigOptionFunc {
	return func(c *Config) {
		c.solanaRPCEndpoint = endpoint
	}
}

// WithProtocolKeyPath specifies the path to the relay's protocol
// signing key. When empty, attached transactions are not annotated
func WithProtocolKeyPath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.protocolKeyPath = path
	}
}

// WithAuditEnabled specifies whether to record the lifecycle audit
// trail. This is enabled by default
func WithAuditEnabled(enabled bool) ConfigOptionFunc {
	return func(c *Config) {
		c.auditEnabled = enabled
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
