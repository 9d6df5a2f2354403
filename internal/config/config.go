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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "quoll.config"

const (
	DefaultCodeTtl         = "2m"
	DefaultShutdownTimeout = "30s"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	TlsKeyFilePath    string `yaml:"tlsKeyFilePath"    envconfig:"TLS_KEY_FILE_PATH"`
	TlsCertFilePath   string `yaml:"tlsCertFilePath"   envconfig:"TLS_CERT_FILE_PATH"`
	DataDir           string `yaml:"dataDir"                                          split_words:"true"`
	BindAddr          string `yaml:"bindAddr"                                         split_words:"true"`
	SolanaRpcEndpoint string `yaml:"solanaRpcEndpoint" envconfig:"SOLANA_RPC_ENDPOINT"`
	ProtocolKeyPath   string `yaml:"protocolKeyPath"                                  split_words:"true"`
	CodeTtl           string `yaml:"codeTtl"           envconfig:"CODE_TTL"`
	ShutdownTimeout   string `yaml:"shutdownTimeout"                                  split_words:"true"`
	ApiPort           uint   `yaml:"apiPort"           envconfig:"port"`
	RpcPort           uint   `yaml:"rpcPort"                                          split_words:"true"`
	MetricsPort       uint   `yaml:"metricsPort"                                      split_words:"true"`
	Tracing           bool   `yaml:"tracing"`
	TracingStdout     bool   `yaml:"tracingStdout"                                    split_words:"true"`
	AuditEnabled      bool   `yaml:"auditEnabled"                                     split_words:"true"`
}

var globalConfig = &Config{
	BindAddr:        "0.0.0.0",
	DataDir:         "",
	ApiPort:         3000,
	RpcPort:         9090,
	MetricsPort:     12798,
	CodeTtl:         DefaultCodeTtl,
	ShutdownTimeout: DefaultShutdownTimeout,
	AuditEnabled:    true,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.quoll/quoll.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".quoll", "quoll.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/quoll/quoll.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/quoll/quoll.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("quoll", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Validate duration values up front so a bad config fails at
	// startup instead of when first used
	if _, err := globalConfig.CodeTtlDuration(); err != nil {
		return nil, err
	}
	if _, err := globalConfig.ShutdownTimeoutDuration(); err != nil {
		return nil, err
	}

	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// CodeTtlDuration parses the configured action code lifetime
func (c *Config) CodeTtlDuration() (time.Duration, error) {
	if c.CodeTtl == "" {
		c.CodeTtl = DefaultCodeTtl
	}
	ttl, err := time.ParseDuration(c.CodeTtl)
	if err != nil {
		return 0, fmt.Errorf("invalid code TTL: %w", err)
	}
	return ttl, nil
}

// ShutdownTimeoutDuration parses the configured graceful shutdown timeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	timeout, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return timeout, nil
}
