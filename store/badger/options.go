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

package badger

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Default badger tuning values. Sealed records are small, so the
// value log and threshold are sized well below badger's defaults.
const (
	DefaultValueLogFileSize = 67108864 // 64MB
	DefaultValueThreshold   = 1024
)

type RecordStoreBadgerOptionFunc func(*RecordStoreBadger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) RecordStoreBadgerOptionFunc {
	return func(b *RecordStoreBadger) {
		b.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) RecordStoreBadgerOptionFunc {
	return func(b *RecordStoreBadger) {
		b.promRegistry = registry
	}
}

// WithDataDir specifies the data directory to use for storage. The
// default is to store everything in memory
func WithDataDir(dataDir string) RecordStoreBadgerOptionFunc {
	return func(b *RecordStoreBadger) {
		b.dataDir = dataDir
	}
}

// WithGc specifies whether value log garbage collection is enabled
func WithGc(enabled bool) RecordStoreBadgerOptionFunc {
	return func(b *RecordStoreBadger) {
		b.gcEnabled = enabled
	}
}

// WithValueLogFileSize specifies the value log file size in bytes
func WithValueLogFileSize(size int64) RecordStoreBadgerOptionFunc {
	return func(b *RecordStoreBadger) {
		b.valueLogFileSize = size
	}
}

// WithValueThreshold specifies the value threshold for keeping values in LSM tree
func WithValueThreshold(threshold int64) RecordStoreBadgerOptionFunc {
	return func(b *RecordStoreBadger) {
		b.valueThreshold = threshold
	}
}
