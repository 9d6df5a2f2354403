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

import "github.com/prometheus/client_golang/prometheus"

const storeMetricNamePrefix = "store_records_"

// storeCounter is a nil-safe counter so unmetered stores don't need
// guards at every call site
type storeCounter struct {
	c prometheus.Counter
}

func (s *storeCounter) inc() {
	if s.c != nil {
		s.c.Inc()
	}
}

type storeMetrics struct {
	readsTotal  storeCounter
	missesTotal storeCounter
	writesTotal storeCounter
}

func (d *RecordStoreBadger) registerStoreMetrics() {
	readsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: storeMetricNamePrefix + "reads_total",
			Help: "Total number of record store reads that found a live entry",
		},
	)
	missesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: storeMetricNamePrefix + "misses_total",
			Help: "Total number of record store reads that found no live entry",
		},
	)
	writesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: storeMetricNamePrefix + "writes_total",
			Help: "Total number of record store writes",
		},
	)

	d.promRegistry.MustRegister(readsTotal, missesTotal, writesTotal)
	d.metrics.readsTotal = storeCounter{c: readsTotal}
	d.metrics.missesTotal = storeCounter{c: missesTotal}
	d.metrics.writesTotal = storeCounter{c: writesTotal}
}
