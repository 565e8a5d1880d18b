// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry exposes Prometheus counters for the analytics
// subsystem: recorded events, flush cycles, and reconnection activity.
// Counters are global with fixed cardinality (no per-bucket labels).
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecordsTotal counts conversion events recorded into the counter store.
	RecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docsifer_records_total",
		Help: "Total usage events recorded into the in-memory counter store",
	})
	// FlushTotal counts successful flush cycles.
	FlushTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docsifer_flush_total",
		Help: "Total flush cycles that persisted every pending delta",
	})
	// FlushFailuresTotal counts flush cycles that failed and restored their delta.
	FlushFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docsifer_flush_failures_total",
		Help: "Total flush cycles that failed against the remote store",
	})
	// FlushCellsTotal counts individual (key, label) increments written.
	FlushCellsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docsifer_flush_cells_total",
		Help: "Total counter cells written to the remote store across all flushes",
	})
	// ReconnectAttemptsTotal counts individual reconnection attempts.
	ReconnectAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docsifer_reconnect_attempts_total",
		Help: "Total remote store reconnection attempts",
	})
	// ReconnectExhaustedTotal counts reconnection loops that ran out of retries.
	ReconnectExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docsifer_reconnect_exhausted_total",
		Help: "Total reconnection loops that exhausted their retry budget",
	})
)

var registerOnce sync.Once

// Register installs the counters on the default Prometheus registry. Safe to
// call more than once. Counters work unregistered, so tests can exercise
// them without touching the global registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RecordsTotal,
			FlushTotal,
			FlushFailuresTotal,
			FlushCellsTotal,
			ReconnectAttemptsTotal,
			ReconnectExhaustedTotal,
		)
	})
}

// Handler returns the /metrics handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
