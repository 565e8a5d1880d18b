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

// Package core provides the core business logic of the usage analytics
// subsystem. This file implements the in-memory counter store: the
// authoritative absolute totals served to readers, and the pending deltas
// drained by the background sync worker.
package core

import (
	"sync"
	"time"
)

// Metric names one of the two counted quantities.
type Metric string

const (
	// MetricAccess counts conversion events.
	MetricAccess Metric = "access"
	// MetricTokens counts summed token usage across events.
	MetricTokens Metric = "tokens"
)

// Metrics lists every metric in a stable order for iteration.
var Metrics = [...]Metric{MetricAccess, MetricTokens}

// DefaultLabel is the single label the service aggregates under. The data
// model is label-keyed so additional labels cost nothing, but the service
// only ever writes this one.
const DefaultLabel = "docsifer"

// Table maps bucket key -> label -> count for a single metric.
type Table map[string]map[string]uint64

// Tables holds one Table per metric.
type Tables map[Metric]Table

// NewTables returns an empty Tables with a Table allocated per metric.
func NewTables() Tables {
	t := make(Tables, len(Metrics))
	for _, m := range Metrics {
		t[m] = make(Table)
	}
	return t
}

// Add increments the (metric, bucket, label) cell by n, allocating the
// bucket row on first touch.
func (t Tables) Add(m Metric, bucket, label string, n uint64) {
	tab := t[m]
	if tab == nil {
		tab = make(Table)
		t[m] = tab
	}
	row := tab[bucket]
	if row == nil {
		row = make(map[string]uint64)
		tab[bucket] = row
	}
	row[label] += n
}

// Merge adds every cell of other into t.
func (t Tables) Merge(other Tables) {
	for m, tab := range other {
		for bucket, row := range tab {
			for label, n := range row {
				t.Add(m, bucket, label, n)
			}
		}
	}
}

// Clone returns a deep, independent copy of t.
func (t Tables) Clone() Tables {
	out := make(Tables, len(t))
	for m, tab := range t {
		otab := make(Table, len(tab))
		for bucket, row := range tab {
			orow := make(map[string]uint64, len(row))
			for label, n := range row {
				orow[label] = n
			}
			otab[bucket] = orow
		}
		out[m] = otab
	}
	return out
}

// Empty reports whether t holds no cells at all.
func (t Tables) Empty() bool {
	for _, tab := range t {
		for _, row := range tab {
			if len(row) > 0 {
				return false
			}
		}
	}
	return true
}

// Store is the in-memory counter store. It keeps two tables:
//
//   - totals: absolute counters, authoritative for reads. Equals whatever
//     the remote store holds after the last successful flush, plus anything
//     recorded locally since.
//   - pending: only the increments accrued since the last successful flush.
//     Drained by the sync worker and reset on success.
//
// Both tables are guarded by a single mutex. The lock is intentionally
// coarse (whole-table): contention is negligible next to the remote I/O the
// worker performs with the lock released.
type Store struct {
	mu      sync.Mutex
	totals  Tables
	pending Tables
	label   string

	// now is the clock used for bucket derivation; replaceable in tests.
	now func() time.Time
}

// NewStore creates an empty counter store aggregating under label.
// An empty label falls back to DefaultLabel.
func NewStore(label string) *Store {
	if label == "" {
		label = DefaultLabel
	}
	return &Store{
		totals:  NewTables(),
		pending: NewTables(),
		label:   label,
		now:     time.Now,
	}
}

// Record registers one conversion event that consumed the given number of
// tokens. It is infallible and never blocks on I/O.
func (s *Store) Record(tokens uint64) {
	s.RecordDeltas(map[Metric]uint64{
		MetricAccess: 1,
		MetricTokens: tokens,
	})
}

// RecordDeltas adds each metric's delta to all five bucket keys derived from
// the current time, updating totals and pending atomically. Concurrent
// Record, Snapshot, and DrainAndReset callers serialize on the store mutex,
// so no reader ever observes a partially applied event.
func (s *Store) RecordDeltas(deltas map[Metric]uint64) {
	buckets := PeriodKeys(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	for m, n := range deltas {
		for _, bucket := range buckets {
			s.totals.Add(m, bucket, s.label, n)
			s.pending.Add(m, bucket, s.label, n)
		}
	}
}

// Snapshot returns a deep copy of the absolute totals for both metrics.
func (s *Store) Snapshot() Tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals.Clone()
}

// DrainAndReset atomically copies the pending deltas, resets them to empty,
// and returns the copy. Any Record call not reflected in the returned copy
// lands in the fresh pending table, so increments are never lost across a
// drain.
func (s *Store) DrainAndReset() Tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.pending
	s.pending = NewTables()
	return drained
}

// RestorePending merges a previously drained delta back into the pending
// table. The sync worker calls this after a failed flush so the delta is
// retried on the next cycle instead of being silently dropped.
func (s *Store) RestorePending(delta Tables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Merge(delta)
}

// LoadAbsolute rebuilds the absolute totals from state loaded out of the
// remote store. The current pending deltas are merged on top rather than
// cleared: events recorded before or during a bootstrap stay queued for the
// next flush, preserving remote + pending == totals.
func (s *Store) LoadAbsolute(loaded Tables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = loaded.Clone()
	s.totals.Merge(s.pending)
}

// Label returns the label this store aggregates under.
func (s *Store) Label() string { return s.label }
