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
// subsystem. This file implements the background sync worker: the periodic
// flush of pending deltas to the remote store, and the bounded-backoff
// reconnection loop that rebuilds the remote handle after a failed flush.
package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docsifer/internal/analytics/telemetry"
)

const (
	defaultBaseBackoff = time.Second
	reconnectPingWait  = 5 * time.Second
)

// Worker owns the remote store handle and runs the flush schedule. Flush
// cycles are strictly sequential: the next tick is only observed after the
// current cycle completes, so a slow remote self-throttles the schedule
// instead of stacking cycles.
type Worker struct {
	store      *Store
	remote     RemoteStore
	dial       DialFunc
	interval   time.Duration
	maxRetries int

	// baseBackoff is the first reconnection delay; it doubles per attempt.
	baseBackoff time.Duration
	// sleep is replaceable in tests to run the backoff against a fake clock.
	sleep func(time.Duration)

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
}

// NewWorker creates a sync worker flushing store through remote every
// interval. dial rebuilds the remote handle during reconnection; maxRetries
// bounds the reconnection loop triggered by a failed flush.
func NewWorker(store *Store, remote RemoteStore, dial DialFunc, interval time.Duration, maxRetries int) *Worker {
	return &Worker{
		store:       store,
		remote:      remote,
		dial:        dial,
		interval:    interval,
		maxRetries:  maxRetries,
		baseBackoff: defaultBaseBackoff,
		sleep:       time.Sleep,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the background sync goroutine.
func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("starting analytics sync worker")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.syncLoop()
	}()
}

// Stop gracefully stops the worker. A best-effort final flush runs before
// Stop returns so sub-interval remainders survive a clean shutdown; a flush
// failure at this point is logged and the remainder is lost with the process.
// Stop also closes the remote handle: the worker owns it exclusively since
// reconnection may have swapped it out from under the original caller.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	log.Info().Msg("stopping analytics sync worker")
	close(w.stopChan)
	w.wg.Wait()
	if w.remote != nil {
		if err := w.remote.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close remote store client")
		}
	}
}

func (w *Worker) syncLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runFlushCycle()
		case <-w.stopChan:
			w.runFinalFlush()
			return
		}
	}
}

// runFlushCycle drains the pending deltas and persists them. On any failure
// the whole cycle is treated as failed: the drained delta is merged back
// into the pending table for the next cycle, and the reconnection loop runs.
func (w *Worker) runFlushCycle() {
	delta := w.store.DrainAndReset()
	if delta.Empty() {
		return
	}

	cells, err := w.flush(delta)
	if err != nil {
		telemetry.FlushFailuresTotal.Inc()
		log.Error().Err(err).Msg("flush to remote store failed; delta restored for next cycle")
		w.store.RestorePending(delta)
		w.reconnect()
		return
	}

	telemetry.FlushTotal.Inc()
	telemetry.FlushCellsTotal.Add(float64(cells))
	log.Debug().Int("cells", cells).Msg("analytics deltas synced to remote store")
}

// runFinalFlush persists whatever is pending at shutdown. No reconnection:
// the process is exiting either way.
func (w *Worker) runFinalFlush() {
	delta := w.store.DrainAndReset()
	if delta.Empty() {
		return
	}
	if _, err := w.flush(delta); err != nil {
		log.Error().Err(err).Msg("final flush failed; unsynced deltas lost")
		return
	}
	log.Info().Msg("final flush completed")
}

// flush writes every non-zero cell of delta to the remote store. Cell order
// is unspecified; increments commute. The counter store mutex is never held
// here, so Record and Snapshot callers are not blocked behind remote I/O.
func (w *Worker) flush(delta Tables) (int, error) {
	cells := 0
	for _, m := range Metrics {
		for bucket, row := range delta[m] {
			key := RemoteKey(m, bucket)
			for label, amount := range row {
				if amount == 0 {
					continue
				}
				if err := w.remote.IncrementHashField(context.Background(), key, label, amount); err != nil {
					return cells, fmt.Errorf("increment %s %s: %w", key, label, err)
				}
				cells++
			}
		}
	}
	return cells, nil
}

// reconnect closes and rebuilds the remote handle with exponential backoff,
// for at most maxRetries attempts. A rebuilt handle counts as recovered only
// once a ping round-trip succeeds. Exhausting the budget logs at fatal
// severity without exiting: the service keeps running and keeps accumulating
// deltas locally, and the loop runs again only if the next flush fails too.
func (w *Worker) reconnect() {
	delay := w.baseBackoff

	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		telemetry.ReconnectAttemptsTotal.Inc()
		log.Info().Int("attempt", attempt).Msg("attempting remote store reconnection")

		if w.remote != nil {
			_ = w.remote.Close()
		}
		remote, err := w.dial()
		if err == nil {
			w.remote = remote
			ctx, cancel := context.WithTimeout(context.Background(), reconnectPingWait)
			err = remote.Ping(ctx)
			cancel()
			if err == nil {
				log.Info().Int("attempt", attempt).Msg("reconnected to remote store")
				return
			}
		}

		log.Error().Err(err).Int("attempt", attempt).Msg("reconnection attempt failed")
		w.sleep(delay)
		delay *= 2
	}

	telemetry.ReconnectExhaustedTotal.Inc()
	log.WithLevel(zerolog.FatalLevel).
		Int("max_retries", w.maxRetries).
		Msg("max reconnection attempts reached; remote store unavailable, persistence stalled")
}
