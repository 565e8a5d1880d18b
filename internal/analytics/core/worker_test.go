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

package core

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"docsifer/internal/analytics/telemetry"
)

// newTestWorker builds a worker with a long interval (cycles are driven by
// calling runFlushCycle directly) and a recording fake clock for backoff.
func newTestWorker(s *Store, remote RemoteStore, dial DialFunc, maxRetries int) (*Worker, *[]time.Duration) {
	w := NewWorker(s, remote, dial, time.Hour, maxRetries)
	sleeps := &[]time.Duration{}
	w.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return w, sleeps
}

func selfDial(remote RemoteStore) DialFunc {
	return func() (RemoteStore, error) { return remote, nil }
}

func TestWorker_FlushWritesPendingDeltas(t *testing.T) {
	s := newTestStore()
	s.Record(10)
	s.Record(20)
	s.Record(5)

	remote := newFakeRemote()
	w, _ := newTestWorker(s, remote, selfDial(remote), 3)
	w.runFlushCycle()

	day := PeriodKeys(testNow)[0]
	require.Equal(t, uint64(35), remote.value(RemoteKey(MetricTokens, TotalBucket), DefaultLabel))
	require.Equal(t, uint64(3), remote.value(RemoteKey(MetricAccess, day), DefaultLabel))

	// Pending is drained; totals keep serving reads.
	require.True(t, s.DrainAndReset().Empty())
	require.Equal(t, uint64(35), s.Snapshot()[MetricTokens][TotalBucket][DefaultLabel])
}

func TestWorker_ConsecutiveFlushesNeverOverlapIncrements(t *testing.T) {
	s := newTestStore()
	remote := newFakeRemote()
	w, _ := newTestWorker(s, remote, selfDial(remote), 3)

	s.Record(10)
	w.runFlushCycle()
	s.Record(7)
	w.runFlushCycle()

	// Remote state equals exactly the sum of both windows: nothing written
	// twice, nothing dropped.
	require.Equal(t, uint64(17), remote.value(RemoteKey(MetricTokens, TotalBucket), DefaultLabel))
	require.Equal(t, uint64(2), remote.value(RemoteKey(MetricAccess, TotalBucket), DefaultLabel))
}

func TestWorker_EmptyDeltaSkipsRemote(t *testing.T) {
	s := newTestStore()
	remote := newFakeRemote()
	w, _ := newTestWorker(s, remote, selfDial(remote), 3)

	w.runFlushCycle()
	require.Zero(t, remote.incrCalls)
}

func TestWorker_ZeroTokenEventWritesOnlyAccessCells(t *testing.T) {
	s := newTestStore()
	s.Record(0)

	remote := newFakeRemote()
	w, _ := newTestWorker(s, remote, selfDial(remote), 3)
	w.runFlushCycle()

	// Five access buckets written, zero-amount token cells skipped.
	require.Equal(t, 5, remote.incrCalls)
	require.Equal(t, uint64(0), remote.value(RemoteKey(MetricTokens, TotalBucket), DefaultLabel))
}

func TestWorker_FailedFlushRestoresDelta(t *testing.T) {
	s := newTestStore()
	s.Record(10)
	totalsBefore := s.Snapshot()

	remote := newFakeRemote()
	remote.incrErr = errors.New("connection reset")
	healthy := newFakeRemote()
	w, _ := newTestWorker(s, remote, selfDial(healthy), 3)

	w.runFlushCycle()

	// Totals were never decremented and the full delta is back in pending.
	require.Equal(t, totalsBefore, s.Snapshot())
	delta := s.DrainAndReset()
	require.Equal(t, uint64(10), delta[MetricTokens][TotalBucket][DefaultLabel])
	require.Equal(t, uint64(1), delta[MetricAccess][TotalBucket][DefaultLabel])
}

func TestWorker_FailedFlushReconnectsAndNextCycleRecovers(t *testing.T) {
	s := newTestStore()
	s.Record(10)

	broken := newFakeRemote()
	broken.incrErr = errors.New("connection reset")
	healthy := newFakeRemote()
	w, sleeps := newTestWorker(s, broken, selfDial(healthy), 3)

	w.runFlushCycle()
	// Reconnected on the first attempt: old handle closed, no backoff slept.
	require.Equal(t, 1, broken.closed)
	require.Empty(t, *sleeps)

	w.runFlushCycle()
	require.Equal(t, uint64(10), healthy.value(RemoteKey(MetricTokens, TotalBucket), DefaultLabel))
}

func TestWorker_ReconnectBackoffDoublesUntilExhaustion(t *testing.T) {
	s := newTestStore()
	s.Record(1)

	dead := newFakeRemote()
	dead.incrErr = errors.New("connection reset")
	dead.pingErr = errors.New("still down")
	dial := func() (RemoteStore, error) {
		next := newFakeRemote()
		next.pingErr = errors.New("still down")
		return next, nil
	}
	w, sleeps := newTestWorker(s, dead, dial, 4)

	exhaustedBefore := testutil.ToFloat64(telemetry.ReconnectExhaustedTotal)
	attemptsBefore := testutil.ToFloat64(telemetry.ReconnectAttemptsTotal)

	w.runFlushCycle()

	require.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, *sleeps)
	require.Equal(t, exhaustedBefore+1, testutil.ToFloat64(telemetry.ReconnectExhaustedTotal))
	require.Equal(t, attemptsBefore+4, testutil.ToFloat64(telemetry.ReconnectAttemptsTotal))

	// The service is still alive and still accumulating locally.
	s.Record(2)
	require.Equal(t, uint64(3), s.Snapshot()[MetricTokens][TotalBucket][DefaultLabel])
}

func TestWorker_DialFailureKeepsLastHandle(t *testing.T) {
	s := newTestStore()
	s.Record(1)

	dead := newFakeRemote()
	dead.incrErr = errors.New("connection reset")
	dial := func() (RemoteStore, error) { return nil, errors.New("dns failure") }
	w, sleeps := newTestWorker(s, dead, dial, 2)

	w.runFlushCycle()

	require.Len(t, *sleeps, 2)
	require.Same(t, dead, w.remote)
}

func TestWorker_StopRunsFinalFlushAndClosesHandle(t *testing.T) {
	s := newTestStore()
	remote := newFakeRemote()
	w, _ := newTestWorker(s, remote, selfDial(remote), 3)

	w.Start()
	s.Record(9)
	w.Stop()

	require.Equal(t, uint64(9), remote.value(RemoteKey(MetricTokens, TotalBucket), DefaultLabel))
	require.Equal(t, 1, remote.closed)

	// Stop is idempotent.
	w.Stop()
	require.Equal(t, 1, remote.closed)
}
