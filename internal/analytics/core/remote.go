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
// subsystem. This file declares the remote durable store contract; the
// concrete Redis implementation lives in the persistence package.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Remote store error taxonomy. Implementations wrap these sentinels so
// callers can branch with errors.Is regardless of backend.
var (
	// ErrRemoteUnavailable covers transport failures and timeouts.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrMalformedData is returned when a stored counter value does not
	// parse as a non-negative integer.
	ErrMalformedData = errors.New("malformed counter value")
)

// RemoteStore is the narrow surface the aggregator needs from the durable
// key/value store: one hash per (metric, bucket) key, holding label -> count
// fields. Every call may block on network I/O and must carry a deadline.
type RemoteStore interface {
	// ScanKeys returns every key under the given prefix, draining all
	// cursor pages before returning.
	ScanKeys(ctx context.Context, prefix string) ([]string, error)

	// ReadHash reads every field of the hash at key as label -> count.
	ReadHash(ctx context.Context, key string) (map[string]uint64, error)

	// IncrementHashField atomically increments one hash field by amount.
	// Implementations skip the round-trip when amount is zero.
	IncrementHashField(ctx context.Context, key, field string, amount uint64) error

	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection handle.
	Close() error
}

// DialFunc builds a fresh RemoteStore handle. The sync worker uses it to
// rebuild its connection during reconnection.
type DialFunc func() (RemoteStore, error)

// KeyNamespace prefixes every key the subsystem writes to the remote store.
const KeyNamespace = "analytics"

// RemoteKey builds the remote key for a (metric, bucket) pair, e.g.
// "analytics:access:2025-01-14".
func RemoteKey(m Metric, bucket string) string {
	return fmt.Sprintf("%s:%s:%s", KeyNamespace, m, bucket)
}

// MetricPrefix returns the scan prefix covering every bucket of a metric.
func MetricPrefix(m Metric) string {
	return fmt.Sprintf("%s:%s:", KeyNamespace, m)
}

// BucketFromKey recovers the bucket key from a remote key of the given
// metric. Keys outside the metric's namespace are returned unchanged.
func BucketFromKey(m Metric, key string) string {
	return strings.TrimPrefix(key, MetricPrefix(m))
}
