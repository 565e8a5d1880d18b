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

// Package persistence implements the remote durable store contract declared
// in core on top of Redis, using github.com/redis/go-redis/v9.
package persistence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"docsifer/internal/analytics/core"
)

// scanPageSize is the COUNT hint passed to SCAN; pages are drained fully
// regardless of its value.
const scanPageSize = 1000

const defaultOpTimeout = 5 * time.Second

// Commander abstracts the minimal go-redis surface the store needs.
// *redis.Client satisfies it; tests fake it with the redis.New*Result helpers.
type Commander interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Options configures a RedisStore.
type Options struct {
	// URL is the redis:// or rediss:// endpoint.
	URL string
	// Token is the access token; when set it overrides any password in URL.
	Token string
	// OpTimeout bounds each individual remote call. Defaults to 5s.
	OpTimeout time.Duration
}

// RedisStore implements core.RemoteStore against a Redis server. Every call
// carries a per-operation deadline; a timed-out call surfaces as
// core.ErrRemoteUnavailable like any other transport failure.
type RedisStore struct {
	client  Commander
	timeout time.Duration
}

var _ core.RemoteStore = (*RedisStore)(nil)

// New creates a RedisStore from opts. Construction only validates the URL;
// the first round-trip happens on use (or via Ping).
func New(opts Options) (*RedisStore, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.Token != "" {
		ropts.Password = opts.Token
	}
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &RedisStore{client: redis.NewClient(ropts), timeout: timeout}, nil
}

// NewWithCommander wires a store around an existing client. Used by tests
// and by callers that manage client construction themselves.
func NewWithCommander(c Commander, opTimeout time.Duration) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &RedisStore{client: c, timeout: opTimeout}
}

// Dialer returns a core.DialFunc that builds a fresh store with the same
// options, for use by the sync worker's reconnection loop.
func Dialer(opts Options) core.DialFunc {
	return func() (core.RemoteStore, error) {
		return New(opts)
	}
}

func (s *RedisStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ScanKeys returns every key matching prefix*, draining all cursor pages.
func (s *RedisStore) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		octx, cancel := s.opCtx(ctx)
		page, next, err := s.client.Scan(octx, cursor, prefix+"*", scanPageSize).Result()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("scan %s*: %w: %v", prefix, core.ErrRemoteUnavailable, err)
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// ReadHash reads all fields of the hash at key, parsing each value as a
// non-negative decimal integer.
func (s *RedisStore) ReadHash(ctx context.Context, key string) (map[string]uint64, error) {
	octx, cancel := s.opCtx(ctx)
	defer cancel()

	raw, err := s.client.HGetAll(octx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w: %v", key, core.ErrRemoteUnavailable, err)
	}
	out := make(map[string]uint64, len(raw))
	for field, val := range raw {
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s field %s holds %q: %w", key, field, val, core.ErrMalformedData)
		}
		out[field] = n
	}
	return out, nil
}

// IncrementHashField atomically increments one hash field by amount. A zero
// amount skips the round-trip entirely.
func (s *RedisStore) IncrementHashField(ctx context.Context, key, field string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	octx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.client.HIncrBy(octx, key, field, int64(amount)).Err(); err != nil {
		return fmt.Errorf("hincrby %s %s: %w: %v", key, field, core.ErrRemoteUnavailable, err)
	}
	return nil
}

// Ping verifies the connection with a single round-trip.
func (s *RedisStore) Ping(ctx context.Context) error {
	octx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.client.Ping(octx).Err(); err != nil {
		return fmt.Errorf("ping: %w: %v", core.ErrRemoteUnavailable, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
