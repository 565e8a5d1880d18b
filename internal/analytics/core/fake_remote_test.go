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
	"context"
	"strings"
	"sync"
)

// fakeRemote is an in-memory RemoteStore with injectable failures, used by
// the worker and bootstrap tests.
type fakeRemote struct {
	mu     sync.Mutex
	hashes map[string]map[string]uint64

	scanErr error
	readErr error
	incrErr error
	pingErr error

	incrCalls int
	closed    int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{hashes: make(map[string]map[string]uint64)}
}

func (f *fakeRemote) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var keys []string
	for k := range f.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeRemote) ReadHash(ctx context.Context, key string) (map[string]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := make(map[string]uint64, len(f.hashes[key]))
	for field, n := range f.hashes[key] {
		out[field] = n
	}
	return out, nil
}

func (f *fakeRemote) IncrementHashField(ctx context.Context, key, field string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return f.incrErr
	}
	f.incrCalls++
	row := f.hashes[key]
	if row == nil {
		row = make(map[string]uint64)
		f.hashes[key] = row
	}
	row[field] += amount
	return nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRemote) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRemote) value(key, field string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hashes[key][field]
}

func (f *fakeRemote) seed(key string, fields map[string]uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes[key] = fields
}
