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
	"fmt"

	"github.com/rs/zerolog/log"
)

// Bootstrap drains the remote store into the counter store's absolute
// totals: for each metric it scans every key under the metric's namespace,
// reads each hash fully, and installs the result via LoadAbsolute.
//
// It runs once at startup, before the service starts accepting traffic.
// Failure leaves the store untouched; the caller is expected to log and
// proceed with an empty baseline rather than refuse to start.
func Bootstrap(ctx context.Context, remote RemoteStore, store *Store) error {
	loaded := NewTables()
	buckets := 0

	for _, m := range Metrics {
		keys, err := remote.ScanKeys(ctx, MetricPrefix(m))
		if err != nil {
			return fmt.Errorf("scan %s keys: %w", m, err)
		}
		for _, key := range keys {
			fields, err := remote.ReadHash(ctx, key)
			if err != nil {
				return fmt.Errorf("read %s: %w", key, err)
			}
			bucket := BucketFromKey(m, key)
			for label, n := range fields {
				loaded.Add(m, bucket, label, n)
			}
			buckets++
		}
	}

	store.LoadAbsolute(loaded)
	log.Info().Int("buckets", buckets).Msg("initial sync from remote store completed")
	return nil
}
