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

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_EnvFallback(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://example:6379/0")
	t.Setenv("REDIS_TOKEN", "secret")
	t.Setenv("SYNC_INTERVAL", "1800")
	t.Setenv("MAX_RETRIES", "7")

	var c Config
	require.NoError(t, c.applyEnv())
	c.applyDefaults()

	require.Equal(t, "redis://example:6379/0", c.RedisURL)
	require.Equal(t, "secret", c.RedisToken)
	require.Equal(t, 30*time.Minute, c.FlushInterval)
	require.Equal(t, 7, c.MaxRetries)
	require.NoError(t, c.Validate())
}

func TestConfig_FlagsBeatEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://env:6379/0")

	c := Config{RedisURL: "redis://flag:6379/0"}
	require.NoError(t, c.applyEnv())
	require.Equal(t, "redis://flag:6379/0", c.RedisURL)
}

func TestConfig_Validate(t *testing.T) {
	c := Config{RedisURL: "redis://x:6379", FlushInterval: time.Minute, MaxRetries: 5, HTTPAddr: ":7860"}
	require.NoError(t, c.Validate())

	require.Error(t, (&Config{FlushInterval: time.Minute, MaxRetries: 5, HTTPAddr: ":1"}).Validate())
	require.Error(t, (&Config{RedisURL: "x", MaxRetries: 5, HTTPAddr: ":1"}).Validate())
	require.Error(t, (&Config{RedisURL: "x", FlushInterval: time.Minute, HTTPAddr: ":1"}).Validate())
}

func TestConfig_RejectsBadEnvNumbers(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "soon")
	var c Config
	require.Error(t, c.applyEnv())
}
