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
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the service needs at construction time. Values
// come from flags, with environment variables (optionally via a .env file)
// as fallback for anything left at its zero value.
type Config struct {
	RedisURL      string
	RedisToken    string
	FlushInterval time.Duration
	MaxRetries    int
	HTTPAddr      string
	MetricsAddr   string
}

// applyEnv fills unset fields from the environment.
func (c *Config) applyEnv() error {
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if c.RedisToken == "" {
		c.RedisToken = os.Getenv("REDIS_TOKEN")
	}
	if c.FlushInterval == 0 {
		if v := os.Getenv("SYNC_INTERVAL"); v != "" {
			secs, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("SYNC_INTERVAL must be an integer number of seconds: %w", err)
			}
			c.FlushInterval = time.Duration(secs) * time.Second
		}
	}
	if c.MaxRetries == 0 {
		if v := os.Getenv("MAX_RETRIES"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("MAX_RETRIES must be an integer: %w", err)
			}
			c.MaxRetries = n
		}
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = os.Getenv("HTTP_ADDR")
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = os.Getenv("METRICS_ADDR")
	}
	return nil
}

// applyDefaults fills whatever is still unset after flags and env.
func (c *Config) applyDefaults() {
	if c.FlushInterval == 0 {
		c.FlushInterval = 30 * time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":7860"
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return errors.New("redis url is required (flag --redis-url or env REDIS_URL)")
	}
	if c.FlushInterval <= 0 {
		return errors.New("flush interval must be positive")
	}
	if c.MaxRetries <= 0 {
		return errors.New("max retries must be positive")
	}
	if c.HTTPAddr == "" {
		return errors.New("http address must not be empty")
	}
	return nil
}
