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

// Package main is the entry point for the docsifer conversion service: an
// HTTP API that converts uploaded documents to markdown and aggregates usage
// counters, persisting them to Redis in the background.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"docsifer/internal/analytics/api"
	"docsifer/internal/analytics/core"
	"docsifer/internal/analytics/persistence"
	"docsifer/internal/analytics/telemetry"
	"docsifer/internal/converter"
)

// Version information (set at build time with -ldflags).
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var cfg Config

var rootCmd = &cobra.Command{
	Use:     "docsifer",
	Short:   "Docsifer - document-to-markdown conversion with usage analytics",
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docsifer %s\n", Version)
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Flags().StringVar(&cfg.RedisURL, "redis-url", "", "Redis endpoint URL (env REDIS_URL)")
	rootCmd.Flags().StringVar(&cfg.RedisToken, "redis-token", "", "Redis access token (env REDIS_TOKEN)")
	rootCmd.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", 0, "How often pending counter deltas are flushed to Redis (env SYNC_INTERVAL, seconds; default 30m)")
	rootCmd.Flags().IntVar(&cfg.MaxRetries, "max-retries", 0, "Reconnection attempts after a failed flush (env MAX_RETRIES; default 5)")
	rootCmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", "", "HTTP listen address (env HTTP_ADDR; default :7860)")
	rootCmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "If non-empty, expose Prometheus /metrics on this address (env METRICS_ADDR)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err == nil {
		log.Info().Msg("loaded configuration from .env")
	}
	if err := cfg.applyEnv(); err != nil {
		log.Fatal().Err(err).Msg("invalid environment configuration")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	telemetry.Register()

	remoteOpts := persistence.Options{URL: cfg.RedisURL, Token: cfg.RedisToken}
	remote, err := persistence.New(remoteOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create remote store client")
	}

	store := core.NewStore(core.DefaultLabel)

	// Bootstrap before accepting traffic so early records are never racing a
	// wholesale reload. A failed bootstrap is tolerated: the service starts
	// with an empty baseline rather than refusing to start.
	bootCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := core.Bootstrap(bootCtx, remote, store); err != nil {
		log.Error().Err(err).Msg("initial sync from remote store failed; starting with empty baseline")
	}
	cancel()

	worker := core.NewWorker(store, remote, persistence.Dialer(remoteOpts), cfg.FlushInterval, cfg.MaxRetries)
	worker.Start()

	apiServer := api.NewServer(store, converter.NewBasic())
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", telemetry.Handler())
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint listening")
			if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("docsifer API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")

	// Stop the worker first: it performs a best-effort final flush of any
	// pending deltas, then releases the remote handle it owns.
	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	log.Info().Msg("stopped")
}
