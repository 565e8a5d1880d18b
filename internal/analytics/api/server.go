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

// Package api implements the public-facing HTTP server: document conversion
// uploads and the usage statistics endpoint.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"docsifer/internal/analytics/core"
	"docsifer/internal/analytics/telemetry"
	"docsifer/internal/converter"
)

// maxUploadBytes bounds the multipart form memory for /v1/convert.
const maxUploadBytes = 32 << 20

// Server handles the HTTP requests for the conversion service.
type Server struct {
	store *core.Store
	conv  converter.Converter
}

// NewServer creates an API server over the given counter store and converter.
func NewServer(store *core.Store, conv converter.Converter) *Server {
	return &Server{store: store, conv: conv}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/convert", s.handleConvert)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/healthz", s.handleHealthz)
}

type convertResponse struct {
	Filename string `json:"filename"`
	Markdown string `json:"markdown"`
}

// handleConvert accepts one multipart file upload, converts it to markdown,
// and records the usage. Recording is in-memory and infallible, so it never
// affects the response on the conversion path.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := s.conv.Convert(r.Context(), header.Filename, file)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("conversion failed")
		http.Error(w, "failed to convert document", http.StatusInternalServerError)
		return
	}

	s.store.Record(uint64(result.Tokens))
	telemetry.RecordsTotal.Inc()

	writeJSON(w, convertResponse{Filename: result.Filename, Markdown: result.Markdown})
}

// handleStats serves a snapshot of the absolute totals for both metrics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.store.Snapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// ListenAndServe starts the HTTP server on the specified address with sane
// timeouts. Callers that need graceful shutdown should build the
// http.Server themselves and only use RegisterRoutes.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}
