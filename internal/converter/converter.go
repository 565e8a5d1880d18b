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

// Package converter defines the content-converter collaborator: given an
// uploaded document it returns extracted markdown and a token count. The
// analytics subsystem only ever consumes the token count.
package converter

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// Result is the outcome of a single document conversion.
type Result struct {
	Filename string `json:"filename"`
	Markdown string `json:"markdown"`
	Tokens   int    `json:"-"`
}

// Converter turns an uploaded document into markdown plus a token count.
type Converter interface {
	Convert(ctx context.Context, filename string, r io.Reader) (*Result, error)
}

// maxDocumentBytes caps how much of an upload the basic converter reads.
const maxDocumentBytes = 32 << 20

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<(script|style)\b.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// Basic is a dependency-free converter for text-like documents: HTML is
// stripped of markup, everything else passes through as-is. Token counts are
// whitespace-based estimates.
type Basic struct{}

// NewBasic returns the basic text/HTML converter.
func NewBasic() *Basic { return &Basic{} }

// Convert reads the document and produces markdown plus an estimated token
// count. Inputs larger than maxDocumentBytes are truncated, not rejected.
func (b *Basic) Convert(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		text = stripHTML(text)
	}
	markdown := strings.TrimSpace(text)

	return &Result{
		Filename: filename,
		Markdown: markdown,
		Tokens:   EstimateTokens(markdown),
	}, nil
}

// EstimateTokens approximates token usage by whitespace-separated word
// count. The original service counted model tokens; word count is its
// documented fallback and is close enough for usage accounting.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// stripHTML removes script/style blocks and all remaining tags, collapsing
// the leftover blank runs.
func stripHTML(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	return blankRunRe.ReplaceAllString(s, "\n\n")
}
