// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

// Package extract turns raw comment dumps into per-comment Extractions, the
// records consumed by the aggregation engine.
package extract

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"
)

// UnknownLanguage is the language code of comments whose language could not
// be detected.
const UnknownLanguage = "unknown"

// Extraction is the per-comment analysis record.
type Extraction struct {
	CommentID          string   `json:"comment_id"`
	Author             string   `json:"author,omitempty"`
	Language           string   `json:"language"`
	LanguageConfidence float64  `json:"language_confidence"`
	CitiesMentioned    []string `json:"cities_mentioned"`
	CountriesMentioned []string `json:"countries_mentioned"`
	TimezoneHint       string   `json:"timezone_hint,omitempty"`
	TextLength         int      `json:"text_length,omitempty"`
	PublishedAt        string   `json:"published_at,omitempty"`
}

// HasLanguage reports whether the extraction carries a usable language code.
func (e *Extraction) HasLanguage() bool {
	return e.Language != "" && e.Language != UnknownLanguage
}

// LoadExtractions reads extractions either as a single JSON array or as a
// stream of JSON objects (one per line).
func LoadExtractions(r io.Reader) ([]Extraction, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading extractions: %w", err)
	}

	dec := json.NewDecoder(br)

	if first == '[' {
		var out []Extraction
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("decoding extractions: %w", err)
		}

		return out, nil
	}

	var out []Extraction

	for line := 1; ; line++ {
		var e Extraction

		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return nil, fmt.Errorf("decoding extraction #%d: %w", line, err)
		}

		out = append(out, e)
	}
}

// peekNonSpace skips leading whitespace and returns the next byte unread.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}

		if b < 0x80 && unicode.IsSpace(rune(b)) {
			continue
		}

		// skip a UTF-8 byte order mark
		if b == 0xEF {
			if bom, err := br.Peek(2); err == nil && bom[0] == 0xBB && bom[1] == 0xBF {
				_, _ = br.Discard(2)

				continue
			}
		}

		return b, br.UnreadByte()
	}
}
