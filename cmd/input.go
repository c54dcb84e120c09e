// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jcodagnone/viewergeo/extract"
)

// analysisInput is what the analyze command aggregates.
type analysisInput struct {
	Extractions []extract.Extraction
	Metadata    *extract.VideoMetadata // only for collector dumps
	VideoID     string
}

// loadInput reads either a collector dump ({"metadata", "comments"}), whose
// comments are analyzed locally, or precomputed extractions.
func loadInput(path string) (*analysisInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	if isVideoDump(data) {
		video, err := extract.LoadVideoData(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}

		log.Printf("Analyzing %d comments of video %s", len(video.Comments), video.Metadata.VideoID)

		return &analysisInput{
			Extractions: extract.NewAnalyzer(nil, nil).AnalyzeAll(video.Comments),
			Metadata:    &video.Metadata,
			VideoID:     video.Metadata.VideoID,
		}, nil
	}

	exts, err := extract.LoadExtractions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return &analysisInput{Extractions: exts}, nil
}

func isVideoDump(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	var shape struct {
		Metadata json.RawMessage `json:"metadata"`
		Comments json.RawMessage `json:"comments"`
	}

	// only the first value matters, extractions may follow as JSON lines
	if err := json.NewDecoder(bytes.NewReader(trimmed)).Decode(&shape); err != nil {
		return false
	}

	return shape.Metadata != nil || shape.Comments != nil
}
