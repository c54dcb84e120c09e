// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package signals

import (
	"maps"
	"slices"
)

// Level is the granularity a location is tracked at.
type Level string

const (
	LevelCity    Level = "city"
	LevelCountry Level = "country"
)

// Signal is one weighted observation linking a comment to a location.
type Signal struct {
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}

// LocationRecord accumulates every signal seen for one location.
// Count always equals len(Signals) and Score the sum of their confidences.
type LocationRecord struct {
	Score   float64  `json:"score"`
	Signals []Signal `json:"signals"`
	Count   int      `json:"count"`
}

func (r *LocationRecord) append(s Signal) {
	r.Signals = append(r.Signals, s)
	r.Count++
	r.Score += s.Confidence
}

// AvgConfidence is Score/Count, or 0 for an empty record.
func (r *LocationRecord) AvgConfidence() float64 {
	if r.Count == 0 {
		return 0
	}

	return r.Score / float64(r.Count)
}

// SignalTypes returns the distinct signal types of the record, sorted.
func (r *LocationRecord) SignalTypes() []string {
	types := make([]string, 0, len(r.Signals))
	for _, s := range r.Signals {
		types = append(types, s.Type)
	}

	slices.Sort(types)

	return slices.Compact(types)
}

func (r *LocationRecord) clone() LocationRecord {
	c := LocationRecord{
		Score:   r.Score,
		Count:   r.Count,
		Signals: make([]Signal, len(r.Signals)),
	}

	for i, s := range r.Signals {
		c.Signals[i] = Signal{
			Type:       s.Type,
			Confidence: s.Confidence,
			Metadata:   maps.Clone(s.Metadata),
		}
	}

	return c
}
