// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

// Package report stores finished aggregation runs and serves them over a
// read-only JSON API.
package report

import (
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/jcodagnone/viewergeo/aggregate"
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a run without its tables.
type RunInfo struct {
	ID        string            `json:"id"`
	VideoID   string            `json:"video_id,omitempty"`
	Source    string            `json:"source,omitempty"`
	Comments  int               `json:"comments"`
	CreatedAt time.Time         `json:"created_at"`
	Summary   aggregate.Summary `json:"summary"`
}

// Run is one finished aggregation: its distribution and signal breakdown.
type Run struct {
	RunInfo

	Cities          []aggregate.Row `json:"cities"`
	Countries       []aggregate.Row `json:"countries"`
	SignalBreakdown map[string]int  `json:"signal_breakdown"`
}

// NewRun wraps the results of an aggregation under a fresh ID.
func NewRun(videoID, source string, comments int, dist aggregate.Distribution, breakdown map[string]int) *Run {
	if breakdown == nil {
		breakdown = map[string]int{}
	}

	return &Run{
		RunInfo: RunInfo{
			ID:        uuid.NewString(),
			VideoID:   videoID,
			Source:    source,
			Comments:  comments,
			CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
			Summary:   dist.Summary,
		},
		Cities:          dist.Cities,
		Countries:       dist.Countries,
		SignalBreakdown: maps.Clone(breakdown),
	}
}

// Distribution returns the run tables as an aggregate.Distribution.
func (r *Run) Distribution() aggregate.Distribution {
	return aggregate.Distribution{
		Cities:    r.Cities,
		Countries: r.Countries,
		Summary:   r.Summary,
	}
}
