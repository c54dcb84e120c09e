// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package signals

import (
	"maps"
	"slices"
	"sync"
)

// Store keeps a city and a country namespace of LocationRecords. Keys are
// the raw location names, so "NYC" and "New York" are distinct locations.
//
// A Store is safe for concurrent use. Within one location, signals keep the
// order in which Add was called.
type Store struct {
	mu        sync.Mutex
	weights   WeightTable
	cities    map[string]*LocationRecord
	countries map[string]*LocationRecord
}

// NewStore creates an empty store. A nil table means DefaultWeights.
func NewStore(weights WeightTable) *Store {
	if weights == nil {
		weights = DefaultWeights()
	}

	s := &Store{weights: weights}
	s.reset()

	return s
}

func (s *Store) reset() {
	s.cities = make(map[string]*LocationRecord)
	s.countries = make(map[string]*LocationRecord)
}

// Reset drops every record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
}

// Weights returns the table used to resolve default confidences.
func (s *Store) Weights() WeightTable {
	return s.weights
}

// namespace returns the map for level. Anything but LevelCity is a country.
func (s *Store) namespace(level Level) map[string]*LocationRecord {
	if level == LevelCity {
		return s.cities
	}

	return s.countries
}

type addOptions struct {
	confidence *float64
	metadata   map[string]any
	level      Level
}

// AddOption customizes a single Add call.
type AddOption func(*addOptions)

// WithConfidence overrides the weight table for this signal.
func WithConfidence(c float64) AddOption {
	return func(o *addOptions) {
		o.confidence = &c
	}
}

// WithMetadata attaches metadata to the signal. The map is copied.
func WithMetadata(m map[string]any) AddOption {
	return func(o *addOptions) {
		o.metadata = m
	}
}

// AtLevel selects the namespace. Signals go to LevelCity by default.
func AtLevel(level Level) AddOption {
	return func(o *addOptions) {
		o.level = level
	}
}

// Add appends a signal of signalType to location and returns it.
func (s *Store) Add(location, signalType string, opts ...AddOption) Signal {
	o := addOptions{level: LevelCity}
	for _, opt := range opts {
		opt(&o)
	}

	confidence := s.weights.Weight(signalType)
	if o.confidence != nil {
		confidence = *o.confidence
	}

	metadata := maps.Clone(o.metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	sig := Signal{
		Type:       signalType,
		Confidence: confidence,
		Metadata:   metadata,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespace(o.level)

	rec, ok := ns[location]
	if !ok {
		rec = &LocationRecord{}
		ns[location] = rec
	}

	rec.append(sig)

	return sig
}

// Record returns a copy of the record for location.
func (s *Store) Record(level Level, location string) (LocationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.namespace(level)[location]
	if !ok {
		return LocationRecord{}, false
	}

	return rec.clone(), true
}

// Len returns the number of distinct locations at level.
func (s *Store) Len(level Level) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.namespace(level))
}

// Locations returns the location names at level, sorted.
func (s *Store) Locations(level Level) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(maps.Keys(s.namespace(level)))
}

// Snapshot returns a deep copy of every record at level.
func (s *Store) Snapshot(level Level) map[string]LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespace(level)
	out := make(map[string]LocationRecord, len(ns))

	for name, rec := range ns {
		out[name] = rec.clone()
	}

	return out
}

// Breakdown counts signals per type across both levels.
func (s *Store) Breakdown() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)

	for _, ns := range []map[string]*LocationRecord{s.cities, s.countries} {
		for _, rec := range ns {
			for _, sig := range rec.Signals {
				counts[sig.Type]++
			}
		}
	}

	return counts
}

// Merge folds other into s. Scores and counts add up and signal sequences
// are concatenated after the ones already in s.
func (s *Store) Merge(other *Store) {
	if other == nil || other == s {
		return
	}

	cities := other.Snapshot(LevelCity)
	countries := other.Snapshot(LevelCountry)

	s.mu.Lock()
	defer s.mu.Unlock()

	for level, src := range map[Level]map[string]LocationRecord{LevelCity: cities, LevelCountry: countries} {
		ns := s.namespace(level)

		for name, rec := range src {
			dst, ok := ns[name]
			if !ok {
				dst = &LocationRecord{}
				ns[name] = dst
			}

			for _, sig := range rec.Signals {
				dst.append(sig)
			}
		}
	}
}
