// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

// Package signals holds the weighted location observations collected while
// estimating the audience of a video, grouped by location and granularity.
package signals

import "maps"

// Signal types produced by the aggregator.
const (
	CityMentioned     = "city_mentioned"      // direct city mention in a comment
	CountryMentioned  = "country_mentioned"   // direct country mention in a comment
	GeocodedLocation  = "geocoded_location"   // city mention resolved by the geocoder
	LanguageToCountry = "language_to_country" // inferred from the comment language
	TimezoneHint      = "timezone_hint"       // inferred from the posting time
	ChannelMetadata   = "channel_metadata"    // channel default language or region
)

// DefaultWeight is the confidence given to signal types missing from a table.
const DefaultWeight = 0.5

var defaultWeights = WeightTable{
	CityMentioned:     0.9,
	CountryMentioned:  0.7,
	GeocodedLocation:  0.85,
	LanguageToCountry: 0.3,
	TimezoneHint:      0.2,
	ChannelMetadata:   0.5,
}

// WeightTable maps a signal type to its default confidence.
type WeightTable map[string]float64

// DefaultWeights returns a copy of the built-in weight table.
func DefaultWeights() WeightTable {
	return maps.Clone(defaultWeights)
}

// Weight returns the confidence for signalType, or DefaultWeight if the
// table does not know it.
func (t WeightTable) Weight(signalType string) float64 {
	if w, ok := t[signalType]; ok {
		return w
	}

	return DefaultWeight
}

// With returns a copy of the table with signalType set to weight.
func (t WeightTable) With(signalType string, weight float64) WeightTable {
	c := maps.Clone(t)
	if c == nil {
		c = WeightTable{}
	}

	c[signalType] = weight

	return c
}

// Weight looks signalType up in the built-in table.
func Weight(signalType string) float64 {
	return defaultWeights.Weight(signalType)
}
