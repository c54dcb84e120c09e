// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text place names to coordinates. Remote
// providers implement Geocoder; Client wraps one with a write-once cache and
// a bounded retry loop so that callers never see a provider failure.
package geocode

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jcodagnone/viewergeo/spatial"
)

// Result represents a geocoding result from any provider.
type Result struct {
	Name             string          `json:"name"` // the name that was looked up
	FormattedAddress string          `json:"formatted_address"`
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	City             string          `json:"city"`    // first component of FormattedAddress
	Country          string          `json:"country"` // last component of FormattedAddress
	Provider         string          `json:"provider"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// Point returns the coordinates of the result.
func (r *Result) Point() spatial.Point {
	return spatial.Point{Lat: r.Latitude, Lng: r.Longitude}
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}

	c := *r
	if r.Raw != nil {
		c.Raw = append(json.RawMessage(nil), r.Raw...)
	}

	return &c
}

// Geocoder interface for different geocoding providers.
//
// Implementations return an *Error so that Client can tell transient
// failures from definitive ones; ErrorTypeNotFound means "no such place".
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*Result, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, name string) (*Result, error)

// Geocode calls f.
func (f GeocoderFunc) Geocode(ctx context.Context, name string) (*Result, error) {
	return f(ctx, name)
}

// SplitAddress extracts a best-effort city and country from a formatted
// address: the first and last comma separated components. No locale aware
// parsing is attempted, so "Manhattan, New York County, New York, United
// States" yields city "Manhattan".
func SplitAddress(formatted string) (city, country string) {
	parts := strings.Split(formatted, ",")

	first := strings.TrimSpace(parts[0])
	last := strings.TrimSpace(parts[len(parts)-1])

	return first, last
}

// newResult fills the derived fields of a provider answer.
func newResult(name, provider, address string, lat, lng float64, raw json.RawMessage) *Result {
	city, country := SplitAddress(address)

	return &Result{
		Name:             name,
		FormattedAddress: address,
		Latitude:         lat,
		Longitude:        lng,
		City:             city,
		Country:          country,
		Provider:         provider,
		Raw:              raw,
	}
}
