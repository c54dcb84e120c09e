// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds coordinates returned by geocoders.
package spatial

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

// DefaultResolution is the H3 resolution attached to geocoded signals. Cells
// at this resolution are roughly the size of a metropolitan area.
const DefaultResolution = 5

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Valid reports whether the point lies within the WGS84 coordinate range.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

// Cell returns the H3 cell index of the point at the given resolution.
func (p Point) Cell(resolution int) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("spatial: invalid point %s", p)
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), resolution)
	if err != nil {
		return "", fmt.Errorf("converting to h3 cell at res %d: %w", resolution, err)
	}

	return cell.String(), nil
}
