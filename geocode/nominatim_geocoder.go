// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

const (
	nominatimProvider = "nominatim"
	nominatimURL      = "https://nominatim.openstreetmap.org/search"
)

// NominatimGeocoder uses the OpenStreetMap Nominatim search API. The public
// instance requires an identifying User-Agent and at most one request per
// second; see NewHTTPClient.
type NominatimGeocoder struct {
	httpClient *http.Client
	// BaseURL overrides the API endpoint, used by tests and self-hosted instances.
	BaseURL string
}

// NewNominatimGeocoder creates a Nominatim geocoder. A nil client means
// NewHTTPClient throttled to one request per second.
func NewNominatimGeocoder(client *http.Client) *NominatimGeocoder {
	if client == nil {
		client = NewHTTPClient(HTTPOptions{RequestsPerSecond: 1})
	}

	return &NominatimGeocoder{
		httpClient: client,
		BaseURL:    nominatimURL,
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Geocoder.
func (g *NominatimGeocoder) Geocode(ctx context.Context, name string) (*Result, error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	var places []json.RawMessage
	if err := getJSON(ctx, g.httpClient, g.BaseURL+"?"+params.Encode(), &places); err != nil {
		return nil, withProvider(err, nominatimProvider)
	}

	if len(places) == 0 {
		return nil, withProvider(notFound(name), nominatimProvider)
	}

	var place nominatimPlace
	if err := json.Unmarshal(places[0], &place); err != nil {
		return nil, withProvider(&Error{Type: ErrorTypeUnknown, Message: "decoding place", Err: err}, nominatimProvider)
	}

	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, withProvider(&Error{Type: ErrorTypeUnknown, Message: "parsing latitude", Err: err}, nominatimProvider)
	}

	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, withProvider(&Error{Type: ErrorTypeUnknown, Message: "parsing longitude", Err: err}, nominatimProvider)
	}

	return newResult(name, nominatimProvider, place.DisplayName, lat, lon, places[0]), nil
}
