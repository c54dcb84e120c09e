// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

const (
	googleMapsProvider = "google_maps"
	googleMapsURL      = "https://maps.googleapis.com/maps/api/geocode/json"
)

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	httpClient *http.Client
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder. A nil client
// means NewHTTPClient with default options.
func NewGoogleMapsGeocoder(apiKey string, client *http.Client) *GoogleMapsGeocoder {
	if client == nil {
		client = NewHTTPClient(HTTPOptions{})
	}

	return &GoogleMapsGeocoder{
		apiKey:     apiKey,
		httpClient: client,
		BaseURL:    googleMapsURL,
	}
}

type googleMapsResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

type googleMapsResponse struct {
	Results      []json.RawMessage `json:"results"`
	Status       string            `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string            `json:"error_message"`
}

// statusError maps a Google status field to an *Error.
func (r *googleMapsResponse) statusError(name string) *Error {
	msg := "google maps status: " + r.Status
	if r.ErrorMessage != "" {
		msg += " (" + r.ErrorMessage + ")"
	}

	switch r.Status {
	case "OK":
		if len(r.Results) == 0 {
			return notFound(name)
		}

		return nil
	case "ZERO_RESULTS":
		return notFound(name)
	case "OVER_QUERY_LIMIT":
		return &Error{Type: ErrorTypeRateLimit, Message: msg}
	case "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return &Error{Type: ErrorTypeQuotaExceeded, Message: msg}
	case "INVALID_REQUEST":
		return &Error{Type: ErrorTypeInvalidRequest, Message: msg}
	default: // UNKNOWN_ERROR may succeed on retry
		return &Error{Type: ErrorTypeUnknown, Message: msg}
	}
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, name string) (*Result, error) {
	params := url.Values{}
	params.Set("address", name)
	params.Set("key", g.apiKey)

	var gmResp googleMapsResponse
	if err := getJSON(ctx, g.httpClient, g.BaseURL+"?"+params.Encode(), &gmResp); err != nil {
		return nil, withProvider(err, googleMapsProvider)
	}

	if err := gmResp.statusError(name); err != nil {
		return nil, withProvider(err, googleMapsProvider)
	}

	raw := gmResp.Results[0]

	var result googleMapsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, withProvider(&Error{Type: ErrorTypeUnknown, Message: "decoding result", Err: err}, googleMapsProvider)
	}

	return newResult(
		name,
		googleMapsProvider,
		result.FormattedAddress,
		result.Geometry.Location.Lat,
		result.Geometry.Location.Lng,
		raw,
	), nil
}
