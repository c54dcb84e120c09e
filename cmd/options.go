// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/jcodagnone/viewergeo/aggregate"
	"github.com/jcodagnone/viewergeo/geocode"
)

const dbFile = "viewergeo.duckdb"

// Geocoder names accepted by --geocoder.
const (
	geocoderNominatim = "nominatim"
	geocoderGoogle    = "google"
	geocoderNone      = "none"
)

type geocodeOptions struct {
	DbPath              string
	Geocoder            string
	Retries             int
	Timeout             time.Duration
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
	NoCache             bool
}

var geoOptions = &geocodeOptions{}

func addGeocodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&geoOptions.Geocoder,
		"geocoder",
		geocoderNominatim,
		"Geocoding provider: nominatim, google or none",
	)
	cmd.Flags().IntVar(
		&geoOptions.Retries,
		"retries",
		geocode.DefaultRetries,
		"Maximum geocoding attempts per location",
	)
	cmd.Flags().DurationVar(
		&geoOptions.Timeout,
		"timeout",
		geocode.DefaultTimeout,
		"Timeout of each geocoding attempt",
	)
	cmd.Flags().BoolVar(
		&geoOptions.NoCache,
		"no-cache",
		false,
		"Do not read or write the persistent geocoding cache",
	)
	cmd.Flags().BoolVar(
		&geoOptions.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	cmd.Flags().BoolVar(
		&geoOptions.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
}

func addDbPathFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&geoOptions.DbPath,
		"db-path",
		"db",
		"Directory of the local database",
	)
}

func userAgent() string {
	if ua := os.Getenv("VIEWERGEO_USER_AGENT"); ua != "" {
		return ua
	}

	return fmt.Sprintf("viewergeo/%s (+https://github.com/jcodagnone/viewergeo)", Version)
}

// openDB opens the local database, creating its directory when needed.
func openDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(dbPath, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dbPath, dbFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

// newGeocoder builds the remote provider selected by --geocoder. "none"
// yields a nil Geocoder.
func newGeocoder(ctx context.Context, options *geocodeOptions) (geocode.Geocoder, error) {
	httpOptions := geocode.HTTPOptions{
		UserAgent:           userAgent(),
		EnableHTTPTrace:     options.EnableHTTPTrace,
		EnableHTTPBodyTrace: options.EnableHTTPBodyTrace,
	}

	switch options.Geocoder {
	case geocoderNone:
		return nil, nil
	case geocoderNominatim:
		httpOptions.RequestsPerSecond = 1

		return geocode.NewNominatimGeocoder(geocode.NewHTTPClient(httpOptions)), nil
	case geocoderGoogle:
		apiKey, err := geocode.ResolveGoogleMapsAPIKey(ctx)
		if err != nil {
			return nil, err
		}

		return geocode.NewGoogleMapsGeocoder(apiKey, geocode.NewHTTPClient(httpOptions)), nil
	default:
		return nil, fmt.Errorf("unknown geocoder %q (want nominatim, google or none)", options.Geocoder)
	}
}

// newGeocodeClient wires the provider behind a caching Client. The cache
// lives in db unless --no-cache is set. A nil client means geocoding is off.
func newGeocodeClient(ctx context.Context, db *sql.DB, options *geocodeOptions) (*geocode.Client, error) {
	provider, err := newGeocoder(ctx, options)
	if err != nil || provider == nil {
		return nil, err
	}

	clientOptions := geocode.ClientOptions{
		Retries: options.Retries,
		Timeout: options.Timeout,
	}

	if !options.NoCache && db != nil {
		repo := geocode.NewCacheRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return nil, fmt.Errorf("creating geocode cache schema: %w", err)
		}

		clientOptions.Store = repo
	}

	return geocode.NewClient(ctx, provider, clientOptions), nil
}

// geocodeFunc adapts client to the aggregator; nil disables geocoding.
func geocodeFunc(client *geocode.Client) aggregate.GeocodeFunc {
	if client == nil {
		return nil
	}

	return client.Geocode
}
