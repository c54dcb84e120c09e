// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

// Package aggregate turns per-comment extractions into ranked,
// confidence-tiered estimates of where a video's audience is.
package aggregate

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/jcodagnone/viewergeo/extract"
	"github.com/jcodagnone/viewergeo/geocode"
	"github.com/jcodagnone/viewergeo/signals"
	"github.com/jcodagnone/viewergeo/spatial"
)

// GeocodeFunc resolves a place name, returning nil when it cannot.
// (*geocode.Client).Geocode satisfies it.
type GeocodeFunc func(ctx context.Context, name string) *geocode.Result

// Options configuration for Aggregator.
type Options struct {
	// Confidence weights, nil means signals.DefaultWeights
	Weights signals.WeightTable

	// Show a progress bar when stderr is a terminal
	ShowProgress bool

	// H3 resolution of the cell attached to geocoded signals, 0 means
	// spatial.DefaultResolution
	H3Resolution int
}

// Aggregator owns the signal store of one aggregation run.
type Aggregator struct {
	store   *signals.Store
	options Options
}

// NewAggregator creates an aggregator with an empty store.
func NewAggregator(options Options) *Aggregator {
	if options.H3Resolution <= 0 {
		options.H3Resolution = spatial.DefaultResolution
	}

	return &Aggregator{
		store:   signals.NewStore(options.Weights),
		options: options,
	}
}

// Store exposes the underlying signal store.
func (a *Aggregator) Store() *signals.Store {
	return a.store
}

// AddSignal records one signal. See signals.Store.Add.
func (a *Aggregator) AddSignal(location, signalType string, opts ...signals.AddOption) signals.Signal {
	return a.store.Add(location, signalType, opts...)
}

// Reset drops every accumulated signal.
func (a *Aggregator) Reset() {
	a.store.Reset()
}

// ProcessCommentAnalysis adds the signals carried by one extraction:
// a city_mentioned signal per city (plus a geocoded_location signal under the
// resolved city name when geocodeFn resolves it), a country_mentioned signal
// per country, and a language_to_country signal when the language maps to a
// country. A nil geocodeFn disables geocoding.
func (a *Aggregator) ProcessCommentAnalysis(ctx context.Context, ext extract.Extraction, geocodeFn GeocodeFunc) {
	for _, city := range ext.CitiesMentioned {
		a.store.Add(city, signals.CityMentioned,
			signals.AtLevel(signals.LevelCity),
			signals.WithMetadata(map[string]any{"comment_id": ext.CommentID}),
		)

		if geocodeFn == nil {
			continue
		}

		result := geocodeFn(ctx, city)
		if result == nil {
			continue
		}

		resolved := result.City
		if resolved == "" {
			resolved = city
		}

		a.store.Add(resolved, signals.GeocodedLocation,
			signals.AtLevel(signals.LevelCity),
			signals.WithMetadata(a.geocodeMetadata(ext.CommentID, city, result)),
		)
	}

	for _, country := range ext.CountriesMentioned {
		a.store.Add(country, signals.CountryMentioned,
			signals.AtLevel(signals.LevelCountry),
			signals.WithMetadata(map[string]any{"comment_id": ext.CommentID}),
		)
	}

	if !ext.HasLanguage() {
		return
	}

	if country := InferCountryFromLanguage(ext.Language); country != "" {
		a.store.Add(country, signals.LanguageToCountry,
			signals.AtLevel(signals.LevelCountry),
			signals.WithMetadata(map[string]any{"comment_id": ext.CommentID, "language": ext.Language}),
		)
	}
}

func (a *Aggregator) geocodeMetadata(commentID, mention string, result *geocode.Result) map[string]any {
	md := map[string]any{
		"comment_id": commentID,
		"mention":    mention,
		"lat":        result.Latitude,
		"lon":        result.Longitude,
		"country":    result.Country,
	}

	cell, err := result.Point().Cell(a.options.H3Resolution)
	if err != nil {
		log.Printf("Skipping H3 cell for %q - %s", mention, err)
	} else {
		md["h3"] = cell
	}

	return md
}

// ProcessAllAnalyses processes extractions in input order.
func (a *Aggregator) ProcessAllAnalyses(ctx context.Context, exts []extract.Extraction, geocodeFn GeocodeFunc) {
	n := len(exts)

	var bar *progressbar.ProgressBar
	if a.options.ShowProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Aggregating comments"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	log.Printf("Processing %d comment analyses", n)

	for i, ext := range exts {
		a.ProcessCommentAnalysis(ctx, ext, geocodeFn)

		if bar != nil {
			if err := bar.Add(1); err != nil {
				log.Printf("Updating progress bar failed - %s", err)
			}
		} else if (i+1)%100 == 0 {
			log.Printf("Processed %d/%d comment analyses", i+1, n)
		}
	}

	log.Printf("Aggregation complete - %d cities, %d countries",
		a.store.Len(signals.LevelCity), a.store.Len(signals.LevelCountry))
}

// ProcessChannelMetadata adds channel_metadata signals at country level from
// the video's default language, default audio language and channel country.
// It returns the number of signals added.
func (a *Aggregator) ProcessChannelMetadata(meta extract.VideoMetadata) int {
	seen := make(map[string]bool)
	added := 0

	add := func(country, source, value string) {
		if country == "" || seen[country] {
			return
		}

		seen[country] = true
		added++

		a.store.Add(country, signals.ChannelMetadata,
			signals.AtLevel(signals.LevelCountry),
			signals.WithMetadata(map[string]any{"source": source, "value": value}),
		)
	}

	if meta.ChannelCountry != "" {
		add(regionName(meta.ChannelCountry), "channel_country", meta.ChannelCountry)
	}

	add(InferCountryFromLanguage(meta.DefaultLanguage), "default_language", meta.DefaultLanguage)
	add(InferCountryFromLanguage(meta.DefaultAudioLanguage), "default_audio_language", meta.DefaultAudioLanguage)

	return added
}

// regionName turns an ISO 3166 code into its English name. Anything else is
// returned trimmed, as a country name.
func regionName(code string) string {
	code = strings.TrimSpace(code)

	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}

	if name := display.English.Regions().Name(region); name != "" {
		return name
	}

	return code
}
