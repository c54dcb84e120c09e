// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/viewergeo/extract"
	"github.com/jcodagnone/viewergeo/geocode"
	"github.com/jcodagnone/viewergeo/signals"
)

func fakeGeocode(known map[string]*geocode.Result) (GeocodeFunc, *[]string) {
	var calls []string

	return func(_ context.Context, name string) *geocode.Result {
		calls = append(calls, name)

		return known[name]
	}, &calls
}

func TestEstimateViewerDistributionEndToEnd(t *testing.T) {
	a := NewAggregator(Options{})
	a.AddSignal("New York", signals.CityMentioned)
	a.AddSignal("New York", signals.CityMentioned)
	a.AddSignal("London", signals.CityMentioned)

	dist := a.EstimateViewerDistribution(10)

	want := []Row{
		{
			Location:            "New York",
			TotalScore:          1.8,
			MentionCount:        2,
			AvgConfidence:       0.9,
			SignalTypes:         []string{signals.CityMentioned},
			NumSignals:          2,
			EstimatedPercentage: 66.67,
			ConfidenceLevel:     signals.ConfidenceMedium,
		},
		{
			Location:            "London",
			TotalScore:          0.9,
			MentionCount:        1,
			AvgConfidence:       0.9,
			SignalTypes:         []string{signals.CityMentioned},
			NumSignals:          1,
			EstimatedPercentage: 33.33,
			ConfidenceLevel:     signals.ConfidenceMedium,
		},
	}

	if diff := cmp.Diff(want, dist.Cities); diff != "" {
		t.Errorf("Cities mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, dist.Countries)
	assert.Equal(t, 2, dist.Summary.TotalCitiesIdentified)
	assert.Zero(t, dist.Summary.TotalCountriesIdentified)
	require.NotNil(t, dist.Summary.TopCity)
	assert.Equal(t, "New York", *dist.Summary.TopCity)
	assert.Nil(t, dist.Summary.TopCountry)
}

func TestEstimateViewerDistributionEmpty(t *testing.T) {
	dist := NewAggregator(Options{}).EstimateViewerDistribution(20)

	assert.Empty(t, dist.Cities)
	assert.Empty(t, dist.Countries)
	assert.Equal(t, Summary{}, dist.Summary)
	assert.Empty(t, NewAggregator(Options{}).SignalBreakdown())
}

func TestPercentagesSumToHundred(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	types := []string{signals.CityMentioned, signals.GeocodedLocation, signals.TimezoneHint, "foo"}

	for round := range 20 {
		a := NewAggregator(Options{})

		for range 500 {
			loc := fmt.Sprintf("city-%02d", r.IntN(50))
			a.AddSignal(loc, types[r.IntN(len(types))])
		}

		dist := a.EstimateViewerDistribution(50)

		sum := 0.0
		for _, row := range dist.Cities {
			sum += row.EstimatedPercentage
		}

		assert.InDelta(t, 100, sum, 0.1, "round %d", round)
	}
}

func TestTopLocationsOrdering(t *testing.T) {
	a := NewAggregator(Options{})
	a.AddSignal("Berlin", signals.CityMentioned)
	a.AddSignal("Amsterdam", signals.CityMentioned)
	a.AddSignal("Cairo", signals.CityMentioned)
	a.AddSignal("Cairo", signals.TimezoneHint)
	a.AddSignal("Lagos", signals.TimezoneHint)

	names := func(rows []Row) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Location
		}

		return out
	}

	assert.Equal(t, []string{"Cairo", "Amsterdam", "Berlin", "Lagos"}, names(a.TopLocations(0, signals.LevelCity)))
	assert.Equal(t, []string{"Cairo", "Amsterdam"}, names(a.TopLocations(2, signals.LevelCity)))
	assert.Empty(t, a.TopLocations(10, signals.LevelCountry))

	cairo := a.TopLocations(1, signals.LevelCity)[0]
	assert.Equal(t, []string{signals.CityMentioned, signals.TimezoneHint}, cairo.SignalTypes)
	assert.InDelta(t, 1.1, cairo.TotalScore, 1e-9)
	assert.InDelta(t, 0.55, cairo.AvgConfidence, 1e-9)
}

func TestDistributionPercentagesUseTruncatedTable(t *testing.T) {
	a := NewAggregator(Options{})
	a.AddSignal("A", "x", signals.WithConfidence(3), signals.AtLevel(signals.LevelCountry))
	a.AddSignal("B", "x", signals.WithConfidence(1), signals.AtLevel(signals.LevelCountry))
	a.AddSignal("C", "x", signals.WithConfidence(1), signals.AtLevel(signals.LevelCountry))

	dist := a.EstimateViewerDistribution(2)
	require.Len(t, dist.Countries, 2)
	assert.InDelta(t, 75.0, dist.Countries[0].EstimatedPercentage, 1e-9)
	assert.InDelta(t, 25.0, dist.Countries[1].EstimatedPercentage, 1e-9)
	assert.Equal(t, 3, dist.Summary.TotalCountriesIdentified)
	assert.Equal(t, "A", *dist.Summary.TopCountry)
}

func TestZeroScoreTableHasZeroPercentages(t *testing.T) {
	a := NewAggregator(Options{})
	a.AddSignal("Nowhere", "x", signals.WithConfidence(0))

	dist := a.EstimateViewerDistribution(5)
	require.Len(t, dist.Cities, 1)
	assert.Zero(t, dist.Cities[0].EstimatedPercentage)
	assert.False(t, math.IsNaN(dist.Cities[0].EstimatedPercentage))
	assert.Equal(t, signals.ConfidenceLow, dist.Cities[0].ConfidenceLevel)
}

func TestProcessCommentAnalysis(t *testing.T) {
	geocodeFn, calls := fakeGeocode(map[string]*geocode.Result{
		"NYC": {
			Name:             "NYC",
			FormattedAddress: "New York, NY, USA",
			Latitude:         40.7128,
			Longitude:        -74.006,
			City:             "New York",
			Country:          "USA",
		},
		"Big Apple": {Latitude: 40.7, Longitude: -74.0},
	})

	a := NewAggregator(Options{})
	a.ProcessCommentAnalysis(context.Background(), extract.Extraction{
		CommentID:          "c1",
		Language:           "fr",
		CitiesMentioned:    []string{"NYC", "Atlantis", "Big Apple"},
		CountriesMentioned: []string{"France"},
	}, geocodeFn)

	assert.Equal(t, []string{"NYC", "Atlantis", "Big Apple"}, *calls)
	assert.Equal(t, []string{"Atlantis", "Big Apple", "NYC", "New York"}, a.Store().Locations(signals.LevelCity))

	nyc, ok := a.Store().Record(signals.LevelCity, "NYC")
	require.True(t, ok)
	assert.Equal(t, 1, nyc.Count)
	assert.Equal(t, signals.CityMentioned, nyc.Signals[0].Type)
	assert.Equal(t, map[string]any{"comment_id": "c1"}, nyc.Signals[0].Metadata)

	ny, ok := a.Store().Record(signals.LevelCity, "New York")
	require.True(t, ok)
	require.Equal(t, 1, ny.Count)
	assert.Equal(t, signals.GeocodedLocation, ny.Signals[0].Type)
	assert.InDelta(t, 0.85, ny.Score, 1e-9)

	md := ny.Signals[0].Metadata
	assert.Equal(t, "c1", md["comment_id"])
	assert.Equal(t, "NYC", md["mention"])
	assert.Equal(t, 40.7128, md["lat"])
	assert.Equal(t, -74.006, md["lon"])
	assert.Equal(t, "USA", md["country"])
	assert.NotEmpty(t, md["h3"])

	// no resolved city name: keyed by the mention
	bigApple, ok := a.Store().Record(signals.LevelCity, "Big Apple")
	require.True(t, ok)
	assert.Equal(t, 2, bigApple.Count)
	assert.Equal(t, []string{signals.CityMentioned, signals.GeocodedLocation}, bigApple.SignalTypes())
	assert.Equal(t, signals.GeocodedLocation, bigApple.Signals[1].Type)
	assert.Equal(t, "Big Apple", bigApple.Signals[1].Metadata["mention"])
	assert.InDelta(t, 1.75, bigApple.Score, 1e-9)

	france, ok := a.Store().Record(signals.LevelCountry, "France")
	require.True(t, ok)
	assert.Equal(t, 2, france.Count)
	assert.InDelta(t, 1.0, france.Score, 1e-9)
	assert.Equal(t, signals.LanguageToCountry, france.Signals[1].Type)
	assert.Equal(t, "fr", france.Signals[1].Metadata["language"])

	assert.Equal(t, map[string]int{
		signals.CityMentioned:     3,
		signals.GeocodedLocation:  2,
		signals.CountryMentioned:  1,
		signals.LanguageToCountry: 1,
	}, a.SignalBreakdown())
}

func TestProcessCommentAnalysisLanguage(t *testing.T) {
	tests := []struct {
		language string
		country  string
	}{
		{"hi", "India"},
		{"pt-BR", "Brazil"},
		{extract.UnknownLanguage, ""},
		{"", ""},
		{"xx", ""},
	}

	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			a := NewAggregator(Options{})
			a.ProcessCommentAnalysis(context.Background(), extract.Extraction{CommentID: "c", Language: tt.language}, nil)

			if tt.country == "" {
				assert.Zero(t, a.Store().Len(signals.LevelCountry))

				return
			}

			rec, ok := a.Store().Record(signals.LevelCountry, tt.country)
			require.True(t, ok)
			assert.InDelta(t, 0.3, rec.Score, 1e-9)
		})
	}
}

func TestProcessCommentAnalysisWithoutGeocoder(t *testing.T) {
	a := NewAggregator(Options{})
	a.ProcessCommentAnalysis(context.Background(), extract.Extraction{CitiesMentioned: []string{"Paris"}}, nil)

	assert.Equal(t, map[string]int{signals.CityMentioned: 1}, a.SignalBreakdown())
}

func TestProcessAllAnalysesKeepsInputOrder(t *testing.T) {
	exts := make([]extract.Extraction, 150)
	for i := range exts {
		exts[i] = extract.Extraction{
			CommentID:       fmt.Sprintf("c%03d", i),
			CitiesMentioned: []string{"Lima"},
		}
	}

	a := NewAggregator(Options{ShowProgress: true})
	a.ProcessAllAnalyses(context.Background(), exts, nil)

	rec, ok := a.Store().Record(signals.LevelCity, "Lima")
	require.True(t, ok)
	require.Equal(t, 150, rec.Count)

	for i, s := range rec.Signals {
		assert.Equal(t, exts[i].CommentID, s.Metadata["comment_id"])
	}

	a.Reset()
	assert.Zero(t, a.Store().Len(signals.LevelCity))
}

func TestWeightOverrides(t *testing.T) {
	a := NewAggregator(Options{Weights: signals.DefaultWeights().With(signals.CityMentioned, 0.4)})
	a.ProcessCommentAnalysis(context.Background(), extract.Extraction{CitiesMentioned: []string{"Oslo"}}, nil)

	rec, _ := a.Store().Record(signals.LevelCity, "Oslo")
	assert.InDelta(t, 0.4, rec.Score, 1e-9)
	assert.InDelta(t, 0.9, signals.Weight(signals.CityMentioned), 1e-9)
}

func TestProcessChannelMetadata(t *testing.T) {
	a := NewAggregator(Options{})

	added := a.ProcessChannelMetadata(extract.VideoMetadata{
		DefaultLanguage:      "es-419",
		DefaultAudioLanguage: "es",
		ChannelCountry:       "MX",
	})
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"Mexico", "Spain"}, a.Store().Locations(signals.LevelCountry))

	spain, _ := a.Store().Record(signals.LevelCountry, "Spain")
	assert.Equal(t, 1, spain.Count)
	assert.InDelta(t, 0.5, spain.Score, 1e-9)
	assert.Equal(t, signals.ChannelMetadata, spain.Signals[0].Type)
	assert.Equal(t, "default_language", spain.Signals[0].Metadata["source"])

	assert.Zero(t, NewAggregator(Options{}).ProcessChannelMetadata(extract.VideoMetadata{}))

	b := NewAggregator(Options{})
	assert.Equal(t, 1, b.ProcessChannelMetadata(extract.VideoMetadata{ChannelCountry: "Narnia"}))
	assert.Equal(t, []string{"Narnia"}, b.Store().Locations(signals.LevelCountry))
}

func TestInferCountryFromLanguage(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "United States"},
		{"EN-gb", "United States"},
		{"zh-CN", "China"},
		{"zh_TW", "Taiwan"},
		{"zh", ""},
		{"fa", "Iran"},
		{"tl", "Philippines"},
		{extract.UnknownLanguage, ""},
		{"", ""},
		{"xx", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCountryFromLanguage(tt.code))
		})
	}

	assert.Len(t, languageCountries, 33)
}

func TestLanguageDistribution(t *testing.T) {
	exts := []extract.Extraction{
		{Language: "en"}, {Language: "fr"}, {Language: "en"}, {Language: extract.UnknownLanguage}, {},
	}

	want := []LanguageShare{
		{Code: "en", Name: "English", Count: 2, Percentage: 40},
		{Code: "unknown", Name: "unknown", Count: 2, Percentage: 40},
		{Code: "fr", Name: "French", Count: 1, Percentage: 20},
	}

	if diff := cmp.Diff(want, LanguageDistribution(exts)); diff != "" {
		t.Errorf("LanguageDistribution() mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, LanguageDistribution(nil))
}

func TestMentionCounts(t *testing.T) {
	exts := []extract.Extraction{
		{CitiesMentioned: []string{"Paris", "Lyon"}, CountriesMentioned: []string{"France"}},
		{CitiesMentioned: []string{"Paris"}},
		{CitiesMentioned: []string{"Berlin"}, CountriesMentioned: []string{"Germany", "France"}},
	}

	got := MentionCounts(exts, 2)

	want := Mentions{
		Cities:    []MentionCount{{"Paris", 2}, {"Berlin", 1}},
		Countries: []MentionCount{{"France", 2}, {"Germany", 1}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MentionCounts() mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, MentionCounts(exts, 0).Cities, 3)
}

func TestSplitExportPath(t *testing.T) {
	tests := []struct {
		path   string
		suffix string
		want   string
	}{
		{"report.csv", "_cities", "report_cities.csv"},
		{"out/report.csv", "_countries", "out/report_countries.csv"},
		{"out.d/report", "_cities", "out.d/report_cities"},
		{"report.tsv", "_cities", "report_cities.tsv"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitExportPath(tt.path, tt.suffix))
		})
	}
}

func TestExportCSV(t *testing.T) {
	a := NewAggregator(Options{})
	a.AddSignal("New York", signals.CityMentioned, signals.WithConfidence(1))
	a.AddSignal("New York", signals.CityMentioned, signals.WithConfidence(1))
	a.AddSignal("New York", signals.GeocodedLocation, signals.WithConfidence(0.5))
	a.AddSignal("London", signals.CityMentioned, signals.WithConfidence(0.5))

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.csv")

	dist, files, err := a.ExportResults(path)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "nested", "report_cities.csv")}, files)
	assert.Len(t, dist.Cities, 2)

	_, err = os.Stat(filepath.Join(dir, "nested", "report_countries.csv"))
	assert.True(t, os.IsNotExist(err), "empty tables are not exported")

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)

	want := `location,total_score,mention_count,avg_confidence,signal_types,num_signals,estimated_percentage,confidence_level
New York,2.5,3,0.8333333333333334,city_mentioned;geocoded_location,3,83.33,High
London,0.5,1,0.5,city_mentioned,1,16.67,Medium
`
	assert.Equal(t, want, string(content))
}
