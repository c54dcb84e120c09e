// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"cmp"
	"math"
	"slices"

	"github.com/jcodagnone/viewergeo/signals"
)

// Row is one ranked location. EstimatedPercentage and ConfidenceLevel are
// only set by EstimateViewerDistribution.
type Row struct {
	Location            string                  `json:"location"`
	TotalScore          float64                 `json:"total_score"`
	MentionCount        int                     `json:"mention_count"`
	AvgConfidence       float64                 `json:"avg_confidence"`
	SignalTypes         []string                `json:"signal_types"`
	NumSignals          int                     `json:"num_signals"`
	EstimatedPercentage float64                 `json:"estimated_percentage"`
	ConfidenceLevel     signals.ConfidenceLevel `json:"confidence_level,omitempty"`
}

// Summary describes a distribution as a whole. Top locations are nil when
// the corresponding table is empty.
type Summary struct {
	TotalCitiesIdentified    int     `json:"total_cities_identified"`
	TotalCountriesIdentified int     `json:"total_countries_identified"`
	TopCity                  *string `json:"top_city"`
	TopCountry               *string `json:"top_country"`
}

// Distribution is the estimated audience geography.
type Distribution struct {
	Cities    []Row   `json:"cities"`
	Countries []Row   `json:"countries"`
	Summary   Summary `json:"summary"`
}

// TopLocations ranks the locations at level by total score, highest first,
// breaking ties by location name. n <= 0 returns every location.
func (a *Aggregator) TopLocations(n int, level signals.Level) []Row {
	snapshot := a.store.Snapshot(level)

	rows := make([]Row, 0, len(snapshot))
	for name, rec := range snapshot {
		rows = append(rows, Row{
			Location:      name,
			TotalScore:    rec.Score,
			MentionCount:  rec.Count,
			AvgConfidence: rec.AvgConfidence(),
			SignalTypes:   rec.SignalTypes(),
			NumSignals:    len(rec.Signals),
		})
	}

	slices.SortFunc(rows, compareRows)

	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}

	return rows
}

func compareRows(a, b Row) int {
	if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
		return c
	}

	return cmp.Compare(a.Location, b.Location)
}

// EstimateViewerDistribution ranks the topN locations of each level and
// expresses each score as a percentage of its table's total.
func (a *Aggregator) EstimateViewerDistribution(topN int) Distribution {
	cities := normalize(a.TopLocations(topN, signals.LevelCity))
	countries := normalize(a.TopLocations(topN, signals.LevelCountry))

	summary := Summary{
		TotalCitiesIdentified:    a.store.Len(signals.LevelCity),
		TotalCountriesIdentified: a.store.Len(signals.LevelCountry),
	}

	if len(cities) > 0 {
		summary.TopCity = &cities[0].Location
	}

	if len(countries) > 0 {
		summary.TopCountry = &countries[0].Location
	}

	return Distribution{
		Cities:    cities,
		Countries: countries,
		Summary:   summary,
	}
}

// normalize fills the percentage and confidence tier of rows in place.
func normalize(rows []Row) []Row {
	total := 0.0
	for _, r := range rows {
		total += r.TotalScore
	}

	for i := range rows {
		if total > 0 {
			rows[i].EstimatedPercentage = round2(rows[i].TotalScore / total * 100)
		}

		rows[i].ConfidenceLevel = signals.ClassifyConfidence(rows[i].TotalScore, rows[i].MentionCount)
	}

	return rows
}

// SignalBreakdown counts signals per type across both levels.
func (a *Aggregator) SignalBreakdown() map[string]int {
	return a.store.Breakdown()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
