// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package signals

// ConfidenceLevel is the tier assigned to a ranked location.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

const (
	highAvg     = 0.7
	highCount   = 3
	mediumAvg   = 0.5
	mediumCount = 5
)

// ClassifyConfidence tiers a location by its average confidence and mention
// count. Boundary values belong to the higher tier. Comparisons are exact, so
// a float sum that rounds just below a threshold stays in the lower tier.
func ClassifyConfidence(score float64, count int) ConfidenceLevel {
	avg := 0.0
	if count > 0 {
		avg = score / float64(count)
	}

	switch {
	case avg >= highAvg && count >= highCount:
		return ConfidenceHigh
	case avg >= mediumAvg || count >= mediumCount:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
