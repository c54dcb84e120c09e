// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/jcodagnone/viewergeo/extract"
)

// languageCountries maps a language code to the country most associated
// with it.
var languageCountries = map[string]string{
	"en":    "United States",
	"es":    "Spain",
	"fr":    "France",
	"de":    "Germany",
	"it":    "Italy",
	"pt":    "Brazil",
	"ru":    "Russia",
	"ja":    "Japan",
	"ko":    "South Korea",
	"zh-cn": "China",
	"zh-tw": "Taiwan",
	"ar":    "Saudi Arabia",
	"hi":    "India",
	"bn":    "Bangladesh",
	"tr":    "Turkey",
	"vi":    "Vietnam",
	"th":    "Thailand",
	"pl":    "Poland",
	"nl":    "Netherlands",
	"sv":    "Sweden",
	"no":    "Norway",
	"da":    "Denmark",
	"fi":    "Finland",
	"el":    "Greece",
	"cs":    "Czech Republic",
	"hu":    "Hungary",
	"ro":    "Romania",
	"id":    "Indonesia",
	"ms":    "Malaysia",
	"tl":    "Philippines",
	"uk":    "Ukraine",
	"he":    "Israel",
	"fa":    "Iran",
}

// InferCountryFromLanguage returns the country associated with a language
// code, or "" when there is none. Codes are matched case-insensitively and
// regional variants fall back to their base language ("en-GB" is "en"), except
// for Chinese where the region selects the country.
func InferCountryFromLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "_", "-")))
	if code == "" || code == extract.UnknownLanguage {
		return ""
	}

	if country, ok := languageCountries[code]; ok {
		return country
	}

	base, _, _ := strings.Cut(code, "-")

	return languageCountries[base]
}

// LanguageShare is one row of LanguageDistribution.
type LanguageShare struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LanguageDistribution counts detected languages across extractions,
// including the unknown sentinel, sorted by count then code.
func LanguageDistribution(exts []extract.Extraction) []LanguageShare {
	if len(exts) == 0 {
		return []LanguageShare{}
	}

	counts := make(map[string]int)
	for _, e := range exts {
		code := e.Language
		if code == "" {
			code = extract.UnknownLanguage
		}

		counts[code]++
	}

	out := make([]LanguageShare, 0, len(counts))
	for code, n := range counts {
		out = append(out, LanguageShare{
			Code:       code,
			Name:       languageName(code),
			Count:      n,
			Percentage: round2(float64(n) / float64(len(exts)) * 100),
		})
	}

	slices.SortFunc(out, func(a, b LanguageShare) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Code, b.Code)
	})

	return out
}

// languageName is the English name of code, or code itself if unknown.
func languageName(code string) string {
	if code == extract.UnknownLanguage {
		return code
	}

	tag, err := language.Parse(code)
	if err != nil {
		return code
	}

	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}

	return code
}

// MentionCount is one row of MentionCounts.
type MentionCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// Mentions are the raw place mentions found in extractions, before any
// weighting.
type Mentions struct {
	Cities    []MentionCount `json:"cities"`
	Countries []MentionCount `json:"countries"`
}

// MentionCounts tallies raw city and country mentions, keeping the limit
// most frequent of each (all when limit <= 0).
func MentionCounts(exts []extract.Extraction, limit int) Mentions {
	cities := make(map[string]int)
	countries := make(map[string]int)

	for _, e := range exts {
		for _, c := range e.CitiesMentioned {
			cities[c]++
		}

		for _, c := range e.CountriesMentioned {
			countries[c]++
		}
	}

	return Mentions{
		Cities:    topMentions(cities, limit),
		Countries: topMentions(countries, limit),
	}
}

func topMentions(counts map[string]int, limit int) []MentionCount {
	names := slices.Collect(maps.Keys(counts))
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}

		return cmp.Compare(a, b)
	})

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	out := make([]MentionCount, len(names))
	for i, name := range names {
		out[i] = MentionCount{Location: name, Count: counts[name]}
	}

	return out
}
