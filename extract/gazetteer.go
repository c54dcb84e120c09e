// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"strings"
	"unicode"

	"github.com/jcodagnone/viewergeo/utils/textutils"
)

// place is what a folded name resolves to. A name can be both a city and a
// country (Singapore).
type place struct {
	city    string
	country string
}

// Gazetteer finds city and country names in free text. Matching is done on
// accent-folded, lowercased words; the longest name starting at a word wins,
// so "Mexico City" is not also reported as "Mexico".
type Gazetteer struct {
	places   map[string]place
	maxWords int
}

// NewGazetteer builds a gazetteer from canonical city and country names.
// Reported names use the spelling given here.
func NewGazetteer(cities, countries []string) *Gazetteer {
	g := &Gazetteer{places: make(map[string]place)}

	for _, name := range cities {
		key, n := g.key(name)
		if key == "" {
			continue
		}

		p := g.places[key]
		p.city = name
		g.places[key] = p
		g.maxWords = max(g.maxWords, n)
	}

	for _, name := range countries {
		key, n := g.key(name)
		if key == "" {
			continue
		}

		p := g.places[key]
		p.country = name
		g.places[key] = p
		g.maxWords = max(g.maxWords, n)
	}

	return g
}

func (g *Gazetteer) key(name string) (string, int) {
	words := words(name)

	return strings.Join(words, " "), len(words)
}

func words(s string) []string {
	return strings.FieldsFunc(textutils.LowerASCIIFolding(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Find returns the distinct cities and countries mentioned in text, in order
// of first appearance.
func (g *Gazetteer) Find(text string) (cities, countries []string) {
	tokens := words(text)
	seenCity := make(map[string]bool)
	seenCountry := make(map[string]bool)

	for i := 0; i < len(tokens); {
		matched := 0

		for n := min(g.maxWords, len(tokens)-i); n > 0; n-- {
			p, ok := g.places[strings.Join(tokens[i:i+n], " ")]
			if !ok {
				continue
			}

			if p.city != "" && !seenCity[p.city] {
				seenCity[p.city] = true
				cities = append(cities, p.city)
			}

			if p.country != "" && !seenCountry[p.country] {
				seenCountry[p.country] = true
				countries = append(countries, p.country)
			}

			matched = n

			break
		}

		i += max(matched, 1)
	}

	return cities, countries
}

var defaultCities = []string{
	"Amsterdam", "Athens", "Atlanta", "Auckland", "Bangalore", "Bangkok", "Barcelona",
	"Beijing", "Berlin", "Bogotá", "Boston", "Brisbane", "Brussels", "Bucharest",
	"Budapest", "Buenos Aires", "Cairo", "Cape Town", "Chennai", "Chicago",
	"Copenhagen", "Dallas", "Delhi", "Dhaka", "Dubai", "Dublin", "Edinburgh",
	"Guadalajara", "Hanoi", "Helsinki", "Ho Chi Minh City", "Hong Kong", "Houston",
	"Hyderabad", "Istanbul", "Jakarta", "Johannesburg", "Karachi", "Kolkata",
	"Kuala Lumpur", "Kyiv", "Lagos", "Lahore", "Lima", "Lisbon", "London",
	"Los Angeles", "Madrid", "Manchester", "Manila", "Medellín", "Melbourne",
	"Mexico City", "Miami", "Milan", "Montreal", "Moscow", "Mumbai", "Munich",
	"Nairobi", "New York", "Osaka", "Oslo", "Paris", "Prague", "Rio de Janeiro",
	"Riyadh", "Rome", "San Francisco", "Santiago", "São Paulo", "Seattle", "Seoul",
	"Shanghai", "Singapore", "Stockholm", "Sydney", "Taipei", "Tehran", "Tel Aviv",
	"Tokyo", "Toronto", "Vancouver", "Vienna", "Warsaw", "Zurich",
}

var defaultCountries = []string{
	"Argentina", "Australia", "Austria", "Bangladesh", "Belgium", "Brazil", "Canada",
	"Chile", "China", "Colombia", "Czech Republic", "Denmark", "Egypt", "Finland",
	"France", "Germany", "Greece", "Hong Kong", "Hungary", "India", "Indonesia",
	"Iran", "Ireland", "Israel", "Italy", "Japan", "Kenya", "Malaysia", "Mexico",
	"Morocco", "Netherlands", "New Zealand", "Nigeria", "Norway", "Pakistan", "Peru",
	"Philippines", "Poland", "Portugal", "Romania", "Russia", "Saudi Arabia",
	"Singapore", "South Africa", "South Korea", "Spain", "Sweden", "Switzerland",
	"Taiwan", "Thailand", "Turkey", "Ukraine", "United Arab Emirates",
	"United Kingdom", "United States", "Venezuela", "Vietnam",
}

// DefaultGazetteer returns a gazetteer of major world cities and countries.
func DefaultGazetteer() *Gazetteer {
	return NewGazetteer(defaultCities, defaultCountries)
}
