// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jcodagnone/viewergeo/utils/htmlutils"
)

// minDetectableLength is the shortest trimmed text handed to a detector.
const minDetectableLength = 3

// LanguageDetector guesses the language of a text. Implementations return
// UnknownLanguage when they cannot tell.
type LanguageDetector interface {
	Detect(text string) (code string, confidence float64)
}

// LanguageDetectorFunc adapts a function to LanguageDetector.
type LanguageDetectorFunc func(text string) (string, float64)

// Detect calls f.
func (f LanguageDetectorFunc) Detect(text string) (string, float64) {
	return f(text)
}

// ScriptDetector recognizes languages with a distinctive writing system.
// Latin-script text is reported as UnknownLanguage.
type ScriptDetector struct{}

var scriptLanguages = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Hangul, "ko"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Han, "zh-cn"},
	{unicode.Thai, "th"},
	{unicode.Devanagari, "hi"},
	{unicode.Bengali, "bn"},
	{unicode.Arabic, "ar"},
	{unicode.Hebrew, "he"},
	{unicode.Greek, "el"},
	{unicode.Cyrillic, "ru"},
}

// Detect implements LanguageDetector.
func (ScriptDetector) Detect(text string) (string, float64) {
	counts := make(map[string]int)
	latin := 0

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}

		if unicode.Is(unicode.Latin, r) {
			latin++

			continue
		}

		for _, s := range scriptLanguages {
			if unicode.Is(s.table, r) {
				counts[s.code]++

				break
			}
		}
	}

	// kana makes Han text Japanese
	if counts["ja"] > 0 {
		counts["ja"] += counts["zh-cn"]
		delete(counts, "zh-cn")
	}

	code, best := UnknownLanguage, latin
	for _, s := range scriptLanguages {
		if n := counts[s.code]; n > best {
			code, best = s.code, n
		}
	}

	switch {
	case code == UnknownLanguage:
		return UnknownLanguage, 0
	case code == "ru" && strings.ContainsAny(text, "єіїґЄІЇҐ"):
		code = "uk"
	case code == "ar" && strings.ContainsAny(text, "پچژگ"):
		code = "fa"
	}

	return code, lengthConfidence(text)
}

// lengthConfidence is the confidence assigned to a detection: longer texts
// are more reliable.
func lengthConfidence(text string) float64 {
	if utf8.RuneCountInString(text) > 50 {
		return 0.7
	}

	return 0.5
}

// Analyzer builds Extractions from collected comments.
type Analyzer struct {
	gazetteer *Gazetteer
	detector  LanguageDetector
}

// NewAnalyzer creates an analyzer. Nil arguments select DefaultGazetteer and
// ScriptDetector.
func NewAnalyzer(gazetteer *Gazetteer, detector LanguageDetector) *Analyzer {
	if gazetteer == nil {
		gazetteer = DefaultGazetteer()
	}

	if detector == nil {
		detector = ScriptDetector{}
	}

	return &Analyzer{gazetteer: gazetteer, detector: detector}
}

// Analyze extracts language, place mentions and posting time bucket from c.
func (a *Analyzer) Analyze(c Comment) Extraction {
	text, err := htmlutils.Text(c.Text)
	if err != nil {
		log.Printf("Using raw text for comment %s - %s", c.CommentID, err)

		text = c.Text
	}

	language, confidence := a.detectLanguage(text)
	cities, countries := a.gazetteer.Find(text)

	return Extraction{
		CommentID:          c.CommentID,
		Author:             c.Author,
		Language:           language,
		LanguageConfidence: confidence,
		CitiesMentioned:    nonNil(cities),
		CountriesMentioned: nonNil(countries),
		TimezoneHint:       TimeOfDay(c.PublishedAt),
		TextLength:         utf8.RuneCountInString(text),
		PublishedAt:        c.PublishedAt,
	}
}

// AnalyzeAll analyzes comments in order.
func (a *Analyzer) AnalyzeAll(comments []Comment) []Extraction {
	out := make([]Extraction, 0, len(comments))

	for i, c := range comments {
		if i > 0 && i%100 == 0 {
			log.Printf("Analyzed %d/%d comments", i, len(comments))
		}

		out = append(out, a.Analyze(c))
	}

	return out
}

func (a *Analyzer) detectLanguage(text string) (string, float64) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minDetectableLength {
		return UnknownLanguage, 0
	}

	code, confidence := a.detector.Detect(text)
	if code == "" {
		return UnknownLanguage, 0
	}

	return code, confidence
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

// TimeOfDay buckets an RFC 3339 timestamp by the hour of its own offset:
// late_night before 6, morning before 12, afternoon before 18, else evening.
// Unparseable input yields "".
func TimeOfDay(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return ""
	}

	switch h := t.Hour(); {
	case h < 6:
		return "late_night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
