// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExtractions(t *testing.T) {
	want := []Extraction{
		{CommentID: "c1", Language: "en", CitiesMentioned: []string{"New York"}, CountriesMentioned: []string{}},
		{CommentID: "c2", Language: "unknown", CitiesMentioned: []string{}, CountriesMentioned: []string{"France"}},
	}

	tests := []struct {
		name  string
		input string
	}{
		{
			name: "array",
			input: `[
				{"comment_id": "c1", "language": "en", "cities_mentioned": ["New York"], "countries_mentioned": []},
				{"comment_id": "c2", "language": "unknown", "cities_mentioned": [], "countries_mentioned": ["France"]}
			]`,
		},
		{
			name: "json lines",
			input: `{"comment_id": "c1", "language": "en", "cities_mentioned": ["New York"], "countries_mentioned": []}
{"comment_id": "c2", "language": "unknown", "cities_mentioned": [], "countries_mentioned": ["France"]}
`,
		},
		{
			name:  "byte order mark",
			input: "\uFEFF" + `[{"comment_id": "c1", "language": "en", "cities_mentioned": ["New York"], "countries_mentioned": []}, {"comment_id": "c2", "language": "unknown", "cities_mentioned": [], "countries_mentioned": ["France"]}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadExtractions(strings.NewReader(tt.input))
			require.NoError(t, err)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("LoadExtractions() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadExtractionsEmptyAndInvalid(t *testing.T) {
	got, err := LoadExtractions(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = LoadExtractions(strings.NewReader(`{"comment_id": "c1"}` + "\n" + `{broken`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#2")
}

func TestExtractionHasLanguage(t *testing.T) {
	assert.True(t, (&Extraction{Language: "fr"}).HasLanguage())
	assert.False(t, (&Extraction{Language: UnknownLanguage}).HasLanguage())
	assert.False(t, (&Extraction{}).HasLanguage())
}

func TestLoadVideoData(t *testing.T) {
	input := `{
		"metadata": {
			"title": "Launch stream",
			"channel_id": "UC123",
			"default_language": "es",
			"default_audio_language": null,
			"view_count": 1200,
			"tags": ["space"]
		},
		"comments": [
			{"comment_id": "a", "author": "ana", "text": "Saludos desde Madrid", "like_count": 3,
			 "published_at": "2024-03-01T07:30:00Z", "reply_count": 1, "is_reply": false},
			{"comment_id": "b", "author": "bo", "text": "same", "like_count": 0,
			 "published_at": "2024-03-01T21:00:00Z", "reply_count": 0, "is_reply": true, "parent_id": "a"}
		],
		"collection_summary": {"video_id": "xyz", "video_url": "https://example.com/watch?v=xyz", "total_comments": 2}
	}`

	data, err := LoadVideoData(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "xyz", data.Metadata.VideoID)
	assert.Equal(t, "es", data.Metadata.DefaultLanguage)
	assert.Empty(t, data.Metadata.DefaultAudioLanguage)
	assert.Equal(t, int64(1200), data.Metadata.ViewCount)
	require.Len(t, data.Comments, 2)
	assert.True(t, data.Comments[1].IsReply)
	assert.Equal(t, "a", data.Comments[1].ParentID)

	_, err = LoadVideoData(strings.NewReader(`[`))
	require.Error(t, err)
}

func TestGazetteerFind(t *testing.T) {
	g := DefaultGazetteer()

	tests := []struct {
		text      string
		cities    []string
		countries []string
	}{
		{"Greetings from New York and London!", []string{"New York", "London"}, nil},
		{"watching from mexico city, Mexico", []string{"Mexico City"}, []string{"Mexico"}},
		{"Saludos desde Bogota, COLOMBIA", []string{"Bogotá"}, []string{"Colombia"}},
		{"Sao Paulo, Brazil! Sao Paulo again", []string{"São Paulo"}, []string{"Brazil"}},
		{"Singapore represent", []string{"Singapore"}, []string{"Singapore"}},
		{"I love the United Kingdom and the United States", nil, []string{"United Kingdom", "United States"}},
		{"nothing to see here", nil, nil},
		{"", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cities, countries := g.Find(tt.text)
			assert.Equal(t, tt.cities, cities)
			assert.Equal(t, tt.countries, countries)
		})
	}
}

func TestNewGazetteerSkipsEmptyNames(t *testing.T) {
	g := NewGazetteer([]string{"", "  ", "Springfield"}, nil)

	cities, countries := g.Find("springfield!!")
	assert.Equal(t, []string{"Springfield"}, cities)
	assert.Nil(t, countries)
}

func TestScriptDetector(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"안녕하세요 여러분", "ko"},
		{"こんにちは、東京から見ています", "ja"},
		{"我在北京看这个视频", "zh-cn"},
		{"Привет из Москвы", "ru"},
		{"Привіт з Києва, їжак", "uk"},
		{"مرحبا من القاهرة", "ar"},
		{"سلام از تهران، چطوری", "fa"},
		{"नमस्ते दिल्ली से", "hi"},
		{"Γεια σας από την Αθήνα", "el"},
		{"สวัสดีจากกรุงเทพ", "th"},
		{"Hello from Paris", UnknownLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, _ := ScriptDetector{}.Detect(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}

	_, short := ScriptDetector{}.Detect("Привет")
	assert.InDelta(t, 0.5, short, 1e-9)

	_, long := ScriptDetector{}.Detect(strings.Repeat("Привет ", 10))
	assert.InDelta(t, 0.7, long, 1e-9)
}

func TestAnalyzerAnalyze(t *testing.T) {
	detector := LanguageDetectorFunc(func(string) (string, float64) { return "en", 0.5 })
	a := NewAnalyzer(nil, detector)

	got := a.Analyze(Comment{
		CommentID:   "c1",
		Author:      "sam",
		Text:        "Watching from <b>Toronto</b>, Canada &amp; loving it",
		PublishedAt: "2024-05-10T13:15:00Z",
	})

	want := Extraction{
		CommentID:          "c1",
		Author:             "sam",
		Language:           "en",
		LanguageConfidence: 0.5,
		CitiesMentioned:    []string{"Toronto"},
		CountriesMentioned: []string{"Canada"},
		TimezoneHint:       "afternoon",
		TextLength:         len("Watching from Toronto , Canada & loving it"),
		PublishedAt:        "2024-05-10T13:15:00Z",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzerShortTextIsUnknown(t *testing.T) {
	called := false
	detector := LanguageDetectorFunc(func(string) (string, float64) {
		called = true

		return "en", 0.9
	})

	got := NewAnalyzer(nil, detector).Analyze(Comment{CommentID: "c", Text: " ok "})
	assert.False(t, called)
	assert.Equal(t, UnknownLanguage, got.Language)
	assert.Zero(t, got.LanguageConfidence)
	assert.Empty(t, got.TimezoneHint)
	assert.NotNil(t, got.CitiesMentioned)
	assert.NotNil(t, got.CountriesMentioned)
}

func TestAnalyzeAllKeepsOrder(t *testing.T) {
	comments := make([]Comment, 250)
	for i := range comments {
		comments[i] = Comment{CommentID: string(rune('a' + i%26)), Text: "Tokyo"}
	}

	got := NewAnalyzer(nil, nil).AnalyzeAll(comments)
	require.Len(t, got, len(comments))

	for i := range got {
		assert.Equal(t, comments[i].CommentID, got[i].CommentID)
		assert.Equal(t, []string{"Tokyo"}, got[i].CitiesMentioned)
	}
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		timestamp string
		want      string
	}{
		{"2024-01-01T00:00:00Z", "late_night"},
		{"2024-01-01T05:59:59Z", "late_night"},
		{"2024-01-01T06:00:00Z", "morning"},
		{"2024-01-01T11:59:00Z", "morning"},
		{"2024-01-01T12:00:00Z", "afternoon"},
		{"2024-01-01T17:59:00Z", "afternoon"},
		{"2024-01-01T18:00:00Z", "evening"},
		{"2024-01-01T23:30:00Z", "evening"},
		{"2024-01-01T23:30:00-05:00", "evening"},
		{"2024-01-01T02:00:00+09:00", "late_night"},
		{"yesterday", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.timestamp, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeOfDay(tt.timestamp))
		})
	}
}
