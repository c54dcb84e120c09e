// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/viewergeo/aggregate"
	"github.com/jcodagnone/viewergeo/geocode"
	"github.com/jcodagnone/viewergeo/report"
	"github.com/jcodagnone/viewergeo/utils/textutils"
)

type analyzeOptions struct {
	Top      int
	Output   string
	VideoID  string
	JSON     bool
	NoSave   bool
	Progress bool
}

var anOptions = &analyzeOptions{}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Estimate the audience distribution of a video",
	Long: `
Aggregates location signals from a comment collection and prints the estimated
city and country distribution. <file> is either a collector dump with the
video metadata and its comments, or precomputed comment extractions as a JSON
array or JSON lines.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		return runAnalyze(ctx, args[0], anOptions, geoOptions, os.Stdout)
	},
}

func runAnalyze(ctx context.Context, path string, options *analyzeOptions, geo *geocodeOptions, out io.Writer) error {
	input, err := loadInput(path)
	if err != nil {
		return err
	}

	videoID := options.VideoID
	if videoID == "" {
		videoID = input.VideoID
	}

	var db *sql.DB

	if !options.NoSave || (!geo.NoCache && geo.Geocoder != geocoderNone) {
		if db, err = openDB(geo.DbPath); err != nil {
			return err
		}
		defer db.Close()
	}

	client, err := newGeocodeClient(ctx, db, geo)
	if err != nil {
		return err
	}

	agg := aggregate.NewAggregator(aggregate.Options{ShowProgress: options.Progress})

	if input.Metadata != nil {
		if n := agg.ProcessChannelMetadata(*input.Metadata); n > 0 {
			log.Printf("Added %d channel metadata signals", n)
		}
	}

	agg.ProcessAllAnalyses(ctx, input.Extractions, geocodeFunc(client))

	if client != nil {
		logGeocodeStats(client.Stats())
	}

	dist := agg.EstimateViewerDistribution(options.Top)

	if options.Output != "" {
		if _, _, err := agg.ExportResults(options.Output); err != nil {
			return fmt.Errorf("exporting results: %w", err)
		}
	}

	if !options.NoSave {
		repo := report.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating report schema: %w", err)
		}

		full := agg.EstimateViewerDistribution(aggregate.ExportTopN)

		run := report.NewRun(videoID, filepath.Base(path), len(input.Extractions), full, agg.SignalBreakdown())
		if err := repo.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}

		log.Printf("Saved run %s", run.ID)
	}

	if options.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(struct {
			aggregate.Distribution
			SignalBreakdown map[string]int            `json:"signal_breakdown"`
			Languages       []aggregate.LanguageShare `json:"languages"`
			Mentions        aggregate.Mentions        `json:"mentions"`
		}{
			Distribution:    dist,
			SignalBreakdown: agg.SignalBreakdown(),
			Languages:       aggregate.LanguageDistribution(input.Extractions),
			Mentions:        aggregate.MentionCounts(input.Extractions, options.Top),
		})
	}

	printReport(out, videoID, len(input.Extractions), dist, agg.SignalBreakdown())
	printLanguages(out, aggregate.LanguageDistribution(input.Extractions))

	return nil
}

func logGeocodeStats(s geocode.Stats) {
	log.Printf(
		"Geocoding - %d cache hits, %d lookups, %d remote attempts, %d not found",
		s.Hits, s.Misses, s.Attempts, s.Failures,
	)
}

func printReport(out io.Writer, videoID string, comments int, dist aggregate.Distribution, breakdown map[string]int) {
	title := "📊 Audience estimate"
	if videoID != "" {
		title += " for " + videoID
	}

	fmt.Fprintf(out, "%s (%s comments)\n\n", title, textutils.FormatInt(int64(comments)))

	printRows(out, "City", dist.Cities)
	printRows(out, "Country", dist.Countries)

	fmt.Fprintf(out, "Cities identified: %s, countries identified: %s\n",
		textutils.FormatInt(int64(dist.Summary.TotalCitiesIdentified)),
		textutils.FormatInt(int64(dist.Summary.TotalCountriesIdentified)),
	)

	fmt.Fprintln(out, "\nSignals")

	for _, t := range slices.Sorted(maps.Keys(breakdown)) {
		fmt.Fprintf(out, "  %-22s %s\n", t, textutils.FormatInt(int64(breakdown[t])))
	}

	fmt.Fprintln(out)
}

func printRows(out io.Writer, label string, rows []aggregate.Row) {
	if len(rows) == 0 {
		fmt.Fprintf(out, "No %s signals\n\n", strings.ToLower(label))

		return
	}

	a, b, c, d := strings.Repeat("─", 3), strings.Repeat("─", 30), strings.Repeat("─", 8), strings.Repeat("─", 6)
	fmt.Fprintf(out, "╭─%3s─┬─%-30s─┬─%8s─┬─%8s─┬─%6s─╮\n", a, b, c, c, d)
	fmt.Fprintf(out, "│ %3s │ %-30s │ %8s │ %8s │ %-6s │\n", "#", label, "Score", "Share", "Conf.")
	fmt.Fprintf(out, "├─%3s─┼─%-30s─┼─%8s─┼─%8s─┼─%6s─┤\n", a, b, c, c, d)

	for i, r := range rows {
		fmt.Fprintf(out, "│ %3d │ %-30s │ %8.2f │ %8s │ %-6s │\n",
			i+1, truncate(r.Location, 30), r.TotalScore, textutils.FormatPercent(r.EstimatedPercentage), r.ConfidenceLevel)
	}

	fmt.Fprintf(out, "╰─%3s─┴─%-30s─┴─%8s─┴─%8s─┴─%6s─╯\n\n", a, b, c, c, d)
}

func printLanguages(out io.Writer, shares []aggregate.LanguageShare) {
	if len(shares) == 0 {
		return
	}

	fmt.Fprintln(out, "🗣️  Languages")

	for _, s := range shares {
		fmt.Fprintf(out, "  %-20s %6s %8s\n", truncate(s.Name, 20), textutils.FormatInt(int64(s.Count)), textutils.FormatPercent(s.Percentage))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addGeocodeFlags(analyzeCmd)
	addDbPathFlag(analyzeCmd)

	analyzeCmd.Flags().IntVar(
		&anOptions.Top,
		"top",
		20,
		"Number of cities and countries to show",
	)
	analyzeCmd.Flags().StringVarP(
		&anOptions.Output,
		"output",
		"o",
		"",
		"Export the distribution as CSV; <base>_cities.csv and <base>_countries.csv are written",
	)
	analyzeCmd.Flags().StringVar(
		&anOptions.VideoID,
		"video-id",
		"",
		"Video identifier recorded with the run, taken from the dump when omitted",
	)
	analyzeCmd.Flags().BoolVar(
		&anOptions.JSON,
		"json",
		false,
		"Print the distribution as JSON",
	)
	analyzeCmd.Flags().BoolVar(
		&anOptions.NoSave,
		"no-save",
		false,
		"Do not record the run in the local database",
	)
	analyzeCmd.Flags().BoolVar(
		&anOptions.Progress,
		"progress",
		true,
		"Show a progress bar on terminals",
	)
}
