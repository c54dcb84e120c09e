// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ExportTopN is the table size used by ExportResults.
const ExportTopN = 50

var csvHeader = []string{
	"location",
	"total_score",
	"mention_count",
	"avg_confidence",
	"signal_types",
	"num_signals",
	"estimated_percentage",
	"confidence_level",
}

// SplitExportPath inserts suffix before the extension of path:
// "out/report.csv" with "_cities" is "out/report_cities.csv".
func SplitExportPath(path, suffix string) string {
	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + suffix + ext
}

// ExportCSV writes the city and country tables of dist next to path, with
// _cities and _countries suffixes. Empty tables are not written. It returns
// the files created.
func ExportCSV(path string, dist Distribution) ([]string, error) {
	var written []string

	for _, table := range []struct {
		suffix string
		rows   []Row
	}{
		{"_cities", dist.Cities},
		{"_countries", dist.Countries},
	} {
		if len(table.rows) == 0 {
			continue
		}

		target := SplitExportPath(path, table.suffix)
		if err := writeCSVFile(target, table.rows); err != nil {
			return written, err
		}

		log.Printf("Exported %d rows to %s", len(table.rows), target)

		written = append(written, target)
	}

	return written, nil
}

// ExportResults estimates the top ExportTopN distribution and exports it.
func (a *Aggregator) ExportResults(path string) (Distribution, []string, error) {
	dist := a.EstimateViewerDistribution(ExportTopN)
	files, err := ExportCSV(path, dist)

	return dist, files, err
}

func writeCSVFile(path string, rows []Row) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := WriteCSV(f, rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// WriteCSV writes rows with a header line. Signal types are joined by ";".
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.Location,
			formatFloat(r.TotalScore),
			strconv.Itoa(r.MentionCount),
			formatFloat(r.AvgConfidence),
			strings.Join(r.SignalTypes, ";"),
			strconv.Itoa(r.NumSignals),
			formatFloat(r.EstimatedPercentage),
			string(r.ConfidenceLevel),
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
