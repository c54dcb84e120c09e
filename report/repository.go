// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jcodagnone/viewergeo/aggregate"
	"github.com/jcodagnone/viewergeo/signals"
	"github.com/jcodagnone/viewergeo/utils/textutils"
)

// Repository persists runs.
type Repository interface {
	CreateSchema() error
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	LatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)
}

type sqlRunRepository struct {
	db *sql.DB
}

// NewRepository creates a run repository over db (DuckDB).
func NewRepository(db *sql.DB) Repository {
	return &sqlRunRepository{db: db}
}

func (r *sqlRunRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR PRIMARY KEY,
			video_id VARCHAR,
			source VARCHAR,
			comments INTEGER NOT NULL,
			total_cities INTEGER NOT NULL,
			total_countries INTEGER NOT NULL,
			top_city VARCHAR,
			top_country VARCHAR,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_locations (
			run_id VARCHAR NOT NULL,
			level VARCHAR NOT NULL,
			rank INTEGER NOT NULL,
			location VARCHAR NOT NULL,
			total_score DOUBLE NOT NULL,
			mention_count INTEGER NOT NULL,
			avg_confidence DOUBLE NOT NULL,
			signal_types VARCHAR[],
			num_signals INTEGER NOT NULL,
			estimated_percentage DOUBLE NOT NULL,
			confidence_level VARCHAR NOT NULL,
			PRIMARY KEY (run_id, level, rank)
		);

		CREATE TABLE IF NOT EXISTS run_signals (
			run_id VARCHAR NOT NULL,
			signal_type VARCHAR NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, signal_type)
		);
	`)

	return err
}

func nve(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func (r *sqlRunRepository) SaveRun(ctx context.Context, run *Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction for run %s: %w", run.ID, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback transaction for run %s: %v", run.ID, err)
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, video_id, source, comments, total_cities, total_countries, top_city, top_country, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.VideoID,
		run.Source,
		run.Comments,
		run.Summary.TotalCitiesIdentified,
		run.Summary.TotalCountriesIdentified,
		nve(run.Summary.TopCity),
		nve(run.Summary.TopCountry),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_locations (
			run_id, level, rank, location, total_score, mention_count, avg_confidence,
			signal_types, num_signals, estimated_percentage, confidence_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for level, rows := range map[signals.Level][]aggregate.Row{
		signals.LevelCity:    run.Cities,
		signals.LevelCountry: run.Countries,
	} {
		for i, row := range rows {
			types := row.SignalTypes
			if types == nil {
				types = []string{}
			}

			_, err := stmt.ExecContext(ctx,
				run.ID,
				string(level),
				i+1,
				row.Location,
				row.TotalScore,
				row.MentionCount,
				row.AvgConfidence,
				types,
				row.NumSignals,
				row.EstimatedPercentage,
				string(row.ConfidenceLevel),
			)
			if err != nil {
				return fmt.Errorf("inserting %s %q of run %s: %w", level, row.Location, run.ID, err)
			}
		}
	}

	for signalType, count := range run.SignalBreakdown {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_signals (run_id, signal_type, count) VALUES (?, ?, ?)",
			run.ID, signalType, count,
		); err != nil {
			return fmt.Errorf("inserting signal count %s of run %s: %w", signalType, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", run.ID, err)
	}

	return nil
}

const runInfoSelect = `
	SELECT id, video_id, source, comments, total_cities, total_countries, top_city, top_country, created_at
	FROM runs
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(s rowScanner) (RunInfo, error) {
	var (
		info                RunInfo
		videoID, source     sql.NullString
		topCity, topCountry sql.NullString
	)

	err := s.Scan(
		&info.ID, &videoID, &source, &info.Comments,
		&info.Summary.TotalCitiesIdentified, &info.Summary.TotalCountriesIdentified,
		&topCity, &topCountry, &info.CreatedAt,
	)
	if err != nil {
		return info, err
	}

	info.VideoID = videoID.String
	info.Source = source.String

	if topCity.Valid {
		info.Summary.TopCity = &topCity.String
	}

	if topCountry.Valid {
		info.Summary.TopCountry = &topCountry.String
	}

	return info, nil
}

func (r *sqlRunRepository) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := runInfoSelect + " ORDER BY created_at DESC, id"

	var args []any
	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}

	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		runs = append(runs, info)
	}

	return runs, rows.Err()
}

func (r *sqlRunRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	return r.getRun(ctx, runInfoSelect+" WHERE id = ?", id)
}

func (r *sqlRunRepository) LatestRun(ctx context.Context) (*Run, error) {
	return r.getRun(ctx, runInfoSelect+" ORDER BY created_at DESC, id LIMIT 1")
}

func (r *sqlRunRepository) getRun(ctx context.Context, query string, args ...any) (*Run, error) {
	info, err := scanRunInfo(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	run := &Run{RunInfo: info}

	if run.Cities, err = r.locations(ctx, info.ID, signals.LevelCity); err != nil {
		return nil, err
	}

	if run.Countries, err = r.locations(ctx, info.ID, signals.LevelCountry); err != nil {
		return nil, err
	}

	if run.SignalBreakdown, err = r.breakdown(ctx, info.ID); err != nil {
		return nil, err
	}

	return run, nil
}

func (r *sqlRunRepository) locations(ctx context.Context, runID string, level signals.Level) ([]aggregate.Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT location, total_score, mention_count, avg_confidence, signal_types,
		       num_signals, estimated_percentage, confidence_level
		FROM run_locations
		WHERE run_id = ? AND level = ?
		ORDER BY rank
	`, runID, string(level))
	if err != nil {
		return nil, fmt.Errorf("querying %s rows of run %s: %w", level, runID, err)
	}
	defer rows.Close()

	out := []aggregate.Row{}

	for rows.Next() {
		var (
			row        aggregate.Row
			typesVal   any
			confidence string
		)

		if err := rows.Scan(
			&row.Location, &row.TotalScore, &row.MentionCount, &row.AvgConfidence, &typesVal,
			&row.NumSignals, &row.EstimatedPercentage, &confidence,
		); err != nil {
			return nil, fmt.Errorf("scanning %s row of run %s: %w", level, runID, err)
		}

		types, ok := textutils.AnyToStringSlice(typesVal)
		if !ok {
			return nil, fmt.Errorf("unexpected signal_types %T for %q", typesVal, row.Location)
		}

		if types == nil {
			types = []string{}
		}

		row.SignalTypes = types
		row.ConfidenceLevel = signals.ConfidenceLevel(confidence)
		out = append(out, row)
	}

	return out, rows.Err()
}

func (r *sqlRunRepository) breakdown(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT signal_type, count FROM run_signals WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("querying signal breakdown of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make(map[string]int)

	for rows.Next() {
		var (
			signalType string
			count      int
		)

		if err := rows.Scan(&signalType, &count); err != nil {
			return nil, fmt.Errorf("scanning signal breakdown of run %s: %w", runID, err)
		}

		out[signalType] = count
	}

	return out, rows.Err()
}
