// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// CacheStore persists Client entries across processes. Implementations must
// keep the first entry saved for a name.
type CacheStore interface {
	// LoadEntries returns every stored entry
	LoadEntries(ctx context.Context) ([]Entry, error)

	// SaveEntry stores e unless its name is already present
	SaveEntry(ctx context.Context, e Entry) error
}

// CacheRepository is a CacheStore backed by a SQL database (DuckDB).
type CacheRepository interface {
	CacheStore

	// CreateSchema creates the geocode_cache table
	CreateSchema() error

	// CountEntries returns the number of positive and negative entries
	CountEntries(ctx context.Context) (found, missing int, err error)
}

type sqlCacheRepository struct {
	db *sql.DB
}

// NewCacheRepository creates a new cache repository.
func NewCacheRepository(db *sql.DB) CacheRepository {
	return &sqlCacheRepository{db: db}
}

func (r *sqlCacheRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS geocode_cache (
			name VARCHAR PRIMARY KEY,
			found BOOLEAN NOT NULL,
			formatted_address VARCHAR,
			latitude DOUBLE,
			longitude DOUBLE,
			city VARCHAR,
			country VARCHAR,
			provider VARCHAR,
			raw VARCHAR,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func (r *sqlCacheRepository) SaveEntry(ctx context.Context, e Entry) error {
	if e.Result == nil {
		_, err := r.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO geocode_cache (name, found) VALUES (?, FALSE)",
			e.Name,
		)
		if err != nil {
			return fmt.Errorf("saving negative entry %q: %w", e.Name, err)
		}

		return nil
	}

	var raw sql.NullString
	if len(e.Result.Raw) > 0 {
		raw = sql.NullString{String: string(e.Result.Raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO geocode_cache (
			name, found, formatted_address, latitude, longitude, city, country, provider, raw
		) VALUES (?, TRUE, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name,
		e.Result.FormattedAddress,
		e.Result.Latitude,
		e.Result.Longitude,
		e.Result.City,
		e.Result.Country,
		e.Result.Provider,
		raw,
	)
	if err != nil {
		return fmt.Errorf("saving entry %q: %w", e.Name, err)
	}

	return nil
}

func (r *sqlCacheRepository) LoadEntries(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, found, formatted_address, latitude, longitude, city, country, provider, raw
		FROM geocode_cache
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying geocode cache: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			name                                  string
			found                                 bool
			address, city, country, provider, raw sql.NullString
			lat, lng                              sql.NullFloat64
		)

		if err := rows.Scan(&name, &found, &address, &lat, &lng, &city, &country, &provider, &raw); err != nil {
			return nil, fmt.Errorf("scanning geocode cache: %w", err)
		}

		e := Entry{Name: name}
		if found {
			e.Result = &Result{
				Name:             name,
				FormattedAddress: address.String,
				Latitude:         lat.Float64,
				Longitude:        lng.Float64,
				City:             city.String,
				Country:          country.String,
				Provider:         provider.String,
			}

			if raw.Valid && json.Valid([]byte(raw.String)) {
				e.Result.Raw = json.RawMessage(raw.String)
			} else if raw.Valid {
				log.Printf("Ignoring invalid raw payload for cached location %q", name)
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return entries, nil
}

func (r *sqlCacheRepository) CountEntries(ctx context.Context) (found, missing int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE found),
			COUNT(*) FILTER (WHERE NOT found)
		FROM geocode_cache
	`).Scan(&found, &missing)

	return found, missing, err
}
