// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	_ "github.com/duckdb/duckdb-go/v2"
)

func setupCacheRepository(t *testing.T) (*sql.DB, CacheRepository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewCacheRepository(db)
	require.NoError(t, repo.CreateSchema())

	return db, repo
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	_, repo := setupCacheRepository(t)
	ctx := context.Background()

	paris := newResult("Paris", "nominatim", "Paris, France", 48.8566, 2.3522, json.RawMessage(`{"place_id":1}`))

	require.NoError(t, repo.SaveEntry(ctx, Entry{Name: "Paris", Result: paris}))
	require.NoError(t, repo.SaveEntry(ctx, Entry{Name: "Atlantis"}))

	got, err := repo.LoadEntries(ctx)
	require.NoError(t, err)

	want := []Entry{
		{Name: "Atlantis"},
		{Name: "Paris", Result: paris},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadEntries() mismatch (-want +got):\n%s", diff)
	}

	found, missing, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, found)
	require.Equal(t, 1, missing)
}

func TestCacheRepositoryKeepsFirstEntry(t *testing.T) {
	_, repo := setupCacheRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveEntry(ctx, Entry{Name: "Springfield"}))
	require.NoError(t, repo.SaveEntry(ctx, Entry{
		Name:   "Springfield",
		Result: newResult("Springfield", "google_maps", "Springfield, IL, USA", 39.78, -89.65, nil),
	}))

	got, err := repo.LoadEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Name: "Springfield"}}, got)
}

func TestCacheRepositoryIgnoresInvalidRaw(t *testing.T) {
	db, repo := setupCacheRepository(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO geocode_cache (name, found, formatted_address, latitude, longitude, city, country, provider, raw)
		VALUES ('Lima', TRUE, 'Lima, Peru', -12.04, -77.04, 'Lima', 'Peru', 'nominatim', '{broken')`)
	require.NoError(t, err)

	got, err := repo.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Result)
	require.Equal(t, "Peru", got[0].Result.Country)
	require.Nil(t, got[0].Result.Raw)
}

func TestClientPersistsToRepository(t *testing.T) {
	_, repo := setupCacheRepository(t)
	ctx := context.Background()

	provider := GeocoderFunc(func(_ context.Context, name string) (*Result, error) {
		if name == "Berlin" {
			return newResult(name, "fake", "Berlin, Germany", 52.52, 13.405, nil), nil
		}

		return nil, notFound(name)
	})

	c := NewClient(ctx, provider, ClientOptions{Store: repo})
	require.NotNil(t, c.Geocode(ctx, "Berlin"))
	require.Nil(t, c.Geocode(ctx, "Gondor"))

	calls := 0
	counting := GeocoderFunc(func(context.Context, string) (*Result, error) {
		calls++

		return nil, notFound("")
	})

	reloaded := NewClient(ctx, counting, ClientOptions{Store: repo})

	r := reloaded.Geocode(ctx, "Berlin")
	require.NotNil(t, r)
	require.Equal(t, "Germany", r.Country)
	require.Nil(t, reloaded.Geocode(ctx, "Gondor"))
	require.Zero(t, calls)
}

func TestClientOutageIsNotPersisted(t *testing.T) {
	_, repo := setupCacheRepository(t)
	ctx := context.Background()

	down := GeocoderFunc(func(context.Context, string) (*Result, error) {
		return nil, &Error{Type: ErrorTypeNetworkError, Message: "connection refused"}
	})

	first := NewClient(ctx, down, ClientOptions{Store: repo})
	first.sleep = func(context.Context, time.Duration) error { return nil }

	require.Nil(t, first.Geocode(ctx, "Paris"))

	_, ok := first.Lookup("Paris")
	require.True(t, ok, "the failure stays cached for the rest of the process")

	found, missing, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	require.Zero(t, found)
	require.Zero(t, missing)

	calls := 0
	healthy := GeocoderFunc(func(_ context.Context, name string) (*Result, error) {
		calls++

		return newResult(name, "fake", "Paris, France", 48.8566, 2.3522, nil), nil
	})

	second := NewClient(ctx, healthy, ClientOptions{Store: repo})

	r := second.Geocode(ctx, "Paris")
	require.NotNil(t, r)
	require.Equal(t, "France", r.Country)
	require.Equal(t, 1, calls)
}
