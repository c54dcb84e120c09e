// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/viewergeo/geocode"
	"github.com/jcodagnone/viewergeo/spatial"
	"github.com/jcodagnone/viewergeo/utils/textutils"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <location>...",
	Short: "Resolve location names through the cached geocoder",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if geoOptions.Geocoder == geocoderNone {
			return fmt.Errorf("geocode needs a provider, got --geocoder=%s", geocoderNone)
		}

		db, err := openDB(geoOptions.DbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		client, err := newGeocodeClient(ctx, db, geoOptions)
		if err != nil {
			return err
		}

		for _, name := range args {
			printResult(os.Stdout, name, client.Geocode(ctx, name))
		}

		logGeocodeStats(client.Stats())

		return nil
	},
}

func printResult(out io.Writer, name string, r *geocode.Result) {
	if r == nil {
		fmt.Fprintf(out, "❌ %s: not found\n", name)

		return
	}

	cell, err := r.Point().Cell(spatial.DefaultResolution)
	if err != nil {
		cell = "-"
	}

	fmt.Fprintf(out, "📍 %s: %s (%.5f, %.5f) city=%s country=%s h3=%s [%s]\n",
		name, r.FormattedAddress, r.Latitude, r.Longitude, r.City, r.Country, cell, r.Provider)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the persistent geocoding cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached geocoding results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		db, err := openDB(geoOptions.DbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := geocode.NewCacheRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating geocode cache schema: %w", err)
		}

		entries, err := repo.LoadEntries(ctx)
		if err != nil {
			return err
		}

		found, missing, err := repo.CountEntries(ctx)
		if err != nil {
			return fmt.Errorf("counting cache entries: %w", err)
		}

		a, b, c := strings.Repeat("─", 30), strings.Repeat("─", 50), strings.Repeat("─", 10)
		fmt.Printf("╭─%-30s─┬─%-50s─┬─%-10s─╮\n", a, b, c)
		fmt.Printf("│ %-30s │ %-50s │ %-10s │\n", "Location", "Address", "Provider")
		fmt.Printf("├─%-30s─┼─%-50s─┼─%-10s─┤\n", a, b, c)

		for _, e := range entries {
			address, provider := "-", "-"
			if e.Result != nil {
				address, provider = e.Result.FormattedAddress, e.Result.Provider
			}

			fmt.Printf("│ %-30s │ %-50s │ %-10s │\n", truncate(e.Name, 30), truncate(address, 50), truncate(provider, 10))
		}

		fmt.Printf("╰─%-30s─┴─%-50s─┴─%-10s─╯\n", a, b, c)
		fmt.Printf("%s found, %s not found\n", textutils.FormatInt(int64(found)), textutils.FormatInt(int64(missing)))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	addGeocodeFlags(geocodeCmd)
	addDbPathFlag(geocodeCmd)

	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	addDbPathFlag(cacheListCmd)
}
