// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/viewergeo/report"
	"github.com/jcodagnone/viewergeo/utils/textutils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded runs as a read-only JSON API (local only)",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDB(geoOptions.DbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := report.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating report schema: %w", err)
		}

		fmt.Println("🌍 Run server starting...")
		fmt.Printf("📍 Open http://%s/api/runs/latest\n", serveAddr)

		return report.NewServer(repo).Run(serveAddr)
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
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

		repo := report.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating report schema: %w", err)
		}

		runs, err := repo.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}

		a, b, c, d := strings.Repeat("─", 36), strings.Repeat("─", 16), strings.Repeat("─", 19), strings.Repeat("─", 8)
		fmt.Printf("╭─%-36s─┬─%-16s─┬─%-19s─┬─%8s─╮\n", a, b, c, d)
		fmt.Printf("│ %-36s │ %-16s │ %-19s │ %8s │\n", "Id", "Video", "Created", "Comments")
		fmt.Printf("├─%-36s─┼─%-16s─┼─%-19s─┼─%8s─┤\n", a, b, c, d)

		for _, r := range runs {
			fmt.Printf("│ %-36s │ %-16s │ %-19s │ %8s │\n",
				r.ID, truncate(r.VideoID, 16), r.CreatedAt.Format("2006-01-02 15:04:05"), textutils.FormatInt(int64(r.Comments)))
		}

		fmt.Printf("╰─%-36s─┴─%-16s─┴─%-19s─┴─%8s─╯\n", a, b, c, d)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addDbPathFlag(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Address to listen on")

	rootCmd.AddCommand(runsCmd)
	addDbPathFlag(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", report.DefaultListLimit, "Maximum runs to list, 0 for all")
}
