// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/polycheck/review"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

type reviewOptions struct {
	Input     string
	Journal   string
	OutDir    string
	Addr      string
	MapWidth  int
	MapHeight int

	Nominatim review.NominatimOptions
	MapsKey   review.MapsKeyOptions
}

var reviewOpts = &reviewOptions{}

const projectURL = "https://github.com/jcodagnone/polycheck"

// userAgent follows the Nominatim usage policy: an identifying application name.
func userAgent() string {
	if ua := os.Getenv("POLYCHECK_USER_AGENT"); ua != "" {
		return ua
	}

	return fmt.Sprintf("polycheck/%s (+%s)", Version, projectURL)
}

// referer identifies the deployment; Nominatim receives one with every request.
func referer() string {
	if r := os.Getenv("POLYCHECK_REFERER"); r != "" {
		return r
	}

	return projectURL
}

func newNominatim(options review.NominatimOptions, metrics *review.Metrics) review.Geocoder {
	if options.UserAgent == "" {
		options.UserAgent = userAgent()
	}

	if options.Referer == "" {
		options.Referer = referer()
	}

	var g review.Geocoder = review.NewNominatimGeocoder(&options)
	if metrics != nil {
		g = review.NewInstrumentedGeocoder(g, metrics)
	}

	return g
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Verify place polygons against their expected location",
}

var reviewServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interactive review web server (local only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// an empty path keeps the journal in memory
		db, err := sql.Open("duckdb", reviewOpts.Journal)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		journal := review.NewJournal(db)
		if err := journal.CreateSchema(); err != nil {
			return fmt.Errorf("creating journal schema: %w", err)
		}

		if n, err := journal.Count(); err == nil && n > 0 {
			log.Printf("📓 Journal has %d previous decisions", n)
		}

		if err := os.MkdirAll(reviewOpts.OutDir, 0o750); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		metrics := review.NewMetrics()
		geocoder := newNominatim(reviewOpts.Nominatim, metrics)
		clock := clockwork.NewRealClock()
		session := review.NewSession(
			review.NewFileStore(reviewOpts.OutDir, clock),
			metrics,
			review.WithJournal(journal),
			review.WithClock(clock),
		)

		if reviewOpts.Input != "" {
			entries, err := review.LoadEntries(cmd.Context(), db, reviewOpts.Input)
			if err != nil {
				return err
			}

			session.Load(entries)
		}

		apiKey := review.ResolveMapsAPIKey(cmd.Context(), reviewOpts.MapsKey)

		server := review.NewServer(session, geocoder, db, metrics,
			&review.LeafletRenderer{Width: reviewOpts.MapWidth, Height: reviewOpts.MapHeight},
			&review.GoogleEmbedRenderer{APIKey: apiKey, Width: reviewOpts.MapWidth, Height: reviewOpts.MapHeight},
		)

		log.Printf("🗺️  Review server starting, geometries go to %s", reviewOpts.OutDir)
		fmt.Printf("📍 Open http://%s in your browser\n", reviewOpts.Addr)
		fmt.Println("🔒 Local only - not exposed to internet")

		return server.Run(reviewOpts.Addr)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewServeCmd)

	reviewCmd.PersistentFlags().StringVar(
		&reviewOpts.Nominatim.BaseURL,
		"geocoder-url",
		review.DefaultNominatimURL,
		"Base URL of the Nominatim instance",
	)
	reviewCmd.PersistentFlags().StringVar(
		&reviewOpts.Nominatim.UserAgent,
		"user-agent",
		"",
		"User-Agent sent to Nominatim. Defaults to $POLYCHECK_USER_AGENT or polycheck/<version>",
	)
	reviewCmd.PersistentFlags().StringVar(
		&reviewOpts.Nominatim.Referer,
		"referer",
		"",
		"Referer sent to Nominatim. Defaults to $POLYCHECK_REFERER or the project URL",
	)
	reviewCmd.PersistentFlags().DurationVar(
		&reviewOpts.Nominatim.Timeout,
		"geocoder-timeout",
		0,
		"Timeout of a single Nominatim request. 0 keeps the transport default",
	)
	reviewCmd.PersistentFlags().BoolVar(
		&reviewOpts.Nominatim.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	reviewCmd.PersistentFlags().BoolVar(
		&reviewOpts.Nominatim.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)

	reviewServeCmd.Flags().StringVar(
		&reviewOpts.Input,
		"input",
		"",
		"Table to review on startup (csv, tsv, xlsx, parquet or json). Can also be uploaded from the browser",
	)
	reviewServeCmd.Flags().StringVar(
		&reviewOpts.Journal,
		"journal",
		"",
		"DuckDB file where every decision is journaled. Kept in memory when empty",
	)
	reviewServeCmd.Flags().StringVar(
		&reviewOpts.OutDir,
		"out-dir",
		"geometries",
		"Directory where confirmed GeoJSON documents are written",
	)
	reviewServeCmd.Flags().StringVar(
		&reviewOpts.Addr,
		"addr",
		"localhost:8080",
		"Address to listen on",
	)
	reviewServeCmd.Flags().IntVar(
		&reviewOpts.MapWidth,
		"map-width",
		600,
		"Width in pixels of each comparison map",
	)
	reviewServeCmd.Flags().IntVar(
		&reviewOpts.MapHeight,
		"map-height",
		450,
		"Height in pixels of each comparison map",
	)
	reviewServeCmd.Flags().BoolVar(
		&reviewOpts.MapsKey.UseADC,
		"maps-key-adc",
		false,
		"Look up the Google Maps Embed API key with Application Default Credentials when GOOGLE_MAPS_API_KEY is unset",
	)
	reviewServeCmd.Flags().StringVar(
		&reviewOpts.MapsKey.ProjectID,
		"gcp-project",
		"",
		"Google Cloud project holding the Maps Embed API key",
	)
	reviewServeCmd.Flags().StringVar(
		&reviewOpts.MapsKey.DisplayName,
		"maps-key-name",
		"",
		"Display name of the Maps Embed API key resource",
	)
}
