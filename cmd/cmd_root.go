// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "polycheck",
	Short: "human-in-the-loop verification of place polygons",
	Long: `
polycheck walks a table of named places (EngName, Latitude, Longitude), looks
up each name in Nominatim and shows the returned polygon next to the expected
location so an operator can confirm, reject or skip it. Confirmed polygons are
written as GeoJSON files; everything else ends up in needs_review.csv.
`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is optional; real environment variables take precedence
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
