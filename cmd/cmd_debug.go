// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/jcodagnone/polycheck/review"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// eachLine calls fn for every line of stdin, prompting first when it's a terminal.
func eachLine(prompt string, fn func(line string)) error {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, prompt)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Look up place names in Nominatim",
	Long: `Reads one place name per line and prints the outcome of the lookup.

$ echo "Central Park" | polycheck review debug geocode
Central Park	Polygon	Central Park, Manhattan, New York County, New York, United States
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		geocoder := newNominatim(reviewOpts.Nominatim, nil)

		return eachLine("Enter place names to look up, one per line…", func(name string) {
			writeLookup(os.Stdout, name, func(query string) (*review.LookupResult, error) {
				return geocoder.Geocode(cmd.Context(), query)
			})
		})
	},
}

func writeLookup(w io.Writer, name string, geocode func(string) (*review.LookupResult, error)) {
	result, err := geocode(name)
	if err != nil {
		fmt.Fprintf(w, "%s\t%s\t%q\n", name, review.ErrorTypeOf(err), err.Error())

		return
	}

	fmt.Fprintf(w, "%s\t%s\t%s\n", name, result.Polygon.Type, result.DisplayLabel)
}

var debugFilenameCmd = &cobra.Command{
	Use:   "filename",
	Short: "Print the GeoJSON file name each place name is saved as",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter place names, one per line…", func(name string) {
			fmt.Printf("%s\t%s%s\n", name, review.SafeName(name), review.GeometryExt)
		})
	},
}

func init() {
	reviewCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugGeocodeCmd)
	debugCmd.AddCommand(debugFilenameCmd)
}
