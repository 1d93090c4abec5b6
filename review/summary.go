// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// FlaggedFilename is the download name of the follow-up list.
const FlaggedFilename = "needs_review.csv"

// ErrSessionNotComplete is returned when summarizing a session still under review.
var ErrSessionNotComplete = errors.New("session is not complete")

// Summary is the final tally of a completed session.
type Summary struct {
	Confirmed []string `json:"confirmed"`
	Flagged   []string `json:"flagged"`
}

// Summary returns the outcome lists once every entry was decided.
func (s SessionState) Summary() (*Summary, error) {
	if s.State() != StateComplete {
		return nil, fmt.Errorf("%w: %d of %d entries decided", ErrSessionNotComplete, s.Cursor, len(s.Entries))
	}

	return &Summary{
		Confirmed: slices.Clone(s.Confirmed),
		Flagged:   slices.Clone(s.Flagged),
	}, nil
}

// WriteFlaggedCSV writes flagged as a single EngName column, in order.
func WriteFlaggedCSV(w io.Writer, flagged []string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{ColumnName}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, name := range flagged {
		if err := cw.Write([]string{name}); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	cw.Flush()

	return cw.Error()
}
