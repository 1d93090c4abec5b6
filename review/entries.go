// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jcodagnone/polycheck/spatial"
	"github.com/xuri/excelize/v2"
)

// Required input columns.
const (
	ColumnName      = "EngName"
	ColumnLatitude  = "Latitude"
	ColumnLongitude = "Longitude"
)

var (
	// ErrMissingColumn is returned when the input lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnsupportedFormat is returned for input files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// Entry is one named location with its expected coordinates.
type Entry struct {
	Name  string        `json:"name"`
	Point spatial.Point `json:"point"`
}

// ParseRows converts a header and its rows into entries. Rows with a blank
// name or a missing / non-numeric coordinate are dropped; the number of
// dropped rows is returned alongside the entries.
func ParseRows(header []string, rows [][]string) ([]Entry, int, error) {
	index := make(map[string]int, len(header))

	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var cols [3]int

	for i, name := range []string{ColumnName, ColumnLatitude, ColumnLongitude} {
		col, ok := index[name]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}

		cols[i] = col
	}

	cell := func(row []string, col int) string {
		if col < len(row) {
			return strings.TrimSpace(row[col])
		}

		return ""
	}

	entries := make([]Entry, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		name := cell(row, cols[0])
		lat, latOk := parseCoordinate(cell(row, cols[1]))
		lng, lngOk := parseCoordinate(cell(row, cols[2]))

		if name == "" || !latOk || !lngOk {
			dropped++

			continue
		}

		entries = append(entries, Entry{Name: name, Point: spatial.Point{Lat: lat, Lng: lng}})
	}

	return entries, dropped, nil
}

func parseCoordinate(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// LoadEntries reads the input table at path. Spreadsheets are read with
// excelize, every other supported format is scanned by DuckDB.
func LoadEntries(ctx context.Context, db *sql.DB, path string) ([]Entry, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)

	literal := "'" + strings.ReplaceAll(path, "'", "''") + "'"

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		header, rows, err = readSpreadsheet(path)
	case ".csv", ".txt":
		header, rows, err = queryTable(ctx, db, "read_csv("+literal+", header = true, all_varchar = true)")
	case ".tsv":
		header, rows, err = queryTable(ctx, db, "read_csv("+literal+", header = true, all_varchar = true, delim = '\t')")
	case ".parquet":
		header, rows, err = queryTable(ctx, db, "read_parquet("+literal+")")
	case ".json", ".ndjson", ".jsonl":
		header, rows, err = queryTable(ctx, db, "read_json_auto("+literal+")")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	entries, dropped, err := ParseRows(header, rows)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	if dropped > 0 {
		log.Printf("ℹ️  %s: dropped %d rows missing %s, %s or %s", filepath.Base(path), dropped, ColumnName, ColumnLatitude, ColumnLongitude)
	}

	return entries, nil
}

// queryTable runs SELECT * over a DuckDB table function, rendering every value as text.
func queryTable(ctx context.Context, db *sql.DB, tableFunction string) ([]string, [][]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+tableFunction)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	values := make([]any, len(header))
	ptrs := make([]any, len(header))

	for i := range values {
		ptrs[i] = &values[i]
	}

	var table [][]string

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatValue(v)
		}

		table = append(table, record)
	}

	return header, table, rows.Err()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// readSpreadsheet returns the rows of the first sheet, the first row being the header.
func readSpreadsheet(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, errors.New("no sheets found in spreadsheet")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("reading rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil, errors.New("spreadsheet is empty")
	}

	return rows[0], rows[1:], nil
}
