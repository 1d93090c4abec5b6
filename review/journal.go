// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jcodagnone/polycheck/spatial"
	"github.com/uber/h3-go/v4"
)

// JournalRecord is one applied decision.
type JournalRecord struct {
	Session      int           `json:"session"`
	Index        int           `json:"index"`
	Name         string        `json:"name"`
	Point        spatial.Point `json:"point"`
	Action       Action        `json:"action"`
	DisplayLabel string        `json:"display_label,omitempty"`
	Path         string        `json:"path,omitempty"`
	DecidedAt    time.Time     `json:"decided_at"`
	H3Res8       int64         `json:"-"`
}

func (rec *JournalRecord) computeH3() error {
	rec.H3Res8 = 0

	if !rec.Point.Valid() {
		return nil
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(rec.Point.Lat, rec.Point.Lng), h3Resolution)
	if err != nil {
		return fmt.Errorf("error converting to h3 cell at res %d: %w", h3Resolution, err)
	}

	rec.H3Res8 = int64(cell)

	return nil
}

// Journal keeps the history of every decision, across sessions.
type Journal interface {
	// CreateSchema creates the decisions table
	CreateSchema() error

	// Record appends a decision
	Record(rec *JournalRecord) error

	// List returns decisions in the order they were made
	List(limit, offset int) ([]*JournalRecord, error)

	// Count returns the total number of decisions
	Count() (int, error)

	// LastSession returns the highest session id recorded, 0 when empty
	LastSession() (int, error)
}

type sqlJournal struct {
	db *sql.DB
}

// NewJournal creates a journal stored in db.
func NewJournal(db *sql.DB) Journal {
	return &sqlJournal{db: db}
}

func (r *sqlJournal) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS decisions_seq START 1;

		CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY DEFAULT nextval('decisions_seq'),
			session INTEGER NOT NULL,
			position INTEGER NOT NULL,
			name VARCHAR NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			action VARCHAR NOT NULL,
			display_label VARCHAR,
			path VARCHAR,
			decided_at TIMESTAMP NOT NULL,
			h3_res8 UBIGINT
		);
	`)

	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *sqlJournal) Record(rec *JournalRecord) error {
	if err := rec.computeH3(); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		INSERT INTO decisions(
			session,
			position,
			name,
			latitude,
			longitude,
			action,
			display_label,
			path,
			decided_at,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Session,
		rec.Index,
		rec.Name,
		rec.Point.Lat,
		rec.Point.Lng,
		string(rec.Action),
		nullString(rec.DisplayLabel),
		nullString(rec.Path),
		rec.DecidedAt.UTC(),
		sql.NullInt64{Int64: rec.H3Res8, Valid: rec.H3Res8 != 0},
	)

	return err
}

func (r *sqlJournal) List(limit, offset int) ([]*JournalRecord, error) {
	rows, err := r.db.Query(`
		SELECT session, position, name, latitude, longitude, action,
		       display_label, path, decided_at, h3_res8
		FROM decisions
		ORDER BY id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*JournalRecord{}

	for rows.Next() {
		var (
			rec                JournalRecord
			action             string
			displayLabel, path sql.NullString
			h3Res8             sql.NullInt64
		)

		if err := rows.Scan(
			&rec.Session,
			&rec.Index,
			&rec.Name,
			&rec.Point.Lat,
			&rec.Point.Lng,
			&action,
			&displayLabel,
			&path,
			&rec.DecidedAt,
			&h3Res8,
		); err != nil {
			return nil, err
		}

		rec.Action = Action(action)
		rec.DisplayLabel = displayLabel.String
		rec.Path = path.String
		rec.H3Res8 = h3Res8.Int64

		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (r *sqlJournal) Count() (int, error) {
	var count int

	err := r.db.QueryRow(`SELECT count(*) FROM decisions`).Scan(&count)

	return count, err
}

func (r *sqlJournal) LastSession() (int, error) {
	var last int

	err := r.db.QueryRow(`SELECT coalesce(max(session), 0) FROM decisions`).Scan(&last)

	return last, err
}
