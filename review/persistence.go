// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoPolygon is returned when persisting a lookup without a polygon.
var ErrNoPolygon = errors.New("lookup result has no polygon")

// GeometryExt is the extension of persisted geometry documents.
const GeometryExt = ".geojson"

// Persister stores the geometry document of a confirmed entry.
type Persister interface {
	// Persist writes the document and returns where it was written.
	Persist(entry Entry, result LookupResult) (string, error)
}

// FileStore writes one GeoJSON file per confirmed entry in a directory.
// Confirming the same name twice overwrites the previous file.
type FileStore struct {
	dir   string
	clock clockwork.Clock
}

// NewFileStore creates a store writing under dir.
func NewFileStore(dir string, clock clockwork.Clock) *FileStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &FileStore{dir: dir, clock: clock}
}

// Path returns the file the document of name is written to.
func (f *FileStore) Path(name string) string {
	return filepath.Join(f.dir, SafeName(name)+GeometryExt)
}

func (f *FileStore) Persist(entry Entry, result LookupResult) (string, error) {
	doc, err := NewGeometryDocument(entry, result, f.clock.Now())
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("marshaling geometry document: %w", err)
	}

	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := f.Path(entry.Name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("writing geometry document: %w", err)
	}

	return path, nil
}

// SafeName derives a file name from an entry name: diacritics are folded
// and every rune that isn't a letter or a digit becomes '_'.
// "New York City" is "New_York_City", "São Paulo" is "Sao_Paulo".
func SafeName(name string) string {
	folded, _, err := transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(name),
	)
	if err != nil {
		folded = strings.TrimSpace(name)
	}

	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}

		return '_'
	}, folded)

	if safe == "" {
		return "unnamed"
	}

	return safe
}
