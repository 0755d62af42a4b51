// Package dataset reads the CSV export the search runs over. The file is
// re-read on every call so a swapped export is picked up immediately.
package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
)

// Column positions with a fixed meaning in the export. Rows may be shorter;
// Cell returns "" past the end.
const (
	ColClass  = 0
	ColName   = 1
	ColID     = 4
	ColSecret = 5
)

// Row is one CSV record.
type Row []string

// Cell returns the i-th cell or "" when the row is too short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Store reads one CSV file.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the header row and the data rows. A missing file is not an
// error: both results are empty. Records with inconsistent arity are kept
// (the reader does not enforce a field count) and records that fail to parse
// are skipped rather than aborting the scan.
func (s *Store) Load() (header Row, rows []Row, err error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed record, keep scanning
		}
		if first {
			first = false
			header = Row(record)
			continue
		}
		rows = append(rows, Row(record))
	}
	return header, rows, nil
}
