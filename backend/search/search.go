// Package search scans the CSV export in one of two modes. Restricted mode
// is the default: exact id matches first, then substring matches, projected
// to four public columns. Privileged mode, reserved for unlocked sessions,
// matches case-insensitively across every cell and returns full rows.
package search

import (
	"strings"

	"annuaire/backend/dataset"
)

// Mode names reported in the result envelope.
const (
	ModeRestricted = "restricted"
	ModePrivileged = "privileged"
)

// MaxRows caps how many matching rows a single query returns. The total
// match count is reported alongside, untruncated.
const MaxRows = 500

// Entry is the four-column projection returned in restricted mode.
type Entry struct {
	Class  string `json:"class"`
	Name   string `json:"name"`
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// Result is the search envelope. Entries is set in restricted mode; Rows
// and Header in privileged mode.
type Result struct {
	Mode    string        `json:"mode"`
	Matches int           `json:"matches"`
	Entries []Entry       `json:"entries,omitempty"`
	Rows    []dataset.Row `json:"rows,omitempty"`
	Header  dataset.Row   `json:"header,omitempty"`
}

// Engine runs queries against one dataset.
type Engine struct {
	Data *dataset.Store

	// FoldCase makes restricted-mode substring matching case-insensitive.
	// The exact-id comparison stays case-sensitive either way. Off by
	// default, matching the historical deployment; some installs run with
	// it on, so both behaviors are supported.
	FoldCase bool
}

func project(row dataset.Row) Entry {
	return Entry{
		Class:  row.Cell(dataset.ColClass),
		Name:   row.Cell(dataset.ColName),
		ID:     row.Cell(dataset.ColID),
		Secret: row.Cell(dataset.ColSecret),
	}
}

func (e *Engine) contains(cell, query string) bool {
	if e.FoldCase {
		return strings.Contains(strings.ToLower(cell), strings.ToLower(query))
	}
	return strings.Contains(cell, query)
}

// Search runs query in the mode implied by the session: privileged only when
// the session holds the privilege AND the request opted in; anything else
// falls back to restricted. The header row never participates in matching.
func (e *Engine) Search(query string, privileged, optIn bool) (Result, error) {
	header, rows, err := e.Data.Load()
	if err != nil {
		return Result{}, err
	}
	if privileged && optIn {
		res := e.searchPrivileged(query, rows)
		res.Header = header
		return res, nil
	}
	return e.searchRestricted(query, rows), nil
}

func (e *Engine) searchRestricted(query string, rows []dataset.Row) Result {
	res := Result{Mode: ModeRestricted, Entries: []Entry{}}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		matched := false
		// Exact id match takes priority in file order.
		if len(row) > dataset.ColID && row[dataset.ColID] == query {
			matched = true
		} else {
			for _, cell := range row {
				if e.contains(cell, query) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		res.Matches++
		if len(res.Entries) < MaxRows {
			res.Entries = append(res.Entries, project(row))
		}
	}
	return res
}

func (e *Engine) searchPrivileged(query string, rows []dataset.Row) Result {
	res := Result{Mode: ModePrivileged, Rows: []dataset.Row{}}
	q := strings.ToLower(query)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		matched := false
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), q) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		res.Matches++
		if len(res.Rows) < MaxRows {
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}
