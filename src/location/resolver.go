// Package location maps event ids to source locations using a prebuilt table.
package location

import (
	"errors"
	"fmt"
	"os"

	"hookstat/src/codec"
	"hookstat/src/contracts"
)

// ErrUnknownLocation is returned when an id has no entry in the table.
var ErrUnknownLocation = errors.New("unknown location")

// UnknownLocationError carries the id that could not be resolved.
type UnknownLocationError struct {
	ID contracts.EventID
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("unknown location for iid %d", e.ID)
}

func (e *UnknownLocationError) Unwrap() error {
	return ErrUnknownLocation
}

// Resolver maps an EventID to its Location.
// Implementations must be deterministic and safe for concurrent use.
type Resolver interface {
	Resolve(id contracts.EventID) (contracts.Location, error)
}

// Entry is one row of a location table file.
type Entry struct {
	ID        contracts.EventID `json:"id" msgpack:"id"`
	File      string            `json:"file" msgpack:"file"`
	StartLine int               `json:"start_line" msgpack:"start_line"`
	StartCol  int               `json:"start_col" msgpack:"start_col"`
	EndLine   int               `json:"end_line" msgpack:"end_line"`
	EndCol    int               `json:"end_col" msgpack:"end_col"`
}

// Table is an in-memory Resolver. It is built once and then only read.
type Table struct {
	locs map[contracts.EventID]contracts.Location
}

// NewTable builds a table from entries. Duplicate ids are rejected.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{locs: make(map[contracts.EventID]contracts.Location, len(entries))}
	for _, e := range entries {
		if _, exists := t.locs[e.ID]; exists {
			return nil, fmt.Errorf("duplicate location entry for iid %d", e.ID)
		}
		t.locs[e.ID] = contracts.Location{
			File:      e.File,
			StartLine: e.StartLine,
			StartCol:  e.StartCol,
			EndLine:   e.EndLine,
			EndCol:    e.EndCol,
		}
	}
	return t, nil
}

// LoadTable reads a table file. The format follows the extension (.msgpack/.mpk or JSON).
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read location table: %w", err)
	}

	var entries []Entry
	if err := codec.Unmarshal(codec.FormatForPath(path), data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse location table %s: %w", path, err)
	}
	return NewTable(entries)
}

// Resolve implements Resolver.
func (t *Table) Resolve(id contracts.EventID) (contracts.Location, error) {
	loc, ok := t.locs[id]
	if !ok {
		return contracts.Location{}, &UnknownLocationError{ID: id}
	}
	return loc, nil
}

// File returns the file name of a site, or "" when unknown.
func (t *Table) File(id contracts.EventID) string {
	return t.locs[id].File
}

// Len returns the number of registered sites.
func (t *Table) Len() int {
	return len(t.locs)
}

// Empty returns a resolver that knows no sites.
func Empty() *Table {
	return &Table{locs: map[contracts.EventID]contracts.Location{}}
}
