package contracts

import (
	"cmp"
	"fmt"
)

// PlaceholderLocation is rendered for sites the location table does not know.
const PlaceholderLocation = "(unknown location)"

// Location is the resolved source range of a code site.
type Location struct {
	File      string `json:"file" msgpack:"file"`
	StartLine int    `json:"start_line" msgpack:"start_line"`
	StartCol  int    `json:"start_col" msgpack:"start_col"`
	EndLine   int    `json:"end_line" msgpack:"end_line"`
	EndCol    int    `json:"end_col" msgpack:"end_col"`
}

// IsZero reports whether l carries no source information.
func (l Location) IsZero() bool {
	return l == Location{}
}

// String renders the location as (file:startLine:startCol:endLine:endCol).
func (l Location) String() string {
	if l.IsZero() {
		return PlaceholderLocation
	}
	return fmt.Sprintf("(%s:%d:%d:%d:%d)", l.File, l.StartLine, l.StartCol, l.EndLine, l.EndCol)
}

// Key groups related events. Analyses choose Category; ID is normally the site's EventID.
type Key struct {
	Analysis string  `json:"analysis" msgpack:"analysis"`
	Category string  `json:"category,omitempty" msgpack:"category,omitempty"`
	ID       EventID `json:"id" msgpack:"id"`
}

// Compare orders keys by analysis, category, then id.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.Analysis, o.Analysis); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Category, o.Category); c != 0 {
		return c
	}
	return cmp.Compare(k.ID, o.ID)
}

// String renders the key as analysis/category/id.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Analysis, k.Category, k.ID)
}

// Record is the aggregate kept per key for the duration of a run.
type Record struct {
	Key   Key    `json:"key" msgpack:"key"`
	Count int64  `json:"count" msgpack:"count"`
	Aux   []byte `json:"aux,omitempty" msgpack:"aux,omitempty"`
}

// Finding is a reported result derived from an aggregate record at end of run.
type Finding struct {
	// Analysis is the name of the analysis that produced the finding.
	Analysis string `json:"analysis" msgpack:"analysis"`
	// ID is the code site the finding points at.
	ID EventID `json:"id" msgpack:"id"`
	// Key is the classification key the count was aggregated under.
	Key Key `json:"key" msgpack:"key"`
	// Location is the resolved source range; zero when unresolvable.
	Location Location `json:"location" msgpack:"location"`
	// LocationText is Location rendered for display ("whole-site" for dumps).
	LocationText string `json:"location_text" msgpack:"location_text"`
	// Message is the human-readable description.
	Message string `json:"message" msgpack:"message"`
	// Count is the number of accepted events behind the finding.
	Count int64 `json:"count" msgpack:"count"`
	// Rank is the 1-indexed position in the report.
	Rank int `json:"rank" msgpack:"rank"`
}

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

// RunStatus tracks one analysed execution.
type RunStatus struct {
	RunID          string
	Source         string
	Status         string // pending, running, completed, aborted
	EventsAccepted int64
	EventsDropped  int64
	FindingsCount  int
}
