package dispatch

import (
	"maps"
	"sync"

	"hookstat/src/report"
)

// Counter names kept by Diagnostics.
const (
	CounterAccepted         = "events_accepted"
	CounterLateEvents       = "late_events"
	CounterInvalidEvents    = "invalid_events"
	CounterClassifierErrors = "classifier_errors"
	CounterUnknownLocations = "unknown_locations"
	CounterDuplicateBatches = "duplicate_batches"
	CounterBatchGaps        = "batch_gaps"
)

const defaultRecent = 256

// Diagnostics counts problems and keeps the most recent entries in a ring buffer.
type Diagnostics struct {
	mu       sync.Mutex
	counters map[string]int64
	recent   []report.Diagnostic
	head     int
	full     bool
}

func newDiagnostics(capacity int) *Diagnostics {
	if capacity <= 0 {
		capacity = defaultRecent
	}
	return &Diagnostics{
		counters: make(map[string]int64),
		recent:   make([]report.Diagnostic, capacity),
	}
}

func (d *Diagnostics) record(counter string, diag report.Diagnostic) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if counter != "" {
		d.counters[counter]++
	}
	d.recent[d.head] = diag
	d.head = (d.head + 1) % len(d.recent)
	if d.head == 0 {
		d.full = true
	}
}

// DiagnosticsSnapshot is a point-in-time copy of Diagnostics.
type DiagnosticsSnapshot struct {
	Counters map[string]int64    `json:"counters"`
	Recent   []report.Diagnostic `json:"recent"`
}

// Snapshot returns the counters and the recent entries in chronological order.
func (d *Diagnostics) Snapshot() DiagnosticsSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	var recent []report.Diagnostic
	if !d.full {
		recent = make([]report.Diagnostic, d.head)
		copy(recent, d.recent[:d.head])
	} else {
		recent = make([]report.Diagnostic, len(d.recent))
		copy(recent, d.recent[d.head:])
		copy(recent[len(d.recent)-d.head:], d.recent[:d.head])
	}

	return DiagnosticsSnapshot{
		Counters: maps.Clone(d.counters),
		Recent:   recent,
	}
}
