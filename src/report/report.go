// Package report turns a snapshot of aggregate records into findings.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"hookstat/src/contracts"
	"hookstat/src/location"
	"hookstat/src/logger"
	"hookstat/src/ranking"
)

// Mode selects how an analysis is reported.
type Mode string

const (
	// ModeRanked filters, sorts and limits records into findings.
	ModeRanked Mode = "ranked"
	// ModeDump serializes the whole table as one summary finding.
	ModeDump Mode = "dump"
)

// ParseMode converts a config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "ranked":
		return ModeRanked, nil
	case "dump":
		return ModeDump, nil
	default:
		return "", fmt.Errorf("invalid report mode: %q (expected: ranked|dump)", s)
	}
}

// WholeSite is the location text of dump-mode summary findings.
const WholeSite = "whole-site"

// MessageTemplate renders the message of a finding.
type MessageTemplate func(count int64, location string) string

// DefaultMessage is used when an analysis supplies no template.
func DefaultMessage(count int64, location string) string {
	return fmt.Sprintf("%d occurrence(s) at %s", count, location)
}

// Config is the reporting configuration of one analysis.
type Config struct {
	Threshold int64
	Limit     int
	Mode      Mode
	Message   MessageTemplate
	// Headline optionally renders a one-line run summary, e.g. for console output.
	Headline func(Summary) string
}

// Diagnostic kinds.
const (
	DiagUnknownLocation = "unknown_location"
	DiagLateEvent       = "late_event"
	DiagClassifierError = "classifier_error"
	DiagInvalidEvent    = "invalid_event"
	DiagBatchGap        = "batch_gap"
	DiagDuplicateBatch  = "duplicate_batch"
	DiagAbort           = "abort"
)

// Diagnostic is a non-fatal problem observed during a run.
type Diagnostic struct {
	Kind     string            `json:"kind"`
	Analysis string            `json:"analysis,omitempty"`
	IID      contracts.EventID `json:"iid,omitempty"`
	Message  string            `json:"message"`
}

// Summary counts what happened to the records of one analysis.
type Summary struct {
	Records    int   `json:"records"`
	Events     int64 `json:"events"`
	Reported   int   `json:"reported"`
	Suppressed int   `json:"suppressed"`
	Truncated  int   `json:"truncated"`
}

// Coverage is the dump-mode table: file -> site -> count.
type Coverage map[string]map[contracts.EventID]int64

// Report is the end-of-run output of one analysis.
type Report struct {
	Analysis    string              `json:"analysis"`
	Mode        Mode                `json:"mode"`
	Headline    string              `json:"headline,omitempty"`
	Findings    []contracts.Finding `json:"findings"`
	Coverage    Coverage            `json:"coverage,omitempty"`
	Summary     Summary             `json:"summary"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
}

// Builder builds reports. The zero value resolves nothing and logs nothing.
type Builder struct {
	Resolver location.Resolver
	Logger   logger.Logger
}

// Build produces the report of one analysis from a store snapshot.
func (b Builder) Build(analysis string, records []contracts.Record, cfg Config) (Report, error) {
	var rep Report
	if cfg.Mode == ModeDump {
		var err error
		if rep, err = b.buildDump(analysis, records); err != nil {
			return Report{}, err
		}
	} else {
		rep = b.buildRanked(analysis, records, cfg)
	}

	if cfg.Headline != nil {
		rep.Headline = cfg.Headline(rep.Summary)
	}
	return rep, nil
}

func (b Builder) buildRanked(analysis string, records []contracts.Record, cfg Config) Report {
	message := cfg.Message
	if message == nil {
		message = DefaultMessage
	}

	ranked := ranking.Rank(records, ranking.Options{Threshold: cfg.Threshold, Limit: cfg.Limit})
	rep := Report{
		Analysis: analysis,
		Mode:     ModeRanked,
		Findings: make([]contracts.Finding, 0, len(ranked.Reported)),
	}

	for _, r := range ranked.Reported {
		loc, diag := b.resolve(analysis, r.Record.Key.ID)
		if diag != nil {
			rep.Diagnostics = append(rep.Diagnostics, *diag)
		}
		text := loc.String()
		rep.Findings = append(rep.Findings, contracts.Finding{
			Analysis:     analysis,
			ID:           r.Record.Key.ID,
			Key:          r.Record.Key,
			Location:     loc,
			LocationText: text,
			Message:      message(r.Record.Count, text),
			Count:        r.Record.Count,
			Rank:         r.Rank,
		})
	}

	reported, suppressed, truncated := ranked.Counts()
	rep.Summary = Summary{
		Records:    len(records),
		Events:     sumCounts(records),
		Reported:   reported,
		Suppressed: suppressed,
		Truncated:  truncated,
	}
	return rep
}

func (b Builder) buildDump(analysis string, records []contracts.Record) (Report, error) {
	rep := Report{
		Analysis: analysis,
		Mode:     ModeDump,
		Coverage: Coverage{},
	}

	for _, rec := range records {
		loc, diag := b.resolve(analysis, rec.Key.ID)
		if diag != nil {
			rep.Diagnostics = append(rep.Diagnostics, *diag)
		}
		file := loc.File
		if loc.IsZero() {
			file = contracts.PlaceholderLocation
		}
		if rep.Coverage[file] == nil {
			rep.Coverage[file] = make(map[contracts.EventID]int64)
		}
		rep.Coverage[file][rec.Key.ID] += rec.Count
	}

	data, err := json.Marshal(rep.Coverage)
	if err != nil {
		return Report{}, fmt.Errorf("failed to encode coverage for %s: %w", analysis, err)
	}
	rep.Findings = []contracts.Finding{{
		Analysis:     analysis,
		ID:           0,
		Key:          contracts.Key{Analysis: analysis},
		LocationText: WholeSite,
		Message:      string(data),
		Count:        1,
		Rank:         1,
	}}
	rep.Summary = Summary{
		Records:  len(records),
		Events:   sumCounts(records),
		Reported: 1,
	}
	return rep, nil
}

// resolve looks up a location, falling back to the placeholder with a diagnostic.
func (b Builder) resolve(analysis string, id contracts.EventID) (contracts.Location, *Diagnostic) {
	if b.Resolver == nil {
		return contracts.Location{}, &Diagnostic{
			Kind:     DiagUnknownLocation,
			Analysis: analysis,
			IID:      id,
			Message:  "no location table loaded",
		}
	}

	loc, err := b.Resolver.Resolve(id)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, location.ErrUnknownLocation) {
		b.logError("[ReportBuilder] Resolver failed for iid=%d: %v", id, err)
	} else {
		b.logDebug("[ReportBuilder] No location for iid=%d", id)
	}
	return contracts.Location{}, &Diagnostic{
		Kind:     DiagUnknownLocation,
		Analysis: analysis,
		IID:      id,
		Message:  err.Error(),
	}
}

func (b Builder) logError(msg string, args ...interface{}) {
	if b.Logger != nil {
		b.Logger.Error(msg, args...)
	}
}

func (b Builder) logDebug(msg string, args ...interface{}) {
	if b.Logger != nil {
		b.Logger.Debug(msg, args...)
	}
}

func sumCounts(records []contracts.Record) int64 {
	var total int64
	for _, r := range records {
		if total > math.MaxInt64-r.Count {
			return math.MaxInt64
		}
		total += r.Count
	}
	return total
}
