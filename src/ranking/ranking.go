// Package ranking orders aggregate records for reporting.
// The report builder, the TUI and the MCP server all rank through this package
// so the same run always produces the same order.
package ranking

import (
	"sort"

	"hookstat/src/contracts"
)

// Options control which records are reported.
type Options struct {
	// Threshold drops records whose count is less than or equal to it.
	Threshold int64
	// Limit caps the number of reported records. Zero or negative means unbounded.
	Limit int
}

// RankedRecord wraps a record with its 1-indexed position in the report.
type RankedRecord struct {
	Record contracts.Record
	Rank   int
}

// Ranking splits the input into what is reported and what was left out.
type Ranking struct {
	Reported   []RankedRecord     // above threshold, within limit, in report order
	Suppressed []contracts.Record // count <= threshold
	Truncated  []contracts.Record // above threshold but past the limit, in report order
}

// Rank filters, sorts and limits records. The input slice is not modified.
// Filtering happens before truncation, so a limit never makes room for
// records under the threshold.
func Rank(records []contracts.Record, opts Options) Ranking {
	if len(records) == 0 {
		return Ranking{Reported: []RankedRecord{}}
	}

	kept := make([]contracts.Record, 0, len(records))
	var suppressed []contracts.Record
	for _, rec := range records {
		if rec.Count <= opts.Threshold {
			suppressed = append(suppressed, rec)
			continue
		}
		kept = append(kept, rec)
	}

	// Sort by count descending, then key ascending
	sort.Slice(kept, func(i, j int) bool {
		return Less(kept[i], kept[j])
	})

	var truncated []contracts.Record
	if opts.Limit > 0 && len(kept) > opts.Limit {
		truncated = kept[opts.Limit:]
		kept = kept[:opts.Limit]
	}

	reported := make([]RankedRecord, len(kept))
	for i, rec := range kept {
		reported[i] = RankedRecord{Record: rec, Rank: i + 1}
	}

	return Ranking{
		Reported:   reported,
		Suppressed: suppressed,
		Truncated:  truncated,
	}
}

// Less reports whether a ranks before b: higher count first, ties broken by key order.
// Keys are unique within one store, so the order is total.
func Less(a, b contracts.Record) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Key.Compare(b.Key) < 0
}

// Counts returns how many records were reported, suppressed and truncated.
func (r Ranking) Counts() (reported, suppressed, truncated int) {
	return len(r.Reported), len(r.Suppressed), len(r.Truncated)
}

// SortFindings orders findings the same way records are ranked and renumbers them.
// Used by hosts that merge findings from several sources.
func SortFindings(findings []contracts.Finding) []contracts.Finding {
	sorted := make([]contracts.Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		if c := sorted[i].Key.Compare(sorted[j].Key); c != 0 {
			return c < 0
		}
		return sorted[i].LocationText < sorted[j].LocationText
	})
	for i := range sorted {
		sorted[i].Rank = i + 1
	}
	return sorted
}
