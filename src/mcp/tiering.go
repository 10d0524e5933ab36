package mcp

import (
	"sort"

	"hookstat/src/contracts"
	"hookstat/src/dispatch"
	"hookstat/src/ingest"
	"hookstat/src/report"
)

// DefaultLimit is the number of findings expanded per analysis.
const DefaultLimit = 15

// ToManifest condenses the reports of a run. The first limit findings of each
// ranked analysis are expanded; the rest are only counted. Dump-mode coverage
// is summarized per file.
func ToManifest(runID, trace string, reports []report.Report, diag dispatch.DiagnosticsSnapshot, limit int) Manifest {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rs := ingest.RunStatus(runID, trace, "", diag, reports)
	m := Manifest{
		RunID:          runID,
		Trace:          trace,
		EventsAccepted: rs.EventsAccepted,
		EventsDropped:  rs.EventsDropped,
		PathPrefix:     commonDirPrefix(reportFiles(reports)),
		Analyses:       make([]AnalysisManifest, 0, len(reports)),
	}

	for _, rep := range reports {
		am := AnalysisManifest{
			Name:        rep.Analysis,
			Mode:        rep.Mode,
			Headline:    rep.Headline,
			Summary:     rep.Summary,
			Diagnostics: countDiagnostics(rep.Diagnostics),
		}
		if rep.Mode == report.ModeDump {
			am.Files, am.Omitted = fileCoverage(rep.Coverage, limit)
		} else {
			am.Findings, am.Omitted = topFindings(rep.Findings, m.PathPrefix, limit)
		}
		m.Analyses = append(m.Analyses, am)
	}
	return m
}

// topFindings compacts the first limit findings and counts the rest.
func topFindings(findings []contracts.Finding, prefix string, limit int) ([]FindingItem, *Omitted) {
	n := min(limit, len(findings))
	items := make([]FindingItem, 0, n)
	for _, f := range findings[:n] {
		items = append(items, FindingItem{
			Rank:     f.Rank,
			Site:     f.ID,
			Location: compactLocation(f.LocationText, prefix),
			Message:  compactMessage(f.Message, prefix),
			Count:    f.Count,
		})
	}

	if len(findings) <= n {
		return items, nil
	}
	omitted := &Omitted{Findings: len(findings) - n}
	for _, f := range findings[n:] {
		omitted.Events += f.Count
	}
	return items, omitted
}

// fileCoverage totals a coverage table per file, busiest files first.
func fileCoverage(cov report.Coverage, limit int) ([]FileCoverage, *Omitted) {
	files := make([]FileCoverage, 0, len(cov))
	for file, sites := range cov {
		fc := FileCoverage{File: file, Sites: len(sites)}
		for _, count := range sites {
			fc.Events += count
		}
		files = append(files, fc)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Events != files[j].Events {
			return files[i].Events > files[j].Events
		}
		return files[i].File < files[j].File
	})

	if len(files) <= limit {
		return files, nil
	}
	omitted := &Omitted{Files: len(files) - limit}
	for _, fc := range files[limit:] {
		omitted.Events += fc.Events
	}
	return files[:limit], omitted
}

// countDiagnostics counts diagnostics per kind.
func countDiagnostics(diags []report.Diagnostic) map[string]int {
	if len(diags) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}

// reportFiles lists the known source files referenced by the reports.
func reportFiles(reports []report.Report) []string {
	seen := make(map[string]bool)
	var files []string
	add := func(file string) {
		if file == "" || file == contracts.PlaceholderLocation || seen[file] {
			return
		}
		seen[file] = true
		files = append(files, file)
	}

	for _, rep := range reports {
		for _, f := range rep.Findings {
			if !f.Location.IsZero() {
				add(f.Location.File)
			}
		}
		for file := range rep.Coverage {
			add(file)
		}
	}
	sort.Strings(files)
	return files
}
