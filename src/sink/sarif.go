package sink

import (
	"encoding/json"
	"fmt"

	"hookstat/src/report"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// sarifReport is the top-level SARIF v2.1.0 structure.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifDefaultLevel `json:"defaultConfiguration"`
}

type sarifDefaultLevel struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string         `json:"ruleId"`
	Level     string         `json:"level"`
	Message   sarifMessage   `json:"message"`
	Locations []sarifLoc     `json:"locations,omitempty"`
	Props     map[string]any `json:"properties,omitempty"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// writeSARIF writes one SARIF run with a rule per analysis.
// Dump-mode reports have no per-site results and only contribute their rule.
func (w *Writer) writeSARIF(reports []report.Report) error {
	rules := make([]sarifRule, 0, len(reports))
	results := []sarifResult{}

	for _, rep := range reports {
		rules = append(rules, sarifRule{
			ID:               rep.Analysis,
			ShortDescription: sarifMessage{Text: rep.Analysis},
			DefaultConfig:    sarifDefaultLevel{Level: sarifLevel(rep.Mode)},
		})
		if rep.Mode == report.ModeDump {
			continue
		}

		for _, f := range rep.Findings {
			res := sarifResult{
				RuleID:  rep.Analysis,
				Level:   sarifLevel(rep.Mode),
				Message: sarifMessage{Text: f.Message},
				Props: map[string]any{
					"count": f.Count,
					"rank":  f.Rank,
					"iid":   f.ID,
				},
			}
			if !f.Location.IsZero() {
				res.Locations = []sarifLoc{{
					PhysicalLocation: sarifPhysical{
						ArtifactLocation: sarifArtifact{URI: f.Location.File},
						Region: &sarifRegion{
							StartLine:   f.Location.StartLine,
							StartColumn: f.Location.StartCol,
							EndLine:     f.Location.EndLine,
							EndColumn:   f.Location.EndCol,
						},
					},
				}}
			}
			results = append(results, res)
		}
	}

	out := sarifReport{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    w.tool(),
						Version: w.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode SARIF report: %w", err)
	}
	return nil
}

func sarifLevel(m report.Mode) string {
	if m == report.ModeDump {
		return "note"
	}
	return "warning"
}
