package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hookstat/src/config"
	"hookstat/src/store"
)

const testTrace = `{"kind":"getField","iid":10,"field":{"base":{"type":"array","length":2,"own_keys":["0","1","length"]},"offset":{"type":"number","number":5},"val":{"type":"undefined"}}}
{"kind":"getField","iid":10,"field":{"base":{"type":"array","length":2,"own_keys":["0","1","length"]},"offset":{"type":"number","number":7},"val":{"type":"undefined"}}}
{"kind":"putField","iid":20,"field":{"base":{"type":"object","ref":"Object.prototype"},"offset":{"type":"string","str":"polluted"},"val":{"type":"boolean","bool":true}}}
{"kind":"endExecution","iid":0}
`

const testLocations = `[
  {"id": 10, "file": "app.js", "start_line": 3, "start_col": 5, "end_line": 3, "end_col": 11},
  {"id": 20, "file": "lib.js", "start_line": 1, "start_col": 1, "end_line": 1, "end_col": 30}
]`

// execute runs the root command in a clean working directory and environment.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvBrokers, "")
	t.Setenv(config.EnvPostgresDSN, "")
	t.Setenv(config.EnvRunID, "")

	runFlags, consumeFlags = reportFlags{}, reportFlags{}
	runTrace, runRunID, runPersist = "", "", false
	publishTrace, publishRunID, consumeRunID = "", "", ""
	viewReport, viewRunID, statusRunID = "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteVersion(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(out, "hookstat "+version) {
		t.Errorf("version output = %q", out)
	}
}

func TestExecuteAnalyses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hookstat.yaml", "analyses:\n  ExeStat:\n    enabled: false\n")
	t.Chdir(dir)

	out, err := execute(t, "analyses")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	for _, want := range []string{"AddEnumerablePropertyToObject", "AccessUndefArrayElem", "ExeStat"} {
		if !strings.Contains(out, want) {
			t.Errorf("analyses output missing %s:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "ExeStat") && !strings.Contains(line, "no") {
			t.Errorf("ExeStat should be listed as disabled: %q", line)
		}
	}
}

func TestExecuteRunText(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	trace := writeFile(t, dir, "trace.ndjson", testTrace)
	locs := writeFile(t, dir, "sites.json", testLocations)

	out, err := execute(t, "run", "--trace", trace, "--locations", locs, "--analysis", "AccessUndefArrayElem")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(out, "Access of undefined array element") {
		t.Errorf("text report missing finding:\n%s", out)
	}
	if strings.Contains(out, "Object.prototype") {
		t.Errorf("text report contains an analysis that was not selected:\n%s", out)
	}
}

func TestExecuteRunJSONThenLoad(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	trace := writeFile(t, dir, "trace.ndjson", testTrace)
	locs := writeFile(t, dir, "sites.json", testLocations)
	reportPath := filepath.Join(dir, "report.json")

	if _, err := execute(t, "run", "--trace", trace, "--locations", locs, "--format", "json", "-o", reportPath, "--run-id", "run-cli"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	runID, findings, err := loadReportFile(reportPath)
	if err != nil {
		t.Fatalf("loadReportFile() error = %v", err)
	}
	if runID != "run-cli" {
		t.Errorf("run id = %q, want run-cli", runID)
	}

	var undef, enum int
	for _, f := range findings {
		switch f.Analysis {
		case "AccessUndefArrayElem":
			undef++
			if f.Count != 2 || f.LocationText != "(app.js:3:5:3:11)" {
				t.Errorf("AccessUndefArrayElem finding = %+v", f)
			}
		case "AddEnumerablePropertyToObject":
			enum++
		}
	}
	if undef != 1 || enum != 1 {
		t.Errorf("findings = %+v, want one per analysis", findings)
	}
}

func TestExecuteErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	tests := []struct {
		name     string
		args     []string
		wantUser bool
		wantText string
	}{
		{"missing trace file", []string{"run", "--trace", filepath.Join(dir, "missing.ndjson")}, true, "file not found"},
		{"bad format", []string{"run", "--trace", "-", "--format", "html"}, true, "Invalid output format"},
		{"unknown analysis", []string{"run", "--trace", writeFile(t, dir, "t.ndjson", testTrace), "--analysis", "Nope"}, false, "Nope"},
		{"consume without broker", []string{"consume", "--run-id", "run-1"}, true, "needs a broker"},
		{"publish without broker", []string{"publish", "--trace", "t.ndjson", "--run-id", "run-1"}, true, "needs a broker"},
		{"status of unknown run", []string{"status", "run-404"}, true, "run not found"},
		{"view without source", []string{"view"}, true, "Nothing to view"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("Execute() expected error, got nil")
			}
			var ue *UserError
			if got := errors.As(err, &ue); got != tt.wantUser {
				t.Errorf("UserError = %v, want %v (%v)", got, tt.wantUser, err)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantText)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantUser bool
		wantHint string
	}{
		{"nil", nil, false, ""},
		{"not exist", fmt.Errorf("failed to open trace: %w", os.ErrNotExist), true, "--trace"},
		{"store not found", store.ErrNotFound{RunID: "r"}, true, config.EnvPostgresDSN},
		{"other", errors.New("boom"), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError("op", tt.err)
			if tt.err == nil {
				if err != nil {
					t.Errorf("wrapError(nil) = %v, want nil", err)
				}
				return
			}
			var ue *UserError
			if got := errors.As(err, &ue); got != tt.wantUser {
				t.Fatalf("wrapError() UserError = %v, want %v", got, tt.wantUser)
			}
			if tt.wantUser && !strings.Contains(ue.Hint, tt.wantHint) {
				t.Errorf("hint = %q, want it to mention %q", ue.Hint, tt.wantHint)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("wrapError() does not wrap the cause")
			}
		})
	}
}

func TestUserErrorMessage(t *testing.T) {
	err := &UserError{Message: "Nothing to view", Hint: "Pass --report", Err: errors.New("cause")}
	want := "Nothing to view\n\nHint: Pass --report\n\nDetails: cause"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
