package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reloquent/schemair/internal/pipeline"
)

// FileName is the report written next to the artifacts.
const FileName = "run-report.json"

// RunReport is the outcome of one run.
type RunReport struct {
	Version     string                  `json:"version"`
	GeneratedAt time.Time               `json:"generated_at"`
	Dialect     string                  `json:"dialect"`
	Schema      string                  `json:"schema"`
	State       pipeline.RunState       `json:"state"`
	Duration    string                  `json:"duration"`
	Error       string                  `json:"error,omitempty"`
	Totals      Totals                  `json:"totals"`
	Tables      []pipeline.TableOutcome `json:"tables"`
	NextSteps   []string                `json:"next_steps,omitempty"`
}

// Totals counts table outcomes.
type Totals struct {
	Tables    int `json:"tables"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// GenerateReport creates a RunReport from a run summary. runErr is the
// error the run ended with, if any.
func GenerateReport(s *pipeline.Summary, runErr error) *RunReport {
	r := &RunReport{
		Version:     "1",
		GeneratedAt: s.FinishedAt,
		Dialect:     s.Dialect,
		Schema:      s.Schema,
		State:       s.State,
		Duration:    s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String(),
		Totals: Totals{
			Tables:    len(s.Tables),
			Succeeded: s.Succeeded(),
			Failed:    s.Failed(),
		},
		Tables: append([]pipeline.TableOutcome{}, s.Tables...),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}

	var failed []string
	for _, t := range s.Tables {
		if t.State == pipeline.TableFailed {
			failed = append(failed, t.Table)
		}
	}
	switch {
	case runErr != nil:
		r.NextSteps = append(r.NextSteps, "Check the source connection settings and catalog permissions")
	case len(failed) > 0:
		r.NextSteps = append(r.NextSteps, "Re-run the failed tables: schemair "+strings.Join(failed, " "))
	}
	return r
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &RunReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// FormatText renders the report as human-readable text.
func FormatText(report *RunReport) string {
	var b strings.Builder

	b.WriteString("=== schemair run report ===\n")
	fmt.Fprintf(&b, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Source:    %s (schema %s)\n", report.Dialect, report.Schema)
	fmt.Fprintf(&b, "State:     %s in %s\n", report.State, report.Duration)
	if report.Error != "" {
		fmt.Fprintf(&b, "Error:     %s\n", report.Error)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Tables: %d (%d succeeded, %d failed)\n",
		report.Totals.Tables, report.Totals.Succeeded, report.Totals.Failed)
	for _, t := range report.Tables {
		if t.State == pipeline.TableSuccess {
			fmt.Fprintf(&b, "  [OK]   %s (primary key: %s)\n", t.Table, t.PrimaryKey)
			continue
		}
		fmt.Fprintf(&b, "  [FAIL] %s at %s: %s\n", t.Table, t.FailedAt, t.Error)
	}

	if len(report.NextSteps) > 0 {
		b.WriteString("\nNext steps:\n")
		for i, s := range report.NextSteps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
		}
	}
	return b.String()
}
