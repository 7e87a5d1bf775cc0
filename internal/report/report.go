// Package report renders a doctor.Report for people (text), for tools
// (JSON), and for node_exporter's textfile collector (Prometheus).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/magerun-tools/syscheck/internal/doctor"
)

// Icon returns the status glyph for a severity.
func Icon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityOK:
		return "✓"
	case doctor.SeverityWarning:
		return "⚠"
	}
	return "✗"
}

// Text writes one "Check: <Title>" section per group with a line per
// finding. With verbose set, each line also names the check that
// produced it.
func Text(w io.Writer, r *doctor.Report, verbose bool) {
	byGroup := make(map[string][]doctor.Finding, len(r.Sections))
	for _, f := range r.Findings {
		byGroup[f.Group] = append(byGroup[f.Group], f)
	}
	for i, sec := range r.Sections {
		if i > 0 {
			fmt.Fprintln(w) //nolint:errcheck // best-effort output
		}
		fmt.Fprintf(w, "Check: %s\n", sec.Title) //nolint:errcheck // best-effort output
		findings := byGroup[sec.Name]
		if len(findings) == 0 {
			fmt.Fprintln(w, "  (nothing to check)") //nolint:errcheck // best-effort output
		}
		for _, f := range findings {
			printFinding(w, f, verbose)
		}
	}
}

func printFinding(w io.Writer, f doctor.Finding, verbose bool) {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(Icon(f.Severity))
	b.WriteString(" ")
	if f.Scope != "" {
		fmt.Fprintf(&b, "[store %s] ", f.Scope)
	}
	b.WriteString(f.Subject)
	b.WriteString(" — ")
	b.WriteString(f.Detail)
	if verbose {
		fmt.Fprintf(&b, " (%s)", f.Check)
	}
	fmt.Fprintln(w, b.String()) //nolint:errcheck // best-effort output
}

// PrintSummary writes the final summary line to w, led by the icon of the
// worst severity in the report.
func PrintSummary(w io.Writer, r *doctor.Report) {
	var parts []string
	if n := r.Passed(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", n))
	}
	if n := r.Warned(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", n))
	}
	if n := r.Failed(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if len(parts) == 0 {
		fmt.Fprintln(w, "\nNo checks ran.") //nolint:errcheck // best-effort output
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", Icon(r.Worst()), strings.Join(parts, ", ")) //nolint:errcheck // best-effort output
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *doctor.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
