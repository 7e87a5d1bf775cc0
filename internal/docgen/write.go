package docgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// generatedNote heads every generated document.
const generatedNote = "> **Auto-generated** — do not edit. Run `syscheck gen-doc` to regenerate.\n\n"

// mdWriter writes markdown and keeps the first write error. Later writes
// are no-ops once an error is stored.
type mdWriter struct {
	w   io.Writer
	err error
}

func (m *mdWriter) printf(format string, args ...any) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, format, args...)
}

// para writes text followed by a blank line. Empty text writes nothing.
func (m *mdWriter) para(text string) {
	if text = strings.TrimSpace(text); text != "" {
		m.printf("%s\n\n", text)
	}
}

// table writes a markdown table. Cells are written as given.
func (m *mdWriter) table(header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	m.printf("| %s |\n", strings.Join(header, " | "))
	rules := make([]string, len(header))
	for i, h := range header {
		rules[i] = strings.Repeat("-", len(h)+2)
	}
	m.printf("|%s|\n", strings.Join(rules, "|"))
	for _, r := range rows {
		m.printf("| %s |\n", strings.Join(r, " | "))
	}
	m.printf("\n")
}

// cell makes s safe for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// code wraps s in backticks.
func code(s string) string { return "`" + s + "`" }

// writeAtomic renders into a temp file next to path and renames it into
// place. The temp file is removed on any failure.
func writeAtomic(path, pattern string, render func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := render(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
