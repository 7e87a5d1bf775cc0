package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/magerun-tools/syscheck/internal/config"
	"github.com/magerun-tools/syscheck/internal/docgen"
)

// newGenDocCmd creates the "syscheck gen-doc" subcommand. It writes the
// config JSON Schema, the config reference and the CLI reference (walking
// the real command tree) below --dir.
func newGenDocCmd(stdout, stderr io.Writer, root *cobra.Command) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "gen-doc",
		Short: "Generate the config schema and reference documentation",
		Long: `Generate the config schema and reference documentation.

Writes <dir>/schema/syscheck-schema.json, <dir>/reference/config.md and
<dir>/reference/cli.md. Run from the repository root to include field
descriptions taken from the Go sources.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if doGenDoc(dir, root, stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "docs", "output directory")
	return cmd
}

func doGenDoc(dir string, root *cobra.Command, stdout, stderr io.Writer) int {
	schemaDir := filepath.Join(dir, "schema")
	refDir := filepath.Join(dir, "reference")
	for _, d := range []string{schemaDir, refDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fmt.Fprintf(stderr, "syscheck gen-doc: creating %s: %v\n", d, err) //nolint:errcheck // best-effort stderr
			return 1
		}
	}

	s, err := docgen.GenerateConfigSchema()
	if err != nil {
		fmt.Fprintf(stderr, "syscheck gen-doc: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	defaults, err := config.Default().Marshal()
	if err != nil {
		fmt.Fprintf(stderr, "syscheck gen-doc: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}

	schemaPath := filepath.Join(schemaDir, "syscheck-schema.json")
	configPath := filepath.Join(refDir, "config.md")
	cliPath := filepath.Join(refDir, "cli.md")
	steps := []struct {
		path  string
		write func() error
	}{
		{schemaPath, func() error { return docgen.WriteSchema(schemaPath, s) }},
		{configPath, func() error { return docgen.WriteMarkdown(configPath, s, defaults) }},
		{cliPath, func() error { return docgen.WriteCLIMarkdown(cliPath, root) }},
	}
	for _, st := range steps {
		if err := st.write(); err != nil {
			fmt.Fprintf(stderr, "syscheck gen-doc: %v\n", err) //nolint:errcheck // best-effort stderr
			return 1
		}
	}

	fmt.Fprintln(stdout, "Generated:") //nolint:errcheck // best-effort stdout
	for _, st := range steps {
		fmt.Fprintf(stdout, "  %s\n", st.path) //nolint:errcheck // best-effort stdout
	}
	return 0
}
