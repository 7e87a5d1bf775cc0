package docgen

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RenderCLIMarkdown writes a CLI reference for every visible command under
// root, depth first. Each command gets an H2 section with its help text,
// synopsis, aliases, examples, local flags and subcommands.
func RenderCLIMarkdown(w io.Writer, root *cobra.Command) error {
	m := &mdWriter{w: w}
	m.printf("# CLI Reference\n\n%s", generatedNote)
	if rows := flagRows(root.PersistentFlags()); len(rows) > 0 {
		m.printf("## Global Flags\n\n")
		m.table(flagHeader, rows)
	}
	visit(root, func(c *cobra.Command) { writeCommand(m, c) })
	return m.err
}

// WriteCLIMarkdown renders the CLI reference to path atomically.
func WriteCLIMarkdown(path string, root *cobra.Command) error {
	return writeAtomic(path, ".gendoc-cli-*", func(w io.Writer) error {
		return RenderCLIMarkdown(w, root)
	})
}

// visit calls fn on cmd and its visible descendants in tree order.
func visit(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, c := range visibleChildren(cmd) {
		visit(c, fn)
	}
}

func visibleChildren(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

func writeCommand(m *mdWriter, cmd *cobra.Command) {
	m.printf("## %s\n\n", cmd.CommandPath())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	m.para(desc)
	m.printf("```\n%s\n```\n\n", cmd.UseLine())

	if len(cmd.Aliases) > 0 {
		names := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			names[i] = code(a)
		}
		m.printf("**Aliases:** %s\n\n", strings.Join(names, ", "))
	}
	if ex := strings.TrimSpace(cmd.Example); ex != "" {
		m.printf("**Example:**\n\n```\n%s\n```\n\n", ex)
	}

	m.table(flagHeader, flagRows(cmd.LocalNonPersistentFlags()))

	var subs [][]string
	for _, c := range visibleChildren(cmd) {
		anchor := strings.ToLower(strings.ReplaceAll(c.CommandPath(), " ", "-"))
		subs = append(subs, []string{"[" + c.CommandPath() + "](#" + anchor + ")", c.Short})
	}
	m.table([]string{"Subcommand", "Description"}, subs)
}

var flagHeader = []string{"Flag", "Type", "Default", "Description"}

// flagRows returns one table row per visible flag in fs.
func flagRows(fs *pflag.FlagSet) [][]string {
	var rows [][]string
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := code("--" + f.Name)
		if f.Shorthand != "" {
			name = code("-"+f.Shorthand) + ", " + name
		}
		typ := f.Value.Type()
		dflt := ""
		if !isZeroDefault(f.DefValue, typ) {
			dflt = code(f.DefValue)
		}
		rows = append(rows, []string{name, typ, dflt, cell(f.Usage)})
	})
	return rows
}

// isZeroDefault reports whether val is the printed zero value of a pflag
// type, so the Default column can stay empty.
func isZeroDefault(val, typ string) bool {
	switch typ {
	case "bool":
		return val == "false"
	case "int", "int32", "int64", "uint", "uint32", "uint64", "float32", "float64":
		return val == "0"
	case "stringSlice", "stringArray":
		return val == "[]"
	case "duration":
		return val == "0s"
	}
	return val == ""
}
