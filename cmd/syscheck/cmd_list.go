package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/magerun-tools/syscheck/internal/doctor"
)

func newListCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the check groups and checks in run order",
		Long: `List the check groups and checks in the order "syscheck check" runs
them, after applying checks.order and checks.skip from the config file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if doList(stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
}

// doList prints the effective groups. Outside an installation the
// defaults (or an explicit --config) are used.
func doList(stdout, stderr io.Writer) int {
	var rootPath string
	if root, err := resolveRoot(); err == nil {
		rootPath = root.Path
	}
	cfg, _, err := loadConfig(rootPath)
	if err != nil {
		fmt.Fprintf(stderr, "syscheck list: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	groups, err := doctor.BuiltinGroups(cfg.Checks.Order, cfg.Checks.Skip)
	if err != nil {
		fmt.Fprintf(stderr, "syscheck list: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	return writeGroups(stdout, groups)
}

func writeGroups(stdout io.Writer, groups []doctor.Group) int {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCHECK\tTITLE") //nolint:errcheck // best-effort stdout
	for _, g := range groups {
		for _, c := range g.Checks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Name, c.Name(), g.Title) //nolint:errcheck // best-effort stdout
		}
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
