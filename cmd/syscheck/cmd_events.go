package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/magerun-tools/syscheck/internal/events"
)

func newEventsCmd(stdout, stderr io.Writer) *cobra.Command {
	var filter events.Filter
	var sinceFlag string
	cmd := &cobra.Command{
		Use:   "events <file>",
		Short: "Show a run event log written by check --events",
		Example: `  syscheck events /var/log/syscheck.jsonl
  syscheck events /var/log/syscheck.jsonl --type run.finished --since 24h`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if sinceFlag != "" {
				d, err := time.ParseDuration(sinceFlag)
				if err != nil {
					fmt.Fprintf(stderr, "syscheck events: invalid --since %q: %v\n", sinceFlag, err) //nolint:errcheck // best-effort stderr
					return errExit
				}
				filter.Since = time.Now().Add(-d)
			}
			if doEvents(args[0], filter, stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Type, "type", "", "filter by event type (e.g. check.finished)")
	cmd.Flags().StringVar(&filter.Run, "run", "", "filter by run ID")
	cmd.Flags().StringVar(&sinceFlag, "since", "", "show events since duration ago (e.g. 1h, 30m)")
	cmd.Flags().Uint64Var(&filter.AfterSeq, "after", 0, "show events after this sequence number")
	return cmd
}

// doEvents reads and displays events from the log file. Accepts the path
// directly for testability.
func doEvents(path string, filter events.Filter, stdout, stderr io.Writer) int {
	evts, err := events.ReadFiltered(path, filter)
	if err != nil {
		fmt.Fprintf(stderr, "syscheck events: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if len(evts) == 0 {
		fmt.Fprintln(stdout, "No events.") //nolint:errcheck // best-effort stdout
		return 0
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTYPE\tRUN\tSUBJECT\tFINDINGS\tFAILED\tMESSAGE\tTIME") //nolint:errcheck // best-effort stdout
	for _, e := range evts {
		subject := e.Root
		if e.Check != "" {
			subject = e.Group + "/" + e.Check
		}
		run := e.Run
		if len(run) > 8 {
			run = run[:8]
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n", //nolint:errcheck // best-effort stdout
			e.Seq, e.Type, run, subject, e.Findings, e.Failed, truncate(e.Message, 40),
			e.Ts.Format("2006-01-02 15:04:05"),
		)
	}
	tw.Flush() //nolint:errcheck // best-effort stdout
	return 0
}

// truncate shortens s to at most limit runes, marking a cut with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
