// syscheck checks a Magento installation for common misconfiguration:
// missing or unwritable folders, missing PHP extensions, a web-exposed
// local.xml, an outdated MySQL server and bad store settings.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/magerun-tools/syscheck/internal/config"
	"github.com/magerun-tools/syscheck/internal/fsys"
	"github.com/magerun-tools/syscheck/internal/magento"
	"github.com/magerun-tools/syscheck/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is a sentinel error returned by cobra RunE functions to signal
// non-zero exit. The command has already written its own error to stderr.
var errExit = errors.New("exit")

// rootFlag holds the value of the --root persistent flag.
// Empty means "discover from cwd."
var rootFlag string

// configFlag holds the value of the --config persistent flag.
var configFlag string

// run executes the syscheck CLI with the given args, writing output to
// stdout and errors to stderr. Returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if telemetry.Enabled() {
		shutdown, err := telemetry.Init(context.Background(), version)
		if err != nil {
			fmt.Fprintf(stderr, "syscheck: telemetry: %v\n", err) //nolint:errcheck // best-effort stderr
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				fmt.Fprintf(stderr, "syscheck: telemetry shutdown: %v\n", err) //nolint:errcheck // best-effort stderr
			}
		}()
	}

	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "syscheck: %v\n", err) //nolint:errcheck // best-effort stderr
		}
		return 1
	}
	return 0
}

// newRootCmd creates the root cobra command with all subcommands.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "syscheck",
		Short:         "syscheck — diagnostic checks for Magento installations",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			fmt.Fprintf(stderr, "syscheck: unknown command %q\n", args[0]) //nolint:errcheck // best-effort stderr
			return errExit
		},
	}
	root.PersistentFlags().StringVar(&rootFlag, "root", "",
		"path to the Magento root (default: walk up from cwd)")
	root.PersistentFlags().StringVar(&configFlag, "config", "",
		"config file (default: $"+config.EnvConfig+", then <root>/"+config.FileName+")")
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newCheckCmd(stdout, stderr),
		newListCmd(stdout, stderr),
		newConfigCmd(stdout, stderr),
		newEventsCmd(stdout, stderr),
		newVersionCmd(stdout),
	)
	root.AddCommand(newGenDocCmd(stdout, stderr, root))
	return root
}

// resolveRoot returns the installation root. If --root was provided it is
// used as is, even when no Magento marker is found there. Otherwise the
// root is found by walking up from the working directory.
func resolveRoot() (magento.Root, error) {
	fs := fsys.OSFS{}
	if rootFlag != "" {
		p, err := filepath.Abs(rootFlag)
		if err != nil {
			return magento.Root{}, err
		}
		return magento.OpenRoot(fs, p)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return magento.Root{}, err
	}
	return magento.FindRoot(fs, cwd)
}

// loadConfig returns the effective configuration for root and the file it
// came from, "" for the built-in defaults.
func loadConfig(root string) (*config.Config, string, error) {
	fs := fsys.OSFS{}
	path := config.Resolve(fs, configFlag, os.Getenv(config.EnvConfig), root)
	if path == "" {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(fs, path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
