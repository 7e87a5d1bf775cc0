package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/magerun-tools/syscheck/internal/config"
	"github.com/magerun-tools/syscheck/internal/doctor"
	"github.com/magerun-tools/syscheck/internal/events"
	"github.com/magerun-tools/syscheck/internal/fsys"
	"github.com/magerun-tools/syscheck/internal/httpprobe"
	"github.com/magerun-tools/syscheck/internal/magento"
	"github.com/magerun-tools/syscheck/internal/phpext"
	"github.com/magerun-tools/syscheck/internal/report"
)

// checkOptions holds the flags of "syscheck check".
type checkOptions struct {
	format      string
	verbose     bool
	parallel    bool
	timeout     time.Duration
	dbTimeout   time.Duration
	insecure    bool
	only        []string
	skip        []string
	metricsFile string
	eventsPath  string
	php         string
	db          dbFlags
}

// dbFlags override the credentials read from local.xml.
type dbFlags struct {
	host, port, user, password, name, prefix, dsn string
	// prefixSet is true when --db-prefix was given, even as "".
	prefixSet bool
}

func (f dbFlags) any() bool {
	return f.host != "" || f.port != "" || f.user != "" || f.password != "" || f.name != "" || f.dsn != ""
}

func newCheckCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:     "check",
		Aliases: []string{"sys:check"},
		Short:   "Check the Magento installation",
		Long: `Check a Magento installation for common problems.

Checks:
  - required folders exist and are writable (media, var, var/cache, var/session)
  - required files exist (app/etc/local.xml, index.php.sample)
  - required PHP extensions are loaded, plus one bytecode cache
  - app/etc/local.xml is not downloadable from any store's base URL
  - the MySQL server is recent enough and supports InnoDB
  - no store uses localhost in a base URL
  - every store's cookie domain matches its base URLs

The lists come from the config file when one is found; otherwise the
Magento 1 defaults are used. Exits 1 when any check reports an error.`,
		Example: `  syscheck check
  syscheck sys:check --root /var/www/shop -v
  syscheck check --format json --skip mysql-engines
  syscheck check --db-dsn 'user:pass@tcp(db:3306)/magento' --parallel`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.db.prefixSet = cmd.Flags().Changed("db-prefix")
			if doCheck(opts, stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show the check name on every line")
	f.BoolVar(&opts.parallel, "parallel", false, "run check groups concurrently")
	f.DurationVar(&opts.timeout, "timeout", 0, "timeout for each web exposure probe (default from config, 30s)")
	f.BoolVar(&opts.insecure, "insecure", false, "accept self-signed certificates when probing HTTPS base URLs")
	f.DurationVar(&opts.dbTimeout, "db-timeout", 0, "timeout for each database call (default from config, 10s)")
	f.StringSliceVar(&opts.only, "only", nil, "run only these groups")
	f.StringSliceVar(&opts.skip, "skip", nil, "leave out these checks")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write a Prometheus textfile with the results")
	f.StringVar(&opts.eventsPath, "events", "", "append run events to this JSONL file")
	f.StringVar(&opts.php, "php", "", "PHP binary used to list extensions (default from config, php)")
	f.StringVar(&opts.db.host, "db-host", "", "database host, host:port or socket path")
	f.StringVar(&opts.db.port, "db-port", "", "database port")
	f.StringVar(&opts.db.user, "db-user", "", "database user")
	f.StringVar(&opts.db.password, "db-password", "", "database password")
	f.StringVar(&opts.db.name, "db-name", "", "database name")
	f.StringVar(&opts.db.prefix, "db-prefix", "", "table prefix")
	f.StringVar(&opts.db.dsn, "db-dsn", "", "go-sql-driver DSN; replaces the other --db-* flags")
	return cmd
}

// stopSignals cancel a running check.
var stopSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// doCheck runs the checks and prints the report. Returns the exit code.
func doCheck(opts checkOptions, stdout, stderr io.Writer) int {
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "syscheck check: invalid --format %q (want text or json)\n", opts.format) //nolint:errcheck // best-effort stderr
		return 1
	}

	root, err := resolveRoot()
	if err != nil {
		fmt.Fprintf(stderr, "syscheck check: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	cfg, _, err := loadConfig(root.Path)
	if err != nil {
		fmt.Fprintf(stderr, "syscheck check: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	applyOverrides(cfg, opts)

	groups, err := selectGroups(cfg, opts.only, opts.skip)
	if err != nil {
		fmt.Fprintf(stderr, "syscheck check: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), stopSignals...)
	defer stop()

	db := openDB(root, cfg, opts.db)
	defer db.Close() //nolint:errcheck // read-only pool
	prober := newProber(cfg.Security)
	defer prober.CloseIdleConnections()

	cc := &doctor.CheckContext{
		RootPath:                root.Path,
		RequiredFolders:         requirements(cfg.Filesystem.Folders),
		RequiredFiles:           requirements(cfg.Filesystem.Files),
		RequiredExtensions:      cfg.PHP.RequiredExtensions,
		BytecodeCacheCandidates: cfg.PHP.BytecodeCacheExtensions,
		SecurityPath:            cfg.Security.Path,
		ProbeTimeout:            cfg.Security.Timeout,
		MinDBVersion:            cfg.Database.MinVersion,
		MajorVersion:            root.Major,
		FS:                      fsys.OSFS{},
		Sites:                   db,
		Config:                  db,
		SecurityProbe:           prober,
		DB:                      db,
	}
	if hasGroup(groups, doctor.GroupPHP) {
		// A load failure is kept in the registry and reported by the PHP checks.
		cc.Extensions, _ = phpext.Load(ctx, phpext.ExecCommandRunner(), cfg.PHP.Binary)
	} else {
		cc.Extensions = phpext.New()
	}

	d, err := doctor.New(cc, groups...)
	if err != nil {
		fmt.Fprintf(stderr, "syscheck check: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	d.Parallel = opts.parallel

	rec, closeRec := openRecorder(opts.eventsPath, stderr)
	defer closeRec()
	runID := uuid.NewString()
	var names []string
	for _, g := range d.Groups() {
		names = append(names, g.Name)
	}
	rec.Record(events.Event{Type: events.RunStarted, Run: runID, Root: root.Path, Message: strings.Join(names, ",")})
	d.Observer = func(group, check string, findings []doctor.Finding, elapsed time.Duration, err error) {
		e := events.Event{
			Type:       events.CheckFinished,
			Run:        runID,
			Group:      group,
			Check:      check,
			Findings:   len(findings),
			DurationMS: elapsed.Milliseconds(),
		}
		for _, f := range findings {
			if f.Severity == doctor.SeverityError {
				e.Failed++
			}
		}
		if err != nil {
			e.Message = err.Error()
		}
		rec.Record(e)
	}

	r := d.Run(ctx)
	finished := time.Now()

	msg := "ok"
	if !r.OK {
		msg = "failed"
	}
	rec.Record(events.Event{
		Type:     events.RunFinished,
		Run:      runID,
		Root:     root.Path,
		Findings: len(r.Findings),
		Failed:   r.Failed(),
		Message:  msg,
	})

	switch opts.format {
	case "json":
		if err := report.JSON(stdout, r); err != nil {
			fmt.Fprintf(stderr, "syscheck check: %v\n", err) //nolint:errcheck // best-effort stderr
			return 1
		}
	default:
		report.Text(stdout, r, opts.verbose)
		report.PrintSummary(stdout, r)
	}

	code := 0
	if opts.metricsFile != "" {
		if err := report.WriteTextfile(opts.metricsFile, r, finished); err != nil {
			fmt.Fprintf(stderr, "syscheck check: %v\n", err) //nolint:errcheck // best-effort stderr
			code = 1
		}
	}
	if !r.OK {
		code = 1
	}
	return code
}

// applyOverrides copies command-line settings over the loaded config.
func applyOverrides(cfg *config.Config, opts checkOptions) {
	if opts.timeout > 0 {
		cfg.Security.Timeout = opts.timeout
	}
	if opts.insecure {
		cfg.Security.InsecureSkipVerify = true
	}
	if opts.dbTimeout > 0 {
		cfg.Database.Timeout = opts.dbTimeout
	}
	if opts.php != "" {
		cfg.PHP.Binary = opts.php
	}
	if cfg.PHP.Binary == "" {
		cfg.PHP.Binary = phpext.DefaultBinary
	}
}

// selectGroups resolves the configured order and skip list, then keeps
// only the groups named in only. The environment group is always kept.
func selectGroups(cfg *config.Config, only, skip []string) ([]doctor.Group, error) {
	only = splitList(only)
	all := append(slices.Clone(cfg.Checks.Skip), splitList(skip)...)
	groups, err := doctor.BuiltinGroups(cfg.Checks.Order, all)
	if err != nil {
		return nil, err
	}
	if len(only) == 0 {
		return groups, nil
	}
	for _, name := range only {
		if !doctor.IsBuiltinGroup(name) {
			return nil, fmt.Errorf("unknown group %q in --only", name)
		}
	}
	var out []doctor.Group
	for _, g := range groups {
		if g.Name == doctor.GroupEnvironment || slices.Contains(only, g.Name) {
			out = append(out, g)
		}
	}
	return out, nil
}

// newProber builds the exposure prober from the security settings.
func newProber(sec config.Security) *httpprobe.Prober {
	p := httpprobe.New()
	if sec.Method != "" {
		p.Method = sec.Method
	}
	p.InsecureSkipVerify = sec.InsecureSkipVerify
	p.UserAgent = "syscheck/" + version
	return p
}

func hasGroup(groups []doctor.Group, name string) bool {
	return slices.ContainsFunc(groups, func(g doctor.Group) bool { return g.Name == name })
}

func requirements(entries []config.PathEntry) []doctor.PathRequirement {
	if entries == nil {
		return nil
	}
	out := make([]doctor.PathRequirement, len(entries))
	for i, e := range entries {
		out[i] = doctor.PathRequirement{Path: e.Path, Comment: e.Comment}
	}
	return out
}

// openDB connects to the installation's database. Credentials come from
// --db-dsn, else local.xml with --db-* flags layered on top. When none can
// be assembled the returned DB reports itself unavailable.
func openDB(root magento.Root, cfg *config.Config, flags dbFlags) *magento.DB {
	timeout := cfg.Database.Timeout
	if flags.dsn != "" {
		db, err := magento.OpenDSN(flags.dsn, flags.prefix, timeout)
		if err != nil {
			return magento.Unavailable(err)
		}
		return db
	}

	creds, err := magento.ReadCredentials(fsys.OSFS{}, root)
	if err != nil && !flags.any() {
		return magento.Unavailable(err)
	}
	if flags.host != "" {
		creds.SetHost(flags.host)
	}
	if flags.port != "" {
		creds.Port = flags.port
	}
	if flags.user != "" {
		creds.User = flags.user
	}
	if flags.password != "" {
		creds.Password = flags.password
	}
	if flags.name != "" {
		creds.Name = flags.name
	}
	if flags.prefixSet {
		creds.Prefix = flags.prefix
	}

	db, err := magento.Open(creds, timeout)
	if err != nil {
		return magento.Unavailable(err)
	}
	return db
}

// openRecorder opens the event log at path. An empty path or an open
// failure yields events.Discard.
func openRecorder(path string, stderr io.Writer) (events.Recorder, func()) {
	if path == "" {
		return events.Discard, func() {}
	}
	rec, err := events.NewFileRecorder(path, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "syscheck check: %v\n", err) //nolint:errcheck // best-effort stderr
		return events.Discard, func() {}
	}
	return rec, func() {
		if err := rec.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(stderr, "syscheck check: closing event log: %v\n", err) //nolint:errcheck // best-effort stderr
		}
	}
}

// splitList is used for list-valued flags given as "a, b".
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
