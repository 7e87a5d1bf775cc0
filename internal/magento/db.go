package magento

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/magerun-tools/syscheck/internal/doctor"
	"github.com/magerun-tools/syscheck/internal/telemetry"
)

// DefaultTimeout bounds each database call when none is configured.
const DefaultTimeout = 10 * time.Second

// DB answers the database questions of a run: the server version, the
// available storage engines, and the store configuration. The store
// configuration is read once and cached; so is a failure to connect.
type DB struct {
	db      *sql.DB
	prefix  string
	timeout time.Duration

	connOnce sync.Once
	connErr  error

	mu   sync.Mutex
	snap *Snapshot
	err  error
}

// Open prepares a connection pool for creds. No connection is made until
// the first query.
func Open(creds Credentials, timeout time.Duration) (*DB, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return open(creds.MySQLConfig(timeout), creds.Prefix, timeout)
}

// OpenDSN is like Open but takes a go-sql-driver DSN such as
// "user:pass@tcp(db:3306)/magento".
func OpenDSN(dsn, prefix string, timeout time.Duration) (*DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = timeout
	}
	return open(cfg, prefix, timeout)
}

func open(cfg *mysql.Config, prefix string, timeout time.Duration) (*DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring MySQL connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	return &DB{db: db, prefix: prefix, timeout: timeout}, nil
}

// Unavailable returns a DB that answers every call as if the server could
// not be reached, for installations whose credentials cannot be read.
func Unavailable(reason error) *DB {
	d := &DB{connErr: fmt.Errorf("%w: %v", doctor.ErrDatabaseUnavailable, reason)}
	d.connOnce.Do(func() {})
	return d
}

// Close releases the connection pool.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// connect pings the server once. Every later call sees the same result.
func (d *DB) connect(ctx context.Context) error {
	d.connOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		err := d.db.PingContext(ctx)
		telemetry.RecordQuery(ctx, "ping", err)
		if err != nil {
			d.connErr = fmt.Errorf("%w: %v", doctor.ErrDatabaseUnavailable, err)
		}
	})
	return d.connErr
}

func (d *DB) table(name string) string { return "`" + d.prefix + name + "`" }

// Version returns the server version string, e.g. "5.7.44-log".
func (d *DB) Version(ctx context.Context) (string, error) {
	if err := d.connect(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	var v string
	err := d.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&v)
	telemetry.RecordQuery(ctx, "version", err)
	if err != nil {
		return "", fmt.Errorf("querying version: %w", err)
	}
	return v, nil
}

// Engines returns the storage engine names listed by SHOW ENGINES.
func (d *DB) Engines(ctx context.Context) ([]string, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	engines, err := d.engines(ctx)
	telemetry.RecordQuery(ctx, "show_engines", err)
	return engines, err
}

func (d *DB) engines(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SHOW ENGINES")
	if err != nil {
		return nil, fmt.Errorf("listing engines: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("listing engines: %w", err)
	}
	engineCol := -1
	for i, c := range cols {
		if c == "Engine" {
			engineCol = i
		}
	}
	if engineCol < 0 {
		return nil, fmt.Errorf("listing engines: no Engine column in %v", cols)
	}

	var out []string
	vals := make([]sql.RawBytes, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("listing engines: %w", err)
		}
		out = append(out, string(vals[engineCol]))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing engines: %w", err)
	}
	return out, nil
}

// Snapshot loads the store list and the web/* configuration once.
func (d *DB) Snapshot(ctx context.Context) (*Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.snap != nil || d.err != nil {
		return d.snap, d.err
	}
	if err := d.connect(ctx); err != nil {
		d.err = err
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	stores, err := d.stores(ctx)
	telemetry.RecordQuery(ctx, "stores", err)
	if err != nil {
		d.err = err
		return nil, err
	}
	values, err := d.configValues(ctx)
	telemetry.RecordQuery(ctx, "config_values", err)
	if err != nil {
		d.err = err
		return nil, err
	}
	d.snap = NewSnapshot(stores, values)
	return d.snap, nil
}

func (d *DB) stores(ctx context.Context) ([]Store, error) {
	q := "SELECT store_id, code, website_id FROM " + d.table("core_store") + " ORDER BY store_id"
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var out []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Code, &s.WebsiteID); err != nil {
			return nil, fmt.Errorf("listing stores: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	return out, nil
}

func (d *DB) configValues(ctx context.Context) ([]ConfigValue, error) {
	q := "SELECT scope, scope_id, path, value FROM " + d.table("core_config_data") + " WHERE path LIKE 'web/%'"
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var out []ConfigValue
	for rows.Next() {
		var v ConfigValue
		var value sql.NullString
		if err := rows.Scan(&v.Scope, &v.ScopeID, &v.Path, &value); err != nil {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
		v.Value = value.String
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return out, nil
}

// ListSites returns the non-admin stores with resolved settings.
func (d *DB) ListSites(ctx context.Context) ([]doctor.Site, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Sites(), nil
}

// Read returns the configuration value of key for site. It loads the
// snapshot on first use and reads "" when the database is unavailable.
func (d *DB) Read(key string, site doctor.Site) string {
	snap, err := d.Snapshot(context.Background())
	if err != nil {
		return ""
	}
	return snap.Read(key, site)
}

var (
	_ doctor.DBProber     = (*DB)(nil)
	_ doctor.SiteLister   = (*DB)(nil)
	_ doctor.ConfigReader = (*DB)(nil)
	_ doctor.ConfigReader = (*Snapshot)(nil)
)
