// Package config handles loading and parsing syscheck configuration files.
// TOML is the primary format; YAML is accepted for files ending in .yaml or
// .yml. A loaded file replaces the built-in defaults entirely.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/magerun-tools/syscheck/internal/fsys"
)

// FileName is the config file looked up in the installation root.
const FileName = "syscheck.toml"

// EnvConfig names an environment variable holding a config file path.
const EnvConfig = "SYSCHECK_CONFIG"

// Config is the top-level syscheck configuration.
type Config struct {
	Filesystem Filesystem `toml:"filesystem" yaml:"filesystem" json:"filesystem"`
	PHP        PHP        `toml:"php" yaml:"php" json:"php"`
	Security   Security   `toml:"security" yaml:"security" json:"security"`
	Database   Database   `toml:"database" yaml:"database" json:"database"`
	Checks     Checks     `toml:"checks" yaml:"checks" json:"checks"`
}

// PathEntry is a required path and a note on what it is used for.
type PathEntry struct {
	// Path is relative to the installation root.
	Path string `toml:"path" yaml:"path" json:"path" jsonschema:"required"`
	// Comment explains the purpose of the path. Shown when the path fails.
	Comment string `toml:"comment" yaml:"comment" json:"comment"`
}

// Filesystem lists the folders and files an installation must have.
type Filesystem struct {
	// Folders must exist and be writable. Checked in the listed order.
	Folders []PathEntry `toml:"folders" yaml:"folders" json:"folders"`
	// Files must exist. Checked in the listed order.
	Files []PathEntry `toml:"files" yaml:"files" json:"files"`
}

// PHP lists the runtime extensions to look for.
type PHP struct {
	// Binary is the PHP CLI used to list loaded modules. Default "php".
	Binary string `toml:"binary,omitempty" yaml:"binary,omitempty" json:"binary,omitempty" jsonschema:"default=php"`
	// RequiredExtensions must all be loaded.
	RequiredExtensions []string `toml:"required_extensions" yaml:"required_extensions" json:"required_extensions"`
	// BytecodeCacheExtensions are tried in order; one of them must be loaded.
	BytecodeCacheExtensions []string `toml:"bytecode_cache_extensions" yaml:"bytecode_cache_extensions" json:"bytecode_cache_extensions"`
}

// Security configures the web exposure probe.
type Security struct {
	// Path is the sensitive file requested relative to each base URL.
	Path string `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty"`
	// Timeout bounds each probe, e.g. "30s".
	Timeout time.Duration `toml:"timeout,omitempty" yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Method is the HTTP method of each probe. Default POST.
	Method string `toml:"method,omitempty" yaml:"method,omitempty" json:"method,omitempty" jsonschema:"enum=POST,enum=GET,enum=HEAD"`
	// InsecureSkipVerify accepts self-signed certificates on HTTPS base
	// URLs. Without it such a store fails the handshake and is reported
	// as not reachable.
	InsecureSkipVerify bool `toml:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify,omitempty"`
}

// Database configures the MySQL checks.
type Database struct {
	// MinVersion is the lowest accepted server version.
	MinVersion string `toml:"min_version,omitempty" yaml:"min_version,omitempty" json:"min_version,omitempty"`
	// Timeout bounds each database call, e.g. "10s".
	Timeout time.Duration `toml:"timeout,omitempty" yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Checks selects and orders the check groups.
type Checks struct {
	// Order lists group names in run order. Empty means the default order.
	Order []string `toml:"order,omitempty" yaml:"order,omitempty" json:"order,omitempty" jsonschema:"enum=environment,enum=filesystem,enum=php,enum=security,enum=database,enum=settings"`
	// Skip lists check names to leave out.
	Skip []string `toml:"skip,omitempty" yaml:"skip,omitempty" json:"skip,omitempty"`
}

// Default returns the built-in configuration: the folders, files and PHP
// extensions a Magento 1 installation needs.
func Default() *Config {
	return &Config{
		Filesystem: Filesystem{
			Folders: []PathEntry{
				{Path: "media", Comment: "Used for images and other media files."},
				{Path: "var", Comment: "Used for caching, reports, etc."},
				{Path: "var/cache", Comment: "Used for caching"},
				{Path: "var/session", Comment: "Used as file based session save"},
			},
			Files: []PathEntry{
				{Path: "app/etc/local.xml", Comment: "Magento local configuration."},
				{Path: "index.php.sample", Comment: "Used to generate staging websites in Magento enterprise edition"},
			},
		},
		PHP: PHP{
			Binary: "php",
			RequiredExtensions: []string{
				"simplexml", "mcrypt", "hash", "gd", "dom", "iconv", "curl", "soap", "pdo", "pdo_mysql",
			},
			BytecodeCacheExtensions: []string{
				"apc", "eaccelerator", "xcache", "Zend Optimizer", "Zend OPcache",
			},
		},
		Security: Security{
			Path:    "app/etc/local.xml",
			Timeout: 30 * time.Second,
		},
		Database: Database{
			MinVersion: "4.1.20",
			Timeout:    10 * time.Second,
		},
	}
}

// Marshal encodes a Config to TOML bytes.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads and parses a config file at the given path using the
// provided filesystem. All file I/O goes through fs for testability.
func Load(fs fsys.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = ParseYAML(data)
	default:
		cfg, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data into a Config. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseYAML decodes YAML data into a Config. Unknown keys are rejected.
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for values no check could use.
func (c *Config) Validate() error {
	var errs []error
	for _, list := range []struct {
		name    string
		entries []PathEntry
	}{
		{"filesystem.folders", c.Filesystem.Folders},
		{"filesystem.files", c.Filesystem.Files},
	} {
		for i, e := range list.entries {
			switch {
			case strings.TrimSpace(e.Path) == "":
				errs = append(errs, fmt.Errorf("%s[%d]: path is required", list.name, i))
			case filepath.IsAbs(e.Path):
				errs = append(errs, fmt.Errorf("%s[%d]: path %q must be relative to the root", list.name, i, e.Path))
			}
		}
	}
	if c.Security.Timeout < 0 {
		errs = append(errs, fmt.Errorf("security.timeout must not be negative"))
	}
	switch c.Security.Method {
	case "", "POST", "GET", "HEAD":
	default:
		errs = append(errs, fmt.Errorf("security.method %q must be POST, GET or HEAD", c.Security.Method))
	}
	if c.Database.Timeout < 0 {
		errs = append(errs, fmt.Errorf("database.timeout must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Resolve picks the config file to use: explicit wins, then the
// SYSCHECK_CONFIG value passed as env, then syscheck.toml in root. It
// returns "" when no file applies and the defaults should be used.
func Resolve(fs fsys.FS, explicit, env, root string) string {
	if explicit != "" {
		return explicit
	}
	if env != "" {
		return env
	}
	if root != "" {
		p := filepath.Join(root, FileName)
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}
