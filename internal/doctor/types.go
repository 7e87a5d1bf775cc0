// Package doctor provides the check-execution framework behind syscheck.
// It defines a Check interface, ordered check groups, and a runner that
// evaluates every check against a read-only CheckContext and assembles the
// findings into a Report.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Severity represents the outcome of a single finding.
type Severity int

const (
	// SeverityOK means the checked subject is fine.
	SeverityOK Severity = iota
	// SeverityWarning means a non-critical issue was found.
	SeverityWarning
	// SeverityError means a critical problem was found.
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText encodes the severity as its lowercase name.
func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityOK, SeverityWarning, SeverityError:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown severity %d", int(s))
}

// UnmarshalText decodes a lowercase severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ok":
		*s = SeverityOK
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", string(b))
	}
	return nil
}

// Finding is the outcome of one evaluated subject. Findings are values and
// are never modified after a check returns them.
type Finding struct {
	// Group is the name of the group that ran the check. Set by the runner.
	Group string `json:"group"`
	// Check is the name of the check that produced the finding. Set by the runner.
	Check string `json:"check"`
	// Severity is ok, warning, or error.
	Severity Severity `json:"severity"`
	// Subject names what was checked (a folder, an extension, a setting).
	Subject string `json:"subject"`
	// Detail is the human-readable message.
	Detail string `json:"detail"`
	// Scope optionally narrows the finding, e.g. to a store code.
	Scope string `json:"scope,omitempty"`
}

// OK builds a finding with SeverityOK.
func OK(subject, detail string) Finding {
	return Finding{Severity: SeverityOK, Subject: subject, Detail: detail}
}

// Warn builds a finding with SeverityWarning.
func Warn(subject, detail string) Finding {
	return Finding{Severity: SeverityWarning, Subject: subject, Detail: detail}
}

// Fail builds a finding with SeverityError.
func Fail(subject, detail string) Finding {
	return Finding{Severity: SeverityError, Subject: subject, Detail: detail}
}

// Site is one configured store. Sites are supplied by a SiteLister; the
// framework never constructs them itself.
type Site struct {
	Code            string `json:"code"`
	UnsecureBaseURL string `json:"unsecure_base_url"`
	SecureBaseURL   string `json:"secure_base_url"`
	CookieDomain    string `json:"cookie_domain,omitempty"`
}

// PathRequirement is one entry of the required folder or file lists.
type PathRequirement struct {
	// Path is relative to the installation root.
	Path string
	// Comment explains what the path is used for.
	Comment string
}

// ErrDatabaseUnavailable is wrapped by DBProber implementations when no
// database connection can be established at all.
var ErrDatabaseUnavailable = errors.New("database unavailable")

// ErrMissingConfig is returned by New when a required configuration list
// was not supplied.
var ErrMissingConfig = errors.New("missing configuration")

// FS answers filesystem questions relative to absolute paths.
type FS interface {
	Exists(path string) bool
	Writable(path string) bool
}

// ExtensionRegistry reports which runtime extensions are loaded.
type ExtensionRegistry interface {
	IsLoaded(name string) bool
}

// SiteLister enumerates the configured sites. Each call returns a fresh,
// finite list.
type SiteLister interface {
	ListSites(ctx context.Context) ([]Site, error)
}

// ConfigReader reads a configuration value for a site. Unset keys read as "".
type ConfigReader interface {
	Read(key string, site Site) string
}

// HTTPProber fetches a URL and returns its HTTP status code.
type HTTPProber interface {
	Probe(ctx context.Context, url string, timeout time.Duration) (int, error)
}

// DBProber queries the database engine.
type DBProber interface {
	Version(ctx context.Context) (string, error)
	Engines(ctx context.Context) ([]string, error)
}

// CheckContext carries the facts and collaborators shared by all checks
// during a run. It is built once and must not be modified by checks.
type CheckContext struct {
	// RootPath is the absolute path of the installation root.
	RootPath string
	// RequiredFolders lists folders that must exist and be writable.
	RequiredFolders []PathRequirement
	// RequiredFiles lists files that must exist.
	RequiredFiles []PathRequirement
	// RequiredExtensions lists runtime extensions that must be loaded.
	RequiredExtensions []string
	// BytecodeCacheCandidates lists acceptable bytecode cache extensions
	// in order of preference.
	BytecodeCacheCandidates []string
	// SecurityPath is the sensitive file probed for web exposure,
	// relative to the base URL.
	SecurityPath string
	// ProbeTimeout bounds each exposure probe.
	ProbeTimeout time.Duration
	// MinDBVersion is the lowest accepted database server version.
	MinDBVersion string
	// MajorVersion is the detected application major version, 0 if unknown.
	MajorVersion int

	FS            FS
	Extensions    ExtensionRegistry
	Sites         SiteLister
	Config        ConfigReader
	SecurityProbe HTTPProber
	DB            DBProber
}

// Check is a single named evaluation. Implementations are stateless and
// must not modify the CheckContext. Expected negative outcomes are
// returned as findings; a non-nil error means a collaborator failed in a
// way unrelated to the checked subject.
type Check interface {
	// Name returns a short, unique identifier for this check (e.g. "folders").
	Name() string
	// Run evaluates the check.
	Run(ctx context.Context, cc *CheckContext) ([]Finding, error)
}

// CheckFunc adapts a plain function to the Check interface.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context, cc *CheckContext) ([]Finding, error)
}

// Name returns the check identifier.
func (c CheckFunc) Name() string { return c.CheckName }

// Run calls the wrapped function.
func (c CheckFunc) Run(ctx context.Context, cc *CheckContext) ([]Finding, error) {
	return c.Fn(ctx, cc)
}

// Group is an ordered, named collection of checks.
type Group struct {
	// Name is the group identifier used in config and on the command line.
	Name string
	// Title is the section heading shown in reports.
	Title  string
	Checks []Check
}

func (g Group) title() string {
	if g.Title != "" {
		return g.Title
	}
	return g.Name
}
