package doctor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds an exposure probe when the context sets none.
const DefaultProbeTimeout = 30 * time.Second

// DefaultSecurityPath is the sensitive file probed for web exposure.
const DefaultSecurityPath = "app/etc/local.xml"

// ExposureCheck verifies that a sensitive file cannot be fetched through
// the store's public base URL. Any response other than 200, including a
// timeout or connection failure, counts as not exposed.
type ExposureCheck struct{}

// Name returns the check identifier.
func (c *ExposureCheck) Name() string { return "local-xml-exposure" }

// Run probes every distinct unsecure base URL once: the default scope
// first, then each site in listing order.
func (c *ExposureCheck) Run(ctx context.Context, cc *CheckContext) ([]Finding, error) {
	bases, err := probeBases(ctx, cc)
	if err != nil {
		return nil, err
	}
	path := cc.SecurityPath
	if path == "" {
		path = DefaultSecurityPath
	}
	if len(bases) == 0 {
		return []Finding{Warn(path, "no unsecure base URL configured; exposure not probed")}, nil
	}
	timeout := cc.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	out := make([]Finding, 0, len(bases))
	for _, b := range bases {
		url := joinURL(b.url, path)
		status, err := cc.SecurityProbe.Probe(ctx, url, timeout)
		f := OK(path, fmt.Sprintf("%s cannot be accessed from outside", url))
		if err == nil && status == http.StatusOK {
			f = Fail(path, fmt.Sprintf("%s can be accessed from outside", url))
		}
		f.Scope = b.scope
		out = append(out, f)
	}
	return out, nil
}

type probeBase struct {
	url   string
	scope string
}

func probeBases(ctx context.Context, cc *CheckContext) ([]probeBase, error) {
	seen := make(map[string]bool)
	var bases []probeBase
	add := func(url, scope string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		bases = append(bases, probeBase{url: url, scope: scope})
	}
	if cc.Config != nil {
		add(cc.Config.Read(KeyUnsecureBaseURL, Site{}), "")
	}
	sites, err := cc.Sites.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	for _, s := range sites {
		add(s.UnsecureBaseURL, s.Code)
	}
	return bases, nil
}

// joinURL appends path to base with exactly one slash between them.
func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
