package doctor

import (
	"context"
	"sync"
	"time"

	"github.com/magerun-tools/syscheck/internal/fsys"
)

// fakeExtensions is an ExtensionRegistry backed by a set.
type fakeExtensions map[string]bool

func (f fakeExtensions) IsLoaded(name string) bool { return f[name] }

// fakeSites is a SiteLister returning a fixed list or error.
type fakeSites struct {
	sites []Site
	err   error
}

func (f *fakeSites) ListSites(context.Context) ([]Site, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Site, len(f.sites))
	copy(out, f.sites)
	return out, nil
}

// fakeConfig is a ConfigReader keyed by site code, then config key. The
// default scope uses the empty code.
type fakeConfig map[string]map[string]string

func (f fakeConfig) Read(key string, site Site) string { return f[site.Code][key] }

// fakeProber answers probes from a URL→status table. Unknown URLs fail
// with a connection error.
type fakeProber struct {
	mu       sync.Mutex
	statuses map[string]int
	errs     map[string]error
	calls    []string
	timeouts []time.Duration
}

func (f *fakeProber) Probe(_ context.Context, url string, timeout time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	f.timeouts = append(f.timeouts, timeout)
	if err, ok := f.errs[url]; ok {
		return 0, err
	}
	if st, ok := f.statuses[url]; ok {
		return st, nil
	}
	return 0, errConnRefused
}

// fakeDB is a DBProber with canned answers.
type fakeDB struct {
	version string
	engines []string
	err     error
}

func (f *fakeDB) Version(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.version, nil
}

func (f *fakeDB) Engines(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.engines, nil
}

// downDB stands in for an unreachable database serving as SiteLister,
// ConfigReader and DBProber at once.
type downDB struct {
	mu           sync.Mutex
	err          error
	versionCalls int
	engineCalls  int
}

func (d *downDB) ListSites(context.Context) ([]Site, error) { return nil, d.err }

func (d *downDB) Read(string, Site) string { return "" }

func (d *downDB) Version(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.versionCalls++
	return "", d.err
}

func (d *downDB) Engines(context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engineCalls++
	return nil, d.err
}

type connError string

func (e connError) Error() string { return string(e) }

const errConnRefused = connError("connection refused")

// healthyContext returns a CheckContext for a fully healthy installation
// rooted at /shop with two sites.
func healthyContext() *CheckContext {
	fs := fsys.NewFake()
	for _, d := range []string{"media", "var", "var/cache", "var/session"} {
		fs.AddDir("/shop/" + d)
	}
	fs.AddFile("/shop/app/etc/local.xml", []byte("<config/>"))
	fs.AddFile("/shop/index.php.sample", nil)

	sites := []Site{
		{Code: "default", UnsecureBaseURL: "http://shop.example.com/", SecureBaseURL: "https://shop.example.com/"},
		{Code: "de", UnsecureBaseURL: "http://de.example.com/", SecureBaseURL: "https://de.example.com/"},
	}
	cfg := fakeConfig{
		"": {KeyUnsecureBaseURL: "http://shop.example.com/"},
	}
	for _, s := range sites {
		cfg[s.Code] = map[string]string{
			KeyUnsecureBaseURL: s.UnsecureBaseURL,
			KeySecureBaseURL:   s.SecureBaseURL,
			KeyCookieDomain:    "example.com",
		}
	}

	return &CheckContext{
		RootPath: "/shop",
		RequiredFolders: []PathRequirement{
			{Path: "media", Comment: "Used for images and other media files."},
			{Path: "var", Comment: "Used for caching, reports, etc."},
			{Path: "var/cache", Comment: "Used for caching"},
			{Path: "var/session", Comment: "Used as file based session save"},
		},
		RequiredFiles: []PathRequirement{
			{Path: "app/etc/local.xml", Comment: "Magento local configuration."},
			{Path: "index.php.sample", Comment: "Used to generate staging websites"},
		},
		RequiredExtensions:      []string{"simplexml", "pdo_mysql"},
		BytecodeCacheCandidates: []string{"apc", "Zend OPcache"},
		SecurityPath:            "app/etc/local.xml",
		ProbeTimeout:            time.Second,
		MinDBVersion:            "4.1.20",
		MajorVersion:            1,
		FS:                      fs,
		Extensions:              fakeExtensions{"simplexml": true, "pdo_mysql": true, "Zend OPcache": true},
		Sites:                   &fakeSites{sites: sites},
		Config:                  cfg,
		SecurityProbe: &fakeProber{statuses: map[string]int{
			"http://shop.example.com/app/etc/local.xml": 403,
			"http://de.example.com/app/etc/local.xml":   404,
		}},
		DB: &fakeDB{version: "5.7.30-log", engines: []string{"MyISAM", "InnoDB"}},
	}
}
