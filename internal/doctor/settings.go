package doctor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Store configuration keys read by the settings checks.
const (
	KeyUnsecureBaseURL = "web/unsecure/base_url"
	KeySecureBaseURL   = "web/secure/base_url"
	KeyCookieDomain    = "web/cookie/cookie_domain"
)

// Predicate reports whether a site's configuration value is acceptable.
type Predicate func(value string, site Site) bool

// SettingRule describes one per-site configuration check.
type SettingRule struct {
	// Label names the setting in the aggregate OK finding.
	Label string
	// Key is the configuration key read for every site.
	Key string
	// Message is the detail of each error finding.
	Message string
	// Predicate decides whether a site's value passes.
	Predicate Predicate
}

// CheckSetting evaluates rule for every site. Each failing site yields one
// error finding scoped to the site code. When no site fails, a single OK
// finding labelled with rule.Label is emitted instead; there is never an
// OK finding per site.
func CheckSetting(ctx context.Context, cc *CheckContext, rule SettingRule) ([]Finding, error) {
	sites, err := cc.Sites.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sites for %s: %w", rule.Label, err)
	}
	var out []Finding
	for _, s := range sites {
		value := cc.Config.Read(rule.Key, s)
		if rule.Predicate(value, s) {
			continue
		}
		f := Fail(rule.Label, rule.Message)
		f.Scope = s.Code
		out = append(out, f)
	}
	if len(out) == 0 {
		out = append(out, OK(rule.Label, "OK"))
	}
	return out, nil
}

// urlHost returns the host of raw without port, or "" when raw does not
// parse as a URL.
func urlHost(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// settingsCheck runs a fixed list of rules in order.
type settingsCheck struct {
	name  string
	rules func(cc *CheckContext) []SettingRule
}

func (c *settingsCheck) Name() string { return c.name }

func (c *settingsCheck) Run(ctx context.Context, cc *CheckContext) ([]Finding, error) {
	var out []Finding
	for _, rule := range c.rules(cc) {
		fs, err := CheckSetting(ctx, cc, rule)
		if err != nil {
			return out, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

// NotLocalhost fails when the value's URL host is exactly "localhost".
func NotLocalhost(value string, _ Site) bool {
	return urlHost(value) != "localhost"
}

// NewBaseURLCheck creates the check that rejects localhost base URLs for
// both the unsecure and the secure base URL.
func NewBaseURLCheck() Check {
	const msg = "localhost should not be used as hostname; hostname must contain a dot"
	return &settingsCheck{
		name: "base-url",
		rules: func(_ *CheckContext) []SettingRule {
			return []SettingRule{
				{Label: "Unsecure BaseURL", Key: KeyUnsecureBaseURL, Message: msg, Predicate: NotLocalhost},
				{Label: "Secure BaseURL", Key: KeySecureBaseURL, Message: msg, Predicate: NotLocalhost},
			}
		},
	}
}

// CookieDomainMatches returns a predicate that passes when the site has no
// cookie domain, or when the value's URL host contains the cookie domain.
// A match at position 0 counts as found. The cookie domain comes from the
// site itself, falling back to the config reader.
func CookieDomainMatches(cfg ConfigReader) Predicate {
	return func(value string, site Site) bool {
		domain := site.CookieDomain
		if domain == "" && cfg != nil {
			domain = cfg.Read(KeyCookieDomain, site)
		}
		domain = strings.TrimSpace(domain)
		if domain == "" {
			return true
		}
		return strings.Contains(urlHost(value), domain)
	}
}

// NewCookieDomainCheck creates the check that verifies each site's cookie
// domain matches its unsecure and secure base URL hosts.
func NewCookieDomainCheck() Check {
	return &settingsCheck{
		name: "cookie-domain",
		rules: func(cc *CheckContext) []SettingRule {
			match := CookieDomainMatches(cc.Config)
			return []SettingRule{
				{
					Label:     "Cookie Domain (unsecure)",
					Key:       KeyUnsecureBaseURL,
					Message:   "cookie domain and unsecure base URL (http) do not match",
					Predicate: match,
				},
				{
					Label:     "Cookie Domain (secure)",
					Key:       KeySecureBaseURL,
					Message:   "cookie domain and secure base URL (https) do not match",
					Predicate: match,
				},
			}
		},
	}
}
