package doctor

import (
	"context"
	"fmt"
	"slices"
)

// Built-in group names, in default run order.
const (
	GroupEnvironment = "environment"
	GroupFilesystem  = "filesystem"
	GroupPHP         = "php"
	GroupSecurity    = "security"
	GroupDatabase    = "database"
	GroupSettings    = "settings"
)

// DefaultOrder is the run order used when none is configured.
var DefaultOrder = []string{
	GroupEnvironment,
	GroupFilesystem,
	GroupPHP,
	GroupSecurity,
	GroupDatabase,
	GroupSettings,
}

// builtinGroups returns fresh instances of every built-in group, keyed by name.
func builtinGroups() map[string]Group {
	return map[string]Group{
		GroupEnvironment: {Name: GroupEnvironment, Title: "Environment", Checks: []Check{
			&MajorVersionCheck{},
		}},
		GroupFilesystem: {Name: GroupFilesystem, Title: "Filesystem", Checks: []Check{
			&FoldersCheck{},
			&FilesCheck{},
		}},
		GroupPHP: {Name: GroupPHP, Title: "PHP", Checks: []Check{
			&ExtensionsCheck{},
			&BytecodeCacheCheck{},
		}},
		GroupSecurity: {Name: GroupSecurity, Title: "Security", Checks: []Check{
			&ExposureCheck{},
		}},
		GroupDatabase: {Name: GroupDatabase, Title: "MySQL", Checks: []Check{
			&MySQLVersionCheck{},
			&MySQLEnginesCheck{},
		}},
		GroupSettings: {Name: GroupSettings, Title: "Settings", Checks: []Check{
			NewBaseURLCheck(),
			NewCookieDomainCheck(),
		}},
	}
}

// IsBuiltinGroup reports whether name is a built-in group.
func IsBuiltinGroup(name string) bool {
	_, ok := builtinGroups()[name]
	return ok
}

// BuiltinGroups returns the built-in groups in the given order. An empty
// order means DefaultOrder. Checks named in skip are left out, and groups
// left without checks are dropped.
func BuiltinGroups(order, skip []string) ([]Group, error) {
	if len(order) == 0 {
		order = DefaultOrder
	}
	all := builtinGroups()
	known := make(map[string]bool)
	for _, g := range all {
		for _, c := range g.Checks {
			known[c.Name()] = true
		}
	}
	for _, name := range skip {
		if !known[name] {
			return nil, fmt.Errorf("unknown check %q", name)
		}
	}

	var groups []Group
	seen := make(map[string]bool)
	for _, name := range order {
		g, ok := all[name]
		if !ok {
			return nil, fmt.Errorf("unknown check group %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("check group %q listed twice", name)
		}
		seen[name] = true
		g.Checks = slices.DeleteFunc(g.Checks, func(c Check) bool {
			return slices.Contains(skip, c.Name())
		})
		if len(g.Checks) > 0 {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// MajorVersionCheck reports which application major version was detected.
// Only Magento 1 requirements are defined, so a Magento 2 installation is
// flagged with a warning.
type MajorVersionCheck struct{}

// Name returns the check identifier.
func (c *MajorVersionCheck) Name() string { return "magento-version" }

// Run reports the detected major version.
func (c *MajorVersionCheck) Run(_ context.Context, cc *CheckContext) ([]Finding, error) {
	switch cc.MajorVersion {
	case 1:
		return []Finding{OK("Magento", "Magento 1 installation detected")}, nil
	case 2:
		return []Finding{Warn("Magento",
			"Magento 2 requirements are not yet defined; Magento 1 requirements are checked")}, nil
	}
	return []Finding{Warn("Magento", "could not detect the Magento major version")}, nil
}
