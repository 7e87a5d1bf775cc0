package doctor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMinDBVersion is the oldest MySQL server accepted by MySQLVersionCheck.
const DefaultMinDBVersion = "4.1.20"

// MySQLVersionCheck verifies the database server version is recent enough.
type MySQLVersionCheck struct{}

// Name returns the check identifier.
func (c *MySQLVersionCheck) Name() string { return "mysql-version" }

// Run fetches the server version and compares it numerically.
func (c *MySQLVersionCheck) Run(ctx context.Context, cc *CheckContext) ([]Finding, error) {
	version, err := cc.DB.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching version: %w", err)
	}
	minVersion := cc.MinDBVersion
	if minVersion == "" {
		minVersion = DefaultMinDBVersion
	}
	if CompareVersions(version, minVersion) >= 0 {
		return []Finding{OK("MySQL version", fmt.Sprintf("MySQL version %s found", version))}, nil
	}
	return []Finding{Fail("MySQL version",
		fmt.Sprintf("MySQL version %s found; upgrade to %s or newer", version, minVersion))}, nil
}

// MySQLEnginesCheck verifies the InnoDB storage engine is available.
type MySQLEnginesCheck struct{}

// Name returns the check identifier.
func (c *MySQLEnginesCheck) Name() string { return "mysql-engines" }

// Run looks for InnoDB among the reported engines, ignoring case.
func (c *MySQLEnginesCheck) Run(ctx context.Context, cc *CheckContext) ([]Finding, error) {
	engines, err := cc.DB.Engines(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing engines: %w", err)
	}
	for _, e := range engines {
		if strings.EqualFold(strings.TrimSpace(e), "innodb") {
			return []Finding{OK("InnoDB", "required MySQL storage engine InnoDB found")}, nil
		}
	}
	return []Finding{Fail("InnoDB", `required MySQL storage engine "InnoDB" not found`)}, nil
}

// CompareVersions compares the leading dotted numeric parts of two version
// strings and returns -1, 0 or 1. Anything after the numeric prefix, such
// as "-log" or "-MariaDB", is ignored, and missing components count as 0,
// so "5.7" equals "5.7.0".
func CompareVersions(a, b string) int {
	pa, pb := versionParts(a), versionParts(b)
	n := max(len(pa), len(pb))
	for i := range n {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// versionParts extracts the leading dot-separated integers of v.
func versionParts(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	var parts []int
	for _, field := range strings.Split(v, ".") {
		end := 0
		for end < len(field) && field[end] >= '0' && field[end] <= '9' {
			end++
		}
		if end == 0 {
			break
		}
		n, err := strconv.Atoi(field[:end])
		if err != nil {
			break
		}
		parts = append(parts, n)
		if end < len(field) {
			break
		}
	}
	return parts
}
