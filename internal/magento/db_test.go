package magento

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/magerun-tools/syscheck/internal/doctor"
)

// closedAddr returns a local TCP address nothing listens on.
func closedAddr(t *testing.T) (string, string) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	addr := l.Addr().(*net.TCPAddr)
	l.Close() //nolint:errcheck // only the port is needed
	_, port, _ := net.SplitHostPort(addr.String())
	return "127.0.0.1", port
}

func TestOpenValidates(t *testing.T) {
	if _, err := Open(Credentials{Host: "db"}, time.Second); err == nil {
		t.Error("Open without database name succeeded")
	}
}

func TestOpenDSN(t *testing.T) {
	if _, err := OpenDSN("not a dsn", "", time.Second); err == nil {
		t.Error("OpenDSN(garbage) succeeded")
	}
	if _, err := OpenDSN("u:p@tcp(db:3306)/shop", "bad prefix!", time.Second); err == nil {
		t.Error("OpenDSN with bad prefix succeeded")
	}
	db, err := OpenDSN("u:p@tcp(db:3306)/shop", "mg_", time.Second)
	if err != nil {
		t.Fatalf("OpenDSN: %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup
	if got := db.table("core_store"); got != "`mg_core_store`" {
		t.Errorf("table = %s", got)
	}
}

func TestDBUnavailable(t *testing.T) {
	host, port := closedAddr(t)
	db, err := Open(Credentials{Host: host, Port: port, User: "u", Name: "shop"}, 2*time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	ctx := context.Background()
	if _, err := db.Version(ctx); !errors.Is(err, doctor.ErrDatabaseUnavailable) {
		t.Errorf("Version err = %v, want ErrDatabaseUnavailable", err)
	}
	if _, err := db.Engines(ctx); !errors.Is(err, doctor.ErrDatabaseUnavailable) {
		t.Errorf("Engines err = %v, want ErrDatabaseUnavailable", err)
	}
	if _, err := db.ListSites(ctx); !errors.Is(err, doctor.ErrDatabaseUnavailable) {
		t.Errorf("ListSites err = %v, want ErrDatabaseUnavailable", err)
	}
	if got := db.Read(doctor.KeyUnsecureBaseURL, doctor.Site{}); got != "" {
		t.Errorf("Read = %q, want empty when unavailable", got)
	}
}

func TestUnavailable(t *testing.T) {
	db := Unavailable(errors.New("no local.xml"))
	ctx := context.Background()
	_, err := db.Version(ctx)
	if !errors.Is(err, doctor.ErrDatabaseUnavailable) {
		t.Fatalf("Version err = %v, want ErrDatabaseUnavailable", err)
	}
	if !strings.Contains(err.Error(), "no local.xml") {
		t.Errorf("err = %v, want the reason", err)
	}
	if _, err := db.ListSites(ctx); !errors.Is(err, doctor.ErrDatabaseUnavailable) {
		t.Errorf("ListSites err = %v", err)
	}
	if got := db.Read(doctor.KeyCookieDomain, doctor.Site{Code: "default"}); got != "" {
		t.Errorf("Read = %q, want empty", got)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestUnavailableThroughChecks(t *testing.T) {
	db := Unavailable(errors.New("no credentials"))
	cc := &doctor.CheckContext{
		RootPath:        "/shop",
		RequiredFolders: []doctor.PathRequirement{{Path: "var"}},
		Sites:           db,
		Config:          db,
		DB:              db,
	}
	groups, err := doctor.BuiltinGroups([]string{doctor.GroupSecurity, doctor.GroupDatabase, doctor.GroupSettings}, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := doctor.New(cc, groups...)
	if err != nil {
		t.Fatal(err)
	}
	r := d.Run(context.Background())

	got := make(map[string]int)
	for _, f := range r.Findings {
		if f.Severity != doctor.SeverityError {
			t.Errorf("non-error finding during outage: %+v", f)
		}
		if !strings.Contains(f.Detail, "database unavailable: no credentials") {
			t.Errorf("%s/%s detail = %q, want the cause", f.Group, f.Check, f.Detail)
		}
		got[f.Group+"/"+f.Check]++
	}
	want := map[string]int{
		"security/local-xml-exposure": 1,
		"database/mysql-version":      1,
		"database/mysql-engines":      1,
		"settings/base-url":           1,
		"settings/cookie-domain":      1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings per check mismatch (-want +got):\n%s", diff)
	}
	if len(r.Sections) != 3 || r.Sections[2].Name != doctor.GroupSettings {
		t.Errorf("sections = %+v, want security, database, settings", r.Sections)
	}
}
