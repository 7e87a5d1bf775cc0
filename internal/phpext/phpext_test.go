package phpext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const phpModules = `[PHP Modules]
Core
curl
date
dom
gd
hash
iconv
mcrypt
PDO
pdo_mysql
SimpleXML
soap
Zend OPcache

[Zend Modules]
Zend OPcache

`

func TestParse(t *testing.T) {
	r := Parse([]byte(phpModules))
	for _, name := range []string{"simplexml", "SimpleXML", "pdo", "pdo_mysql", "zend opcache", " gd "} {
		if !r.IsLoaded(name) {
			t.Errorf("IsLoaded(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"apc", "xcache", "[PHP Modules]", ""} {
		if r.IsLoaded(name) {
			t.Errorf("IsLoaded(%q) = true, want false", name)
		}
	}
	if n := len(r.loaded); n != 13 {
		t.Errorf("loaded %d extensions, want 13 (duplicates collapsed)", n)
	}
}

func TestNew(t *testing.T) {
	r := New("soap", " Core ", "", "SOAP", "Zend OPcache")
	want := map[string]bool{"soap": true, "core": true, "zend opcache": true}
	if diff := cmp.Diff(want, r.loaded); diff != "" {
		t.Errorf("loaded mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(phpModules), nil
	}
	r, err := Load(context.Background(), runner, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotName != DefaultBinary || len(gotArgs) != 1 || gotArgs[0] != "-m" {
		t.Errorf("ran %s %v, want php -m", gotName, gotArgs)
	}
	if !r.IsLoaded("curl") {
		t.Error("curl not loaded")
	}
	if r.LoadErr() != nil {
		t.Errorf("LoadErr = %v, want nil", r.LoadErr())
	}
}

func TestLoadCustomBinary(t *testing.T) {
	var gotName string
	runner := func(_ context.Context, name string, _ ...string) ([]byte, error) {
		gotName = name
		return nil, nil
	}
	if _, err := Load(context.Background(), runner, "/opt/php56/bin/php"); err != nil {
		t.Fatal(err)
	}
	if gotName != "/opt/php56/bin/php" {
		t.Errorf("binary = %q", gotName)
	}
}

func TestLoadError(t *testing.T) {
	boom := errors.New("executable file not found in $PATH")
	runner := func(context.Context, string, ...string) ([]byte, error) { return nil, boom }

	r, err := Load(context.Background(), runner, "php")
	if !errors.Is(err, boom) {
		t.Fatalf("Load err = %v, want %v", err, boom)
	}
	if r == nil {
		t.Fatal("Load returned nil registry on error")
	}
	if !errors.Is(r.LoadErr(), boom) {
		t.Errorf("LoadErr = %v", r.LoadErr())
	}
	if !strings.Contains(err.Error(), "php -m") {
		t.Errorf("err = %q, want command in message", err)
	}
	if r.IsLoaded("gd") {
		t.Error("empty registry reports gd loaded")
	}
}

func TestExecCommandRunner(t *testing.T) {
	out, err := ExecCommandRunner()(context.Background(), "echo", "hello")
	if err != nil {
		t.Skipf("echo not available: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("out = %q", out)
	}
}
