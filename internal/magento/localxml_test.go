package magento

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/magerun-tools/syscheck/internal/fsys"
)

const sampleLocalXML = `<?xml version="1.0"?>
<config>
    <global>
        <install>
            <date><![CDATA[Tue, 01 Mar 2016 10:00:00 +0000]]></date>
        </install>
        <crypt>
            <key><![CDATA[0123456789abcdef]]></key>
        </crypt>
        <disable_local_modules>false</disable_local_modules>
        <resources>
            <db>
                <table_prefix><![CDATA[mg_]]></table_prefix>
            </db>
            <default_setup>
                <connection>
                    <host><![CDATA[db.internal:3307]]></host>
                    <username><![CDATA[magento]]></username>
                    <password><![CDATA[s3cr<et]]></password>
                    <dbname><![CDATA[shop]]></dbname>
                    <initStatements><![CDATA[SET NAMES utf8]]></initStatements>
                    <model><![CDATA[mysql4]]></model>
                    <type><![CDATA[pdo_mysql]]></type>
                    <pdoType><![CDATA[]]></pdoType>
                    <active>1</active>
                </connection>
            </default_setup>
        </resources>
    </global>
</config>`

func TestParseLocalXML(t *testing.T) {
	got, err := ParseLocalXML([]byte(sampleLocalXML))
	if err != nil {
		t.Fatalf("ParseLocalXML: %v", err)
	}
	want := Credentials{
		Host:     "db.internal",
		Port:     "3307",
		User:     "magento",
		Password: "s3cr<et",
		Name:     "shop",
		Prefix:   "mg_",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("credentials mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLocalXMLHosts(t *testing.T) {
	tests := []struct {
		host       string
		wantHost   string
		wantPort   string
		wantSocket string
	}{
		{"localhost", "localhost", "", ""},
		{"127.0.0.1:3306", "127.0.0.1", "3306", ""},
		{"/var/run/mysqld/mysqld.sock", "", "", "/var/run/mysqld/mysqld.sock"},
		{"localhost:/tmp/mysql.sock", "localhost", "", "/tmp/mysql.sock"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			doc := `<config><global><resources><default_setup><connection>` +
				`<host>` + tt.host + `</host><dbname>shop</dbname>` +
				`</connection></default_setup></resources></global></config>`
			c, err := ParseLocalXML([]byte(doc))
			if err != nil {
				t.Fatalf("ParseLocalXML: %v", err)
			}
			if c.Host != tt.wantHost || c.Port != tt.wantPort || c.Socket != tt.wantSocket {
				t.Errorf("host/port/socket = %q/%q/%q, want %q/%q/%q",
					c.Host, c.Port, c.Socket, tt.wantHost, tt.wantPort, tt.wantSocket)
			}
		})
	}
}

func TestParseLocalXMLErrors(t *testing.T) {
	if _, err := ParseLocalXML([]byte("<config><global>")); err == nil {
		t.Error("expected error for truncated XML")
	}
	_, err := ParseLocalXML([]byte("<config><global/></config>"))
	if err == nil || !strings.Contains(err.Error(), "no database host") {
		t.Errorf("err = %v, want missing host", err)
	}
}

func TestCredentialsValidate(t *testing.T) {
	ok := Credentials{Host: "db", Name: "shop", Prefix: "mg_"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate(ok) = %v", err)
	}
	tests := []struct {
		name string
		c    Credentials
	}{
		{"no host", Credentials{Name: "shop"}},
		{"no name", Credentials{Host: "db"}},
		{"bad prefix", Credentials{Host: "db", Name: "shop", Prefix: "x`; DROP"}},
	}
	for _, tt := range tests {
		if err := tt.c.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestMySQLConfig(t *testing.T) {
	c := Credentials{Host: "db", User: "u", Password: "p", Name: "shop"}
	cfg := c.MySQLConfig(5 * time.Second)
	if cfg.Net != "tcp" || cfg.Addr != "db:3306" {
		t.Errorf("net/addr = %s/%s, want tcp/db:3306", cfg.Net, cfg.Addr)
	}
	if cfg.User != "u" || cfg.Passwd != "p" || cfg.DBName != "shop" {
		t.Errorf("auth = %s/%s/%s", cfg.User, cfg.Passwd, cfg.DBName)
	}
	if cfg.Timeout != 5*time.Second || cfg.ReadTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.Timeout, cfg.ReadTimeout)
	}

	c = Credentials{Socket: "/tmp/mysql.sock", Name: "shop"}
	cfg = c.MySQLConfig(0)
	if cfg.Net != "unix" || cfg.Addr != "/tmp/mysql.sock" {
		t.Errorf("net/addr = %s/%s, want unix socket", cfg.Net, cfg.Addr)
	}

	c = Credentials{Host: "::1", Port: "3307", Name: "shop"}
	if got := c.MySQLConfig(0).Addr; got != "[::1]:3307" {
		t.Errorf("Addr = %q, want [::1]:3307", got)
	}
}

func TestReadCredentials(t *testing.T) {
	fs := fsys.NewFake()
	fs.AddFile("/shop/app/etc/local.xml", []byte(sampleLocalXML))

	got, err := ReadCredentials(fs, Root{Path: "/shop", Major: 1})
	if err != nil {
		t.Fatalf("ReadCredentials: %v", err)
	}
	if got.Name != "shop" || got.Prefix != "mg_" {
		t.Errorf("credentials = %+v", got)
	}

	if _, err := ReadCredentials(fs, Root{Path: "/other", Major: 1}); err == nil {
		t.Error("ReadCredentials without local.xml succeeded")
	}
	_, err = ReadCredentials(fs, Root{Path: "/shop", Major: 2})
	if err == nil || !strings.Contains(err.Error(), "--db-dsn") {
		t.Errorf("Magento 2 error = %v, want hint at --db-dsn", err)
	}
}
