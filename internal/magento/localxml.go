package magento

import (
	"encoding/xml"
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/magerun-tools/syscheck/internal/fsys"
)

// DefaultPort is the MySQL port used when the host names none.
const DefaultPort = "3306"

// Credentials holds the database connection settings of an installation.
type Credentials struct {
	Host     string
	Port     string
	Socket   string
	User     string
	Password string
	Name     string
	// Prefix is prepended to every table name.
	Prefix string
}

type localXML struct {
	Global struct {
		Resources struct {
			DB struct {
				TablePrefix string `xml:"table_prefix"`
			} `xml:"db"`
			DefaultSetup struct {
				Connection struct {
					Host     string `xml:"host"`
					Port     string `xml:"port"`
					Username string `xml:"username"`
					Password string `xml:"password"`
					DBName   string `xml:"dbname"`
				} `xml:"connection"`
			} `xml:"default_setup"`
		} `xml:"resources"`
	} `xml:"global"`
}

// ParseLocalXML extracts the default_setup connection from a local.xml
// document. A host of the form "name:port" is split; a host starting with
// "/" is taken as a unix socket path.
func ParseLocalXML(data []byte) (Credentials, error) {
	var doc localXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Credentials{}, fmt.Errorf("parsing local.xml: %w", err)
	}
	conn := doc.Global.Resources.DefaultSetup.Connection
	c := Credentials{
		Port:     strings.TrimSpace(conn.Port),
		User:     strings.TrimSpace(conn.Username),
		Password: conn.Password,
		Name:     strings.TrimSpace(conn.DBName),
		Prefix:   strings.TrimSpace(doc.Global.Resources.DB.TablePrefix),
	}
	c.SetHost(strings.TrimSpace(conn.Host))
	if c.Host == "" && c.Socket == "" {
		return Credentials{}, fmt.Errorf("parsing local.xml: no database host in global/resources/default_setup/connection")
	}
	return c, nil
}

// SetHost replaces the server address with host, which may be a name,
// "name:port", a socket path, or "name:/socket/path". A port in host
// replaces c.Port.
func (c *Credentials) SetHost(host string) {
	c.Host, c.Socket = "", ""
	switch {
	case strings.HasPrefix(host, "/"):
		c.Socket = host
	case strings.Contains(host, ":"):
		h, rest, _ := strings.Cut(host, ":")
		c.Host = h
		if strings.HasPrefix(rest, "/") {
			c.Socket = rest
		} else if rest != "" {
			c.Port = rest
		}
	default:
		c.Host = host
	}
}

// ReadCredentials reads the database settings of the installation at root.
// Only Magento 1 local.xml is understood.
func ReadCredentials(fs fsys.FS, root Root) (Credentials, error) {
	if root.Major == 2 {
		return Credentials{}, fmt.Errorf("reading credentials from %s is not supported; pass --db-dsn", EnvPHP)
	}
	data, err := fs.ReadFile(filepath.Join(root.Path, LocalXML))
	if err != nil {
		return Credentials{}, fmt.Errorf("reading credentials: %w", err)
	}
	return ParseLocalXML(data)
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Validate rejects credentials that cannot be used to connect.
func (c Credentials) Validate() error {
	if c.Host == "" && c.Socket == "" {
		return fmt.Errorf("database host or socket is required")
	}
	if c.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if !prefixPattern.MatchString(c.Prefix) {
		return fmt.Errorf("invalid table prefix %q", c.Prefix)
	}
	return nil
}

// MySQLConfig builds the driver configuration for c. timeout bounds the
// dial and each read and write.
func (c Credentials) MySQLConfig(timeout time.Duration) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.Name
	if c.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = c.Socket
	} else {
		port := c.Port
		if port == "" {
			port = DefaultPort
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, port)
	}
	if timeout > 0 {
		cfg.Timeout = timeout
		cfg.ReadTimeout = timeout
		cfg.WriteTimeout = timeout
	}
	return cfg
}
