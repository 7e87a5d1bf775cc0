// Package magento reads what syscheck needs to know about a Magento
// installation: where its root is, which major version it is, the
// database credentials in app/etc/local.xml, and the store configuration
// held in the database.
package magento

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/magerun-tools/syscheck/internal/fsys"
)

// ErrRootNotFound is returned when no Magento root is found above the
// start directory.
var ErrRootNotFound = errors.New("magento root not found")

// Marker files relative to the root.
const (
	LocalXML = "app/etc/local.xml"
	MagePHP  = "app/Mage.php"
	EnvPHP   = "app/etc/env.php"
	BinMage  = "bin/magento"
)

// Root is a located installation.
type Root struct {
	// Path is the absolute installation root.
	Path string
	// Major is 1 or 2, or 0 when no marker file was found.
	Major int
}

// DetectMajor reports the major version of the installation at root, or
// 0 when it carries no known marker file.
func DetectMajor(fs fsys.FS, root string) int {
	switch {
	case fs.Exists(filepath.Join(root, LocalXML)), fs.Exists(filepath.Join(root, MagePHP)):
		return 1
	case fs.Exists(filepath.Join(root, EnvPHP)), fs.Exists(filepath.Join(root, BinMage)):
		return 2
	}
	return 0
}

// FindRoot walks up from start until it finds a directory with a Magento
// marker file.
func FindRoot(fs fsys.FS, start string) (Root, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return Root{}, err
	}
	for {
		if major := DetectMajor(fs, dir); major != 0 {
			return Root{Path: dir, Major: major}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Root{}, fmt.Errorf("%w above %s (no %s or %s)", ErrRootNotFound, start, LocalXML, EnvPHP)
		}
		dir = parent
	}
}

// OpenRoot uses path as the root without walking up. The directory must
// exist; an unrecognized installation gets Major 0.
func OpenRoot(fs fsys.FS, path string) (Root, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Root{}, err
	}
	if !fs.Exists(abs) {
		return Root{}, fmt.Errorf("%w: %s does not exist", ErrRootNotFound, abs)
	}
	return Root{Path: abs, Major: DetectMajor(fs, abs)}, nil
}
