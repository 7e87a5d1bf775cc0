// Package fsys defines a minimal filesystem interface for testability.
//
// Production code uses [OSFS] which delegates to the os package.
// Tests use [Fake] which provides an in-memory filesystem with spy
// capabilities and error injection.
package fsys

import (
	"os"
)

// FS abstracts the filesystem operations used to inspect an installation.
// It covers exactly what the checks, config loading and root discovery
// need: no more.
type FS interface {
	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)

	// ReadFile reads the named file.
	ReadFile(name string) ([]byte, error)

	// Exists reports whether the named file or directory exists.
	Exists(name string) bool

	// Writable reports whether the current process may write to name.
	Writable(name string) bool
}

// OSFS implements [FS] by delegating to the os package.
type OSFS struct{}

// Stat delegates to [os.Stat].
func (OSFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// ReadFile delegates to [os.ReadFile].
func (OSFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Exists reports whether [os.Stat] succeeds for name.
func (OSFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// Writable reports whether name is writable by the current process.
func (OSFS) Writable(name string) bool {
	return writable(name)
}
