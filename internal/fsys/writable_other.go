//go:build !unix

package fsys

import "os"

// writable falls back to the owner write bit where access(2) is unavailable.
func writable(name string) bool {
	fi, err := os.Stat(name)
	if err != nil {
		return false
	}
	return fi.Mode().Perm()&0o200 != 0
}
