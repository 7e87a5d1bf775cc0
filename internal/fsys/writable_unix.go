//go:build unix

package fsys

import "golang.org/x/sys/unix"

// writable asks the kernel via access(2), which honours the effective
// uid, group membership, ACLs and read-only mounts.
func writable(name string) bool {
	return unix.Access(name, unix.W_OK) == nil
}
