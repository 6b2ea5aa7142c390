//go:build unix

package loader

import (
	"os"

	"golang.org/x/sys/unix"
)

// readable reports whether path is a regular file the process may read.
func readable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.R_OK) == nil
}
