//go:build !windows

package config

import "os"

// replaceFile renames src over dst. On POSIX the rename is atomic.
func replaceFile(src, dst string) error {
	return os.Rename(src, dst)
}
