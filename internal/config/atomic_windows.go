//go:build windows

package config

import "golang.org/x/sys/windows"

// replaceFile moves src over dst with MOVEFILE_REPLACE_EXISTING,
// since os.Rename refuses an existing destination on Windows.
func replaceFile(src, dst string) error {
	s, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return err
	}
	d, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(s, d, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}
