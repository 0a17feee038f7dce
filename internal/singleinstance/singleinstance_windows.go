//go:build windows

// Package singleinstance provides single instance control for the application.
package singleinstance

import (
	"errors"
	"fmt"

	"github.com/graaaaa/suiticket-companion/internal/appinfo"
	"golang.org/x/sys/windows"
)

// AcquireLock creates the session-scoped named mutex appinfo.MutexName.
// ok is false when another instance in the same session already holds it.
// lockPath is ignored on Windows.
func AcquireLock(lockPath string) (release func(), ok bool, err error) {
	name, err := windows.UTF16PtrFromString(appinfo.MutexName)
	if err != nil {
		return nil, false, fmt.Errorf("mutex name: %w", err)
	}

	h, err := windows.CreateMutex(nil, false, name)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		// CreateMutex still hands back a handle to the existing mutex.
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create mutex: %w", err)
	}

	return func() { _ = windows.CloseHandle(h) }, true, nil
}
