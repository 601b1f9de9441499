//go:build windows

package proc

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sys/windows"
)

// openLimited opens a query-only handle to the process. A false return
// with a nil error means no such process exists.
func openLimited(pid int64) (windows.Handle, bool, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	return h, true, nil
}

// Alive reports whether the process exists and has not exited yet,
// following the same handle dance as QLockFile on Windows.
func (System) Alive(pid int64) (bool, error) {
	h, ok, err := openLimited(pid)
	if err != nil || !ok {
		return false, err
	}
	defer windows.CloseHandle(h)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(h, &exitCode); err != nil {
		return false, fmt.Errorf("GetExitCodeProcess(%d): %w", pid, err)
	}
	return exitCode == uint32(windows.STILL_ACTIVE), nil
}

// StartTime returns the process creation time.
func (System) StartTime(pid int64) (time.Time, bool, error) {
	h, ok, err := openLimited(pid)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	defer windows.CloseHandle(h)

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h, &creation, &exit, &kernel, &user); err != nil {
		return time.Time{}, false, fmt.Errorf("GetProcessTimes(%d): %w", pid, err)
	}
	return time.Unix(0, creation.Nanoseconds()), true, nil
}

// Name returns the executable name of the process with the given pid,
// or "" if no such process is running.
func (System) Name(pid int64) (string, error) {
	h, ok, err := openLimited(pid)
	if err != nil || !ok {
		return "", err
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName(%d): %w", pid, err)
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}
