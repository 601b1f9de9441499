//go:build unix

package proc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Alive probes the process table with a null signal. This is the same
// technique QLockFile and most PID-file tools use: kill(pid, 0) delivers
// nothing but still performs the existence check.
func (System) Alive(pid int64) (bool, error) {
	err := unix.Kill(int(pid), 0)
	switch err {
	case nil:
		return true, nil
	case unix.ESRCH:
		return false, nil
	case unix.EPERM:
		// The process exists but belongs to someone else.
		return true, nil
	default:
		return false, fmt.Errorf("kill(%d, 0): %w", pid, err)
	}
}
