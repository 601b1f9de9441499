//go:build darwin

package proc

import (
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// StartTime queries the kernel process table via sysctl kern.proc.pid.
func (s System) StartTime(pid int64) (time.Time, bool, error) {
	alive, err := s.Alive(pid)
	if err != nil {
		return time.Time{}, false, err
	}
	if !alive {
		return time.Time{}, false, nil
	}

	kp, err := unix.SysctlKinfoProc("kern.proc.pid", int(pid))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sysctl kern.proc.pid %d: %w", pid, err)
	}

	tv := kp.Proc.P_starttime
	return time.Unix(tv.Sec, int64(tv.Usec)*1000), true, nil
}

// Name returns the executable name of the process with the given pid,
// or "" if no such process is running.
func (s System) Name(pid int64) (string, error) {
	alive, err := s.Alive(pid)
	if err != nil {
		return "", err
	}
	if !alive {
		return "", nil
	}

	kp, err := unix.SysctlKinfoProc("kern.proc.pid", int(pid))
	if err != nil {
		return "", fmt.Errorf("sysctl kern.proc.pid %d: %w", pid, err)
	}

	comm := make([]byte, 0, len(kp.Proc.P_comm))
	for _, c := range kp.Proc.P_comm {
		if c == 0 {
			break
		}
		comm = append(comm, byte(c))
	}
	return filepath.Base(string(comm)), nil
}
