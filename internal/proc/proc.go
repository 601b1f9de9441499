// Package proc answers liveness questions about processes by PID.
//
// The same PID can be recycled by the operating system for an unrelated
// process, so PID existence alone is never a sufficient fingerprint; the
// process start time is exposed so callers can cross-check it.
package proc

import (
	"os"
	"time"
)

// Oracle reports the existence and start time of processes.
//
// Implementations must distinguish three outcomes for every query:
// running, not running, and cannot-determine. The last is always an
// error, never coerced into a boolean.
type Oracle interface {
	// Alive reports whether a process with the given pid currently exists.
	Alive(pid int64) (bool, error)

	// StartTime returns the start time of the process with the given pid.
	// The boolean is false when no such process is running, which is not
	// an error.
	StartTime(pid int64) (time.Time, bool, error)
}

// System is the Oracle backed by the host operating system. The zero
// value is ready to use.
type System struct{}

var _ Oracle = System{}

// Self returns the pid of the current process.
func Self() int64 {
	return int64(os.Getpid())
}

// SelfStartTime returns the start time of the current process, or the
// zero time if it cannot be determined.
func SelfStartTime() time.Time {
	t, ok, err := System{}.StartTime(Self())
	if err != nil || !ok {
		return time.Time{}
	}
	return t
}
