//go:build linux

package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// userHz is the kernel's USER_HZ, the unit of the starttime field in
// /proc/<pid>/stat. Fixed at 100 on every supported architecture since
// Linux 2.6 regardless of the scheduler tick rate.
const userHz = 100

// StartTime reads the process start time from /proc/<pid>/stat. The
// value there is in clock ticks since boot, so it is combined with the
// boot time from /proc/stat to get wall-clock time.
func (System) StartTime(pid int64) (time.Time, bool, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read process stat: %w", err)
	}

	ticks, err := startTimeTicks(string(data))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse stat for pid %d: %w", pid, err)
	}

	boot, err := bootTime()
	if err != nil {
		return time.Time{}, false, err
	}

	// Split ticks to keep the arithmetic inside Duration range even on
	// hosts with multi-year uptimes.
	sinceBoot := time.Duration(ticks/userHz)*time.Second +
		time.Duration(ticks%userHz)*(time.Second/userHz)
	return boot.Add(sinceBoot), true, nil
}

// startTimeTicks extracts field 22 (starttime) from a stat line. The
// comm field may contain spaces and parentheses, so fields are counted
// from the last ')'.
func startTimeTicks(stat string) (int64, error) {
	i := strings.LastIndexByte(stat, ')')
	if i < 0 {
		return 0, fmt.Errorf("no comm field in %q", stat)
	}
	fields := strings.Fields(stat[i+1:])
	// fields[0] is field 3 (state), so starttime (field 22) is fields[19].
	if len(fields) < 20 {
		return 0, fmt.Errorf("stat has %d fields after comm, need 20", len(fields))
	}
	return strconv.ParseInt(fields[19], 10, 64)
}

// bootTime returns the btime entry of /proc/stat as wall-clock time.
func bootTime() (time.Time, error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return time.Time{}, fmt.Errorf("read /proc/stat: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if rest, ok := strings.CutPrefix(line, "btime "); ok {
			secs, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse btime: %w", err)
			}
			return time.Unix(secs, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("no btime entry in /proc/stat")
}

// Name returns the executable name of the process with the given pid,
// or "" if no such process is running.
func (System) Name(pid int64) (string, error) {
	target, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("readlink process exe: %w", err)
	}
	// The kernel appends " (deleted)" when the binary was removed while
	// the process keeps running.
	target = strings.TrimSuffix(target, " (deleted)")
	return filepath.Base(target), nil
}
