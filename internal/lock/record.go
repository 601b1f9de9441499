package lock

import (
	"strconv"
	"strings"
	"time"

	"github.com/decibelvc/dirlock/internal/errors"
)

// Record is the ownership fingerprint persisted in a sentinel file. It
// identifies the process that wrote the lock precisely enough to survive
// PID reuse: the pid alone is ambiguous on long-lived systems, so the
// holder's own start time is part of the record.
type Record struct {
	// DisplayName is the human-readable name of the holder's user. May
	// be empty.
	DisplayName string

	// LoginName is the login name of the holder's user.
	LoginName string

	// HostName is the machine the holder runs on.
	HostName string

	// PID is the holder's process id at acquisition time.
	PID int64

	// ProcessStartTime is the start time of the holder process itself.
	ProcessStartTime time.Time

	// LockTime is when the sentinel was written.
	LockTime time.Time
}

// Sentinel file layout, one field per line, fixed order. Writers always
// emit all six lines; readers tolerate records without the lock-time
// line and ignore unknown trailing lines.
const (
	lineDisplayName = iota
	lineLoginName
	lineHostName
	linePID
	lineProcessStartTime
	lineLockTime

	recordLines    = 6
	minRecordLines = 5
)

// timeLayout is RFC 3339 in UTC with second resolution, matching the
// ISO-8601 timestamps of the on-disk format.
const timeLayout = time.RFC3339

// Encode serializes the record into the line-oriented sentinel format.
// Embedded newlines in string fields are stripped so the record always
// occupies exactly six lines.
func (r Record) Encode() []byte {
	lines := []string{
		stripNewlines(r.DisplayName),
		stripNewlines(r.LoginName),
		stripNewlines(r.HostName),
		strconv.FormatInt(r.PID, 10),
		r.ProcessStartTime.UTC().Format(timeLayout),
		r.LockTime.UTC().Format(timeLayout),
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// DecodeRecord parses sentinel file content. A record with fewer than
// five lines, a non-numeric pid, or unparseable timestamps is rejected
// as ErrMalformedRecord; it is never silently defaulted.
func DecodeRecord(data []byte) (Record, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(content, "\n")

	// A trailing newline yields one empty trailing element; drop it so
	// it does not count as a lock-time line.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	if len(lines) < minRecordLines {
		return Record{}, errors.Wrapf(errors.ErrMalformedRecord,
			"sentinel has %d lines, need at least %d", len(lines), minRecordLines)
	}

	pid, err := strconv.ParseInt(strings.TrimSpace(lines[linePID]), 10, 64)
	if err != nil {
		return Record{}, errors.Wrapf(errors.ErrMalformedRecord,
			"pid field %q is not an integer", lines[linePID])
	}

	start, err := parseTimestamp(lines[lineProcessStartTime])
	if err != nil {
		return Record{}, errors.Wrapf(errors.ErrMalformedRecord,
			"process start time %q is not a timestamp", lines[lineProcessStartTime])
	}

	rec := Record{
		DisplayName:      lines[lineDisplayName],
		LoginName:        lines[lineLoginName],
		HostName:         lines[lineHostName],
		PID:              pid,
		ProcessStartTime: start,
	}

	if len(lines) > lineLockTime {
		lockTime, err := parseTimestamp(lines[lineLockTime])
		if err != nil {
			return Record{}, errors.Wrapf(errors.ErrMalformedRecord,
				"lock time %q is not a timestamp", lines[lineLockTime])
		}
		rec.LockTime = lockTime
	}

	return rec, nil
}

// parseTimestamp accepts RFC 3339 and, for tolerance with older
// writers, the same layout without a zone designator (read as UTC).
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
}

func stripNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}
