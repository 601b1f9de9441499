package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/decibelvc/dirlock/internal/errors"
	"github.com/decibelvc/dirlock/internal/logger"
	"github.com/decibelvc/dirlock/internal/proc"
	"github.com/decibelvc/dirlock/internal/sysinfo"
)

// SentinelName is the name of the lock file inside the target
// directory. It is never configurable independently of the target.
const SentinelName = ".lock"

// DefaultStartTimeTolerance bounds how far a process's reported start
// time may drift from the recorded one and still count as the same
// process. Start times come from different clock sources with coarse
// resolution, so exact equality is too strict.
const DefaultStartTimeTolerance = 3 * time.Second

// Status describes the lock state of a directory at a point in time.
// It is always recomputed from the sentinel file and the process table,
// never cached.
type Status int

const (
	// StatusUnlocked means no sentinel file exists.
	StatusUnlocked Status = iota
	// StatusLocked means the sentinel belongs to a live holder (or to a
	// holder on another user/host, which must conservatively be assumed
	// live).
	StatusLocked
	// StatusStale means the sentinel's holder is gone: its pid is free,
	// or occupied by an unrelated process with a different start time.
	StatusStale
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case StatusUnlocked:
		return "unlocked"
	case StatusLocked:
		return "locked"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Identity describes the process on whose behalf a handle operates.
// It is injected explicitly rather than read from ambient OS state so
// tests can fabricate identities deterministically.
type Identity struct {
	DisplayName string
	LoginName   string
	HostName    string
	PID         int64
	StartTime   time.Time
}

// CurrentIdentity resolves the identity of the running process. Fields
// that cannot be determined are left empty or zero; the protocol still
// works with degraded values as long as they stay consistent.
func CurrentIdentity() Identity {
	return Identity{
		DisplayName: sysinfo.FullUsername(),
		LoginName:   sysinfo.Username(),
		HostName:    sysinfo.Hostname(),
		PID:         proc.Self(),
		StartTime:   proc.SelfStartTime(),
	}
}

// Handle is the coordination primitive bound to one target directory.
// The handle's ownership flag is a local cache deciding whether this
// handle is responsible for eventual release; the sentinel file on disk
// is the authoritative shared state.
type Handle struct {
	dir       string
	sentinel  string
	owned     bool
	id        Identity
	oracle    proc.Oracle
	log       *logger.Logger
	tolerance time.Duration
}

// Option configures a Handle.
type Option func(*Handle)

// WithIdentity overrides the identity attributed to acquired locks.
func WithIdentity(id Identity) Option {
	return func(h *Handle) { h.id = id }
}

// WithOracle overrides the process liveness oracle.
func WithOracle(o proc.Oracle) Option {
	return func(h *Handle) { h.oracle = o }
}

// WithLogger overrides the logger used for teardown diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handle) { h.log = l }
}

// WithStartTimeTolerance overrides the start-time comparison tolerance.
func WithStartTimeTolerance(d time.Duration) Option {
	return func(h *Handle) { h.tolerance = d }
}

// New creates a handle bound to the given directory. An empty dir
// creates an unbound handle; every operation on it fails until Bind is
// called. No I/O happens here.
func New(dir string, opts ...Option) *Handle {
	h := &Handle{
		oracle:    proc.System{},
		log:       logger.Default(),
		tolerance: DefaultStartTimeTolerance,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.id == (Identity{}) {
		h.id = CurrentIdentity()
	}
	if dir != "" {
		// Binding a fresh handle cannot fail.
		_ = h.Bind(dir)
	}
	return h
}

// Bind points the handle at a target directory and derives the sentinel
// path. It fails only while the handle owns a lock; rebinding then
// would orphan the sentinel this handle is responsible for.
func (h *Handle) Bind(dir string) error {
	if h.owned {
		return errors.ErrRebindWhileLocked
	}
	h.dir = dir
	h.sentinel = filepath.Join(dir, SentinelName)
	return nil
}

// Dir returns the bound target directory, or "" if unbound.
func (h *Handle) Dir() string {
	return h.dir
}

// SentinelPath returns the derived lock file path, or "" if unbound.
func (h *Handle) SentinelPath() string {
	if h.dir == "" {
		return ""
	}
	return h.sentinel
}

// Owns reports whether this handle acquired the current lock and has
// not released it yet.
func (h *Handle) Owns() bool {
	return h.owned
}

// checkTarget verifies that the bound target exists and is a directory.
// A lock is meaningless on anything else.
func (h *Handle) checkTarget() error {
	if h.dir == "" {
		return errors.Wrap(errors.ErrTargetMissing, "no directory bound to this handle")
	}
	info, err := os.Stat(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(errors.ErrTargetMissing, "%s", h.dir)
		}
		return fmt.Errorf("stat %s: %w", h.dir, err)
	}
	if !info.IsDir() {
		return errors.Wrapf(errors.ErrTargetMissing, "%s is not a directory", h.dir)
	}
	return nil
}

// Status derives the current lock state from the sentinel file and the
// process table.
func (h *Handle) Status() (Status, error) {
	st, _, err := h.status()
	return st, err
}

// Holder returns the decoded sentinel record, or nil when the directory
// is unlocked.
func (h *Handle) Holder() (*Record, error) {
	if err := h.checkTarget(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(h.sentinel)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewLockError(h.sentinel, 0, err)
	}
	rec, err := DecodeRecord(data)
	if err != nil {
		return nil, errors.NewLockError(h.sentinel, 0, err)
	}
	return &rec, nil
}

func (h *Handle) status() (Status, *Record, error) {
	rec, err := h.Holder()
	if err != nil {
		return StatusUnlocked, nil, err
	}
	if rec == nil {
		return StatusUnlocked, nil, nil
	}

	st, err := h.evaluate(rec)
	if err != nil {
		return StatusUnlocked, rec, err
	}
	return st, rec, nil
}

// evaluate applies the staleness algorithm to a parsed record.
func (h *Handle) evaluate(rec *Record) (Status, error) {
	// A holder on another user account or host cannot be introspected
	// from here, so it must conservatively be assumed alive.
	if rec.LoginName != h.id.LoginName || rec.HostName != h.id.HostName {
		return StatusLocked, nil
	}

	alive, err := h.oracle.Alive(rec.PID)
	if err != nil {
		return StatusUnlocked, fmt.Errorf("%w: %w", errors.ErrLivenessQuery, err)
	}
	if !alive {
		return StatusStale, nil
	}

	start, running, err := h.oracle.StartTime(rec.PID)
	if err != nil {
		return StatusUnlocked, fmt.Errorf("%w: %w", errors.ErrLivenessQuery, err)
	}
	if !running {
		// The process vanished between the two probes.
		return StatusStale, nil
	}

	// A live process occupies the recorded pid. Only a matching start
	// time proves it is the original holder rather than a pid recycled
	// to an unrelated process.
	delta := start.Sub(rec.ProcessStartTime)
	if delta < 0 {
		delta = -delta
	}
	if delta <= h.tolerance {
		return StatusLocked, nil
	}
	return StatusStale, nil
}

// Acquire writes a fresh record for this process, overwriting any prior
// sentinel content. It shares Status's preconditions (the target must
// exist, an existing sentinel must be parseable) but never consults the
// previous holder's willingness: it unconditionally steals. The only
// guard against split-brain is checking Status first.
func (h *Handle) Acquire() error {
	if err := h.checkTarget(); err != nil {
		return err
	}

	// Refuse to silently replace a sentinel that cannot be understood;
	// corruption is for the user to resolve, not for us to paper over.
	if data, err := os.ReadFile(h.sentinel); err == nil {
		if _, derr := DecodeRecord(data); derr != nil {
			return errors.NewLockError(h.sentinel, 0, derr)
		}
	} else if !os.IsNotExist(err) {
		return errors.NewLockError(h.sentinel, 0, err)
	}

	rec := Record{
		DisplayName:      h.id.DisplayName,
		LoginName:        h.id.LoginName,
		HostName:         h.id.HostName,
		PID:              h.id.PID,
		ProcessStartTime: h.id.StartTime,
		LockTime:         time.Now().UTC(),
	}
	if err := os.WriteFile(h.sentinel, rec.Encode(), 0644); err != nil {
		return errors.NewLockError(h.sentinel, 0, err)
	}

	h.owned = true
	return nil
}

// Release removes the sentinel file. Removing an already absent
// sentinel is not an error; release is idempotent. On success the
// ownership flag is cleared whether or not the file existed.
func (h *Handle) Release() error {
	if err := h.checkTarget(); err != nil {
		return err
	}
	if err := os.Remove(h.sentinel); err != nil && !os.IsNotExist(err) {
		return errors.NewLockError(h.sentinel, 0, err)
	}
	h.owned = false
	return nil
}

// Close releases the lock if this handle still owns it. It is meant for
// defer: a failure here is logged, not returned, because teardown paths
// must not grow new failure surfaces. Always returns nil.
func (h *Handle) Close() error {
	if !h.owned {
		return nil
	}
	if err := h.Release(); err != nil {
		h.log.Error("could not remove lock file %s: %v", h.sentinel, err)
		h.owned = false
	}
	return nil
}

// Open is the idiomatic entry point for collaborators: bind to dir,
// check the status, and acquire when possible. A directory locked by a
// live holder yields ErrAlreadyLocked (wrapped in a LockError naming
// the holder pid); a stale lock is stolen with a warning.
func Open(dir string, opts ...Option) (*Handle, error) {
	h := New(dir, opts...)

	st, rec, err := h.status()
	if err != nil {
		return nil, err
	}

	switch st {
	case StatusLocked:
		return nil, errors.NewLockError(h.sentinel, rec.PID, errors.ErrAlreadyLocked)
	case StatusStale:
		h.log.WithField("dir", h.dir).Warn(
			"replacing stale lock left by pid %d (locked at %s)",
			rec.PID, rec.LockTime.Format(time.RFC3339))
	}

	if err := h.Acquire(); err != nil {
		return nil, err
	}
	return h, nil
}
