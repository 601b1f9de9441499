package lock

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelvc/dirlock/internal/errors"
	"github.com/decibelvc/dirlock/internal/logger"
)

// fakeOracle is a deterministic process table for tests.
type fakeOracle struct {
	procs map[int64]time.Time
	err   error
}

func (f fakeOracle) Alive(pid int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.procs[pid]
	return ok, nil
}

func (f fakeOracle) StartTime(pid int64) (time.Time, bool, error) {
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	start, ok := f.procs[pid]
	return start, ok, nil
}

var (
	aliceStart = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	bobStart   = time.Date(2026, 8, 1, 9, 5, 0, 0, time.UTC)

	alice = Identity{
		DisplayName: "Alice Archer",
		LoginName:   "alice",
		HostName:    "workbench",
		PID:         101,
		StartTime:   aliceStart,
	}
	bob = Identity{
		DisplayName: "Bob Builder",
		LoginName:   "alice", // same account, different process
		HostName:    "workbench",
		PID:         202,
		StartTime:   bobStart,
	}
)

// table returns an oracle that knows both test processes.
func table() fakeOracle {
	return fakeOracle{procs: map[int64]time.Time{
		alice.PID: aliceStart,
		bob.PID:   bobStart,
	}}
}

func newHandle(t *testing.T, dir string, id Identity, o fakeOracle) *Handle {
	t.Helper()
	return New(dir,
		WithIdentity(id),
		WithOracle(o),
		WithLogger(logger.Silent()),
	)
}

func TestStatusUnlockedOnFreshDir(t *testing.T) {
	h := newHandle(t, t.TempDir(), alice, table())

	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusUnlocked, st)
}

func TestAcquireThenStatusLocked(t *testing.T) {
	dir := t.TempDir()
	h := newHandle(t, dir, alice, table())

	require.NoError(t, h.Acquire())
	assert.True(t, h.Owns())

	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, st, "a lock written by a live process is Locked, also for the writer itself")
}

func TestAcquireReleaseRemovesSentinel(t *testing.T) {
	dir := t.TempDir()
	h := newHandle(t, dir, alice, table())

	require.NoError(t, h.Acquire())
	require.FileExists(t, h.SentinelPath())

	require.NoError(t, h.Release())
	assert.False(t, h.Owns())
	assert.NoFileExists(t, h.SentinelPath())

	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusUnlocked, st)
}

func TestReleaseIdempotent(t *testing.T) {
	h := newHandle(t, t.TempDir(), alice, table())

	require.NoError(t, h.Acquire())
	require.NoError(t, h.Release())
	require.NoError(t, h.Release(), "releasing an absent sentinel is not an error")
}

func TestCloseReleasesOwnedLock(t *testing.T) {
	dir := t.TempDir()
	h := newHandle(t, dir, alice, table())

	require.NoError(t, h.Acquire())
	require.NoError(t, h.Close())

	assert.False(t, h.Owns())
	assert.NoFileExists(t, filepath.Join(dir, SentinelName))
}

func TestCloseDoesNotRemoveForeignSentinel(t *testing.T) {
	dir := t.TempDir()
	h := newHandle(t, dir, alice, table())

	require.NoError(t, h.Acquire())
	require.NoError(t, h.Release())

	// An unrelated writer takes the lock after our release.
	other := newHandle(t, dir, bob, table())
	require.NoError(t, other.Acquire())

	require.NoError(t, h.Close())
	assert.FileExists(t, filepath.Join(dir, SentinelName),
		"a closed handle without ownership must not touch someone else's sentinel")
}

func TestAcquireSteals(t *testing.T) {
	dir := t.TempDir()
	a := newHandle(t, dir, alice, table())
	b := newHandle(t, dir, bob, table())

	require.NoError(t, a.Acquire())
	require.NoError(t, b.Acquire(), "acquire never blocks and never asks the holder")

	stA, err := a.Status()
	require.NoError(t, err)
	stB, err := b.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, stA)
	assert.Equal(t, StatusLocked, stB)

	rec, err := b.Holder()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, bob.PID, rec.PID, "the sentinel reflects the later writer")
}

func TestStatusStaleWhenHolderGone(t *testing.T) {
	dir := t.TempDir()
	writer := newHandle(t, dir, bob, table())
	require.NoError(t, writer.Acquire())

	// Re-evaluate with a process table where bob's pid no longer exists.
	empty := fakeOracle{procs: map[int64]time.Time{alice.PID: aliceStart}}
	h := newHandle(t, dir, alice, empty)

	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusStale, st)
}

func TestStatusStaleOnPIDReuse(t *testing.T) {
	dir := t.TempDir()
	writer := newHandle(t, dir, bob, table())
	require.NoError(t, writer.Acquire())

	// A different process now occupies bob's pid: same number, start
	// time far from the recorded one.
	recycled := fakeOracle{procs: map[int64]time.Time{
		alice.PID: aliceStart,
		bob.PID:   bobStart.Add(2 * time.Hour),
	}}
	h := newHandle(t, dir, alice, recycled)

	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusStale, st, "a recycled pid must not count as the original holder")
}

func TestStatusLockedWithinStartTimeTolerance(t *testing.T) {
	dir := t.TempDir()
	writer := newHandle(t, dir, bob, table())
	require.NoError(t, writer.Acquire())

	// Timestamp resolution skew of a second or two must not unlock a
	// live holder.
	skewed := fakeOracle{procs: map[int64]time.Time{
		bob.PID: bobStart.Add(2 * time.Second),
	}}
	h := newHandle(t, dir, alice, skewed)

	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, st)
}

func TestStatusLockedForOtherUserOrHost(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
	}{
		{"other login", Identity{LoginName: "mallory", HostName: "workbench", PID: 900}},
		{"other host", Identity{LoginName: "alice", HostName: "elsewhere", PID: 900}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writer := newHandle(t, dir, tt.id, fakeOracle{procs: map[int64]time.Time{}})
			require.NoError(t, writer.Acquire())

			// Pid 900 is dead in this table, but the holder is on a
			// different account/host and cannot be introspected.
			h := newHandle(t, dir, alice, table())
			st, err := h.Status()
			require.NoError(t, err)
			assert.Equal(t, StatusLocked, st)
		})
	}
}

func TestStatusMalformedSentinel(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"too few lines", "alice\nworkbench\n"},
		{"bad pid", "Alice\nalice\nworkbench\nNaN\n2026-08-01T09:00:00Z\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, SentinelName), []byte(tt.content), 0644))

			h := newHandle(t, dir, alice, table())
			_, err := h.Status()
			assert.ErrorIs(t, err, errors.ErrMalformedRecord)

			err = h.Acquire()
			assert.ErrorIs(t, err, errors.ErrMalformedRecord,
				"acquire must not silently replace a corrupt sentinel")
		})
	}
}

func TestLivenessFailureIsSurfaced(t *testing.T) {
	dir := t.TempDir()
	writer := newHandle(t, dir, bob, table())
	require.NoError(t, writer.Acquire())

	broken := fakeOracle{err: os.ErrPermission}
	h := newHandle(t, dir, alice, broken)

	_, err := h.Status()
	assert.ErrorIs(t, err, errors.ErrLivenessQuery,
		"a failed probe must never be coerced into Locked or Stale")
}

func TestNonexistentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ghost")
	h := newHandle(t, dir, alice, table())

	_, err := h.Status()
	assert.ErrorIs(t, err, errors.ErrTargetMissing)
	assert.ErrorIs(t, h.Acquire(), errors.ErrTargetMissing)
	assert.ErrorIs(t, h.Release(), errors.ErrTargetMissing)
}

func TestTargetIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	h := newHandle(t, file, alice, table())
	_, err := h.Status()
	assert.ErrorIs(t, err, errors.ErrTargetMissing)
	assert.ErrorIs(t, h.Acquire(), errors.ErrTargetMissing)
}

func TestUnboundHandle(t *testing.T) {
	h := New("", WithIdentity(alice), WithOracle(table()), WithLogger(logger.Silent()))

	_, err := h.Status()
	assert.ErrorIs(t, err, errors.ErrTargetMissing)
	assert.ErrorIs(t, h.Acquire(), errors.ErrTargetMissing)
	assert.ErrorIs(t, h.Release(), errors.ErrTargetMissing)
}

func TestRebindWhileOwnedFails(t *testing.T) {
	dir := t.TempDir()
	h := newHandle(t, dir, alice, table())
	require.NoError(t, h.Acquire())

	err := h.Bind(t.TempDir())
	assert.ErrorIs(t, err, errors.ErrRebindWhileLocked)
	assert.Equal(t, dir, h.Dir(), "a failed rebind must not change the target")

	require.NoError(t, h.Release())
	assert.NoError(t, h.Bind(t.TempDir()), "rebinding is fine once the lock is released")
}

// TestCheckThenAcquireRace documents the deliberate race window of the
// advisory protocol: two processes can both observe a free directory
// and both acquire, the later writer winning silently.
func TestCheckThenAcquireRace(t *testing.T) {
	dir := t.TempDir()
	a := newHandle(t, dir, alice, table())
	b := newHandle(t, dir, bob, table())

	stA, err := a.Status()
	require.NoError(t, err)
	stB, err := b.Status()
	require.NoError(t, err)
	require.Equal(t, StatusUnlocked, stA)
	require.Equal(t, StatusUnlocked, stB)

	require.NoError(t, a.Acquire())
	require.NoError(t, b.Acquire())

	assert.True(t, a.Owns(), "both handles believe they own the lock")
	assert.True(t, b.Owns())

	rec, err := a.Holder()
	require.NoError(t, err)
	assert.Equal(t, bob.PID, rec.PID, "only the later writer's record survives")
}

func TestOpenUnlocked(t *testing.T) {
	dir := t.TempDir()

	h, err := Open(dir,
		WithIdentity(alice), WithOracle(table()), WithLogger(logger.Silent()))
	require.NoError(t, err)
	defer h.Close()

	assert.True(t, h.Owns())
	assert.FileExists(t, filepath.Join(dir, SentinelName))
}

func TestOpenAlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	holder := newHandle(t, dir, bob, table())
	require.NoError(t, holder.Acquire())

	_, err := Open(dir,
		WithIdentity(alice), WithOracle(table()), WithLogger(logger.Silent()))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyLocked)

	var lockErr *errors.LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, bob.PID, lockErr.PID, "the error names the holder")
}

func TestOpenStealsStaleLockWithWarning(t *testing.T) {
	dir := t.TempDir()
	writer := newHandle(t, dir, bob, table())
	require.NoError(t, writer.Acquire())

	var buf bytes.Buffer
	log := logger.New(logger.LevelWarn, &buf)

	// Bob's process is gone from this table.
	dead := fakeOracle{procs: map[int64]time.Time{alice.PID: aliceStart}}
	h, err := Open(dir, WithIdentity(alice), WithOracle(dead), WithLogger(log))
	require.NoError(t, err)
	defer h.Close()

	assert.True(t, h.Owns())
	assert.Contains(t, buf.String(), "stale lock", "stealing must be surfaced as a warning")

	rec, err := h.Holder()
	require.NoError(t, err)
	assert.Equal(t, alice.PID, rec.PID)
}

func TestOpenPropagatesStatusErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SentinelName), []byte("junk\n"), 0644))

	_, err := Open(dir,
		WithIdentity(alice), WithOracle(table()), WithLogger(logger.Silent()))
	assert.ErrorIs(t, err, errors.ErrMalformedRecord)
}

// The remaining tests run against the real process table instead of a
// fabricated one.

func TestAcquireWithSystemOracle(t *testing.T) {
	h := New(t.TempDir(), WithLogger(logger.Silent()))

	require.NoError(t, h.Acquire())
	defer h.Close()

	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, st, "our own live lock must read as Locked")
}

func TestStatusStaleWithSystemOracle(t *testing.T) {
	dir := t.TempDir()
	id := CurrentIdentity()
	rec := Record{
		LoginName:        id.LoginName,
		HostName:         id.HostName,
		PID:              1 << 30, // far above any default kernel pid limit
		ProcessStartTime: time.Now().UTC(),
		LockTime:         time.Now().UTC(),
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, SentinelName), rec.Encode(), 0644))

	h := New(dir, WithLogger(logger.Silent()))
	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusStale, st)
}

func TestPIDReuseWithSystemOracle(t *testing.T) {
	dir := t.TempDir()
	id := CurrentIdentity()
	rec := Record{
		LoginName:        id.LoginName,
		HostName:         id.HostName,
		PID:              id.PID, // a live pid...
		ProcessStartTime: id.StartTime.Add(-time.Hour), // ...with the wrong start time
		LockTime:         time.Now().UTC(),
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, SentinelName), rec.Encode(), 0644))

	h := New(dir, WithLogger(logger.Silent()))
	st, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusStale, st,
		"a live process on the recorded pid is not the holder if the start time disagrees")
}

func TestCurrentIdentity(t *testing.T) {
	id := CurrentIdentity()
	assert.Equal(t, int64(os.Getpid()), id.PID)
	assert.NotEmpty(t, id.LoginName)
	assert.NotEmpty(t, id.HostName)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unlocked", StatusUnlocked.String())
	assert.Equal(t, "locked", StatusLocked.String())
	assert.Equal(t, "stale", StatusStale.String())
	assert.Equal(t, "unknown", Status(99).String())
}
