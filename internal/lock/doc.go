// Package lock coordinates exclusive access to a directory between
// independent processes, using nothing but the filesystem as the
// communication channel: no OS advisory locks, no daemon, no shared
// memory.
//
// A directory is considered locked when a sentinel file named ".lock"
// exists inside it. The sentinel carries a Record identifying the
// holder (user, host, pid and the holder's own process start time), so
// a reader can distinguish a lock held by a live process from one left
// behind by a crashed holder, even when the pid has since been recycled
// by an unrelated process.
//
// The lock is advisory. There is deliberately no atomicity between
// checking Status and calling Acquire: two processes can both observe a
// free directory and both write the sentinel, with the later writer
// winning silently. Acquire never blocks and never asks the previous
// holder; callers are expected to check Status (or use Open, which does)
// before acquiring. Pretending otherwise would only hide the race, not
// close it.
//
// A Handle is not safe for concurrent use from multiple goroutines;
// callers needing that must serialize access themselves. Across
// processes the sentinel file is the only shared state.
package lock
