package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for the lock taxonomy. Callers branch on these with
// errors.Is rather than matching message text.
var (
	// ErrTargetMissing indicates the directory to lock does not exist
	ErrTargetMissing = errors.New("target directory does not exist")

	// ErrMalformedRecord indicates a sentinel file exists but cannot be parsed
	ErrMalformedRecord = errors.New("malformed lock record")

	// ErrAlreadyLocked indicates the directory is locked by another live process
	ErrAlreadyLocked = errors.New("directory is locked by another process")

	// ErrLivenessQuery indicates the holder process state could not be determined
	ErrLivenessQuery = errors.New("could not determine if holder process is running")

	// ErrRebindWhileLocked indicates a handle was rebound while owning a lock
	ErrRebindWhileLocked = errors.New("cannot rebind a handle that owns a lock")
)

// Wrap wraps an error with a message for better context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message for better context.
func Wrapf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether target is in err's chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// LockError describes a failure while interacting with a lock sentinel.
// It carries the sentinel path and, when known, the holder PID.
type LockError struct {
	Path string
	PID  int64
	Err  error
}

// Error implements the error interface.
func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("lock %s (held by PID %d): %v", e.Path, e.PID, e.Err)
	}
	return fmt.Sprintf("lock %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LockError) Unwrap() error {
	return e.Err
}

// NewLockError creates a LockError for the given sentinel path.
func NewLockError(path string, pid int64, err error) *LockError {
	return &LockError{Path: path, PID: pid, Err: err}
}

// ExitCode represents a dirlock CLI exit code
type ExitCode int

const (
	// ExitSuccess is the success exit code
	ExitSuccess ExitCode = 0

	// Target errors (10-19)
	ExitTargetMissing ExitCode = 10

	// Record errors (20-29)
	ExitMalformedRecord ExitCode = 20

	// Contention errors (30-39)
	ExitAlreadyLocked ExitCode = 30

	// Probing errors (40-49)
	ExitLivenessQuery ExitCode = 40

	// I/O errors (50-59)
	ExitIoFailure ExitCode = 50
)

// CodeFor maps an error to the CLI exit code for its kind.
func CodeFor(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrTargetMissing):
		return ExitTargetMissing
	case errors.Is(err, ErrMalformedRecord):
		return ExitMalformedRecord
	case errors.Is(err, ErrAlreadyLocked):
		return ExitAlreadyLocked
	case errors.Is(err, ErrLivenessQuery):
		return ExitLivenessQuery
	default:
		return ExitIoFailure
	}
}

// JSONError represents the JSON format for CLI errors
type JSONError struct {
	Error string   `json:"error"`
	Code  ExitCode `json:"code"`
	Hint  string   `json:"hint,omitempty"`
}

// HintFor returns a recovery hint for well-known error kinds, or "".
func HintFor(err error) string {
	switch {
	case errors.Is(err, ErrTargetMissing):
		return "Create the directory first, or check the path for typos."
	case errors.Is(err, ErrMalformedRecord):
		return "The .lock file is corrupt. Inspect it and delete it manually if the holder is gone."
	case errors.Is(err, ErrAlreadyLocked):
		return "Another process has this directory open. Close it there or wait for it to finish."
	default:
		return ""
	}
}

// Handle prints err to stderr (as text or JSON) and exits with the
// mapped code. A nil err is a no-op.
func Handle(err error, useJSON bool) {
	if err == nil {
		return
	}

	code := CodeFor(err)
	if useJSON {
		je := JSONError{
			Error: err.Error(),
			Code:  code,
			Hint:  HintFor(err),
		}
		data, _ := json.MarshalIndent(je, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := HintFor(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
	}
	os.Exit(int(code))
}
