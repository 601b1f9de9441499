// Package sysinfo resolves the identity of the current machine and user.
// All lookups are best-effort: on a degraded system they return empty
// strings rather than failing, since the locking protocol still works as
// long as both sides of a comparison observe the same degraded values.
package sysinfo

import (
	"os"
	"os/user"
	"strings"
)

// Username returns the login name of the current user.
//
// The USERNAME and USER environment variables are consulted first, which
// works on most Unix, Linux, macOS and Windows systems; os/user is the
// fallback for processes running without a login environment.
func Username() string {
	name := strings.TrimSpace(os.Getenv("USERNAME"))
	if name == "" {
		name = strings.TrimSpace(os.Getenv("USER"))
	}
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = strings.TrimSpace(u.Username)
		}
	}
	return sanitize(name)
}

// FullUsername returns the human-readable display name of the current
// user (the GECOS field on Unix, the account display name on Windows).
// May legitimately be empty.
func FullUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	// Some systems keep extra GECOS fields after the display name.
	name := u.Name
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	return sanitize(name)
}

// Hostname returns the host name of this machine.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return sanitize(name)
}

// sanitize trims whitespace and strips embedded newlines so identity
// values can never span lines in the sentinel file.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}
