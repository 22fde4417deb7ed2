// Package runid generates and parses the unique identifier stamped on
// every simulation run, used to tag log lines so concurrent runs don't
// interleave. Output directories are not named after it.
package runid

import "github.com/google/uuid"

// New returns a fresh run identifier.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s looks like a run identifier produced by New.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
