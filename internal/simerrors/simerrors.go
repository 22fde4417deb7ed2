// Package simerrors defines a three-tier error taxonomy as an error
// code enum plus a structured error type, scoped to the simulator's
// own failure modes.
package simerrors

import "fmt"

// Code classifies a simulator failure into one of three tiers.
type Code string

const (
	// CodeProgrammingError covers unknown operation kinds, unknown
	// message kinds, and missing destination replicas: corrupt
	// workload or a mismatched algorithm. The scheduler aborts the run.
	CodeProgrammingError Code = "PROGRAMMING_ERROR"

	// CodeWorkloadInconsistency covers an origin id outside the
	// replica set; recovered by remapping, never fatal.
	CodeWorkloadInconsistency Code = "WORKLOAD_INCONSISTENCY"

	// CodeStaleProtocolState covers ACKs for retired rumors, stale
	// digests/records: tolerated and ignored by design, never surfaced
	// as a Go error at all (kept here only to document the taxonomy).
	CodeStaleProtocolState Code = "STALE_PROTOCOL_STATE"
)

// Error is a structured simulator failure.
type Error struct {
	Code    Code
	Message string
	Tick    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at tick %d: %s", e.Code, e.Tick, e.Message)
}

// Fatal reports whether the scheduler must abort the run on this error.
func (e *Error) Fatal() bool {
	return e.Code == CodeProgrammingError
}

// Programming builds a fatal programming-error failure.
func Programming(tick int, format string, args ...interface{}) *Error {
	return &Error{Code: CodeProgrammingError, Message: fmt.Sprintf(format, args...), Tick: tick}
}
