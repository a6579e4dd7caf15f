package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can branch on the kind
// without string matching. Every failing stage returns exactly one kind.
type ErrorKind string

const (
	// KindData marks empty or insufficient market data; fatal, no retry
	KindData ErrorKind = "data"
	// KindInfeasible marks unsatisfiable constraints; names the offending constraint
	KindInfeasible ErrorKind = "infeasible"
	// KindSolver marks numerical solve failures or non-optimal terminal statuses
	KindSolver ErrorKind = "solver"
	// KindConfig marks malformed request parameters, rejected before computation
	KindConfig ErrorKind = "config"
)

// Error is the single structured error type crossing stage boundaries.
// Op names the failing operation, Reason is human readable.
type Error struct {
	Kind   ErrorKind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DataError builds a KindData error.
func DataError(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindData, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// InfeasibleError builds a KindInfeasible error naming the offending constraint.
func InfeasibleError(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInfeasible, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// SolverError builds a KindSolver error.
func SolverError(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindSolver, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ConfigError builds a KindConfig error.
func ConfigError(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a kind and operation, preserving the chain for
// errors.Is/As.
func WrapError(kind ErrorKind, op, reason string, err error) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason, Err: err}
}

// KindOf extracts the error kind from an error chain. Returns the zero kind
// and false when no *Error is present.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
