package lock

import (
	"errors"
	"fmt"
)

// Op identifies the lock operation that failed.
type Op string

const (
	// OpAcquire covers fresh acquisition of a lease.
	OpAcquire Op = "acquire"

	// OpPersist covers adoption of a previously issued lease id.
	OpPersist Op = "persist"

	// OpExtend covers refreshing a held lease.
	OpExtend Op = "extend"

	// OpRelease covers ending a held lease.
	OpRelease Op = "release"
)

// Failure kinds carried by Error and matched with errors.Is.
var (
	// ErrTimeout indicates the acquisition deadline passed while another
	// holder had the lease.
	ErrTimeout = errors.New("timeout waiting for lock")

	// ErrGenerate indicates the lease file could not be created or
	// written.
	ErrGenerate = errors.New("unable to create lock file")

	// ErrRegenerate indicates a stale lease could not be overwritten
	// during a reclaim.
	ErrRegenerate = errors.New("unable to rewrite stale lock file")

	// ErrPersistOS indicates the lease record could not be read while
	// adopting a previously issued lease id.
	ErrPersistOS = errors.New("unable to read lock file")

	// ErrPersistUnmatch indicates the lease record does not carry the
	// lease id being adopted.
	ErrPersistUnmatch = errors.New("lock file does not match lease id")

	// ErrNotAcquired indicates the operation requires a held lease. This
	// is caller misuse rather than a runtime condition.
	ErrNotAcquired = errors.New("lock has not been acquired")

	// ErrNotFound indicates the lease record vanished while the lease
	// was believed held, meaning another actor reclaimed or removed it.
	ErrNotFound = errors.New("lock file does not exist")
)

// Error is a structured lock failure. It carries the failed operation
// and enough identity to locate the lease without consulting logs.
type Error struct {
	// Op is the operation that failed.
	Op Op

	// Name is the lock name.
	Name string

	// Path locates the lease record in the medium.
	Path string

	// ID is the lease id involved, when known.
	ID string

	// Kind categorizes the failure and is matched with errors.Is. It is
	// nil for uncategorized medium failures, which Err alone describes.
	Kind error

	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s lock %q", e.Op, e.Name)
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the failure kind and the underlying cause to
// errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsAcquireError returns whether err came from taking a lease, whether a
// fresh acquisition or a persistent handover.
func IsAcquireError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Op == OpAcquire || e.Op == OpPersist
	}
	return false
}

// IsPersistError returns whether err came from adopting a previously
// issued lease id.
func IsPersistError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Op == OpPersist
	}
	return false
}
