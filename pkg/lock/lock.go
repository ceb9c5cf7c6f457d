// Package lock defines lease locks shared between otherwise
// uncoordinated processes through a common medium.
package lock

import (
	"context"
	"time"
)

// Defaults applied by Manager implementations when the corresponding
// option is not provided.
const (
	// DefaultTimeout is how long an Acquire waits for a lease before
	// giving up.
	DefaultTimeout = 5 * time.Second

	// DefaultStale is the age past which an unrefreshed lease is
	// considered abandoned and may be reclaimed by another acquirer.
	DefaultStale = 60 * time.Second

	// DefaultPollInterval is the delay between acquisition attempts while
	// another holder has the lease.
	DefaultPollInterval = 100 * time.Millisecond

	// NoTimeout disables the acquisition deadline entirely. An Acquire
	// using it blocks until the lease is obtained or its context is
	// cancelled.
	NoTimeout time.Duration = -1
)

// Manager creates locks for named resources. Locks produced by the same
// Manager for the same name are independent objects that compete with
// each other through the underlying medium; re-entrancy only applies to
// repeated Acquire calls on the same Lock.
type Manager interface {
	// Create creates an unheld Lock for a specific name. When the
	// WithPersist option carries a previously issued lease id, the lock
	// instead adopts the existing lease and starts out held.
	Create(name string, opts ...Option) (Lock, error)
}

// Lock is a handle to a lease on a named resource shared across multiple
// processes. A Lock tracks whether it believes it holds the lease; the
// medium remains the authority, and a holder that fails to refresh in
// time can lose the lease to another acquirer without notice.
type Lock interface {
	// Acquire attempts to take the lease, blocking until it is obtained,
	// the acquisition deadline passes, or ctx is cancelled. Acquiring a
	// lock that is already held returns immediately.
	//
	// The returned Guard scopes the lease: Guard.Do runs a function with
	// a renewal task keeping the lease fresh and releases on every exit
	// path, while Guard.Close releases the lease only if still held.
	Acquire(ctx context.Context, opts ...AcquireOption) (Guard, error)

	// Extend refreshes the held lease so it is not considered stale for
	// another stale period. Failing with ErrNotFound means the lease was
	// lost to another actor; the caller must not assume continued
	// exclusivity.
	Extend() error

	// Release ends the held lease. Releasing a lock that is not held is
	// an error rather than a no-op; callers wanting idempotent release
	// should use a Guard or check IsLocked first.
	Release() error

	// Keep ensures a background renewal task is refreshing the lease,
	// starting one if none is running. It returns the running Keeper, or
	// nil if the lock is not held. At most one renewal task runs per
	// Lock.
	Keep() Keeper

	// IsLocked returns whether this object believes it holds the lease.
	IsLocked() bool

	// Name returns the name the lock was created for.
	Name() string

	// ID returns the opaque lease id written to the medium while the
	// lease is held. The id can be handed to another process, which
	// adopts the lease by passing it to Create via WithPersist.
	ID() string
}

// Guard scopes a successfully acquired lease.
type Guard interface {
	// Do starts the lock's renewal task, runs fn, and releases the lease
	// when fn returns or panics. An error from fn takes precedence over
	// a release failure.
	Do(fn func() error) error

	// Close releases the lease if it is still held. It is safe to call
	// after the lease has already been released.
	Close() error
}

// Keeper is a handle to a lock's background renewal task.
type Keeper interface {
	// Done returns a channel that is closed when the renewal task exits.
	// The task exits shortly after the lease is released or lost rather
	// than instantaneously.
	Done() <-chan struct{}
}
