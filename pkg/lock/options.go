package lock

import "time"

// Options configures a Lock at creation time. Implementations seed it
// with their defaults before applying the caller's options.
type Options struct {
	// Timeout is the lock's default acquisition deadline. A negative
	// value (see NoTimeout) blocks indefinitely.
	Timeout time.Duration

	// Stale is the age past which the lease may be reclaimed by another
	// acquirer.
	Stale time.Duration

	// Persist is a previously issued lease id to adopt in place of a
	// fresh acquisition.
	Persist string
}

// Option configures a Lock created by a Manager.
type Option func(o *Options)

// WithTimeout sets the lock's default acquisition deadline, overridable
// per call with WithAcquireTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithStale sets the age past which the lease counts as abandoned.
func WithStale(stale time.Duration) Option {
	return func(o *Options) {
		o.Stale = stale
	}
}

// WithPersist adopts a lease established elsewhere. The id must match
// what the medium currently records for the name, and the created lock
// starts out held without touching the medium.
func WithPersist(id string) Option {
	return func(o *Options) {
		o.Persist = id
	}
}

// AcquireOptions configures a single Acquire call. It is seeded from the
// lock's configuration before the caller's options are applied.
type AcquireOptions struct {
	// Timeout is the acquisition deadline for this call.
	Timeout time.Duration

	// PollInterval is the delay between acquisition attempts.
	PollInterval time.Duration
}

// AcquireOption configures a single Acquire call.
type AcquireOption func(o *AcquireOptions)

// WithAcquireTimeout overrides the lock's acquisition deadline for one
// call. Zero permits a single attempt; NoTimeout blocks until the lease
// is obtained or the context is cancelled.
func WithAcquireTimeout(timeout time.Duration) AcquireOption {
	return func(o *AcquireOptions) {
		o.Timeout = timeout
	}
}

// WithPollInterval overrides the delay between acquisition attempts for
// one call.
func WithPollInterval(interval time.Duration) AcquireOption {
	return func(o *AcquireOptions) {
		o.PollInterval = interval
	}
}
