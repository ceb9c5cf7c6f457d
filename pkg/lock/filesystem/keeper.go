package filesystem

import (
	"time"

	"github.com/pkg/errors"

	"github.com/webscrapbook/wsb-server/pkg/lock"
	"github.com/webscrapbook/wsb-server/pkg/retry"
)

// keepFactor sets the renewal interval relative to the stale threshold,
// leaving a held lease several refresh attempts before it could be
// reclaimed.
const keepFactor = 0.2

// errLeaseReleased stops the renewal loop once the lease is no longer
// held by this object.
var errLeaseReleased = errors.New("lease released")

type keeper struct {
	done chan struct{}
}

// Done implements lock.Keeper.
func (k *keeper) Done() <-chan struct{} {
	return k.done
}

// Keep implements lock.Lock. It is idempotent: while a renewal task is
// running its handle is returned instead of starting another, and a nil
// Keeper is returned when the lock is not held.
func (l *Lock) Keep() lock.Keeper {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.keeper != nil {
		return l.keeper
	}
	if !l.held {
		return nil
	}

	k := &keeper{done: make(chan struct{})}
	l.keeper = k
	go l.keepFresh(k)

	return k
}

// keepFresh periodically refreshes the lease until it is released or
// lost. Transient extend failures are logged and retried on the next
// cycle; losing the lease file stops the task. The keeper handle is
// cleared on exit so a later Keep can start a fresh task if the lease is
// acquired again.
func (l *Lock) keepFresh(k *keeper) {
	defer close(k.done)
	defer func() {
		l.mu.Lock()
		if l.keeper == k {
			l.keeper = nil
		}
		l.mu.Unlock()
	}()

	interval := time.Duration(keepFactor * float64(l.stale))

	err := retry.Loop(
		func() error {
			time.Sleep(interval)

			// A release and a re-acquisition between wakeups both take
			// effect here: the task only stops once it observes the
			// lease not held.
			if !l.IsLocked() {
				return errLeaseReleased
			}

			return l.Extend()
		},
		retry.NonRetriableErrors(errLeaseReleased, lock.ErrNotFound, lock.ErrNotAcquired),
		func(attempts uint, err error) bool {
			l.log.WithError(err).Warn("Failed to extend lock, retrying next cycle")
			return true
		},
	)

	l.logKeeperExit(err)
}

// logKeeperExit reports why the renewal task stopped. A release
// observed by the loop or by Extend is routine. An extend failure with
// the held flag already cleared means a release won the race against an
// in-flight extend, so the lease file was legitimately gone. Anything
// else means the lease was lost while we still claimed it.
func (l *Lock) logKeeperExit(err error) {
	if err == nil || errors.Is(err, errLeaseReleased) || errors.Is(err, lock.ErrNotAcquired) {
		return
	}

	if !l.IsLocked() {
		l.log.WithError(err).Debug("Lock keeper exiting after release")
		return
	}

	l.log.WithError(err).Warn("Lock keeper exiting without a lease")
}
