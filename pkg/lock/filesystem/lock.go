// Package filesystem implements lease locks backed by files in a shared
// directory, letting otherwise uncoordinated processes agree on
// exclusive ownership of a named resource using only atomic filesystem
// operations.
//
// A lease is claimed by exclusively creating <dir>/<md5(name)>.lock with
// the holder's lease id as its content. While the file exists and its
// modification time is fresh, the lease belongs to whoever wrote it.
// Holders refresh the modification time to stay fresh; a lease whose age
// exceeds the stale threshold is considered abandoned, and a waiting
// acquirer reclaims it by overwriting the file with its own id.
//
// Two limitations are inherent to the design. A stale reclaim is a plain
// overwrite rather than an exclusive create, so two acquirers observing
// staleness at the same time can both overwrite the file and both
// believe they won; the id in the file is the only evidence of the
// actual winner. Staleness is also judged against the file's
// modification time, so hosts sharing a lock directory over a network
// filesystem must have reasonably synchronized clocks.
package filesystem

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/webscrapbook/wsb-server/pkg/lock"
)

const (
	// lockFileSuffix terminates every lease file name.
	lockFileSuffix = ".lock"

	// leaseIDLength is the number of random bytes in a lease id.
	leaseIDLength = 32
)

// LockPath returns the lease file path for a lock name. Hashing the name
// keeps arbitrary names safe to use as file names while mapping each
// name to the same path every time.
func LockPath(dir, name string) string {
	digest := md5.Sum([]byte(name))
	return filepath.Join(dir, hex.EncodeToString(digest[:])+lockFileSuffix)
}

// newLeaseID returns a random URL-safe lease id.
func newLeaseID() (string, error) {
	buf := make([]byte, leaseIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate lease id")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// LockManager hands out locks sharing one lock directory and default
// timing configuration.
type LockManager struct {
	log     *logrus.Entry
	dir     string
	timeout time.Duration
	stale   time.Duration
}

// NewLockManager returns a LockManager storing lease files under dir.
// The directory is created lazily on first acquisition. Options set the
// default timeout and stale threshold for created locks; WithPersist is
// meaningless at the manager level and is ignored.
func NewLockManager(dir string, opts ...lock.Option) (*LockManager, error) {
	if dir == "" {
		return nil, errors.New("lock directory is required")
	}

	options := lock.Options{
		Timeout: lock.DefaultTimeout,
		Stale:   lock.DefaultStale,
	}
	for _, o := range opts {
		o(&options)
	}

	return &LockManager{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "filesystem/LockManager",
			"dir":  dir,
		}),
		dir:     dir,
		timeout: options.Timeout,
		stale:   options.Stale,
	}, nil
}

// Create implements lock.Manager.
func (lm *LockManager) Create(name string, opts ...lock.Option) (lock.Lock, error) {
	if name == "" {
		return nil, errors.New("lock name is required")
	}

	options := lock.Options{
		Timeout: lm.timeout,
		Stale:   lm.stale,
	}
	for _, o := range opts {
		o(&options)
	}

	path := LockPath(lm.dir, name)
	l := &Lock{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "filesystem/Lock",
			"name": name,
			"file": path,
		}),
		dir:     lm.dir,
		name:    name,
		path:    path,
		timeout: options.Timeout,
		stale:   options.Stale,
	}

	if options.Persist != "" {
		if err := l.adopt(options.Persist); err != nil {
			return nil, err
		}
		return l, nil
	}

	id, err := newLeaseID()
	if err != nil {
		return nil, err
	}
	l.id = id

	return l, nil
}

// Lock is a lease on a named resource, backed by a file in the manager's
// lock directory. The file's existence and content denote the current
// holder; the object only tracks whether it believes it is that holder.
type Lock struct {
	log     *logrus.Entry
	dir     string
	name    string
	path    string
	timeout time.Duration
	stale   time.Duration
	id      string

	// mu guards held, acquiring and keeper, which are shared between the
	// caller's goroutines and the renewal task.
	mu        sync.Mutex
	held      bool
	acquiring bool
	keeper    *keeper
}

// adopt resumes a lease established elsewhere by verifying that the
// lease file still carries the given id. No filesystem write occurs, so
// the lease's freshness clock is untouched.
func (l *Lock) adopt(id string) error {
	content, err := os.ReadFile(l.path)
	if err != nil {
		return &lock.Error{Op: lock.OpPersist, Kind: lock.ErrPersistOS, Name: l.name, Path: l.path, ID: id, Err: err}
	}
	if string(content) != id {
		return &lock.Error{Op: lock.OpPersist, Kind: lock.ErrPersistUnmatch, Name: l.name, Path: l.path, ID: id}
	}

	l.id = id
	l.held = true
	l.log.Debug("Adopted existing lease")
	return nil
}

// Acquire implements lock.Lock.
//
// Acquisition loops over an exclusive create of the lease file, sleeping
// the poll interval between attempts while another holder's fresh lease
// exists. A lease file older than the stale threshold is reclaimed by
// overwriting it in place. The deadline and staleness are both checked
// once per attempt, deadline first, so a zero timeout never reclaims.
func (l *Lock) Acquire(ctx context.Context, opts ...lock.AcquireOption) (lock.Guard, error) {
	options := lock.AcquireOptions{
		Timeout:      l.timeout,
		PollInterval: lock.DefaultPollInterval,
	}
	for _, o := range opts {
		o(&options)
	}

	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return &guard{lock: l}, nil
	}
	if l.acquiring {
		l.mu.Unlock()
		return nil, errors.New("cannot call Acquire concurrently")
	}
	l.acquiring = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.acquiring = false
		l.mu.Unlock()
	}()

	var deadline time.Time
	if options.Timeout >= 0 {
		deadline = time.Now().Add(options.Timeout)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, &lock.Error{Op: lock.OpAcquire, Kind: lock.ErrGenerate, Name: l.name, Path: l.path, Err: err}
	}

	for {
		err := l.writeExclusive()
		if err == nil {
			l.setHeld(true)
			l.log.Debug("Lock acquired")
			return &guard{lock: l}, nil
		}
		if !os.IsExist(err) {
			return nil, &lock.Error{Op: lock.OpAcquire, Kind: lock.ErrGenerate, Name: l.name, Path: l.path, Err: err}
		}

		info, err := os.Stat(l.path)
		if err != nil {
			if os.IsNotExist(err) {
				// The holder released between the create attempt and the
				// stat. Try again immediately.
				continue
			}
			return nil, &lock.Error{Op: lock.OpAcquire, Kind: lock.ErrGenerate, Name: l.name, Path: l.path, Err: err}
		}

		now := time.Now()
		if !deadline.IsZero() && !now.Before(deadline) {
			return nil, &lock.Error{Op: lock.OpAcquire, Kind: lock.ErrTimeout, Name: l.name, Path: l.path}
		}

		if !now.Before(info.ModTime().Add(l.stale)) {
			// The lease went stale without being released. Take it over
			// by rewriting the file with our id. The write is not
			// exclusive: a concurrent reclaimer can overwrite it again
			// without either side noticing.
			if err := os.WriteFile(l.path, []byte(l.id), 0o644); err != nil {
				return nil, &lock.Error{Op: lock.OpAcquire, Kind: lock.ErrRegenerate, Name: l.name, Path: l.path, Err: err}
			}
			l.setHeld(true)
			l.log.Debug("Reclaimed stale lock")
			return &guard{lock: l}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(options.PollInterval):
		}
	}
}

// writeExclusive claims the lease file with an exclusive create, failing
// with an existence error when another holder already has it.
func (l *Lock) writeExclusive() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	_, writeErr := f.WriteString(l.id)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// Extend implements lock.Lock by refreshing the lease file's
// modification time. The content is left untouched.
func (l *Lock) Extend() error {
	if !l.IsLocked() {
		return &lock.Error{Op: lock.OpExtend, Kind: lock.ErrNotAcquired, Name: l.name, Path: l.path}
	}

	now := time.Now()
	if err := os.Chtimes(l.path, now, now); err != nil {
		if os.IsNotExist(err) {
			return &lock.Error{Op: lock.OpExtend, Kind: lock.ErrNotFound, Name: l.name, Path: l.path}
		}
		return &lock.Error{Op: lock.OpExtend, Name: l.name, Path: l.path, Err: err}
	}
	return nil
}

// Release implements lock.Lock by removing the lease file. The held flag
// is only cleared when the removal succeeds, so a lease whose file
// already vanished keeps reporting as held while Release surfaces the
// loss as ErrNotFound.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return &lock.Error{Op: lock.OpRelease, Kind: lock.ErrNotAcquired, Name: l.name, Path: l.path}
	}

	if err := os.Remove(l.path); err != nil {
		if os.IsNotExist(err) {
			return &lock.Error{Op: lock.OpRelease, Kind: lock.ErrNotFound, Name: l.name, Path: l.path}
		}
		return &lock.Error{Op: lock.OpRelease, Name: l.name, Path: l.path, Err: err}
	}

	l.held = false
	l.log.Debug("Lock released")
	return nil
}

// IsLocked implements lock.Lock.
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Name implements lock.Lock.
func (l *Lock) Name() string {
	return l.name
}

// ID implements lock.Lock.
func (l *Lock) ID() string {
	return l.id
}

func (l *Lock) setHeld(held bool) {
	l.mu.Lock()
	l.held = held
	l.mu.Unlock()
}
