package filesystem

// guard scopes a held lease, guaranteeing release on every exit path.
type guard struct {
	lock *Lock
}

// Do implements lock.Guard. The renewal task keeps the lease fresh while
// fn runs, and the lease is released when fn returns or panics. An error
// from fn takes precedence over a release failure.
func (g *guard) Do(fn func() error) (err error) {
	g.lock.Keep()

	defer func() {
		closeErr := g.Close()
		if err == nil {
			err = closeErr
		}
	}()

	return fn()
}

// Close implements lock.Guard, releasing the lease if it is still held.
func (g *guard) Close() error {
	if !g.lock.IsLocked() {
		return nil
	}
	return g.lock.Release()
}
