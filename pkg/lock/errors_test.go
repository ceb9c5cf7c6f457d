package lock

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Rendering(t *testing.T) {
	err := &Error{Op: OpAcquire, Kind: ErrTimeout, Name: "job1", Path: "/locks/abc.lock"}
	assert.Equal(t, `acquire lock "job1": timeout waiting for lock`, err.Error())

	cause := errors.New("disk full")
	err = &Error{Op: OpAcquire, Kind: ErrGenerate, Name: "job1", Err: cause}
	assert.Equal(t, `acquire lock "job1": unable to create lock file: disk full`, err.Error())

	// Uncategorized failures render with the cause alone.
	err = &Error{Op: OpExtend, Name: "job1", Err: cause}
	assert.Equal(t, `extend lock "job1": disk full`, err.Error())
}

func TestError_Matching(t *testing.T) {
	require := require.New(t)

	err := error(&Error{Op: OpAcquire, Kind: ErrTimeout, Name: "job1"})
	require.ErrorIs(err, ErrTimeout)
	require.NotErrorIs(err, ErrGenerate)

	// The kind stays matchable through further wrapping.
	wrapped := errors.Wrap(err, "campaign failed")
	require.ErrorIs(wrapped, ErrTimeout)

	var lockErr *Error
	require.ErrorAs(wrapped, &lockErr)
	require.Equal("job1", lockErr.Name)
	require.Equal(OpAcquire, lockErr.Op)

	// The underlying cause is visible alongside the kind.
	err = &Error{Op: OpPersist, Kind: ErrPersistOS, Name: "job1", Err: os.ErrNotExist}
	require.ErrorIs(err, ErrPersistOS)
	require.ErrorIs(err, os.ErrNotExist)
}

func TestErrorCategories(t *testing.T) {
	for _, tc := range []struct {
		err     *Error
		acquire bool
		persist bool
	}{
		{err: &Error{Op: OpAcquire, Kind: ErrTimeout}, acquire: true},
		{err: &Error{Op: OpAcquire, Kind: ErrGenerate}, acquire: true},
		{err: &Error{Op: OpAcquire, Kind: ErrRegenerate}, acquire: true},
		{err: &Error{Op: OpPersist, Kind: ErrPersistOS}, acquire: true, persist: true},
		{err: &Error{Op: OpPersist, Kind: ErrPersistUnmatch}, acquire: true, persist: true},
		{err: &Error{Op: OpExtend, Kind: ErrNotAcquired}},
		{err: &Error{Op: OpExtend, Kind: ErrNotFound}},
		{err: &Error{Op: OpRelease, Kind: ErrNotAcquired}},
	} {
		assert.Equal(t, tc.acquire, IsAcquireError(tc.err), "op=%s kind=%v", tc.err.Op, tc.err.Kind)
		assert.Equal(t, tc.persist, IsPersistError(tc.err), "op=%s kind=%v", tc.err.Op, tc.err.Kind)
	}

	assert.False(t, IsAcquireError(errors.New("unrelated")))
	assert.False(t, IsPersistError(nil))
}
