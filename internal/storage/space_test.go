package storage

import (
	"math"
	"os"
	"runtime"
	"syscall"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRoom(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureRoom(dir, 1))

	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		t.Skip("no free-space query on this platform")
	}
	err := EnsureRoom(dir, math.MaxInt64-stagingOverhead)
	require.Error(t, err)
	assert.True(t, IsNoSpace(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestEnsureRoomMissingDir(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("statfs only")
	}
	assert.Error(t, EnsureRoom("/definitely/not/here", 1))
}

func TestWithSpaceHint(t *testing.T) {
	plain := os.ErrPermission
	assert.Equal(t, plain, WithSpaceHint(plain))
	assert.Nil(t, WithSpaceHint(nil))

	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		full := &os.PathError{Op: "write", Path: "/x", Err: syscall.ENOSPC}
		err := WithSpaceHint(full)
		assert.True(t, IsNoSpace(err))
		assert.True(t, errors.Is(err, ErrNoSpace))
		assert.NotEmpty(t, errors.GetAllHints(err))
	}
}
