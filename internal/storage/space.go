package storage

import (
	"github.com/cockroachdb/errors"
)

// ErrNoSpace marks errors caused by a full volume.
var ErrNoSpace = errors.New("storage: no space left")

// stagingOverhead covers cipher padding on top of the plaintext size.
const stagingOverhead = 16

// EnsureRoom fails when the volume holding dir cannot take the ciphertext of
// a target of size bytes. Platforms without a free-space query always pass.
func EnsureRoom(dir string, size int64) error {
	free, ok, err := freeBytes(dir)
	if err != nil {
		return errors.Wrapf(err, "query free space of %s", dir)
	}
	if !ok {
		return nil
	}
	need := uint64(size) + stagingOverhead
	if free < need {
		err := errors.Newf("staging area %s has %d bytes free, the largest file needs %d", dir, free, need)
		return errors.WithHint(errors.Mark(err, ErrNoSpace),
			"point encrypt.staging_dir at a volume with more free space")
	}
	return nil
}

// IsNoSpace reports whether err came from a full volume.
func IsNoSpace(err error) bool {
	return err != nil && (errors.Is(err, ErrNoSpace) || isNoSpaceErrno(err))
}

// WithSpaceHint attaches a hint to disk-full errors and returns others as is.
func WithSpaceHint(err error) error {
	if !IsNoSpace(err) {
		return err
	}
	return errors.WithHint(errors.Mark(err, ErrNoSpace),
		"the volume is full; free some space or move the staging directory")
}
