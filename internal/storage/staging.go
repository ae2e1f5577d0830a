package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// Staging is a private, process-owned scratch area. The directory is created
// with mode 0700 and removed on Close.
type Staging struct {
	fs  afero.Fs
	dir string
}

// NewStaging creates a fresh scratch directory under base ("" means the
// system temp dir).
func NewStaging(fs afero.Fs, base string) (*Staging, error) {
	if base != "" {
		if err := fs.MkdirAll(base, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create staging base %s", base)
		}
	}
	dir, err := afero.TempDir(fs, base, "shredder-")
	if err != nil {
		return nil, errors.Wrap(err, "create staging directory")
	}
	return &Staging{fs: fs, dir: dir}, nil
}

// Dir returns the scratch directory path.
func (s *Staging) Dir() string { return s.dir }

// Create opens a new uniquely named scratch file for reading and writing.
func (s *Staging) Create() (afero.File, error) {
	f, err := afero.TempFile(s.fs, s.dir, "stage-*.bin")
	if err != nil {
		return nil, errors.Wrap(err, "create staging file")
	}
	return f, nil
}

// Discard removes a scratch file. Missing files are not an error.
func (s *Staging) Discard(name string) error {
	if err := s.fs.Remove(name); err != nil {
		if exists, _ := afero.Exists(s.fs, name); !exists {
			return nil
		}
		return errors.Wrapf(err, "remove staging file %s", name)
	}
	return nil
}

// Close removes the scratch directory and anything left in it.
func (s *Staging) Close() error {
	return errors.Wrapf(s.fs.RemoveAll(s.dir), "remove staging directory %s", s.dir)
}
