// Package storage is the content-access capability the shredder is handed.
// Targets are addressed by opaque handles; the engine never builds paths itself.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// Handle is an opaque reference to a file or directory inside a Store.
type Handle string

// Kind is the declared type of an entry.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "other"
	}
}

// Entry describes one object as seen at discovery time. Size is a snapshot.
type Entry struct {
	Handle Handle
	Name   string
	Kind   Kind
	Size   int64
}

// WriteFile is a writable handle that can be forced to stable storage.
type WriteFile interface {
	io.Writer
	io.Closer
	Sync() error
}

// Store opens, lists and removes objects by handle.
type Store interface {
	Stat(h Handle) (Entry, error)
	List(h Handle) ([]Entry, error)
	OpenReader(h Handle) (io.ReadCloser, error)
	// OpenWriter opens h for writing from offset 0 without truncating it.
	OpenWriter(h Handle) (WriteFile, error)
	Remove(h Handle) error
}

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrAccessDenied = errors.New("storage: access denied")
)

// FsStore implements Store on top of an afero filesystem. Handles are paths.
type FsStore struct {
	fs afero.Fs
}

// NewFsStore wraps fs.
func NewFsStore(fs afero.Fs) *FsStore {
	return &FsStore{fs: fs}
}

// NewOsStore returns a store backed by the host filesystem.
func NewOsStore() *FsStore {
	return NewFsStore(afero.NewOsFs())
}

// HandleFor converts a user supplied path into a handle.
func HandleFor(path string) Handle {
	return Handle(filepath.Clean(path))
}

func (s *FsStore) Stat(h Handle) (Entry, error) {
	var (
		fi  os.FileInfo
		err error
	)
	// Symlinks are reported as KindOther so they are never followed.
	if lst, ok := s.fs.(afero.Lstater); ok {
		fi, _, err = lst.LstatIfPossible(string(h))
	} else {
		fi, err = s.fs.Stat(string(h))
	}
	if err != nil {
		return Entry{}, classify(err, "stat %s", h)
	}
	return entryFor(h, fi), nil
}

func (s *FsStore) List(h Handle) ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, string(h))
	if err != nil {
		return nil, classify(err, "list %s", h)
	}
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, entryFor(Handle(filepath.Join(string(h), fi.Name())), fi))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *FsStore) OpenReader(h Handle) (io.ReadCloser, error) {
	f, err := s.fs.Open(string(h))
	if err != nil {
		return nil, classify(err, "open %s for reading", h)
	}
	return f, nil
}

func (s *FsStore) OpenWriter(h Handle) (WriteFile, error) {
	f, err := s.fs.OpenFile(string(h), os.O_WRONLY, 0)
	if err != nil {
		return nil, classify(err, "open %s for writing", h)
	}
	return f, nil
}

func (s *FsStore) Remove(h Handle) error {
	if err := s.fs.Remove(string(h)); err != nil {
		return classify(err, "remove %s", h)
	}
	return nil
}

func entryFor(h Handle, fi os.FileInfo) Entry {
	e := Entry{Handle: h, Name: fi.Name()}
	switch {
	case fi.IsDir():
		e.Kind = KindDir
	case fi.Mode().IsRegular():
		e.Kind = KindFile
		e.Size = fi.Size()
	default:
		e.Kind = KindOther
	}
	return e
}

func classify(err error, format string, args ...interface{}) error {
	wrapped := errors.Wrapf(err, format, args...)
	switch {
	case os.IsNotExist(err):
		return errors.Mark(wrapped, ErrNotFound)
	case os.IsPermission(err):
		return errors.Mark(wrapped, ErrAccessDenied)
	}
	return wrapped
}
