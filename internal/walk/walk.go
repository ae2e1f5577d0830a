// Package walk expands directory targets into flat lists of erasable files.
package walk

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"secureshred/internal/storage"
)

// Policy decides what a failed directory listing does to the walk.
type Policy string

const (
	// PolicyDiscard drops everything found so far when any listing fails.
	PolicyDiscard Policy = "discard"
	// PolicyPartial skips unreadable directories and keeps the rest.
	PolicyPartial Policy = "partial"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyDiscard, PolicyPartial:
		return p, nil
	}
	return "", errors.Newf("unknown enumeration policy %q (want %s or %s)", s, PolicyDiscard, PolicyPartial)
}

var ErrEnumeration = errors.New("directory enumeration failed")

// Skipped records a directory that could not be listed.
type Skipped struct {
	Dir storage.Handle
	Err error
}

// Listing is the result of walking one root.
type Listing struct {
	Root storage.Entry
	// Files are leaf files in breadth-first discovery order.
	Files []storage.Entry
	// Dirs holds every directory reached, root first, in breadth-first order.
	Dirs []storage.Entry
	// Skipped is only populated under PolicyPartial.
	Skipped []Skipped
	// Err is set, marked ErrEnumeration, when the listing was thrown away.
	Err error
	// Interrupted is set when ctx was cancelled mid-walk. The listing is
	// discarded under either policy.
	Interrupted bool
}

// TotalBytes sums the captured file sizes.
func (l Listing) TotalBytes() int64 {
	var n int64
	for _, f := range l.Files {
		n += f.Size
	}
	return n
}

// Walker enumerates directory trees through a Store.
type Walker struct {
	store  storage.Store
	policy Policy
	logger *zap.Logger
}

func NewWalker(store storage.Store, policy Policy, logger *zap.Logger) *Walker {
	if policy == "" {
		policy = PolicyDiscard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{store: store, policy: policy, logger: logger}
}

// Policy returns the active enumeration policy.
func (w *Walker) Policy() Policy { return w.policy }

// Walk lists root breadth-first using an explicit queue. Entries that are
// neither files nor directories are ignored. A cancelled ctx stops the walk,
// discards the listing and sets Interrupted.
func (w *Walker) Walk(ctx context.Context, root storage.Entry) Listing {
	l := Listing{Root: root, Dirs: []storage.Entry{root}}
	queue := []storage.Entry{root}

	for len(queue) > 0 {
		dir := queue[0]
		queue[0] = storage.Entry{}
		queue = queue[1:]

		if err := ctx.Err(); err != nil {
			l = w.discard(l, errors.Wrap(err, "walk interrupted"))
			l.Interrupted = true
			return l
		}

		children, err := w.store.List(dir.Handle)
		if err != nil {
			if w.policy == PolicyDiscard {
				return w.discard(l, err)
			}
			w.logger.Warn("skipping unreadable directory", zap.String("dir", string(dir.Handle)), zap.Error(err))
			l.Skipped = append(l.Skipped, Skipped{Dir: dir.Handle, Err: err})
			continue
		}

		for _, c := range children {
			switch c.Kind {
			case storage.KindFile:
				l.Files = append(l.Files, c)
			case storage.KindDir:
				l.Dirs = append(l.Dirs, c)
				queue = append(queue, c)
			default:
				w.logger.Debug("ignoring special entry", zap.String("entry", string(c.Handle)))
			}
		}
	}

	w.logger.Debug("walk finished",
		zap.String("root", string(root.Handle)),
		zap.Int("files", len(l.Files)),
		zap.Int("dirs", len(l.Dirs)),
		zap.Int("skipped", len(l.Skipped)))
	return l
}

// discard drops all discovered leaves; only the root stays as a cleanup
// candidate.
func (w *Walker) discard(l Listing, cause error) Listing {
	w.logger.Warn("enumeration failed, discarding listing",
		zap.String("root", string(l.Root.Handle)), zap.Int("files_dropped", len(l.Files)), zap.Error(cause))
	return Listing{
		Root: l.Root,
		Dirs: []storage.Entry{l.Root},
		Err:  errors.Mark(errors.Wrapf(cause, "enumerate %s", l.Root.Handle), ErrEnumeration),
	}
}

// RemoveDirs removes directories deepest first. Directories that still have
// entries are left alone, so files are never removed here. Failures are
// collected and logged; the returned count is the number removed.
func (w *Walker) RemoveDirs(dirs []storage.Entry) (int, error) {
	var (
		removed int
		result  *multierror.Error
	)
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		children, err := w.store.List(d.Handle)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			w.logger.Warn("cannot inspect directory for removal", zap.String("dir", string(d.Handle)), zap.Error(err))
			result = multierror.Append(result, err)
			continue
		}
		if len(children) > 0 {
			w.logger.Debug("directory not empty, keeping", zap.String("dir", string(d.Handle)), zap.Int("entries", len(children)))
			continue
		}
		if err := w.store.Remove(d.Handle); err != nil {
			w.logger.Warn("directory not removed", zap.String("dir", string(d.Handle)), zap.Error(err))
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}
	return removed, result.ErrorOrNil()
}
