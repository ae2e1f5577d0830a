// Package job coordinates one user-initiated erase request: it expands the
// requested targets, drives each file through the wipe engine in order and
// folds the outcomes into a completion record.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"secureshred/internal/progress"
	"secureshred/internal/storage"
	"secureshred/internal/walk"
	"secureshred/internal/wipe"
)

var tracer = otel.Tracer("secureshred/job")

var ErrInvalidTarget = errors.New("invalid target")

// Eraser runs the per-target state machine.
type Eraser interface {
	Erase(ctx context.Context, t wipe.Target, passes int, hooks wipe.Hooks) wipe.Result
}

// TreeWalker expands directories and cleans them up afterwards.
type TreeWalker interface {
	Walk(ctx context.Context, root storage.Entry) walk.Listing
	RemoveDirs(dirs []storage.Entry) (int, error)
}

// Request is one erase job.
type Request struct {
	Targets []storage.Handle
	Passes  int
	// Cipher is recorded on the completion record only.
	Cipher string
}

// Callbacks receive job events on the goroutine running the job.
type Callbacks struct {
	OnProgress func(percent int)
	OnStatus   func(msg string)
}

func (c Callbacks) progress(p int) {
	if c.OnProgress != nil {
		c.OnProgress(p)
	}
}

func (c Callbacks) status(format string, args ...interface{}) {
	if c.OnStatus != nil {
		c.OnStatus(fmt.Sprintf(format, args...))
	}
}

// Root is one requested target after resolution.
type Root struct {
	Entry   storage.Entry
	Listing *walk.Listing
}

// Plan is the resolved, expanded form of a request.
type Plan struct {
	Roots   []Root
	Targets []wipe.Target
	Total   int64
	Subject string
	Passes  int
	// Cipher is recorded on the completion record only.
	Cipher string
}

// Interrupted reports whether a directory walk was cut short by
// cancellation.
func (p *Plan) Interrupted() bool {
	for _, r := range p.Roots {
		if r.Listing != nil && r.Listing.Interrupted {
			return true
		}
	}
	return false
}

// EnumerationFailed reports whether any directory root lost its listing.
func (p *Plan) EnumerationFailed() bool {
	for _, r := range p.Roots {
		if r.Listing != nil && r.Listing.Err != nil {
			return true
		}
	}
	return false
}

// SkippedDirs counts directories left unread under the partial policy.
func (p *Plan) SkippedDirs() int {
	n := 0
	for _, r := range p.Roots {
		if r.Listing != nil {
			n += len(r.Listing.Skipped)
		}
	}
	return n
}

// Result is everything a finished job produced.
type Result struct {
	Record    CompletionRecord
	Plan      *Plan
	Targets   []wipe.Result
	Summary   Summary
	Cancelled bool
}

// Shredder runs jobs. It holds no per-job state and is safe to reuse, but
// callers are expected to run one job at a time.
type Shredder struct {
	store  storage.Store
	engine Eraser
	walker TreeWalker
	logger *zap.Logger
	now    func() time.Time
}

// Option customises a Shredder.
type Option func(*Shredder)

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Shredder) { s.now = now }
}

func NewShredder(store storage.Store, engine Eraser, walker TreeWalker, logger *zap.Logger, opts ...Option) *Shredder {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Shredder{
		store:  store,
		engine: engine,
		walker: walker,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan resolves every requested handle and walks directories without
// touching any content.
func (s *Shredder) Plan(ctx context.Context, req Request, cb Callbacks) (*Plan, error) {
	if req.Passes < 1 {
		return nil, errors.Mark(errors.Newf("pass count must be at least 1, got %d", req.Passes), ErrInvalidTarget)
	}
	if len(req.Targets) == 0 {
		return nil, errors.Mark(errors.New("no targets given"), ErrInvalidTarget)
	}

	plan := &Plan{Passes: req.Passes, Cipher: req.Cipher}
	for _, h := range req.Targets {
		e, err := s.store.Stat(h)
		if err != nil || e.Kind == storage.KindOther {
			if err == nil {
				err = errors.Newf("%s is not a regular file or directory", h)
			}
			return nil, errors.Mark(errors.Wrapf(err, "resolve %s", h), ErrInvalidTarget)
		}
		plan.Roots = append(plan.Roots, Root{Entry: e})
	}

	for i := range plan.Roots {
		r := &plan.Roots[i]
		if r.Entry.Kind == storage.KindFile {
			plan.Targets = append(plan.Targets, wipe.TargetFromEntry(r.Entry))
			continue
		}

		cb.status("Scanning directory %s...", r.Entry.Name)
		l := s.walker.Walk(ctx, r.Entry)
		r.Listing = &l
		for _, sk := range l.Skipped {
			cb.status("Permission denied listing %s; its contents are skipped", sk.Dir)
		}
		switch {
		case l.Interrupted:
			cb.status("Scanning %s was interrupted.", r.Entry.Name)
		case l.Err != nil:
			cb.status("No files found to shred in %s, or access was denied.", r.Entry.Name)
		case len(l.Files) == 0:
			cb.status("No files found to shred in %s.", r.Entry.Name)
		case l.TotalBytes() == 0:
			cb.status("All files in %s are empty. Deleting them.", r.Entry.Name)
		}
		for _, f := range l.Files {
			plan.Targets = append(plan.Targets, wipe.TargetFromEntry(f))
		}
	}

	for _, t := range plan.Targets {
		plan.Total += t.Size
	}
	if len(plan.Roots) == 1 {
		plan.Subject = plan.Roots[0].Entry.Name
	} else {
		plan.Subject = fmt.Sprintf("%d items", len(plan.Roots))
	}
	return plan, nil
}

// Run plans req and executes the plan. The error is non-nil only when the
// request itself is invalid; per-target failures are reported in the Result.
func (s *Shredder) Run(ctx context.Context, req Request, cb Callbacks) (*Result, error) {
	plan, err := s.Plan(ctx, req, cb)
	if err != nil {
		s.logger.Error("job rejected", zap.Error(err))
		cb.status("Error: %s", err)
		cb.progress(100)
		return nil, err
	}
	return s.Execute(ctx, plan, cb), nil
}

// Execute erases exactly the targets captured in plan; nothing is
// re-enumerated, so files that appeared after planning are left alone. A
// cancelled ctx stops the job before the next target starts.
func (s *Shredder) Execute(ctx context.Context, plan *Plan, cb Callbacks) *Result {
	passes := max(plan.Passes, 1)
	ctx, span := tracer.Start(ctx, "job.run")
	defer span.End()

	span.SetAttributes(
		attribute.Int("job.roots", len(plan.Roots)),
		attribute.Int("job.targets", len(plan.Targets)),
		attribute.Int64("job.bytes", plan.Total),
		attribute.Int("job.passes", passes),
	)
	log := s.logger.With(zap.String("subject", plan.Subject), zap.Int("passes", passes))
	log.Info("job started", zap.Int("targets", len(plan.Targets)), zap.Int64("bytes", plan.Total))

	res := &Result{
		Record: newRecord(s.now(), plan.Subject, passes),
		Plan:   plan,
	}
	res.Record.Cipher = plan.Cipher

	agg := progress.NewAggregator(plan.Total, cb.progress)
	if plan.Interrupted() {
		res.Cancelled = true
		log.Warn("job cancelled while scanning")
	}
	for i, t := range plan.Targets {
		if res.Cancelled || ctx.Err() != nil {
			res.Cancelled = true
			log.Warn("job cancelled", zap.Int("done", i), zap.Int("remaining", len(plan.Targets)-i))
			break
		}
		agg.Begin(t.Size)
		r := s.engine.Erase(ctx, t, passes, wipe.Hooks{
			OnStatus:   cb.OnStatus,
			OnProgress: agg.Update,
		})
		agg.Complete()
		res.Targets = append(res.Targets, r)
	}
	if len(plan.Targets) == 0 && ctx.Err() != nil {
		res.Cancelled = true
	}

	if !res.Cancelled {
		for _, root := range plan.Roots {
			if root.Listing == nil {
				continue
			}
			cb.status("Attempting to delete directory structure for %s...", root.Entry.Name)
			removed, err := s.walker.RemoveDirs(root.Listing.Dirs)
			if err != nil {
				log.Warn("directory cleanup incomplete", zap.String("root", string(root.Entry.Handle)), zap.Error(err))
			} else {
				log.Debug("directory cleanup done", zap.String("root", string(root.Entry.Handle)), zap.Int("removed", removed))
			}
		}
	}
	agg.Finish()

	res.Summary = Summarize(res.Targets)
	res.Record.Items = len(plan.Targets)
	res.Record.Failed = res.Summary.Failed()
	res.Record.Bytes = res.Summary.Bytes
	res.Record.Status = overallStatus(plan, res)

	switch res.Record.Status {
	case StatusShredded:
		cb.status("Shredding complete for %s", plan.Subject)
	case StatusNothingErased:
		cb.status("No content erased for %s", plan.Subject)
	case StatusCancelled:
		cb.status("Shredding for %s cancelled after %d of %d files", plan.Subject, len(res.Targets), len(plan.Targets))
	default:
		cb.status("Shredding for %s completed with some errors.", plan.Subject)
	}
	for _, line := range res.Summary.Lines() {
		cb.status("%s", line)
	}

	span.SetAttributes(attribute.String("job.status", res.Record.Status))
	if res.Record.Status != StatusShredded {
		span.SetStatus(codes.Error, res.Record.Status)
	}
	log.Info("job finished",
		zap.String("status", res.Record.Status),
		zap.String("record_id", res.Record.ID),
		zap.Stringer("summary", res.Summary))
	return res
}

func overallStatus(plan *Plan, res *Result) string {
	switch {
	case res.Cancelled:
		return StatusCancelled
	case plan.EnumerationFailed() && len(res.Targets) == 0:
		return StatusNothingErased
	case res.Summary.Failed() > 0, plan.EnumerationFailed(), plan.SkippedDirs() > 0:
		return StatusCompletedWithError
	}
	return StatusShredded
}
