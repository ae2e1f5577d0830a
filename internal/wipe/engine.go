package wipe

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"secureshred/internal/storage"
)

var tracer = otel.Tracer("secureshred/wipe")

// Engine runs the per-target sequence: N overwrite passes, one encrypt pass,
// then removal of the entry. A failed step ends the target; nothing is retried.
type Engine struct {
	store      storage.Store
	overwriter Overwriter
	encryptor  Encryptor
	logger     *zap.Logger
}

// NewEngine wires an engine from its collaborators.
func NewEngine(store storage.Store, overwriter Overwriter, encryptor Encryptor, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:      store,
		overwriter: overwriter,
		encryptor:  encryptor,
		logger:     logger,
	}
}

// Erase destroys t's content with passes overwrite passes (minimum 1) and
// removes it. The returned Result is always terminal. Cancellation of ctx is
// not observed here: once a target starts it runs to a terminal state.
func (e *Engine) Erase(ctx context.Context, t Target, passes int, hooks Hooks) Result {
	if passes < 1 {
		passes = 1
	}
	name := t.displayName()
	log := e.logger.With(zap.String("target", string(t.Handle)), zap.Int64("size", t.Size))

	// No file names or paths in span attributes.
	ctx, span := tracer.Start(ctx, "wipe.target", trace.WithAttributes(
		attribute.Int64("target.size", t.Size),
		attribute.Int("passes", passes),
	))
	defer span.End()

	res := Result{Target: t}
	finish := func(outcome Outcome, err error, msg string) Result {
		res.Outcome = outcome
		res.Err = err
		res.Message = msg
		if outcome.Failed() {
			res.State = StateFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome.String())
			log.Warn("target failed", zap.Stringer("outcome", outcome), zap.Int("passes_completed", res.PassesCompleted), zap.Error(err))
		} else {
			res.State = StateDone
			log.Info("target erased", zap.Stringer("outcome", outcome), zap.Int("passes_completed", res.PassesCompleted))
		}
		span.SetAttributes(attribute.String("outcome", outcome.String()))
		hooks.state(res.State, 0)
		hooks.status("%s", msg)
		return res
	}

	hooks.state(StatePending, 0)

	if t.Size == 0 {
		hooks.status("Skipping empty file: %s", name)
		hooks.state(StateDeleting, 0)
		hooks.status("Deleting %s", name)
		if err := e.store.Remove(t.Handle); err != nil {
			err = errors.WithHint(errors.Mark(err, ErrDelete), "remove the empty entry manually")
			return finish(OutcomeDeleteFailed, err, "Could not delete empty file "+name)
		}
		return finish(OutcomeSkippedEmpty, nil, "Deleted empty file "+name)
	}

	hooks.status("Shredding: %s", name)

	// Each overwrite pass and the encrypt pass are equal shares of t.Size.
	steps := int64(passes + 1)
	stepProgress := func(step int64) func(int64) {
		return func(n int64) {
			if n > t.Size {
				n = t.Size
			}
			hooks.progress((step*t.Size + n) / steps)
		}
	}

	for pass := 1; pass <= passes; pass++ {
		hooks.state(StateOverwriting, pass)
		hooks.status("Overwriting %s (pass %d/%d)", name, pass, passes)
		if err := e.overwriter.Overwrite(ctx, t.Handle, t.Size, stepProgress(int64(pass-1))); err != nil {
			err = errors.Mark(err, ErrIO)
			msg := "Failed to overwrite " + name + "; file left in place partially overwritten"
			if pass == 1 {
				msg = "Failed to overwrite " + name + "; file left in place"
			}
			return finish(OutcomeOverwriteFailed, err, msg)
		}
		res.PassesCompleted = pass
	}

	hooks.state(StateEncrypting, 0)
	hooks.status("Encrypting %s (final pass)", name)
	if err := e.encryptor.Encrypt(ctx, t.Handle, t.Size, stepProgress(int64(passes))); err != nil {
		err = errors.Mark(err, ErrEncrypt)
		return finish(OutcomeEncryptFailed, err,
			"Failed to encrypt "+name+"; file left in place fully overwritten")
	}
	hooks.progress(t.Size)

	hooks.state(StateDeleting, 0)
	hooks.status("Deleting %s", name)
	if err := e.store.Remove(t.Handle); err != nil {
		err = errors.WithHint(errors.Mark(err, ErrDelete),
			"content is destroyed; the remaining entry is harmless and can be removed manually")
		return finish(OutcomeDeleteFailed, err,
			"Failed to delete "+name+"; content destroyed but the entry remains, remove it manually")
	}
	return finish(OutcomeSuccess, nil, "Shredded "+name)
}
