package wipe

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"secureshred/internal/storage"
)

// DefaultChunkSize is used when a config leaves the chunk size unset.
const DefaultChunkSize = 64 << 10

// Overwriter replaces the first length bytes of a target with fresh random
// data and flushes them to the medium. progress receives cumulative bytes
// written within the call.
type Overwriter interface {
	Overwrite(ctx context.Context, h storage.Handle, length int64, progress func(written int64)) error
}

// OverwriteConfig tunes a RandomOverwriter.
type OverwriteConfig struct {
	Source       Source
	ChunkSize    int
	MaxSpeedMBps float64
	Logger       *zap.Logger
}

// RandomOverwriter performs one pass of random data over a target in place.
type RandomOverwriter struct {
	store  storage.Store
	config OverwriteConfig
}

// NewRandomOverwriter fills unset config fields with defaults.
func NewRandomOverwriter(store storage.Store, config OverwriteConfig) *RandomOverwriter {
	if config.Source == nil {
		config.Source = CryptoSource
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &RandomOverwriter{store: store, config: config}
}

func (o *RandomOverwriter) Overwrite(ctx context.Context, h storage.Handle, length int64, progress func(int64)) error {
	if length <= 0 {
		return nil
	}

	f, err := o.store.OpenWriter(h)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "overwrite"), ErrIO)
	}
	closed := false
	defer func() {
		if !closed {
			_ = f.Close()
		}
	}()

	chunk := o.config.ChunkSize
	if int64(chunk) > length {
		chunk = int(length)
	}
	buf := GetBuffer(chunk)
	defer PutBuffer(buf)

	w := NewThrottledWriter(ctx, f, o.config.MaxSpeedMBps)
	var written int64
	for written < length {
		n := int64(len(buf))
		if remaining := length - written; remaining < n {
			n = remaining
		}
		if err := o.config.Source.Fill(buf[:n]); err != nil {
			return errors.Mark(errors.Wrap(err, "generate pass data"), ErrIO)
		}
		m, err := w.Write(buf[:n])
		written += int64(m)
		if err == nil && int64(m) < n {
			err = io.ErrShortWrite
		}
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "write %s at offset %d", h, written), ErrIO)
		}
		if progress != nil {
			progress(written)
		}
	}

	if err := storage.Flush(f); err != nil {
		return errors.Mark(errors.Wrapf(err, "flush %s", h), ErrIO)
	}
	closed = true
	if err := f.Close(); err != nil {
		return errors.Mark(errors.Wrapf(err, "close %s", h), ErrIO)
	}
	o.config.Logger.Debug("pass written", zap.String("target", string(h)), zap.Int64("bytes", written))
	return nil
}
