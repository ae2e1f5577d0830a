package wipe

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const (
	minThrottleBurst = 4 << 10
	maxThrottleBurst = 4 << 20
)

// ThrottledWriter caps write throughput with a token bucket measured in bytes.
type ThrottledWriter struct {
	w       io.Writer
	ctx     context.Context
	limiter *rate.Limiter
	burst   int
}

// NewThrottledWriter wraps w. A non-positive maxSpeedMBps disables throttling
// and returns w unchanged. Waiting ignores cancellation of ctx: a started
// pass always runs to the end.
func NewThrottledWriter(ctx context.Context, w io.Writer, maxSpeedMBps float64) io.Writer {
	if maxSpeedMBps <= 0 {
		return w
	}
	bps := maxSpeedMBps * 1024 * 1024
	burst := int(bps)
	if burst < minThrottleBurst {
		burst = minThrottleBurst
	}
	if burst > maxThrottleBurst {
		burst = maxThrottleBurst
	}
	return &ThrottledWriter{
		w:       w,
		ctx:     context.WithoutCancel(ctx),
		limiter: rate.NewLimiter(rate.Limit(bps), burst),
		burst:   burst,
	}
}

func (tw *ThrottledWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > tw.burst {
			n = tw.burst
		}
		if err := tw.limiter.WaitN(tw.ctx, n); err != nil {
			return written, err
		}
		m, err := tw.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		if m < n {
			return written, io.ErrShortWrite
		}
		p = p[n:]
	}
	return written, nil
}
