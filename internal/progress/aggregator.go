// Package progress turns per-target byte counts into one job-level percentage.
package progress

import "math/bits"

// MulDiv returns floor(a*b/c) without intermediate overflow. a, b must be
// non-negative, c positive, and a*b/c must fit in an int64.
func MulDiv(a, b, c int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, uint64(c))
	return int64(q)
}

// Aggregator computes floor(processed*100/total) where processed is the sum of
// all terminal targets plus the in-flight target's bytes. Reported values
// never decrease.
type Aggregator struct {
	total    int64
	baseline int64
	current  int64
	inflight int64
	last     int
	emit     func(int)
}

// NewAggregator creates an aggregator for a job of total bytes. emit, if not
// nil, receives each new percentage once.
func NewAggregator(total int64, emit func(int)) *Aggregator {
	if total < 0 {
		total = 0
	}
	return &Aggregator{total: total, last: -1, emit: emit}
}

// Begin marks the start of a target of the given size.
func (a *Aggregator) Begin(size int64) {
	a.current = size
	a.inflight = 0
}

// Update records bytes processed so far in the in-flight target.
func (a *Aggregator) Update(n int64) {
	if n < 0 {
		n = 0
	}
	if n > a.current {
		n = a.current
	}
	// A retried pass must not move the needle backwards.
	if n < a.inflight {
		return
	}
	a.inflight = n
	a.publish()
}

// Complete folds the in-flight target into the baseline. Call only once the
// target is terminal, whatever its outcome.
func (a *Aggregator) Complete() {
	a.baseline += a.current
	a.current = 0
	a.inflight = 0
	a.publish()
}

// Finish reports 100 unconditionally. Used when the job ends.
func (a *Aggregator) Finish() {
	a.report(100)
}

// Processed returns the byte count the percentage is based on.
func (a *Aggregator) Processed() int64 {
	return a.baseline + a.inflight
}

// Percent returns the current value in [0,100]; an empty job is 100.
func (a *Aggregator) Percent() int {
	if a.total == 0 {
		return 100
	}
	p := a.Processed()
	if p > a.total {
		p = a.total
	}
	return int(MulDiv(p, 100, a.total))
}

func (a *Aggregator) publish() {
	a.report(a.Percent())
}

func (a *Aggregator) report(p int) {
	if p <= a.last {
		return
	}
	a.last = p
	if a.emit != nil {
		a.emit(p)
	}
}
