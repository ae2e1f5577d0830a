package job

import (
	"context"
	"sync"
)

// Outcome is the final value delivered on Stream.Done.
type Outcome struct {
	Result *Result
	Err    error
}

// Stream carries a running job's events. The job goroutine never blocks on
// a slow consumer: status lines queue up, and progress keeps only the latest
// value when the consumer falls behind. Progress and Status are closed when
// the job ends; Done then receives exactly one Outcome. Consumers should
// drain Progress and Status until closed.
type Stream struct {
	Progress <-chan int
	Status   <-chan string
	Done     <-chan Outcome
}

// Start plans and runs req on a background goroutine.
func (s *Shredder) Start(ctx context.Context, req Request) *Stream {
	return s.stream(func(cb Callbacks) (*Result, error) {
		return s.Run(ctx, req, cb)
	})
}

// StartPlan executes an already resolved plan on a background goroutine.
// Use it after showing plan to the user so exactly the confirmed targets
// are erased.
func (s *Shredder) StartPlan(ctx context.Context, plan *Plan) *Stream {
	return s.stream(func(cb Callbacks) (*Result, error) {
		return s.Execute(ctx, plan, cb), nil
	})
}

func (s *Shredder) stream(run func(Callbacks) (*Result, error)) *Stream {
	prog := newRelay[int](true)
	stat := newRelay[string](false)
	done := make(chan Outcome, 1)

	go func() {
		res, err := run(Callbacks{
			OnProgress: prog.push,
			OnStatus:   stat.push,
		})
		prog.close()
		stat.close()
		done <- Outcome{Result: res, Err: err}
		close(done)
	}()

	return &Stream{Progress: prog.out, Status: stat.out, Done: done}
}

// relay is an unbounded one-way queue between a producer that must not block
// and a channel consumer.
type relay[T any] struct {
	mu       sync.Mutex
	buf      []T
	closed   bool
	coalesce bool
	wake     chan struct{}
	out      chan T
}

func newRelay[T any](coalesce bool) *relay[T] {
	r := &relay[T]{
		coalesce: coalesce,
		wake:     make(chan struct{}, 1),
		out:      make(chan T),
	}
	go r.pump()
	return r
}

func (r *relay[T]) push(v T) {
	r.mu.Lock()
	if r.coalesce && len(r.buf) > 0 {
		r.buf[len(r.buf)-1] = v
	} else {
		r.buf = append(r.buf, v)
	}
	r.mu.Unlock()
	r.signal()
}

func (r *relay[T]) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.signal()
}

func (r *relay[T]) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *relay[T]) pump() {
	defer close(r.out)
	for {
		r.mu.Lock()
		if len(r.buf) == 0 {
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return
			}
			<-r.wake
			continue
		}
		v := r.buf[0]
		var zero T
		r.buf[0] = zero
		r.buf = r.buf[1:]
		r.mu.Unlock()
		r.out <- v
	}
}
