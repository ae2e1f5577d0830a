// Package ui renders a running job's progress and status streams.
package ui

import (
	"fmt"
	"io"

	"secureshred/internal/job"
)

// RunPlain prints status lines as they arrive and progress in steps of
// step percent, then returns the job outcome.
func RunPlain(out io.Writer, s *job.Stream, step int) job.Outcome {
	if step < 1 {
		step = 10
	}
	progress, status := s.Progress, s.Status
	next := step
	last := -1
	for progress != nil || status != nil {
		select {
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			if p == last {
				continue
			}
			last = p
			if p >= next || p == 100 {
				fmt.Fprintf(out, "[%3d%%]\n", p)
				for next <= p {
					next += step
				}
			}
		case msg, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			fmt.Fprintln(out, msg)
		}
	}
	return <-s.Done
}
