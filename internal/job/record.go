package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"secureshred/internal/wipe"
)

// Overall job statuses carried by the completion record.
const (
	StatusShredded           = "Shredded successfully"
	StatusCompletedWithError = "Completed with errors"
	StatusNothingErased      = "No content erased"
	StatusCancelled          = "Cancelled"
)

// CompletionRecord is the factual record of one finished job. It is handed by
// value to whatever renders certificates; the job never stores it.
type CompletionRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Passes    int       `json:"passes"`
	Status    string    `json:"status"`
	Cipher    string    `json:"cipher,omitempty"`
	Items     int       `json:"items"`
	Failed    int       `json:"failed"`
	Bytes     int64     `json:"bytes"`
}

func newRecord(now time.Time, subject string, passes int) CompletionRecord {
	return CompletionRecord{
		ID:        uuid.NewString(),
		Timestamp: now,
		Subject:   subject,
		Passes:    passes,
	}
}

// Summary folds per-target outcomes into counts.
type Summary struct {
	Succeeded       int
	SkippedEmpty    int
	OverwriteFailed int
	// PartialOverwrites counts overwrite failures after at least one full pass.
	PartialOverwrites int
	EncryptFailed     int
	DeleteFailed      int
	// Bytes is the captured size of targets whose content was destroyed.
	Bytes int64
}

// Summarize reduces results to a Summary.
func Summarize(results []wipe.Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case wipe.OutcomeSuccess:
			s.Succeeded++
			s.Bytes += r.Target.Size
		case wipe.OutcomeSkippedEmpty:
			s.SkippedEmpty++
		case wipe.OutcomeOverwriteFailed:
			s.OverwriteFailed++
			if r.PassesCompleted > 0 {
				s.PartialOverwrites++
			}
		case wipe.OutcomeEncryptFailed:
			s.EncryptFailed++
		case wipe.OutcomeDeleteFailed:
			s.DeleteFailed++
			s.Bytes += r.Target.Size
		}
	}
	return s
}

// Failed is the number of targets that did not reach Done.
func (s Summary) Failed() int {
	return s.OverwriteFailed + s.EncryptFailed + s.DeleteFailed
}

// Lines describes each failure kind present, worst residual risk first.
func (s Summary) Lines() []string {
	var lines []string
	if s.OverwriteFailed > 0 {
		line := fmt.Sprintf("%s left in place after a failed overwrite", plural(s.OverwriteFailed, "file"))
		if s.PartialOverwrites > 0 {
			line += fmt.Sprintf(" (%d partially overwritten)", s.PartialOverwrites)
		}
		lines = append(lines, line)
	}
	if s.EncryptFailed > 0 {
		lines = append(lines, fmt.Sprintf("%s fully overwritten but not encrypted, left in place", plural(s.EncryptFailed, "file")))
	}
	if s.DeleteFailed > 0 {
		lines = append(lines, fmt.Sprintf("%s destroyed but not deleted; remove the remaining entries manually", plural(s.DeleteFailed, "file")))
	}
	return lines
}

func (s Summary) String() string {
	parts := []string{fmt.Sprintf("%d shredded", s.Succeeded)}
	if s.SkippedEmpty > 0 {
		parts = append(parts, fmt.Sprintf("%d empty", s.SkippedEmpty))
	}
	if n := s.Failed(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
