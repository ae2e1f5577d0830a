// Package reporting turns completion records into shredding certificates.
package reporting

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"secureshred/internal/config"
	"secureshred/internal/job"
)

// TimestampLayout is how certificates print the job time.
const TimestampLayout = "2006-01-02 15:04:05 MST"

// Certificate is the saved form of one finished job.
type Certificate struct {
	Record  job.CompletionRecord `json:"record"`
	Targets []TargetReport       `json:"targets,omitempty"`
	Notes   []string             `json:"notes,omitempty"`
}

// TargetReport describes what happened to one file.
type TargetReport struct {
	Name            string `json:"name"`
	Size            int64  `json:"size"`
	Outcome         string `json:"outcome"`
	PassesCompleted int    `json:"passes_completed"`
	Message         string `json:"message,omitempty"`
}

// New builds a certificate from a job result. Per-file entries are only
// included when listTargets is set, and then carry the file's display name,
// never its path.
func New(res *job.Result, listTargets bool) Certificate {
	c := Certificate{Record: res.Record, Notes: res.Summary.Lines()}
	if !listTargets {
		return c
	}
	for _, r := range res.Targets {
		c.Targets = append(c.Targets, TargetReport{
			Name:            r.Target.Name,
			Size:            r.Target.Size,
			Outcome:         r.Outcome.String(),
			PassesCompleted: r.PassesCompleted,
			Message:         r.Message,
		})
	}
	return c
}

// RenderText formats the certificate for people. savedAt is shown when the
// certificate has been written somewhere.
func RenderText(c Certificate, savedAt string) string {
	rec := c.Record
	var b strings.Builder
	b.WriteString("Secure Shred Certificate\n")
	b.WriteString("========================\n")
	line := func(label, value string) {
		fmt.Fprintf(&b, "%-18s %s\n", label+":", value)
	}
	line("UUID", rec.ID)
	line("Timestamp", rec.Timestamp.Format(TimestampLayout))
	line("Item Name", rec.Subject)
	line("Overwrite Passes", fmt.Sprintf("%d", rec.Passes))
	if rec.Cipher != "" {
		line("Final Pass", rec.Cipher+" with discarded key")
	}
	line("Files", fmt.Sprintf("%d (%d failed)", rec.Items, rec.Failed))
	line("Bytes Destroyed", fmt.Sprintf("%d", rec.Bytes))
	line("Status", rec.Status)
	if savedAt != "" {
		line("Saved At", savedAt)
	}
	for _, n := range c.Notes {
		b.WriteString("  - " + n + "\n")
	}
	return b.String()
}

// RenderJSON formats the certificate as indented JSON.
func RenderJSON(c Certificate) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialise certificate")
	}
	return data, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeSubject makes a subject safe to embed in a file name.
func SanitizeSubject(s string) string {
	if s == "" {
		return "unnamed"
	}
	return unsafeChars.ReplaceAllString(s, "_")
}

// FileBase is the certificate file name without extension.
func FileBase(rec job.CompletionRecord) string {
	return fmt.Sprintf("Shred_Certificate_%s_%d", SanitizeSubject(rec.Subject), rec.Timestamp.UnixMilli())
}

// Save writes the certificate in the configured formats under
// cfg.LocalPath and returns the written paths. Nothing is written when
// reporting is disabled.
func Save(fs afero.Fs, cfg config.ReportingConfig, c Certificate) ([]string, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := fs.MkdirAll(cfg.LocalPath, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create certificate directory")
	}

	base := filepath.Join(cfg.LocalPath, FileBase(c.Record))
	var written []string

	if cfg.Format == "json" || cfg.Format == "both" {
		data, err := RenderJSON(c)
		if err != nil {
			return written, err
		}
		path := base + ".json"
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			return written, errors.Wrapf(err, "failed to write %s", path)
		}
		written = append(written, path)
	}
	if cfg.Format == "txt" || cfg.Format == "both" {
		path := base + ".txt"
		text := RenderText(c, "")
		if err := afero.WriteFile(fs, path, []byte(text), 0o644); err != nil {
			return written, errors.Wrapf(err, "failed to write %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}
