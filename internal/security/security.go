// Package security guards against erasing system locations and asks the
// operator before anything destructive happens.
package security

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"

	"secureshred/internal/config"
)

var ErrProtected = errors.New("protected path")

// ProtectedPaths returns the configured protected paths plus the current
// user's home directory, cleaned and absolute.
func ProtectedPaths(cfg config.SecurityConfig) []string {
	paths := append([]string(nil), cfg.ProtectedPaths...)
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, home)
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

// CheckTargets rejects every target that is a protected path or contains
// one. Files and folders inside a protected path are allowed.
func CheckTargets(targets []string, protected []string) error {
	var (
		result *multierror.Error
		hit    bool
	)
	for _, t := range targets {
		abs, err := filepath.Abs(t)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "resolve %s", t))
			continue
		}
		for _, p := range protected {
			if covers(abs, p) {
				hit = true
				result = multierror.Append(result,
					errors.Newf("refusing to shred %s: it contains protected path %s", abs, p))
				break
			}
		}
	}
	err := result.ErrorOrNil()
	if err != nil && hit {
		err = errors.WithHint(errors.Mark(err, ErrProtected), "choose a more specific file or folder")
	}
	return err
}

// covers reports whether target is p or an ancestor of p.
func covers(target, p string) bool {
	if samePath(target, p) {
		return true
	}
	rel, err := filepath.Rel(target, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func samePath(a, b string) bool {
	if filepath.Separator == '\\' {
		return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// Confirm prints the prompt and reads a y/N answer. Anything other than y or
// yes declines.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s (y/N): ", prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
