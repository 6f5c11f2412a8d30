// Package pin rewrites dependency manifests so a package is constrained to
// one exact version.
package pin

import (
	"fmt"
	"os"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

type options struct {
	matchSubstring bool
}

// Option configures pinning behavior.
type Option func(*options)

// MatchSubstring removes any line merely containing the package name,
// replicating the historical behavior. It can over-match a differently
// named package sharing a substring ("torch" also removes
// "pytorch-lightning"), so the default is exact-token matching.
func MatchSubstring() Option {
	return func(o *options) { o.matchSubstring = true }
}

// Pin removes every requirement line for name and appends exactly one
// "name == exact" line. Surviving unrelated lines keep their relative
// order; the pin is always last.
func Pin(lines []string, name, exact string, opts ...Option) []string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	result := make([]string, 0, len(lines)+1)
	removed := 0
	for _, line := range lines {
		if matches(line, name, o) {
			removed++
			continue
		}
		result = append(result, line)
	}

	log.Debug(log.CatConfig, "Pinned requirement", "package", name, "version", exact, "removed", removed)
	return append(result, fmt.Sprintf("%s == %s", name, exact))
}

// PinFile applies Pin to a requirements file in place.
// This must run before dependency installation; pinning afterwards leaves
// stale resolutions in the environment.
func PinFile(path, name, exact string, opts ...Option) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is user configuration
	if err != nil {
		return fmt.Errorf("reading requirements: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	pinned := Pin(lines, name, exact, opts...)

	content := strings.Join(pinned, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil { //nolint:gosec // G306: requirements files are world-readable
		return fmt.Errorf("writing requirements: %w", err)
	}
	return nil
}

func matches(line, name string, o options) bool {
	if o.matchSubstring {
		return strings.Contains(line, name)
	}

	// Exact-token match: the requirement name at the start of the line,
	// terminated by end of line or a version/extras/marker separator.
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, name) {
		return false
	}
	rest := trimmed[len(name):]
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ' ', '\t', '=', '<', '>', '!', '~', '[', ';':
		return true
	}
	return false
}
