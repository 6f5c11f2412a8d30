// Package version computes deterministic build version strings from the
// package's nominal version and repository provenance.
package version

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/gitinfo"
	"github.com/wheelsmith/wheelsmith/internal/log"
)

// VersionFile is the file holding the package's nominal version,
// relative to the source directory.
const VersionFile = "version.txt"

var (
	// ErrNoProvenance indicates repository metadata is unavailable.
	// Ambiguous versions must never be published, so there is no fallback.
	ErrNoProvenance = errors.New("repository provenance unavailable")

	// ErrNoNominalVersion indicates the version file is missing or empty.
	ErrNoNominalVersion = errors.New("nominal version unavailable")
)

// Computer derives build version strings. Given the same repository state
// and channel it always produces the same string; builds from different
// refs produce distinct strings.
type Computer struct {
	git       gitinfo.Executor
	sourceDir string
}

// NewComputer creates a Computer reading the nominal version from sourceDir
// and provenance from the given git executor.
func NewComputer(git gitinfo.Executor, sourceDir string) *Computer {
	return &Computer{git: git, sourceDir: sourceDir}
}

// Compute returns the build version for the given channel.
//
// A HEAD tagged exactly with the nominal version is a release: the version
// is the nominal version unadorned. Anything else is a development build:
// "<nominal>.dev<commit count>+<channel>.<short hash>", so artifacts from
// different refs or channels never collide.
func (c *Computer) Compute(channel string) (string, error) {
	nominal, err := c.nominalVersion()
	if err != nil {
		return "", err
	}

	if !c.git.IsGitRepo() {
		return "", fmt.Errorf("%w: %s is not a git checkout", ErrNoProvenance, c.sourceDir)
	}

	tag, err := c.git.ExactTag()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoProvenance, err)
	}
	if tag == nominal || tag == "v"+nominal {
		log.Info(log.CatVersion, "Release build", "version", nominal, "tag", tag)
		return nominal, nil
	}

	count, err := c.git.RevCount()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoProvenance, err)
	}
	hash, err := c.git.HeadShortHash()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoProvenance, err)
	}

	local := sanitizeLabel(channel)
	if local != "" {
		local += "."
	}
	version := fmt.Sprintf("%s.dev%d+%s%s", nominal, count, local, hash)
	log.Info(log.CatVersion, "Development build", "version", version, "channel", channel)
	return version, nil
}

func (c *Computer) nominalVersion() (string, error) {
	data, err := os.ReadFile(filepath.Join(c.sourceDir, VersionFile)) //nolint:gosec // G304: sourceDir is user configuration
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoNominalVersion, err)
	}
	nominal := strings.TrimSpace(string(data))
	if nominal == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoNominalVersion, VersionFile)
	}
	return nominal, nil
}

// sanitizeLabel lowercases a channel name and squeezes everything outside
// [a-z0-9] into single dots, matching the local version identifier grammar.
func sanitizeLabel(channel string) string {
	var b strings.Builder
	lastDot := true // trim leading separators
	for _, r := range strings.ToLower(channel) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDot = false
		default:
			if !lastDot {
				b.WriteRune('.')
				lastDot = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), ".")
}
