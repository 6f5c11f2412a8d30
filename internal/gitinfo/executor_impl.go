// Package gitinfo queries repository metadata used for provenance stamping
// and build version computation.
package gitinfo

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

// Git-specific errors for metadata queries.
var (
	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrShallowClone indicates history is truncated and counts are unreliable.
	ErrShallowClone = errors.New("shallow clone")
)

// Compile-time check that RealExecutor implements Executor.
var _ Executor = (*RealExecutor)(nil)

// RealExecutor implements Executor by executing actual git commands.
type RealExecutor struct {
	workDir string
}

// NewRealExecutor creates a new RealExecutor rooted at workDir.
func NewRealExecutor(workDir string) *RealExecutor {
	return &RealExecutor{workDir: workDir}
}

// runGit executes a git command and returns an error if it fails.
func (e *RealExecutor) runGit(args ...string) error {
	_, err := e.runGitOutput(args...)
	return err
}

// runGitOutput executes a git command and returns stdout and any error.
func (e *RealExecutor) runGitOutput(args ...string) (string, error) {
	return e.runGitOutputIn(e.workDir, args...)
}

func (e *RealExecutor) runGitOutputIn(dir string, args ...string) (string, error) {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", parseGitError(stderrStr, err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// parseGitError converts git stderr messages to specific error types.
func parseGitError(stderr string, originalErr error) error {
	stderrLower := strings.ToLower(stderr)

	if strings.Contains(stderrLower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}

	if strings.Contains(stderrLower, "shallow") {
		return fmt.Errorf("%w: %s", ErrShallowClone, stderr)
	}

	return fmt.Errorf("git error: %s: %w", stderr, originalErr)
}

// IsGitRepo checks if the working directory is inside a git repository.
func (e *RealExecutor) IsGitRepo() bool {
	err := e.runGit("rev-parse", "--git-dir")
	return err == nil
}

// HeadShortHash returns the abbreviated hash of HEAD.
func (e *RealExecutor) HeadShortHash() (string, error) {
	return e.runGitOutput("rev-parse", "--short", "HEAD")
}

// ExactTag returns the tag pointing exactly at HEAD, or "" if HEAD is untagged.
func (e *RealExecutor) ExactTag() (string, error) {
	output, err := e.runGitOutput("describe", "--tags", "--exact-match")
	if err != nil {
		// An untagged HEAD is not an error for callers; they fall back to
		// a development version.
		if errors.Is(err, ErrNotGitRepo) {
			return "", err
		}
		log.Debug(log.CatGit, "No exact tag at HEAD")
		return "", nil
	}
	return output, nil
}

// RevCount returns the number of commits reachable from HEAD.
func (e *RealExecutor) RevCount() (int, error) {
	output, err := e.runGitOutput("rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(output)
	if err != nil {
		return 0, fmt.Errorf("parsing rev count %q: %w", output, err)
	}
	return count, nil
}

// CurrentRef returns the symbolic name of the checked out ref.
func (e *RealExecutor) CurrentRef() (string, error) {
	// git branch --show-current is empty when HEAD is detached.
	output, err := e.runGitOutput("branch", "--show-current")
	if err == nil && output != "" {
		return output, nil
	}
	return e.HeadShortHash()
}

// SubmoduleHash returns the HEAD hash of the submodule checked out at path.
func (e *RealExecutor) SubmoduleHash(path string) (string, error) {
	dir := path
	if e.workDir != "" {
		dir = filepath.Join(e.workDir, path)
	}
	output, err := e.runGitOutputIn(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("submodule %s: %w", path, err)
	}
	return output, nil
}
