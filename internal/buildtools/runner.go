// Package buildtools wraps the external tools each pipeline stage delegates
// to: pip, the wheel builder, the registry uploader, and the OS-specific
// installers. Every collaborator is an interface with a Real implementation
// shelling out, so stages stay testable without the tools present.
package buildtools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

// runner executes one external command. Real implementations use run;
// tests substitute their own to capture invocations.
type runner func(ctx context.Context, dir string, env []string, name string, args ...string) (string, error)

// run executes a command with optional extra environment and returns
// trimmed stdout. Stderr is captured and folded into the error.
func run(ctx context.Context, dir string, env []string, name string, args ...string) (string, error) {
	//nolint:gosec // G204: commands and args come from controlled sources
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug(log.CatExec, "Running command", "name", name, "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", fmt.Errorf("%s failed: %s", name, stderrStr)
		}
		return "", fmt.Errorf("%s failed: %w", name, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
