package buildtools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

// BuildOpts carries the build-time configuration the native compile needs:
// the architecture list for the compiler and the version string for the
// packager, plus the concurrency cap.
type BuildOpts struct {
	SourceDir string
	OutputDir string

	// BuildVersion is exported as BUILD_VERSION for the packager.
	BuildVersion string
	// Archs is exported as TORCH_CUDA_ARCH_LIST, space-joined in order.
	Archs []string
	// MaxJobs caps concurrent compilation units. Accelerator-targeted
	// compilation units are memory hungry; the cap bounds peak memory,
	// it is not a performance knob. Values below 1 are raised to 1.
	MaxJobs int
}

// WheelBuilder produces the binary and source distributions.
type WheelBuilder interface {
	// BuildWheel compiles and packages the platform wheel, returning the
	// artifact path.
	BuildWheel(ctx context.Context, opts BuildOpts) (string, error)
	// BuildSourceDist packages the source distribution, returning the
	// artifact path.
	BuildSourceDist(ctx context.Context, opts BuildOpts) (string, error)
}

// Compile-time check that RealBuilder implements WheelBuilder.
var _ WheelBuilder = (*RealBuilder)(nil)

// RealBuilder invokes the project's setup script through the configured
// interpreter.
type RealBuilder struct {
	python string
	run    runner
}

// NewRealBuilder creates a RealBuilder using the given interpreter executable.
func NewRealBuilder(python string) *RealBuilder {
	return &RealBuilder{python: python, run: run}
}

func (b *RealBuilder) BuildWheel(ctx context.Context, opts BuildOpts) (string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	_, err := b.run(ctx, opts.SourceDir, buildEnv(opts),
		b.python, "setup.py", "bdist_wheel", "-d", opts.OutputDir)
	if err != nil {
		return "", err
	}

	path, err := newestArtifact(opts.OutputDir, ".whl")
	if err != nil {
		return "", err
	}
	log.Info(log.CatExec, "Wheel built", "path", path)
	return path, nil
}

func (b *RealBuilder) BuildSourceDist(ctx context.Context, opts BuildOpts) (string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	_, err := b.run(ctx, opts.SourceDir, buildEnv(opts),
		b.python, "setup.py", "sdist", "-d", opts.OutputDir)
	if err != nil {
		return "", err
	}

	path, err := newestArtifact(opts.OutputDir, ".tar.gz")
	if err != nil {
		return "", err
	}
	log.Info(log.CatExec, "Source distribution built", "path", path)
	return path, nil
}

// buildEnv renders BuildOpts as the environment the build tooling reads.
func buildEnv(opts BuildOpts) []string {
	jobs := opts.MaxJobs
	if jobs < 1 {
		jobs = 1
	}
	env := []string{
		"BUILD_VERSION=" + opts.BuildVersion,
		"MAX_JOBS=" + strconv.Itoa(jobs),
	}
	if len(opts.Archs) > 0 {
		env = append(env, "TORCH_CUDA_ARCH_LIST="+strings.Join(opts.Archs, " "))
	}
	return env
}

// newestArtifact returns the most recently modified file in dir with the
// given suffix. The setup script names the artifact itself, so the builder
// discovers it after the fact.
func newestArtifact(dir, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading output directory: %w", err)
	}

	var newest string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = entry.Name()
			newestMod = mod
		}
	}

	if newest == "" {
		return "", fmt.Errorf("no %s artifact found in %s", suffix, dir)
	}
	return filepath.Join(dir, newest), nil
}
