package buildtools

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/wheelsmith/wheelsmith/internal/log"
	"github.com/wheelsmith/wheelsmith/internal/toolkit"
)

// Accelerator installs the accelerator toolkit the packaging stages compile
// against.
type Accelerator interface {
	Install(ctx context.Context, tk toolkit.Toolkit) error
}

// Compile-time check that RealAccelerator implements Accelerator.
var _ Accelerator = (*RealAccelerator)(nil)

// RealAccelerator downloads the standalone installer from the catalog's
// location and runs it silently, toolkit only.
type RealAccelerator struct {
	downloadDir string
	run         runner
}

// NewRealAccelerator creates a RealAccelerator staging downloads in downloadDir.
func NewRealAccelerator(downloadDir string) *RealAccelerator {
	return &RealAccelerator{downloadDir: downloadDir, run: run}
}

func (a *RealAccelerator) Install(ctx context.Context, tk toolkit.Toolkit) error {
	if tk.InstallerURL == "" {
		return fmt.Errorf("toolkit %s has no installer location", tk.FullVersion)
	}

	dst := filepath.Join(a.downloadDir, path.Base(tk.InstallerURL))
	log.Info(log.CatExec, "Downloading accelerator installer", "version", tk.FullVersion, "url", tk.InstallerURL)
	if _, err := a.run(ctx, "", nil, "curl", "-fsSL", "-o", dst, tk.InstallerURL); err != nil {
		return fmt.Errorf("downloading installer: %w", err)
	}

	log.Info(log.CatExec, "Installing accelerator toolkit", "version", tk.FullVersion)
	if _, err := a.run(ctx, "", nil, "sh", dst, "--silent", "--toolkit"); err != nil {
		return fmt.Errorf("installing toolkit %s: %w", tk.FullVersion, err)
	}
	return nil
}
