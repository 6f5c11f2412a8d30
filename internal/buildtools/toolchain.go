package buildtools

import (
	"context"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

// Toolchain prepares the platform compiler toolchain. On windows this
// installs and activates the MSVC build tools; other platforms ship a
// usable toolchain and configure an empty setup command.
type Toolchain interface {
	Setup(ctx context.Context) error
}

// Compile-time check that RealToolchain implements Toolchain.
var _ Toolchain = (*RealToolchain)(nil)

// RealToolchain runs a configured setup command line.
type RealToolchain struct {
	setupCmd []string
	run      runner
}

// NewRealToolchain creates a RealToolchain running the given command line.
// An empty command line makes Setup a no-op.
func NewRealToolchain(setupCmd []string) *RealToolchain {
	return &RealToolchain{setupCmd: setupCmd, run: run}
}

func (t *RealToolchain) Setup(ctx context.Context) error {
	if len(t.setupCmd) == 0 {
		log.Debug(log.CatExec, "No toolchain setup configured")
		return nil
	}
	_, err := t.run(ctx, "", nil, t.setupCmd[0], t.setupCmd[1:]...)
	return err
}
