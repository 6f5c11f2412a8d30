package buildtools

import "context"

// Pip installs Python dependencies.
type Pip interface {
	// InstallRequirements installs every requirement in the manifest at path.
	InstallRequirements(ctx context.Context, path string) error
	// Install installs the given requirement specifiers directly.
	Install(ctx context.Context, specs ...string) error
}

// Compile-time check that RealPip implements Pip.
var _ Pip = (*RealPip)(nil)

// RealPip shells out to pip through the configured interpreter.
type RealPip struct {
	python string
	run    runner
}

// NewRealPip creates a RealPip using the given interpreter executable.
func NewRealPip(python string) *RealPip {
	return &RealPip{python: python, run: run}
}

func (p *RealPip) InstallRequirements(ctx context.Context, path string) error {
	_, err := p.run(ctx, "", nil, p.python, "-m", "pip", "install", "-r", path)
	return err
}

func (p *RealPip) Install(ctx context.Context, specs ...string) error {
	args := append([]string{"-m", "pip", "install"}, specs...)
	_, err := p.run(ctx, "", nil, p.python, args...)
	return err
}
