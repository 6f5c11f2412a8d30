// Package pipeline turns one matrix cell into an ordered, conditional
// sequence of build and publish stages with fail-fast and skip semantics.
package pipeline

import "fmt"

// OS identifies the platform a cell builds for.
type OS string

const (
	OSLinux   OS = "linux"
	OSWindows OS = "windows"
	OSMacOS   OS = "macos"
)

// ParseOS validates an os name from the CLI surface.
func ParseOS(s string) (OS, error) {
	switch OS(s) {
	case OSLinux, OSWindows, OSMacOS:
		return OS(s), nil
	default:
		return "", fmt.Errorf("unknown os %q (expected linux, windows, or macos)", s)
	}
}

// Credentials authenticate a registry upload. Opaque to the pipeline;
// only the publish stages read them.
type Credentials struct {
	Username string
	Password string
}

// MatrixCell is the declarative input for one pipeline invocation.
// It is immutable; cells share no state with each other.
type MatrixCell struct {
	OS          OS
	Python      string // interpreter version, e.g. "3.10"
	Torch       string // runtime version the wheel is pinned against
	CUDAShort   string // accelerator short version, key into the catalog
	Publish     bool
	SourceDist  bool
	Credentials Credentials
}

// Label returns the deterministic name for the cell's artifact directory.
func (c MatrixCell) Label() string {
	return fmt.Sprintf("%s-py%s-torch%s-cu%s", c.OS, c.Python, c.Torch, c.CUDAShort)
}
