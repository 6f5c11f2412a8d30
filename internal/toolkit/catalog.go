// Package toolkit maintains the accelerator toolkit catalog and the
// architecture list policy used to resolve a matrix cell's build targets.
package toolkit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

// ErrUnknownToolkit indicates a short version with no catalog entry.
// The pipeline must not proceed with a guessed or default toolkit.
var ErrUnknownToolkit = errors.New("unknown accelerator toolkit version")

// Toolkit describes one accelerator toolkit release.
type Toolkit struct {
	// ShortVersion is the compact matrix key, e.g. "118".
	ShortVersion string `yaml:"short_version"`
	// FullVersion is the complete release version, e.g. "11.8.0".
	FullVersion string `yaml:"full_version"`
	// InstallerURL locates the standalone installer for linux builds.
	InstallerURL string `yaml:"installer_url"`
}

// Catalog maps accelerator short versions to toolkit releases.
// Entries are injected at construction; lookups are exact-match only.
type Catalog struct {
	toolkits map[string]Toolkit
}

// NewCatalog builds a catalog from the given entries.
// Short versions must be unique.
func NewCatalog(entries []Toolkit) (*Catalog, error) {
	toolkits := make(map[string]Toolkit, len(entries))
	for _, tk := range entries {
		if tk.ShortVersion == "" {
			return nil, fmt.Errorf("catalog entry %q missing short version", tk.FullVersion)
		}
		if _, exists := toolkits[tk.ShortVersion]; exists {
			return nil, fmt.Errorf("duplicate catalog entry for %q", tk.ShortVersion)
		}
		toolkits[tk.ShortVersion] = tk
	}
	return &Catalog{toolkits: toolkits}, nil
}

// Builtin returns the catalog of toolkit releases known at compile time.
// New releases are normally added through the catalog file instead.
func Builtin() *Catalog {
	c, err := NewCatalog([]Toolkit{
		{
			ShortVersion: "118",
			FullVersion:  "11.8.0",
			InstallerURL: "https://developer.download.nvidia.com/compute/cuda/11.8.0/local_installers/cuda_11.8.0_520.61.05_linux.run",
		},
		{
			ShortVersion: "117",
			FullVersion:  "11.7.1",
			InstallerURL: "https://developer.download.nvidia.com/compute/cuda/11.7.1/local_installers/cuda_11.7.1_515.65.01_linux.run",
		},
		{
			ShortVersion: "116",
			FullVersion:  "11.6.2",
			InstallerURL: "https://developer.download.nvidia.com/compute/cuda/11.6.2/local_installers/cuda_11.6.2_510.47.03_linux.run",
		},
	})
	if err != nil {
		// Builtin entries are fixed at compile time; a duplicate is a
		// programmer error.
		panic(err)
	}
	return c
}

// Resolve returns the toolkit for the given short version.
// Unknown short versions are a fatal configuration error.
func (c *Catalog) Resolve(shortVersion string) (Toolkit, error) {
	tk, ok := c.toolkits[shortVersion]
	if !ok {
		return Toolkit{}, fmt.Errorf("%w: %q", ErrUnknownToolkit, shortVersion)
	}
	log.Debug(log.CatCatalog, "Resolved toolkit", "short", shortVersion, "full", tk.FullVersion)
	return tk, nil
}

// Extend adds entries to the catalog, replacing existing short versions.
// Later entries win so a catalog file can override builtin installer URLs.
func (c *Catalog) Extend(entries []Toolkit) {
	for _, tk := range entries {
		if tk.ShortVersion == "" {
			continue
		}
		c.toolkits[tk.ShortVersion] = tk
	}
}

// All returns every catalog entry sorted by short version.
func (c *Catalog) All() []Toolkit {
	result := make([]Toolkit, 0, len(c.toolkits))
	for _, tk := range c.toolkits {
		result = append(result, tk)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ShortVersion < result[j].ShortVersion
	})
	return result
}
