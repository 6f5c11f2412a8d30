package toolkit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

// catalogFile is the on-disk shape of a toolkit catalog file.
type catalogFile struct {
	Toolkits []Toolkit `yaml:"toolkits"`
}

// LoadCatalogFile reads toolkit entries from a YAML file. The file holds a
// top-level "toolkits" list; each entry needs a short version, a full
// version, and an installer URL.
func LoadCatalogFile(path string) ([]Toolkit, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	for _, tk := range cf.Toolkits {
		if tk.ShortVersion == "" || tk.FullVersion == "" {
			return nil, fmt.Errorf("catalog file %s: entry missing short_version or full_version", path)
		}
	}

	log.Debug(log.CatCatalog, "Loaded catalog file", "path", path, "entries", len(cf.Toolkits))
	return cf.Toolkits, nil
}
