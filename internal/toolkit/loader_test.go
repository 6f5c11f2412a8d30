package toolkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolkits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadCatalogFile(t *testing.T) {
	path := writeCatalogFile(t, `
toolkits:
  - short_version: "121"
    full_version: "12.1.1"
    installer_url: "https://example.com/cuda_12.1.1_530.30.02_linux.run"
  - short_version: "120"
    full_version: "12.0.1"
    installer_url: "https://example.com/cuda_12.0.1_525.85.12_linux.run"
`)

	entries, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "121", entries[0].ShortVersion)
	require.Equal(t, "12.1.1", entries[0].FullVersion)

	catalog := Builtin()
	catalog.Extend(entries)
	tk, err := catalog.Resolve("120")
	require.NoError(t, err)
	require.Equal(t, "12.0.1", tk.FullVersion)
}

func TestLoadCatalogFile_MissingFields(t *testing.T) {
	path := writeCatalogFile(t, `
toolkits:
  - full_version: "12.1.1"
`)

	_, err := LoadCatalogFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "short_version")
}

func TestLoadCatalogFile_Invalid(t *testing.T) {
	path := writeCatalogFile(t, "toolkits: [whoops")
	_, err := LoadCatalogFile(path)
	require.Error(t, err)
}

func TestLoadCatalogFile_NotFound(t *testing.T) {
	_, err := LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
