package pin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPin(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		pkg      string
		version  string
		opts     []Option
		expected []string
	}{
		{
			name:     "existing line removed and pin appended last",
			lines:    []string{"foo==1", "torch==1.2", "bar"},
			pkg:      "torch",
			version:  "2.0.1",
			expected: []string{"foo==1", "bar", "torch == 2.0.1"},
		},
		{
			name:     "no existing line still appends pin",
			lines:    []string{"foo==1", "bar"},
			pkg:      "torch",
			version:  "1.13.1",
			expected: []string{"foo==1", "bar", "torch == 1.13.1"},
		},
		{
			name:     "multiple matching lines all removed",
			lines:    []string{"torch", "numpy", "torch>=1.12,<2"},
			pkg:      "torch",
			version:  "1.12.1",
			expected: []string{"numpy", "torch == 1.12.1"},
		},
		{
			name:     "extras and markers count as the same requirement",
			lines:    []string{"torch[cuda]==1.2", "torch; python_version < '3.11'", "numpy"},
			pkg:      "torch",
			version:  "2.0.1",
			expected: []string{"numpy", "torch == 2.0.1"},
		},
		{
			name:     "exact-token match keeps packages sharing a substring",
			lines:    []string{"pytorch-lightning==1.9", "torchvision", "torch==1.2"},
			pkg:      "torch",
			version:  "2.0.1",
			expected: []string{"pytorch-lightning==1.9", "torchvision", "torch == 2.0.1"},
		},
		{
			name:     "substring mode replicates the blunt legacy behavior",
			lines:    []string{"pytorch-lightning==1.9", "torchvision", "numpy"},
			pkg:      "torch",
			version:  "2.0.1",
			opts:     []Option{MatchSubstring()},
			expected: []string{"numpy", "torch == 2.0.1"},
		},
		{
			name:     "match is case-sensitive",
			lines:    []string{"Torch==1.2"},
			pkg:      "torch",
			version:  "2.0.1",
			expected: []string{"Torch==1.2", "torch == 2.0.1"},
		},
		{
			name:     "empty input",
			lines:    nil,
			pkg:      "torch",
			version:  "2.0.1",
			expected: []string{"torch == 2.0.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Pin(tt.lines, tt.pkg, tt.version, tt.opts...))
		})
	}
}

func TestPin_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pkg := "torch"
		version := rapid.StringMatching(`[0-9]\.[0-9]{1,2}\.[0-9]`).Draw(t, "version")
		lines := rapid.SliceOfN(
			rapid.StringMatching(`[a-z][a-z0-9-]{0,10}(==[0-9.]{1,6})?`), 0, 12,
		).Draw(t, "lines")

		got := Pin(lines, pkg, version)

		// The pin is always present, exactly once, and always last.
		pinLine := fmt.Sprintf("%s == %s", pkg, version)
		if got[len(got)-1] != pinLine {
			t.Fatalf("last line = %q, want %q", got[len(got)-1], pinLine)
		}

		// No surviving line references the package.
		for _, line := range got[:len(got)-1] {
			name, _, _ := strings.Cut(strings.TrimSpace(line), "==")
			if name == pkg {
				t.Fatalf("unpinned %q line survived: %q", pkg, line)
			}
		}

		// Non-matching lines keep their relative order.
		var kept []string
		for _, line := range lines {
			name, _, _ := strings.Cut(strings.TrimSpace(line), "==")
			if name != pkg {
				kept = append(kept, line)
			}
		}
		if len(kept) != len(got)-1 {
			t.Fatalf("kept %d lines, want %d", len(got)-1, len(kept))
		}
		for i, line := range kept {
			if got[i] != line {
				t.Fatalf("line %d = %q, want %q", i, got[i], line)
			}
		}
	})
}

func TestPinFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte("numpy\ntorch==1.2\npyre-extensions == 0.0.23\n"), 0644))

	require.NoError(t, PinFile(path, "torch", "1.13.1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "numpy\npyre-extensions == 0.0.23\ntorch == 1.13.1\n", string(data))
}

func TestPinFile_Missing(t *testing.T) {
	err := PinFile(filepath.Join(t.TempDir(), "requirements.txt"), "torch", "1.13.1")
	require.Error(t, err)
}
