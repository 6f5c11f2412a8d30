package gitinfo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGitError(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		expected error
	}{
		{
			name:     "not a git repository",
			stderr:   "fatal: not a git repository (or any of the parent directories): .git",
			expected: ErrNotGitRepo,
		},
		{
			name:     "shallow clone",
			stderr:   "fatal: git rev-list: refusing to count in shallow repository",
			expected: ErrShallowClone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseGitError(tt.stderr, errors.New("exit status 128"))
			require.ErrorIs(t, err, tt.expected)
			require.Contains(t, err.Error(), tt.stderr)
		})
	}
}

func TestParseGitError_Unrecognized(t *testing.T) {
	original := errors.New("exit status 1")
	err := parseGitError("fatal: something unexpected", original)
	require.ErrorIs(t, err, original)
	require.NotErrorIs(t, err, ErrNotGitRepo)
}
