package version

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wheelsmith/wheelsmith/internal/gitinfo"
)

// mockGit implements gitinfo.Executor with canned responses.
type mockGit struct {
	isRepo   bool
	hash     string
	tag      string
	revCount int
	ref      string
	tagErr   error
	countErr error
}

var _ gitinfo.Executor = (*mockGit)(nil)

func (m *mockGit) IsGitRepo() bool { return m.isRepo }
func (m *mockGit) HeadShortHash() (string, error) {
	if m.hash == "" {
		return "", errors.New("no hash")
	}
	return m.hash, nil
}
func (m *mockGit) ExactTag() (string, error)    { return m.tag, m.tagErr }
func (m *mockGit) RevCount() (int, error)       { return m.revCount, m.countErr }
func (m *mockGit) CurrentRef() (string, error)  { return m.ref, nil }
func (m *mockGit) SubmoduleHash(string) (string, error) {
	return "", errors.New("not implemented")
}

func writeVersionFile(t *testing.T, nominal string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionFile), []byte(nominal+"\n"), 0600))
	return dir
}

func TestCompute_ReleaseBuild(t *testing.T) {
	dir := writeVersionFile(t, "0.0.16")

	tests := []struct {
		name string
		tag  string
	}{
		{name: "tag matches nominal", tag: "0.0.16"},
		{name: "v-prefixed tag matches nominal", tag: "v0.0.16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			git := &mockGit{isRepo: true, tag: tt.tag, hash: "abc1234", revCount: 500}
			computer := NewComputer(git, dir)

			got, err := computer.Compute("main")
			require.NoError(t, err)
			require.Equal(t, "0.0.16", got)
		})
	}
}

func TestCompute_DevelopmentBuild(t *testing.T) {
	dir := writeVersionFile(t, "0.0.16")
	git := &mockGit{isRepo: true, hash: "abc1234", revCount: 512}
	computer := NewComputer(git, dir)

	got, err := computer.Compute("main")
	require.NoError(t, err)
	require.Equal(t, "0.0.16.dev512+main.abc1234", got)
}

func TestCompute_ChannelSanitized(t *testing.T) {
	dir := writeVersionFile(t, "0.0.16")
	git := &mockGit{isRepo: true, hash: "abc1234", revCount: 512}
	computer := NewComputer(git, dir)

	tests := []struct {
		channel  string
		expected string
	}{
		{channel: "feature/FMHA-window", expected: "0.0.16.dev512+feature.fmha.window.abc1234"},
		{channel: "", expected: "0.0.16.dev512+abc1234"},
		{channel: "--weird--", expected: "0.0.16.dev512+weird.abc1234"},
	}

	for _, tt := range tests {
		got, err := computer.Compute(tt.channel)
		require.NoError(t, err)
		require.Equal(t, tt.expected, got, "channel %q", tt.channel)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	dir := writeVersionFile(t, "0.0.16")
	git := &mockGit{isRepo: true, hash: "abc1234", revCount: 512}
	computer := NewComputer(git, dir)

	first, err := computer.Compute("release-2.0")
	require.NoError(t, err)
	second, err := computer.Compute("release-2.0")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCompute_DistinguishesRefs(t *testing.T) {
	dir := writeVersionFile(t, "0.0.16")

	a, err := NewComputer(&mockGit{isRepo: true, hash: "abc1234", revCount: 512}, dir).Compute("main")
	require.NoError(t, err)
	b, err := NewComputer(&mockGit{isRepo: true, hash: "def5678", revCount: 513}, dir).Compute("main")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCompute_NoProvenance(t *testing.T) {
	dir := writeVersionFile(t, "0.0.16")

	tests := []struct {
		name string
		git  *mockGit
	}{
		{name: "not a git checkout", git: &mockGit{isRepo: false}},
		{name: "tag lookup fails fatally", git: &mockGit{isRepo: true, tagErr: gitinfo.ErrNotGitRepo}},
		{name: "rev count fails", git: &mockGit{isRepo: true, hash: "abc1234", countErr: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewComputer(tt.git, dir).Compute("main")
			require.ErrorIs(t, err, ErrNoProvenance)
		})
	}
}

func TestCompute_MissingVersionFile(t *testing.T) {
	git := &mockGit{isRepo: true, hash: "abc1234", revCount: 1}
	_, err := NewComputer(git, t.TempDir()).Compute("main")
	require.ErrorIs(t, err, ErrNoNominalVersion)
}
