package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wheelsmith/wheelsmith/internal/buildtools"
	"github.com/wheelsmith/wheelsmith/internal/gitinfo"
	"github.com/wheelsmith/wheelsmith/internal/pipeline"
	"github.com/wheelsmith/wheelsmith/internal/toolkit"
	"github.com/wheelsmith/wheelsmith/internal/version"
)

// fakeGit implements gitinfo.Executor with canned responses.
type fakeGit struct {
	hash          string
	revCount      int
	submoduleHash string
}

var _ gitinfo.Executor = (*fakeGit)(nil)

func (g *fakeGit) IsGitRepo() bool                  { return true }
func (g *fakeGit) HeadShortHash() (string, error)   { return g.hash, nil }
func (g *fakeGit) ExactTag() (string, error)        { return "", nil }
func (g *fakeGit) RevCount() (int, error)           { return g.revCount, nil }
func (g *fakeGit) CurrentRef() (string, error)      { return "main", nil }
func (g *fakeGit) SubmoduleHash(string) (string, error) {
	return g.submoduleHash, nil
}

// harness wires fake collaborators around the real stage assembly and
// records the pipeline's observable effects.
type harness struct {
	deps Deps
	opts Options

	calls           *[]string
	pippedManifest  *string // manifest contents as seen by pip
	builtOpts       *buildtools.BuildOpts
	stampSeen       *bool // revision stamp present when sdist packaging ran
	uploads         *[]upload
	publishWheelErr error
}

type upload struct {
	path, username, password, registryURL string
}

type fakePip struct{ h *harness }

func (p *fakePip) InstallRequirements(ctx context.Context, path string) error {
	*p.h.calls = append(*p.h.calls, "pip")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	*p.h.pippedManifest = string(data)
	return nil
}
func (p *fakePip) Install(ctx context.Context, specs ...string) error { return nil }

type fakeToolchain struct{ h *harness }

func (t *fakeToolchain) Setup(ctx context.Context) error {
	*t.h.calls = append(*t.h.calls, "toolchain")
	return nil
}

type fakeAccelerator struct {
	h         *harness
	installed *toolkit.Toolkit
}

func (a *fakeAccelerator) Install(ctx context.Context, tk toolkit.Toolkit) error {
	*a.h.calls = append(*a.h.calls, "accelerator")
	*a.installed = tk
	return nil
}

type fakeBuilder struct{ h *harness }

func (b *fakeBuilder) BuildWheel(ctx context.Context, opts buildtools.BuildOpts) (string, error) {
	*b.h.calls = append(*b.h.calls, "wheel")
	*b.h.builtOpts = opts
	return filepath.Join(opts.OutputDir, "attnlib.whl"), nil
}

func (b *fakeBuilder) BuildSourceDist(ctx context.Context, opts buildtools.BuildOpts) (string, error) {
	*b.h.calls = append(*b.h.calls, "sdist")
	stamp := filepath.Join(b.h.opts.SourceDir, b.h.opts.SubmodulePath, submoduleRevisionFile)
	if _, err := os.Stat(stamp); err == nil {
		*b.h.stampSeen = true
	}
	return filepath.Join(opts.OutputDir, "attnlib.tar.gz"), nil
}

type fakePublisher struct{ h *harness }

func (p *fakePublisher) Upload(ctx context.Context, path, username, password, registryURL string) error {
	*p.h.calls = append(*p.h.calls, "upload")
	*p.h.uploads = append(*p.h.uploads, upload{path, username, password, registryURL})
	if p.h.publishWheelErr != nil && filepath.Ext(path) == ".whl" {
		return p.h.publishWheelErr
	}
	return nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sourceDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, version.VersionFile), []byte("0.0.16\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "requirements.txt"),
		[]byte("numpy\ntorch==1.12\npyre-extensions == 0.0.23\n"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "third_party", "flash-attention"), 0750))

	git := &fakeGit{hash: "abc1234", revCount: 512, submoduleHash: "feedface"}

	h := &harness{
		opts: Options{
			SourceDir:     sourceDir,
			OutputDir:     filepath.Join(sourceDir, "dist"),
			Requirements:  "requirements.txt",
			SubmodulePath: filepath.Join("third_party", "flash-attention"),
			Channel:       "main",
			MaxJobs:       1,
			RegistryURL:   "https://pypi.example.com/legacy/",
		},
		calls:          new([]string),
		pippedManifest: new(string),
		builtOpts:      new(buildtools.BuildOpts),
		stampSeen:      new(bool),
		uploads:        new([]upload),
	}
	h.deps = Deps{
		Catalog:     toolkit.Builtin(),
		ArchPolicy:  toolkit.DefaultArchPolicy(),
		Version:     version.NewComputer(git, sourceDir),
		Git:         git,
		Pip:         &fakePip{h: h},
		Toolchain:   &fakeToolchain{h: h},
		Accelerator: &fakeAccelerator{h: h, installed: new(toolkit.Toolkit)},
		Builder:     &fakeBuilder{h: h},
		Publisher:   &fakePublisher{h: h},
	}
	return h
}

func (h *harness) execute(t *testing.T, cell pipeline.MatrixCell) (pipeline.Report, error) {
	t.Helper()
	executor := pipeline.NewExecutor(Stages(h.deps, h.opts))
	return executor.Execute(context.Background(), cell)
}

func linuxCell() pipeline.MatrixCell {
	return pipeline.MatrixCell{
		OS:        pipeline.OSLinux,
		Python:    "3.10",
		Torch:     "1.13.1",
		CUDAShort: "118",
		Credentials: pipeline.Credentials{
			Username: "ci-bot",
			Password: "s3cret",
		},
	}
}

func TestStages_LinuxMinimalCell(t *testing.T) {
	h := newHarness(t)

	report, err := h.execute(t, linuxCell())
	require.NoError(t, err)
	require.Equal(t, pipeline.StateDone, report.Final)

	// Exactly the four applicable stages executed, in order.
	require.Equal(t, []string{
		StageResolveEnvironment,
		StageInstallDependencies,
		StageInstallAccelerator,
		StagePackageWheel,
	}, report.Executed())
	require.Equal(t, []string{"pip", "accelerator", "wheel"}, *h.calls)
}

func TestStages_ResolveEnvironment(t *testing.T) {
	h := newHarness(t)
	acc := h.deps.Accelerator.(*fakeAccelerator)

	report, err := h.execute(t, linuxCell())
	require.NoError(t, err)
	require.Nil(t, report.Failed())

	// The accelerator install received the catalog's resolved toolkit.
	require.Equal(t, "11.8.0", acc.installed.FullVersion)

	// The compile saw the derived architecture list and computed version.
	require.Equal(t, []string{"5.0+ptx", "6.0", "6.1", "7.0", "7.5", "8.0+ptx", "9.0"}, h.builtOpts.Archs)
	require.Equal(t, "0.0.16.dev512+main.abc1234", h.builtOpts.BuildVersion)
	require.Equal(t, 1, h.builtOpts.MaxJobs)

	// Artifacts land in the cell's deterministic directory.
	require.Equal(t, filepath.Join(h.opts.OutputDir, "linux-py3.10-torch1.13.1-cu118"), h.builtOpts.OutputDir)
}

func TestStages_UnknownToolkitFailsResolve(t *testing.T) {
	h := newHarness(t)
	cell := linuxCell()
	cell.CUDAShort = "999"

	report, err := h.execute(t, cell)
	require.ErrorIs(t, err, toolkit.ErrUnknownToolkit)

	var failure *pipeline.StageFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, StageResolveEnvironment, failure.Stage)
	require.Equal(t, pipeline.FailureConfig, failure.Kind)

	// Nothing ran after the failed resolve.
	require.Empty(t, *h.calls)
	require.Equal(t, pipeline.StateFailed, report.Final)
}

func TestStages_PinsBeforeInstall(t *testing.T) {
	h := newHarness(t)

	_, err := h.execute(t, linuxCell())
	require.NoError(t, err)

	// pip saw the manifest already pinned to the cell's runtime version.
	require.Equal(t, "numpy\npyre-extensions == 0.0.23\ntorch == 1.13.1\n", *h.pippedManifest)
}

func TestStages_WindowsToolchainBeforeDependencies(t *testing.T) {
	h := newHarness(t)
	cell := linuxCell()
	cell.OS = pipeline.OSWindows

	report, err := h.execute(t, cell)
	require.NoError(t, err)

	require.Equal(t, []string{"toolchain", "pip", "wheel"}, *h.calls)
	require.Equal(t, []string{
		StageResolveEnvironment,
		StageInstallToolchain,
		StageInstallDependencies,
		StagePackageWheel,
	}, report.Executed())
}

func TestStages_SourceDistStampsBeforePackaging(t *testing.T) {
	h := newHarness(t)
	cell := linuxCell()
	cell.SourceDist = true

	report, err := h.execute(t, cell)
	require.NoError(t, err)

	require.True(t, *h.stampSeen, "submodule revision must be stamped before sdist packaging")
	require.Len(t, report.Artifacts, 2)

	data, err := os.ReadFile(filepath.Join(h.opts.SourceDir, h.opts.SubmodulePath, submoduleRevisionFile))
	require.NoError(t, err)
	require.Equal(t, "feedface\n", string(data))
}

func TestStages_PublishBothArtifacts(t *testing.T) {
	h := newHarness(t)
	cell := linuxCell()
	cell.Publish = true
	cell.SourceDist = true

	report, err := h.execute(t, cell)
	require.NoError(t, err)
	require.Equal(t, pipeline.StateDone, report.Final)

	require.Len(t, *h.uploads, 2)
	wheelUpload := (*h.uploads)[0]
	require.Equal(t, filepath.Ext(wheelUpload.path), ".whl")
	require.Equal(t, "ci-bot", wheelUpload.username)
	require.Equal(t, "s3cret", wheelUpload.password)
	require.Equal(t, "https://pypi.example.com/legacy/", wheelUpload.registryURL)
}

func TestStages_WheelPublishFailureSkipsSourceDistPublish(t *testing.T) {
	h := newHarness(t)
	h.publishWheelErr = errors.New("403 forbidden")
	cell := linuxCell()
	cell.Publish = true
	cell.SourceDist = true

	report, err := h.execute(t, cell)

	var failure *pipeline.StageFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, StagePublishWheel, failure.Stage)
	require.Equal(t, pipeline.FailurePublish, failure.Kind)

	// Only the wheel upload was attempted.
	require.Len(t, *h.uploads, 1)

	// Locally produced artifacts survive the failed upload.
	require.Len(t, report.Artifacts, 2)
}

func TestStages_PublishWithoutSourceDistSkipsSourceDistUpload(t *testing.T) {
	h := newHarness(t)
	cell := linuxCell()
	cell.Publish = true

	report, err := h.execute(t, cell)
	require.NoError(t, err)

	require.Len(t, *h.uploads, 1)
	for _, res := range report.Results {
		if res.Name == StagePublishSourceDist {
			require.Equal(t, pipeline.StatusSkipped, res.Status)
		}
	}
}

func TestResolve_Standalone(t *testing.T) {
	h := newHarness(t)

	env, err := Resolve(h.deps, h.opts, linuxCell())
	require.NoError(t, err)
	require.Equal(t, "11.8.0", env.Toolkit.FullVersion)
	require.Equal(t, "1.13.1", env.TorchPin)
	require.Contains(t, env.Archs, "9.0")
}

func TestResolve_ExcludedToolkitOmitsHighEnd(t *testing.T) {
	h := newHarness(t)
	cell := linuxCell()
	cell.CUDAShort = "117"

	env, err := Resolve(h.deps, h.opts, cell)
	require.NoError(t, err)
	require.Equal(t, "11.7.1", env.Toolkit.FullVersion)
	require.NotContains(t, env.Archs, "9.0")
}
