// Package build assembles the wheelsmith pipeline: it binds the catalog,
// the architecture policy, the version computer, and the external build
// tools into the ordered stage sequence the executor runs.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wheelsmith/wheelsmith/internal/buildtools"
	"github.com/wheelsmith/wheelsmith/internal/gitinfo"
	"github.com/wheelsmith/wheelsmith/internal/log"
	"github.com/wheelsmith/wheelsmith/internal/pin"
	"github.com/wheelsmith/wheelsmith/internal/pipeline"
	"github.com/wheelsmith/wheelsmith/internal/toolkit"
	"github.com/wheelsmith/wheelsmith/internal/version"
)

// Stage names, in execution order.
const (
	StageResolveEnvironment  = "resolve-environment"
	StageInstallToolchain    = "install-toolchain"
	StageInstallDependencies = "install-dependencies"
	StageInstallAccelerator  = "install-accelerator"
	StagePackageSourceDist   = "package-sdist"
	StagePackageWheel        = "package-wheel"
	StagePublishWheel        = "publish-wheel"
	StagePublishSourceDist   = "publish-sdist"
)

// submoduleRevisionFile records the vendored submodule's revision inside
// the source tree before sdist packaging.
const submoduleRevisionFile = ".build-revision"

// Deps are the resolved collaborators the stages delegate to.
type Deps struct {
	Catalog     *toolkit.Catalog
	ArchPolicy  toolkit.ArchPolicy
	Version     *version.Computer
	Git         gitinfo.Executor
	Pip         buildtools.Pip
	Toolchain   buildtools.Toolchain
	Accelerator buildtools.Accelerator
	Builder     buildtools.WheelBuilder
	Publisher   buildtools.Publisher
}

// Options are the per-invocation settings shared by every stage.
type Options struct {
	SourceDir     string
	OutputDir     string
	Requirements  string // dependency manifest, relative paths resolved against SourceDir
	SubmodulePath string // vendored flash-attention checkout, relative to SourceDir
	Channel       string // version channel discriminator, usually the ref name
	MaxJobs       int
	RegistryURL   string // empty means the publisher's default registry
}

// RequirementsPath returns the manifest location on disk.
func (o Options) RequirementsPath() string {
	if filepath.IsAbs(o.Requirements) {
		return o.Requirements
	}
	return filepath.Join(o.SourceDir, o.Requirements)
}

// Resolve derives the full environment for a cell: toolkit, architecture
// list, build version, and the runtime pin. Shared by the resolve stage
// and the resolve CLI command.
func Resolve(deps Deps, opts Options, cell pipeline.MatrixCell) (pipeline.ResolvedEnv, error) {
	tk, err := deps.Catalog.Resolve(cell.CUDAShort)
	if err != nil {
		return pipeline.ResolvedEnv{}, err
	}

	buildVersion, err := deps.Version.Compute(opts.Channel)
	if err != nil {
		return pipeline.ResolvedEnv{}, err
	}

	return pipeline.ResolvedEnv{
		Toolkit:      tk,
		Archs:        deps.ArchPolicy.Derive(cell.CUDAShort),
		BuildVersion: buildVersion,
		TorchPin:     cell.Torch,
	}, nil
}

// Stages declares the pipeline in execution order. Predicates encode the
// applicability rules: toolchain setup is windows-only and precedes the
// dependency install; the accelerator install is linux-only, after the
// dependency install and before packaging; publishing is flag-gated and
// ordered wheel first.
func Stages(deps Deps, opts Options) []pipeline.Stage {
	return []pipeline.Stage{
		{
			Name: StageResolveEnvironment,
			Kind: pipeline.FailureConfig,
			Next: pipeline.StateEnvironmentResolved,
			Run: func(ctx context.Context, run *pipeline.Run) error {
				env, err := Resolve(deps, opts, run.Cell)
				if err != nil {
					return err
				}
				return run.SetEnv(env)
			},
		},
		{
			Name: StageInstallToolchain,
			Kind: pipeline.FailureToolchain,
			Next: pipeline.StateToolchainReady,
			When: pipeline.OnOS(pipeline.OSWindows),
			Run: func(ctx context.Context, run *pipeline.Run) error {
				return deps.Toolchain.Setup(ctx)
			},
		},
		{
			Name: StageInstallDependencies,
			Kind: pipeline.FailureToolchain,
			Next: pipeline.StateDependenciesInstalled,
			Run: func(ctx context.Context, run *pipeline.Run) error {
				// Pin before installing; pinning afterwards leaves a stale
				// runtime already resolved into the environment.
				manifest := opts.RequirementsPath()
				if err := pin.PinFile(manifest, "torch", run.Env().TorchPin); err != nil {
					return err
				}
				return deps.Pip.InstallRequirements(ctx, manifest)
			},
		},
		{
			Name: StageInstallAccelerator,
			Kind: pipeline.FailureToolchain,
			Next: pipeline.StateAcceleratorInstalled,
			When: pipeline.OnOS(pipeline.OSLinux),
			Run: func(ctx context.Context, run *pipeline.Run) error {
				return deps.Accelerator.Install(ctx, run.Env().Toolkit)
			},
		},
		{
			Name: StagePackageSourceDist,
			Kind: pipeline.FailureBuild,
			Next: pipeline.StateSourceDistPackaged,
			When: pipeline.WhenSourceDist,
			Run: func(ctx context.Context, run *pipeline.Run) error {
				// Stamp the vendored submodule's revision before packaging
				// so the sdist records exactly what it vendors.
				if err := stampSubmoduleRevision(deps.Git, opts); err != nil {
					return err
				}
				path, err := deps.Builder.BuildSourceDist(ctx, buildOpts(opts, run))
				if err != nil {
					return err
				}
				run.AddArtifact(pipeline.Artifact{Kind: pipeline.ArtifactSourceDist, Path: path})
				return nil
			},
		},
		{
			Name: StagePackageWheel,
			Kind: pipeline.FailureBuild,
			Next: pipeline.StateWheelPackaged,
			Run: func(ctx context.Context, run *pipeline.Run) error {
				path, err := deps.Builder.BuildWheel(ctx, buildOpts(opts, run))
				if err != nil {
					return err
				}
				run.AddArtifact(pipeline.Artifact{Kind: pipeline.ArtifactWheel, Path: path})
				return nil
			},
		},
		{
			Name: StagePublishWheel,
			Kind: pipeline.FailurePublish,
			Next: pipeline.StatePublished,
			When: pipeline.WhenPublish,
			Run:  publishAction(deps, opts, pipeline.ArtifactWheel),
		},
		{
			Name: StagePublishSourceDist,
			Kind: pipeline.FailurePublish,
			Next: pipeline.StatePublished,
			When: pipeline.WhenPublishSourceDist,
			Run:  publishAction(deps, opts, pipeline.ArtifactSourceDist),
		},
	}
}

// buildOpts maps the resolved environment onto the builder's inputs.
// Artifacts land in a per-cell directory named deterministically from the
// matrix coordinates.
func buildOpts(opts Options, run *pipeline.Run) buildtools.BuildOpts {
	env := run.Env()
	return buildtools.BuildOpts{
		SourceDir:    opts.SourceDir,
		OutputDir:    filepath.Join(opts.OutputDir, run.Cell.Label()),
		BuildVersion: env.BuildVersion,
		Archs:        env.Archs,
		MaxJobs:      opts.MaxJobs,
	}
}

func stampSubmoduleRevision(git gitinfo.Executor, opts Options) error {
	if opts.SubmodulePath == "" {
		return nil
	}
	hash, err := git.SubmoduleHash(opts.SubmodulePath)
	if err != nil {
		return fmt.Errorf("stamping submodule revision: %w", err)
	}
	path := filepath.Join(opts.SourceDir, opts.SubmodulePath, submoduleRevisionFile)
	if err := os.WriteFile(path, []byte(hash+"\n"), 0644); err != nil { //nolint:gosec // G306: revision stamp ships inside the sdist
		return fmt.Errorf("stamping submodule revision: %w", err)
	}
	log.Debug(log.CatGit, "Stamped submodule revision", "path", path, "hash", hash)
	return nil
}

func publishAction(deps Deps, opts Options, kind pipeline.ArtifactKind) pipeline.Action {
	return func(ctx context.Context, run *pipeline.Run) error {
		artifact, ok := run.ArtifactByKind(kind)
		if !ok {
			return fmt.Errorf("no %s artifact to publish", kind)
		}
		creds := run.Cell.Credentials
		return deps.Publisher.Upload(ctx, artifact.Path, creds.Username, creds.Password, opts.RegistryURL)
	}
}
