package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wheelsmith/wheelsmith/internal/build"
	"github.com/wheelsmith/wheelsmith/internal/buildtools"
	"github.com/wheelsmith/wheelsmith/internal/config"
	"github.com/wheelsmith/wheelsmith/internal/gitinfo"
	"github.com/wheelsmith/wheelsmith/internal/pipeline"
	"github.com/wheelsmith/wheelsmith/internal/toolkit"
	"github.com/wheelsmith/wheelsmith/internal/tracing"
	"github.com/wheelsmith/wheelsmith/internal/version"
)

var (
	buildOS        string
	buildPython    string
	buildTorch     string
	buildCUDA      string
	buildPublish   bool
	buildSdist     bool
	buildSourceDir string
	buildOutputDir string
	buildMaxJobs   int
	buildChannel   string
	buildRegistry  string
	buildUsername  string
	buildTimeout   time.Duration
	buildDryRun    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the build pipeline for one matrix cell",
	Long: `Run the full stage pipeline for one build-matrix cell.

The cell is identified by four coordinates: the target os, the Python
interpreter version, the runtime (torch) version the wheel links against,
and the CUDA toolkit short version. Stages that do not apply to the cell
are skipped; the first failing stage ends the run and nothing after it
executes, including publishing.

Examples:
  # Build a Linux wheel without publishing
  wheelsmith build --os linux --python 3.10 --torch 1.13.1 --cuda 118

  # Build and publish wheel plus source distribution
  wheelsmith build --os linux --python 3.10 --torch 1.13.1 --cuda 118 \
    --publish --sdist --username __token__

  # Windows build with a one-hour budget
  wheelsmith build --os windows --python 3.9 --torch 1.12.1 --cuda 117 \
    --timeout 1h`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOS, "os", "linux", "target os: linux, windows, or macos")
	buildCmd.Flags().StringVar(&buildPython, "python", "", "interpreter version, e.g. 3.10 (required)")
	buildCmd.Flags().StringVar(&buildTorch, "torch", "", "runtime version to pin against, e.g. 1.13.1 (required)")
	buildCmd.Flags().StringVar(&buildCUDA, "cuda", "", "CUDA toolkit short version, e.g. 118 (required)")
	buildCmd.Flags().BoolVar(&buildPublish, "publish", false, "upload artifacts to the registry")
	buildCmd.Flags().BoolVar(&buildSdist, "sdist", false, "also package a source distribution")
	buildCmd.Flags().StringVar(&buildSourceDir, "source-dir", "", "override the configured source directory")
	buildCmd.Flags().StringVar(&buildOutputDir, "output-dir", "", "override the configured output directory")
	buildCmd.Flags().IntVar(&buildMaxJobs, "max-jobs", 0, "override the configured compile job cap")
	buildCmd.Flags().StringVar(&buildChannel, "channel", "", "version channel label (default: current git ref)")
	buildCmd.Flags().StringVar(&buildRegistry, "registry-url", "", "override the configured registry URL")
	buildCmd.Flags().StringVar(&buildUsername, "username", "", "override the configured registry username")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 0, "abort the run after this duration (0 = no limit)")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "resolve the environment and print the plan without building")

	_ = buildCmd.MarkFlagRequired("python")
	_ = buildCmd.MarkFlagRequired("torch")
	_ = buildCmd.MarkFlagRequired("cuda")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildDryRun {
		return runResolve(cmd, args)
	}

	cell, err := cellFromFlags()
	if err != nil {
		return err
	}

	deps, opts, err := assemble(cfg)
	if err != nil {
		return err
	}

	tracingCfg := cfg.Tracing
	if tracingCfg.Enabled && tracingCfg.Exporter == "file" && tracingCfg.FilePath == "" {
		tracingCfg.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tracingCfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	ctx := cmd.Context()
	if buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, buildTimeout)
		defer cancel()
	}

	executor := pipeline.NewExecutor(build.Stages(deps, opts), pipeline.WithTracer(provider.Tracer()))
	report, runErr := executor.Execute(ctx, cell)
	printReport(cmd, report)
	return runErr
}

// cellFromFlags builds the matrix cell from the build command's flags,
// with registry credentials taken from config unless overridden.
func cellFromFlags() (pipeline.MatrixCell, error) {
	os, err := pipeline.ParseOS(buildOS)
	if err != nil {
		return pipeline.MatrixCell{}, err
	}

	username := cfg.Registry.Username
	if buildUsername != "" {
		username = buildUsername
	}

	cell := pipeline.MatrixCell{
		OS:         os,
		Python:     buildPython,
		Torch:      buildTorch,
		CUDAShort:  buildCUDA,
		Publish:    buildPublish,
		SourceDist: buildSdist,
		Credentials: pipeline.Credentials{
			Username: username,
			Password: cfg.Registry.Password(),
		},
	}

	if cell.Publish && cell.Credentials.Username == "" {
		return pipeline.MatrixCell{}, fmt.Errorf("publishing requires a registry username (--username or registry.username)")
	}
	return cell, nil
}

// assemble wires the real collaborators from configuration and flag
// overrides. Shared by the build and resolve commands.
func assemble(cfg config.Config) (build.Deps, build.Options, error) {
	if err := cfg.Validate(); err != nil {
		return build.Deps{}, build.Options{}, fmt.Errorf("invalid configuration: %w", err)
	}

	sourceDir := cfg.SourceDir
	if buildSourceDir != "" {
		sourceDir = buildSourceDir
	}
	outputDir := cfg.OutputDir
	if buildOutputDir != "" {
		outputDir = buildOutputDir
	}
	maxJobs := cfg.MaxJobs
	if buildMaxJobs > 0 {
		maxJobs = buildMaxJobs
	}
	registryURL := cfg.Registry.URL
	if buildRegistry != "" {
		registryURL = buildRegistry
	}

	catalog := toolkit.Builtin()
	if cfg.CatalogFile != "" {
		entries, err := toolkit.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return build.Deps{}, build.Options{}, fmt.Errorf("loading catalog file: %w", err)
		}
		catalog.Extend(entries)
	}

	policy := toolkit.DefaultArchPolicy()
	if len(cfg.Archs.Base) > 0 {
		policy.Base = cfg.Archs.Base
	}
	if len(cfg.Archs.Exclude) > 0 {
		policy.Exclude = cfg.Archs.Exclude
	}
	if cfg.Archs.HighEnd != "" {
		policy.HighEnd = cfg.Archs.HighEnd
	}

	git := gitinfo.NewRealExecutor(sourceDir)

	channel := buildChannel
	if channel == "" {
		if ref, err := git.CurrentRef(); err == nil {
			channel = ref
		} else {
			channel = "local"
		}
	}

	deps := build.Deps{
		Catalog:     catalog,
		ArchPolicy:  policy,
		Version:     version.NewComputer(git, sourceDir),
		Git:         git,
		Pip:         buildtools.NewRealPip(cfg.Python),
		Toolchain:   buildtools.NewRealToolchain(nil),
		Accelerator: buildtools.NewRealAccelerator(outputDir),
		Builder:     buildtools.NewRealBuilder(cfg.Python),
		Publisher:   buildtools.NewRealTwine(cfg.Python),
	}
	opts := build.Options{
		SourceDir:     sourceDir,
		OutputDir:     outputDir,
		Requirements:  cfg.Requirements,
		SubmodulePath: cfg.SubmodulePath,
		Channel:       channel,
		MaxJobs:       maxJobs,
		RegistryURL:   registryURL,
	}
	return deps, opts, nil
}

func printReport(cmd *cobra.Command, report pipeline.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s  cell %s\n", report.RunID, report.Cell.Label())
	for _, res := range report.Results {
		switch res.Status {
		case pipeline.StatusSkipped:
			fmt.Fprintf(out, "  skip %s\n", res.Name)
		case pipeline.StatusFailed:
			fmt.Fprintf(out, "  FAIL %s (%s): %v\n", res.Name, res.Duration.Round(time.Millisecond), res.Err)
		default:
			fmt.Fprintf(out, "  ok   %s (%s)\n", res.Name, res.Duration.Round(time.Millisecond))
		}
	}
	for _, artifact := range report.Artifacts {
		fmt.Fprintf(out, "  %s: %s\n", artifact.Kind, artifact.Path)
	}
	fmt.Fprintf(out, "final state: %s\n", report.Final)
}
