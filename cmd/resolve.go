package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wheelsmith/wheelsmith/internal/build"
	"github.com/wheelsmith/wheelsmith/internal/pipeline"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a cell's environment without building",
	Long: `Resolve the build environment for one matrix cell and print it.

Performs the same resolution the build pipeline starts with: toolkit
lookup, architecture list derivation, and version computation. Nothing
is installed or compiled. Also prints which stages would run for the
cell and which would be skipped.

Examples:
  wheelsmith resolve --os linux --python 3.10 --torch 1.13.1 --cuda 118
  wheelsmith resolve --os windows --python 3.9 --torch 1.12.1 --cuda 117 --sdist`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&buildOS, "os", "linux", "target os: linux, windows, or macos")
	resolveCmd.Flags().StringVar(&buildPython, "python", "", "interpreter version, e.g. 3.10 (required)")
	resolveCmd.Flags().StringVar(&buildTorch, "torch", "", "runtime version to pin against, e.g. 1.13.1 (required)")
	resolveCmd.Flags().StringVar(&buildCUDA, "cuda", "", "CUDA toolkit short version, e.g. 118 (required)")
	resolveCmd.Flags().BoolVar(&buildPublish, "publish", false, "plan as a publishing cell")
	resolveCmd.Flags().BoolVar(&buildSdist, "sdist", false, "plan with a source distribution")
	resolveCmd.Flags().StringVar(&buildSourceDir, "source-dir", "", "override the configured source directory")
	resolveCmd.Flags().StringVar(&buildChannel, "channel", "", "version channel label (default: current git ref)")

	_ = resolveCmd.MarkFlagRequired("python")
	_ = resolveCmd.MarkFlagRequired("torch")
	_ = resolveCmd.MarkFlagRequired("cuda")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	os, err := pipeline.ParseOS(buildOS)
	if err != nil {
		return err
	}
	cell := pipeline.MatrixCell{
		OS:         os,
		Python:     buildPython,
		Torch:      buildTorch,
		CUDAShort:  buildCUDA,
		Publish:    buildPublish,
		SourceDist: buildSdist,
	}

	deps, opts, err := assemble(cfg)
	if err != nil {
		return err
	}

	env, err := build.Resolve(deps, opts, cell)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cell:          %s\n", cell.Label())
	fmt.Fprintf(out, "toolkit:       %s (%s)\n", env.Toolkit.FullVersion, env.Toolkit.ShortVersion)
	fmt.Fprintf(out, "installer:     %s\n", env.Toolkit.InstallerURL)
	fmt.Fprintf(out, "architectures: %s\n", strings.Join(env.Archs, " "))
	fmt.Fprintf(out, "build version: %s\n", env.BuildVersion)
	fmt.Fprintf(out, "runtime pin:   torch == %s\n", env.TorchPin)

	fmt.Fprintln(out, "stages:")
	for _, stage := range build.Stages(deps, opts) {
		marker := "run "
		if !stage.Applicable(cell) {
			marker = "skip"
		}
		fmt.Fprintf(out, "  %s %s\n", marker, stage.Name)
	}
	return nil
}
