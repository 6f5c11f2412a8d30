package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wheelsmith/wheelsmith/internal/toolkit"
)

var catalogListCmd = &cobra.Command{
	Use:   "catalog:list",
	Short: "List known CUDA toolkits",
	Long: `List every CUDA toolkit the catalog can resolve.

Shows the built-in entries plus any loaded from the configured catalog
file. The short version is the key used with 'build --cuda'.

Examples:
  wheelsmith catalog:list
  wheelsmith catalog:list --config ci/wheelsmith.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := toolkit.Builtin()
		if cfg.CatalogFile != "" {
			entries, err := toolkit.LoadCatalogFile(cfg.CatalogFile)
			if err != nil {
				return fmt.Errorf("loading catalog file: %w", err)
			}
			catalog.Extend(entries)
		}

		out := cmd.OutOrStdout()
		for _, tk := range catalog.All() {
			fmt.Fprintf(out, "%-6s %-10s %s\n", tk.ShortVersion, tk.FullVersion, tk.InstallerURL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogListCmd)
}
