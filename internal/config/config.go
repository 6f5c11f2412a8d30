// Package config provides configuration types and defaults for wheelsmith.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wheelsmith/wheelsmith/internal/log"
	"github.com/wheelsmith/wheelsmith/internal/tracing"
)

// Config holds all configuration options for wheelsmith.
type Config struct {
	// SourceDir is the root of the package source tree being built.
	// Default: current directory.
	SourceDir string `mapstructure:"source_dir"`

	// OutputDir receives built artifacts, one subdirectory per matrix cell.
	OutputDir string `mapstructure:"output_dir"`

	// Requirements is the dependency manifest, relative to source_dir
	// unless absolute.
	Requirements string `mapstructure:"requirements"`

	// SubmodulePath is the vendored attention-kernel checkout whose
	// revision is stamped into source distributions. Relative to
	// source_dir. Empty disables stamping.
	SubmodulePath string `mapstructure:"submodule_path"`

	// Python is the interpreter used for dependency installs, packaging,
	// and uploads.
	Python string `mapstructure:"python"`

	// MaxJobs caps parallel compile jobs. Kernel compilation is memory
	// bound, so the default stays at 1.
	MaxJobs int `mapstructure:"max_jobs"`

	// CatalogFile optionally extends the built-in toolkit catalog.
	CatalogFile string `mapstructure:"catalog_file"`

	Archs    ArchsConfig    `mapstructure:"archs"`
	Registry RegistryConfig `mapstructure:"registry"`
	Tracing  tracing.Config `mapstructure:"tracing"`
}

// ArchsConfig overrides the GPU architecture list policy.
// Empty fields keep the built-in policy.
type ArchsConfig struct {
	// Base is the architecture list every toolkit receives.
	Base []string `mapstructure:"base"`

	// Exclude lists toolkit short versions that do not get the
	// high-end architecture appended.
	Exclude []string `mapstructure:"exclude"`

	// HighEnd is the architecture appended for non-excluded toolkits.
	HighEnd string `mapstructure:"high_end"`
}

// RegistryConfig holds package registry upload settings.
type RegistryConfig struct {
	// URL is the upload endpoint. Empty uses the uploader's default
	// registry.
	URL string `mapstructure:"url"`

	// Username authenticates the upload.
	Username string `mapstructure:"username"`

	// PasswordEnv names the environment variable holding the registry
	// password. The password itself never lives in the config file.
	// Default: WHEELSMITH_REGISTRY_PASSWORD
	PasswordEnv string `mapstructure:"password_env"`
}

// Password reads the registry password from the configured environment
// variable.
func (r RegistryConfig) Password() string {
	return os.Getenv(r.PasswordEnv)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		SourceDir:     ".",
		OutputDir:     "dist",
		Requirements:  "requirements.txt",
		SubmodulePath: "",
		Python:        "python",
		MaxJobs:       1,
		Registry: RegistryConfig{
			PasswordEnv: "WHEELSMITH_REGISTRY_PASSWORD",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate checks the configuration for errors. Empty values that have
// defaults are valid.
func (c Config) Validate() error {
	if c.MaxJobs < 0 {
		return fmt.Errorf("max_jobs must be non-negative, got %d", c.MaxJobs)
	}
	if err := ValidateArchs(c.Archs); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateArchs checks the architecture policy overrides for errors.
func ValidateArchs(archs ArchsConfig) error {
	for i, arch := range archs.Base {
		if arch == "" {
			return fmt.Errorf("archs.base[%d] must not be empty", i)
		}
	}
	for i, short := range archs.Exclude {
		if short == "" {
			return fmt.Errorf("archs.exclude[%d] must not be empty", i)
		}
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	if tc.Enabled {
		if tc.Exporter == "file" && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == "otlp" && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/wheelsmith/traces/traces.jsonl or empty string if
// home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wheelsmith", "traces", "traces.jsonl")
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Wheelsmith Configuration

# Root of the package source tree being built (default: current directory)
source_dir: .

# Directory receiving built artifacts, one subdirectory per matrix cell
output_dir: dist

# Dependency manifest, relative to source_dir unless absolute
requirements: requirements.txt

# Vendored attention-kernel checkout stamped into source distributions
# Relative to source_dir; omit to disable stamping
# submodule_path: third_party/flash-attention

# Interpreter used for installs, packaging, and uploads
python: python

# Parallel compile jobs. Kernel compilation is memory bound; raise this
# only on large-memory builders.
max_jobs: 1

# Extend the built-in CUDA toolkit catalog with additional entries
# catalog_file: toolkits.yaml
#
# Catalog file format:
#   toolkits:
#     - short_version: "121"
#       full_version: "12.1.0"
#       installer_url: "https://developer.download.nvidia.com/..."

# GPU architecture list policy. Omit to keep the built-in policy.
# archs:
#   base: ["5.0+ptx", "6.0", "6.1", "7.0", "7.5", "8.0+ptx"]
#   exclude: ["116", "117"]   # toolkits too old for the high-end arch
#   high_end: "9.0"

# Package registry upload settings
registry:
  # url: https://upload.pypi.org/legacy/   # empty uses the uploader default
  # username: __token__
  password_env: WHEELSMITH_REGISTRY_PASSWORD

# Build telemetry configuration
# Emits one span per pipeline stage
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/wheelsmith/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
