package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wheelsmith/wheelsmith/internal/config"
	"github.com/wheelsmith/wheelsmith/internal/log"
)

var (
	appVersion = "dev"
	cfgFile  string
	debugLog string
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:     "wheelsmith",
	Short:   "Release build orchestrator for GPU-accelerated Python wheels",
	Long: `Wheelsmith turns one build-matrix cell (os, interpreter version, runtime
version, CUDA toolkit) into a resolved build environment and an ordered
stage pipeline that compiles, packages, and optionally publishes wheels.`,
	Version: appVersion,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .wheelsmith/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&debugLog, "debug-log", "",
		"write debug logs to this file")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("source_dir", defaults.SourceDir)
	viper.SetDefault("output_dir", defaults.OutputDir)
	viper.SetDefault("requirements", defaults.Requirements)
	viper.SetDefault("python", defaults.Python)
	viper.SetDefault("max_jobs", defaults.MaxJobs)
	viper.SetDefault("registry.password_env", defaults.Registry.PasswordEnv)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .wheelsmith/config.yaml (current directory)
		// 2. ~/.config/wheelsmith/config.yaml (user config)
		if _, err := os.Stat(".wheelsmith/config.yaml"); err == nil {
			viper.SetConfigFile(".wheelsmith/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "wheelsmith"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .wheelsmith/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".wheelsmith/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)

	logPath := debugLog
	if logPath == "" {
		logPath = os.Getenv("WHEELSMITH_DEBUG")
	}
	if logPath != "" {
		if cleanup, err := log.Init(logPath); err == nil {
			cobra.OnFinalize(cleanup)
		}
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}
