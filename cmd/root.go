// Package cmd implements the hdamanager command line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/j0nc0x/hdamanager/internal/config"
	"github.com/j0nc0x/hdamanager/internal/host"
	"github.com/j0nc0x/hdamanager/internal/log"
	"github.com/j0nc0x/hdamanager/internal/manager"
	"github.com/j0nc0x/hdamanager/internal/paths"
	"github.com/j0nc0x/hdamanager/internal/tracing"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "hdamanager",
	Short:   "Manage versioned HDA node type definitions",
	Long: `hdamanager discovers versioned HDA packages on the configured search
path, catalogs their node type definitions, and drives the editable
checkout / validate / publish lifecycle.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/hdamanager/config.yaml)")
	rootCmd.PersistentFlags().StringP("packages-path", "p", "",
		"path-list of package roots (default: $HDAMANAGER_PACKAGES_PATH)")
	rootCmd.PersistentFlags().Int("load-depth", config.DefaultLoadDepth,
		"how many versions of each package to scan, newest first")
	rootCmd.PersistentFlags().Bool("scope-to-major", true,
		"stop the version scan when the major version changes")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Bind flags to viper
	_ = viper.BindPFlag("packages_path", rootCmd.PersistentFlags().Lookup("packages-path"))
	_ = viper.BindPFlag("load_depth", rootCmd.PersistentFlags().Lookup("load-depth"))
	_ = viper.BindPFlag("scope_to_major", rootCmd.PersistentFlags().Lookup("scope-to-major"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("packages_path", defaults.PackagesPath)
	viper.SetDefault("edit_dir", defaults.EditDir)
	viper.SetDefault("load_depth", defaults.LoadDepth)
	viper.SetDefault("scope_to_major", defaults.ScopeToMajor)
	viper.SetDefault("log_file", defaults.LogFile)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .hdamanager/config.yaml (current directory)
		// 2. ~/.config/hdamanager/config.yaml (user config)
		if _, err := os.Stat(".hdamanager/config.yaml"); err == nil {
			viper.SetConfigFile(".hdamanager/config.yaml")
		} else {
			viper.AddConfigPath(paths.UserConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create a default user config.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := filepath.Join(paths.UserConfigDir(), "config.yaml")
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// newManager builds a loaded manager for one command invocation. The
// returned cleanup releases the log, tracer and manager resources.
func newManager(cmd *cobra.Command) (*manager.Manager, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.Debug {
		log.SetMinLevel(log.LevelDebug)
		if closeLog, err := log.Init(cfg.LogFile); err == nil {
			cleanups = append(cleanups, closeLog)
		}
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	cleanups = append(cleanups, func() { _ = provider.Shutdown(cmd.Context()) })

	m, err := manager.New(cfg, host.NullHost{}, manager.WithTracer(provider.Tracer()))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = m.Close() })

	if _, err := m.Load(cmd.Context()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("loading repositories: %w", err)
	}

	return m, cleanup, nil
}

// splitTypeArg parses a namespace::name command argument.
func splitTypeArg(arg string) (namespace, name string, err error) {
	parts := strings.Split(arg, "::")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected namespace::name, got %q", arg)
	}
	return parts[0], parts[1], nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
