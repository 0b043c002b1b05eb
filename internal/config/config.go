// Package config provides configuration types and defaults for hdamanager.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/j0nc0x/hdamanager/internal/paths"
	"github.com/j0nc0x/hdamanager/internal/tracing"
)

// Configuration errors, surfaced before any scan runs.
var (
	ErrInvalidLoadDepth = errors.New("load_depth must be a positive integer")
	ErrNoEditDir        = errors.New("edit_dir must be set")
)

// DefaultLoadDepth is the number of historical package versions scanned per
// package when no explicit depth is configured.
const DefaultLoadDepth = 3

// Config holds all configuration options for hdamanager.
type Config struct {
	// PackagesPath is a path-list of directories to search for HDA
	// packages, in precedence order. Conventionally supplied via the
	// HDAMANAGER_PACKAGES_PATH environment variable.
	PackagesPath string `mapstructure:"packages_path"`

	// EditDir is the editable workspace root. Created if absent.
	EditDir string `mapstructure:"edit_dir"`

	// LoadDepth caps how many versions of each package are scanned,
	// counting backward from the highest.
	LoadDepth int `mapstructure:"load_depth"`

	// ScopeToMajor additionally stops the backward scan when the major
	// version changes from the highest version's major.
	ScopeToMajor bool `mapstructure:"scope_to_major"`

	// HistoryDB overrides the publish history database location.
	// Default: <edit_dir>/.history/history.db
	HistoryDB string `mapstructure:"history_db"`

	// LogFile overrides the debug log location.
	LogFile string `mapstructure:"log_file"`

	Debug bool `mapstructure:"debug"`

	Tracing tracing.Config `mapstructure:"tracing"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		PackagesPath: os.Getenv("HDAMANAGER_PACKAGES_PATH"),
		EditDir:      paths.DefaultEditDir(),
		LoadDepth:    DefaultLoadDepth,
		ScopeToMajor: true,
		LogFile:      paths.DefaultLogFile(),
		Tracing:      tracing.DefaultConfig(),
	}
}

// Validate checks the configuration, returning the first problem found.
func (c Config) Validate() error {
	if c.LoadDepth <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLoadDepth, c.LoadDepth)
	}
	if c.EditDir == "" {
		return ErrNoEditDir
	}
	return nil
}

// SearchRoots splits PackagesPath into its ordered directory entries.
// Empty entries are dropped; order is preserved.
func (c Config) SearchRoots() []string {
	var roots []string
	for _, entry := range strings.Split(c.PackagesPath, string(os.PathListSeparator)) {
		if entry = strings.TrimSpace(entry); entry != "" {
			roots = append(roots, entry)
		}
	}
	return roots
}

// HistoryDBPath resolves the history database path, applying the default
// when no override is configured.
func (c Config) HistoryDBPath() string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	return paths.HistoryDBPath(c.EditDir)
}
