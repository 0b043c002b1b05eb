// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
)

// DefaultEditDir returns the per-user editable workspace root,
// ~/.hdamanager/edit. Falls back to a relative path when the home
// directory cannot be resolved.
func DefaultEditDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".hdamanager", "edit")
	}
	return filepath.Join(home, ".hdamanager", "edit")
}

// BackupDir returns the backup directory for uninstalled editable copies,
// kept inside the edit dir so it travels with the workspace.
func BackupDir(editDir string) string {
	return filepath.Join(editDir, ".backup")
}

// HistoryDBPath returns the publish history database location for the
// given edit dir.
func HistoryDBPath(editDir string) string {
	return filepath.Join(editDir, ".history", "history.db")
}

// DefaultLogFile returns the debug log location.
func DefaultLogFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".hdamanager", "debug.log")
	}
	return filepath.Join(home, ".hdamanager", "debug.log")
}

// UserConfigDir returns the user config directory, ~/.config/hdamanager.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hdamanager"
	}
	return filepath.Join(home, ".config", "hdamanager")
}
