package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigTemplate is written when no config file exists, so users have
// a commented starting point to edit.
const defaultConfigTemplate = `# hdamanager configuration

# Path-list of directories to search for HDA packages, highest precedence
# first. Usually supplied via the HDAMANAGER_PACKAGES_PATH environment
# variable instead.
# packages_path: /rez/packages:/shows/current/packages

# Editable workspace root. Defaults to ~/.hdamanager/edit.
# edit_dir: ~/.hdamanager/edit

# How many historical versions of each package are scanned.
load_depth: 3

# Stop scanning older package versions once the major version changes.
scope_to_major: true

# tracing:
#   enabled: true
#   exporter: file        # stdout, file or otlp
#   file_path: ~/.hdamanager/traces.jsonl
#   otlp_endpoint: localhost:4317
`

// WriteDefaultConfig writes the commented default config to path,
// creating parent directories as needed. Existing files are left alone.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
