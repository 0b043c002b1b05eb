// Package definition reads and writes node type definition files (.hda).
//
// A definition file carries its metadata embedded in the file body as a YAML
// document. The filename encodes category, namespace and name
// (Lop_rebellion.pipeline_sgreference.hda); the version lives only in the
// embedded metadata, which is authoritative. A disagreement between filename
// and metadata is a parse warning, not an error.
package definition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/j0nc0x/hdamanager/internal/nodetype"
)

// ErrParse indicates a file that could not be parsed as a definition.
var ErrParse = errors.New("definition parse error")

// Definition is the embedded metadata of a .hda file.
type Definition struct {
	// TypeName is the full node type name, namespace::name::version.
	TypeName    string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description,omitempty"`
	Icon        string `yaml:"icon,omitempty"`
	// Payload is the opaque node implementation. The manager copies it
	// verbatim and never interprets it.
	Payload string `yaml:"payload,omitempty"`
}

// File is a parsed definition file.
type File struct {
	Path       string
	Definition Definition
	Name       nodetype.Name
	Warnings   []string
}

// Read parses the definition file at path.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: paths come from repository scans
	if err != nil {
		return nil, fmt.Errorf("reading definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	name, err := nodetype.ParseName(def.TypeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if def.Category == "" {
		return nil, fmt.Errorf("%w: %s: missing category", ErrParse, path)
	}

	f := &File{Path: path, Definition: def, Name: name}
	f.checkFilename()
	return f, nil
}

// checkFilename compares the filename encoding against the embedded
// metadata. The metadata wins; mismatches are recorded as warnings.
func (f *File) checkFilename() {
	category, namespace, name, err := nodetype.ParseFilename(filepath.Base(f.Path))
	if err != nil {
		f.Warnings = append(f.Warnings, fmt.Sprintf("filename not canonical: %v", err))
		return
	}
	if category != f.Definition.Category || namespace != f.Name.Namespace || name != f.Name.Name {
		f.Warnings = append(f.Warnings, fmt.Sprintf(
			"filename %s disagrees with embedded name %s (%s); using embedded metadata",
			filepath.Base(f.Path), f.Name, f.Definition.Category))
	}
}

// Write marshals def to path. The write goes through a temp file and rename
// so a definition file is never observable half-written.
func Write(path string, def Definition) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding definition: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".hda-*")
	if err != nil {
		return fmt.Errorf("writing definition: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing definition: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing definition: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing definition: %w", err)
	}
	return nil
}
