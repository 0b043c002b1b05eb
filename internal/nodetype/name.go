// Package nodetype defines node type identity: the namespace::name::version
// compound name, its on-disk filename encoding, and the NodeType /
// NodeTypeVersion records aggregated by the catalog.
package nodetype

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/j0nc0x/hdamanager/internal/version"
)

// Name errors
var (
	ErrInvalidName     = errors.New("invalid node type name format")
	ErrInvalidFilename = errors.New("invalid definition filename")
)

// Name is the compound node type identifier.
// Canonical string form: namespace::name::version,
// e.g. rebellion.pipeline::amazinghda::1.0.0.
type Name struct {
	Namespace string
	Name      string
	Version   version.Version
}

// ParseName parses a full node type name of the form namespace::name::version.
func ParseName(s string) (Name, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	if parts[0] == "" || parts[1] == "" {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, s)
	}

	ver, err := version.Parse(parts[2])
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: %v", ErrInvalidName, s, err)
	}

	return Name{Namespace: parts[0], Name: parts[1], Version: ver}, nil
}

func (n Name) String() string {
	return fmt.Sprintf("%s::%s::%s", n.Namespace, n.Name, n.Version)
}

// Index is the catalog key for the node type this name belongs to,
// ignoring the version component.
func (n Name) Index() string {
	return Index(n.Namespace, n.Name)
}

// WithVersion returns a copy of n carrying the given version.
func (n Name) WithVersion(v version.Version) Name {
	n.Version = v
	return n
}

// Index builds the catalog key for a (namespace, name) pair.
func Index(namespace, name string) string {
	return fmt.Sprintf("%s::%s", namespace, name)
}

// Filename returns the canonical definition filename for this name:
// <Category>_<namespace>_<name>.hda, e.g. Lop_rebellion.pipeline_sgreference.hda.
// The version is carried inside the file's embedded metadata, not the filename.
func (n Name) Filename(category string) string {
	return fmt.Sprintf("%s_%s_%s.hda", category, n.Namespace, n.Name)
}

// EditableFilename returns the filename used for the editable copy of this
// name. A timestamp component keeps successive checkouts distinct.
func (n Name) EditableFilename(category string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%d.hda", category, n.Namespace, n.Name, now.Unix())
}

// ParseFilename extracts the category, namespace and name encoded in a
// definition filename. It accepts both the canonical and the editable
// (timestamped) forms. The version is not recoverable from the filename.
func ParseFilename(filename string) (category, namespace, name string, err error) {
	base := strings.TrimSuffix(filename, ".hda")
	if base == filename {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	// Strip the editable timestamp component if present.
	if i := strings.LastIndex(base, "."); i >= 0 {
		if ts := base[i+1:]; ts != "" && isDigits(ts) {
			base = base[:i]
		}
	}

	first := strings.Index(base, "_")
	last := strings.LastIndex(base, "_")
	if first < 0 || first == last {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	category = base[:first]
	namespace = base[first+1 : last]
	name = base[last+1:]
	if category == "" || namespace == "" || name == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return category, namespace, name, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
