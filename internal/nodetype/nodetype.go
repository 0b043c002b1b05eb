package nodetype

import (
	"errors"
	"sort"

	"github.com/j0nc0x/hdamanager/internal/version"
)

// NodeType errors
var (
	ErrDuplicateVersion = errors.New("version already present for node type")
	ErrEditableExists   = errors.New("node type already has an editable version")
	ErrVersionNotFound  = errors.New("version not found for node type")
)

// NodeTypeVersion is one concrete version of a node type: a definition file
// inside a repository.
type NodeTypeVersion struct {
	Name        Name
	Category    string
	Path        string // absolute path to the definition file
	Repository  string // name of the repository the definition was scanned from
	PackageName string // owning package; empty for the editable workspace
	Writable    bool   // true only when sourced from the editable workspace
	Installed   bool
}

// NodeType groups all discovered versions of one (namespace, name) pair.
// Versions are kept most-recent-first. At most one version may be writable
// (the editable checkout) at a time.
type NodeType struct {
	Namespace string
	Name      string
	Category  string
	versions  []*NodeTypeVersion
}

// NewNodeType creates an empty NodeType record.
func NewNodeType(namespace, name, category string) *NodeType {
	return &NodeType{Namespace: namespace, Name: name, Category: category}
}

// Index returns the catalog key for this node type.
func (nt *NodeType) Index() string {
	return Index(nt.Namespace, nt.Name)
}

// AddVersion inserts a version keeping the most-recent-first ordering.
// Adding a published duplicate of an existing version returns
// ErrDuplicateVersion; adding a second editable version returns
// ErrEditableExists. An editable version may coexist with the published
// version it shadows.
func (nt *NodeType) AddVersion(v *NodeTypeVersion) error {
	for _, existing := range nt.versions {
		if v.Writable && existing.Writable {
			return ErrEditableExists
		}
		if existing.Name.Version == v.Name.Version && existing.Writable == v.Writable {
			return ErrDuplicateVersion
		}
	}

	nt.versions = append(nt.versions, v)
	sort.SliceStable(nt.versions, func(i, j int) bool {
		return nt.versions[j].Name.Version.Less(nt.versions[i].Name.Version)
	})
	return nil
}

// RemoveVersion drops the version record matching the given path.
func (nt *NodeType) RemoveVersion(path string) error {
	for i, v := range nt.versions {
		if v.Path == path {
			nt.versions = append(nt.versions[:i], nt.versions[i+1:]...)
			return nil
		}
	}
	return ErrVersionNotFound
}

// Versions returns all versions, most-recent-first.
func (nt *NodeType) Versions() []*NodeTypeVersion {
	return nt.versions
}

// NumVersions returns the number of versions held.
func (nt *NodeType) NumVersions() int {
	return len(nt.versions)
}

// Latest returns the highest published (non-editable) version, or nil.
func (nt *NodeType) Latest() *NodeTypeVersion {
	for _, v := range nt.versions {
		if !v.Writable {
			return v
		}
	}
	return nil
}

// Editable returns the editable version if one is checked out, or nil.
func (nt *NodeType) Editable() *NodeTypeVersion {
	for _, v := range nt.versions {
		if v.Writable {
			return v
		}
	}
	return nil
}

// MaxVersion returns the highest version identifier across all versions,
// editable included. The second return is false when no versions are held.
func (nt *NodeType) MaxVersion() (version.Version, bool) {
	if len(nt.versions) == 0 {
		return version.Version{}, false
	}
	return nt.versions[0].Name.Version, true
}
