// Package repo represents one scannable HDA repository: a single
// version-directory of a package, or the per-user editable workspace.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/j0nc0x/hdamanager/internal/cachemanager"
	"github.com/j0nc0x/hdamanager/internal/definition"
	"github.com/j0nc0x/hdamanager/internal/log"
	"github.com/j0nc0x/hdamanager/internal/version"
)

// Repository errors
var (
	ErrUnreadableRoot = errors.New("repository root unreadable")
)

// EditableName is the display name of the editable workspace repository.
const EditableName = "editable"

// AssetSubdirectory is where a package version keeps its definition files.
const AssetSubdirectory = "hda"

// definitionExt is the recognized definition file extension.
const definitionExt = ".hda"

// packageManifest is the per-version package metadata file.
const packageManifest = "package.yaml"

// Manifest is the package metadata carried in each version directory.
// Namespaces lists the namespaces the package owns; when absent the
// namespace is derived from the package name.
type Manifest struct {
	Name       string   `yaml:"name"`
	Version    string   `yaml:"version,omitempty"`
	Namespaces []string `yaml:"namespaces,omitempty"`
}

// Repository is bound to exactly one version directory of a package, or to
// the editable workspace. Construction is cheap; Scan does the I/O and is
// idempotent.
type Repository struct {
	root           string
	editable       bool
	packageName    string
	packageVersion version.Version
	namespaces     []string
	cache          cachemanager.CacheManager[string, *definition.File]
}

// New creates a repository bound to the package version directory at root.
// The directory name is the authoritative package version; package name and
// owned namespaces come from package.yaml, with fallbacks derived from the
// directory layout.
func New(root string, cache cachemanager.CacheManager[string, *definition.File]) (*Repository, error) {
	ver, err := version.Parse(filepath.Base(root))
	if err != nil {
		return nil, fmt.Errorf("version directory %s: %w", root, err)
	}

	r := &Repository{
		root:           root,
		packageVersion: ver,
		cache:          cache,
	}
	r.loadManifest()

	log.Info(log.CatRepo, "initialised repository", "package", r.packageName, "version", r.packageVersion, "path", root)
	return r, nil
}

// NewEditable creates the repository for the editable workspace.
// It owns no package version and claims no namespaces.
func NewEditable(root string, cache cachemanager.CacheManager[string, *definition.File]) *Repository {
	log.Info(log.CatRepo, "initialised editable repository", "path", root)
	return &Repository{root: root, editable: true, cache: cache}
}

func (r *Repository) loadManifest() {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(r.root, packageManifest)) //nolint:gosec // G304: repository roots come from the search path
	if err == nil {
		if err := yaml.Unmarshal(data, &m); err != nil {
			log.Warn(log.CatRepo, "malformed package manifest", "path", r.root, "error", err)
		}
	}

	r.packageName = m.Name
	if r.packageName == "" {
		// Version dirs live directly under the package root.
		r.packageName = filepath.Base(filepath.Dir(r.root))
	}

	r.namespaces = m.Namespaces
	if len(r.namespaces) == 0 {
		if ns := NamespaceFromPackage(r.packageName); ns != "" {
			r.namespaces = []string{ns}
		}
	}

	if m.Version != "" {
		if v, err := version.Parse(m.Version); err == nil && v != r.packageVersion {
			log.Warn(log.CatRepo, "manifest version disagrees with directory",
				"package", r.packageName, "manifest", v, "directory", r.packageVersion)
		}
	}
}

// NamespaceFromPackage derives the default owned namespace from a package
// name, ie. houdini_hdas_pipeline -> rebellion.pipeline.
func NamespaceFromPackage(name string) string {
	const prefix = "houdini_hdas_"
	if strings.HasPrefix(name, prefix) {
		return "rebellion." + name[len(prefix):]
	}
	return ""
}

// Name returns the repository display name.
func (r *Repository) Name() string {
	if r.editable {
		return EditableName
	}
	return fmt.Sprintf("%s-%s", r.packageName, r.packageVersion)
}

// Editable reports whether this is the editable workspace repository.
func (r *Repository) Editable() bool {
	return r.editable
}

// Root returns the repository root directory.
func (r *Repository) Root() string {
	return r.root
}

// PackageName returns the owning package name, empty for editable.
func (r *Repository) PackageName() string {
	return r.packageName
}

// PackageVersion returns the bound package version. Only meaningful for
// non-editable repositories.
func (r *Repository) PackageVersion() version.Version {
	return r.packageVersion
}

// Namespaces returns the namespaces this repository's package claims.
// The editable workspace claims none.
func (r *Repository) Namespaces() []string {
	if r.editable {
		return nil
	}
	return r.namespaces
}

// AssetDir returns the directory holding definition files: the hda/
// subdirectory for package repositories, the root itself for editable.
func (r *Repository) AssetDir() string {
	if r.editable {
		return r.root
	}
	return filepath.Join(r.root, AssetSubdirectory)
}

// Scan reads every recognized definition file in the repository and returns
// the parsed results, sorted by filename. Files that fail to parse are
// logged and skipped. A missing asset directory is empty for the editable
// workspace and ErrUnreadableRoot for package repositories.
func (r *Repository) Scan(ctx context.Context) ([]*definition.File, error) {
	assetDir := r.AssetDir()

	entries, err := os.ReadDir(assetDir)
	if err != nil {
		if r.editable && os.IsNotExist(err) {
			log.Info(log.CatRepo, "editable asset dir missing, nothing to scan", "path", assetDir)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableRoot, assetDir, err)
	}

	var files []*definition.File
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), definitionExt) {
			continue
		}

		path := filepath.Join(assetDir, entry.Name())
		f, err := r.readDefinition(ctx, path, entry)
		if err != nil {
			log.Warn(log.CatRepo, "skipping unparseable definition", "path", path, "error", err)
			continue
		}
		for _, w := range f.Warnings {
			log.Warn(log.CatRepo, "definition warning", "path", path, "warning", w)
		}
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	log.Debug(log.CatRepo, "scan complete", "repo", r.Name(), "definitions", len(files))
	return files, nil
}

// readDefinition parses a definition file, serving unchanged files from the
// scan cache. Cache keys include mtime and size so edits invalidate
// naturally.
func (r *Repository) readDefinition(ctx context.Context, path string, entry os.DirEntry) (*definition.File, error) {
	info, err := entry.Info()
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if r.cache != nil {
		if f, ok := r.cache.Get(ctx, key); ok {
			return f, nil
		}
	}

	f, err := definition.Read(path)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, key, f, 1*time.Hour)
	}
	return f, nil
}
