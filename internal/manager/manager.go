// Package manager builds the repository set from the configured search
// path plus the editable workspace, applies the bounded version-scan
// policy, and owns the catalog/install cycle for the running session.
package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/yaml.v3"

	"github.com/j0nc0x/hdamanager/internal/cachemanager"
	"github.com/j0nc0x/hdamanager/internal/catalog"
	"github.com/j0nc0x/hdamanager/internal/config"
	"github.com/j0nc0x/hdamanager/internal/definition"
	"github.com/j0nc0x/hdamanager/internal/edit"
	"github.com/j0nc0x/hdamanager/internal/history"
	"github.com/j0nc0x/hdamanager/internal/host"
	"github.com/j0nc0x/hdamanager/internal/log"
	"github.com/j0nc0x/hdamanager/internal/nodetype"
	"github.com/j0nc0x/hdamanager/internal/paths"
	"github.com/j0nc0x/hdamanager/internal/pubsub"
	"github.com/j0nc0x/hdamanager/internal/repo"
	"github.com/j0nc0x/hdamanager/internal/validate"
	"github.com/j0nc0x/hdamanager/internal/version"
)

// pkg records one discovered package: where its version directories live
// and which namespaces it claims.
type pkg struct {
	name       string
	root       string // parent directory of the version directories
	namespaces []string
}

// Manager exclusively owns the repository set and the catalog. It is
// rebuilt wholesale by each Load; queries in between are read-only.
type Manager struct {
	cfg        config.Config
	host       host.Host
	hist       *history.Store
	validators []validate.Validator
	tracer     trace.Tracer
	broker     *pubsub.Broker[string]
	cache      cachemanager.CacheManager[string, *definition.File]

	mu       sync.Mutex
	repos    []*repo.Repository
	packages map[string]*pkg // package name -> discovery record
	byNS     map[string]*pkg // namespace -> owning package record
	catalog  *catalog.Catalog
}

// Option configures optional manager collaborators.
type Option func(*Manager)

// WithHistory supplies the publish history store. Without it the manager
// opens the configured history database lazily on first use.
func WithHistory(s *history.Store) Option {
	return func(m *Manager) { m.hist = s }
}

// WithValidators appends configuration-supplied validators, run after the
// built-in ones in the order given.
func WithValidators(validators ...validate.Validator) Option {
	return func(m *Manager) { m.validators = append(m.validators, validators...) }
}

// WithTracer supplies the tracer used for load and publish spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// New validates the configuration and prepares a manager. The editable
// workspace directory is created if absent. No scanning happens until Load.
func New(cfg config.Config, h host.Host, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if h == nil {
		h = host.NullHost{}
	}

	if err := os.MkdirAll(cfg.EditDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating editable workspace %s: %w", cfg.EditDir, err)
	}

	m := &Manager{
		cfg:    cfg,
		host:   h,
		tracer: noop.NewTracerProvider().Tracer("noop"),
		broker: pubsub.NewBroker[string](),
		cache: cachemanager.NewInMemoryCacheManager[string, *definition.File](
			"definition-scan", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval),
		packages: make(map[string]*pkg),
		byNS:     make(map[string]*pkg),
	}
	m.validators = []validate.Validator{validate.Namespace{}, validate.IsLatestVersion{}}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Load discovers repositories, rebuilds the catalog and installs the
// resulting definitions into the host. Safe to call repeatedly; the
// previous repository set and catalog are discarded wholesale.
func (m *Manager) Load(ctx context.Context) (*catalog.Catalog, error) {
	ctx, span := m.tracer.Start(ctx, "manager.load")
	defer span.End()

	repos, packages, byNS, err := m.discover(ctx)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Build(ctx, repos)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("repositories", len(repos)),
		attribute.Int("node_types", len(cat.All())),
		attribute.Int("warnings", len(cat.Warnings())),
	)

	m.installAll(ctx, cat)

	m.mu.Lock()
	m.repos = repos
	m.packages = packages
	m.byNS = byNS
	m.catalog = cat
	m.mu.Unlock()

	m.broker.Publish(pubsub.EventCatalogReloaded, "")
	return cat, nil
}

// discover walks the search path and assembles the ordered repository set:
// for each package the included version directories highest-first, then the
// editable workspace last.
func (m *Manager) discover(ctx context.Context) ([]*repo.Repository, map[string]*pkg, map[string]*pkg, error) {
	ctx, span := m.tracer.Start(ctx, "manager.discover")
	defer span.End()

	var repos []*repo.Repository
	packages := make(map[string]*pkg)
	byNS := make(map[string]*pkg)

	for _, root := range m.cfg.SearchRoots() {
		entries, err := os.ReadDir(root)
		if err != nil {
			log.Warn(log.CatManager, "skipping unreadable search root", "root", root, "error", err)
			continue
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, nil, nil, err
			}
			if !entry.IsDir() {
				continue
			}

			name := entry.Name()
			if _, seen := packages[name]; seen {
				// First root on the search path wins for a package.
				log.Debug(log.CatManager, "package already discovered on earlier root", "package", name, "root", root)
				continue
			}

			pkgRoot := filepath.Join(root, name)
			included := m.includedVersions(pkgRoot)
			if len(included) == 0 {
				// A package with no version directories contributes nothing.
				continue
			}

			p := &pkg{name: name, root: pkgRoot}
			packages[name] = p
			for _, ver := range included {
				r, err := repo.New(filepath.Join(pkgRoot, ver.String()), m.cache)
				if err != nil {
					log.Warn(log.CatManager, "skipping version directory", "package", name, "version", ver, "error", err)
					continue
				}
				repos = append(repos, r)
				for _, ns := range r.Namespaces() {
					if _, claimed := byNS[ns]; !claimed {
						byNS[ns] = p
					}
					p.namespaces = appendUnique(p.namespaces, ns)
				}
			}
		}
	}

	// The editable workspace is always present and always scanned last so
	// its contents shadow package-sourced versions.
	repos = append(repos, repo.NewEditable(m.cfg.EditDir, m.cache))

	log.Info(log.CatManager, "discovery complete", "repositories", len(repos), "packages", len(packages))
	return repos, packages, byNS, nil
}

// includedVersions enumerates a package's version directories and applies
// the bounded backward scan: highest first, until LoadDepth versions are
// included or, with ScopeToMajor, the major component changes.
func (m *Manager) includedVersions(pkgRoot string) []version.Version {
	entries, err := os.ReadDir(pkgRoot)
	if err != nil {
		log.Warn(log.CatManager, "unreadable package root", "root", pkgRoot, "error", err)
		return nil
	}

	var versions []version.Version
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if v, err := version.Parse(entry.Name()); err == nil {
			versions = append(versions, v)
		}
	}

	return selectVersions(versions, m.cfg.LoadDepth, m.cfg.ScopeToMajor)
}

// selectVersions sorts descending and walks backward from the highest
// version until depth versions are included or, when scopeToMajor is set,
// the major version changes. Exposed for the policy tests.
func selectVersions(versions []version.Version, depth int, scopeToMajor bool) []version.Version {
	if len(versions) == 0 || depth <= 0 {
		return nil
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[j].Less(versions[i])
	})

	included := versions[:0:0]
	for _, v := range versions {
		if len(included) >= depth {
			break
		}
		if scopeToMajor && v.Major != versions[0].Major {
			break
		}
		included = append(included, v)
	}
	return included
}

// installAll installs every loaded version into the host. Install failures
// degrade the session, not the load.
func (m *Manager) installAll(ctx context.Context, cat *catalog.Catalog) {
	for _, nt := range cat.All() {
		for _, v := range nt.Versions() {
			if err := m.host.Install(ctx, v.Path, v.Name); err != nil {
				log.ErrorErr(log.CatManager, "install failed", err, "name", v.Name, "path", v.Path)
				continue
			}
			v.Installed = true
		}
	}
}

// Catalog returns the catalog from the most recent Load.
func (m *Manager) Catalog() *catalog.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog
}

// Events returns the broker publishing catalog and lifecycle events.
func (m *Manager) Events() *pubsub.Broker[string] {
	return m.broker
}

// Resolve looks up a node type in the current catalog.
func (m *Manager) Resolve(namespace, name string) (*catalog.Resolution, error) {
	cat := m.Catalog()
	if cat == nil {
		return nil, fmt.Errorf("catalog not loaded")
	}
	return cat.Resolve(namespace, name)
}

// RecognizedNamespaces returns every namespace claimed by a discovered
// package, sorted.
func (m *Manager) RecognizedNamespaces() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	namespaces := make([]string, 0, len(m.byNS))
	for ns := range m.byNS {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces
}

// EditDir returns the editable workspace root.
func (m *Manager) EditDir() string {
	return m.cfg.EditDir
}

// BackupDir returns (creating if needed) the backup directory for
// uninstalled editable copies.
func (m *Manager) BackupDir() (string, error) {
	dir := paths.BackupDir(m.cfg.EditDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	return dir, nil
}

// Host returns the installation capability.
func (m *Manager) Host() host.Host {
	return m.host
}

// History returns the publish history store, opening the configured
// database on first use.
func (m *Manager) History() (*history.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hist == nil {
		s, err := history.Open(m.cfg.HistoryDBPath())
		if err != nil {
			return nil, err
		}
		m.hist = s
	}
	return m.hist, nil
}

// Validators returns the ordered validator set: built-ins first, then any
// configuration-supplied ones.
func (m *Manager) Validators() []validate.Validator {
	return m.validators
}

// PublishTarget computes where the next version of a node type in the
// given namespace is written. For a namespace owned by a discovered
// package this is the package's next version directory; for a confirmed
// new namespace it is a hand-off location inside the editable workspace
// for the external packaging process.
func (m *Manager) PublishTarget(ctx context.Context, namespace string) (edit.PublishTarget, error) {
	m.mu.Lock()
	p := m.byNS[namespace]
	m.mu.Unlock()

	if p == nil {
		// Hand-off location for namespaces with no owning package yet.
		dir := filepath.Join(m.cfg.EditDir, ".publish", namespace, "1.0.0")
		return edit.PublishTarget{
			PackageName:    namespace,
			PackageVersion: version.Version{Major: 1},
			AssetDir:       filepath.Join(dir, repo.AssetSubdirectory),
			HandOff:        true,
		}, nil
	}

	// Re-enumerate the package versions at publish time: another user may
	// have released since this session loaded.
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return edit.PublishTarget{}, fmt.Errorf("reading package root %s: %w", p.root, err)
	}
	current := version.Version{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if v, err := version.Parse(entry.Name()); err == nil && current.Less(v) {
			current = v
		}
	}

	next := current.BumpMinor()
	return edit.PublishTarget{
		PackageName:    p.name,
		PackageVersion: next,
		AssetDir:       filepath.Join(p.root, next.String(), repo.AssetSubdirectory),
	}, nil
}

// WritePackageManifest writes the package.yaml for a freshly created
// version directory so the published directory is a complete package
// version.
func (m *Manager) WritePackageManifest(target edit.PublishTarget) error {
	m.mu.Lock()
	p := m.packages[target.PackageName]
	m.mu.Unlock()

	manifest := repo.Manifest{
		Name:    target.PackageName,
		Version: target.PackageVersion.String(),
	}
	if p != nil {
		manifest.Namespaces = p.namespaces
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding package manifest: %w", err)
	}
	path := filepath.Join(filepath.Dir(target.AssetDir), "package.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing package manifest: %w", err)
	}
	return nil
}

// CompletePublish finishes a publish after the new version file has been
// written: the editable copy is backed up, its installation removed, and
// the published version installed. Failures past the write are reported
// but do not unwrite the published artifact, which is now authoritative.
func (m *Manager) CompletePublish(ctx context.Context, editablePath string, editableName nodetype.Name, publishedPath string, publishedName nodetype.Name) error {
	var firstErr error

	if err := m.backupFile(editablePath); err != nil {
		log.ErrorErr(log.CatManager, "backing up editable copy failed", err, "path", editablePath)
		firstErr = err
	}
	if err := m.host.Uninstall(ctx, editableName); err != nil {
		log.ErrorErr(log.CatManager, "uninstalling editable failed", err, "name", editableName)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := m.host.Install(ctx, publishedPath, publishedName); err != nil {
		log.ErrorErr(log.CatManager, "installing published version failed", err, "name", publishedName)
		if firstErr == nil {
			firstErr = err
		}
	}

	m.broker.Publish(pubsub.EventPublished, publishedName.String())
	if firstErr != nil {
		return fmt.Errorf("publish completed but session cleanup failed: %w", firstErr)
	}
	return nil
}

// DiscardEditable removes an editable checkout: the file moves to backup,
// its installation is removed and the previously published version is
// reinstalled.
func (m *Manager) DiscardEditable(ctx context.Context, editablePath string, editableName nodetype.Name, published *nodetype.NodeTypeVersion) error {
	if err := m.backupFile(editablePath); err != nil {
		return err
	}
	if err := m.host.Uninstall(ctx, editableName); err != nil {
		return fmt.Errorf("uninstalling editable: %w", err)
	}
	if published != nil {
		if err := m.host.Install(ctx, published.Path, published.Name); err != nil {
			return fmt.Errorf("restoring published version: %w", err)
		}
	}

	m.broker.Publish(pubsub.EventDiscarded, editableName.String())
	return nil
}

// backupFile moves a file into the backup directory, uniquing the target
// name if a previous backup exists.
func (m *Manager) backupFile(path string) error {
	dir, err := m.BackupDir()
	if err != nil {
		return err
	}

	target := filepath.Join(dir, filepath.Base(path))
	for i := 1; ; i++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(dir, fmt.Sprintf("%s.%d", filepath.Base(path), i))
	}

	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("backing up %s: %w", path, err)
	}
	log.Debug(log.CatManager, "backed up", "path", path, "backup", target)
	return nil
}

// Close releases the manager's resources.
func (m *Manager) Close() error {
	m.broker.Close()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hist != nil {
		return m.hist.Close()
	}
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
