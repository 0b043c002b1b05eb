// Package catalog aggregates the node type definitions discovered across
// repositories into the queryable session state, enforcing namespace
// ownership and version uniqueness.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/j0nc0x/hdamanager/internal/log"
	"github.com/j0nc0x/hdamanager/internal/nodetype"
	"github.com/j0nc0x/hdamanager/internal/repo"
)

// ErrNotFound is returned when resolving an unknown node type.
var ErrNotFound = errors.New("node type not found")

// NamespaceConflictError records a namespace claimed by two packages.
// It is surfaced as a warning; the first claimant keeps ownership and the
// conflicting versions are excluded.
type NamespaceConflictError struct {
	Namespace string
	Owner     string
	Claimant  string
}

func (e *NamespaceConflictError) Error() string {
	return fmt.Sprintf("namespace %s owned by package %s, also claimed by %s",
		e.Namespace, e.Owner, e.Claimant)
}

// DuplicateVersionError records the same node type version provided by two
// repositories. The first-seen entry wins.
type DuplicateVersionError struct {
	Name       nodetype.Name
	Repository string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("duplicate version %s from repository %s ignored", e.Name, e.Repository)
}

// ScanError records a repository whose scan failed; the repository is
// skipped and the rest of the load continues.
type ScanError struct {
	Repository string
	Err        error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("repository %s skipped: %v", e.Repository, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Resolution is the answer to a Resolve query. Published is the highest
// published version; Editable is the checked-out copy when one exists and
// takes install precedence.
type Resolution struct {
	Published *nodetype.NodeTypeVersion
	Editable  *nodetype.NodeTypeVersion
}

// Catalog owns all NodeType records for one load cycle. It is rebuilt
// wholesale on each load; queries have no side effects.
type Catalog struct {
	nodeTypes map[string]*nodetype.NodeType
	owners    map[string]string // namespace -> owning package
	warnings  []error
}

// Build consumes repositories in the order supplied by the manager
// (package versions highest-first per package, editable last) and
// aggregates their definitions. Per-repository and per-file problems
// degrade to warnings; Build only fails on context cancellation.
func Build(ctx context.Context, repos []*repo.Repository) (*Catalog, error) {
	c := &Catalog{
		nodeTypes: make(map[string]*nodetype.NodeType),
		owners:    make(map[string]string),
	}

	for _, r := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.consume(ctx, r); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			c.warn(&ScanError{Repository: r.Name(), Err: err})
		}
	}

	log.Info(log.CatCatalog, "catalog built",
		"node_types", len(c.nodeTypes), "namespaces", len(c.owners), "warnings", len(c.warnings))
	return c, nil
}

func (c *Catalog) consume(ctx context.Context, r *repo.Repository) error {
	// Fix namespace ownership before touching any definitions: the first
	// package claiming a namespace owns it for this catalog instance.
	excluded := make(map[string]bool)
	for _, ns := range r.Namespaces() {
		owner, claimed := c.owners[ns]
		switch {
		case !claimed:
			c.owners[ns] = r.PackageName()
		case owner != r.PackageName():
			c.warn(&NamespaceConflictError{Namespace: ns, Owner: owner, Claimant: r.PackageName()})
			excluded[ns] = true
		}
	}

	files, err := r.Scan(ctx)
	if err != nil {
		return err
	}

	for _, f := range files {
		if excluded[f.Name.Namespace] {
			log.Warn(log.CatCatalog, "excluding definition under conflicted namespace",
				"name", f.Name, "repo", r.Name())
			continue
		}

		// A package providing definitions under a namespace owned by a
		// different package loses to the owner.
		if !r.Editable() {
			if owner, claimed := c.owners[f.Name.Namespace]; claimed && owner != r.PackageName() {
				c.warn(&NamespaceConflictError{
					Namespace: f.Name.Namespace, Owner: owner, Claimant: r.PackageName()})
				continue
			}
		}

		nt, ok := c.nodeTypes[f.Name.Index()]
		if !ok {
			nt = nodetype.NewNodeType(f.Name.Namespace, f.Name.Name, f.Definition.Category)
			c.nodeTypes[f.Name.Index()] = nt
		}

		v := &nodetype.NodeTypeVersion{
			Name:        f.Name,
			Category:    f.Definition.Category,
			Path:        f.Path,
			Repository:  r.Name(),
			PackageName: r.PackageName(),
			Writable:    r.Editable(),
		}
		if err := nt.AddVersion(v); err != nil {
			switch {
			case errors.Is(err, nodetype.ErrDuplicateVersion):
				// First-seen wins; repositories arrive highest-package-first.
				c.warn(&DuplicateVersionError{Name: f.Name, Repository: r.Name()})
			case errors.Is(err, nodetype.ErrEditableExists):
				c.warn(fmt.Errorf("multiple editable copies for %s: %w", f.Name.Index(), err))
			default:
				return err
			}
		}
	}
	return nil
}

func (c *Catalog) warn(err error) {
	log.Warn(log.CatCatalog, "load warning", "warning", err)
	c.warnings = append(c.warnings, err)
}

// Resolve returns the highest published version of the node type plus the
// editable checkout when one exists.
func (c *Catalog) Resolve(namespace, name string) (*Resolution, error) {
	nt, ok := c.nodeTypes[nodetype.Index(namespace, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodetype.Index(namespace, name))
	}
	return &Resolution{Published: nt.Latest(), Editable: nt.Editable()}, nil
}

// NodeType returns the aggregated record for a (namespace, name) pair.
func (c *Catalog) NodeType(namespace, name string) (*nodetype.NodeType, bool) {
	nt, ok := c.nodeTypes[nodetype.Index(namespace, name)]
	return nt, ok
}

// Namespaces returns all namespaces with at least one node type, sorted.
func (c *Catalog) Namespaces() []string {
	seen := make(map[string]bool)
	for _, nt := range c.nodeTypes {
		seen[nt.Namespace] = true
	}
	namespaces := make([]string, 0, len(seen))
	for ns := range seen {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces
}

// NodeTypes returns the node types under a namespace, sorted by name.
func (c *Catalog) NodeTypes(namespace string) []*nodetype.NodeType {
	var result []*nodetype.NodeType
	for _, nt := range c.nodeTypes {
		if nt.Namespace == namespace {
			result = append(result, nt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// All returns every node type, sorted by index.
func (c *Catalog) All() []*nodetype.NodeType {
	result := make([]*nodetype.NodeType, 0, len(c.nodeTypes))
	for _, nt := range c.nodeTypes {
		result = append(result, nt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index() < result[j].Index() })
	return result
}

// Owner returns the package owning a namespace, if fixed during this build.
func (c *Catalog) Owner(namespace string) (string, bool) {
	owner, ok := c.owners[namespace]
	return owner, ok
}

// Warnings returns the non-fatal problems recorded during the build.
func (c *Catalog) Warnings() []error {
	return c.warnings
}
