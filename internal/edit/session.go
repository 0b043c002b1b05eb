// Package edit drives the node type lifecycle: checking out an editable
// copy, reconfiguring it, validating, and publishing or discarding it.
//
// A session is bound to one editable copy. Session state that matters
// across process restarts lives on disk (the editable file and its
// embedded metadata), so a session can be resumed later; validation
// freshness is in-memory only and a resumed session must re-validate
// before publishing.
package edit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/j0nc0x/hdamanager/internal/catalog"
	"github.com/j0nc0x/hdamanager/internal/definition"
	"github.com/j0nc0x/hdamanager/internal/history"
	"github.com/j0nc0x/hdamanager/internal/host"
	"github.com/j0nc0x/hdamanager/internal/log"
	"github.com/j0nc0x/hdamanager/internal/nodetype"
	"github.com/j0nc0x/hdamanager/internal/validate"
	"github.com/j0nc0x/hdamanager/internal/version"
)

// PublishTarget describes where a published version file is written.
type PublishTarget struct {
	PackageName    string
	PackageVersion version.Version
	// AssetDir is the directory the definition file is written into.
	AssetDir string
	// HandOff marks a target with no owning package: the file is staged
	// for the external packaging process instead of released directly.
	HandOff bool
}

// Workspace is the manager surface a session operates against.
type Workspace interface {
	Resolve(namespace, name string) (*catalog.Resolution, error)
	RecognizedNamespaces() []string
	EditDir() string
	Host() host.Host
	History() (*history.Store, error)
	Validators() []validate.Validator
	PublishTarget(ctx context.Context, namespace string) (PublishTarget, error)
	WritePackageManifest(target PublishTarget) error
	CompletePublish(ctx context.Context, editablePath string, editableName nodetype.Name, publishedPath string, publishedName nodetype.Name) error
	DiscardEditable(ctx context.Context, editablePath string, editableName nodetype.Name, published *nodetype.NodeTypeVersion) error
}

// Session is one editable checkout of a node type.
type Session struct {
	ws Workspace

	name      nodetype.Name // candidate name, updated by Configure
	category  string
	path      string // editable definition file
	published *nodetype.NodeTypeVersion
	// predecessor is the published version the checkout started from,
	// recorded in history on publish. Nil when none was published.
	predecessor *version.Version

	// allowedNS is a namespace the user explicitly confirmed as new for
	// this session. The namespace validator treats it as recognized even
	// though no discovered package claims it.
	allowedNS string

	// Validation freshness. A publish requires a validation run against
	// the exact bytes being published.
	report        *validate.Report
	validatedSize int64
	validatedMod  time.Time
}

// Begin checks out an editable copy of a published node type: the latest
// published definition file is copied byte-for-byte into the editable
// workspace and installed in place of the published version.
func Begin(ctx context.Context, ws Workspace, namespace, name string) (*Session, error) {
	res, err := ws.Resolve(namespace, name)
	if err != nil {
		return nil, err
	}
	if res.Editable != nil {
		return nil, &AlreadyEditableError{Namespace: namespace, Name: name, Path: res.Editable.Path}
	}
	// The catalog is a snapshot from the last load; a checkout made since
	// then is only visible on disk. Check the workspace directly so two
	// Begin calls without an intervening reload cannot both succeed.
	if existing, err := findEditable(ws.EditDir(), namespace, name); err != nil {
		return nil, err
	} else if existing != "" {
		return nil, &AlreadyEditableError{Namespace: namespace, Name: name, Path: existing}
	}
	if res.Published == nil {
		return nil, fmt.Errorf("%s::%s has no published version to edit", namespace, name)
	}

	src := res.Published
	dst := filepath.Join(ws.EditDir(), src.Name.EditableFilename(src.Category, time.Now()))
	if err := copyFile(src.Path, dst); err != nil {
		return nil, fmt.Errorf("checking out editable copy: %w", err)
	}

	if err := ws.Host().Install(ctx, dst, src.Name); err != nil {
		return nil, fmt.Errorf("installing editable copy: %w", err)
	}

	pred := src.Name.Version
	log.Info(log.CatEdit, "editable checkout", "name", src.Name, "path", dst)
	return &Session{
		ws:          ws,
		name:        src.Name,
		category:    src.Category,
		path:        dst,
		published:   src,
		predecessor: &pred,
	}, nil
}

// Resume rebinds a session to an existing editable copy, for example in a
// later process invocation. The session must be re-validated before it can
// publish.
func Resume(ctx context.Context, ws Workspace, namespace, name string) (*Session, error) {
	res, err := ws.Resolve(namespace, name)
	if err != nil {
		return nil, err
	}
	if res.Editable == nil {
		return nil, &NotEditableError{Namespace: namespace, Name: name}
	}

	f, err := definition.Read(res.Editable.Path)
	if err != nil {
		return nil, fmt.Errorf("reading editable copy: %w", err)
	}

	s := &Session{
		ws:        ws,
		name:      f.Name,
		category:  f.Definition.Category,
		path:      res.Editable.Path,
		published: res.Published,
	}
	if res.Published != nil {
		pred := res.Published.Name.Version
		s.predecessor = &pred
	}
	return s, nil
}

// ConfigureOptions describes a reconfiguration of the editable copy. Zero
// fields keep the current value. Bump and Version are mutually exclusive.
type ConfigureOptions struct {
	Namespace string
	Name      string
	// Bump is one of "major", "minor", "patch".
	Bump string
	// Version sets an explicit candidate version.
	Version *version.Version
	// ConfirmNewNamespace allows a namespace the manager does not
	// recognize. Without it such a namespace is rejected.
	ConfirmNewNamespace bool
}

// Configure updates the candidate identity of the editable copy: the
// embedded metadata is rewritten and the file renamed to match. Any prior
// validation result is invalidated.
func (s *Session) Configure(ctx context.Context, opts ConfigureOptions) error {
	next := s.name
	if opts.Namespace != "" {
		next.Namespace = opts.Namespace
	}
	if opts.Name != "" {
		next.Name = opts.Name
	}

	switch {
	case opts.Version != nil && opts.Bump != "":
		return fmt.Errorf("bump and explicit version are mutually exclusive")
	case opts.Version != nil:
		next.Version = *opts.Version
	case opts.Bump == "major":
		next.Version = s.name.Version.BumpMajor()
	case opts.Bump == "minor":
		next.Version = s.name.Version.BumpMinor()
	case opts.Bump == "patch":
		next.Version = s.name.Version.BumpPatch()
	case opts.Bump != "":
		return fmt.Errorf("unknown bump %q: want major, minor or patch", opts.Bump)
	}

	if next.Namespace != s.name.Namespace {
		known := s.ws.RecognizedNamespaces()
		if !contains(known, next.Namespace) {
			if !opts.ConfirmNewNamespace {
				return &InvalidNamespaceError{Namespace: next.Namespace, Known: known}
			}
			// The confirmation carries through to validation and publish.
			s.allowedNS = next.Namespace
		}
	}

	f, err := definition.Read(s.path)
	if err != nil {
		return fmt.Errorf("reading editable copy: %w", err)
	}
	def := f.Definition
	def.TypeName = next.String()
	if err := definition.Write(s.path, def); err != nil {
		return err
	}

	// The filename encodes namespace and name but not version, so only a
	// rename needs a new file path. The installation moves to the new
	// identity in every case.
	if next.Namespace != s.name.Namespace || next.Name != s.name.Name {
		newPath := filepath.Join(s.ws.EditDir(), next.EditableFilename(s.category, time.Now()))
		if err := os.Rename(s.path, newPath); err != nil {
			return fmt.Errorf("renaming editable copy: %w", err)
		}
		s.path = newPath
		// A renamed checkout is a new node type identity; it replaces no
		// published version.
		s.predecessor = nil
	}
	if next != s.name {
		if err := s.ws.Host().Uninstall(ctx, s.name); err != nil {
			log.Warn(log.CatEdit, "uninstalling old editable identity failed", "name", s.name, "error", err)
		}
		if err := s.ws.Host().Install(ctx, s.path, next); err != nil {
			return fmt.Errorf("installing reconfigured editable: %w", err)
		}
	}

	log.Info(log.CatEdit, "editable reconfigured", "from", s.name, "to", next)
	s.name = next
	s.report = nil
	return nil
}

// Validate runs the workspace's validators against the current bytes of
// the editable copy and remembers the result for Publish.
func (s *Session) Validate(ctx context.Context) (*validate.Report, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("inspecting editable copy: %w", err)
	}

	f, err := definition.Read(s.path)
	if err != nil {
		return nil, err
	}
	// The file may have been hand-edited since Configure.
	s.name = f.Name
	s.category = f.Definition.Category

	namespaces := s.ws.RecognizedNamespaces()
	if s.allowedNS != "" && !contains(namespaces, s.allowedNS) {
		namespaces = append(namespaces, s.allowedNS)
	}

	c := &validate.Candidate{
		Name:       s.name,
		Path:       s.path,
		File:       f,
		Namespaces: namespaces,
	}
	if res, err := s.ws.Resolve(s.name.Namespace, s.name.Name); err == nil && res.Published != nil {
		v := res.Published.Name.Version
		c.LatestPublished = &v
	}

	report := validate.Run(ctx, s.ws.Validators(), c)
	s.report = report
	s.validatedSize = info.Size()
	s.validatedMod = info.ModTime()

	log.Info(log.CatEdit, "validation run", "name", s.name, "pass", report.Pass())
	return report, nil
}

// Published describes the outcome of a successful publish.
type Published struct {
	Name   nodetype.Name
	Path   string
	Target PublishTarget
}

// Publish releases the editable copy as a new immutable version. It
// requires a fresh all-passing validation, re-checks the target path at
// write time, records the publish in history, then hands the session
// cleanup to the workspace. Failures after the version file is written are
// reported but never unwrite it.
func (s *Session) Publish(ctx context.Context, author, comment string) (*Published, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}

	target, err := s.ws.PublishTarget(ctx, s.name.Namespace)
	if err != nil {
		return nil, err
	}
	targetPath := filepath.Join(target.AssetDir, s.name.Filename(s.category))

	if err := os.MkdirAll(target.AssetDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating publish target: %w", err)
	}
	// O_EXCL is the conflict check: a concurrent publisher that created
	// this exact file first wins.
	if err := copyFileExcl(s.path, targetPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, &PublishConflictError{Path: targetPath}
		}
		return nil, fmt.Errorf("writing published version: %w", err)
	}

	if err := s.ws.WritePackageManifest(target); err != nil {
		log.ErrorErr(log.CatEdit, "writing package manifest failed", err, "package", target.PackageName)
	}

	hist, err := s.ws.History()
	if err != nil {
		return nil, fmt.Errorf("publish written to %s but history unavailable: %w", targetPath, err)
	}
	entry := &history.Entry{
		Name:        s.name,
		Predecessor: s.predecessor,
		Author:      author,
		Comment:     comment,
	}
	if err := hist.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("publish written to %s but history append failed: %w", targetPath, err)
	}

	if err := s.ws.CompletePublish(ctx, s.path, s.name, targetPath, s.name); err != nil {
		return &Published{Name: s.name, Path: targetPath, Target: target}, err
	}

	log.Info(log.CatEdit, "published", "name", s.name, "path", targetPath, "package", target.PackageName)
	return &Published{Name: s.name, Path: targetPath, Target: target}, nil
}

// checkValidated enforces publish preconditions: a validation result must
// exist, cover the current bytes of the file, and be all-passing.
func (s *Session) checkValidated() error {
	if s.report == nil {
		return &PublishRejectedError{Reasons: []string{"no validation has been run"}}
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("inspecting editable copy: %w", err)
	}
	if info.Size() != s.validatedSize || !info.ModTime().Equal(s.validatedMod) {
		return &PublishRejectedError{Reasons: []string{"editable copy changed since last validation"}}
	}

	if !s.report.Pass() {
		var reasons []string
		for _, f := range s.report.Failures() {
			reasons = append(reasons, f.Messages...)
		}
		return &PublishRejectedError{Reasons: reasons}
	}
	return nil
}

// Discard abandons the editable copy and restores the published
// installation the checkout shadowed.
func (s *Session) Discard(ctx context.Context) error {
	return s.ws.DiscardEditable(ctx, s.path, s.name, s.published)
}

// Diff returns a readable diff between the published source of the
// checkout and the current editable copy.
func (s *Session) Diff() (string, error) {
	if s.published == nil {
		return "", fmt.Errorf("no published version to diff against")
	}

	before, err := os.ReadFile(s.published.Path)
	if err != nil {
		return "", fmt.Errorf("reading published version: %w", err)
	}
	after, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("reading editable copy: %w", err)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(before), string(after), true)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs), nil
}

// Modified reports whether the editable copy differs from its published
// source. A checkout with no published source counts as modified.
func (s *Session) Modified() (bool, error) {
	if s.published == nil {
		return true, nil
	}

	before, err := os.ReadFile(s.published.Path)
	if err != nil {
		return false, fmt.Errorf("reading published version: %w", err)
	}
	after, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("reading editable copy: %w", err)
	}
	return !bytes.Equal(before, after), nil
}

// AllowNamespace marks a namespace as user-confirmed for this session.
// Resume cannot recover a confirmation given in an earlier process, so a
// publish of a confirmed-new-namespace checkout re-states it here.
func (s *Session) AllowNamespace(namespace string) {
	s.allowedNS = namespace
	s.report = nil
}

// findEditable looks for an existing editable copy of a node type in the
// workspace directory, by filename.
func findEditable(editDir, namespace, name string) (string, error) {
	entries, err := os.ReadDir(editDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading editable workspace: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		_, ns, n, err := nodetype.ParseFilename(entry.Name())
		if err != nil {
			continue
		}
		if ns == namespace && n == name {
			return filepath.Join(editDir, entry.Name()), nil
		}
	}
	return "", nil
}

// Name returns the current candidate name.
func (s *Session) Name() nodetype.Name { return s.name }

// Path returns the editable definition file path.
func (s *Session) Path() string { return s.path }

// Validated reports whether a validation result covers the current bytes.
func (s *Session) Validated() bool { return s.checkValidated() == nil }

// Report returns the most recent validation report, nil before Validate.
func (s *Session) Report() *validate.Report { return s.report }

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: paths come from the catalog
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec // G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// copyFileExcl copies src to dst, failing with os.ErrExist if dst already
// exists.
func copyFileExcl(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
