package edit_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/j0nc0x/hdamanager/internal/config"
	"github.com/j0nc0x/hdamanager/internal/edit"
	"github.com/j0nc0x/hdamanager/internal/history"
	"github.com/j0nc0x/hdamanager/internal/host"
	"github.com/j0nc0x/hdamanager/internal/manager"
	"github.com/j0nc0x/hdamanager/internal/paths"
)

// fixture is a manager loaded over one package publishing
// rebellion.pipeline::amazinghda::1.0.0.
type fixture struct {
	root string
	cfg  config.Config
	host *host.MemHost
	hist *history.Store
	mgr  *manager.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	assetDir := filepath.Join(root, "houdini_hdas_pipeline", "1.0.0", "hda")
	require.NoError(t, os.MkdirAll(assetDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "houdini_hdas_pipeline", "1.0.0", "package.yaml"),
		[]byte("name: houdini_hdas_pipeline\nversion: 1.0.0\nnamespaces:\n  - rebellion.pipeline\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(assetDir, "Lop_rebellion.pipeline_amazinghda.hda"),
		[]byte("name: rebellion.pipeline::amazinghda::1.0.0\ncategory: Lop\npayload: original\n"), 0o644))

	cfg := config.Config{
		PackagesPath: root,
		EditDir:      filepath.Join(t.TempDir(), "edit"),
		LoadDepth:    3,
		ScopeToMajor: true,
	}

	hist, err := history.OpenInMemory()
	require.NoError(t, err)

	h := host.NewMemHost()
	mgr, err := manager.New(cfg, h, manager.WithHistory(hist))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	_, err = mgr.Load(context.Background())
	require.NoError(t, err)

	return &fixture{root: root, cfg: cfg, host: h, hist: hist, mgr: mgr}
}

func (f *fixture) reload(t *testing.T) {
	t.Helper()
	_, err := f.mgr.Load(context.Background())
	require.NoError(t, err)
}

func TestBeginCopiesAndInstalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)

	// Byte-for-byte copy into the editable workspace.
	require.True(t, strings.HasPrefix(s.Path(), f.cfg.EditDir))
	src, err := os.ReadFile(filepath.Join(f.root, "houdini_hdas_pipeline", "1.0.0", "hda", "Lop_rebellion.pipeline_amazinghda.hda"))
	require.NoError(t, err)
	dst, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.Equal(t, src, dst)

	// The editable copy shadows the published installation.
	installed, ok := f.host.InstalledPath(s.Name())
	require.True(t, ok)
	require.Equal(t, s.Path(), installed)
}

func TestBeginRejectsSecondCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	f.reload(t)

	_, err = edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	var already *edit.AlreadyEditableError
	require.ErrorAs(t, err, &already)
	require.Equal(t, "amazinghda", already.Name)
}

func TestBeginRejectsSecondCheckoutWithoutReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)

	// The catalog snapshot predates the checkout; the workspace directory
	// is the source of truth.
	_, err = edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	var already *edit.AlreadyEditableError
	require.ErrorAs(t, err, &already)
	require.Equal(t, first.Path(), already.Path)
}

func TestResumeRequiresEditableCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := edit.Resume(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	var notEditable *edit.NotEditableError
	require.ErrorAs(t, err, &notEditable)

	_, err = edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	f.reload(t)

	s, err := edit.Resume(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.Equal(t, "rebellion.pipeline::amazinghda::1.0.0", s.Name().String())
	// A resumed session has no validation state.
	require.False(t, s.Validated())
}

func TestConfigureRejectsUnknownNamespace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)

	err = s.Configure(ctx, edit.ConfigureOptions{Namespace: "rebellion.newshow"})
	var invalid *edit.InvalidNamespaceError
	require.ErrorAs(t, err, &invalid)
	require.Contains(t, invalid.Known, "rebellion.pipeline")

	// Confirmed, the new namespace is accepted.
	err = s.Configure(ctx, edit.ConfigureOptions{Namespace: "rebellion.newshow", ConfirmNewNamespace: true})
	require.NoError(t, err)
	require.Equal(t, "rebellion.newshow", s.Name().Namespace)
}

func TestPublishRequiresValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)

	_, err = s.Publish(ctx, "jcox", "no validation")
	var rejected *edit.PublishRejectedError
	require.ErrorAs(t, err, &rejected)
}

func TestPublishRejectsStaleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)

	report, err := s.Validate(ctx)
	require.NoError(t, err)
	require.True(t, report.Pass())

	// The file changes between validation and publish.
	require.NoError(t, os.WriteFile(s.Path(),
		[]byte("name: rebellion.pipeline::amazinghda::1.0.0\ncategory: Lop\npayload: tampered afterwards\n"), 0o644))

	_, err = s.Publish(ctx, "jcox", "stale")
	var rejected *edit.PublishRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Contains(t, rejected.Reasons[0], "changed since")
}

func TestPublishRejectsFailingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)

	// A hand-edit moves the metadata into a namespace nobody confirmed.
	require.NoError(t, os.WriteFile(s.Path(),
		[]byte("name: rebellion.rogue::amazinghda::1.0.0\ncategory: Lop\npayload: original\n"), 0o644))

	report, err := s.Validate(ctx)
	require.NoError(t, err)
	require.False(t, report.Pass())

	_, err = s.Publish(ctx, "jcox", "bad namespace")
	var rejected *edit.PublishRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Contains(t, rejected.Reasons[0], "rebellion.rogue")
}

func TestPublishLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	editablePath := s.Path()

	require.NoError(t, s.Configure(ctx, edit.ConfigureOptions{Bump: "major"}))
	require.Equal(t, "2.0.0", s.Name().Version.String())

	report, err := s.Validate(ctx)
	require.NoError(t, err)
	require.True(t, report.Pass(), "failures: %v", report.Failures())

	pub, err := s.Publish(ctx, "jcox", "major rework")
	require.NoError(t, err)

	// The new version landed in the package's next version directory,
	// alongside a manifest.
	wantPath := filepath.Join(f.root, "houdini_hdas_pipeline", "1.1.0", "hda", "Lop_rebellion.pipeline_amazinghda.hda")
	require.Equal(t, wantPath, pub.Path)
	require.FileExists(t, wantPath)
	require.FileExists(t, filepath.Join(f.root, "houdini_hdas_pipeline", "1.1.0", "package.yaml"))

	// The editable copy moved to backup.
	require.NoFileExists(t, editablePath)
	require.FileExists(t, filepath.Join(paths.BackupDir(f.cfg.EditDir), filepath.Base(editablePath)))

	// The published version is installed in place of the editable copy.
	installed, ok := f.host.InstalledPath(s.Name())
	require.True(t, ok)
	require.Equal(t, wantPath, installed)

	// History records the publish with its predecessor.
	entries, err := f.hist.Query(ctx, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2.0.0", entries[0].Name.Version.String())
	require.NotNil(t, entries[0].Predecessor)
	require.Equal(t, "1.0.0", entries[0].Predecessor.String())
	require.Equal(t, "jcox", entries[0].Author)
	require.Equal(t, "major rework", entries[0].Comment)

	// After a reload the catalog sees the new version as latest.
	f.reload(t)
	res, err := f.mgr.Resolve("rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.Nil(t, res.Editable)
	require.Equal(t, "2.0.0", res.Published.Name.Version.String())
}

func TestPublishConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx, edit.ConfigureOptions{Bump: "minor"}))

	_, err = s.Validate(ctx)
	require.NoError(t, err)

	// A concurrent publisher takes the exact target first.
	conflictDir := filepath.Join(f.root, "houdini_hdas_pipeline", "1.1.0", "hda")
	require.NoError(t, os.MkdirAll(conflictDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(conflictDir, "Lop_rebellion.pipeline_amazinghda.hda"),
		[]byte("name: rebellion.pipeline::amazinghda::1.1.0\ncategory: Lop\npayload: theirs\n"), 0o644))

	_, err = s.Publish(ctx, "jcox", "racing")
	var conflict *edit.PublishConflictError
	require.ErrorAs(t, err, &conflict)

	// The losing session's editable copy is untouched.
	require.FileExists(t, s.Path())
	entries, err := f.hist.Query(ctx, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDiscardRestoresPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.mgr.Resolve("rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	publishedPath := res.Published.Path

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	editablePath := s.Path()

	require.NoError(t, s.Discard(ctx))

	require.NoFileExists(t, editablePath)
	require.FileExists(t, filepath.Join(paths.BackupDir(f.cfg.EditDir), filepath.Base(editablePath)))

	installed, ok := f.host.InstalledPath(s.Name())
	require.True(t, ok)
	require.Equal(t, publishedPath, installed)

	// After a reload nothing editable remains.
	f.reload(t)
	res, err = f.mgr.Resolve("rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.Nil(t, res.Editable)
}

func TestDiffShowsEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path(),
		[]byte("name: rebellion.pipeline::amazinghda::1.0.0\ncategory: Lop\npayload: reworked\n"), 0o644))

	diff, err := s.Diff()
	require.NoError(t, err)
	require.Contains(t, diff, "reworked")
}

func TestPublishToConfirmedNewNamespaceHandsOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx, edit.ConfigureOptions{Namespace: "rebellion.newshow", ConfirmNewNamespace: true}))

	// The confirmation carries through validation: the built-in namespace
	// validator accepts the confirmed namespace.
	report, err := s.Validate(ctx)
	require.NoError(t, err)
	require.True(t, report.Pass(), "failures: %v", report.Failures())

	pub, err := s.Publish(ctx, "jcox", "first show asset")
	require.NoError(t, err)
	require.True(t, pub.Target.HandOff)

	// With no owning package the file lands in the hand-off location for
	// the external packaging process.
	wantPath := filepath.Join(f.cfg.EditDir, ".publish", "rebellion.newshow", "1.0.0", "hda",
		"Lop_rebellion.newshow_amazinghda.hda")
	require.Equal(t, wantPath, pub.Path)
	require.FileExists(t, wantPath)
	require.True(t, strings.HasPrefix(pub.Path, f.cfg.EditDir))

	// A renamed checkout is a new node type: no predecessor in history.
	entries, err := f.hist.Query(ctx, "rebellion.newshow", "amazinghda")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "1.0.0", entries[0].Name.Version.String())
	require.Nil(t, entries[0].Predecessor)
}

func TestResumedSessionReconfirmsNewNamespace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := edit.Begin(ctx, f.mgr, "rebellion.pipeline", "amazinghda")
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx, edit.ConfigureOptions{Namespace: "rebellion.newshow", ConfirmNewNamespace: true}))
	f.reload(t)

	// A later invocation resumes the checkout; the earlier confirmation is
	// gone with its process.
	resumed, err := edit.Resume(ctx, f.mgr, "rebellion.newshow", "amazinghda")
	require.NoError(t, err)

	report, err := resumed.Validate(ctx)
	require.NoError(t, err)
	require.False(t, report.Pass())

	resumed.AllowNamespace("rebellion.newshow")
	report, err = resumed.Validate(ctx)
	require.NoError(t, err)
	require.True(t, report.Pass(), "failures: %v", report.Failures())
}
