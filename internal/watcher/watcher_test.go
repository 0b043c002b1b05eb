package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0nc0x/hdamanager/internal/watcher"
)

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	hdaPath := filepath.Join(dir, "Lop_rebellion.pipeline_amazinghda.1700000000.hda")
	err := os.WriteFile(hdaPath, []byte("test"), 0644)
	require.NoError(t, err, "failed to create test file")

	w, err := watcher.New(watcher.Config{
		EditDir:     dir,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		err := os.WriteFile(hdaPath, []byte(fmt.Sprintf("test%d", i)), 0644)
		require.NoError(t, err, "failed to write file")
		time.Sleep(10 * time.Millisecond)
	}

	// Should receive exactly one notification
	select {
	case <-onChange:
		// Expected
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	// No second notification should come quickly
	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
		// Expected - no second notification
	}
}

func TestWatcher_IgnoresNonDefinitionFiles(t *testing.T) {
	dir := t.TempDir()
	otherPath := filepath.Join(dir, "notes.txt")
	// Pre-create the other file so writes to it are just Write events
	err := os.WriteFile(otherPath, []byte("initial"), 0644)
	require.NoError(t, err, "failed to create other file")

	w, err := watcher.New(watcher.Config{
		EditDir:     dir,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	err = os.WriteFile(otherPath, []byte("other content"), 0644)
	require.NoError(t, err, "failed to write other file")

	select {
	case <-onChange:
		t.Fatal("should not notify for non-definition files")
	case <-time.After(100 * time.Millisecond):
		// Expected - no notification
	}
}

func TestWatcher_NotifiesOnNewCheckout(t *testing.T) {
	dir := t.TempDir()

	w, err := watcher.New(watcher.Config{
		EditDir:     dir,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	// A fresh checkout creates a new definition file
	err = os.WriteFile(filepath.Join(dir, "Sop_rebellion.pipeline_scatter.1700000001.hda"), []byte("new"), 0644)
	require.NoError(t, err, "failed to write definition file")

	select {
	case <-onChange:
		// Expected
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification for new definition file")
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()

	w, err := watcher.New(watcher.Config{
		EditDir:     dir,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")

	_, err = w.Start()
	require.NoError(t, err, "failed to start watcher")

	// Stop should not hang or panic
	done := make(chan struct{})
	go func() {
		err := w.Stop()
		assert.NoError(t, err, "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
		// Expected - stop completed successfully
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestDefaultConfig(t *testing.T) {
	editDir := "/test/edit"
	cfg := watcher.DefaultConfig(editDir)

	assert.Equal(t, editDir, cfg.EditDir)
	assert.Equal(t, 1*time.Second, cfg.DebounceDur)
}
