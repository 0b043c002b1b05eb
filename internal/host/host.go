// Package host abstracts the 3D application's node type installation API.
// The manager only ever installs and uninstalls definitions through this
// capability; it never embeds host UI logic.
package host

import (
	"context"
	"sync"

	"github.com/j0nc0x/hdamanager/internal/log"
	"github.com/j0nc0x/hdamanager/internal/nodetype"
)

// Host is the installation capability of the running 3D application.
// Install must be idempotent for an already-installed identical version;
// Uninstall of a non-installed version must be a no-op.
type Host interface {
	Install(ctx context.Context, path string, name nodetype.Name) error
	Uninstall(ctx context.Context, name nodetype.Name) error
}

// NullHost logs install/uninstall calls and does nothing else. Used when
// running outside a host session (plain CLI invocations).
type NullHost struct{}

var _ Host = NullHost{}

func (NullHost) Install(ctx context.Context, path string, name nodetype.Name) error {
	log.Debug(log.CatHost, "install (null host)", "name", name, "path", path)
	return nil
}

func (NullHost) Uninstall(ctx context.Context, name nodetype.Name) error {
	log.Debug(log.CatHost, "uninstall (null host)", "name", name)
	return nil
}

// MemHost records install state in memory. It backs tests and dry runs.
type MemHost struct {
	mu        sync.Mutex
	installed map[string]string // full name -> path
	calls     []string
}

var _ Host = (*MemHost)(nil)

// NewMemHost creates an empty in-memory host.
func NewMemHost() *MemHost {
	return &MemHost{installed: make(map[string]string)}
}

func (h *MemHost) Install(ctx context.Context, path string, name nodetype.Name) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.installed[name.String()] = path
	h.calls = append(h.calls, "install "+name.String())
	return nil
}

func (h *MemHost) Uninstall(ctx context.Context, name nodetype.Name) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.installed, name.String())
	h.calls = append(h.calls, "uninstall "+name.String())
	return nil
}

// InstalledPath returns the installed file path for a full node type name.
func (h *MemHost) InstalledPath(name nodetype.Name) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	path, ok := h.installed[name.String()]
	return path, ok
}

// Calls returns the ordered install/uninstall call log.
func (h *MemHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}
