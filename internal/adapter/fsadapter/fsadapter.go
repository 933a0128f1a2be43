// Package fsadapter implements the cortex storage port on top of a plain
// directory tree: one subdirectory per store, nested directories mirroring
// category paths, one "<leaf>.md" file per memory (YAML front matter plus
// body), and one "_index.yaml" file per category directory holding its
// derived CategoryIndex. Writes are atomic via temp-file-then-rename,
// following the teacher's LocalStore constructor/logging conventions
// (theRebelliousNerd-codenerd/internal/store/local_core.go) adapted from
// SQLite tables to files.
//
// One FSAdapter instance is scoped to a single store (spec.md §3: "the
// adapter is shared across clients of the same store"); the registry's
// config.yaml lives at the shared data path and is reachable through the
// Config capability of any instance. The Stores capability, like
// Categories/Indexes/Memories, acts on the instance's own store.
package fsadapter

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/logging"
)

// FSAdapter is the filesystem-backed StorageAdapter.
type FSAdapter struct {
	dataPath string // shared root: holds config.yaml and stores/
	store    string // store this instance's category/index/memory ops are scoped to; "" for a registry-only instance

	mu sync.RWMutex // guards reads and writes of the registry's config.yaml

	config     *configCapability
	stores     *storeCapability
	categories *categoryCapability
	indexes    *indexCapability
	memories   *memoryCapability
}

// NewRegistry creates an FSAdapter scoped only to the shared registry
// config (the Config capability); Stores/Categories/Indexes/Memories
// calls on it fail since it addresses no particular store.
func NewRegistry(dataPath string) (*FSAdapter, error) {
	return newAdapter(dataPath, "")
}

// NewForStore creates an FSAdapter scoped to a single store's category
// tree, rooted at dataPath/stores/<store>.
func NewForStore(dataPath, store string) (*FSAdapter, error) {
	if store == "" {
		return nil, cortexerr.New(cortexerr.InvalidStoreName, "store name must not be empty")
	}
	a, err := newAdapter(dataPath, store)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(a.storeRootUnsafe(), 0o755); err != nil {
		return nil, err
	}
	return a, nil
}

func newAdapter(dataPath, store string) (*FSAdapter, error) {
	logging.Get(logging.CategoryAdapter).Debug("initializing filesystem adapter")

	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dataPath, "stores"), 0o755); err != nil {
		return nil, err
	}

	a := &FSAdapter{dataPath: dataPath, store: store}
	a.config = &configCapability{a: a}
	a.stores = &storeCapability{a: a}
	a.categories = &categoryCapability{a: a}
	a.indexes = &indexCapability{a: a}
	a.memories = &memoryCapability{a: a}
	return a, nil
}

func (a *FSAdapter) Config() adapter.ConfigCapability       { return a.config }
func (a *FSAdapter) Stores() adapter.StoreCapability        { return a.stores }
func (a *FSAdapter) Categories() adapter.CategoryCapability { return a.categories }
func (a *FSAdapter) Indexes() adapter.IndexCapability       { return a.indexes }
func (a *FSAdapter) Memories() adapter.MemoryCapability     { return a.memories }

// storeRoot returns the directory holding this instance's store's
// category tree, failing if the instance is registry-only.
func (a *FSAdapter) storeRoot() (string, error) {
	if a.store == "" {
		return "", cortexerr.New(cortexerr.StoreNotInitialized, "adapter is not scoped to a store").
			WithRemediation("construct the adapter with fsadapter.NewForStore for category/index/memory operations")
	}
	return a.storeRootUnsafe(), nil
}

func (a *FSAdapter) storeRootUnsafe() string {
	return filepath.Join(a.dataPath, "stores", a.store)
}

// storeDirFor returns the directory for an arbitrary store name.
func (a *FSAdapter) storeDirFor(name string) string {
	return filepath.Join(a.dataPath, "stores", name)
}

// configPath returns the path of the shared registry document.
func (a *FSAdapter) configPath() string {
	return filepath.Join(a.dataPath, "config.yaml")
}

// categoryDir returns the directory for a category path within this
// instance's store.
func (a *FSAdapter) categoryDir(segments []string) (string, error) {
	root, err := a.storeRoot()
	if err != nil {
		return "", err
	}
	parts := append([]string{root}, segments...)
	return filepath.Join(parts...), nil
}

var _ adapter.StorageAdapter = (*FSAdapter)(nil)
