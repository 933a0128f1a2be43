// Package store implements the domain operations that sit between the
// fluent client surface and the storage adapter: createMemory,
// getMemory, updateMemory, moveMemory, removeMemory, listMemories,
// pruneExpiredMemories, getRecentMemories, createCategory,
// setDescription, deleteCategory, initializeStore, and reindex
// (spec.md §4.5). Every operation follows the same spine: parse path,
// resolve effective policy, run validators, run transformers, invoke
// the adapter, update indexes.
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/index"
	"github.com/yeseh/cortex/internal/logging"
	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/policy"
)

// Engine is the domain operations surface for one named store, bound to
// a StorageAdapter instance scoped to that store (spec.md §3: "the
// adapter is shared across clients of the same store").
type Engine struct {
	Name    string
	adapter adapter.StorageAdapter
	index   *index.Manager
	log     *zap.Logger
}

// New builds an Engine over a, an adapter already scoped to the store
// named name.
func New(name string, a adapter.StorageAdapter) *Engine {
	return &Engine{
		Name:    name,
		adapter: a,
		index:   index.New(a.Indexes()),
		log:     logging.Get(logging.CategoryStore),
	}
}

// definition loads the store's own persisted metadata, used by policy
// resolution and mode enforcement on every operation. Domain operations
// are stateless between calls; definition is re-read each time rather
// than cached, since the adapter may be shared by multiple Engines.
func (e *Engine) definition(ctx context.Context) (model.StoreDefinition, error) {
	data, err := e.adapter.Stores().Load(ctx)
	if err != nil {
		return model.StoreDefinition{}, err
	}
	return data.Definition, nil
}

// InitializeStore validates name, refuses duplicates in the registry,
// persists the store's own metadata, and ensures every declared initial
// category exists (spec.md §4.5 initializeStore).
func InitializeStore(ctx context.Context, registry adapter.ConfigCapability, store adapter.StorageAdapter, name string, def model.StoreDefinition) (*Engine, error) {
	slug, err := model.NewSlug(name)
	if err != nil {
		return nil, err
	}
	def.Name = slug

	existing, err := registry.GetStore(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, cortexerr.Newf(cortexerr.StoreAlreadyExists, "store %q already exists", name).WithStore(name)
	}

	if err := store.Stores().Save(ctx, adapter.StoreData{Definition: def}); err != nil {
		return nil, err
	}
	if err := registry.SaveStore(ctx, name, adapter.StoreData{Definition: def}); err != nil {
		return nil, err
	}

	engine := New(name, store)
	for _, path := range policy.DeclaredCategoryPaths(def) {
		if err := store.Categories().Ensure(ctx, path); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// Reindex recomputes every index under scope from the ground truth
// (spec.md §4.3, §4.5 reindex).
func (e *Engine) Reindex(ctx context.Context, scope model.CategoryPath) (adapter.ReindexResult, error) {
	return e.index.Reindex(ctx, scope)
}
