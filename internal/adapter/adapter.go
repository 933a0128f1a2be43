// Package adapter defines the storage port the engine depends on: five
// capability interfaces bundled into a single StorageAdapter aggregate.
// The engine never touches persistence directly (spec.md §4.2); every
// concrete storage technology (filesystem + front matter, SQLite-backed
// index, …) implements this port.
package adapter

import (
	"context"

	"github.com/yeseh/cortex/internal/model"
)

// StoreData is the adapter-opaque persisted form of one store's settings,
// split from the Registry entry so adapters that store these separately
// (e.g. one table for registry membership, one for properties) can do so.
type StoreData struct {
	Definition model.StoreDefinition
}

// ReindexResult is the outcome of a scoped index rebuild.
type ReindexResult struct {
	CategoriesRebuilt int
	Warnings          []string
}

// ConfigCapability persists the registry and per-store settings.
type ConfigCapability interface {
	GetStore(ctx context.Context, name string) (*StoreData, error)
	SaveStore(ctx context.Context, name string, data StoreData) error
	RemoveStore(ctx context.Context, name string) error
	ListStores(ctx context.Context) ([]StoreData, error)
	Reload(ctx context.Context) error
}

// StoreCapability persists the self-contained metadata of the adapter's
// own scoped store (its StoreDefinition as written by initializeStore),
// independent of registry membership: a store directory stays
// self-describing even if its registry entry is rebuilt or copied
// elsewhere.
type StoreCapability interface {
	Load(ctx context.Context) (StoreData, error)
	Save(ctx context.Context, data StoreData) error
}

// CategoryCapability manages the category tree's existence, not its index.
type CategoryCapability interface {
	Exists(ctx context.Context, path model.CategoryPath) (bool, error)
	Ensure(ctx context.Context, path model.CategoryPath) error
	Delete(ctx context.Context, path model.CategoryPath) error
	SetDescription(ctx context.Context, path model.CategoryPath, text *string) error
	RemoveSubcategoryEntry(ctx context.Context, parent model.CategoryPath, child model.CategoryPath) error
}

// IndexCapability maintains the derived per-category index.
type IndexCapability interface {
	Load(ctx context.Context, path model.CategoryPath) (*model.CategoryIndex, error)
	Store(ctx context.Context, path model.CategoryPath, index model.CategoryIndex) error
	UpdateAfterMemoryWrite(ctx context.Context, mem model.Memory) error
	UpdateAfterMemoryRemove(ctx context.Context, path model.MemoryPath) error
	UpdateAfterMemoryMove(ctx context.Context, from, to model.MemoryPath) error
	Reindex(ctx context.Context, scope model.CategoryPath) (ReindexResult, error)
}

// MemoryCapability persists memory documents.
type MemoryCapability interface {
	Read(ctx context.Context, path model.MemoryPath) (*model.Memory, error)
	Write(ctx context.Context, mem model.Memory) error
	Remove(ctx context.Context, path model.MemoryPath) error
	Move(ctx context.Context, from, to model.MemoryPath) error
	ListPathsUnder(ctx context.Context, scope model.CategoryPath) ([]model.MemoryPath, error)
}

// StorageAdapter is the composite port the engine depends on.
type StorageAdapter interface {
	Config() ConfigCapability
	Stores() StoreCapability
	Categories() CategoryCapability
	Indexes() IndexCapability
	Memories() MemoryCapability
}
