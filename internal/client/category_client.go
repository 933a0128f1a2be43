package client

import (
	"context"
	"time"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/store"
)

// CategoryClient is a lazy pointer to a category path within one store.
// Navigation methods are synchronous and total; an invalid rawPath is
// only reported on the first async call (spec.md §4.6).
type CategoryClient struct {
	store    *StoreClient
	rawPath  string
	path     model.CategoryPath
	parseErr error
}

// Path returns the canonical "/"-prefixed path this client points at.
func (c *CategoryClient) Path() string { return c.rawPath }

// Parent returns a client for this category's parent; root's parent is
// root.
func (c *CategoryClient) Parent() *CategoryClient {
	if c.parseErr != nil {
		return c
	}
	parent := c.path.Parent()
	return &CategoryClient{store: c.store, rawPath: canonicalize(parent.String()), path: parent}
}

// GetCategory returns a lazy client for the subcategory at rawPath,
// relative addressing is not supported — rawPath is parsed as a full
// path from this store's root, matching GetCategory on StoreClient.
func (c *CategoryClient) GetCategory(rawPath string) *CategoryClient {
	return c.store.GetCategory(rawPath)
}

// GetMemory returns a lazy MemoryClient for rawPath.
func (c *CategoryClient) GetMemory(rawPath string) *MemoryClient {
	return c.store.GetMemory(rawPath)
}

// Create idempotently creates this category (spec.md §4.5 createCategory).
func (c *CategoryClient) Create(ctx context.Context) (store.CreateCategoryResult, error) {
	if c.parseErr != nil {
		return store.CreateCategoryResult{}, c.parseErr
	}
	return c.store.engine.CreateCategory(ctx, c.path.String())
}

// Delete recursively removes this category (spec.md §4.5 deleteCategory).
func (c *CategoryClient) Delete(ctx context.Context) error {
	if c.parseErr != nil {
		return c.parseErr
	}
	return c.store.engine.DeleteCategory(ctx, c.path.String())
}

// Exists reports whether this category exists.
func (c *CategoryClient) Exists(ctx context.Context) (bool, error) {
	if c.parseErr != nil {
		return false, c.parseErr
	}
	return c.store.adapter.Categories().Exists(ctx, c.path)
}

// SetDescription sets (or, given blank text, clears) this category's
// description (spec.md §4.5 setDescription).
func (c *CategoryClient) SetDescription(ctx context.Context, text string) error {
	if c.parseErr != nil {
		return c.parseErr
	}
	return c.store.engine.SetDescription(ctx, c.path.String(), text)
}

// ListMemories lists memories under this category (spec.md §4.5
// listMemories).
func (c *CategoryClient) ListMemories(ctx context.Context, opts store.ListOptions) ([]model.CategoryMemoryEntry, error) {
	if c.parseErr != nil {
		return nil, c.parseErr
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	return c.store.engine.ListMemories(ctx, c.path.String(), opts)
}

// ListSubcategories lists this category's direct subcategories from its
// own index entry.
func (c *CategoryClient) ListSubcategories(ctx context.Context) ([]model.SubcategoryEntry, error) {
	if c.parseErr != nil {
		return nil, c.parseErr
	}
	idx, err := c.store.adapter.Indexes().Load(ctx, c.path)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	return idx.Subcategories, nil
}

// Reindex recomputes every index under this category from ground truth
// (spec.md §4.5 reindex).
func (c *CategoryClient) Reindex(ctx context.Context) (adapter.ReindexResult, error) {
	if c.parseErr != nil {
		return adapter.ReindexResult{}, c.parseErr
	}
	return c.store.engine.Reindex(ctx, c.path)
}

// Prune removes expired memories under this category (spec.md §4.5
// pruneExpiredMemories).
func (c *CategoryClient) Prune(ctx context.Context, opts store.PruneOptions) ([]model.MemoryPath, error) {
	if c.parseErr != nil {
		return nil, c.parseErr
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	return c.store.engine.PruneExpiredMemories(ctx, c.path.String(), opts)
}

// GetRecent returns the most recently updated memories under this
// category (spec.md §4.5 getRecentMemories).
func (c *CategoryClient) GetRecent(ctx context.Context, opts store.RecentOptions) ([]store.RecentMemory, error) {
	if c.parseErr != nil {
		return nil, c.parseErr
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	return c.store.engine.GetRecentMemories(ctx, c.path.String(), opts)
}
