package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/model"
)

// fakeAdapter is a minimal in-memory adapter.StorageAdapter used to
// exercise the domain operations without touching a filesystem.
type fakeAdapter struct {
	mu sync.Mutex

	registry map[string]adapter.StoreData
	store    adapter.StoreData
	storeSet bool

	categories map[string]bool
	indexes    map[string]model.CategoryIndex
	memories   map[string]model.Memory
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		registry:   make(map[string]adapter.StoreData),
		categories: map[string]bool{"": true},
		indexes:    make(map[string]model.CategoryIndex),
		memories:   make(map[string]model.Memory),
	}
}

func (f *fakeAdapter) Config() adapter.ConfigCapability       { return (*fakeConfig)(f) }
func (f *fakeAdapter) Stores() adapter.StoreCapability        { return (*fakeStore)(f) }
func (f *fakeAdapter) Categories() adapter.CategoryCapability { return (*fakeCategories)(f) }
func (f *fakeAdapter) Indexes() adapter.IndexCapability       { return (*fakeIndexes)(f) }
func (f *fakeAdapter) Memories() adapter.MemoryCapability     { return (*fakeMemories)(f) }

type fakeConfig fakeAdapter

func (c *fakeConfig) GetStore(ctx context.Context, name string) (*adapter.StoreData, error) {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.registry[name]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (c *fakeConfig) SaveStore(ctx context.Context, name string, data adapter.StoreData) error {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[name] = data
	return nil
}

func (c *fakeConfig) ListStores(ctx context.Context) ([]adapter.StoreData, error) {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]adapter.StoreData, 0, len(f.registry))
	for _, d := range f.registry {
		out = append(out, d)
	}
	return out, nil
}

func (c *fakeConfig) RemoveStore(ctx context.Context, name string) error {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, name)
	return nil
}

func (c *fakeConfig) Reload(ctx context.Context) error { return nil }

type fakeStore fakeAdapter

func (s *fakeStore) Load(ctx context.Context) (adapter.StoreData, error) {
	f := (*fakeAdapter)(s)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store, nil
}

func (s *fakeStore) Save(ctx context.Context, data adapter.StoreData) error {
	f := (*fakeAdapter)(s)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = data
	f.storeSet = true
	return nil
}

type fakeCategories fakeAdapter

func (c *fakeCategories) Exists(ctx context.Context, path model.CategoryPath) (bool, error) {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories[path.String()], nil
}

func (c *fakeCategories) Ensure(ctx context.Context, path model.CategoryPath) error {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := path; ; p = p.Parent() {
		f.categories[p.String()] = true
		if p.IsRoot() {
			break
		}
	}
	return nil
}

func (c *fakeCategories) Delete(ctx context.Context, path model.CategoryPath) error {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := path.String()
	for k := range f.categories {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			delete(f.categories, k)
		}
	}
	for k := range f.memories {
		if strings.HasPrefix(k, prefix+"/") || (prefix != "" && k == prefix) {
			delete(f.memories, k)
		}
	}
	for k := range f.indexes {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			delete(f.indexes, k)
		}
	}
	return nil
}

func (c *fakeCategories) SetDescription(ctx context.Context, path model.CategoryPath, text *string) error {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	if path.IsRoot() {
		idx := f.indexes[path.String()]
		idx.Path = path
		idx.RootDescription = text
		f.indexes[path.String()] = idx
		return nil
	}
	parentKey := path.Parent().String()
	idx := f.indexes[parentKey]
	idx.Path = path.Parent()
	found := false
	for i := range idx.Subcategories {
		if idx.Subcategories[i].Path.Equal(path) {
			idx.Subcategories[i].Description = text
			found = true
		}
	}
	if !found {
		idx.Subcategories = append(idx.Subcategories, model.SubcategoryEntry{Path: path, Description: text})
	}
	f.indexes[parentKey] = idx
	return nil
}

func (c *fakeCategories) RemoveSubcategoryEntry(ctx context.Context, parent, child model.CategoryPath) error {
	f := (*fakeAdapter)(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexes[parent.String()]
	kept := idx.Subcategories[:0]
	for _, e := range idx.Subcategories {
		if !e.Path.Equal(child) {
			kept = append(kept, e)
		}
	}
	idx.Subcategories = kept
	f.indexes[parent.String()] = idx
	return nil
}

type fakeIndexes fakeAdapter

func (ix *fakeIndexes) Load(ctx context.Context, path model.CategoryPath) (*model.CategoryIndex, error) {
	f := (*fakeAdapter)(ix)
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indexes[path.String()]
	if !ok {
		return nil, nil
	}
	return &idx, nil
}

func (ix *fakeIndexes) Store(ctx context.Context, path model.CategoryPath, index model.CategoryIndex) error {
	f := (*fakeAdapter)(ix)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[path.String()] = index
	return nil
}

func (ix *fakeIndexes) UpdateAfterMemoryWrite(ctx context.Context, mem model.Memory) error {
	f := (*fakeAdapter)(ix)
	f.mu.Lock()
	defer f.mu.Unlock()

	cat := mem.Path.Category()
	idx := f.indexes[cat.String()]
	idx.Path = cat
	entry := model.CategoryMemoryEntry{
		Path: mem.Path, TokenEstimate: model.EstimateTokens(mem.Content),
		Summary: mem.Metadata.Summary, UpdatedAt: &mem.Metadata.UpdatedAt, ExpiresAt: mem.Metadata.ExpiresAt,
	}
	replaced := false
	for i := range idx.Memories {
		if idx.Memories[i].Path.Equal(mem.Path) {
			idx.Memories[i] = entry
			replaced = true
		}
	}
	if !replaced {
		idx.Memories = append(idx.Memories, entry)
	}
	f.indexes[cat.String()] = idx

	if !replaced && !cat.IsRoot() {
		parent := cat.Parent()
		pidx := f.indexes[parent.String()]
		pidx.Path = parent
		found := false
		for i := range pidx.Subcategories {
			if pidx.Subcategories[i].Path.Equal(cat) {
				pidx.Subcategories[i].MemoryCount++
				found = true
			}
		}
		if !found {
			pidx.Subcategories = append(pidx.Subcategories, model.SubcategoryEntry{Path: cat, MemoryCount: 1})
		}
		f.indexes[parent.String()] = pidx
	}
	return nil
}

func (ix *fakeIndexes) UpdateAfterMemoryRemove(ctx context.Context, path model.MemoryPath) error {
	f := (*fakeAdapter)(ix)
	f.mu.Lock()
	defer f.mu.Unlock()

	cat := path.Category()
	idx := f.indexes[cat.String()]
	kept := idx.Memories[:0]
	for _, e := range idx.Memories {
		if !e.Path.Equal(path) {
			kept = append(kept, e)
		}
	}
	idx.Memories = kept
	f.indexes[cat.String()] = idx
	return nil
}

func (ix *fakeIndexes) UpdateAfterMemoryMove(ctx context.Context, from, to model.MemoryPath) error {
	if err := ix.UpdateAfterMemoryRemove(ctx, from); err != nil {
		return err
	}
	f := (*fakeAdapter)(ix)
	f.mu.Lock()
	mem, ok := f.memories[to.String()]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	return ix.UpdateAfterMemoryWrite(ctx, mem)
}

func (ix *fakeIndexes) Reindex(ctx context.Context, scope model.CategoryPath) (adapter.ReindexResult, error) {
	f := (*fakeAdapter)(ix)
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := scope.String()
	byCategory := make(map[string][]model.CategoryMemoryEntry)
	for k, mem := range f.memories {
		if prefix != "" && !strings.HasPrefix(k, prefix+"/") && k != prefix {
			continue
		}
		cat := mem.Path.Category().String()
		byCategory[cat] = append(byCategory[cat], model.CategoryMemoryEntry{
			Path: mem.Path, TokenEstimate: model.EstimateTokens(mem.Content), UpdatedAt: &mem.Metadata.UpdatedAt,
		})
	}

	rebuilt := 0
	for cat, entries := range byCategory {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path.String() < entries[j].Path.String() })
		idx := f.indexes[cat]
		p, _ := model.ParseCategoryPath(cat)
		idx.Path = p
		idx.Memories = entries
		f.indexes[cat] = idx
		rebuilt++
	}
	return adapter.ReindexResult{CategoriesRebuilt: rebuilt}, nil
}

type fakeMemories fakeAdapter

func (m *fakeMemories) Read(ctx context.Context, path model.MemoryPath) (*model.Memory, error) {
	f := (*fakeAdapter)(m)
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.memories[path.String()]
	if !ok {
		return nil, nil
	}
	return &mem, nil
}

func (m *fakeMemories) Write(ctx context.Context, mem model.Memory) error {
	f := (*fakeAdapter)(m)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memories[mem.Path.String()] = mem
	return nil
}

func (m *fakeMemories) Remove(ctx context.Context, path model.MemoryPath) error {
	f := (*fakeAdapter)(m)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.memories, path.String())
	return nil
}

func (m *fakeMemories) Move(ctx context.Context, from, to model.MemoryPath) error {
	f := (*fakeAdapter)(m)
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.memories[from.String()]
	if !ok {
		return nil
	}
	delete(f.memories, from.String())
	mem.Path = to
	f.memories[to.String()] = mem
	return nil
}

func (m *fakeMemories) ListPathsUnder(ctx context.Context, scope model.CategoryPath) ([]model.MemoryPath, error) {
	f := (*fakeAdapter)(m)
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := scope.String()
	var out []model.MemoryPath
	for k, mem := range f.memories {
		if prefix == "" || k == prefix || strings.HasPrefix(k, prefix+"/") {
			out = append(out, mem.Path)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

var _ adapter.StorageAdapter = (*fakeAdapter)(nil)
