package sqlindex

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yeseh/cortex/internal/model"
)

// fakeMemories is a minimal in-memory adapter.MemoryCapability used only
// to supply Reindex/UpdateAfterMemoryMove ground truth in these tests.
type fakeMemories struct {
	mu   sync.Mutex
	docs map[string]model.Memory
}

func newFakeMemories() *fakeMemories { return &fakeMemories{docs: make(map[string]model.Memory)} }

func (f *fakeMemories) Read(ctx context.Context, path model.MemoryPath) (*model.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[path.String()]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeMemories) Write(ctx context.Context, mem model.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[mem.Path.String()] = mem
	return nil
}

func (f *fakeMemories) Remove(ctx context.Context, path model.MemoryPath) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, path.String())
	return nil
}

func (f *fakeMemories) Move(ctx context.Context, from, to model.MemoryPath) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[from.String()]
	if !ok {
		return nil
	}
	delete(f.docs, from.String())
	m.Path = to
	f.docs[to.String()] = m
	return nil
}

func (f *fakeMemories) ListPathsUnder(ctx context.Context, scope model.CategoryPath) ([]model.MemoryPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MemoryPath
	prefix := scope.String()
	for k, m := range f.docs {
		if prefix == "" || k == prefix || len(k) > len(prefix) && k[:len(prefix)+1] == prefix+"/" {
			out = append(out, m.Path)
		}
	}
	return out, nil
}

func openTestIndex(t *testing.T, memories *fakeMemories) *Index {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	ix, err := Open(dsn, memories)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func mustMemPath(t *testing.T, s string) model.MemoryPath {
	t.Helper()
	p, err := model.ParseMemoryPath(s)
	require.NoError(t, err)
	return p
}

func mustCatPath(t *testing.T, s string) model.CategoryPath {
	t.Helper()
	p, err := model.ParseCategoryPath(s)
	require.NoError(t, err)
	return p
}

func TestUpdateAfterMemoryWrite_CreatesCategoryAndBumpsAncestors(t *testing.T) {
	mems := newFakeMemories()
	ix := openTestIndex(t, mems)
	ctx := context.Background()

	mem := model.Memory{Path: mustMemPath(t, "projects/alpha/note"), Content: "hello",
		Metadata: model.MemoryMetadata{UpdatedAt: time.Now()}}
	require.NoError(t, mems.Write(ctx, mem))
	require.NoError(t, ix.UpdateAfterMemoryWrite(ctx, mem))

	idx, err := ix.Load(ctx, mustCatPath(t, "projects/alpha"))
	require.NoError(t, err)
	require.NotNil(t, idx)
	require.Len(t, idx.Memories, 1)

	root, err := ix.Load(ctx, model.RootCategory())
	require.NoError(t, err)
	require.NotNil(t, root)
	entry, ok := root.FindSubcategory(mustCatPath(t, "projects"))
	require.True(t, ok)
	require.Equal(t, 1, entry.MemoryCount)
}

func TestUpdateAfterMemoryRemove_PrunesEmptyAncestorChain(t *testing.T) {
	mems := newFakeMemories()
	ix := openTestIndex(t, mems)
	ctx := context.Background()

	mem := model.Memory{Path: mustMemPath(t, "a/b/c/note"), Content: "x",
		Metadata: model.MemoryMetadata{UpdatedAt: time.Now()}}
	require.NoError(t, mems.Write(ctx, mem))
	require.NoError(t, ix.UpdateAfterMemoryWrite(ctx, mem))

	require.NoError(t, mems.Remove(ctx, mem.Path))
	require.NoError(t, ix.UpdateAfterMemoryRemove(ctx, mem.Path))

	root, err := ix.Load(ctx, model.RootCategory())
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Empty(t, root.Subcategories, "the whole now-empty a/b/c chain must unlink from root")

	leaf, err := ix.Load(ctx, mustCatPath(t, "a/b/c"))
	require.NoError(t, err)
	require.Nil(t, leaf, "emptied leaf category node must be removed")
}

func TestReindex_RebuildsFromGroundTruthAndPreservesDescriptions(t *testing.T) {
	mems := newFakeMemories()
	ix := openTestIndex(t, mems)
	ctx := context.Background()

	mem := model.Memory{Path: mustMemPath(t, "notes/alpha"), Content: "x",
		Metadata: model.MemoryMetadata{UpdatedAt: time.Now()}}
	require.NoError(t, mems.Write(ctx, mem))
	require.NoError(t, ix.UpdateAfterMemoryWrite(ctx, mem))

	desc := "my notes"
	root, err := ix.Load(ctx, model.RootCategory())
	require.NoError(t, err)
	for i := range root.Subcategories {
		root.Subcategories[i].Description = &desc
	}
	require.NoError(t, ix.Store(ctx, model.RootCategory(), *root))

	result, err := ix.Reindex(ctx, model.RootCategory())
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.CategoriesRebuilt, 1)

	root, err = ix.Load(ctx, model.RootCategory())
	require.NoError(t, err)
	entry, ok := root.FindSubcategory(mustCatPath(t, "notes"))
	require.True(t, ok)
	require.NotNil(t, entry.Description)
	require.Equal(t, desc, *entry.Description)
	require.Equal(t, 1, entry.MemoryCount)
}

func TestUpdateAfterMemoryMove_CrossCategory(t *testing.T) {
	mems := newFakeMemories()
	ix := openTestIndex(t, mems)
	ctx := context.Background()

	mem := model.Memory{Path: mustMemPath(t, "notes/alpha"), Content: "x",
		Metadata: model.MemoryMetadata{UpdatedAt: time.Now()}}
	require.NoError(t, mems.Write(ctx, mem))
	require.NoError(t, ix.UpdateAfterMemoryWrite(ctx, mem))

	to := mustMemPath(t, "archive/alpha")
	require.NoError(t, mems.Move(ctx, mem.Path, to))
	require.NoError(t, ix.UpdateAfterMemoryMove(ctx, mem.Path, to))

	oldCat, err := ix.Load(ctx, mustCatPath(t, "notes"))
	require.NoError(t, err)
	require.Nil(t, oldCat)

	newCat, err := ix.Load(ctx, mustCatPath(t, "archive"))
	require.NoError(t, err)
	require.NotNil(t, newCat)
	require.Len(t, newCat.Memories, 1)
}
