package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/adapter/fsadapter"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/store"
)

func newTestCortex(t *testing.T) *Cortex {
	t.Helper()
	dataPath := t.TempDir()
	registry, err := fsadapter.NewRegistry(dataPath)
	require.NoError(t, err)

	factory := func(ctx context.Context, name string) (adapter.StorageAdapter, error) {
		return fsadapter.NewForStore(dataPath, name)
	}
	return New(dataPath, registry.Config(), factory)
}

func TestCortex_AddStoreThenGetStoreRoundTrips(t *testing.T) {
	ctx := context.Background()
	c := newTestCortex(t)

	_, err := c.AddStore(ctx, "notebook", model.StoreDefinition{})
	require.NoError(t, err)

	sc, err := c.GetStore(ctx, "notebook")
	require.NoError(t, err)
	assert.Equal(t, "notebook", sc.Name())

	defs, err := c.GetStoreDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "notebook", defs[0].Name.String())
}

func TestCortex_GetStore_MissingFailsStoreNotFound(t *testing.T) {
	ctx := context.Background()
	c := newTestCortex(t)

	_, err := c.GetStore(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, cortexerr.Is(err, cortexerr.StoreNotFound))
}

func TestCortex_AddStore_DuplicateFails(t *testing.T) {
	ctx := context.Background()
	c := newTestCortex(t)

	_, err := c.AddStore(ctx, "notebook", model.StoreDefinition{})
	require.NoError(t, err)

	_, err = c.AddStore(ctx, "notebook", model.StoreDefinition{})
	require.Error(t, err)
	assert.True(t, cortexerr.Is(err, cortexerr.StoreAlreadyExists))
}

func TestMemoryClient_CreateGetUpdateMoveRemove(t *testing.T) {
	ctx := context.Background()
	c := newTestCortex(t)
	sc, err := c.AddStore(ctx, "notebook", model.StoreDefinition{})
	require.NoError(t, err)

	mc := sc.GetMemory("notes/alpha")
	_, err = mc.Create(ctx, store.CreateMemoryInput{Content: "hello"})
	require.NoError(t, err)

	exists, err := mc.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := mc.Get(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	newContent := "world"
	_, err = mc.Update(ctx, store.UpdateMemoryInput{Content: &newContent})
	require.NoError(t, err)

	moved, err := mc.Move(ctx, "notes/beta")
	require.NoError(t, err)
	assert.Equal(t, "/notes/beta", moved.Path())

	require.NoError(t, moved.Remove(ctx))
	exists, err = moved.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCategoryClient_LazyValidation_FailsOnInvalidPath(t *testing.T) {
	ctx := context.Background()
	c := newTestCortex(t)
	sc, err := c.AddStore(ctx, "notebook", model.StoreDefinition{})
	require.NoError(t, err)

	cat := sc.GetCategory("Not A Valid Slug!!")
	assert.Equal(t, "/Not A Valid Slug!!", cat.Path(), "navigation must not fail synchronously")

	_, err = cat.Create(ctx)
	require.Error(t, err)
	assert.True(t, cortexerr.Is(err, cortexerr.InvalidPath))

	_, err = cat.Exists(ctx)
	require.Error(t, err)
	assert.True(t, cortexerr.Is(err, cortexerr.InvalidPath))
}

func TestCategoryClient_CreateListAndReindex(t *testing.T) {
	ctx := context.Background()
	c := newTestCortex(t)
	sc, err := c.AddStore(ctx, "notebook", model.StoreDefinition{})
	require.NoError(t, err)

	root := sc.Root()
	projects := root.GetCategory("projects")
	result, err := projects.Create(ctx)
	require.NoError(t, err)
	assert.True(t, result.Created)

	require.NoError(t, projects.SetDescription(ctx, "project notes"))

	mc := sc.GetMemory("projects/alpha")
	_, err = mc.Create(ctx, store.CreateMemoryInput{Content: "x"})
	require.NoError(t, err)

	entries, err := projects.ListMemories(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	subs, err := root.ListSubcategories(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].Description)
	assert.Equal(t, "project notes", *subs[0].Description)

	reindexResult, err := root.Reindex(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, reindexResult.CategoriesRebuilt, 1)
}
