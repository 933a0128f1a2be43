package index

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

// fakeBackend is an in-memory adapter.IndexCapability that records
// concurrent access to each category so tests can assert serialization.
type fakeBackend struct {
	mu        sync.Mutex
	inFlight  map[string]int
	maxSeen   map[string]int
	indexes   map[string]model.CategoryIndex
	writeDelay time.Duration
	total     int // backend calls in flight across all categories
	maxTotal  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		inFlight: make(map[string]int),
		maxSeen:  make(map[string]int),
		indexes:  make(map[string]model.CategoryIndex),
	}
}

func (f *fakeBackend) enter(key string) {
	f.mu.Lock()
	f.inFlight[key]++
	if f.inFlight[key] > f.maxSeen[key] {
		f.maxSeen[key] = f.inFlight[key]
	}
	f.total++
	if f.total > f.maxTotal {
		f.maxTotal = f.total
	}
	f.mu.Unlock()
}

func (f *fakeBackend) leave(key string) {
	f.mu.Lock()
	f.inFlight[key]--
	f.total--
	f.mu.Unlock()
}

func (f *fakeBackend) Load(ctx context.Context, path model.CategoryPath) (*model.CategoryIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indexes[path.String()]
	if !ok {
		return nil, nil
	}
	return &idx, nil
}

func (f *fakeBackend) Store(ctx context.Context, path model.CategoryPath, index model.CategoryIndex) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[path.String()] = index
	return nil
}

func (f *fakeBackend) UpdateAfterMemoryWrite(ctx context.Context, mem model.Memory) error {
	key := mem.Path.Category().String()
	f.enter(key)
	defer f.leave(key)
	time.Sleep(f.writeDelay)

	f.mu.Lock()
	idx := f.indexes[key]
	idx.Path = mem.Path.Category()
	idx.Memories = append(idx.Memories, model.CategoryMemoryEntry{Path: mem.Path})
	f.indexes[key] = idx
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) UpdateAfterMemoryRemove(ctx context.Context, path model.MemoryPath) error {
	return nil
}

func (f *fakeBackend) UpdateAfterMemoryMove(ctx context.Context, from, to model.MemoryPath) error {
	return nil
}

func (f *fakeBackend) Reindex(ctx context.Context, scope model.CategoryPath) (adapter.ReindexResult, error) {
	key := scope.String()
	f.enter(key)
	defer f.leave(key)
	time.Sleep(f.writeDelay)
	return adapter.ReindexResult{CategoriesRebuilt: 1}, nil
}

func mustMemoryPath(t *testing.T, s string) model.MemoryPath {
	t.Helper()
	mp, err := model.ParseMemoryPath(s)
	require.NoError(t, err)
	return mp
}

func mustCategoryPath(t *testing.T, s string) model.CategoryPath {
	t.Helper()
	cp, err := model.ParseCategoryPath(s)
	require.NoError(t, err)
	return cp
}

func TestUpdateAfterMemoryWrite_SerializesSameCategory(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := newFakeBackend()
	backend.writeDelay = 10 * time.Millisecond
	mgr := New(backend)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			mem := model.Memory{Path: mustMemoryPath(t, "bulk/item-" + strconv.Itoa(i))}
			require.NoError(t, mgr.UpdateAfterMemoryWrite(context.Background(), mem))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, backend.maxSeen["bulk"], "writes to the same category must never overlap")

	idx, err := mgr.Load(context.Background(), mustCategoryPath(t, "bulk"))
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Len(t, idx.Memories, 20)
}

func TestUpdateAfterMemoryWrite_DifferentCategoriesConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := newFakeBackend()
	backend.writeDelay = 20 * time.Millisecond
	mgr := New(backend)

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			mem := model.Memory{Path: mustMemoryPath(t, "cat-"+strconv.Itoa(i)+"/item")}
			_ = mgr.UpdateAfterMemoryWrite(context.Background(), mem)
		}()
	}
	wg.Wait()

	assert.Greater(t, backend.maxTotal, 1, "distinct categories should be able to update concurrently")
}

func TestAcquire_TimesOutAndReportsIndexUpdateFailed(t *testing.T) {
	defer goleak.VerifyNone(t)

	locks := newCategoryLocks()
	release, err := locks.acquire(context.Background(), "held", time.Second)
	require.NoError(t, err)
	defer release()

	_, err = locks.acquire(context.Background(), "held", 30*time.Millisecond)
	require.Error(t, err)
	assert.True(t, cortexerr.Is(err, cortexerr.IndexUpdateFailed))
}
