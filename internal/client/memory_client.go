package client

import (
	"context"
	"time"

	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/store"
)

// MemoryClient is a lazy pointer to a memory path within one store
// (spec.md §4.6).
type MemoryClient struct {
	store    *StoreClient
	rawPath  string
	path     model.MemoryPath
	parseErr error
}

// Path returns the canonical "/"-prefixed path this client points at.
func (m *MemoryClient) Path() string { return m.rawPath }

// Get reads the memory, failing MEMORY_NOT_FOUND if absent or expired
// and includeExpired is false.
func (m *MemoryClient) Get(ctx context.Context, includeExpired bool) (*model.Memory, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return m.store.engine.GetMemory(ctx, m.path.String(), includeExpired, time.Now())
}

// Create writes a new memory at this path, failing
// MEMORY_ALREADY_EXISTS if one exists already.
func (m *MemoryClient) Create(ctx context.Context, in store.CreateMemoryInput) (*model.Memory, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return m.store.engine.CreateMemory(ctx, m.path.String(), in, time.Now())
}

// Update merges in onto the existing memory at this path.
func (m *MemoryClient) Update(ctx context.Context, in store.UpdateMemoryInput) (*model.Memory, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return m.store.engine.UpdateMemory(ctx, m.path.String(), in, time.Now())
}

// Move relocates this memory to rawTo, returning a MemoryClient bound
// to the new location.
func (m *MemoryClient) Move(ctx context.Context, rawTo string) (*MemoryClient, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	to := m.store.GetMemory(rawTo)
	if to.parseErr != nil {
		return nil, to.parseErr
	}
	if _, err := m.store.engine.MoveMemory(ctx, m.path.String(), to.path.String()); err != nil {
		return nil, err
	}
	return to, nil
}

// Remove deletes the memory at this path.
func (m *MemoryClient) Remove(ctx context.Context) error {
	if m.parseErr != nil {
		return m.parseErr
	}
	return m.store.engine.RemoveMemory(ctx, m.path.String())
}

// Exists reports whether a (possibly expired) memory exists at this
// path.
func (m *MemoryClient) Exists(ctx context.Context) (bool, error) {
	if m.parseErr != nil {
		return false, m.parseErr
	}
	mem, err := m.store.adapter.Memories().Read(ctx, m.path)
	if err != nil {
		return false, err
	}
	return mem != nil, nil
}
