// Package client implements the fluent front-end surface over the
// domain engine: Cortex owns the store registry, StoreClient wraps one
// named store's Engine, and CategoryClient/MemoryClient are lazy
// pointers into that store's category and memory trees (spec.md §4.6).
//
// Navigation (GetCategory, GetMemory, Parent) is synchronous and total:
// an invalid path never blocks navigation, it only fails the first
// async call made against it with INVALID_PATH. This matches the lazy
// navigation option the spec leaves open (spec.md "Open Questions":
// "(b) having navigation produce a total CategoryClient whose next
// async call fails with INVALID_PATH").
package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/logging"
	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/store"
)

// AdapterFactory builds (or looks up) the StorageAdapter instance scoped
// to one named store. Cortex calls it on every GetStore/AddStore and
// keeps no cache, so clients share an adapter instance only if the
// factory itself returns the same one; fsadapter.NewForStore returns a
// new instance each call. Each returned StoreClient also gets its own
// store.Engine.
type AdapterFactory func(ctx context.Context, storeName string) (adapter.StorageAdapter, error)

// Cortex owns the store registry and hands out StoreClients.
type Cortex struct {
	dataPath string
	registry adapter.ConfigCapability
	factory  AdapterFactory
	log      *zap.Logger
}

// New builds a Cortex over registry (the shared registry capability)
// and factory (how to obtain a store's own scoped adapter instance).
func New(dataPath string, registry adapter.ConfigCapability, factory AdapterFactory) *Cortex {
	return &Cortex{dataPath: dataPath, registry: registry, factory: factory, log: logging.Get(logging.CategoryClient)}
}

// Initialize calls the registry's Reload and returns its error. It
// writes no config file itself; with fsadapter, Reload does nothing and
// config.yaml is first created when a store is saved.
func (c *Cortex) Initialize(ctx context.Context) error {
	return c.registry.Reload(ctx)
}

// GetStore looks up name in the registry and returns a StoreClient bound
// to its adapter, or STORE_NOT_FOUND.
func (c *Cortex) GetStore(ctx context.Context, name string) (*StoreClient, error) {
	data, err := c.registry.GetStore(ctx, name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, cortexerr.Newf(cortexerr.StoreNotFound, "store %q is not registered", name).WithStore(name)
	}

	a, err := c.factory(ctx, name)
	if err != nil {
		return nil, err
	}
	return &StoreClient{name: name, registry: c.registry, adapter: a, engine: store.New(name, a)}, nil
}

// AddStore registers a new store named name with definition def and
// returns a client bound to it, failing STORE_ALREADY_EXISTS if the
// name is taken (spec.md §4.5 initializeStore).
func (c *Cortex) AddStore(ctx context.Context, name string, def model.StoreDefinition) (*StoreClient, error) {
	a, err := c.factory(ctx, name)
	if err != nil {
		return nil, err
	}
	engine, err := store.InitializeStore(ctx, c.registry, a, name, def)
	if err != nil {
		return nil, err
	}
	return &StoreClient{name: name, registry: c.registry, adapter: a, engine: engine}, nil
}

// RemoveStore removes name's registry entry. It does not delete the
// store's own data; the underlying adapter instance owns that decision.
func (c *Cortex) RemoveStore(ctx context.Context, name string) error {
	return c.registry.RemoveStore(ctx, name)
}

// GetStoreDefinitions lists every store currently known to the registry.
func (c *Cortex) GetStoreDefinitions(ctx context.Context) ([]model.StoreDefinition, error) {
	data, err := c.registry.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	defs := make([]model.StoreDefinition, 0, len(data))
	for _, d := range data {
		defs = append(defs, d.Definition)
	}
	return defs, nil
}
