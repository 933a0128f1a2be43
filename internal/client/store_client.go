package client

import (
	"context"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/store"
)

// StoreClient is a fluent handle on one named store (spec.md §4.6).
// Every Cortex.GetStore/AddStore call returns a new StoreClient.
type StoreClient struct {
	name     string
	registry adapter.ConfigCapability
	adapter  adapter.StorageAdapter
	engine   *store.Engine
}

// Name returns the store's registered name.
func (s *StoreClient) Name() string { return s.name }

// Load reads the store's own persisted metadata.
func (s *StoreClient) Load(ctx context.Context) (model.StoreDefinition, error) {
	data, err := s.adapter.Stores().Load(ctx)
	if err != nil {
		return model.StoreDefinition{}, err
	}
	return data.Definition, nil
}

// Save overwrites the store's own persisted metadata and the registry's
// copy of it, keeping both in sync.
func (s *StoreClient) Save(ctx context.Context, def model.StoreDefinition) error {
	data := adapter.StoreData{Definition: def}
	if err := s.adapter.Stores().Save(ctx, data); err != nil {
		return err
	}
	return s.registry.SaveStore(ctx, s.name, data)
}

// Initialize is the StoreClient-scoped equivalent of Cortex.AddStore,
// for callers that already hold a client bound to an un-initialized
// store's adapter (spec.md §4.6 "initialize(data)").
func (s *StoreClient) Initialize(ctx context.Context, def model.StoreDefinition) error {
	engine, err := store.InitializeStore(ctx, s.registry, s.adapter, s.name, def)
	if err != nil {
		return err
	}
	s.engine = engine
	return nil
}

// Root returns a CategoryClient pointed at the store's root category.
func (s *StoreClient) Root() *CategoryClient {
	return &CategoryClient{store: s, rawPath: "/", path: model.RootCategory()}
}

// GetCategory returns a lazy CategoryClient for rawPath. Navigation
// never fails; an invalid rawPath is only reported on the client's first
// async call.
func (s *StoreClient) GetCategory(rawPath string) *CategoryClient {
	path, err := model.ParseCategoryPath(rawPath)
	return &CategoryClient{store: s, rawPath: canonicalize(rawPath), path: path, parseErr: err}
}

// GetMemory returns a lazy MemoryClient for rawPath.
func (s *StoreClient) GetMemory(rawPath string) *MemoryClient {
	path, err := model.ParseMemoryPath(rawPath)
	return &MemoryClient{store: s, rawPath: canonicalize(rawPath), path: path, parseErr: err}
}

// canonicalize prefixes rawPath with a leading slash for display
// purposes (spec.md §4.6: "canonical rawPath with leading /"); parsing
// itself is delimiter-based and ignores the leading slash either way.
func canonicalize(rawPath string) string {
	if len(rawPath) == 0 || rawPath[0] != '/' {
		return "/" + rawPath
	}
	return rawPath
}
