package fsadapter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

// registryDoc is the on-disk shape of config.yaml (spec.md §6: "Top-level
// document config.yaml-equivalent"): a map keyed by store name.
type registryDoc struct {
	Stores map[string]storeDoc `yaml:"stores"`
}

// storeDoc is both one entry of registryDoc.Stores and the shape of a
// single store's own store.yaml metadata file — in both places the
// store's name lives outside the document (the map key, or the
// instance's own scope), per spec.md §6.
type storeDoc struct {
	Kind         string                         `yaml:"kind,omitempty"`
	Description  *string                        `yaml:"description,omitempty"`
	CategoryMode string                         `yaml:"category_mode,omitempty"`
	Categories   map[string]declaredCategoryDoc `yaml:"categories,omitempty"`
	Properties   map[string]any                 `yaml:"properties,omitempty"`
}

type declaredCategoryDoc struct {
	Description   *string                        `yaml:"description,omitempty"`
	Policies      *policyDoc                     `yaml:"policies,omitempty"`
	Subcategories map[string]declaredCategoryDoc `yaml:"subcategories,omitempty"`
}

type policyDoc struct {
	DefaultTTLDays      *int64          `yaml:"default_ttl_days,omitempty"`
	MaxContentLength    *int            `yaml:"max_content_length,omitempty"`
	Permissions         *permissionsDoc `yaml:"permissions,omitempty"`
	SubcategoryCreation *bool           `yaml:"subcategory_creation,omitempty"`
}

type permissionsDoc struct {
	Create *bool `yaml:"create,omitempty"`
	Update *bool `yaml:"update,omitempty"`
	Delete *bool `yaml:"delete,omitempty"`
}

type configCapability struct {
	a *FSAdapter
}

func (c *configCapability) readRegistry() (registryDoc, error) {
	raw, err := os.ReadFile(c.a.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return registryDoc{}, nil
		}
		return registryDoc{}, cortexerr.Wrap(cortexerr.ConfigReadFailed, "failed to read registry config", err)
	}
	var doc registryDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return registryDoc{}, cortexerr.Wrap(cortexerr.ParseFailed, "failed to parse registry config", err)
	}
	return doc, nil
}

func (c *configCapability) writeRegistry(doc registryDoc) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cortexerr.Wrap(cortexerr.SerializeFailed, "failed to serialize registry config", err)
	}
	if err := atomicWriteFile(c.a.configPath(), data, 0o644); err != nil {
		return cortexerr.Wrap(cortexerr.ConfigWriteFailed, "failed to write registry config", err)
	}
	return nil
}

func (c *configCapability) GetStore(ctx context.Context, name string) (*adapter.StoreData, error) {
	c.a.mu.RLock()
	defer c.a.mu.RUnlock()

	doc, err := c.readRegistry()
	if err != nil {
		return nil, err
	}
	entry, ok := doc.Stores[name]
	if !ok {
		return nil, nil
	}
	def, err := fromStoreDoc(name, entry)
	if err != nil {
		return nil, err
	}
	return &adapter.StoreData{Definition: def}, nil
}

func (c *configCapability) SaveStore(ctx context.Context, name string, data adapter.StoreData) error {
	c.a.mu.Lock()
	defer c.a.mu.Unlock()

	doc, err := c.readRegistry()
	if err != nil {
		return err
	}
	if doc.Stores == nil {
		doc.Stores = make(map[string]storeDoc)
	}
	doc.Stores[name] = toStoreDoc(data.Definition)
	return c.writeRegistry(doc)
}

func (c *configCapability) ListStores(ctx context.Context) ([]adapter.StoreData, error) {
	c.a.mu.RLock()
	defer c.a.mu.RUnlock()

	doc, err := c.readRegistry()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Stores))
	for name := range doc.Stores {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]adapter.StoreData, 0, len(names))
	for _, name := range names {
		def, err := fromStoreDoc(name, doc.Stores[name])
		if err != nil {
			return nil, err
		}
		out = append(out, adapter.StoreData{Definition: def})
	}
	return out, nil
}

func (c *configCapability) RemoveStore(ctx context.Context, name string) error {
	c.a.mu.Lock()
	defer c.a.mu.Unlock()

	doc, err := c.readRegistry()
	if err != nil {
		return err
	}
	delete(doc.Stores, name)
	return c.writeRegistry(doc)
}

// Reload is a no-op for fsadapter: every read goes straight to disk, so
// there is no in-memory registry cache to invalidate.
func (c *configCapability) Reload(ctx context.Context) error {
	return nil
}

type storeCapability struct {
	a *FSAdapter
}

const storeMetaFileName = "store.yaml"

func (s *storeCapability) metaPath() (string, error) {
	root, err := s.a.storeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, storeMetaFileName), nil
}

func (s *storeCapability) Load(ctx context.Context) (adapter.StoreData, error) {
	fp, err := s.metaPath()
	if err != nil {
		return adapter.StoreData{}, err
	}
	raw, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return adapter.StoreData{}, cortexerr.New(cortexerr.StoreNotInitialized, "store has no metadata on disk").
				WithStore(s.a.store).WithRemediation("call initializeStore before reading it")
		}
		return adapter.StoreData{}, cortexerr.Wrap(cortexerr.StorageError, "failed to read store metadata", err).WithStore(s.a.store)
	}

	var doc storeDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return adapter.StoreData{}, cortexerr.Wrap(cortexerr.ParseFailed, "failed to parse store metadata", err).WithStore(s.a.store)
	}
	def, err := fromStoreDoc(s.a.store, doc)
	if err != nil {
		return adapter.StoreData{}, err
	}
	return adapter.StoreData{Definition: def}, nil
}

func (s *storeCapability) Save(ctx context.Context, data adapter.StoreData) error {
	fp, err := s.metaPath()
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(toStoreDoc(data.Definition))
	if err != nil {
		return cortexerr.Wrap(cortexerr.SerializeFailed, "failed to serialize store metadata", err).WithStore(s.a.store)
	}
	if err := atomicWriteFile(fp, raw, 0o644); err != nil {
		return cortexerr.Wrap(cortexerr.StorageError, "failed to write store metadata", err).WithStore(s.a.store)
	}
	return nil
}

func toStoreDoc(def model.StoreDefinition) storeDoc {
	doc := storeDoc{
		Kind:         def.Kind,
		Description:  def.Description,
		CategoryMode: string(def.CategoryMode),
		Properties:   def.Properties,
	}
	if len(def.Categories) > 0 {
		doc.Categories = make(map[string]declaredCategoryDoc, len(def.Categories))
		for _, c := range def.Categories {
			doc.Categories[c.Segment.String()] = toDeclaredCategoryDoc(c)
		}
	}
	return doc
}

func toDeclaredCategoryDoc(c model.DeclaredCategory) declaredCategoryDoc {
	doc := declaredCategoryDoc{Description: c.Description}
	if c.Policies != nil {
		doc.Policies = toPolicyDoc(*c.Policies)
	}
	if len(c.Subcategories) > 0 {
		doc.Subcategories = make(map[string]declaredCategoryDoc, len(c.Subcategories))
		for _, child := range c.Subcategories {
			doc.Subcategories[child.Segment.String()] = toDeclaredCategoryDoc(child)
		}
	}
	return doc
}

func toPolicyDoc(p model.DeclaredPolicy) *policyDoc {
	doc := &policyDoc{
		MaxContentLength:    p.MaxContentLength,
		SubcategoryCreation: p.SubcategoryCreation,
	}
	if p.Permissions.Create != nil || p.Permissions.Update != nil || p.Permissions.Delete != nil {
		doc.Permissions = &permissionsDoc{
			Create: p.Permissions.Create,
			Update: p.Permissions.Update,
			Delete: p.Permissions.Delete,
		}
	}
	if p.DefaultTTL != nil {
		days := int64(*p.DefaultTTL / (24 * time.Hour))
		doc.DefaultTTLDays = &days
	}
	return doc
}

func fromStoreDoc(name string, doc storeDoc) (model.StoreDefinition, error) {
	slug, err := model.NewSlug(name)
	if err != nil {
		return model.StoreDefinition{}, cortexerr.Wrap(cortexerr.InvalidStoreName, "stored registry entry has an invalid name", err)
	}
	def := model.StoreDefinition{
		Name:         slug,
		Kind:         doc.Kind,
		Description:  doc.Description,
		CategoryMode: model.CategoryMode(doc.CategoryMode),
		Properties:   doc.Properties,
	}
	if len(doc.Categories) > 0 {
		segments := make([]string, 0, len(doc.Categories))
		for segment := range doc.Categories {
			segments = append(segments, segment)
		}
		sort.Strings(segments)
		for _, segment := range segments {
			dc, err := fromDeclaredCategoryDoc(segment, doc.Categories[segment])
			if err != nil {
				return model.StoreDefinition{}, err
			}
			def.Categories = append(def.Categories, dc)
		}
	}
	return def, nil
}

func fromDeclaredCategoryDoc(segment string, doc declaredCategoryDoc) (model.DeclaredCategory, error) {
	slug, err := model.NewSlug(segment)
	if err != nil {
		return model.DeclaredCategory{}, cortexerr.Wrap(cortexerr.InvalidSlug, "declared category has an invalid segment", err)
	}
	dc := model.DeclaredCategory{Segment: slug, Description: doc.Description}
	if doc.Policies != nil {
		dc.Policies = fromPolicyDoc(*doc.Policies)
	}
	if len(doc.Subcategories) > 0 {
		children := make([]string, 0, len(doc.Subcategories))
		for child := range doc.Subcategories {
			children = append(children, child)
		}
		sort.Strings(children)
		for _, child := range children {
			sub, err := fromDeclaredCategoryDoc(child, doc.Subcategories[child])
			if err != nil {
				return model.DeclaredCategory{}, err
			}
			dc.Subcategories = append(dc.Subcategories, sub)
		}
	}
	return dc, nil
}

func fromPolicyDoc(doc policyDoc) *model.DeclaredPolicy {
	p := &model.DeclaredPolicy{
		MaxContentLength:    doc.MaxContentLength,
		SubcategoryCreation: doc.SubcategoryCreation,
	}
	if doc.Permissions != nil {
		p.Permissions = model.Permissions{
			Create: doc.Permissions.Create,
			Update: doc.Permissions.Update,
			Delete: doc.Permissions.Delete,
		}
	}
	if doc.DefaultTTLDays != nil {
		d := time.Duration(*doc.DefaultTTLDays) * 24 * time.Hour
		p.DefaultTTL = &d
	}
	return p
}
