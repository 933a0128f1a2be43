package fsadapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

type indexCapability struct {
	a *FSAdapter
}

const indexFileName = "_index.yaml"

// memoryIndexEntry/subcategoryIndexEntry/indexDoc are the on-disk shapes
// of CategoryIndex (spec.md §6).
type memoryIndexEntry struct {
	Path          string     `yaml:"path"`
	TokenEstimate int        `yaml:"token_estimate"`
	Summary       *string    `yaml:"summary,omitempty"`
	UpdatedAt     *string    `yaml:"updated_at,omitempty"`
	ExpiresAt     *string    `yaml:"expires_at,omitempty"`
}

type subcategoryIndexEntry struct {
	Path        string  `yaml:"path"`
	MemoryCount int     `yaml:"memory_count"`
	Description *string `yaml:"description,omitempty"`
}

type indexDoc struct {
	Memories        []memoryIndexEntry      `yaml:"memories,omitempty"`
	Subcategories   []subcategoryIndexEntry `yaml:"subcategories,omitempty"`
	RootDescription *string                 `yaml:"root_description,omitempty"`
}

func (ix *indexCapability) dirFor(path model.CategoryPath) (string, error) {
	segs := make([]string, 0, path.Depth())
	for _, s := range path.Segments() {
		segs = append(segs, s.String())
	}
	return ix.a.categoryDir(segs)
}

func (ix *indexCapability) filePath(path model.CategoryPath) (string, error) {
	dir, err := ix.dirFor(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, indexFileName), nil
}

func (ix *indexCapability) Load(ctx context.Context, path model.CategoryPath) (*model.CategoryIndex, error) {
	fp, err := ix.filePath(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cortexerr.Wrap(cortexerr.StorageError, "failed to read category index", err).WithPath(path.String())
	}

	var doc indexDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, cortexerr.Wrap(cortexerr.ParseFailed, "failed to parse category index", err).WithPath(path.String())
	}

	idx := fromDoc(path, doc)
	return &idx, nil
}

func (ix *indexCapability) Store(ctx context.Context, path model.CategoryPath, index model.CategoryIndex) error {
	fp, err := ix.filePath(path)
	if err != nil {
		return err
	}

	doc := toDoc(index)
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cortexerr.Wrap(cortexerr.SerializeFailed, "failed to serialize category index", err).WithPath(path.String())
	}
	if err := atomicWriteFile(fp, data, 0o644); err != nil {
		return cortexerr.Wrap(cortexerr.StorageError, "failed to write category index", err).WithPath(path.String())
	}
	return nil
}

// UpdateAfterMemoryWrite implements the create/update incremental rules
// of spec.md §4.3: add-or-replace the memory's own entry, and if this was
// the category's first memory, insert a SubcategoryEntry in the parent
// (creating missing ancestors along the way).
func (ix *indexCapability) UpdateAfterMemoryWrite(ctx context.Context, mem model.Memory) error {
	cat := mem.Path.Category()
	idx, err := ix.Load(ctx, cat)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = &model.CategoryIndex{Path: cat}
	}

	entry := model.CategoryMemoryEntry{
		Path:          mem.Path,
		TokenEstimate: model.EstimateTokens(mem.Content),
		Summary:       mem.Metadata.Summary,
		UpdatedAt:     &mem.Metadata.UpdatedAt,
		ExpiresAt:     mem.Metadata.ExpiresAt,
	}

	existed := false
	for i := range idx.Memories {
		if idx.Memories[i].Path.Equal(mem.Path) {
			idx.Memories[i] = entry
			existed = true
			break
		}
	}
	if !existed {
		idx.Memories = append(idx.Memories, entry)
	}
	sortMemories(idx.Memories)

	if err := ix.Store(ctx, cat, *idx); err != nil {
		return err
	}

	if !existed {
		if err := ix.bumpSubcategoryCount(ctx, cat, 1); err != nil {
			return err
		}
	}
	return nil
}

// UpdateAfterMemoryRemove implements the remove rule: drop the memory's
// entry, and if the category becomes empty (no memories, no
// subcategories, no description) drop its entry from the parent too.
func (ix *indexCapability) UpdateAfterMemoryRemove(ctx context.Context, path model.MemoryPath) error {
	cat := path.Category()
	idx, err := ix.Load(ctx, cat)
	if err != nil {
		return err
	}
	if idx == nil {
		return nil
	}

	kept := idx.Memories[:0]
	removed := false
	for _, e := range idx.Memories {
		if e.Path.Equal(path) {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	idx.Memories = kept
	if !removed {
		return nil
	}

	if err := ix.Store(ctx, cat, *idx); err != nil {
		return err
	}

	return ix.pruneEmptyAncestors(ctx, cat)
}

// pruneEmptyAncestors drops cat's entry from its parent if cat is now
// empty and undescribed, then repeats for the parent, cascading all the
// way to root so a chain of now-empty intermediate categories doesn't
// linger in the index (spec.md §4.3 index-faithfulness invariant).
func (ix *indexCapability) pruneEmptyAncestors(ctx context.Context, cat model.CategoryPath) error {
	for !cat.IsRoot() {
		idx, err := ix.Load(ctx, cat)
		if err != nil {
			return err
		}
		if idx == nil || !idx.IsEmpty() {
			return nil
		}

		parent := cat.Parent()
		parentIdx, err := ix.Load(ctx, parent)
		if err != nil {
			return err
		}
		if parentIdx == nil {
			return nil
		}
		entry, ok := parentIdx.FindSubcategory(cat)
		if !ok || entry.Description != nil {
			return nil
		}
		if err := ix.a.Categories().RemoveSubcategoryEntry(ctx, parent, cat); err != nil {
			return err
		}
		cat = parent
	}
	return nil
}

// UpdateAfterMemoryMove implements the move rule: a rename within the same
// category, or a remove-then-insert across categories.
func (ix *indexCapability) UpdateAfterMemoryMove(ctx context.Context, from, to model.MemoryPath) error {
	if from.Category().Equal(to.Category()) {
		idx, err := ix.Load(ctx, from.Category())
		if err != nil {
			return err
		}
		if idx == nil {
			return nil
		}
		for i := range idx.Memories {
			if idx.Memories[i].Path.Equal(from) {
				idx.Memories[i].Path = to
			}
		}
		sortMemories(idx.Memories)
		return ix.Store(ctx, from.Category(), *idx)
	}

	if err := ix.UpdateAfterMemoryRemove(ctx, from); err != nil {
		return err
	}
	mem, err := ix.a.Memories().Read(ctx, to)
	if err != nil {
		return err
	}
	if mem == nil {
		return cortexerr.New(cortexerr.StorageError, "moved memory not found at destination after rename").WithPath(to.String())
	}
	return ix.UpdateAfterMemoryWrite(ctx, *mem)
}

// bumpSubcategoryCount increments (or, via Ensure-style creation, inserts)
// cat's SubcategoryEntry in its parent, creating missing ancestors.
func (ix *indexCapability) bumpSubcategoryCount(ctx context.Context, cat model.CategoryPath, delta int) error {
	if cat.IsRoot() {
		return nil
	}
	parent := cat.Parent()
	if err := ix.a.Categories().Ensure(ctx, parent); err != nil {
		return err
	}

	idx, err := ix.Load(ctx, parent)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = &model.CategoryIndex{Path: parent}
	}

	found := false
	for i := range idx.Subcategories {
		if idx.Subcategories[i].Path.Equal(cat) {
			idx.Subcategories[i].MemoryCount += delta
			found = true
			break
		}
	}
	if !found {
		if err := ix.bumpSubcategoryCount(ctx, parent, 0); err != nil {
			// ensure the grandparent links exist even if this is the
			// first child of parent too; count delta 0 just ensures linkage
			return err
		}
		idx.Subcategories = append(idx.Subcategories, model.SubcategoryEntry{Path: cat, MemoryCount: delta})
	}
	sortSubcategories(idx.Subcategories)
	return ix.Store(ctx, parent, *idx)
}

// Reindex recomputes every index under scope from the ground truth:
// enumerate memory paths, group by category, rebuild each category's
// memory list and its subcategory list from directly nested categories.
func (ix *indexCapability) Reindex(ctx context.Context, scope model.CategoryPath) (adapter.ReindexResult, error) {
	paths, err := ix.a.Memories().ListPathsUnder(ctx, scope)
	if err != nil {
		return adapter.ReindexResult{}, err
	}

	byCategory := make(map[string][]model.MemoryPath)
	categorySet := make(map[string]model.CategoryPath)
	categorySet[scope.String()] = scope

	for _, p := range paths {
		cat := p.Category()
		byCategory[cat.String()] = append(byCategory[cat.String()], p)
		// Register every ancestor of cat up to (and including) scope so
		// intermediate categories with no direct memories still rebuild.
		for c := cat; ; c = c.Parent() {
			categorySet[c.String()] = c
			if c.Equal(scope) || c.IsRoot() {
				break
			}
		}
	}

	var warnings []string
	rebuilt := make(map[string]model.CategoryIndex, len(categorySet))

	for key, cat := range categorySet {
		var entries []model.CategoryMemoryEntry
		for _, p := range byCategory[key] {
			mem, err := ix.a.Memories().Read(ctx, p)
			if err != nil || mem == nil {
				warnings = append(warnings, fmt.Sprintf("skipped unreadable memory at %q", p.String()))
				continue
			}
			entries = append(entries, model.CategoryMemoryEntry{
				Path:          p,
				TokenEstimate: model.EstimateTokens(mem.Content),
				Summary:       mem.Metadata.Summary,
				UpdatedAt:     &mem.Metadata.UpdatedAt,
				ExpiresAt:     mem.Metadata.ExpiresAt,
			})
		}
		sortMemories(entries)
		rebuilt[key] = model.CategoryIndex{Path: cat, Memories: entries}
	}

	// Rebuild subcategory lists from direct-child relationships among the
	// categories discovered above (plus any declared-but-empty categories
	// already on disk, preserved via existing index subcategory entries
	// with a description).
	for key, cat := range categorySet {
		existing, err := ix.Load(ctx, cat)
		if err != nil {
			return adapter.ReindexResult{}, err
		}
		idx := rebuilt[key]
		if existing != nil {
			idx.RootDescription = existing.RootDescription
		}

		var subs []model.SubcategoryEntry
		for otherKey, other := range categorySet {
			if otherKey == key || !other.IsChildOf(cat) || other.Depth() != cat.Depth()+1 {
				continue
			}
			count := len(rebuilt[otherKey].Memories)
			var desc *string
			if existing != nil {
				if e, ok := existing.FindSubcategory(other); ok {
					desc = e.Description
				}
			}
			subs = append(subs, model.SubcategoryEntry{Path: other, MemoryCount: count, Description: desc})
		}
		// Preserve declared-but-empty subcategories (no memories anywhere
		// under them, so never discovered via categorySet) that already
		// carry a description.
		if existing != nil {
			for _, e := range existing.Subcategories {
				if _, known := categorySet[e.Path.String()]; !known && e.Description != nil {
					subs = append(subs, e)
				}
			}
		}
		sortSubcategories(subs)
		idx.Subcategories = subs
		rebuilt[key] = idx
	}

	count := 0
	for key, idx := range rebuilt {
		if err := ix.Store(ctx, categorySet[key], idx); err != nil {
			return adapter.ReindexResult{}, err
		}
		count++
	}

	return adapter.ReindexResult{CategoriesRebuilt: count, Warnings: warnings}, nil
}

func sortMemories(entries []model.CategoryMemoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path.String() < entries[j].Path.String()
	})
}

func sortSubcategories(entries []model.SubcategoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path.String() < entries[j].Path.String()
	})
}

func toDoc(idx model.CategoryIndex) indexDoc {
	doc := indexDoc{RootDescription: idx.RootDescription}
	for _, m := range idx.Memories {
		e := memoryIndexEntry{Path: m.Path.String(), TokenEstimate: m.TokenEstimate, Summary: m.Summary}
		if m.UpdatedAt != nil {
			s := m.UpdatedAt.Format(time.RFC3339Nano)
			e.UpdatedAt = &s
		}
		if m.ExpiresAt != nil {
			s := m.ExpiresAt.Format(time.RFC3339Nano)
			e.ExpiresAt = &s
		}
		doc.Memories = append(doc.Memories, e)
	}
	for _, s := range idx.Subcategories {
		doc.Subcategories = append(doc.Subcategories, subcategoryIndexEntry{
			Path: s.Path.String(), MemoryCount: s.MemoryCount, Description: s.Description,
		})
	}
	return doc
}

func fromDoc(path model.CategoryPath, doc indexDoc) model.CategoryIndex {
	idx := model.CategoryIndex{Path: path, RootDescription: doc.RootDescription}
	for _, e := range doc.Memories {
		mp, err := model.ParseMemoryPath(e.Path)
		if err != nil {
			continue // orphaned/invalid entries are repaired by reindex
		}
		entry := model.CategoryMemoryEntry{Path: mp, TokenEstimate: e.TokenEstimate, Summary: e.Summary}
		if e.UpdatedAt != nil {
			if t, err := time.Parse(time.RFC3339Nano, *e.UpdatedAt); err == nil {
				entry.UpdatedAt = &t
			}
		}
		if e.ExpiresAt != nil {
			if t, err := time.Parse(time.RFC3339Nano, *e.ExpiresAt); err == nil {
				entry.ExpiresAt = &t
			}
		}
		idx.Memories = append(idx.Memories, entry)
	}
	for _, e := range doc.Subcategories {
		cp, err := model.ParseCategoryPath(e.Path)
		if err != nil {
			continue
		}
		idx.Subcategories = append(idx.Subcategories, model.SubcategoryEntry{
			Path: cp, MemoryCount: e.MemoryCount, Description: e.Description,
		})
	}
	return idx
}
