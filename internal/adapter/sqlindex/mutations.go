package sqlindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/model"
)

// UpdateAfterMemoryWrite upserts mem's row in its category and, when the
// memory is new, bumps the subcategory-count linkage up to the root
// (spec.md §4.3 create/update rule).
func (ix *Index) UpdateAfterMemoryWrite(ctx context.Context, mem model.Memory) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cat := mem.Path.Category()
	key := cat.String()

	var probe int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM category_memories WHERE category_path = ? AND memory_path = ?`,
		key, mem.Path.String()).Scan(&probe)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	existed := err == nil

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO category_nodes(path) VALUES (?)`, key); err != nil {
		return err
	}
	entry := model.CategoryMemoryEntry{
		Path: mem.Path, TokenEstimate: model.EstimateTokens(mem.Content),
		Summary: mem.Metadata.Summary, UpdatedAt: &mem.Metadata.UpdatedAt, ExpiresAt: mem.Metadata.ExpiresAt,
	}
	if err := upsertMemoryRow(ctx, tx, key, entry); err != nil {
		return err
	}

	if !existed {
		if err := bumpSubcategoryCountTx(ctx, tx, cat, 1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// bumpSubcategoryCountTx ensures cat is linked into its parent's
// subcategory row (creating the link if absent) and adjusts its memory
// count by delta, recursing toward the root the same way
// fsadapter.bumpSubcategoryCount does.
func bumpSubcategoryCountTx(ctx context.Context, tx *sql.Tx, cat model.CategoryPath, delta int) error {
	if cat.IsRoot() {
		return nil
	}
	parent := cat.Parent()
	parentKey := parent.String()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO category_nodes(path) VALUES (?)`, parentKey); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE category_subcategories SET memory_count = memory_count + ? WHERE parent_path = ? AND child_path = ?`,
		delta, parentKey, cat.String())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		count := delta
		if count < 0 {
			count = 0
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_subcategories(parent_path, child_path, memory_count, description) VALUES (?, ?, ?, NULL)`,
			parentKey, cat.String(), count,
		); err != nil {
			return err
		}
		return bumpSubcategoryCountTx(ctx, tx, parent, 0)
	}
	return nil
}

// UpdateAfterMemoryRemove deletes path's row and cascades empty-ancestor
// pruning up the tree (spec.md §4.3 remove rule).
func (ix *Index) UpdateAfterMemoryRemove(ctx context.Context, path model.MemoryPath) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cat := path.Category()
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_memories WHERE category_path = ? AND memory_path = ?`,
		cat.String(), path.String()); err != nil {
		return err
	}
	if err := pruneEmptyAncestorsTx(ctx, tx, cat); err != nil {
		return err
	}
	return tx.Commit()
}

// pruneEmptyAncestorsTx walks cat upward, unlinking it from its parent
// and deleting its node row as long as it has no memories and no
// subcategories left, mirroring fsadapter's cascade.
func pruneEmptyAncestorsTx(ctx context.Context, tx *sql.Tx, cat model.CategoryPath) error {
	for !cat.IsRoot() {
		empty, err := categoryIsEmptyTx(ctx, tx, cat)
		if err != nil {
			return err
		}
		if !empty {
			return nil
		}
		parent := cat.Parent()
		var description sql.NullString
		err = tx.QueryRowContext(ctx,
			`SELECT description FROM category_subcategories WHERE parent_path = ? AND child_path = ?`,
			parent.String(), cat.String()).Scan(&description)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		if description.Valid {
			// A declared description keeps the link even when empty.
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM category_subcategories WHERE parent_path = ? AND child_path = ?`,
			parent.String(), cat.String()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM category_nodes WHERE path = ?`, cat.String()); err != nil {
			return err
		}
		cat = parent
	}
	return nil
}

func categoryIsEmptyTx(ctx context.Context, tx *sql.Tx, cat model.CategoryPath) (bool, error) {
	var memCount, subCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM category_memories WHERE category_path = ?`, cat.String()).Scan(&memCount); err != nil {
		return false, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM category_subcategories WHERE parent_path = ?`, cat.String()).Scan(&subCount); err != nil {
		return false, err
	}
	return memCount == 0 && subCount == 0, nil
}

// UpdateAfterMemoryMove renames or relocates a memory's index entry
// (spec.md §4.3 move rule).
func (ix *Index) UpdateAfterMemoryMove(ctx context.Context, from, to model.MemoryPath) error {
	if from.Category().Equal(to.Category()) {
		tx, err := ix.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		key := from.Category().String()
		if _, err := tx.ExecContext(ctx,
			`UPDATE category_memories SET memory_path = ? WHERE category_path = ? AND memory_path = ?`,
			to.String(), key, from.String()); err != nil {
			return err
		}
		return tx.Commit()
	}

	if err := ix.UpdateAfterMemoryRemove(ctx, from); err != nil {
		return err
	}
	mem, err := ix.memories.Read(ctx, to)
	if err != nil {
		return err
	}
	if mem == nil {
		return nil
	}
	return ix.UpdateAfterMemoryWrite(ctx, *mem)
}

// Reindex rebuilds every category under scope from the ground-truth
// memory listing, preserving descriptions already on file, then reports
// how many categories it rebuilt (spec.md §4.3, §4.5 reindex).
func (ix *Index) Reindex(ctx context.Context, scope model.CategoryPath) (adapter.ReindexResult, error) {
	paths, err := ix.memories.ListPathsUnder(ctx, scope)
	if err != nil {
		return adapter.ReindexResult{}, err
	}

	var warnings []string
	entriesByCategory := make(map[string][]model.CategoryMemoryEntry)
	categorySet := map[string]model.CategoryPath{scope.String(): scope}

	for _, p := range paths {
		mem, err := ix.memories.Read(ctx, p)
		if err != nil || mem == nil {
			warnings = append(warnings, fmt.Sprintf("unreadable memory %q, skipped", p.String()))
			continue
		}
		cat := p.Category()
		entriesByCategory[cat.String()] = append(entriesByCategory[cat.String()], model.CategoryMemoryEntry{
			Path: p, TokenEstimate: model.EstimateTokens(mem.Content),
			Summary: mem.Metadata.Summary, UpdatedAt: &mem.Metadata.UpdatedAt, ExpiresAt: mem.Metadata.ExpiresAt,
		})
		for c := cat; ; c = c.Parent() {
			categorySet[c.String()] = c
			if c.Equal(scope) || c.IsRoot() {
				break
			}
		}
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return adapter.ReindexResult{}, err
	}
	defer tx.Rollback()

	existingDescriptions := make(map[string]*string)
	for _, c := range categorySet {
		if c.IsRoot() {
			continue
		}
		var desc sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT description FROM category_subcategories WHERE parent_path = ? AND child_path = ?`,
			c.Parent().String(), c.String()).Scan(&desc)
		if err != nil && err != sql.ErrNoRows {
			return adapter.ReindexResult{}, err
		}
		if desc.Valid {
			d := desc.String
			existingDescriptions[c.String()] = &d
		}
	}

	rebuilt := 0
	for key, cat := range categorySet {
		entries := entriesByCategory[key]
		sortMemories(entries)

		var subs []model.SubcategoryEntry
		for otherKey, other := range categorySet {
			if other.IsRoot() || !other.Parent().Equal(cat) {
				continue
			}
			subs = append(subs, model.SubcategoryEntry{
				Path:        other,
				MemoryCount: len(entriesByCategory[otherKey]),
				Description: existingDescriptions[otherKey],
			})
		}
		sortSubcategories(subs)

		idx := model.CategoryIndex{Path: cat, Memories: entries, Subcategories: subs}
		if cat.IsRoot() {
			var desc sql.NullString
			err := tx.QueryRowContext(ctx, `SELECT description FROM category_descriptions WHERE path = ?`, key).Scan(&desc)
			if err != nil && err != sql.ErrNoRows {
				return adapter.ReindexResult{}, err
			}
			if desc.Valid {
				d := desc.String
				idx.RootDescription = &d
			}
		}
		if err := storeIndexTx(ctx, tx, cat, idx); err != nil {
			return adapter.ReindexResult{}, err
		}
		rebuilt++
	}

	if err := tx.Commit(); err != nil {
		return adapter.ReindexResult{}, err
	}
	return adapter.ReindexResult{CategoriesRebuilt: rebuilt, Warnings: warnings}, nil
}
