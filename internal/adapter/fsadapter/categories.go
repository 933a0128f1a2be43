package fsadapter

import (
	"context"
	"os"

	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

type categoryCapability struct {
	a *FSAdapter
}

func (c *categoryCapability) dirFor(path model.CategoryPath) (string, error) {
	segs := make([]string, 0, path.Depth())
	for _, s := range path.Segments() {
		segs = append(segs, s.String())
	}
	return c.a.categoryDir(segs)
}

func (c *categoryCapability) Exists(ctx context.Context, path model.CategoryPath) (bool, error) {
	dir, err := c.dirFor(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, cortexerr.Wrap(cortexerr.StorageError, "failed to stat category directory", err).WithPath(path.String())
	}
	return info.IsDir(), nil
}

// Ensure idempotently creates path and every missing ancestor directory.
func (c *categoryCapability) Ensure(ctx context.Context, path model.CategoryPath) error {
	dir, err := c.dirFor(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cortexerr.Wrap(cortexerr.StorageError, "failed to create category directory", err).WithPath(path.String())
	}
	return nil
}

func (c *categoryCapability) Delete(ctx context.Context, path model.CategoryPath) error {
	dir, err := c.dirFor(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return cortexerr.Wrap(cortexerr.StorageError, "failed to delete category directory", err).WithPath(path.String())
	}
	return nil
}

// SetDescription writes text through the parent category's index entry
// for path (spec.md §4.3: "Set description: updates only the parent's
// entry for this category"). The root category has no parent; its
// description is stored in its own index under a synthetic self entry.
func (c *categoryCapability) SetDescription(ctx context.Context, path model.CategoryPath, text *string) error {
	if path.IsRoot() {
		idx, err := c.a.indexes.Load(ctx, path)
		if err != nil {
			return err
		}
		if idx == nil {
			idx = &model.CategoryIndex{Path: path}
		}
		idx.RootDescription = text
		return c.a.indexes.Store(ctx, path, *idx)
	}

	parent := path.Parent()
	idx, err := c.a.indexes.Load(ctx, parent)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = &model.CategoryIndex{Path: parent}
	}

	found := false
	for i := range idx.Subcategories {
		if idx.Subcategories[i].Path.Equal(path) {
			idx.Subcategories[i].Description = text
			found = true
			break
		}
	}
	if !found {
		idx.Subcategories = append(idx.Subcategories, model.SubcategoryEntry{Path: path, Description: text})
	}
	return c.a.indexes.Store(ctx, parent, *idx)
}

func (c *categoryCapability) RemoveSubcategoryEntry(ctx context.Context, parent model.CategoryPath, child model.CategoryPath) error {
	idx, err := c.a.indexes.Load(ctx, parent)
	if err != nil {
		return err
	}
	if idx == nil {
		return nil
	}
	kept := idx.Subcategories[:0]
	for _, e := range idx.Subcategories {
		if !e.Path.Equal(child) {
			kept = append(kept, e)
		}
	}
	idx.Subcategories = kept
	return c.a.indexes.Store(ctx, parent, *idx)
}
