package store

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/policy"
)

// maxDescriptionLength bounds setDescription (spec.md §4.5: "enforces
// length ≤ 500").
const maxDescriptionLength = 500

// CreateCategory validates the path, enforces the store's category
// mode, and idempotently creates it along with any missing ancestors
// (spec.md §4.5 createCategory).
func (e *Engine) CreateCategory(ctx context.Context, rawPath string) (CreateCategoryResult, error) {
	path, err := model.ParseCategoryPath(rawPath)
	if err != nil {
		return CreateCategoryResult{}, err
	}

	def, err := e.definition(ctx)
	if err != nil {
		return CreateCategoryResult{}, err
	}
	if err := policy.CheckCreateCategory(def, path); err != nil {
		return CreateCategoryResult{}, err
	}
	if !path.IsRoot() {
		eff := policy.Resolve(def, path.Parent())
		if err := policy.CheckSubcategoryCreation(eff, path); err != nil {
			return CreateCategoryResult{}, err
		}
	}

	existed, err := e.adapter.Categories().Exists(ctx, path)
	if err != nil {
		return CreateCategoryResult{}, err
	}
	if err := e.adapter.Categories().Ensure(ctx, path); err != nil {
		return CreateCategoryResult{}, err
	}
	return CreateCategoryResult{Path: path.String(), Created: !existed}, nil
}

// SetDescription trims text, enforces the length ceiling, requires the
// category to exist, and refuses protected categories (spec.md §4.5
// setDescription). An empty or whitespace-only string clears the
// description.
func (e *Engine) SetDescription(ctx context.Context, rawPath string, text string) error {
	path, err := model.ParseCategoryPath(rawPath)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) > maxDescriptionLength {
		return cortexerr.Newf(cortexerr.DescriptionTooLong,
			"description length %d exceeds the maximum of %d", len(trimmed), maxDescriptionLength).WithPath(path.String())
	}

	def, err := e.definition(ctx)
	if err != nil {
		return err
	}
	if err := policy.CheckSetDescription(def, path); err != nil {
		return err
	}

	exists, err := e.adapter.Categories().Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return cortexerr.New(cortexerr.CategoryNotFound, "category does not exist").WithPath(path.String())
	}

	var value *string
	if trimmed != "" {
		value = &trimmed
	}
	return e.adapter.Categories().SetDescription(ctx, path, value)
}

// DeleteCategory recursively removes path, refusing the root category
// itself, protected categories, and missing paths (spec.md §4.5
// deleteCategory).
func (e *Engine) DeleteCategory(ctx context.Context, rawPath string) error {
	path, err := model.ParseCategoryPath(rawPath)
	if err != nil {
		return err
	}
	if path.IsRoot() {
		return cortexerr.New(cortexerr.RootCategoryRejected, "the root category cannot be deleted").WithPath(path.String())
	}

	def, err := e.definition(ctx)
	if err != nil {
		return err
	}
	if err := policy.CheckDeleteCategory(def, path); err != nil {
		return err
	}

	exists, err := e.adapter.Categories().Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return cortexerr.New(cortexerr.CategoryNotFound, "category does not exist").WithPath(path.String())
	}

	if err := e.adapter.Categories().Delete(ctx, path); err != nil {
		return err
	}
	if err := e.adapter.Categories().RemoveSubcategoryEntry(ctx, path.Parent(), path); err != nil {
		return err
	}
	// Rebuild the parent's subtree so its index reflects the deletion.
	// Only indexes at or under the parent are rewritten; an entry for the
	// parent in the grandparent's index is left as it was.
	if _, err := e.index.Reindex(ctx, path.Parent()); err != nil {
		e.log.Warn("index repair failed after category delete; awaiting a later reindex",
			zap.String("path", path.String()), zap.Error(err))
	}
	return nil
}
