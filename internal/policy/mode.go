package policy

import (
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

// CheckCreateCategory enforces def.CategoryMode against a proposed new
// category path (spec.md §4.4 mode enforcement):
//
//   - free: no restriction.
//   - subcategories: rejects new root categories (depth 1) that are not
//     themselves config-declared; subcategories under a declared root
//     are permitted regardless of whether they are declared.
//   - strict: rejects any category not itself config-declared.
func CheckCreateCategory(def model.StoreDefinition, path model.CategoryPath) error {
	if path.IsRoot() {
		return nil
	}

	switch def.CategoryMode {
	case model.ModeFree, "":
		return nil

	case model.ModeSubcategories:
		root := rootSegment(path)
		if IsDeclared(def, root) {
			return nil
		}
		return cortexerr.Newf(cortexerr.RootCategoryNotAllowed,
			"category %q is not a declared root category and store mode is %q", path.String(), def.CategoryMode).
			WithPath(path.String()).
			WithRemediation("declare this root category in the store configuration, or create it under an existing declared root")

	case model.ModeStrict:
		if IsDeclared(def, path) {
			return nil
		}
		return cortexerr.Newf(cortexerr.CategoryProtected,
			"category %q is not declared and store mode is %q", path.String(), def.CategoryMode).
			WithPath(path.String()).
			WithRemediation("declare this category in the store configuration before creating it")

	default:
		return nil
	}
}

// rootSegment returns the depth-1 ancestor of path (path itself if path
// is already depth 1).
func rootSegment(path model.CategoryPath) model.CategoryPath {
	segs := path.Segments()
	return model.RootCategory().Child(segs[0])
}

// CheckDeleteCategory enforces that config-declared categories, and any
// ancestor of one, cannot be deleted (spec.md §4.4).
func CheckDeleteCategory(def model.StoreDefinition, path model.CategoryPath) error {
	if IsProtected(def, path) {
		return cortexerr.Newf(cortexerr.CategoryProtected,
			"category %q is declared in store configuration and cannot be deleted", path.String()).
			WithPath(path.String())
	}
	return nil
}

// CheckSetDescription rejects description changes on config-declared
// categories. Unlike deletion, ancestors of declared categories
// (including root) are not protected here (spec.md §4.4 and §4.5
// setDescription).
func CheckSetDescription(def model.StoreDefinition, path model.CategoryPath) error {
	if IsDeclared(def, path) {
		return cortexerr.Newf(cortexerr.CategoryProtected,
			"category %q is declared in store configuration and its description cannot be changed", path.String()).
			WithPath(path.String())
	}
	return nil
}
