// Package policy resolves a store's declared category policies into the
// effective policy that governs a given path, and enforces category
// governance mode (spec.md §4.4). The resolver is pure: it consults only
// an already-loaded model.StoreDefinition and performs no I/O.
package policy

import (
	"time"

	"github.com/yeseh/cortex/internal/model"
)

// Resolve walks def's declared category tree from root to target,
// merging policies block with child-overrides-parent semantics. Fields
// left unset at every level fall back to model.SystemDefaultPolicy.
func Resolve(def model.StoreDefinition, target model.CategoryPath) model.EffectivePolicy {
	eff := model.SystemDefaultPolicy()

	nodes := def.Categories
	for _, segment := range target.Segments() {
		node, ok := findSegment(nodes, segment)
		if !ok {
			// Undeclared categories contribute no policy; inheritance
			// simply walks past them (spec.md §4.4).
			continue
		}
		if node.Policies != nil {
			merge(&eff, *node.Policies)
		}
		nodes = node.Subcategories
	}

	return eff
}

func findSegment(nodes []model.DeclaredCategory, segment model.Slug) (model.DeclaredCategory, bool) {
	for _, n := range nodes {
		if n.Segment.Equal(segment) {
			return n, true
		}
	}
	return model.DeclaredCategory{}, false
}

func merge(eff *model.EffectivePolicy, decl model.DeclaredPolicy) {
	if decl.DefaultTTL != nil {
		eff.DefaultTTL = decl.DefaultTTL
	}
	if decl.MaxContentLength != nil {
		eff.MaxContentLength = decl.MaxContentLength
	}
	if decl.Permissions.Create != nil {
		eff.CanCreate = *decl.Permissions.Create
	}
	if decl.Permissions.Update != nil {
		eff.CanUpdate = *decl.Permissions.Update
	}
	if decl.Permissions.Delete != nil {
		eff.CanDelete = *decl.Permissions.Delete
	}
	if decl.SubcategoryCreation != nil {
		eff.SubcategoryCreation = *decl.SubcategoryCreation
	}
}

// ApplyDefaultTTLCeiling implements the defaultTtl semantics of spec.md
// §4.4: a ceiling, not a default. If requested is nil, the ceiling
// becomes the expiry. If requested is before the ceiling, it is used
// as-is. If requested is after the ceiling, it is silently capped.
func ApplyDefaultTTLCeiling(eff model.EffectivePolicy, requested *time.Time, now time.Time) *time.Time {
	if eff.DefaultTTL == nil {
		return requested
	}
	ceiling := now.Add(*eff.DefaultTTL)
	if requested == nil {
		return &ceiling
	}
	if requested.After(ceiling) {
		return &ceiling
	}
	return requested
}

// DeclaredCategoryPaths flattens def's declared category tree into the
// set of full CategoryPaths it names, used by mode enforcement and by
// protected-category checks.
func DeclaredCategoryPaths(def model.StoreDefinition) []model.CategoryPath {
	var out []model.CategoryPath
	var walk func(prefix model.CategoryPath, nodes []model.DeclaredCategory)
	walk = func(prefix model.CategoryPath, nodes []model.DeclaredCategory) {
		for _, n := range nodes {
			p := prefix.Child(n.Segment)
			out = append(out, p)
			walk(p, n.Subcategories)
		}
	}
	walk(model.RootCategory(), def.Categories)
	return out
}

// IsDeclared reports whether path names an entry in def's declared
// category tree.
func IsDeclared(def model.StoreDefinition, path model.CategoryPath) bool {
	for _, p := range DeclaredCategoryPaths(def) {
		if p.Equal(path) {
			return true
		}
	}
	return false
}

// IsProtected reports whether path is config-declared, or is an
// ancestor of a config-declared category — both are protected from
// deletion regardless of mode (spec.md §4.4). Description changes are
// checked against IsDeclared alone (see CheckSetDescription).
func IsProtected(def model.StoreDefinition, path model.CategoryPath) bool {
	for _, p := range DeclaredCategoryPaths(def) {
		if p.Equal(path) || p.IsChildOf(path) {
			return true
		}
	}
	return false
}
