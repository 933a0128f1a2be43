package policy

import (
	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

// CheckCreatePermission enforces eff.CanCreate (spec.md §4.5 createMemory
// validator checkCreatePermission).
func CheckCreatePermission(eff model.EffectivePolicy, path model.MemoryPath) error {
	if !eff.CanCreate {
		return cortexerr.Newf(cortexerr.OperationNotPermitted,
			"create is not permitted under %q", path.Category().String()).WithPath(path.String())
	}
	return nil
}

// CheckUpdatePermission enforces eff.CanUpdate (updateMemory validator
// checkUpdatePermission).
func CheckUpdatePermission(eff model.EffectivePolicy, path model.MemoryPath) error {
	if !eff.CanUpdate {
		return cortexerr.Newf(cortexerr.OperationNotPermitted,
			"update is not permitted under %q", path.Category().String()).WithPath(path.String())
	}
	return nil
}

// CheckDeletePermission enforces eff.CanDelete (removeMemory validator
// checkDeletePermission).
func CheckDeletePermission(eff model.EffectivePolicy, path model.MemoryPath) error {
	if !eff.CanDelete {
		return cortexerr.Newf(cortexerr.OperationNotPermitted,
			"delete is not permitted under %q", path.Category().String()).WithPath(path.String())
	}
	return nil
}

// ValidateMaxContentLength enforces eff.MaxContentLength against content,
// when the policy declares a limit.
func ValidateMaxContentLength(eff model.EffectivePolicy, path model.MemoryPath, content string) error {
	if eff.MaxContentLength == nil {
		return nil
	}
	if len(content) > *eff.MaxContentLength {
		return cortexerr.Newf(cortexerr.ContentTooLong,
			"content length %d exceeds the maximum of %d for %q", len(content), *eff.MaxContentLength, path.Category().String()).
			WithPath(path.String())
	}
	return nil
}

// CheckSubcategoryCreation enforces eff.SubcategoryCreation for a
// proposed child category.
func CheckSubcategoryCreation(eff model.EffectivePolicy, child model.CategoryPath) error {
	if !eff.SubcategoryCreation {
		return cortexerr.Newf(cortexerr.SubcategoryCreationNotAllowed,
			"subcategory creation is not permitted under %q", child.Parent().String()).WithPath(child.String())
	}
	return nil
}
