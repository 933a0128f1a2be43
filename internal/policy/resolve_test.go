package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeseh/cortex/internal/model"
)

func mustSlug(t *testing.T, s string) model.Slug {
	t.Helper()
	slug, err := model.NewSlug(s)
	require.NoError(t, err)
	return slug
}

func mustPath(t *testing.T, s string) model.CategoryPath {
	t.Helper()
	p, err := model.ParseCategoryPath(s)
	require.NoError(t, err)
	return p
}

func boolPtr(b bool) *bool { return &b }

func TestResolve_SystemDefaultsWhenUndeclared(t *testing.T) {
	def := model.StoreDefinition{}
	eff := Resolve(def, mustPath(t, "notes/work"))
	assert.Equal(t, model.SystemDefaultPolicy(), eff)
}

func TestResolve_ChildOverridesParent(t *testing.T) {
	parentMax := 1000
	childMax := 200
	def := model.StoreDefinition{
		Categories: []model.DeclaredCategory{
			{
				Segment: mustSlug(t, "notes"),
				Policies: &model.DeclaredPolicy{
					MaxContentLength: &parentMax,
					Permissions:      model.Permissions{Delete: boolPtr(false)},
				},
				Subcategories: []model.DeclaredCategory{
					{
						Segment: mustSlug(t, "scratch"),
						Policies: &model.DeclaredPolicy{
							MaxContentLength: &childMax,
						},
					},
				},
			},
		},
	}

	eff := Resolve(def, mustPath(t, "notes/scratch"))
	require.NotNil(t, eff.MaxContentLength)
	assert.Equal(t, childMax, *eff.MaxContentLength)
	assert.False(t, eff.CanDelete, "delete=false set at parent must still apply, since the child never overrides it")
}

func TestResolve_UndeclaredIntermediateIsSkipped(t *testing.T) {
	max := 50
	def := model.StoreDefinition{
		Categories: []model.DeclaredCategory{
			{
				Segment:  mustSlug(t, "notes"),
				Policies: &model.DeclaredPolicy{MaxContentLength: &max},
			},
		},
	}

	eff := Resolve(def, mustPath(t, "notes/undeclared/deep"))
	require.NotNil(t, eff.MaxContentLength)
	assert.Equal(t, max, *eff.MaxContentLength)
}

func TestApplyDefaultTTLCeiling(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ttl := time.Hour
	eff := model.EffectivePolicy{DefaultTTL: &ttl}

	t.Run("no request uses the ceiling", func(t *testing.T) {
		got := ApplyDefaultTTLCeiling(eff, nil, now)
		require.NotNil(t, got)
		assert.Equal(t, now.Add(ttl), *got)
	})

	t.Run("earlier request is preserved", func(t *testing.T) {
		requested := now.Add(10 * time.Minute)
		got := ApplyDefaultTTLCeiling(eff, &requested, now)
		assert.Equal(t, requested, *got)
	})

	t.Run("later request is capped", func(t *testing.T) {
		requested := now.Add(2 * time.Hour)
		got := ApplyDefaultTTLCeiling(eff, &requested, now)
		assert.Equal(t, now.Add(ttl), *got)
	})

	t.Run("no policy ttl preserves the request untouched", func(t *testing.T) {
		requested := now.Add(2 * time.Hour)
		got := ApplyDefaultTTLCeiling(model.EffectivePolicy{}, &requested, now)
		assert.Equal(t, &requested, got)
	})
}

func TestCheckCreateCategory_Modes(t *testing.T) {
	declaredRoot := model.DeclaredCategory{Segment: mustSlug(t, "notes")}
	def := model.StoreDefinition{Categories: []model.DeclaredCategory{declaredRoot}}

	t.Run("free allows anything", func(t *testing.T) {
		def.CategoryMode = model.ModeFree
		assert.NoError(t, CheckCreateCategory(def, mustPath(t, "anything/here")))
	})

	t.Run("subcategories rejects undeclared roots", func(t *testing.T) {
		def.CategoryMode = model.ModeSubcategories
		err := CheckCreateCategory(def, mustPath(t, "undeclared"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "ROOT_CATEGORY_NOT_ALLOWED")
	})

	t.Run("subcategories allows nesting under a declared root", func(t *testing.T) {
		def.CategoryMode = model.ModeSubcategories
		assert.NoError(t, CheckCreateCategory(def, mustPath(t, "notes/anything")))
	})

	t.Run("strict rejects anything undeclared", func(t *testing.T) {
		def.CategoryMode = model.ModeStrict
		err := CheckCreateCategory(def, mustPath(t, "notes/undeclared"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "CATEGORY_PROTECTED")
	})
}

func TestIsProtected_AncestorsOfDeclaredAreProtected(t *testing.T) {
	def := model.StoreDefinition{
		Categories: []model.DeclaredCategory{
			{
				Segment: mustSlug(t, "notes"),
				Subcategories: []model.DeclaredCategory{
					{Segment: mustSlug(t, "work")},
				},
			},
		},
	}

	assert.True(t, IsProtected(def, mustPath(t, "notes")))
	assert.True(t, IsProtected(def, mustPath(t, "notes/work")))
	assert.False(t, IsProtected(def, mustPath(t, "notes/personal")))
}
