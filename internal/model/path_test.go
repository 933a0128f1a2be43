package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCategoryPath_Root(t *testing.T) {
	for _, s := range []string{"", "/"} {
		p, err := ParseCategoryPath(s)
		require.NoError(t, err)
		require.True(t, p.IsRoot())
		require.Equal(t, 0, p.Depth())
		require.Equal(t, "", p.String())
	}
}

func TestParseCategoryPath_Nested(t *testing.T) {
	p, err := ParseCategoryPath("standards/typescript")
	require.NoError(t, err)
	require.Equal(t, 2, p.Depth())
	require.Equal(t, "standards/typescript", p.String())
	require.Equal(t, "standards", p.Parent().String())
}

func TestParseCategoryPath_CollapsesConsecutiveSeparators(t *testing.T) {
	p, err := ParseCategoryPath("a//b")
	require.NoError(t, err)
	require.Equal(t, "a/b", p.String())
}

func TestParseCategoryPath_InvalidSegment(t *testing.T) {
	_, err := ParseCategoryPath("Standards/TypeScript")
	require.Error(t, err)
}

func TestParseCategoryPath_Idempotent(t *testing.T) {
	p, err := ParseCategoryPath("a/b/c")
	require.NoError(t, err)
	p2, err := ParseCategoryPath(p.String())
	require.NoError(t, err)
	require.True(t, p.Equal(p2))
	require.Equal(t, p.String(), p2.String())
}

func TestCategoryPath_IsChildOf(t *testing.T) {
	root := RootCategory()
	a, _ := ParseCategoryPath("a")
	ab, _ := ParseCategoryPath("a/b")
	c, _ := ParseCategoryPath("c")

	require.True(t, ab.IsChildOf(root))
	require.True(t, ab.IsChildOf(a))
	require.True(t, a.IsChildOf(a))
	require.False(t, ab.IsChildOf(c))
}

func TestParseMemoryPath_RoundTrip(t *testing.T) {
	cases := []string{"note", "standards/typescript/style", "notes/alpha"}
	for _, s := range cases {
		mp, err := ParseMemoryPath(s)
		require.NoError(t, err)
		require.Equal(t, s, mp.String())

		mp2, err := ParseMemoryPath(mp.String())
		require.NoError(t, err)
		require.True(t, mp.Equal(mp2))
	}
}

func TestParseMemoryPath_DepthInvariant(t *testing.T) {
	mp, err := ParseMemoryPath("standards/typescript/style")
	require.NoError(t, err)
	require.Equal(t, mp.Category().Depth(), mp.Depth()-1)
}

func TestParseMemoryPath_Empty(t *testing.T) {
	_, err := ParseMemoryPath("")
	require.Error(t, err)
}
