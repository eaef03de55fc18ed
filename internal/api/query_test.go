package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectionQueryValuesOmitsUnsetFields(t *testing.T) {
	require.Empty(t, CollectionQuery{}.Values().Encode())

	q := CollectionQuery{Page: 2, PageSize: 20, NameFilter: "  ", SortKey: SortScore}
	require.Equal(t, "page=2&page_size=20&sort_by=edge_score", q.Values().Encode())

	q = DefaultQuery(20).WithNameFilter("mean rev")
	require.Equal(t, "page=1&page_size=20&sort_by=created_at&sort_order=desc&strategy_name=mean+rev", q.Values().Encode())
}

func TestCollectionQueryChangesResetPage(t *testing.T) {
	base := DefaultQuery(20).WithPage(4)
	require.Equal(t, 4, base.Page)

	require.Equal(t, 1, base.WithNameFilter("mean").Page)
	require.Equal(t, 1, base.WithSort(SortRisk, Ascending).Page)
	require.Equal(t, 4, base.Page, "original query must not change")
	require.Equal(t, 1, base.WithPage(-3).Page)
}

func TestParseSortKeyAndOrder(t *testing.T) {
	for in, want := range map[string]SortKey{
		"submitted": SortSubmittedAt, "created_at": SortSubmittedAt,
		"Score": SortScore, "risk": SortRisk, "overfit_probability": SortRisk,
	} {
		got, err := ParseSortKey(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseSortKey("alpha")
	require.Error(t, err)

	o, err := ParseSortOrder("DESC")
	require.NoError(t, err)
	require.Equal(t, Descending, o)
	require.Equal(t, Ascending, o.Reverse())
	_, err = ParseSortOrder("sideways")
	require.Error(t, err)
}

func TestPagePagination(t *testing.T) {
	require.True(t, Page{Page: 2, PageSize: 20, Total: 25}.IsLast())
	require.False(t, Page{Page: 1, PageSize: 20, Total: 25}.IsLast())
	require.True(t, Page{Page: 1, PageSize: 20, Total: 20}.IsLast())
	require.Equal(t, 2, Page{PageSize: 20, Total: 25}.TotalPages())
	require.Equal(t, 1, Page{PageSize: 20}.TotalPages())
}

func TestTemplateCloneDoesNotAlias(t *testing.T) {
	orig := Template{Name: "alpha", Assets: []string{"SPY", "QQQ"}}
	c := orig.Clone()
	orig.Assets[0] = "IWM"
	require.Equal(t, []string{"SPY", "QQQ"}, c.Assets)
	require.True(t, c.HasAsset("QQQ"))
	require.False(t, c.HasAsset("IWM"))
}
