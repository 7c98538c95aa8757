package search

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

func insert(t *testing.T, database *sql.DB, title, description, location, category, status string) *model.Item {
	t.Helper()
	item, err := store.InsertItem(context.Background(), database, model.ItemDraft{
		Title:        title,
		Description:  description,
		Location:     location,
		Category:     category,
		Status:       status,
		DateLost:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ContactEmail: "finder@campus.edu",
	}, nil)
	require.NoError(t, err)
	return item
}

func ids(items []model.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestSearchBackpackExample(t *testing.T) {
	database := db.NewTestDB(t)
	a := insert(t, database, "Blue Backpack", "zipper broken", "Library", model.CategoryBackpack, "")
	insert(t, database, "Red Wallet", "student ID inside", "Cafeteria", model.CategoryWallet, "")

	page, err := Search(context.Background(), database, Query{Text: "backpack", Status: Status(""), Page: 1, PageSize: 12})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids(page.Items))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.TotalPages)
}

func TestSearchStatusThreeWay(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	lost := insert(t, database, "Umbrella", "black", "Gym", "", model.ItemStatusLost)
	found := insert(t, database, "Scarf", "green", "Gym", "", model.ItemStatusFound)

	tests := []struct {
		name   string
		status *string
		want   []int64
	}{
		{"omitted defaults to lost", nil, []int64{lost.ID}},
		{"all", Status("all"), []int64{found.ID, lost.ID}},
		{"explicit empty", Status(""), []int64{found.ID, lost.ID}},
		{"found", Status("found"), []int64{found.ID}},
		{"lost", Status("lost"), []int64{lost.ID}},
		{"unknown matches nothing", Status("stolen"), []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Search(ctx, database, Query{Status: tt.status})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
		})
	}
}

func TestSearchCategoryExact(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	keys := insert(t, database, "Car keys", "toyota", "Lot B", model.CategoryKeys, "")
	insert(t, database, "Keyboard", "wireless", "Lab 3", model.CategoryElectronics, "")

	page, err := Search(ctx, database, Query{Category: model.CategoryKeys})
	require.NoError(t, err)
	assert.Equal(t, []int64{keys.ID}, ids(page.Items))

	page, err = Search(ctx, database, Query{Category: "key"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalPages)
}

func TestSearchFreeTextMatchesAnyField(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	insert(t, database, "Calculator", "TI-84", "Math building", model.CategoryElectronics, "")
	insert(t, database, "Notebook", "physics notes", "Library", model.CategoryBooks, "")
	insert(t, database, "Hoodie", "grey, says MATH CLUB", "Gym", model.CategoryClothing, "")
	insert(t, database, "Bottle", "steel", "Aula Magna", model.CategoryOther, "")

	for _, text := range []string{"math", "  MATH ", "li", "notes", "nothing-here"} {
		t.Run(text, func(t *testing.T) {
			page, err := Search(ctx, database, Query{Text: text, Status: Status("all")})
			require.NoError(t, err)

			all, err := Search(ctx, database, Query{Status: Status("all"), PageSize: 100})
			require.NoError(t, err)

			needle := strings.ToLower(strings.TrimSpace(text))
			var want []int64
			for _, item := range all.Items {
				if strings.Contains(strings.ToLower(item.Title), needle) ||
					strings.Contains(strings.ToLower(item.Description), needle) ||
					strings.Contains(strings.ToLower(item.Location), needle) {
					want = append(want, item.ID)
				}
			}
			if want == nil {
				want = []int64{}
			}
			assert.Equal(t, want, ids(page.Items))
			assert.Equal(t, len(want), page.Total)
		})
	}
}

func TestSearchPagesConcatenateToFullSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	for i := range 7 {
		status := model.ItemStatusLost
		if i%3 == 0 {
			status = model.ItemStatusFound
		}
		insert(t, database, fmt.Sprintf("Item %d", i), "thing", "Hall", "", status)
	}

	full, err := Search(ctx, database, Query{Status: Status("all"), PageSize: 100})
	require.NoError(t, err)
	require.Len(t, full.Items, 7)

	for size := 1; size <= 8; size++ {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			var got []int64
			first, err := Search(ctx, database, Query{Status: Status("all"), Page: 1, PageSize: size})
			require.NoError(t, err)
			assert.Equal(t, (7+size-1)/size, first.TotalPages)

			for n := 1; n <= first.TotalPages; n++ {
				page, err := Search(ctx, database, Query{Status: Status("all"), Page: n, PageSize: size})
				require.NoError(t, err)
				assert.Equal(t, 7, page.Total)
				got = append(got, ids(page.Items)...)
			}
			assert.Equal(t, ids(full.Items), got)
		})
	}
}

func TestSearchPageBounds(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	for i := range 3 {
		insert(t, database, fmt.Sprintf("Item %d", i), "thing", "Hall", "", "")
	}

	page, err := Search(ctx, database, Query{Page: -4, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasPrev())
	assert.True(t, page.HasNext())

	page, err = Search(ctx, database, Query{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 9, page.Number)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	for _, n := range []int{math.MaxInt, math.MaxInt/12 + 2, math.MaxInt/2 + 1} {
		page, err = Search(ctx, database, Query{Page: n, PageSize: 12})
		require.NoError(t, err)
		assert.Equal(t, n, page.Number)
		assert.Empty(t, page.Items, "page %d", n)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.False(t, page.HasNext())
	}

	page, err = Search(ctx, database, Query{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Items, 3)
}
