// Package search composes the listing filters into a single predicate over
// the item store and slices the result into pages.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// DefaultPageSize is the number of items per listing page.
const DefaultPageSize = 12

// Query describes one listing request.
type Query struct {
	// Text is matched case-insensitively against title, description and
	// location. Empty disables the text filter.
	Text string
	// Category must match exactly. Empty disables the category filter.
	Category string
	// Status filters by item status. Nil means the caller did not specify
	// one and defaults to lost. "all" or "" disable the status filter.
	Status *string
	// Page is 1-indexed. Values below 1 are clamped to 1.
	Page int
	// PageSize defaults to DefaultPageSize when below 1.
	PageSize int
}

// Page is one slice of a listing.
type Page struct {
	Items      []model.Item `json:"items"`
	Number     int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	Total      int          `json:"total"`
}

// HasPrev reports whether a page precedes this one.
func (p *Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *Page) HasNext() bool { return p.Number < p.TotalPages }

// Status returns a pointer to s, for building queries with an explicit status.
func Status(s string) *string { return &s }

// Predicate builds the combined item predicate for q.
func (q Query) Predicate() store.Predicate {
	var preds []store.Predicate
	if text := strings.TrimSpace(q.Text); text != "" {
		preds = append(preds, store.TextContains(text))
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		preds = append(preds, store.CategoryIs(category))
	}

	status := model.ItemStatusLost
	if q.Status != nil {
		status = strings.TrimSpace(*q.Status)
	}
	if status != "" && status != model.StatusAll {
		preds = append(preds, store.StatusIs(status))
	}
	return store.All(preds...)
}

// Search returns the requested page of items matching q, newest first.
func Search(ctx context.Context, db *sql.DB, q Query) (*Page, error) {
	size := q.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	number := max(q.Page, 1)

	// A page whose offset does not fit in an int lies past any result set;
	// a zero limit still yields the total.
	offset, limit := 0, 0
	if number-1 <= math.MaxInt/size {
		offset, limit = (number-1)*size, size
	}

	items, total, err := store.QueryItems(ctx, db, q.Predicate(), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}

	return &Page{
		Items:      items,
		Number:     number,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
		Total:      total,
	}, nil
}
