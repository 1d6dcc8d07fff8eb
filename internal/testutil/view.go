package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Sternrassler/blamebot/pkg/pagination"
)

// SliceView is an in-memory pagination.View over strings. Its filter is the
// raw parameter list; a non-empty first parameter keeps only items with
// that prefix.
type SliceView struct {
	mu      sync.Mutex
	items   []string
	fetches []int

	// FetchErr is returned from Fetch when set.
	FetchErr error
}

// NewSliceView creates a view over items.
func NewSliceView(items ...string) *SliceView {
	return &SliceView{items: items}
}

// NumberedItems returns n items named "item-1" .. "item-n".
func NumberedItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i+1)
	}
	return items
}

// SetItems replaces the underlying data.
func (v *SliceView) SetItems(items ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = items
}

// Fetch implements pagination.View.
func (v *SliceView) Fetch(_ context.Context, page, pageSize int, filter []string) (pagination.Data[string], error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.fetches = append(v.fetches, page)
	if v.FetchErr != nil {
		return pagination.Data[string]{}, v.FetchErr
	}

	matched := v.items
	if len(filter) > 0 && filter[0] != "" {
		matched = nil
		for _, it := range v.items {
			if strings.HasPrefix(it, filter[0]) {
				matched = append(matched, it)
			}
		}
	}

	start := pagination.Offset(page, pageSize)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return pagination.NewData(append([]string(nil), matched[start:end]...), len(matched), page, pageSize), nil
}

// Render implements pagination.View.
func (v *SliceView) Render(data pagination.Data[string], filter []string) pagination.Embed {
	return pagination.Embed{
		Title:       "Items",
		Description: strings.Join(data.Items, "\n"),
		Footer:      fmt.Sprintf("Page %d/%d", data.CurrentPage, data.TotalPages),
	}
}

// Fetches returns the pages requested so far.
func (v *SliceView) Fetches() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.fetches...)
}

// ResetFetches clears the fetch log.
func (v *SliceView) ResetFetches() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fetches = nil
}
