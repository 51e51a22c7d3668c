// Package feed pages the post collection newest first and accumulates the
// pages into a deduplicated timeline.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/store"
)

const (
	DefaultPageSize = 2
	MaxPageSize     = 50
)

type Source interface {
	ListPage(ctx context.Context, after *contents.PageKey, limit int) ([]*contents.Post, error)
}

type Page struct {
	Items     []*contents.Post `json:"items"`
	Next      *Cursor          `json:"nextCursor"`
	Exhausted bool             `json:"exhausted"`
}

type Feed struct {
	source   Source
	pageSize int
}

type Option func(f *Feed)

// WithPageSize sets the page size. Values outside 1..MaxPageSize are ignored.
func WithPageSize(size int) Option {
	return func(f *Feed) {
		if size > 0 && size <= MaxPageSize {
			f.pageSize = size
		}
	}
}

func New(source Source, opts ...Option) *Feed {
	f := &Feed{
		source:   source,
		pageSize: DefaultPageSize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Feed) PageSize() int {
	return f.pageSize
}

// FetchPage returns the page strictly after cursor, or the newest page for a
// nil cursor. A page shorter than the page size is the last one; it carries
// no next cursor.
func (f *Feed) FetchPage(ctx context.Context, cursor *Cursor) (Page, error) {
	return f.FetchPageSize(ctx, cursor, f.pageSize)
}

// FetchPageSize is FetchPage with a per call page size.
func (f *Feed) FetchPageSize(ctx context.Context, cursor *Cursor, size int) (Page, error) {
	if size <= 0 || size > MaxPageSize {
		size = f.pageSize
	}

	items, err := f.source.ListPage(ctx, cursor.pageKey(), size)
	if err != nil {
		empty := Page{Items: make([]*contents.Post, 0)}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return empty, fmt.Errorf("failed to fetch page: %w", err)
		}

		return empty, fmt.Errorf("failed to fetch page: %w", store.Unavailable("list page", err))
	}

	page := Page{
		Items:     items,
		Exhausted: len(items) < size,
	}

	if !page.Exhausted {
		page.Next = cursorOf(items[len(items)-1])
	}

	return page, nil
}

// AppendPage concatenates items to existing and drops every post whose id was
// already seen, keeping the first occurrence.
func AppendPage(existing, items []*contents.Post) []*contents.Post {
	merged := make([]*contents.Post, 0, len(existing)+len(items))
	seen := make(map[string]struct{}, len(existing)+len(items))

	for _, list := range [][]*contents.Post{existing, items} {
		for _, post := range list {
			if _, ok := seen[post.ID]; ok {
				continue
			}

			seen[post.ID] = struct{}{}
			merged = append(merged, post)
		}
	}

	return merged
}
