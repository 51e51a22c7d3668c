package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/store"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStale is returned by LoadMore when the paginator was reset or closed
	// while the fetch was in flight. The fetched page is discarded.
	ErrStale = errors.New("stale page discarded")

	ErrClosed = errors.New("paginator closed")
)

const errorsBuffer = 8

// Paginator accumulates feed pages for one viewer. It is safe for concurrent
// use; concurrent LoadMore calls for the same cursor share one fetch.
type Paginator struct {
	feed  *Feed
	group singleflight.Group

	mu         sync.Mutex
	items      []*contents.Post
	cursor     *Cursor
	exhausted  bool
	closed     bool
	generation uint64
	errs       chan error
}

func NewPaginator(feed *Feed) *Paginator {
	return &Paginator{
		feed:  feed,
		items: make([]*contents.Post, 0),
		errs:  make(chan error, errorsBuffer),
	}
}

// LoadMore fetches the page after the current cursor and merges it into the
// accumulated items. It returns how many new posts were added. Once the feed
// is exhausted it returns immediately without a fetch.
func (p *Paginator) LoadMore(ctx context.Context) (int, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return 0, ErrClosed
	}

	if p.exhausted {
		p.mu.Unlock()

		return 0, nil
	}

	generation := p.generation
	cursor := p.cursor
	p.mu.Unlock()

	key := fmt.Sprintf("%d/", generation)
	if cursor != nil {
		key += cursor.String()
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own ctx is done.
	flight := p.group.DoChan(key, func() (any, error) {
		if loaded := p.alreadyLoaded(generation, cursor); loaded {
			return 0, nil
		}

		page, err := p.feed.FetchPage(context.WithoutCancel(ctx), cursor)

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.generation != generation {
			return 0, ErrStale
		}

		if err != nil {
			if store.IsUnavailable(err) {
				p.report(err)
			}

			return 0, err
		}

		before := len(p.items)
		p.items = AppendPage(p.items, page.Items)
		p.exhausted = page.Exhausted

		if page.Next != nil {
			p.cursor = page.Next
		}

		return len(p.items) - before, nil
	})

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("failed to wait for page: %w", ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			return 0, res.Err
		}

		return res.Val.(int), nil
	}
}

// alreadyLoaded reports whether the page after cursor was merged by a fetch
// that completed before this caller joined the flight.
func (p *Paginator) alreadyLoaded(generation uint64, cursor *Cursor) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.generation != generation {
		return false
	}

	return p.exhausted || !sameCursor(p.cursor, cursor)
}

func sameCursor(a, b *Cursor) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.ID == b.ID && a.CreatedAt.Equal(b.CreatedAt)
}

// report must be called with mu held.
func (p *Paginator) report(err error) {
	select {
	case p.errs <- err:
	default:
		slog.Warn("feed error channel full, dropping error", "error", err)
	}
}

// Reset forgets every loaded page so the next LoadMore starts from the newest
// post. Fetches still in flight are discarded when they complete.
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	p.items = make([]*contents.Post, 0)
	p.cursor = nil
	p.exhausted = false
}

// Close discards in-flight fetches and closes the Errors channel.
func (p *Paginator) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.generation++
	p.closed = true
	close(p.errs)
}

// Errors delivers store failures met by LoadMore.
func (p *Paginator) Errors() <-chan error {
	return p.errs
}

func (p *Paginator) Items() []*contents.Post {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.items)
}

func (p *Paginator) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exhausted
}

func (p *Paginator) Cursor() *Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cursor == nil {
		return nil
	}

	c := *p.cursor

	return &c
}
