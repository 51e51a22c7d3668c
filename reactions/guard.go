package reactions

import (
	"context"
	"sync"
)

// LocalGuard is an in-process keyed mutex. It serialises toggles issued
// through one process only.
type LocalGuard struct {
	mu    sync.Mutex
	slots map[string]*guardSlot
}

type guardSlot struct {
	ch   chan struct{}
	refs int
}

var _ Guard = (*LocalGuard)(nil)

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{slots: make(map[string]*guardSlot)}
}

func (g *LocalGuard) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()

	slot, ok := g.slots[key]
	if !ok {
		slot = &guardSlot{ch: make(chan struct{}, 1)}
		g.slots[key] = slot
	}

	slot.refs++
	g.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		g.drop(key, slot)

		return nil, ctx.Err()
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-slot.ch
			g.drop(key, slot)
		})
	}, nil
}

func (g *LocalGuard) drop(key string, slot *guardSlot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(g.slots, key)
	}
}

// NopGuard never blocks. Toggles for the same post and user then race like
// toggles from processes without a shared guard.
type NopGuard struct{}

var _ Guard = NopGuard{}

func (NopGuard) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
