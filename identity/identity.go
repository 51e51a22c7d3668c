// Package identity is the contract with the external identity provider: who
// the current user is, and a subscription to changes of that answer.
package identity

import (
	"context"
	"errors"
	"sync"
)

type Identity struct {
	UserID      string
	DisplayName string
}

// DefaultDisplayName is used when the provider knows the user but not a name.
const DefaultDisplayName = "Anonymous"

func (id Identity) Name() string {
	if id.DisplayName == "" {
		return DefaultDisplayName
	}

	return id.DisplayName
}

type State int

const (
	// Unknown means the provider has not reported yet. It is not Anonymous.
	Unknown State = iota
	Anonymous
	SignedIn
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case SignedIn:
		return "signed-in"
	default:
		return "unknown"
	}
}

var ErrAnonymous = errors.New("interaction requires a signed-in user")

type contextKeyIdentity struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, id)
}

// FromContext returns ErrAnonymous when ctx carries no signed-in user.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(contextKeyIdentity{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrAnonymous
	}

	return id, nil
}

// Listener receives the state and, when SignedIn, the identity.
type Listener func(state State, id *Identity)

// Watcher fans provider callbacks out to subscribers. In a client it tracks
// the one signed-in user. A server shares one Watcher between all sessions,
// so there it only reports hand-off events and Current is the latest one.
// Per-request identity comes from FromContext.
type Watcher struct {
	mu        sync.Mutex
	state     State
	current   *Identity
	nextID    int
	listeners map[int]Listener
}

func NewWatcher() *Watcher {
	return &Watcher{
		state:     Unknown,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l. If the provider has already reported, l is called
// immediately with the current state. The returned func unsubscribes and is
// safe to call more than once.
func (w *Watcher) Subscribe(l Listener) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = l
	state, current := w.state, w.current
	w.mu.Unlock()

	if state != Unknown {
		l(state, current)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

func (w *Watcher) Current() (State, *Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state, w.current
}

func (w *Watcher) SignIn(id Identity) {
	w.publish(SignedIn, &id)
}

func (w *Watcher) SignOut() {
	w.publish(Anonymous, nil)
}

func (w *Watcher) publish(state State, id *Identity) {
	w.mu.Lock()
	w.state = state
	w.current = id

	listeners := make([]Listener, 0, len(w.listeners))
	for _, l := range w.listeners {
		listeners = append(listeners, l)
	}
	w.mu.Unlock()

	for _, l := range listeners {
		l(state, id)
	}
}
