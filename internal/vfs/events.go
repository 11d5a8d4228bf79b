package vfs

import (
	"sync"

	"github.com/google/uuid"
	"github.com/virtualmacros/vfs/internal/shared/paths"
)

// Handler receives change events. Handlers run synchronously on the
// mutating caller's goroutine and must not block.
type Handler func(Event)

type subscription struct {
	prefix  string // empty means every event
	handler Handler
}

// Notifier is a typed observer registry for change events. Subscribing
// returns an explicit unsubscribe handle.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string]subscription
}

// NewNotifier creates an empty registry.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]subscription)}
}

// On subscribes to every change event.
func (n *Notifier) On(h Handler) (unsubscribe func()) {
	return n.add(subscription{handler: h})
}

// WatchPath subscribes to change events whose path equals the watched
// path or lies below it.
func (n *Notifier) WatchPath(path string, h Handler) (unsubscribe func(), err error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return nil, err
	}
	return n.add(subscription{prefix: p, handler: h}), nil
}

func (n *Notifier) add(sub subscription) func() {
	key := uuid.NewString()

	n.mu.Lock()
	n.subs[key] = sub
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, key)
		n.mu.Unlock()
	}
}

// Emit delivers an event to all matching subscribers.
func (n *Notifier) Emit(e Event) {
	n.mu.RLock()
	matched := make([]Handler, 0, len(n.subs))
	for _, sub := range n.subs {
		if sub.prefix == "" || sub.prefix == e.Path || paths.IsDescendant(sub.prefix, e.Path) {
			matched = append(matched, sub.handler)
		}
	}
	n.mu.RUnlock()

	for _, h := range matched {
		h(e)
	}
}
