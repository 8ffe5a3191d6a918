package schema

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Notifier fans schema refresh requests out to interested listeners, e.g.
// when an admin surface wants controllers re-described after a migration.
type Notifier struct {
	mu        sync.RWMutex
	listeners []func(context.Context, uuid.UUID, map[string]any)
}

// NewNotifier constructs an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Register subscribes a listener to refresh events. Nil listeners are dropped.
func (n *Notifier) Register(listener func(context.Context, uuid.UUID, map[string]any)) {
	if listener == nil {
		return
	}
	n.mu.Lock()
	n.listeners = append(n.listeners, listener)
	n.mu.Unlock()
}

// Notify tells every listener that the given actor requested a refresh.
// Listeners run synchronously on the caller's goroutine.
func (n *Notifier) Notify(ctx context.Context, actorID uuid.UUID, metadata map[string]any) {
	n.mu.RLock()
	listeners := make([]func(context.Context, uuid.UUID, map[string]any), len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.RUnlock()

	for _, listener := range listeners {
		listener(ctx, actorID, metadata)
	}
}
