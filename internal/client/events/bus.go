// Package events carries session and cache notifications from the services
// layer to the UI without either side knowing about the other.
package events

import (
	"sync"

	"github.com/dmitrijs2005/writedesk/internal/client/metrics"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
)

const defaultBuffer = 16

// Event is one of SessionReady, SessionExpired, CacheError or
// MutationSucceeded.
type Event interface {
	Kind() string
}

// SessionReady is published once Initialize has finished, whatever the
// outcome.
type SessionReady struct {
	Authenticated bool
}

// SessionExpired is published when the session is dropped because it could
// not be refreshed.
type SessionExpired struct{}

// CacheError carries the human-readable message of a failed cache operation.
type CacheError struct {
	Op      string
	Message string
}

// MutationSucceeded is published after a confirmed create, update, delete
// or restore. Project is nil for delete-style operations.
type MutationSucceeded struct {
	Op      string
	ID      string
	Project *models.Project
}

func (SessionReady) Kind() string      { return "session-ready" }
func (SessionExpired) Kind() string    { return "session-expired" }
func (CacheError) Kind() string        { return "cache-error" }
func (MutationSucceeded) Kind() string { return "mutation-succeeded" }

// Bus fans events out to subscribers. Publish never blocks: an event is
// dropped for a subscriber whose buffer is full. A nil *Bus discards
// everything.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	next    int
	buffer  int
	metrics *metrics.Metrics
}

type Option func(*Bus)

func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{subs: map[int]chan Event{}, buffer: defaultBuffer}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe returns a channel receiving every event published from now on,
// and a cancel func that closes it. Cancel is idempotent.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.metrics.ObserveDroppedEvent(e.Kind())
		}
	}
}
