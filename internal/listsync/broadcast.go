package listsync

import (
	"context"
	"sync"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
)

const subscriberBufferSize = 16

type subscriber[R records.Record] struct {
	stream chan State[R]
	done   chan struct{}
}

// broadcaster fans state snapshots out to subscribers. Sends never block:
// a subscriber whose buffer is full misses that snapshot.
type broadcaster[R records.Record] struct {
	mu          sync.RWMutex
	subscribers map[int64]subscriber[R]
	nextID      int64
	closed      bool
}

func newBroadcaster[R records.Record]() *broadcaster[R] {
	return &broadcaster[R]{subscribers: make(map[int64]subscriber[R])}
}

// subscribe registers a stream that ends when ctx is done, cleanup is called
// or the broadcaster closes, whichever comes first.
func (b *broadcaster[R]) subscribe(ctx context.Context) (<-chan State[R], func()) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		stream := make(chan State[R])
		close(stream)
		return stream, func() {}
	}
	b.nextID++
	id := b.nextID
	entry := subscriber[R]{
		stream: make(chan State[R], subscriberBufferSize),
		done:   make(chan struct{}),
	}
	b.subscribers[id] = entry
	b.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() { b.unsubscribe(id) })
	}
	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-entry.done:
		}
	}()
	return entry.stream, cleanup
}

func (b *broadcaster[R]) unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	entry.release()
}

func (b *broadcaster[R]) publish(state State[R]) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, entry := range b.subscribers {
		select {
		case entry.stream <- state:
		default:
		}
	}
}

func (b *broadcaster[R]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, entry := range b.subscribers {
		delete(b.subscribers, id)
		entry.release()
	}
}

func (s subscriber[R]) release() {
	close(s.done)
	close(s.stream)
}
