package supervisor

import (
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/haven-ai/toolhostd/internal/domain"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts losing events rather than blocking transitions.
const subscriberBuffer = 64

// broadcaster fans status events out to subscriber channels. Events for a
// given server are published in transition order because each server emits
// them under its own lock.
type broadcaster struct {
	logger hclog.Logger

	mu     sync.Mutex
	subs   map[int]chan domain.StatusEvent
	nextID int
	closed bool
}

func newBroadcaster(logger hclog.Logger) *broadcaster {
	return &broadcaster{
		logger: logger.Named("events"),
		subs:   make(map[int]chan domain.StatusEvent),
	}
}

// subscribe registers a new buffered subscriber channel and returns it with
// a cancel function that unregisters and closes it.
func (b *broadcaster) subscribe() (<-chan domain.StatusEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.StatusEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// publish delivers ev to every subscriber without blocking; a full subscriber
// drops the event.
func (b *broadcaster) publish(ev domain.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("subscriber channel full, dropping status event",
				"server", ev.ServerID, "status", ev.Status)
		}
	}
}

// closeAll closes every subscriber channel; further publishes are ignored.
func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
