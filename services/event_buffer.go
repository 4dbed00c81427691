package services

import (
	"sync"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

// eventBufferCapacity bounds the in-memory per-server event history exposed
// by the debug endpoint. Older events remain in the database log.
const eventBufferCapacity = 100

// eventBuffer keeps the most recent events per server in memory. Safe for
// concurrent use.
type eventBuffer struct {
	mu       sync.Mutex
	capacity int
	byServer map[string][]*models.StoredEvent
}

func newEventBuffer(capacity int) *eventBuffer {
	return &eventBuffer{
		capacity: capacity,
		byServer: make(map[string][]*models.StoredEvent),
	}
}

func (b *eventBuffer) push(serverID string, ev *models.StoredEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := append(b.byServer[serverID], ev)
	if len(events) > b.capacity {
		events = events[len(events)-b.capacity:]
	}
	b.byServer[serverID] = events
}

// recent returns newest-first copies of the buffered events for a server.
func (b *eventBuffer) recent(serverID string) []*models.StoredEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.byServer[serverID]
	out := make([]*models.StoredEvent, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}
