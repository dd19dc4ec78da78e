package usecase

import (
	"sync"

	"github.com/vportnov/briefly/internal/core/domain"
)

// EventBroadcaster fans streaming events out to per-job subscribers. A new
// subscriber immediately receives the most recent event for its job (if any)
// rather than the full history; slow subscribers drop intermediate events
// instead of blocking the publisher.
type EventBroadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.StreamingEvent]struct{}
	latest      map[string]domain.StreamingEvent
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subscribers: make(map[string]map[chan domain.StreamingEvent]struct{}),
		latest:      make(map[string]domain.StreamingEvent),
	}
}

func (b *EventBroadcaster) Publish(jobID string, event domain.StreamingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[jobID] = event
	for ch := range b.subscribers[jobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a listener for one job. The returned cancel function
// must be called to release the subscription.
func (b *EventBroadcaster) Subscribe(jobID string) (<-chan domain.StreamingEvent, func()) {
	ch := make(chan domain.StreamingEvent, 16)

	b.mu.Lock()
	if b.subscribers[jobID] == nil {
		b.subscribers[jobID] = make(map[chan domain.StreamingEvent]struct{})
	}
	b.subscribers[jobID][ch] = struct{}{}
	if last, ok := b.latest[jobID]; ok {
		ch <- last
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[jobID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subscribers, jobID)
			}
		}
	}
	return ch, cancel
}

// Forget drops the retained last event for a finished job.
func (b *EventBroadcaster) Forget(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.latest, jobID)
}
