package services

import (
	"sync"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// defaultChangeBuffer is the per-subscriber channel capacity.
const defaultChangeBuffer = 16

// ChangeFeed fans change notifications out to subscribers.
//
// Publish never blocks. When a subscriber's buffer is full the new change
// is dropped for that subscriber: an undelivered change is already queued,
// and the refresh it triggers starts after this mutation completed.
type ChangeFeed struct {
	mu     sync.Mutex
	subs   map[int]chan domain.Change
	nextID int
	buffer int
}

// NewChangeFeed creates a feed whose subscribers buffer up to buffer changes.
func NewChangeFeed(buffer int) *ChangeFeed {
	if buffer <= 0 {
		buffer = defaultChangeBuffer
	}
	return &ChangeFeed{
		subs:   make(map[int]chan domain.Change),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel; calling it more than once is safe.
func (f *ChangeFeed) Subscribe() (<-chan domain.Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan domain.Change, f.buffer)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

// Publish delivers change to every subscriber.
func (f *ChangeFeed) Publish(change domain.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, ch := range f.subs {
		select {
		case ch <- change:
		default:
			logger.Debug("Change %s for %s coalesced: subscriber %d has %d pending", change.Kind, change.SourceID, id, len(ch))
		}
	}
}

// Subscribers returns the number of active subscribers.
func (f *ChangeFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
