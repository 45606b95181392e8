package status

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Subscriber receives every published snapshot. Subscribing does not replay
// the cached snapshot; late subscribers read it through GetCurrent.
type Subscriber func(snapshot json.RawMessage)

type subscription struct {
	id int
	fn Subscriber
}

// Cache holds the most recent unsolicited server-push snapshot and fans it
// out to subscribers. Snapshots are opaque JSON replaced wholesale on every
// publish; interpretation belongs entirely to subscriber code.
type Cache struct {
	logger zerolog.Logger

	mu      sync.Mutex
	current json.RawMessage
	subs    []subscription
	nextID  int
}

// NewCache creates an empty cache.
func NewCache(logger zerolog.Logger) *Cache {
	return &Cache{logger: logger}
}

// Publish replaces the cached snapshot and synchronously notifies all
// subscribers in registration order. A panicking subscriber is logged and
// does not prevent delivery to the rest.
func (c *Cache) Publish(snapshot json.RawMessage) {
	c.mu.Lock()
	c.current = snapshot
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, sub := range subs {
		c.deliver(sub, snapshot)
	}
}

// Subscribe registers a subscriber and returns its unsubscribe function.
func (c *Cache) Subscribe(fn Subscriber) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// GetCurrent returns the last stored snapshot, or nil when none has arrived.
func (c *Cache) GetCurrent() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Cache) deliver(sub subscription, snapshot json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Int("subscriber", sub.id).Interface("panic", r).
				Msg("Status subscriber panicked")
		}
	}()
	sub.fn(snapshot)
}
