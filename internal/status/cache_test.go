package status_test

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/kodinohjaus/gateway/internal/status"
)

func TestCache_PublishReplacesWholesale(t *testing.T) {
	cache := status.NewCache(zerolog.Nop())

	assert.Nil(t, cache.GetCurrent())

	cache.Publish(json.RawMessage(`{"lights":{"kitchen":true},"sauna":80}`))
	cache.Publish(json.RawMessage(`{"lights":{"kitchen":false}}`))

	// The second snapshot replaces the first entirely; nothing is merged.
	assert.JSONEq(t, `{"lights":{"kitchen":false}}`, string(cache.GetCurrent()))
}

func TestCache_SubscribersNotifiedInOrder(t *testing.T) {
	cache := status.NewCache(zerolog.Nop())

	var order []string
	cache.Subscribe(func(json.RawMessage) { order = append(order, "first") })
	cache.Subscribe(func(json.RawMessage) { order = append(order, "second") })

	cache.Publish(json.RawMessage(`{}`))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCache_NoReplayOnSubscribe(t *testing.T) {
	cache := status.NewCache(zerolog.Nop())
	cache.Publish(json.RawMessage(`{"sauna":80}`))

	notified := false
	cache.Subscribe(func(json.RawMessage) { notified = true })

	assert.False(t, notified)
	// The late subscriber reads the snapshot through the getter instead.
	assert.JSONEq(t, `{"sauna":80}`, string(cache.GetCurrent()))
}

func TestCache_Unsubscribe(t *testing.T) {
	cache := status.NewCache(zerolog.Nop())

	calls := 0
	unsubscribe := cache.Subscribe(func(json.RawMessage) { calls++ })

	cache.Publish(json.RawMessage(`{}`))
	unsubscribe()
	cache.Publish(json.RawMessage(`{}`))

	assert.Equal(t, 1, calls)
}

func TestCache_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	cache := status.NewCache(zerolog.Nop())

	cache.Subscribe(func(json.RawMessage) { panic("boom") })
	delivered := false
	cache.Subscribe(func(json.RawMessage) { delivered = true })

	cache.Publish(json.RawMessage(`{}`))

	assert.True(t, delivered)
	// The cache itself stays consistent after the panic.
	assert.JSONEq(t, `{}`, string(cache.GetCurrent()))
}
