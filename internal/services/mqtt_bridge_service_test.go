package services_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodinohjaus/gateway/internal/services"
	"github.com/kodinohjaus/gateway/internal/status"
	"github.com/kodinohjaus/gateway/tests/mocks"
)

func TestMQTTBridge_RepublishesSnapshots(t *testing.T) {
	mqttClient := new(mocks.MockMQTTClient)
	cache := status.NewCache(zerolog.Nop())

	mqttClient.On("Connect").Return(nil)
	mqttClient.On("Publish", "home/status", byte(1), true, []byte(`{"sauna":80}`)).Return(nil)
	mqttClient.On("Disconnect", uint(250)).Return()

	bridge := services.NewMQTTBridgeService("home/status", 1, mqttClient, cache, zerolog.Nop())
	require.NoError(t, bridge.Start())

	cache.Publish(json.RawMessage(`{"sauna":80}`))

	require.NoError(t, bridge.Stop())

	// After Stop the bridge no longer follows the cache.
	cache.Publish(json.RawMessage(`{"sauna":60}`))

	mqttClient.AssertExpectations(t)
	mqttClient.AssertNumberOfCalls(t, "Publish", 1)
}

func TestMQTTBridge_BrokerUnreachable(t *testing.T) {
	mqttClient := new(mocks.MockMQTTClient)
	mqttClient.On("Connect").Return(errors.New("connection refused"))

	bridge := services.NewMQTTBridgeService("home/status", 0, mqttClient, status.NewCache(zerolog.Nop()), zerolog.Nop())

	assert.Error(t, bridge.Start())
	// A failed start leaves the bridge stopped, so Start can be retried.
	mqttClient.On("Connect").Unset()
	mqttClient.On("Connect").Return(nil)
	assert.NoError(t, bridge.Start())
}

func TestMQTTBridge_PublishErrorDoesNotPanic(t *testing.T) {
	mqttClient := new(mocks.MockMQTTClient)
	cache := status.NewCache(zerolog.Nop())

	mqttClient.On("Connect").Return(nil)
	mqttClient.On("Publish", "home/status", byte(0), true, []byte(`{}`)).Return(errors.New("broker gone"))

	bridge := services.NewMQTTBridgeService("home/status", 0, mqttClient, cache, zerolog.Nop())
	require.NoError(t, bridge.Start())

	cache.Publish(json.RawMessage(`{}`))

	mqttClient.AssertExpectations(t)
}
