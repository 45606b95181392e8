package services

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/status"
	"github.com/kodinohjaus/gateway/pkg/mqtt"
)

// MQTTBridgeService republishes every status snapshot to a local MQTT broker
// so other home-automation consumers (Home Assistant, Node-RED) can follow
// the backend state without their own backend session. Snapshots pass through
// opaquely; the bridge never interprets them.
type MQTTBridgeService struct {
	topic      string
	qos        byte
	mqttClient mqtt.Client
	cache      *status.Cache
	logger     zerolog.Logger

	unsubscribe func()
}

// NewMQTTBridgeService initializes a new MQTTBridgeService.
func NewMQTTBridgeService(topic string, qos byte, mqttClient mqtt.Client,
	cache *status.Cache, logger zerolog.Logger) *MQTTBridgeService {
	return &MQTTBridgeService{
		topic:      topic,
		qos:        qos,
		mqttClient: mqttClient,
		cache:      cache,
		logger:     logger,
	}
}

// Start connects to the broker and subscribes to the status cache.
func (b *MQTTBridgeService) Start() error {
	if b.unsubscribe != nil {
		b.logger.Warn().Msg("MQTTBridgeService is already running")
		return errors.New("mqtt bridge service is already running")
	}

	if err := b.mqttClient.Connect(); err != nil {
		return err
	}

	b.unsubscribe = b.cache.Subscribe(func(snapshot json.RawMessage) {
		if err := b.mqttClient.Publish(b.topic, b.qos, true, []byte(snapshot)); err != nil {
			b.logger.Warn().Err(err).Str("topic", b.topic).Msg("Failed to republish snapshot")
			return
		}
		b.logger.Debug().Str("topic", b.topic).Int("size", len(snapshot)).Msg("Snapshot republished")
	})

	b.logger.Info().Str("topic", b.topic).Msg("MQTTBridgeService started")
	return nil
}

// Stop unsubscribes from the cache and disconnects from the broker.
func (b *MQTTBridgeService) Stop() error {
	if b.unsubscribe == nil {
		b.logger.Warn().Msg("MQTTBridgeService is not running")
		return errors.New("mqtt bridge service is not running")
	}

	b.unsubscribe()
	b.unsubscribe = nil
	b.mqttClient.Disconnect(250)

	b.logger.Info().Msg("MQTTBridgeService stopped")
	return nil
}
