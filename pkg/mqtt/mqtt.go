package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client defines the MQTT operations the bridge needs.
type Client interface {
	Connect() error
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Disconnect(quiesce uint)
	IsConnected() bool
}

// PahoClient wraps the paho MQTT client behind the Client interface.
type PahoClient struct {
	client mqtt.Client
}

// NewPahoClient sets up an MQTT client for the given local broker.
func NewPahoClient(broker, clientID string) *PahoClient {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	return &PahoClient{client: mqtt.NewClient(opts)}
}

// Connect connects to the MQTT broker.
func (c *PahoClient) Connect() error {
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

// Publish sends a message to the specified topic.
func (c *PahoClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Disconnect gracefully disconnects the MQTT client.
func (c *PahoClient) Disconnect(quiesce uint) {
	c.client.Disconnect(quiesce)
}

// IsConnected reports whether the client currently holds a broker connection.
func (c *PahoClient) IsConnected() bool {
	return c.client.IsConnected()
}
