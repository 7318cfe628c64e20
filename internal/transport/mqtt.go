// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	applog "pulse/internal/log"
)

const (
	mqttQoS          = 0
	mqttTimeout      = 3 * time.Second
	mqttQuiesceMilli = 250
)

// mqttClient is the subset of mqtt.Client the transport uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTTransport publishes JSON estimates to an MQTT topic at QoS 0.
type MQTTTransport struct {
	client mqttClient
	topic  string
}

// DialMQTT connects to broker (e.g. "tcp://localhost:1883") and returns a transport
// publishing on topic.
func DialMQTT(broker, clientID, topic string) (*MQTTTransport, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(mqttTimeout).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			applog.Warnf("MQTTTransport: Connection lost: %v", err)
		})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}
	applog.Infof("MQTTTransport: Connected to %s, topic %q", broker, topic)
	return NewMQTTTransport(c, topic), nil
}

// NewMQTTTransport publishes with an existing client.
func NewMQTTTransport(client mqttClient, topic string) *MQTTTransport {
	return &MQTTTransport{client: client, topic: topic}
}

func (t *MQTTTransport) Send(data any) error {
	payload, err := encodeJSON(data)
	if err != nil {
		return err
	}

	token := t.client.Publish(t.topic, mqttQoS, false, payload)
	if !token.WaitTimeout(mqttTimeout) {
		return errors.New("mqtt publish timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", t.topic, err)
	}
	return nil
}

func (t *MQTTTransport) Close() error {
	t.client.Disconnect(mqttQuiesceMilli)
	return nil
}

var _ Transport = (*MQTTTransport)(nil)
