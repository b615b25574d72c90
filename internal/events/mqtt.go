package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/roach88/rentledger/internal/ledger"
)

// DefaultTopicPrefix prefixes every MQTT topic.
const DefaultTopicPrefix = "rentledger/events"

// MQTTOptions configures the MQTT publisher.
type MQTTOptions struct {
	Broker      string        `yaml:"broker" json:"broker"`
	ClientID    string        `yaml:"client_id" json:"client_id"`
	Username    string        `yaml:"username" json:"username"`
	Password    string        `yaml:"password" json:"password"`
	TopicPrefix string        `yaml:"topic_prefix" json:"topic_prefix"`
	QoS         byte          `yaml:"qos" json:"qos"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// Enabled reports whether a broker is configured.
func (o MQTTOptions) Enabled() bool { return o.Broker != "" }

// ConnectMQTT opens a client to the broker in o.
func ConnectMQTT(o MQTTOptions) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", o.Broker, token.Error())
	}
	return client, nil
}

// mqttClient is the part of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes each event as JSON to <prefix>/<event name>.
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqttClient, o MQTTOptions) *MQTTPublisher {
	prefix := strings.TrimSuffix(o.TopicPrefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{client: client, prefix: prefix, qos: o.QoS, timeout: timeout}
}

// Topic returns the topic an event named name is published on.
func (p *MQTTPublisher) Topic(name string) string {
	return p.prefix + "/" + name
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(_ context.Context, event ledger.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Name, err)
	}
	topic := p.Topic(event.Name)
	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
