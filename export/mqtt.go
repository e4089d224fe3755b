package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aouyang1/go-demand/store"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	DefaultTopicPrefix    = "demand/forecast"
	DefaultPublishTimeout = 5 * time.Second
)

var ErrPublishTimeout = errors.New("timed out waiting for publish")

type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retained    bool   `json:"retained"`
}

// Publisher is the part of the paho client used to publish runs
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every run as json on <prefix>/<model>
type MQTT struct {
	client   Publisher
	prefix   string
	qos      byte
	retained bool
	timeout  time.Duration
	close    func()
}

// NewMQTT connects to the broker
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "demand-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker: %v", token.Error())
	}
	m := NewMQTTWithPublisher(client, cfg)
	m.close = func() { client.Disconnect(250) }
	return m, nil
}

// NewMQTTWithPublisher publishes through an already connected client
func NewMQTTWithPublisher(p Publisher, cfg MQTTConfig) *MQTT {
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTT{
		client:   p,
		prefix:   prefix,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  DefaultPublishTimeout,
	}
}

// Topic returns the topic runs of model are published on
func (m *MQTT) Topic(model string) string {
	return m.prefix + "/" + model
}

func (m *MQTT) Export(ctx context.Context, run *store.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("unable to encode run, %w", err)
	}
	token := m.client.Publish(m.Topic(run.Model), m.qos, m.retained, payload)

	timeout := time.NewTimer(m.timeout)
	defer timeout.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish message: %v", err)
	}
	return nil
}

func (m *MQTT) Close() error {
	if m.close != nil {
		m.close()
	}
	return nil
}
