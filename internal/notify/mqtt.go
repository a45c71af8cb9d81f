package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Publisher is the part of an MQTT client the notifier needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes events as JSON to <prefix>/checklists/<type>/<kind>.
type MQTTNotifier struct {
	client  Publisher
	prefix  string
	qos     byte
	timeout time.Duration
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// ConnectMQTT dials the broker and returns a notifier on top of the client.
func ConnectMQTT(cfg MQTTConfig) (*MQTTNotifier, mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return NewMQTTNotifier(client, cfg.TopicPrefix), client, nil
}

// NewMQTTNotifier wraps an already connected publisher.
func NewMQTTNotifier(client Publisher, prefix string) *MQTTNotifier {
	if prefix == "" {
		prefix = "inspections"
	}
	return &MQTTNotifier{
		client:  client,
		prefix:  strings.TrimRight(prefix, "/"),
		qos:     1,
		timeout: 5 * time.Second,
	}
}

// Topic returns the topic an event is published to.
func (n *MQTTNotifier) Topic(ev Event) string {
	typ := ev.ChecklistType
	if typ == "" {
		typ = "unknown"
	}
	return fmt.Sprintf("%s/checklists/%s/%s", n.prefix, typ, ev.Kind)
}

// Notify publishes ev and waits for the broker ack or ctx.
func (n *MQTTNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := n.client.Publish(n.Topic(ev), n.qos, false, payload)
	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mqtt publish %s: timeout", n.Topic(ev))
	}
}
