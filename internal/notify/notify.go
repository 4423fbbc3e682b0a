// Package notify publishes the next-prayer status to an MQTT broker so home
// automation can react to it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salat/internal/schedule"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "salat/next"

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
)

// Client is the subset of mqtt.Client the publisher needs.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Config holds the broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
}

// Payload is the retained message body.
type Payload struct {
	Prayer   string `json:"prayer"`
	Time     string `json:"time"`
	Urgency  string `json:"urgency"`
	Tomorrow bool   `json:"tomorrow"`
	Date     string `json:"date"`
}

// PayloadFor builds the message for a snapshot.
func PayloadFor(snap schedule.Snapshot) Payload {
	return Payload{
		Prayer:   string(snap.Next.Key),
		Time:     snap.Next.Time,
		Urgency:  snap.Urgency.String(),
		Tomorrow: snap.Next.Tomorrow,
		Date:     snap.Date.String(),
	}
}

// Publisher sends status changes to a topic. It implements schedule.Sink.
type Publisher struct {
	client Client
	topic  string
	log    zerolog.Logger

	mu   sync.Mutex
	last *Payload
}

// NewPublisher wraps an already connected client.
func NewPublisher(client Client, topic string, log zerolog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{client: client, topic: topic, log: log}
}

// Dial connects to the broker described by cfg.
func Dial(cfg Config, log zerolog.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: broker URL is required")
	}
	if cfg.ClientID == "" {
		host, _ := os.Hostname()
		cfg.ClientID = "salat-" + host
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connecting to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: failed to connect to %s: %w", cfg.Broker, err)
	}

	return NewPublisher(client, cfg.Topic, log), nil
}

// Send publishes the snapshot when it differs from the last one published.
func (p *Publisher) Send(ctx context.Context, snap schedule.Snapshot) error {
	payload := PayloadFor(snap)

	p.mu.Lock()
	unchanged := p.last != nil && *p.last == payload
	p.mu.Unlock()
	if unchanged {
		return nil
	}

	if err := p.publish(ctx, payload); err != nil {
		return err
	}

	p.mu.Lock()
	p.last = &payload
	p.mu.Unlock()

	p.log.Info().
		Str("prayer", payload.Prayer).
		Str("urgency", payload.Urgency).
		Msg("published prayer status")
	return nil
}

func (p *Publisher) publish(ctx context.Context, payload Payload) error {
	if !p.client.IsConnected() {
		return errors.New("mqtt: not connected")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mqtt: encode payload: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, body)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mqtt: publish to %s timed out", p.topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(quiesceMillis)
}
