package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fdsbridge/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher broadcasts bridge events to an optional plant broker (MQTT or
// Kafka) so other tools can observe geometry syncs and selections. Publish
// failures are the caller's to log; the CAD link does not depend on the
// broker in any way.
type Publisher struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	backend  string
	mqttConn mqtt.Client
	kafkaW   *kafkago.Writer
}

// NewPublisher creates a publisher based on config. An empty backend yields
// a disabled publisher whose methods are no-ops.
func NewPublisher(cfg *config.MessagingConfig) *Publisher {
	return &Publisher{
		cfg:     cfg,
		backend: cfg.Backend,
	}
}

// Enabled reports whether a backend is configured.
func (p *Publisher) Enabled() bool {
	return p.backend != ""
}

// Connect establishes the broker connection.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.backend {
	case "":
		return nil
	case "mqtt":
		return p.connectMQTT()
	case "kafka":
		return p.connectKafka()
	default:
		return fmt.Errorf("unknown messaging backend: %s", p.backend)
	}
}

func (p *Publisher) connectMQTT() error {
	broker := fmt.Sprintf("tcp://%s:%d", p.cfg.MQTT.Broker, p.cfg.MQTT.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(p.cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.mqttConn = client
	return nil
}

func (p *Publisher) connectKafka() error {
	p.kafkaW = &kafkago.Writer{
		Addr:         kafkago.TCP(p.cfg.Kafka.Brokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	return nil
}

// PublishEvent serializes a typed event and publishes it on the events
// topic. Disabled publishers drop silently.
func (p *Publisher) PublishEvent(evtType string, payload any) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(struct {
		Type string    `json:"type"`
		TS   time.Time `json:"ts"`
		Data any       `json:"data"`
	}{Type: evtType, TS: time.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evtType, err)
	}
	return p.publish(p.cfg.EventsTopic, body)
}

func (p *Publisher) publish(topic string, payload []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.backend {
	case "mqtt":
		if p.mqttConn == nil || !p.mqttConn.IsConnected() {
			return fmt.Errorf("mqtt not connected")
		}
		token := p.mqttConn.Publish(topic, 1, false, payload)
		token.Wait()
		return token.Error()
	case "kafka":
		if p.kafkaW == nil {
			return fmt.Errorf("kafka writer not initialized")
		}
		return p.kafkaW.WriteMessages(context.Background(), kafkago.Message{
			Topic: topic,
			Value: payload,
		})
	default:
		return fmt.Errorf("unknown backend: %s", p.backend)
	}
}

// Close shuts down the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mqttConn != nil {
		p.mqttConn.Disconnect(1000)
		p.mqttConn = nil
	}
	if p.kafkaW != nil {
		p.kafkaW.Close()
		p.kafkaW = nil
	}
}
