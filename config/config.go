package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	DatabasePath string `yaml:"database_path"`

	CAD       CADConfig       `yaml:"cad"`
	Protocol  ProtocolConfig  `yaml:"protocol"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
}

// CADConfig defines the CAD tool connection. The websocket endpoint is the
// only externally configured protocol parameter.
type CADConfig struct {
	URL         string        `yaml:"url"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ProtocolConfig tunes the pending-request registry.
type ProtocolConfig struct {
	PendingTTL    time.Duration `yaml:"pending_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// WebConfig defines the local HTTP API for the editor front-end.
type WebConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	SessionSecret     string `yaml:"session_secret"`
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt; empty disables auth
}

// MessagingConfig defines the optional broker the bridge publishes sync and
// selection events to. An empty backend disables publishing.
type MessagingConfig struct {
	Backend     string      `yaml:"backend"` // "", "mqtt" or "kafka"
	EventsTopic string      `yaml:"events_topic"`
	MQTT        MQTTConfig  `yaml:"mqtt"`
	Kafka       KafkaConfig `yaml:"kafka"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		DatabasePath: "fdsbridge.db",
		CAD: CADConfig{
			URL:         "ws://localhost:2012",
			DialTimeout: 10 * time.Second,
		},
		Protocol: ProtocolConfig{
			PendingTTL:    10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Web: WebConfig{
			Host:      "127.0.0.1",
			Port:      8081,
			AdminUser: "admin",
		},
		Messaging: MessagingConfig{
			EventsTopic: "fdsbridge/events",
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "fdsbridge",
			},
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
