package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Messaging MessagingConfig `yaml:"messaging"`
	Store     StoreConfig     `yaml:"store"`
	Web       WebConfig       `yaml:"web"`
	Kiosk     KioskConfig     `yaml:"kiosk"`
}

type MessagingConfig struct {
	Backend          string        `yaml:"backend"` // "mqtt" or "kafka"
	BrokerURL        string        `yaml:"broker_url"`
	ClientID         string        `yaml:"client_id"`
	CommandTopic     string        `yaml:"command_topic"`
	EventTopic       string        `yaml:"event_topic"`
	LightingTopic    string        `yaml:"lighting_topic"`
	ReconnectPeriod  time.Duration `yaml:"reconnect_period"`
	KafkaBrokers     []string      `yaml:"kafka_brokers"`
	KafkaGroupPrefix string        `yaml:"kafka_group_prefix"`
}

type StoreConfig struct {
	Driver        string        `yaml:"driver"` // "json" or "sqlite"
	InventoryPath string        `yaml:"inventory_path"`
	LedgerPath    string        `yaml:"ledger_path"`
	SQLitePath    string        `yaml:"sqlite_path"`
	LedgerExpiry  time.Duration `yaml:"ledger_expiry"`
}

type WebConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	SessionKey  string `yaml:"session_key"`
	PinHash     string `yaml:"pin_hash"`
	StoreURL    string `yaml:"store_url"` // kiosk-side: base URL of the bottle store service
	CatalogPath string `yaml:"catalog_path"`
}

type KioskConfig struct {
	CountdownTicks int           `yaml:"countdown_ticks"`
	TickInterval   time.Duration `yaml:"tick_interval"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns a config populated with the appliance defaults. The topic
// names and timings match the fridge controller's contract.
func Default() *Config {
	return &Config{
		Messaging: MessagingConfig{
			Backend:         "mqtt",
			BrokerURL:       "tcp://localhost:1883",
			ClientID:        "winekiosk",
			CommandTopic:    "winefridge/system/command",
			EventTopic:      "winefridge/system/status",
			LightingTopic:   "winefridge/+/status",
			ReconnectPeriod: 5 * time.Second,
		},
		Store: StoreConfig{
			Driver:        "json",
			InventoryPath: "database/inventory.json",
			LedgerPath:    "database/extracted.json",
			SQLitePath:    "database/winekiosk.db",
			LedgerExpiry:  3 * time.Hour,
		},
		Web: WebConfig{
			Host:        "127.0.0.1",
			Port:        3000,
			StoreURL:    "http://localhost:3000",
			CatalogPath: "database/wine-catalog.json",
		},
		Kiosk: KioskConfig{
			CountdownTicks: 5,
			TickInterval:   time.Second,
		},
	}
}
