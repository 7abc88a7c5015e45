package messaging

import (
	"errors"
	"fmt"

	"winekiosk/config"
)

// Handler is invoked for every message arriving on a subscribed topic.
type Handler func(payload []byte, topic string)

// Client is the bus connection the kiosk holds for the lifetime of a screen.
// Publish is fire-and-forget: delivery failures are logged, never returned.
type Client interface {
	// Connect is idempotent; calling it on a live connection is a no-op.
	Connect() error
	Publish(topic string, payload []byte)
	Subscribe(topic string, h Handler) error
	Disconnect()
	IsConnected() bool
}

// ErrNotConnected is returned when Publish or Subscribe is called before
// Connect. That is a wiring bug in the caller, not a runtime condition.
var ErrNotConnected = errors.New("messaging: client not connected")

func NewClient(cfg *config.MessagingConfig) (Client, error) {
	switch cfg.Backend {
	case "", "mqtt":
		return newMQTTClient(cfg), nil
	case "kafka":
		return newKafkaClient(cfg), nil
	default:
		return nil, fmt.Errorf("messaging: unsupported backend %q", cfg.Backend)
	}
}
