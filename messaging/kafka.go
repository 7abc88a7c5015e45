package messaging

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"winekiosk/config"
)

// kafkaClient is the alternate bus backend for installations whose site
// broker is Kafka rather than MQTT. Single-level wildcard topics are an
// MQTT feature and are rejected here.
type kafkaClient struct {
	cfg       *config.MessagingConfig
	mu        sync.Mutex
	connected bool
	writers   map[string]*kafka.Writer
	cancels   []context.CancelFunc
}

func newKafkaClient(cfg *config.MessagingConfig) *kafkaClient {
	return &kafkaClient{cfg: cfg, writers: make(map[string]*kafka.Writer)}
}

func (c *kafkaClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	if len(c.cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("messaging: kafka backend requires kafka_brokers")
	}
	c.connected = true
	return nil
}

func (c *kafkaClient) writer(topic string) *kafka.Writer {
	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(c.cfg.KafkaBrokers...),
		Topic:    kafkaTopic(topic),
		Balancer: &kafka.LeastBytes{},
	}
	c.writers[topic] = w
	return w
}

func (c *kafkaClient) Publish(topic string, payload []byte) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		log.Printf("messaging: publish to %s: %v", topic, ErrNotConnected)
		return
	}
	w := c.writer(topic)
	c.mu.Unlock()
	go func() {
		if err := w.WriteMessages(context.Background(), kafka.Message{Value: payload}); err != nil {
			log.Printf("messaging: publish to %s failed: %v", topic, err)
		}
	}()
}

func (c *kafkaClient) Subscribe(topic string, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	if strings.Contains(topic, "+") {
		return fmt.Errorf("messaging: wildcard topic %q requires the mqtt backend", topic)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: c.cfg.KafkaBrokers,
		Topic:   kafkaTopic(topic),
		GroupID: c.cfg.KafkaGroupPrefix + c.cfg.ClientID,
	})
	ctx, cancel := context.WithCancel(context.Background())
	c.cancels = append(c.cancels, cancel)
	go func() {
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("messaging: read from %s: %v", topic, err)
				continue
			}
			h(msg.Value, topic)
		}
	}()
	log.Printf("messaging: subscribed to %s", topic)
	return nil
}

func (c *kafkaClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	for _, w := range c.writers {
		w.Close()
	}
	c.writers = make(map[string]*kafka.Writer)
	c.connected = false
}

func (c *kafkaClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// kafkaTopic maps an MQTT-style topic to a legal Kafka topic name.
func kafkaTopic(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}
