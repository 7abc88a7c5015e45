package messaging

import (
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"winekiosk/config"
)

type mqttClient struct {
	opts   *mqtt.ClientOptions
	mu     sync.Mutex
	client mqtt.Client
}

func newMQTTClient(cfg *config.MessagingConfig) *mqttClient {
	period := cfg.ReconnectPeriod
	if period <= 0 {
		period = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(period).
		SetConnectRetry(true).
		SetConnectRetryInterval(period).
		SetOrderMatters(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Printf("messaging: connected to broker %s", cfg.BrokerURL)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("messaging: connection lost: %v", err)
	}
	return &mqttClient{opts: opts}
}

func (c *mqttClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.client.IsConnected() {
		return nil
	}
	if c.client == nil {
		c.client = mqtt.NewClient(c.opts)
	}
	token := c.client.Connect()
	token.Wait()
	return token.Error()
}

func (c *mqttClient) Publish(topic string, payload []byte) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		log.Printf("messaging: publish to %s: %v", topic, ErrNotConnected)
		return
	}
	token := client.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("messaging: publish to %s failed: %v", topic, err)
		}
	}()
}

func (c *mqttClient) Subscribe(topic string, h Handler) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Payload(), msg.Topic())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	log.Printf("messaging: subscribed to %s", topic)
	return nil
}

func (c *mqttClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}
}

func (c *mqttClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil && c.client.IsConnected()
}
