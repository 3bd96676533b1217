package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Client manages the MQTT connection (low-level connection management only)
// For subscribing and publishing, use Subscriber and Publisher respectively
type Client struct {
	client mqtt.Client
	config ClientConfig
	logger *zap.Logger
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient creates a new MQTT client connection
func NewClient(config ClientConfig, logger *zap.Logger) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		logger.Debug("MQTT: Received message on unhandled topic", zap.String("topic", msg.Topic()))
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("MQTT: Connection established")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("MQTT: Connection lost", zap.Error(err))
	})
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("MQTT Client: Connected to broker", zap.String("broker", config.Broker))

	return &Client{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// GetNativeClient returns the underlying paho MQTT client
// This is used by Subscriber and Publisher
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close closes the MQTT client connection
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT Client: Disconnected")
}
