package mqtt

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// Subscriber handles snapshot subscriptions and writes messages to a channel
type Subscriber struct {
	client mqtt.Client
	logger *zap.Logger

	// Output channel (written by subscriber, read by the alert service)
	SnapshotChan chan *models.SnapshotMessage

	snapshotTopic string // e.g., "smarthome/+/snapshot"
	sendTimeout   time.Duration
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	SnapshotTopic string
}

// NewSubscriber creates a new MQTT subscriber
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	snapshotChan chan *models.SnapshotMessage,
	logger *zap.Logger,
) *Subscriber {
	return &Subscriber{
		client:        client,
		logger:        logger,
		SnapshotChan:  snapshotChan,
		snapshotTopic: config.SnapshotTopic,
		sendTimeout:   1 * time.Second,
	}
}

// SubscribeAll subscribes to the snapshot topic
func (s *Subscriber) SubscribeAll() error {
	if s.snapshotTopic == "" {
		return fmt.Errorf("snapshot topic is not configured")
	}

	token := s.client.Subscribe(s.snapshotTopic, 1, s.handleSnapshot)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to snapshot topic: %w", token.Error())
	}

	s.logger.Info("MQTT Subscriber: Subscribed", zap.String("topic", s.snapshotTopic))
	return nil
}

// handleSnapshot forwards a snapshot payload to the channel. Decoding happens in the service.
func (s *Subscriber) handleSnapshot(client mqtt.Client, msg mqtt.Message) {
	deviceID := extractDeviceID(msg.Topic())
	if deviceID == "" {
		s.logger.Warn("MQTT Subscriber: Could not extract device ID", zap.String("topic", msg.Topic()))
		return
	}

	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	snapshot := &models.SnapshotMessage{
		DeviceID:   deviceID,
		ReceivedAt: time.Now(),
		Payload:    payload,
	}

	select {
	case s.SnapshotChan <- snapshot:
	case <-time.After(s.sendTimeout):
		s.logger.Warn("MQTT Subscriber: Snapshot channel full, dropping message", zap.String("device_id", deviceID))
	}
}

// extractDeviceID extracts device ID from MQTT topic
// Example: "smarthome/house-01/snapshot" -> "house-01"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
