package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// Publisher publishes alerts from a channel
type Publisher struct {
	client mqtt.Client
	logger *zap.Logger

	// Input channel (read by publisher, written by the alert service)
	AlertChan chan *models.AlertMessage

	alertTopic string // e.g., "smarthome/{device_id}/alerts"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	AlertTopic string
}

// NewPublisher creates a new MQTT publisher
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	alertChan chan *models.AlertMessage,
	logger *zap.Logger,
) *Publisher {
	return &Publisher{
		client:     client,
		logger:     logger,
		AlertChan:  alertChan,
		alertTopic: config.AlertTopic,
	}
}

// Start publishes alerts until ctx is cancelled or the channel is closed
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("MQTT Publisher: Context cancelled, shutting down...")
			return

		case alert, ok := <-p.AlertChan:
			if !ok {
				p.logger.Info("MQTT Publisher: Alert channel closed, shutting down...")
				return
			}

			if err := p.publishAlert(alert); err != nil {
				p.logger.Error("MQTT Publisher: Error publishing alert", zap.Error(err))
			}
		}
	}
}

// publishAlert publishes one alert, retained so late subscribers see the latest state
func (p *Publisher) publishAlert(alert *models.AlertMessage) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	topic := formatTopic(p.alertTopic, alert.DeviceID)

	token := p.client.Publish(topic, 1, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish alert: %w", token.Error())
	}

	p.logger.Info("MQTT Publisher: Published alert",
		zap.String("device_id", alert.DeviceID), zap.String("topic", topic))
	return nil
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
