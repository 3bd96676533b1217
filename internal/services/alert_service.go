package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/aggregator"
	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// AlertTimeLayout is the timestamp format written into alert messages
const AlertTimeLayout = "2006-01-02 15:04:05"

// Predictor scores a raw snapshot payload
type Predictor interface {
	Predict(ctx context.Context, payload []byte, meta RequestMeta) (*models.PredictionResult, error)
}

// AlertService scores snapshots received from the broker and emits alerts
type AlertService struct {
	predictor Predictor
	gate      *aggregator.SnapshotGate
	logger    *zap.Logger

	// Input channel from the MQTT subscriber
	SnapshotChan chan *models.SnapshotMessage

	// Output channel to the MQTT publisher
	AlertChan chan *models.AlertMessage

	sendTimeout time.Duration
}

// AlertServiceConfig holds configuration for the alert service
type AlertServiceConfig struct {
	SnapshotChannelSize int
	AlertChannelSize    int
	SendTimeout         time.Duration
	Gate                aggregator.GateConfig
}

// DefaultAlertServiceConfig returns default configuration
func DefaultAlertServiceConfig() AlertServiceConfig {
	return AlertServiceConfig{
		SnapshotChannelSize: 50,
		AlertChannelSize:    50,
		SendTimeout:         1 * time.Second,
		Gate:                aggregator.DefaultGateConfig(),
	}
}

// NewAlertService creates a new alert service
func NewAlertService(predictor Predictor, config AlertServiceConfig, logger *zap.Logger) *AlertService {
	return &AlertService{
		predictor:    predictor,
		gate:         aggregator.NewSnapshotGate(config.Gate),
		logger:       logger,
		SnapshotChan: make(chan *models.SnapshotMessage, config.SnapshotChannelSize),
		AlertChan:    make(chan *models.AlertMessage, config.AlertChannelSize),
		sendTimeout:  config.SendTimeout,
	}
}

// Start processes snapshots until ctx is cancelled or the input channel closes.
// It closes AlertChan on return.
func (s *AlertService) Start(ctx context.Context) {
	s.logger.Info("AlertService: Starting...")
	defer close(s.AlertChan)
	defer s.logGateStats()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("AlertService: Shutting down...")
			return
		case msg, ok := <-s.SnapshotChan:
			if !ok {
				s.logger.Info("AlertService: Snapshot channel closed, shutting down...")
				return
			}
			s.process(ctx, msg)
		}
	}
}

// process scores one snapshot and forwards the alert
func (s *AlertService) process(ctx context.Context, msg *models.SnapshotMessage) {
	if ok, reason := s.gate.Allow(msg); !ok {
		s.logger.Debug("AlertService: Skipping snapshot",
			zap.String("device_id", msg.DeviceID), zap.String("reason", reason))
		return
	}

	alert, err := s.BuildAlert(ctx, msg)
	if err != nil {
		// A failed snapshot must not suppress the device's next one
		s.gate.Forget(msg.DeviceID)
		s.logger.Warn("AlertService: Prediction failed",
			zap.String("device_id", msg.DeviceID), zap.Error(err))
		return
	}

	select {
	case s.AlertChan <- alert:
		s.logger.Info("AlertService: Alert queued",
			zap.String("device_id", alert.DeviceID), zap.String("message", alert.Message))
	case <-time.After(s.sendTimeout):
		s.logger.Warn("AlertService: Alert channel full, dropping alert", zap.String("device_id", msg.DeviceID))
	}
}

// logGateStats reports how many snapshots each device had skipped
func (s *AlertService) logGateStats() {
	for _, deviceID := range s.gate.GetAllDevices() {
		state, ok := s.gate.GetDeviceState(deviceID)
		if !ok {
			continue
		}
		s.logger.Info("AlertService: Device summary",
			zap.String("device_id", deviceID),
			zap.Int("skipped", state.Skipped),
			zap.Time("last_scored", state.LastScored),
		)
	}
}

// BuildAlert scores a snapshot message and formats the alert
func (s *AlertService) BuildAlert(ctx context.Context, msg *models.SnapshotMessage) (*models.AlertMessage, error) {
	meta := RequestMeta{
		RequestID: uuid.NewString(),
		DeviceID:  msg.DeviceID,
		Source:    models.SourceMQTT,
	}

	result, err := s.predictor.Predict(ctx, msg.Payload, meta)
	if err != nil {
		return nil, err
	}

	timestamp := msg.ReceivedAt.UTC().Format(AlertTimeLayout)
	return &models.AlertMessage{
		Timestamp:            timestamp,
		DeviceID:             msg.DeviceID,
		FireProbability:      result.FireProbability,
		OccupancyProbability: result.OccupancyProbability,
		PowerPrediction:      result.PowerPrediction,
		Recommendation:       result.Recommendation,
		Message:              timestamp + " / " + result.Recommendation,
	}, nil
}
