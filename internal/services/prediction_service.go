package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/database"
	"github.com/protikmukherjee/fire-prediction-api/internal/features"
	"github.com/protikmukherjee/fire-prediction-api/internal/ml"
	"github.com/protikmukherjee/fire-prediction-api/internal/models"
	"github.com/protikmukherjee/fire-prediction-api/internal/recommend"
)

// ModelScorer is the scoring capability PredictionService needs
type ModelScorer interface {
	Score(id ml.ModelID, vec models.FeatureVector) (float64, error)
	Versions() string
}

// RequestMeta describes where a prediction request came from
type RequestMeta struct {
	RequestID string
	DeviceID  string
	Source    string
}

// PredictionService runs the decode -> extract -> score -> recommend pipeline.
// It holds only read-only dependencies and is safe for concurrent use.
type PredictionService struct {
	models  ModelScorer
	engine  *recommend.Engine
	history database.HistoryStore // optional
	logger  *zap.Logger
	now     func() time.Time
}

// NewPredictionService creates a prediction service. history may be nil.
func NewPredictionService(
	scorer ModelScorer,
	engine *recommend.Engine,
	history database.HistoryStore,
	logger *zap.Logger,
) *PredictionService {
	return &PredictionService{
		models:  scorer,
		engine:  engine,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// HasHistory reports whether predictions are being recorded
func (s *PredictionService) HasHistory() bool {
	return s.history != nil
}

// Predict scores one raw JSON snapshot.
// Extraction and scoring failures, panics included, come back as errors.
func (s *PredictionService) Predict(ctx context.Context, payload []byte, meta RequestMeta) (result *models.PredictionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("PredictionService: Recovered from panic",
				zap.String("request_id", meta.RequestID), zap.Any("panic", r))
			result, err = nil, fmt.Errorf("prediction failed: %v", r)
		}
	}()

	snapshot, err := features.Decode(payload)
	if err != nil {
		return nil, err
	}

	return s.predictSnapshot(ctx, snapshot, meta)
}

// predictSnapshot scores an already decoded snapshot. Callers go through Predict for panic recovery.
func (s *PredictionService) predictSnapshot(ctx context.Context, snapshot *models.SensorSnapshot, meta RequestMeta) (*models.PredictionResult, error) {
	started := s.now()

	set, err := features.Extract(snapshot)
	if err != nil {
		return nil, err
	}

	totalPower, err := features.TotalPower(snapshot)
	if err != nil {
		return nil, err
	}

	fireProbability, err := s.models.Score(ml.FireModel, set.Fire)
	if err != nil {
		return nil, err
	}

	occupancyScore, err := s.models.Score(ml.OccupancyModel, set.Occupancy)
	if err != nil {
		return nil, err
	}

	powerPrediction, err := s.models.Score(ml.PowerModel, set.Power)
	if err != nil {
		return nil, err
	}

	in := recommend.InputFromSnapshot(snapshot, fireProbability, occupancyScore, totalPower)
	result := &models.PredictionResult{
		FireProbability:      fireProbability,
		OccupancyProbability: occupancyScore,
		PowerPrediction:      powerPrediction,
		Recommendation:       s.engine.Recommend(in),
	}

	elapsed := s.now().Sub(started)
	s.logger.Debug("PredictionService: Prediction complete",
		zap.String("request_id", meta.RequestID),
		zap.String("device_id", meta.DeviceID),
		zap.Float64("fire_probability", fireProbability),
		zap.Float64("occupancy_probability", occupancyScore),
		zap.Float64("power_prediction", powerPrediction),
		zap.Duration("elapsed", elapsed),
	)

	s.record(ctx, meta, in, result, elapsed)
	return result, nil
}

// record saves a history row. Failures are logged, never returned.
func (s *PredictionService) record(ctx context.Context, meta RequestMeta, in recommend.Input, result *models.PredictionResult, elapsed time.Duration) {
	if s.history == nil {
		return
	}

	id := meta.RequestID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	rec := &models.PredictionRecord{
		ID:                   id,
		Timestamp:            s.now().UTC(),
		DeviceID:             meta.DeviceID,
		Source:               meta.Source,
		FireProbability:      result.FireProbability,
		OccupancyProbability: result.OccupancyProbability,
		PowerPrediction:      result.PowerPrediction,
		TotalPowerMW:         in.TotalPower,
		Recommendation:       result.Recommendation,
		InferenceTimeMs:      float64(elapsed.Microseconds()) / 1000,
		ModelVersions:        s.models.Versions(),
	}
	if in.Threshold != nil {
		rec.ThresholdPowerMW = *in.Threshold
	}

	if err := s.history.SavePrediction(ctx, rec); err != nil {
		s.logger.Warn("PredictionService: Error saving prediction history",
			zap.String("request_id", meta.RequestID), zap.Error(err))
	}
}

// RecentPredictions returns the latest history rows for a device (all devices when empty)
func (s *PredictionService) RecentPredictions(ctx context.Context, deviceID string, limit int) ([]models.PredictionRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.RecentPredictions(ctx, deviceID, limit)
}
