package models

import "time"

// FeatureVector is an ordered numeric encoding matching one model's input shape
type FeatureVector []float64

// FeatureSet holds the three vectors derived from one snapshot
type FeatureSet struct {
	Fire      FeatureVector
	Occupancy FeatureVector
	Power     FeatureVector
}

// PredictionResult is the response returned to callers
type PredictionResult struct {
	FireProbability      float64 `json:"fire_probability"`
	OccupancyProbability float64 `json:"occupancy_probability"`
	PowerPrediction      float64 `json:"power_prediction"`
	Recommendation       string  `json:"recommendation"`
}

// Prediction sources
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
	SourceCLI  = "cli"
)

// PredictionRecord is one row of prediction history
type PredictionRecord struct {
	ID                   string    `json:"id" db:"id"`
	Timestamp            time.Time `json:"timestamp" db:"timestamp"`
	DeviceID             string    `json:"device_id" db:"device_id"`
	Source               string    `json:"source" db:"source"`
	FireProbability      float64   `json:"fire_probability" db:"fire_probability"`
	OccupancyProbability float64   `json:"occupancy_probability" db:"occupancy_probability"`
	PowerPrediction      float64   `json:"power_prediction" db:"power_prediction"`
	TotalPowerMW         float64   `json:"total_power_mw" db:"total_power_mw"`
	ThresholdPowerMW     float64   `json:"threshold_power_mw" db:"threshold_power_mw"` // 0 when unset
	Recommendation       string    `json:"recommendation" db:"recommendation"`
	InferenceTimeMs      float64   `json:"inference_time_ms" db:"inference_time_ms"`
	ModelVersions        string    `json:"model_versions" db:"model_versions"`
}

// SnapshotMessage is a raw snapshot received from the broker
type SnapshotMessage struct {
	DeviceID   string
	ReceivedAt time.Time
	Payload    []byte
}

// AlertMessage is published back to the broker after each snapshot is scored
type AlertMessage struct {
	Timestamp            string  `json:"timestamp"` // "2006-01-02 15:04:05" UTC
	DeviceID             string  `json:"device_id"`
	FireProbability      float64 `json:"fire_probability"`
	OccupancyProbability float64 `json:"occupancy_probability"`
	PowerPrediction      float64 `json:"power_prediction"`
	Recommendation       string  `json:"recommendation"`
	Message              string  `json:"message"` // "<timestamp> / <recommendation>"
}
