package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// ClickHouseDB stores prediction history in ClickHouse
type ClickHouseDB struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(ctx context.Context, addr, database, username, password string, logger *zap.Logger) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("History: Connected to ClickHouse", zap.String("addr", addr))

	db := &ClickHouseDB{conn: conn, logger: logger}

	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	db.logger.Info("History: ClickHouse schema initialized")
	return nil
}

// SavePrediction saves a prediction record
func (db *ClickHouseDB) SavePrediction(ctx context.Context, rec *models.PredictionRecord) error {
	query := `
		INSERT INTO predictions (id, timestamp, device_id, source, fire_probability, occupancy_probability,
			power_prediction, total_power_mw, threshold_power_mw, recommendation, inference_time_ms, model_versions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		rec.ID,
		rec.Timestamp,
		rec.DeviceID,
		rec.Source,
		rec.FireProbability,
		rec.OccupancyProbability,
		rec.PowerPrediction,
		rec.TotalPowerMW,
		rec.ThresholdPowerMW,
		rec.Recommendation,
		rec.InferenceTimeMs,
		rec.ModelVersions,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// RecentPredictions returns the newest records, optionally for one device
func (db *ClickHouseDB) RecentPredictions(ctx context.Context, deviceID string, limit int) ([]models.PredictionRecord, error) {
	query := `
		SELECT id, timestamp, device_id, source, fire_probability, occupancy_probability,
			power_prediction, total_power_mw, threshold_power_mw, recommendation, inference_time_ms, model_versions
		FROM predictions
		WHERE (? = '' OR device_id = ?)
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, deviceID, deviceID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	records := []models.PredictionRecord{}
	for rows.Next() {
		var rec models.PredictionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Timestamp,
			&rec.DeviceID,
			&rec.Source,
			&rec.FireProbability,
			&rec.OccupancyProbability,
			&rec.PowerPrediction,
			&rec.TotalPowerMW,
			&rec.ThresholdPowerMW,
			&rec.Recommendation,
			&rec.InferenceTimeMs,
			&rec.ModelVersions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read predictions: %w", err)
	}
	return records, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		db.logger.Info("History: ClickHouse connection closed")
	}
	return nil
}
