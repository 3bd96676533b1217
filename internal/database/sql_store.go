package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// SQLStore stores prediction history in Postgres or SQLite
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore connects to Postgres
func NewPostgresStore(ctx context.Context, url string, logger *zap.Logger) (*SQLStore, error) {
	if url == "" {
		return nil, fmt.Errorf("POSTGRES_URL is not set")
	}
	return openSQLStore(ctx, "postgres", url, logger)
}

// NewSQLiteStore opens (or creates) a SQLite file
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLITE_PATH is not set")
	}
	store, err := openSQLStore(ctx, "sqlite3", path, logger)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time
	store.db.SetMaxOpenConns(1)
	return store, nil
}

func openSQLStore(ctx context.Context, driverName, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driverName, err)
	}

	store := &SQLStore{db: db, logger: logger}
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("History: Connected", zap.String("driver", driverName))
	return store, nil
}

// InitSchema creates the predictions table if it doesn't exist
func (s *SQLStore) InitSchema(ctx context.Context) error {
	for _, stmt := range AllSQLStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SavePrediction saves a prediction record
func (s *SQLStore) SavePrediction(ctx context.Context, rec *models.PredictionRecord) error {
	query := `
		INSERT INTO predictions (id, timestamp, device_id, source, fire_probability, occupancy_probability,
			power_prediction, total_power_mw, threshold_power_mw, recommendation, inference_time_ms, model_versions)
		VALUES (:id, :timestamp, :device_id, :source, :fire_probability, :occupancy_probability,
			:power_prediction, :total_power_mw, :threshold_power_mw, :recommendation, :inference_time_ms, :model_versions)
	`

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// RecentPredictions returns the newest records, optionally for one device
func (s *SQLStore) RecentPredictions(ctx context.Context, deviceID string, limit int) ([]models.PredictionRecord, error) {
	query := `
		SELECT id, timestamp, device_id, source, fire_probability, occupancy_probability,
			power_prediction, total_power_mw, threshold_power_mw, recommendation, inference_time_ms, model_versions
		FROM predictions
	`
	args := []interface{}{}
	if deviceID != "" {
		query += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	records := []models.PredictionRecord{}
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	return records, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
