package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// History backends
const (
	BackendNone       = ""
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
	BackendSQLite     = "sqlite"
)

// DefaultRecentLimit caps RecentPredictions when the caller passes no limit
const DefaultRecentLimit = 20

// HistoryStore persists prediction records
type HistoryStore interface {
	SavePrediction(ctx context.Context, rec *models.PredictionRecord) error
	RecentPredictions(ctx context.Context, deviceID string, limit int) ([]models.PredictionRecord, error)
	Close() error
}

// HistoryConfig selects and configures a history backend
type HistoryConfig struct {
	Backend string

	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	PostgresURL string
	SQLitePath  string
}

// OpenHistory connects to the configured backend. It returns a nil store when history is disabled.
func OpenHistory(ctx context.Context, cfg HistoryConfig, logger *zap.Logger) (HistoryStore, error) {
	switch cfg.Backend {
	case BackendNone:
		logger.Info("History: Disabled")
		return nil, nil
	case BackendClickHouse:
		db, err := NewClickHouseDB(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case BackendPostgres, BackendSQLite:
		var (
			store *SQLStore
			err   error
		)
		if cfg.Backend == BackendPostgres {
			store, err = NewPostgresStore(ctx, cfg.PostgresURL, logger)
		} else {
			store, err = NewSQLiteStore(ctx, cfg.SQLitePath, logger)
		}
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
