package database

// ClickHouse schema
const (
	// PredictionsTableSQL creates the predictions table
	PredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS predictions (
			id String,
			timestamp DateTime64(3),
			device_id String,
			source LowCardinality(String),
			fire_probability Float64,
			occupancy_probability Float64,
			power_prediction Float64,
			total_power_mw Float64,
			threshold_power_mw Float64,
			recommendation String,
			inference_time_ms Float64,
			model_versions String
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all ClickHouse table creation SQL statements
func AllTables() []string {
	return []string{
		PredictionsTableSQL,
	}
}

// SQL schema shared by Postgres and SQLite
const (
	// SQLPredictionsTableSQL creates the predictions table
	SQLPredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			device_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			fire_probability DOUBLE PRECISION NOT NULL,
			occupancy_probability DOUBLE PRECISION NOT NULL,
			power_prediction DOUBLE PRECISION NOT NULL,
			total_power_mw DOUBLE PRECISION NOT NULL,
			threshold_power_mw DOUBLE PRECISION NOT NULL,
			recommendation TEXT NOT NULL,
			inference_time_ms DOUBLE PRECISION NOT NULL,
			model_versions TEXT NOT NULL
		)
	`

	// SQLPredictionsIndexSQL indexes history lookups by device
	SQLPredictionsIndexSQL = `
		CREATE INDEX IF NOT EXISTS idx_predictions_device_ts ON predictions (device_id, timestamp)
	`
)

// AllSQLStatements returns the SQL schema statements in order
func AllSQLStatements() []string {
	return []string{
		SQLPredictionsTableSQL,
		SQLPredictionsIndexSQL,
	}
}
