// Command predict scores one smart-home snapshot read from stdin and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/database"
	"github.com/protikmukherjee/fire-prediction-api/internal/ml"
	"github.com/protikmukherjee/fire-prediction-api/internal/models"
	"github.com/protikmukherjee/fire-prediction-api/internal/recommend"
	"github.com/protikmukherjee/fire-prediction-api/internal/services"
	"github.com/protikmukherjee/fire-prediction-api/pkg/config"
	"github.com/protikmukherjee/fire-prediction-api/pkg/logger"
)

func main() {
	sampleDir := flag.String("write-sample-models", "", "write demonstration model artifacts into `dir` and exit")
	deviceID := flag.String("device", "", "device id recorded in prediction history")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fail(err)
	}
	defer log.Sync()

	if *sampleDir != "" {
		paths, err := ml.WriteSampleModels(*sampleDir)
		if err != nil {
			fail(err)
		}
		log.Info("Sample models written",
			zap.String("fire", paths.Fire),
			zap.String("occupancy", paths.Occupancy),
			zap.String("power", paths.Power),
		)
		return
	}

	if err := run(cfg, *deviceID, os.Stdin, os.Stdout, log); err != nil {
		fail(err)
	}
}

func run(cfg *config.Config, deviceID string, in io.Reader, out io.Writer, log *zap.Logger) error {
	modelSet, err := ml.LoadModelSet(ml.ModelPaths{
		Fire:      cfg.FireModelPath,
		Occupancy: cfg.OccupancyModelPath,
		Power:     cfg.PowerModelPath,
	}, log)
	if err != nil {
		return err
	}

	ctx := context.Background()

	history, err := database.OpenHistory(ctx, database.HistoryConfig{
		Backend:        cfg.HistoryBackend,
		ClickHouseAddr: cfg.ClickHouseAddr,
		ClickHouseDB:   cfg.ClickHouseDB,
		ClickHouseUser: cfg.ClickHouseUser,
		ClickHousePass: cfg.ClickHousePass,
		PostgresURL:    cfg.PostgresURL,
		SQLitePath:     cfg.SQLitePath,
	}, log)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	service := services.NewPredictionService(modelSet, recommend.NewEngine(time.Now, cfg.Location()), history, log)
	result, err := service.Predict(ctx, payload, services.RequestMeta{DeviceID: deviceID, Source: models.SourceCLI})
	if err != nil {
		return err
	}

	return json.NewEncoder(out).Encode(result)
}

func fail(err error) {
	_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()})
	os.Exit(1)
}
