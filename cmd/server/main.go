package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/aggregator"
	"github.com/protikmukherjee/fire-prediction-api/internal/api"
	"github.com/protikmukherjee/fire-prediction-api/internal/database"
	"github.com/protikmukherjee/fire-prediction-api/internal/ml"
	"github.com/protikmukherjee/fire-prediction-api/internal/mqtt"
	"github.com/protikmukherjee/fire-prediction-api/internal/recommend"
	"github.com/protikmukherjee/fire-prediction-api/internal/services"
	"github.com/protikmukherjee/fire-prediction-api/pkg/config"
	"github.com/protikmukherjee/fire-prediction-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting smart-home prediction service...")

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Models are loaded once; a missing model aborts startup
	modelSet, err := ml.LoadModelSet(ml.ModelPaths{
		Fire:      cfg.FireModelPath,
		Occupancy: cfg.OccupancyModelPath,
		Power:     cfg.PowerModelPath,
	}, log)
	if err != nil {
		log.Fatal("Failed to load models", zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize prediction history (optional)
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
		log.Fatal("Failed to initialize prediction history", zap.Error(err))
	}
	if history != nil {
		defer history.Close()
	}

	engine := recommend.NewEngine(time.Now, cfg.Location())
	predictionService := services.NewPredictionService(modelSet, engine, history, log)

	// === MQTT alert loop ===
	if cfg.MQTTEnabled {
		mqttClient, err := startAlertLoop(ctx, cfg, predictionService, log)
		if err != nil {
			log.Fatal("Failed to start MQTT alert loop", zap.Error(err))
		}
		defer mqttClient.Close()
	}

	// === HTTP API ===
	handler := api.NewHandler(predictionService, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	log.Info("=== Smart-home prediction service is running ===",
		zap.String("models", modelSet.Versions()),
		zap.String("history", cfg.HistoryBackend),
		zap.Bool("mqtt", cfg.MQTTEnabled),
		zap.String("timezone", cfg.Location().String()),
	)

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Info("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Shutdown complete. Goodbye!")
}

// startAlertLoop wires subscriber -> alert service -> publisher
func startAlertLoop(ctx context.Context, cfg *config.Config, predictor services.Predictor, log *zap.Logger) (*mqtt.Client, error) {
	log.Info("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, log)
	if err != nil {
		return nil, err
	}

	alertConfig := services.DefaultAlertServiceConfig()
	alertConfig.Gate = aggregator.GateConfig{
		MinInterval:    cfg.AlertMinInterval,
		RepeatInterval: cfg.AlertRepeatInterval,
	}
	alertService := services.NewAlertService(predictor, alertConfig, log)

	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{SnapshotTopic: cfg.MQTTTopicSnapshot},
		alertService.SnapshotChan,
		log,
	)

	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{AlertTopic: cfg.MQTTTopicAlert},
		alertService.AlertChan,
		log,
	)

	go publisher.Start(ctx)
	go alertService.Start(ctx)

	if err := subscriber.SubscribeAll(); err != nil {
		mqttClient.Close()
		return nil, err
	}

	log.Info("MQTT alert loop running",
		zap.String("snapshot_topic", cfg.MQTTTopicSnapshot),
		zap.String("alert_topic", cfg.MQTTTopicAlert),
	)
	return mqttClient, nil
}
