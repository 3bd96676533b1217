package api

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
	"github.com/protikmukherjee/fire-prediction-api/internal/services"
)

// MaxBodyBytes caps the size of a snapshot request body
const MaxBodyBytes = 1 << 20

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

// PredictionBackend is what the handler needs from the prediction service
type PredictionBackend interface {
	Predict(ctx context.Context, payload []byte, meta services.RequestMeta) (*models.PredictionResult, error)
	RecentPredictions(ctx context.Context, deviceID string, limit int) ([]models.PredictionRecord, error)
	HasHistory() bool
}

// Handler serves the prediction API
type Handler struct {
	service PredictionBackend
	logger  *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(service PredictionBackend, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes builds the gin engine
func (h *Handler) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(h.requestLogger())

	router.GET("/health", h.Health)
	router.POST("/predict", h.Predict)
	router.GET("/predictions", h.Predictions)
	return router
}

// Health always reports ok once the models are loaded
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Predict scores one JSON snapshot
func (h *Handler) Predict(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	meta := services.RequestMeta{
		RequestID: c.GetString(RequestIDHeader),
		DeviceID:  c.Query("device_id"),
		Source:    models.SourceHTTP,
	}

	result, err := h.service.Predict(c.Request.Context(), body, meta)
	if err != nil {
		status := http.StatusInternalServerError
		if services.IsClientError(err) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("API: Prediction failed",
			zap.String("request_id", meta.RequestID), zap.Int("status", status), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if !finiteResult(result) {
		h.logger.Error("API: Prediction produced a non-finite score", zap.String("request_id", meta.RequestID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction produced a non-finite score"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// finiteResult reports whether every score can be encoded as JSON
func finiteResult(r *models.PredictionResult) bool {
	for _, v := range []float64{r.FireProbability, r.OccupancyProbability, r.PowerPrediction} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Predictions lists recent prediction history
func (h *Handler) Predictions(c *gin.Context) {
	if !h.service.HasHistory() {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrHistoryDisabled.Error()})
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	records, err := h.service.RecentPredictions(c.Request.Context(), c.Query("device_id"), limit)
	if err != nil {
		h.logger.Error("API: Failed to load prediction history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": records, "total": len(records)})
}

// requestLogger assigns a request id and logs every request
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		h.logger.Info("API: Request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
		)
	}
}
