package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/features"
	"github.com/protikmukherjee/fire-prediction-api/internal/ml"
	"github.com/protikmukherjee/fire-prediction-api/internal/models"
	"github.com/protikmukherjee/fire-prediction-api/internal/recommend"
)

const daytimeSnapshot = `{
  "SmartHomeSystem": {
    "SmartFireSystem": {"Flame": 1, "Heat": 80, "Smoke": 300, "power_mW": 50, "index": 1},
    "SmartLightSystem": {
      "Light1_status": false, "Light2_status": false, "Light3_status": false,
      "Light1_brightness": 0, "Light2_brightness": 0, "Light3_brightness": 0
    },
    "SmartGarageDoorSystem": {"motion_detected": false, "isOn": true},
    "SystemOverview": {"total_power_mW": 100, "threshold_power_mW": 50}
  }
}`

type fakeScorer struct {
	scores map[ml.ModelID]float64
	errs   map[ml.ModelID]error
	panics bool
	calls  []ml.ModelID
}

func (f *fakeScorer) Score(id ml.ModelID, vec models.FeatureVector) (float64, error) {
	if f.panics {
		panic("boom")
	}
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return 0, err
	}
	return f.scores[id], nil
}

func (f *fakeScorer) Versions() string { return "fire=t,occupancy=t,power=t" }

type fakeHistory struct {
	mu      sync.Mutex
	saved   []*models.PredictionRecord
	saveErr error
	panics  bool
}

func (h *fakeHistory) SavePrediction(ctx context.Context, rec *models.PredictionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("history store crashed")
	}
	if h.saveErr != nil {
		return h.saveErr
	}
	h.saved = append(h.saved, rec)
	return nil
}

func (h *fakeHistory) RecentPredictions(ctx context.Context, deviceID string, limit int) ([]models.PredictionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.PredictionRecord
	for _, r := range h.saved {
		out = append(out, *r)
	}
	return out, nil
}

func (h *fakeHistory) Close() error { return nil }

func defaultScorer() *fakeScorer {
	return &fakeScorer{scores: map[ml.ModelID]float64{
		ml.FireModel:      0.83,
		ml.OccupancyModel: 0.6,
		ml.PowerModel:     42,
	}}
}

func tenAM() *recommend.Engine {
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return recommend.NewEngine(func() time.Time { return fixed }, time.UTC)
}

func TestPredict_ScoresAndRecommends(t *testing.T) {
	scorer := defaultScorer()
	svc := NewPredictionService(scorer, tenAM(), nil, zap.NewNop())

	result, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), RequestMeta{Source: models.SourceHTTP})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if result.FireProbability != 0.83 || result.OccupancyProbability != 0.6 || result.PowerPrediction != 42 {
		t.Fatalf("unexpected scores: %+v", result)
	}

	want := strings.Join([]string{
		recommend.AdvisoryFireRisk,
		"Room lights during daytime may push total power (100 mW) above limit (50).",
		recommend.AdvisoryIdleGarage,
		recommend.AdvisoryTrendPending,
	}, recommend.Separator)
	if result.Recommendation != want {
		t.Fatalf("recommendation=%q\nwant=%q", result.Recommendation, want)
	}

	wantCalls := []ml.ModelID{ml.FireModel, ml.OccupancyModel, ml.PowerModel}
	if len(scorer.calls) != len(wantCalls) {
		t.Fatalf("calls=%v want=%v", scorer.calls, wantCalls)
	}
	for i := range wantCalls {
		if scorer.calls[i] != wantCalls[i] {
			t.Fatalf("calls=%v want=%v", scorer.calls, wantCalls)
		}
	}
}

func TestPredict_PayloadErrorsAreClientErrors(t *testing.T) {
	svc := NewPredictionService(defaultScorer(), tenAM(), nil, zap.NewNop())

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `not json`},
		{"missing section", `{"SmartFireSystem": {}}`},
		{"missing smoke", strings.Replace(daytimeSnapshot, `"Smoke": 300, `, "", 1)},
	}

	for _, tt := range tests {
		_, err := svc.Predict(context.Background(), []byte(tt.payload), RequestMeta{})
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if !IsClientError(err) {
			t.Fatalf("%s: err=%v should be a client error", tt.name, err)
		}
	}

	_, err := svc.Predict(context.Background(), []byte(tests[2].payload), RequestMeta{})
	var missing *features.MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "SmartFireSystem.Smoke" {
		t.Fatalf("err=%v want missing SmartFireSystem.Smoke", err)
	}
}

func TestPredict_ScoringErrorIsNotClientError(t *testing.T) {
	scorer := defaultScorer()
	scorer.errs = map[ml.ModelID]error{
		ml.OccupancyModel: &ml.ShapeMismatchError{Model: "occupancy", Expected: 7, Got: 6},
	}
	svc := NewPredictionService(scorer, tenAM(), nil, zap.NewNop())

	_, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), RequestMeta{})
	var shape *ml.ShapeMismatchError
	if !errors.As(err, &shape) {
		t.Fatalf("err=%v want ShapeMismatchError", err)
	}
	if IsClientError(err) {
		t.Fatalf("scoring failure must not be a client error")
	}
	if len(scorer.calls) != 2 {
		t.Fatalf("power model should not run after a failure, calls=%v", scorer.calls)
	}
}

func TestPredict_RecoversFromPanic(t *testing.T) {
	scorer := defaultScorer()
	scorer.panics = true
	svc := NewPredictionService(scorer, tenAM(), nil, zap.NewNop())

	result, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), RequestMeta{})
	if err == nil || result != nil {
		t.Fatalf("expected error from panicking scorer, got result=%v err=%v", result, err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err=%v should mention the panic", err)
	}
}

func TestPredict_RecoversFromPanicAfterScoring(t *testing.T) {
	svc := NewPredictionService(defaultScorer(), tenAM(), &fakeHistory{panics: true}, zap.NewNop())

	result, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), RequestMeta{})
	if err == nil || result != nil {
		t.Fatalf("expected error from panicking history store, got result=%v err=%v", result, err)
	}
	if !strings.Contains(err.Error(), "history store crashed") {
		t.Fatalf("err=%v should mention the panic", err)
	}
}

func TestPredict_RecordsHistory(t *testing.T) {
	history := &fakeHistory{}
	svc := NewPredictionService(defaultScorer(), tenAM(), history, zap.NewNop())
	if !svc.HasHistory() {
		t.Fatalf("HasHistory should be true")
	}

	requestID := uuid.NewString()
	meta := RequestMeta{RequestID: requestID, DeviceID: "house-01", Source: models.SourceMQTT}
	result, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), meta)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if len(history.saved) != 1 {
		t.Fatalf("saved=%d want=1", len(history.saved))
	}
	rec := history.saved[0]
	if rec.ID != requestID {
		t.Fatalf("id=%q want request id %q", rec.ID, requestID)
	}
	if rec.DeviceID != "house-01" || rec.Source != models.SourceMQTT {
		t.Fatalf("unexpected origin: %+v", rec)
	}
	if rec.TotalPowerMW != 100 || rec.ThresholdPowerMW != 50 {
		t.Fatalf("power context: total=%v threshold=%v", rec.TotalPowerMW, rec.ThresholdPowerMW)
	}
	if rec.Recommendation != result.Recommendation {
		t.Fatalf("recommendation not recorded")
	}
	if rec.ModelVersions != "fire=t,occupancy=t,power=t" {
		t.Fatalf("versions=%q", rec.ModelVersions)
	}
}

func TestPredict_GeneratesRecordIDWhenMissing(t *testing.T) {
	history := &fakeHistory{}
	svc := NewPredictionService(defaultScorer(), tenAM(), history, zap.NewNop())

	for _, id := range []string{"", "not-a-uuid"} {
		if _, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), RequestMeta{RequestID: id}); err != nil {
			t.Fatalf("Predict: %v", err)
		}
	}

	for _, rec := range history.saved {
		if _, err := uuid.Parse(rec.ID); err != nil {
			t.Fatalf("record id %q is not a uuid", rec.ID)
		}
	}
}

func TestPredict_HistoryFailureDoesNotFailPrediction(t *testing.T) {
	history := &fakeHistory{saveErr: errors.New("disk full")}
	svc := NewPredictionService(defaultScorer(), tenAM(), history, zap.NewNop())

	if _, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), RequestMeta{}); err != nil {
		t.Fatalf("Predict should succeed when history fails: %v", err)
	}
}

func TestRecentPredictions_DisabledHistory(t *testing.T) {
	svc := NewPredictionService(defaultScorer(), tenAM(), nil, zap.NewNop())
	if svc.HasHistory() {
		t.Fatalf("HasHistory should be false")
	}

	_, err := svc.RecentPredictions(context.Background(), "", 10)
	if !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("err=%v want ErrHistoryDisabled", err)
	}
}

func TestPredict_ConcurrentCallsAreIndependent(t *testing.T) {
	scorer := concurrentScorer{}
	svc := NewPredictionService(scorer, tenAM(), nil, zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Predict(context.Background(), []byte(daytimeSnapshot), RequestMeta{})
			if err != nil {
				errs <- err
				return
			}
			if result.PowerPrediction != 7 {
				errs <- errors.New("unexpected power prediction")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent predict: %v", err)
	}
}

// concurrentScorer keeps no per-call state
type concurrentScorer struct{}

func (concurrentScorer) Score(id ml.ModelID, vec models.FeatureVector) (float64, error) {
	if id == ml.PowerModel {
		return 7, nil
	}
	return 0.5, nil
}

func (concurrentScorer) Versions() string { return "" }
