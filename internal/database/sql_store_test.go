package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id, device string, ts time.Time) *models.PredictionRecord {
	return &models.PredictionRecord{
		ID:                   id,
		Timestamp:            ts,
		DeviceID:             device,
		Source:               models.SourceHTTP,
		FireProbability:      0.42,
		OccupancyProbability: 0.1,
		PowerPrediction:      250,
		TotalPowerMW:         300,
		ThresholdPowerMW:     200,
		Recommendation:       "Trend analysis over the last 7 days not yet implemented.",
		InferenceTimeMs:      1.5,
		ModelVersions:        "fire=sample-1,occupancy=sample-1,power=sample-1",
	}
}

func TestSQLiteStore_SaveAndList(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := store.SavePrediction(ctx, record(fmt.Sprintf("a-%d", i), "house-a", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SavePrediction: %v", err)
		}
	}
	if err := store.SavePrediction(ctx, record("b-0", "house-b", base.Add(time.Hour))); err != nil {
		t.Fatalf("SavePrediction: %v", err)
	}

	all, err := store.RecentPredictions(ctx, "", 0)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len=%d want=4", len(all))
	}
	if all[0].ID != "b-0" {
		t.Fatalf("newest first: got %q", all[0].ID)
	}

	houseA, err := store.RecentPredictions(ctx, "house-a", 2)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if len(houseA) != 2 || houseA[0].ID != "a-2" || houseA[1].ID != "a-1" {
		t.Fatalf("house-a=%+v", houseA)
	}

	got := houseA[0]
	want := record("a-2", "house-a", base.Add(2*time.Minute))
	if got.FireProbability != want.FireProbability || got.ThresholdPowerMW != want.ThresholdPowerMW ||
		got.Recommendation != want.Recommendation || got.ModelVersions != want.ModelVersions {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("timestamp=%v want=%v", got.Timestamp, want.Timestamp)
	}
}

func TestSQLiteStore_EmptyResultIsNotNil(t *testing.T) {
	store := newSQLiteStore(t)

	records, err := store.RecentPredictions(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("records=%v want empty slice", records)
	}
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	rec := record("dup", "house-a", time.Now().UTC())
	if err := store.SavePrediction(ctx, rec); err != nil {
		t.Fatalf("SavePrediction: %v", err)
	}
	if err := store.SavePrediction(ctx, rec); err == nil {
		t.Fatalf("expected primary key violation")
	}
}

func TestOpenHistory(t *testing.T) {
	ctx := context.Background()

	store, err := OpenHistory(ctx, HistoryConfig{Backend: BackendNone}, zap.NewNop())
	if err != nil || store != nil {
		t.Fatalf("disabled backend: store=%v err=%v", store, err)
	}

	if _, err := OpenHistory(ctx, HistoryConfig{Backend: "mongo"}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}

	if _, err := OpenHistory(ctx, HistoryConfig{Backend: BackendPostgres}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for postgres without url")
	}

	store, err = OpenHistory(ctx, HistoryConfig{
		Backend:    BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if store == nil {
		t.Fatalf("sqlite backend returned nil store")
	}
	store.Close()
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{-1, DefaultRecentLimit},
		{0, DefaultRecentLimit},
		{5, 5},
		{500, 500},
		{10000, 500},
	}
	for _, tt := range tests {
		if got := normalizeLimit(tt.in); got != tt.want {
			t.Fatalf("normalizeLimit(%d)=%d want=%d", tt.in, got, tt.want)
		}
	}
}
