package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/protikmukherjee/fire-prediction-api/internal/features"
)

// ModelPaths locates the three model artifacts on disk
type ModelPaths struct {
	Fire      string
	Occupancy string
	Power     string
}

// LoadModelSet loads all three models or none
func LoadModelSet(paths ModelPaths, logger *zap.Logger) (*ModelSet, error) {
	entries := []struct {
		id       ModelID
		path     string
		features []string
	}{
		{FireModel, paths.Fire, features.FireFeatureNames},
		{OccupancyModel, paths.Occupancy, features.OccupancyFeatureNames},
		{PowerModel, paths.Power, features.PowerFeatureNames},
	}

	loaded := make([]Model, len(entries))
	for i, entry := range entries {
		m, err := LoadModel(entry.path, entry.features)
		if err != nil {
			return nil, &ModelUnavailableError{Model: entry.id, Path: entry.path, Err: err}
		}
		loaded[i] = m
		logger.Info("ModelLoader: Loaded model",
			zap.String("model", string(entry.id)),
			zap.String("path", entry.path),
			zap.String("version", versionOf(m)),
			zap.Bool("probabilistic", isProbabilistic(m)),
		)
	}

	return NewModelSet(loaded[0], loaded[1], loaded[2])
}

// LoadModel reads one artifact and checks it against the expected feature layout
func LoadModel(path string, expected []string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}

	m, err := Build(&artifact)
	if err != nil {
		return nil, err
	}

	if err := checkLayout(m, artifact.Features, expected); err != nil {
		return nil, err
	}
	return m, nil
}

// checkLayout rejects models whose input does not line up with the extractor.
// A reordered vector would not fail at predict time, so it has to fail here.
func checkLayout(m Model, declared, expected []string) error {
	if m.InputSize() != len(expected) {
		return fmt.Errorf("model takes %d inputs, extractor produces %d", m.InputSize(), len(expected))
	}
	if len(declared) == 0 {
		return nil
	}
	if len(declared) != len(expected) {
		return fmt.Errorf("model declares %d feature names, extractor produces %d", len(declared), len(expected))
	}
	for i := range expected {
		if !strings.EqualFold(declared[i], expected[i]) {
			return fmt.Errorf("feature %d is %q in model, %q in extractor", i, declared[i], expected[i])
		}
	}
	return nil
}

func isProbabilistic(m Model) bool {
	_, ok := m.(ProbabilisticModel)
	return ok
}
