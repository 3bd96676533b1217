package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/protikmukherjee/fire-prediction-api/internal/features"
)

// Default artifact file names inside a model directory
const (
	FireModelFile      = "fire_model.json"
	OccupancyModelFile = "occupancy_model.json"
	PowerModelFile     = "power_model.json"
)

// SampleArtifacts returns a small demonstration model set
func SampleArtifacts() map[string]*Artifact {
	return map[string]*Artifact{
		FireModelFile: {
			Name:      "fire",
			Version:   "sample-1",
			Kind:      KindLogistic,
			InputSize: len(features.FireFeatureNames),
			Features:  features.FireFeatureNames,
			// Flame and smoke dominate; power draw barely matters
			Coefficients: []float64{2.5, 0.04, 0.006, 0.0001, 0.1},
			Intercept:    -6.0,
		},
		OccupancyModelFile: {
			Name:      "occupancy",
			Version:   "sample-1",
			Kind:      KindMLP,
			InputSize: len(features.OccupancyFeatureNames),
			Features:  features.OccupancyFeatureNames,
			Layers: []Layer{
				{
					Weights: [][]float64{
						{0.8, 0.1},
						{0.8, 0.1},
						{0.8, 0.1},
						{0.005, 0.0},
						{0.005, 0.0},
						{0.005, 0.0},
						{0.0, 2.0},
					},
					Biases:     []float64{-0.5, 0.0},
					Activation: "relu",
				},
				{
					Weights:    [][]float64{{1.2}, {1.5}},
					Biases:     []float64{-1.0},
					Activation: "sigmoid",
				},
			},
		},
		PowerModelFile: {
			Name:      "power",
			Version:   "sample-1",
			Kind:      KindMLP,
			InputSize: len(features.PowerFeatureNames),
			Features:  features.PowerFeatureNames,
			Layers: []Layer{
				{
					Weights: [][]float64{
						{12.0},
						{12.0},
						{15.0},
						{0.2},
						{0.2},
						{0.25},
						{5.0},
					},
					Biases:     []float64{20.0},
					Activation: "relu",
				},
			},
		},
	}
}

// WriteSampleModels writes the demonstration artifacts into dir
func WriteSampleModels(dir string) (ModelPaths, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ModelPaths{}, fmt.Errorf("failed to create model directory: %w", err)
	}

	for name, artifact := range SampleArtifacts() {
		data, err := json.MarshalIndent(artifact, "", "  ")
		if err != nil {
			return ModelPaths{}, fmt.Errorf("failed to marshal model: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return ModelPaths{}, fmt.Errorf("failed to write model file: %w", err)
		}
	}

	return PathsIn(dir), nil
}

// PathsIn returns the default artifact paths inside dir
func PathsIn(dir string) ModelPaths {
	return ModelPaths{
		Fire:      filepath.Join(dir, FireModelFile),
		Occupancy: filepath.Join(dir, OccupancyModelFile),
		Power:     filepath.Join(dir, PowerModelFile),
	}
}
