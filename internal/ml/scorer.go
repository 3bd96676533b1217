package ml

import (
	"fmt"
	"math"
	"strings"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// ModelID names one of the three models in a ModelSet
type ModelID string

const (
	FireModel      ModelID = "fire"
	OccupancyModel ModelID = "occupancy"
	PowerModel     ModelID = "power"
)

// Scorer maps a feature vector to a single score
type Scorer interface {
	Score(vec models.FeatureVector) (float64, error)
}

// NewClassifierScorer returns the positive-class probability when the model supports it
// and the raw prediction otherwise. The capability is resolved here, once.
func NewClassifierScorer(m Model) Scorer {
	if p, ok := m.(ProbabilisticModel); ok {
		return &probabilityScorer{model: p}
	}
	return &rawScorer{model: m}
}

// NewRegressorScorer returns the first scalar of the model output
func NewRegressorScorer(m Model) Scorer {
	return &rawScorer{model: m}
}

type probabilityScorer struct {
	model ProbabilisticModel
}

func (s *probabilityScorer) Score(vec models.FeatureVector) (float64, error) {
	proba, err := s.model.PredictProba(vec)
	if err != nil {
		return 0, err
	}
	if len(proba) < 2 {
		return 0, fmt.Errorf("expected 2 class probabilities, got %d", len(proba))
	}
	return proba[1], nil
}

type rawScorer struct {
	model Model
}

func (s *rawScorer) Score(vec models.FeatureVector) (float64, error) {
	out, err := s.model.Predict(vec)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("model returned no output")
	}
	return out[0], nil
}

// ModelSet holds the three loaded models. It is never mutated after construction
// and is safe for concurrent use.
type ModelSet struct {
	fire      Scorer
	occupancy Scorer
	power     Scorer
	versions  string
}

// NewModelSet wraps the three models in their scorers
func NewModelSet(fire, occupancy, power Model) (*ModelSet, error) {
	if fire == nil || occupancy == nil || power == nil {
		return nil, fmt.Errorf("all three models are required")
	}

	return &ModelSet{
		fire:      NewClassifierScorer(fire),
		occupancy: NewRegressorScorer(occupancy),
		power:     NewRegressorScorer(power),
		versions: strings.Join([]string{
			string(FireModel) + "=" + versionOf(fire),
			string(OccupancyModel) + "=" + versionOf(occupancy),
			string(PowerModel) + "=" + versionOf(power),
		}, ","),
	}, nil
}

// Score runs the named model over vec
func (ms *ModelSet) Score(id ModelID, vec models.FeatureVector) (float64, error) {
	var s Scorer
	switch id {
	case FireModel:
		s = ms.fire
	case OccupancyModel:
		s = ms.occupancy
	case PowerModel:
		s = ms.power
	default:
		return 0, fmt.Errorf("unknown model %q", id)
	}

	score, err := s.Score(vec)
	if err != nil {
		return 0, fmt.Errorf("%s model: %w", id, err)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, &NonFiniteScoreError{Model: id, Score: score}
	}
	return score, nil
}

// Versions returns "fire=<v>,occupancy=<v>,power=<v>" for history records
func (ms *ModelSet) Versions() string {
	return ms.versions
}

func versionOf(m Model) string {
	if v, ok := m.(Versioned); ok && v.Version() != "" {
		return v.Version()
	}
	return "unknown"
}
