package ml

import (
	"fmt"
	"math"
)

// Model is an opaque pre-trained model over a fixed-shape numeric vector
type Model interface {
	InputSize() int
	Predict(x []float64) ([]float64, error)
}

// ProbabilisticModel is a classifier that can also return per-class probabilities
type ProbabilisticModel interface {
	Model
	PredictProba(x []float64) ([]float64, error)
}

// Versioned is implemented by models that know their artifact version
type Versioned interface {
	Version() string
}

// Model kinds understood by Build
const (
	KindLinear   = "linear"
	KindLogistic = "logistic"
	KindMLP      = "mlp"
)

// Artifact is the on-disk JSON representation of a model
type Artifact struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Kind         string    `json:"kind"`
	InputSize    int       `json:"input_size"`
	Features     []string  `json:"features,omitempty"` // training column order
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept"`
	Layers       []Layer   `json:"layers,omitempty"`
}

// Layer is one dense layer. Weights are indexed [input][output], the layout Keras exports kernels in.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

// Build turns an artifact into a Model
func Build(a *Artifact) (Model, error) {
	switch a.Kind {
	case KindLinear, KindLogistic:
		if len(a.Coefficients) == 0 {
			return nil, fmt.Errorf("%s model %q has no coefficients", a.Kind, a.Name)
		}
		if a.InputSize != 0 && a.InputSize != len(a.Coefficients) {
			return nil, fmt.Errorf("model %q declares input_size %d but has %d coefficients",
				a.Name, a.InputSize, len(a.Coefficients))
		}
		base := linearModel{
			name:         a.Name,
			version:      a.Version,
			coefficients: append([]float64(nil), a.Coefficients...),
			intercept:    a.Intercept,
		}
		if a.Kind == KindLogistic {
			return &logisticModel{linearModel: base}, nil
		}
		return &base, nil

	case KindMLP:
		return buildMLP(a)

	default:
		return nil, fmt.Errorf("model %q has unknown kind %q", a.Name, a.Kind)
	}
}

func checkShape(name string, x []float64, want int) error {
	if len(x) != want {
		return &ShapeMismatchError{Model: name, Expected: want, Got: len(x)}
	}
	return nil
}

// linearModel is a raw regression: w·x + b
type linearModel struct {
	name         string
	version      string
	coefficients []float64
	intercept    float64
}

func (m *linearModel) InputSize() int  { return len(m.coefficients) }
func (m *linearModel) Version() string { return m.version }

func (m *linearModel) decision(x []float64) (float64, error) {
	if err := checkShape(m.name, x, len(m.coefficients)); err != nil {
		return 0, err
	}
	score := m.intercept
	for i, coef := range m.coefficients {
		score += coef * x[i]
	}
	return score, nil
}

func (m *linearModel) Predict(x []float64) ([]float64, error) {
	score, err := m.decision(x)
	if err != nil {
		return nil, err
	}
	return []float64{score}, nil
}

// logisticModel is a binary classifier. Predict returns the class label, PredictProba [P(0), P(1)].
type logisticModel struct {
	linearModel
}

func (m *logisticModel) Predict(x []float64) ([]float64, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	if proba[1] >= 0.5 {
		return []float64{1}, nil
	}
	return []float64{0}, nil
}

func (m *logisticModel) PredictProba(x []float64) ([]float64, error) {
	z, err := m.decision(x)
	if err != nil {
		return nil, err
	}
	p := sigmoid(z)
	return []float64{1 - p, p}, nil
}

// mlpModel is a feed-forward network of dense layers
type mlpModel struct {
	name    string
	version string
	input   int
	layers  []Layer
}

func buildMLP(a *Artifact) (Model, error) {
	if len(a.Layers) == 0 {
		return nil, fmt.Errorf("mlp model %q has no layers", a.Name)
	}

	in := len(a.Layers[0].Weights)
	if a.InputSize != 0 && a.InputSize != in {
		return nil, fmt.Errorf("model %q declares input_size %d but first layer takes %d", a.Name, a.InputSize, in)
	}

	width := in
	for i, layer := range a.Layers {
		if len(layer.Weights) != width {
			return nil, fmt.Errorf("model %q layer %d expects %d inputs, previous layer gives %d",
				a.Name, i, len(layer.Weights), width)
		}
		out := len(layer.Biases)
		if out == 0 {
			return nil, fmt.Errorf("model %q layer %d has no units", a.Name, i)
		}
		for _, row := range layer.Weights {
			if len(row) != out {
				return nil, fmt.Errorf("model %q layer %d has ragged weights", a.Name, i)
			}
		}
		if _, err := activation(layer.Activation); err != nil {
			return nil, fmt.Errorf("model %q layer %d: %w", a.Name, i, err)
		}
		width = out
	}

	return &mlpModel{name: a.Name, version: a.Version, input: in, layers: a.Layers}, nil
}

func (m *mlpModel) InputSize() int  { return m.input }
func (m *mlpModel) Version() string { return m.version }

func (m *mlpModel) Predict(x []float64) ([]float64, error) {
	if err := checkShape(m.name, x, m.input); err != nil {
		return nil, err
	}

	current := x
	for _, layer := range m.layers {
		act, _ := activation(layer.Activation)
		next := make([]float64, len(layer.Biases))
		copy(next, layer.Biases)
		for i, v := range current {
			for j, w := range layer.Weights[i] {
				next[j] += v * w
			}
		}
		for j := range next {
			next[j] = act(next[j])
		}
		current = next
	}
	return current, nil
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "", "linear":
		return func(v float64) float64 { return v }, nil
	case "relu":
		return func(v float64) float64 { return math.Max(0, v) }, nil
	case "sigmoid":
		return sigmoid, nil
	case "tanh":
		return math.Tanh, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
