package ml

import (
	"errors"
	"math"
	"testing"
)

func TestBuild_Linear(t *testing.T) {
	m, err := Build(&Artifact{Name: "lin", Kind: KindLinear, Coefficients: []float64{2, -1}, Intercept: 0.5})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := m.(ProbabilisticModel); ok {
		t.Fatalf("linear model must not be probabilistic")
	}

	out, err := m.Predict([]float64{3, 4})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if out[0] != 2.5 {
		t.Fatalf("out=%v want=2.5", out[0])
	}
}

func TestBuild_Logistic(t *testing.T) {
	m, err := Build(&Artifact{Name: "log", Kind: KindLogistic, Coefficients: []float64{1}, Intercept: 0})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p, ok := m.(ProbabilisticModel)
	if !ok {
		t.Fatalf("logistic model must be probabilistic")
	}

	proba, err := p.PredictProba([]float64{0})
	if err != nil {
		t.Fatalf("predict proba: %v", err)
	}
	if proba[0] != 0.5 || proba[1] != 0.5 {
		t.Fatalf("proba=%v want=[0.5 0.5]", proba)
	}

	label, err := m.Predict([]float64{-3})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if label[0] != 0 {
		t.Fatalf("label=%v want=0", label[0])
	}
}

func TestBuild_MLP(t *testing.T) {
	m, err := Build(&Artifact{
		Name: "net",
		Kind: KindMLP,
		Layers: []Layer{
			{Weights: [][]float64{{1, -1}, {1, -1}}, Biases: []float64{0, 0}, Activation: "relu"},
			{Weights: [][]float64{{1}, {1}}, Biases: []float64{1}, Activation: "linear"},
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.InputSize() != 2 {
		t.Fatalf("input size=%d want=2", m.InputSize())
	}

	// hidden = relu([3, -3]) = [3, 0]; out = 3 + 0 + 1
	out, err := m.Predict([]float64{1, 2})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if out[0] != 4 {
		t.Fatalf("out=%v want=4", out[0])
	}
}

func TestBuild_Invalid(t *testing.T) {
	cases := map[string]*Artifact{
		"unknown kind":    {Name: "x", Kind: "forest"},
		"no coefficients": {Name: "x", Kind: KindLinear},
		"size mismatch":   {Name: "x", Kind: KindLogistic, InputSize: 3, Coefficients: []float64{1, 2}},
		"no layers":       {Name: "x", Kind: KindMLP},
		"ragged weights":  {Name: "x", Kind: KindMLP, Layers: []Layer{{Weights: [][]float64{{1, 2}, {1}}, Biases: []float64{0, 0}}}},
		"layer width":     {Name: "x", Kind: KindMLP, Layers: []Layer{{Weights: [][]float64{{1}}, Biases: []float64{0}}, {Weights: [][]float64{{1}, {1}}, Biases: []float64{0}}}},
		"bad activation":  {Name: "x", Kind: KindMLP, Layers: []Layer{{Weights: [][]float64{{1}}, Biases: []float64{0}, Activation: "softsign"}}},
		"declared size":   {Name: "x", Kind: KindMLP, InputSize: 4, Layers: []Layer{{Weights: [][]float64{{1}}, Biases: []float64{0}}}},
	}

	for name, a := range cases {
		if _, err := Build(a); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestPredict_ShapeMismatch(t *testing.T) {
	models := []Artifact{
		{Name: "lin", Kind: KindLinear, Coefficients: []float64{1, 2, 3}},
		{Name: "log", Kind: KindLogistic, Coefficients: []float64{1, 2, 3}},
		{Name: "net", Kind: KindMLP, Layers: []Layer{{Weights: [][]float64{{1}, {1}, {1}}, Biases: []float64{0}}}},
	}

	for i := range models {
		m, err := Build(&models[i])
		if err != nil {
			t.Fatalf("build %s: %v", models[i].Name, err)
		}

		_, err = m.Predict([]float64{1, 2})
		var shape *ShapeMismatchError
		if !errors.As(err, &shape) {
			t.Fatalf("%s: err=%v want ShapeMismatchError", models[i].Name, err)
		}
		if shape.Expected != 3 || shape.Got != 2 {
			t.Fatalf("%s: expected=%d got=%d", models[i].Name, shape.Expected, shape.Got)
		}
	}
}

func TestSigmoid(t *testing.T) {
	if got := sigmoid(0); got != 0.5 {
		t.Fatalf("sigmoid(0)=%v", got)
	}
	if got := sigmoid(40); math.Abs(got-1) > 1e-9 {
		t.Fatalf("sigmoid(40)=%v", got)
	}
}
