package ml

import "fmt"

// ShapeMismatchError is returned when a feature vector does not have the length a model expects.
// It is fatal for the current request only and is never retried.
type ShapeMismatchError struct {
	Model    string
	Expected int
	Got      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("model %s expects %d features, got %d", e.Model, e.Expected, e.Got)
}

// ModelUnavailableError is returned when a model cannot be loaded at startup.
// The process must not start with a partial model set.
type ModelUnavailableError struct {
	Model ModelID
	Path  string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("%s model unavailable (%s): %v", e.Model, e.Path, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// NonFiniteScoreError is returned when a model produces NaN or ±Inf for a finite input
type NonFiniteScoreError struct {
	Model ModelID
	Score float64
}

func (e *NonFiniteScoreError) Error() string {
	return fmt.Sprintf("%s model produced a non-finite score (%v)", e.Model, e.Score)
}
