package storage

import (
	"quantkit/internal/common"
	"quantkit/internal/confusion"
)

// ProbabilityResult is a stored probability transform.
type ProbabilityResult struct {
	Scores        []float64 `json:"scores"`
	Method        string    `json:"method"`
	Beta          float64   `json:"beta"`
	Probabilities []float64 `json:"probabilities"`
}

// ScaledResult is a stored standard-scaler run.
type ScaledResult struct {
	Values []float64 `json:"values"`
	Scaled []float64 `json:"scaled"`
}

// SelectionResult is a stored weighted draw.
type SelectionResult struct {
	Weights map[string]float64 `json:"weights"`
	Choice  string             `json:"choice"`
}

// SampleResult is a stored Bernoulli index sample.
type SampleResult struct {
	N       int     `json:"n"`
	P       float64 `json:"p"`
	Indices []int   `json:"indices"`
}

// ConfusionResult is a stored confusion evaluation.
type ConfusionResult struct {
	NClasses       int                     `json:"n_classes"`
	StartFromClass int                     `json:"start_from_class"`
	Counts         confusion.Counts        `json:"counts"`
	Report         []confusion.ClassReport `json:"report"`
}

// SaveProbabilities stores a probability transform under name.
func (s *Store) SaveProbabilities(name string, r ProbabilityResult) (Record, error) {
	return s.Save(common.KindProbabilities, name, r)
}

// SaveScaled stores a scaler run under name.
func (s *Store) SaveScaled(name string, r ScaledResult) (Record, error) {
	return s.Save(common.KindScaled, name, r)
}

// SaveSelection stores a weighted draw under name.
func (s *Store) SaveSelection(name string, r SelectionResult) (Record, error) {
	return s.Save(common.KindSelection, name, r)
}

// SaveSample stores an index sample under name.
func (s *Store) SaveSample(name string, r SampleResult) (Record, error) {
	return s.Save(common.KindSample, name, r)
}

// SaveConfusion stores a confusion evaluation under name.
func (s *Store) SaveConfusion(name string, r ConfusionResult) (Record, error) {
	return s.Save(common.KindConfusion, name, r)
}
