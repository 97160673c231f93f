// Package proba turns score vectors into probability vectors.
//
// All four methods give a higher score an equal or higher probability. Inputs
// are never modified; each call returns a freshly allocated slice that sums to
// one.
package proba

import (
	"math"

	"quantkit/internal/common"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Transform converts scores to probabilities using method m. beta only
// affects Softmax.
func Transform(scores []float64, m Method, beta float64) ([]float64, error) {
	if !m.valid() {
		return nil, &common.UnsupportedMethodError{Method: m.String(), Valid: MethodNames()}
	}
	if err := checkScores(scores); err != nil {
		return nil, err
	}

	switch m {
	case Default:
		return proportional(scores)
	case Rank:
		return ranked(scores), nil
	case Softmax:
		if math.IsNaN(beta) || math.IsInf(beta, 0) {
			return nil, common.Validationf("beta must be finite, got %v", beta)
		}
		return softmax(scores, beta)
	default:
		return uniform(len(scores)), nil
	}
}

// StandardScale returns the z-scores of xs using the population standard
// deviation.
func StandardScale(xs []float64) ([]float64, error) {
	if err := checkScores(xs); err != nil {
		return nil, err
	}
	return standardize(xs)
}

func checkScores(scores []float64) error {
	if len(scores) == 0 {
		return common.Validationf("score vector is empty")
	}
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return common.Validationf("score %d is not finite: %v", i, v)
		}
	}
	return nil
}

func proportional(scores []float64) ([]float64, error) {
	for i, v := range scores {
		if v < 0 {
			return nil, common.Validationf("default method requires non-negative scores, score %d is %v", i, v)
		}
	}
	total, err := stats.Sum(scores)
	if err != nil {
		return nil, common.Validationf("sum scores: %v", err)
	}
	if total == 0 {
		return nil, common.Degeneratef("scores sum to zero")
	}

	out := make([]float64, len(scores))
	copy(out, scores)
	if math.IsInf(total, 0) {
		// the sum overflowed; shrink by the largest score first
		peak := floats.Max(scores)
		for i := range out {
			out[i] /= peak
		}
		total = floats.Sum(out)
	}
	for i := range out {
		out[i] /= total
	}
	return out, nil
}

// ranked assigns rank 1 to the smallest score and n to the largest. Equal
// scores keep their input order, so the later one ranks higher.
func ranked(scores []float64) []float64 {
	n := len(scores)
	sorted := make([]float64, n)
	copy(sorted, scores)
	inds := make([]int, n)
	floats.ArgsortStable(sorted, inds)

	out := make([]float64, n)
	for rank, idx := range inds {
		out[idx] = float64(rank + 1)
	}
	// 1 + 2 + ... + n
	floats.Scale(2/float64(n*(n+1)), out)
	return out
}

func softmax(scores []float64, beta float64) ([]float64, error) {
	if beta == 0 {
		return uniform(len(scores)), nil
	}
	z, err := standardize(scores)
	if err != nil {
		return nil, err
	}

	floats.Scale(beta, z)
	shift := floats.Max(z)
	for i := range z {
		z[i] = math.Exp(z[i] - shift)
	}
	floats.Scale(1/floats.Sum(z), z)
	return z, nil
}

// standardize returns z-scores. When the mean or the variance overflows it
// works on xs divided by its largest magnitude, which leaves z-scores unchanged.
func standardize(xs []float64) ([]float64, error) {
	mean, std, err := moments(xs)
	if err != nil {
		return nil, err
	}
	if !finite(mean) || !finite(std) {
		peak := floats.Norm(xs, math.Inf(1))
		scaled := make([]float64, len(xs))
		for i, x := range xs {
			scaled[i] = x / peak
		}
		xs = scaled
		if mean, std, err = moments(xs); err != nil {
			return nil, err
		}
	}
	if std == 0 {
		return nil, common.Degeneratef("scores have zero variance")
	}

	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = (x - mean) / std
	}
	return out, nil
}

func moments(xs []float64) (mean, std float64, err error) {
	mean, err = stats.Mean(xs)
	if err != nil {
		return 0, 0, common.Validationf("mean: %v", err)
	}
	std, err = stats.StandardDeviation(xs)
	if err != nil {
		return 0, 0, common.Validationf("standard deviation: %v", err)
	}
	return mean, std, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func uniform(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}
