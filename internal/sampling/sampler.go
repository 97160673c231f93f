// Package sampling draws random choices for search loops: one label from a
// weighted mapping, or a subset of indices with independent Bernoulli trials.
//
// A Sampler is safe for concurrent use. Draws from one Sampler are serialized
// through a single seeded source, so a fixed seed reproduces the same sequence
// when calls happen in the same order.
package sampling

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"quantkit/internal/common"
	"quantkit/internal/proba"

	"gonum.org/v1/gonum/stat/distuv"
)

// lockedSource serializes access to a rand.Source, which is not safe for
// concurrent use on its own.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// Sampler owns the random source used by Select and Indices.
type Sampler struct {
	src       *lockedSource
	tolerance float64

	// held across a whole draw so a multi-step draw is not interleaved
	// with another caller's
	mu sync.Mutex
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithTolerance sets how far the weights given to Select may sum from 1.
func WithTolerance(tol float64) Option {
	return func(s *Sampler) {
		if tol > 0 {
			s.tolerance = tol
		}
	}
}

// New returns a Sampler seeded with seed. A zero seed picks one from the clock.
func New(seed uint64, opts ...Option) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := &Sampler{
		src:       &lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)},
		tolerance: common.DefaultWeightTolerance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select draws one key of weights with probability equal to its value.
// Values must be finite, non-negative and sum to 1 within the tolerance.
func (s *Sampler) Select(weights map[string]float64) (string, error) {
	keys, probs, err := s.checkWeights(weights)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := int(distuv.NewCategorical(probs, s.src).Rand())
	return keys[idx], nil
}

// SelectByScore converts scores to probabilities with the given method and
// draws one name. names and scores are parallel.
func (s *Sampler) SelectByScore(names []string, scores []float64, m proba.Method, beta float64) (string, error) {
	if len(names) != len(scores) {
		return "", common.Validationf("got %d names for %d scores", len(names), len(scores))
	}
	p, err := proba.Transform(scores, m, beta)
	if err != nil {
		return "", err
	}

	weights := make(map[string]float64, len(names))
	for i, name := range names {
		if _, dup := weights[name]; dup {
			return "", common.Validationf("duplicate name %q", name)
		}
		weights[name] = p[i]
	}
	return s.Select(weights)
}

// Indices returns, in ascending order, each index in [0, n) kept independently
// with probability p. The result is never nil.
func (s *Sampler) Indices(n int, p float64) ([]int, error) {
	if n < 0 {
		return nil, common.Validationf("n must be non-negative, got %d", n)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, common.Validationf("p must be in [0, 1], got %v", p)
	}

	out := make([]int, 0, int(float64(n)*p))
	if n == 0 || p == 0 {
		return out, nil
	}

	trial := distuv.Bernoulli{P: p, Src: s.src}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		if trial.Rand() == 1 {
			out = append(out, i)
		}
	}
	return out, nil
}

func (s *Sampler) checkWeights(weights map[string]float64) ([]string, []float64, error) {
	if len(weights) == 0 {
		return nil, nil, common.Validationf("weights are empty")
	}

	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	probs := make([]float64, len(keys))
	var total float64
	for i, k := range keys {
		w := weights[k]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, nil, common.Validationf("weight for %q is not finite", k)
		}
		if w < 0 {
			return nil, nil, common.Validationf("weight for %q is negative: %v", k, w)
		}
		probs[i] = w
		total += w
	}
	if math.Abs(total-1) > s.tolerance {
		return nil, nil, common.Validationf("weights sum to %.6f, must sum to 1", total)
	}
	return keys, probs, nil
}
