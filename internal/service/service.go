// Package service runs the numeric operations on request values. It applies
// configured defaults, records metrics and, when a store is attached and the
// request names a result, persists the output.
package service

import (
	"fmt"
	"runtime"
	"time"

	"quantkit/internal/common"
	"quantkit/internal/confusion"
	"quantkit/internal/metrics"
	"quantkit/internal/proba"
	"quantkit/internal/sampling"
	"quantkit/internal/storage"

	"github.com/rs/zerolog/log"
)

// Defaults are applied to requests that leave a field unset.
type Defaults struct {
	Method proba.Method
	Beta   float64
}

// Service is safe for concurrent use.
type Service struct {
	sampler  *sampling.Sampler
	metrics  metrics.Recorder
	store    *storage.Store
	defaults Defaults
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records every operation on rec.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithStore persists named results to store.
func WithStore(store *storage.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithDefaults sets the method and beta used when a request omits them.
func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// New returns a Service drawing from sampler.
func New(sampler *sampling.Sampler, opts ...Option) *Service {
	s := &Service{
		sampler:  sampler,
		metrics:  metrics.Nop{},
		defaults: Defaults{Method: proba.Default, Beta: common.DefaultBeta},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Probabilities runs the probability transform.
func (s *Service) Probabilities(req ProbabilitiesRequest) (ProbabilitiesResponse, error) {
	const op = "probabilities"

	method := s.defaults.Method
	if req.Method != "" {
		m, err := proba.ParseMethod(req.Method)
		if err != nil {
			return ProbabilitiesResponse{}, s.fail(op, err)
		}
		method = m
	}
	beta := s.defaults.Beta
	if req.Beta != nil {
		beta = *req.Beta
	}

	start := time.Now()
	p, err := proba.Transform(req.Scores, method, beta)
	if err != nil {
		return ProbabilitiesResponse{}, s.fail(op, err)
	}
	s.metrics.ObserveTransform(method.String(), len(p), time.Since(start))

	resp := ProbabilitiesResponse{Method: method.String(), Beta: beta, Probabilities: p}
	if err := s.persist(op, req.Name, func(st *storage.Store) error {
		_, err := st.SaveProbabilities(req.Name, storage.ProbabilityResult{
			Scores:        req.Scores,
			Method:        resp.Method,
			Beta:          beta,
			Probabilities: p,
		})
		return err
	}); err != nil {
		return ProbabilitiesResponse{}, err
	}
	return resp, nil
}

// Scale standardizes values to zero mean and unit variance.
func (s *Service) Scale(req ScaleRequest) (ScaleResponse, error) {
	z, err := proba.StandardScale(req.Values)
	if err != nil {
		return ScaleResponse{}, s.fail("scale", err)
	}

	if err := s.persist("scale", req.Name, func(st *storage.Store) error {
		_, err := st.SaveScaled(req.Name, storage.ScaledResult{Values: req.Values, Scaled: z})
		return err
	}); err != nil {
		return ScaleResponse{}, err
	}
	return ScaleResponse{Values: z}, nil
}

// Select draws one key from the weights.
func (s *Service) Select(req SelectRequest) (SelectResponse, error) {
	choice, err := s.sampler.Select(req.Weights)
	if err != nil {
		return SelectResponse{}, s.fail("select", err)
	}
	s.metrics.ObserveSelection()

	if err := s.persist("select", req.Name, func(st *storage.Store) error {
		_, err := st.SaveSelection(req.Name, storage.SelectionResult{Weights: req.Weights, Choice: choice})
		return err
	}); err != nil {
		return SelectResponse{}, err
	}
	return SelectResponse{Choice: choice}, nil
}

// Sample draws Bernoulli indices.
func (s *Service) Sample(req SampleRequest) (SampleResponse, error) {
	idx, err := s.sampler.Indices(req.N, req.P)
	if err != nil {
		return SampleResponse{}, s.fail("sample", err)
	}
	s.metrics.ObserveSample(len(idx))

	if err := s.persist("sample", req.Name, func(st *storage.Store) error {
		_, err := st.SaveSample(req.Name, storage.SampleResult{N: req.N, P: req.P, Indices: idx})
		return err
	}); err != nil {
		return SampleResponse{}, err
	}
	return SampleResponse{Indices: idx}, nil
}

// Confusion counts per-class outcomes. Table takes precedence over Scores
// when both are set.
func (s *Service) Confusion(req ConfusionRequest) (ConfusionResponse, error) {
	const op = "confusion"

	var pred confusion.Predictions
	switch {
	case req.Table != nil:
		pred = req.Table
	case req.Scores != nil:
		pred = confusion.BinaryScores(req.Scores)
	default:
		return ConfusionResponse{}, s.fail(op, common.Validationf("either scores or table is required"))
	}

	start := common.DefaultStartFromClass
	if req.StartFromClass != nil {
		start = *req.StartFromClass
	}
	opts := []confusion.Option{confusion.StartFrom(start), confusion.WithJobs(confusionJobs(len(req.YTrue)))}
	if req.NClasses != 0 {
		opts = append(opts, confusion.WithClasses(req.NClasses))
	}

	counts, err := confusion.Count(req.YTrue, pred, opts...)
	if err != nil {
		return ConfusionResponse{}, s.fail(op, err)
	}
	s.metrics.ObserveConfusion(len(req.YTrue))

	resp := ConfusionResponse{Counts: counts, Report: counts.Report()}
	if err := s.persist(op, req.Name, func(st *storage.Store) error {
		_, err := st.SaveConfusion(req.Name, storage.ConfusionResult{
			NClasses:       start + len(counts.Classes),
			StartFromClass: start,
			Counts:         counts,
			Report:         resp.Report,
		})
		return err
	}); err != nil {
		return ConfusionResponse{}, err
	}
	return resp, nil
}

// confusionJobs gives each concurrent chunk at least common.MinSamplesPerJob
// samples.
func confusionJobs(samples int) int {
	return max(1, min(runtime.GOMAXPROCS(0), samples/common.MinSamplesPerJob))
}

func (s *Service) fail(op string, err error) error {
	s.metrics.ObserveError(op, common.ErrorKind(err))
	return err
}

// persist saves a named result when a store is attached.
func (s *Service) persist(op, name string, save func(*storage.Store) error) error {
	if s.store == nil || name == "" {
		return nil
	}
	if err := save(s.store); err != nil {
		s.metrics.ObserveError(op, "storage")
		log.Error().Err(err).Str("operation", op).Str("name", name).Msg("failed to persist result")
		return fmt.Errorf("persist %s result %q: %w", op, name, err)
	}
	return nil
}
