package service

import (
	"errors"
	"runtime"
	"testing"

	"quantkit/internal/common"
	"quantkit/internal/confusion"
	"quantkit/internal/metrics"
	"quantkit/internal/proba"
	"quantkit/internal/sampling"
	"quantkit/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	opts = append([]Option{WithMetrics(m)}, opts...)
	return New(sampling.New(1), opts...), m
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestProbabilities_Defaults(t *testing.T) {
	svc, m := newTestService(t, WithDefaults(Defaults{Method: proba.Uniform, Beta: 3}))

	resp, err := svc.Probabilities(ProbabilitiesRequest{Scores: []float64{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, "uniform", resp.Method)
	assert.Equal(t, 3.0, resp.Beta)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, resp.Probabilities)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransformsTotal.WithLabelValues("uniform")))
}

func TestProbabilities_ExplicitMethodAndBeta(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Probabilities(ProbabilitiesRequest{
		Scores: []float64{1, 2, 3},
		Method: "softmax",
		Beta:   floatPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "softmax", resp.Method)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, resp.Probabilities, 1e-12)
}

func TestProbabilities_ErrorsAreCounted(t *testing.T) {
	svc, m := newTestService(t)

	_, err := svc.Probabilities(ProbabilitiesRequest{Scores: []float64{1}, Method: "nope"})
	assert.True(t, errors.Is(err, common.ErrUnsupportedMethod))

	_, err = svc.Probabilities(ProbabilitiesRequest{Scores: []float64{0, 0}})
	assert.True(t, errors.Is(err, common.ErrDegenerateInput))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("probabilities", "unsupported_method")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("probabilities", "degenerate_input")))
}

func TestScaleSelectSample(t *testing.T) {
	svc, m := newTestService(t)

	scaled, err := svc.Scale(ScaleRequest{Values: []float64{1, 3}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-1, 1}, scaled.Values, 1e-12)

	sel, err := svc.Select(SelectRequest{Weights: map[string]float64{"only": 1}})
	require.NoError(t, err)
	assert.Equal(t, "only", sel.Choice)

	sample, err := svc.Sample(SampleRequest{N: 3, P: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, sample.Indices)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SelectionsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SampledIndices))
}

func TestConfusion_Binary(t *testing.T) {
	svc, m := newTestService(t)

	resp, err := svc.Confusion(ConfusionRequest{
		YTrue:    []int{1, 1, 2, 2},
		Scores:   []float64{0.9, 0.1, 0.9, 0.1},
		NClasses: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, resp.Classes)
	assert.Equal(t, []int{1}, resp.TP)
	assert.Equal(t, []int{1}, resp.FP)
	assert.Equal(t, []int{1}, resp.FN)
	require.Len(t, resp.Report, 1)
	assert.Equal(t, 0.5, resp.Report[0].Precision)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ConfusionSamples))
}

func TestConfusion_TableAndStart(t *testing.T) {
	svc, _ := newTestService(t)
	table, err := confusion.NewScoreTable([][]float64{{1, 0, 0}, {0, 1, 0}, {0, 1, 0}})
	require.NoError(t, err)

	resp, err := svc.Confusion(ConfusionRequest{
		YTrue:          []int{0, 1, 2},
		Table:          table,
		StartFromClass: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, resp.Classes)
	assert.Equal(t, []int{1, 1, 0}, resp.TP)
	assert.Equal(t, []int{0, 1, 0}, resp.FP)
	assert.Equal(t, []int{0, 0, 1}, resp.FN)
}

func TestConfusion_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Confusion(ConfusionRequest{YTrue: []int{0, 1}})
	assert.True(t, errors.Is(err, common.ErrValidation))

	table, err := confusion.NewScoreTable([][]float64{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)
	_, err = svc.Confusion(ConfusionRequest{YTrue: []int{0, 1}, Table: table, NClasses: 2})
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestConfusionJobs(t *testing.T) {
	assert.Equal(t, 1, confusionJobs(0))
	assert.Equal(t, 1, confusionJobs(common.MinSamplesPerJob-1))
	assert.LessOrEqual(t, confusionJobs(1000*common.MinSamplesPerJob), runtime.GOMAXPROCS(0))
	assert.GreaterOrEqual(t, confusionJobs(1000*common.MinSamplesPerJob), 1)
}

func TestPersistNamedResults(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	svc, _ := newTestService(t, WithStore(store))

	_, err = svc.Probabilities(ProbabilitiesRequest{Scores: []float64{1, 3}, Name: "fitness"})
	require.NoError(t, err)
	_, err = svc.Sample(SampleRequest{N: 2, P: 1, Name: "mask"})
	require.NoError(t, err)
	// unnamed results are not stored
	_, err = svc.Select(SelectRequest{Weights: map[string]float64{"a": 1}})
	require.NoError(t, err)

	rec, err := store.Latest(common.KindProbabilities, "fitness")
	require.NoError(t, err)
	var p storage.ProbabilityResult
	require.NoError(t, rec.Decode(&p))
	assert.Equal(t, []float64{0.25, 0.75}, p.Probabilities)
	assert.Equal(t, "default", p.Method)

	rec, err = store.Latest(common.KindSample, "mask")
	require.NoError(t, err)
	var s storage.SampleResult
	require.NoError(t, rec.Decode(&s))
	assert.Equal(t, []int{0, 1}, s.Indices)

	names, err := store.Names(common.KindSelection)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPersist_InvalidNameFails(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	svc, m := newTestService(t, WithStore(store))

	_, err = svc.Scale(ScaleRequest{Values: []float64{1, 2}, Name: "a/b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("scale", "storage")))
}
