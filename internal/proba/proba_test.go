package proba

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"quantkit/internal/common"

	"gonum.org/v1/gonum/floats"
)

const tol = 1e-9

var allMethods = []Method{Default, Rank, Softmax, Uniform}

func checkDistribution(t *testing.T, p []float64, n int) {
	t.Helper()
	if len(p) != n {
		t.Fatalf("Expected %d probabilities, got %d", n, len(p))
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > tol {
		t.Errorf("Expected probabilities to sum to 1, got %v (%v)", sum, p)
	}
	for i, v := range p {
		if v < 0 || math.IsNaN(v) {
			t.Errorf("Entry %d is %v, want a non-negative number", i, v)
		}
	}
}

func checkClose(t *testing.T, want, got []float64) {
	t.Helper()
	if !floats.EqualApprox(want, got, tol) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func mustTransform(t *testing.T, scores []float64, m Method, beta float64) []float64 {
	t.Helper()
	p, err := Transform(scores, m, beta)
	if err != nil {
		t.Fatalf("Transform(%v, %s, %v) failed: %v", scores, m, beta, err)
	}
	return p
}

func TestTransform_SumsToOne(t *testing.T) {
	vectors := [][]float64{
		{1, 2, 3, 4},
		{0.1, 0.1, 5},
		{10, 0, 3, 3, 7},
		{1e-6, 2e-6},
		{250, 1, 1, 30, 12, 99, 0.5},
		{1e308, 1e308, 5e307},
		{math.MaxFloat64, 1, math.MaxFloat64 / 2},
	}

	for _, m := range allMethods {
		for _, v := range vectors {
			checkDistribution(t, mustTransform(t, v, m, 1.5), len(v))
		}
	}
}

func TestTransform_Default(t *testing.T) {
	checkClose(t, []float64{0.25, 0.75}, mustTransform(t, []float64{1, 3}, Default, 1))
}

func TestTransform_DefaultHugeScores(t *testing.T) {
	p := mustTransform(t, []float64{1e308, 1e308, 1e308}, Default, 1)
	checkClose(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, p)

	p = mustTransform(t, []float64{5e307, 1.5e308}, Default, 1)
	checkClose(t, []float64{0.25, 0.75}, p)
}

func TestTransform_DefaultTinyScores(t *testing.T) {
	p := mustTransform(t, []float64{5e-324, 5e-324}, Default, 1)
	checkClose(t, []float64{0.5, 0.5}, p)
}

func TestTransform_DefaultDegenerate(t *testing.T) {
	_, err := Transform([]float64{0, 0, 0}, Default, 1)
	if !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("Expected degenerate input error for zero sum, got %v", err)
	}

	_, err = Transform([]float64{1, -2, 3}, Default, 1)
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("Expected validation error for negative score, got %v", err)
	}
}

func TestTransform_Rank(t *testing.T) {
	// ranks 3, 1, 2 over a total of 6
	checkClose(t, []float64{0.5, 1.0 / 6, 2.0 / 6}, mustTransform(t, []float64{30, 10, 20}, Rank, 1))
}

func TestTransform_RankTiesFollowPosition(t *testing.T) {
	// the tie keeps input order: ranks 2, 3, 1
	checkClose(t, []float64{2.0 / 6, 3.0 / 6, 1.0 / 6}, mustTransform(t, []float64{5, 5, 1}, Rank, 1))
}

func TestTransform_RankMonotonic(t *testing.T) {
	v := []float64{3.2, -1, 7, 7, 0, 2.5, 100, -50}
	p := mustTransform(t, v, Rank, 1)

	for i := range v {
		for j := range v {
			if v[i] > v[j] && p[i] < p[j] {
				t.Errorf("v[%d]=%v > v[%d]=%v but p %v < %v", i, v[i], j, v[j], p[i], p[j])
			}
		}
	}
}

func TestTransform_RankAcceptsNegativeScores(t *testing.T) {
	p := mustTransform(t, []float64{-3, -1, -2}, Rank, 1)
	checkDistribution(t, p, 3)
	if !(p[1] > p[2] && p[2] > p[0]) {
		t.Errorf("Expected p[1] > p[2] > p[0], got %v", p)
	}
}

func TestTransform_Softmax(t *testing.T) {
	p := mustTransform(t, []float64{1, 2, 3}, Softmax, 1)
	checkDistribution(t, p, 3)

	// z-scores of 1,2,3 are -s, 0, s with s = sqrt(3/2)
	s := math.Sqrt(1.5)
	den := math.Exp(-s) + 1 + math.Exp(s)
	checkClose(t, []float64{math.Exp(-s) / den, 1 / den, math.Exp(s) / den}, p)
}

func TestTransform_SoftmaxSharpness(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	soft := mustTransform(t, v, Softmax, 0.5)
	sharp := mustTransform(t, v, Softmax, 5)

	if sharp[3] <= soft[3] {
		t.Errorf("Expected larger beta to raise the best entry: %v vs %v", sharp[3], soft[3])
	}
	if sharp[0] >= soft[0] {
		t.Errorf("Expected larger beta to lower the worst entry: %v vs %v", sharp[0], soft[0])
	}
}

func TestTransform_SoftmaxLargeBetaStaysFinite(t *testing.T) {
	p := mustTransform(t, []float64{1, 2, 3}, Softmax, 900)
	checkDistribution(t, p, 3)
	if math.Abs(p[2]-1) > tol {
		t.Errorf("Expected the best entry to take all mass, got %v", p)
	}
}

func TestTransform_SoftmaxHugeScores(t *testing.T) {
	tests := []struct {
		huge, small []float64
	}{
		{[]float64{1e308, -1e308, 0}, []float64{1, -1, 0}},
		{[]float64{math.MaxFloat64, math.MaxFloat64 / 2, 0}, []float64{2, 1, 0}},
		{[]float64{-1e308, 1e307, 5e307}, []float64{-10, 1, 5}},
	}

	for _, tt := range tests {
		got := mustTransform(t, tt.huge, Softmax, 1)
		want := mustTransform(t, tt.small, Softmax, 1)
		checkClose(t, want, got)
	}
}

func TestTransform_SoftmaxZeroVariance(t *testing.T) {
	_, err := Transform([]float64{4, 4, 4}, Softmax, 1)
	if !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("Expected degenerate input error, got %v", err)
	}
}

func TestTransform_SoftmaxBetaZeroEqualsUniform(t *testing.T) {
	for _, v := range [][]float64{{1, 2, 3}, {9, 9, 9}, {-4, 0.5}} {
		soft := mustTransform(t, v, Softmax, 0)
		uni := mustTransform(t, v, Uniform, 1)
		if !slices.Equal(uni, soft) {
			t.Errorf("Softmax with beta 0 on %v: got %v, want %v", v, soft, uni)
		}
	}
}

func TestTransform_Uniform(t *testing.T) {
	for n := 1; n <= 7; n++ {
		v := make([]float64, n)
		for i := range v {
			v[i] = float64(i*i) - 3
		}
		for _, x := range mustTransform(t, v, Uniform, 2) {
			if x != 1/float64(n) {
				t.Errorf("n=%d: expected %v, got %v", n, 1/float64(n), x)
			}
		}
	}
}

func TestTransform_DoesNotModifyInput(t *testing.T) {
	for _, m := range allMethods {
		v := []float64{3, 1, 2}
		mustTransform(t, v, m, 1)
		if !slices.Equal([]float64{3, 1, 2}, v) {
			t.Errorf("Method %s modified its input: %v", m, v)
		}
	}
}

func TestTransform_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		method Method
		beta   float64
		want   error
	}{
		{"empty", nil, Default, 1, common.ErrValidation},
		{"nan score", []float64{1, math.NaN()}, Rank, 1, common.ErrValidation},
		{"inf score", []float64{math.Inf(1), 1}, Uniform, 1, common.ErrValidation},
		{"nan beta", []float64{1, 2}, Softmax, math.NaN(), common.ErrValidation},
		{"unknown method", []float64{1, 2}, Method(9), 1, common.ErrUnsupportedMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(tt.scores, tt.method, tt.beta)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range MethodNames() {
		m, err := ParseMethod(name)
		if err != nil {
			t.Fatalf("ParseMethod(%q) failed: %v", name, err)
		}
		if m.String() != name {
			t.Errorf("Expected %q, got %q", name, m.String())
		}
	}

	m, err := ParseMethod(" SoftMax ")
	if err != nil || m != Softmax {
		t.Errorf("Expected Softmax, got %v (%v)", m, err)
	}

	_, err = ParseMethod("boltzmann")
	var unsupported *common.UnsupportedMethodError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedMethodError, got %v", err)
	}
	if unsupported.Method != "boltzmann" {
		t.Errorf("Expected method boltzmann, got %q", unsupported.Method)
	}
	if !slices.Equal([]string{"default", "rank", "softmax", "uniform"}, unsupported.Valid) {
		t.Errorf("Unexpected valid names: %v", unsupported.Valid)
	}
	if !strings.Contains(err.Error(), "softmax") {
		t.Errorf("Error should list the valid methods: %v", err)
	}
}

func TestMethod_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		M Method `json:"m"`
	}{Rank})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"m":"rank"}` {
		t.Errorf("Expected {\"m\":\"rank\"}, got %s", data)
	}

	var got struct {
		M Method `json:"m"`
	}
	if err := json.Unmarshal([]byte(`{"m":"softmax"}`), &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.M != Softmax {
		t.Errorf("Expected Softmax, got %v", got.M)
	}
	if err := json.Unmarshal([]byte(`{"m":"nope"}`), &got); err == nil {
		t.Error("Expected an error for an unknown method name")
	}
}

func TestStandardScale(t *testing.T) {
	z, err := StandardScale([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("StandardScale failed: %v", err)
	}

	// population mean 5, std 2
	checkClose(t, []float64{-1.5, -0.5, -0.5, -0.5, 0, 0, 1, 2}, z)

	_, err = StandardScale([]float64{3, 3})
	if !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("Expected degenerate input error, got %v", err)
	}

	_, err = StandardScale(nil)
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestStandardScale_HugeValues(t *testing.T) {
	z, err := StandardScale([]float64{1e308, -1e308})
	if err != nil {
		t.Fatalf("StandardScale failed: %v", err)
	}
	checkClose(t, []float64{1, -1}, z)

	z, err = StandardScale([]float64{math.MaxFloat64, math.MaxFloat64, 0, 0})
	if err != nil {
		t.Fatalf("StandardScale failed: %v", err)
	}
	checkClose(t, []float64{1, 1, -1, -1}, z)
}
