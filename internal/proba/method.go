package proba

import (
	"strconv"
	"strings"

	"quantkit/internal/common"
)

// Method selects how a score vector is turned into probabilities.
type Method int

const (
	// Default divides every score by the total.
	Default Method = iota
	// Rank weights each item by its ascending rank.
	Rank
	// Softmax exponentiates standardized scores scaled by beta.
	Softmax
	// Uniform gives every item the same weight.
	Uniform
)

var methodNames = [...]string{
	Default: "default",
	Rank:    "rank",
	Softmax: "softmax",
	Uniform: "uniform",
}

func (m Method) String() string {
	if m.valid() {
		return methodNames[m]
	}
	return "method(" + strconv.Itoa(int(m)) + ")"
}

func (m Method) valid() bool {
	return m >= Default && m <= Uniform
}

// MethodNames lists the accepted method names in declaration order.
func MethodNames() []string {
	out := make([]string, len(methodNames))
	copy(out, methodNames[:])
	return out
}

// ParseMethod maps a case-insensitive name to its Method.
func ParseMethod(name string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range methodNames {
		if n == key {
			return Method(i), nil
		}
	}
	return 0, &common.UnsupportedMethodError{Method: name, Valid: MethodNames()}
}

// MarshalText implements encoding.TextMarshaler so Method round-trips through
// JSON and YAML as its name.
func (m Method) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, &common.UnsupportedMethodError{Method: m.String(), Valid: MethodNames()}
	}
	return []byte(methodNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
