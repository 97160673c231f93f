// Package coerce converts between plain Go slices ("list form") and gonum
// vectors and matrices ("array form") at the boundary of the numeric packages,
// and splits lists into chunks for parallel work.
//
// Conversions allocate a fresh container, so callers can keep using their
// inputs after the call.
package coerce

import (
	"quantkit/internal/common"

	"gonum.org/v1/gonum/mat"
)

// List returns v in list form.
func List(v mat.Vector) []float64 {
	if v == nil {
		return []float64{}
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// Dense builds a table from rows. Rows must be non-empty and of equal width.
func Dense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, common.Validationf("table has no rows")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, common.Validationf("table has no columns")
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, common.Validationf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// Rows returns m as a list of rows.
func Rows(m mat.Matrix) [][]float64 {
	if m == nil {
		return [][]float64{}
	}
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		row := make([]float64, c)
		for j := range row {
			row[j] = m.At(i, j)
		}
		out[i] = row
	}
	return out
}

// Chunks splits xs into at most n consecutive, non-empty parts of
// ceil(len(xs)/n) elements; the last part may be shorter. n below 1 is
// treated as 1. The parts share xs's backing array but cannot grow into
// each other.
func Chunks[T any](xs []T, n int) [][]T {
	if len(xs) == 0 {
		return nil
	}
	n = max(n, 1)
	size := (len(xs) + n - 1) / n

	out := make([][]T, 0, n)
	for lo := 0; lo < len(xs); lo += size {
		hi := min(lo+size, len(xs))
		out = append(out, xs[lo:hi:hi])
	}
	return out
}
