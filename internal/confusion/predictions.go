package confusion

import (
	"encoding/json"
	"math"

	"quantkit/internal/coerce"
	"quantkit/internal/common"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Predictions is the model output for a batch of samples.
type Predictions interface {
	// Len is the number of samples.
	Len() int
	// labeler checks the predictions against nClasses and returns the
	// function that reduces one sample to a hard label.
	labeler(nClasses int) (func(i int) (int, error), error)
}

// BinaryScores holds one positive-class score per sample.
type BinaryScores []float64

func (b BinaryScores) Len() int { return len(b) }

func (b BinaryScores) labeler(nClasses int) (func(int) (int, error), error) {
	if nClasses > 2 {
		return nil, common.Validationf("%d classes need a score table, got a binary score vector", nClasses)
	}
	return func(i int) (int, error) {
		s := b[i]
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return 0, common.Validationf("score %d is not finite: %v", i, s)
		}
		if s > common.BinaryThreshold {
			return 1, nil
		}
		return 0, nil
	}, nil
}

// ScoreTable holds per-class scores, one row per sample and one column per
// class. It encodes to JSON as a list of rows.
type ScoreTable struct {
	m *mat.Dense
}

// NewScoreTable copies rows into a table. Rows must share the same width.
func NewScoreTable(rows [][]float64) (*ScoreTable, error) {
	m, err := coerce.Dense(rows)
	if err != nil {
		return nil, err
	}
	return &ScoreTable{m: m}, nil
}

func (t *ScoreTable) Len() int {
	if t == nil || t.m == nil {
		return 0
	}
	r, _ := t.m.Dims()
	return r
}

// Classes is the number of score columns.
func (t *ScoreTable) Classes() int {
	if t == nil || t.m == nil {
		return 0
	}
	_, c := t.m.Dims()
	return c
}

// Rows returns a copy of the table as a list of rows.
func (t *ScoreTable) Rows() [][]float64 {
	if t == nil || t.m == nil {
		return [][]float64{}
	}
	return coerce.Rows(t.m)
}

func (t *ScoreTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Rows())
}

func (t *ScoreTable) UnmarshalJSON(data []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	m, err := coerce.Dense(rows)
	if err != nil {
		return err
	}
	t.m = m
	return nil
}

// labeler takes the first column holding each row's maximum. With two classes
// or fewer a two-column table is read as binary scores from its second column.
func (t *ScoreTable) labeler(nClasses int) (func(int) (int, error), error) {
	cols := t.Classes()
	switch {
	case nClasses <= 2 && cols == 2:
		return BinaryScores(coerce.List(t.m.ColView(1))).labeler(nClasses)
	case nClasses <= 2:
		return nil, common.Validationf("%d classes need a binary score vector or a two-column table, got %d columns", nClasses, cols)
	case cols < nClasses:
		return nil, common.Validationf("score table has %d columns for %d classes", cols, nClasses)
	}

	return func(i int) (int, error) {
		row := t.m.RawRowView(i)
		for j, s := range row {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return 0, common.Validationf("score (%d, %d) is not finite: %v", i, j, s)
			}
		}
		return floats.MaxIdx(row), nil
	}, nil
}
