// Package confusion tallies per-class true positives, false positives and
// false negatives for binary and multi-class predictions.
package confusion

import (
	"quantkit/internal/coerce"
	"quantkit/internal/common"

	"golang.org/x/sync/errgroup"
)

// Counts holds the tallies for a contiguous range of classes. All slices are
// parallel and ordered by ascending class index.
type Counts struct {
	Classes []int `json:"classes"`
	TP      []int `json:"tp"`
	FP      []int `json:"fp"`
	FN      []int `json:"fn"`
}

type options struct {
	nClasses int
	start    int
	jobs     int
}

// Option configures Count.
type Option func(*options)

// WithClasses fixes the number of classes. Without it, the number of distinct
// labels in yTrue is used.
func WithClasses(n int) Option {
	return func(o *options) { o.nClasses = n }
}

// StartFrom sets the first class to report. Defaults to 1 so a background
// class at index 0 is skipped.
func StartFrom(class int) Option {
	return func(o *options) { o.start = class }
}

// WithJobs splits the samples into up to n chunks that are counted
// concurrently. The result does not depend on n.
func WithJobs(n int) Option {
	return func(o *options) { o.jobs = n }
}

// Count compares yTrue against pred. With more than two classes pred must be a
// *ScoreTable and each row is reduced to its argmax; otherwise pred holds
// binary scores and a score above 0.5 predicts class 1.
func Count(yTrue []int, pred Predictions, opts ...Option) (Counts, error) {
	o := options{start: common.DefaultStartFromClass, jobs: 1}
	for _, opt := range opts {
		opt(&o)
	}

	if pred == nil {
		return Counts{}, common.Validationf("predictions are missing")
	}
	if len(yTrue) != pred.Len() {
		return Counts{}, common.Validationf("y_true has %d samples, predictions have %d", len(yTrue), pred.Len())
	}
	if o.nClasses < 0 {
		return Counts{}, common.Validationf("n_classes must be positive, got %d", o.nClasses)
	}
	if o.nClasses == 0 {
		o.nClasses = distinct(yTrue)
	}
	if o.start < 0 {
		return Counts{}, common.Validationf("start_from_class must be non-negative, got %d", o.start)
	}
	if o.start >= o.nClasses {
		return Counts{}, common.Validationf("start_from_class %d is out of range for %d classes", o.start, o.nClasses)
	}

	label, err := pred.labeler(o.nClasses)
	if err != nil {
		return Counts{}, err
	}

	n := o.nClasses - o.start
	parts := coerce.Chunks(yTrue, o.jobs)
	partial := make([]Counts, len(parts))

	var g errgroup.Group
	offset := 0
	for i, part := range parts {
		base := offset
		offset += len(part)
		g.Go(func() error {
			c, err := tally(part, base, label, o.start, n)
			partial[i] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}

	c := newCounts(o.start, n)
	for _, p := range partial {
		for k := range n {
			c.TP[k] += p.TP[k]
			c.FP[k] += p.FP[k]
			c.FN[k] += p.FN[k]
		}
	}
	return c, nil
}

func newCounts(start, n int) Counts {
	c := Counts{
		Classes: make([]int, n),
		TP:      make([]int, n),
		FP:      make([]int, n),
		FN:      make([]int, n),
	}
	for i := range c.Classes {
		c.Classes[i] = start + i
	}
	return c
}

// tally counts the samples yTrue[j], which sit at position base+j.
func tally(yTrue []int, base int, label func(int) (int, error), start, n int) (Counts, error) {
	c := newCounts(start, n)
	for j, truth := range yTrue {
		p, err := label(base + j)
		if err != nil {
			return Counts{}, err
		}
		if p == truth {
			if k := p - start; k >= 0 && k < n {
				c.TP[k]++
			}
			continue
		}
		if k := p - start; k >= 0 && k < n {
			c.FP[k]++
		}
		if k := truth - start; k >= 0 && k < n {
			c.FN[k]++
		}
	}
	return c, nil
}

func distinct(labels []int) int {
	seen := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
