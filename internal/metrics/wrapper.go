package metrics

import "time"

// Recorder is the subset of Metrics the server depends on.
type Recorder interface {
	ObserveTransform(method string, n int, took time.Duration)
	ObserveSelection()
	ObserveSample(k int)
	ObserveConfusion(n int)
	ObserveError(operation, kind string)
}

var _ Recorder = (*Metrics)(nil)

// Nop discards every observation.
type Nop struct{}

func (Nop) ObserveTransform(string, int, time.Duration) {}
func (Nop) ObserveSelection()                           {}
func (Nop) ObserveSample(int)                           {}
func (Nop) ObserveConfusion(int)                        {}
func (Nop) ObserveError(string, string)                 {}
