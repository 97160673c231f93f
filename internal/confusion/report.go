package confusion

// ClassReport summarizes one class.
type ClassReport struct {
	Class     int     `json:"class"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Precision is TP/(TP+FP) for the i-th reported class, or 0 when nothing was
// predicted as that class.
func (c Counts) Precision(i int) float64 {
	return ratio(c.TP[i], c.TP[i]+c.FP[i])
}

// Recall is TP/(TP+FN) for the i-th reported class, or 0 when the class never
// occurs.
func (c Counts) Recall(i int) float64 {
	return ratio(c.TP[i], c.TP[i]+c.FN[i])
}

// F1 is the harmonic mean of precision and recall.
func (c Counts) F1(i int) float64 {
	return ratio(2*c.TP[i], 2*c.TP[i]+c.FP[i]+c.FN[i])
}

// Report returns one row per reported class.
func (c Counts) Report() []ClassReport {
	out := make([]ClassReport, len(c.Classes))
	for i, class := range c.Classes {
		out[i] = ClassReport{
			Class:     class,
			TP:        c.TP[i],
			FP:        c.FP[i],
			FN:        c.FN[i],
			Precision: c.Precision(i),
			Recall:    c.Recall(i),
			F1:        c.F1(i),
		}
	}
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
