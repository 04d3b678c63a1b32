package experience

import "math"

// Summary holds population statistics over a window of scalar observations.
// An empty window summarizes to all zeros.
type Summary struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// Summarize computes mean, population standard deviation, min, and max over
// values. It returns the zero Summary for an empty slice.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	var sum float64
	min, max := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return Summary{
		Mean: mean,
		Std:  math.Sqrt(sq / float64(len(values))),
		Min:  min,
		Max:  max,
	}
}
