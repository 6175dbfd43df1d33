package engine

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// trailingAverage streams form through an n-period simple moving average
// and returns its latest value, or ok=false for an empty form. Shorter
// forms shrink the period to their length.
func trailingAverage(form []float64, n int) (float64, bool) {
	if len(form) == 0 || n <= 0 {
		return 0, false
	}
	if len(form) < n {
		n = len(form)
	}

	sma := trend.NewSmaWithPeriod[float64](n)
	latest, ok := 0.0, false
	for v := range sma.Compute(helper.SliceToChan(form)) {
		latest, ok = v, true
	}
	if !ok {
		return mean(form[len(form)-n:]), true
	}
	return latest, true
}

// formStdDev is the population standard deviation of form; zero for fewer
// than two points.
func formStdDev(form []float64) float64 {
	if len(form) < 2 {
		return 0
	}
	m := mean(form)
	var sq float64
	for _, v := range form {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(form)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
