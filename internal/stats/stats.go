// Package stats implements the significance tests behind the driver
// improvement endpoints. P-values come from the standard normal CDF, a
// large-sample approximation kept deliberately; switching to a Student's
// t distribution would change reported p-values.
package stats

import (
	"fmt"
	"math"

	"safety-analytics/internal/apperr"
)

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance is the sample variance (n-1 denominator).
func Variance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(n-1)
}

// Percentile applies nearest-rank indexing floor((n-1)*q) to a sorted
// slice. The caller sorts.
func Percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(float64(len(sorted)-1) * q))
	return sorted[idx]
}

func NormalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// PairedTTest compares two matched series element-wise, truncated to the
// shorter length. A zero-variance difference series yields p = 1.0
// exactly rather than a division by zero.
func PairedTTest(a, b []float64) (meanDiff, pValue float64, err error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0, 0, fmt.Errorf("%w: paired test needs at least 2 pairs, got %d", apperr.ErrInvalidRequest, n)
	}

	diffs := make([]float64, n)
	for i := 0; i < n; i++ {
		diffs[i] = a[i] - b[i]
	}

	meanDiff = Mean(diffs)
	variance := Variance(diffs)
	if variance == 0 {
		return meanDiff, 1.0, nil
	}

	t := meanDiff / (math.Sqrt(variance) / math.Sqrt(float64(n)))
	return meanDiff, 2 * (1 - NormalCDF(math.Abs(t))), nil
}

// WelchTTest is the independent two-sample test with unequal variances.
func WelchTTest(a, b []float64) (meanDiff, pValue float64, err error) {
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, fmt.Errorf("%w: each group needs at least 2 observations", apperr.ErrInvalidRequest)
	}

	meanDiff = Mean(a) - Mean(b)
	se := math.Sqrt(Variance(a)/float64(len(a)) + Variance(b)/float64(len(b)))
	if se == 0 {
		return meanDiff, 1.0, nil
	}

	t := meanDiff / se
	return meanDiff, 2 * (1 - NormalCDF(math.Abs(t))), nil
}
