// Package stats provides the explicit numeric routines the analysis
// pipeline is specified against: percentiles by linear interpolation,
// sample (N-1) variance, moment-based skewness and Pearson correlation.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStd returns the sample standard deviation (N-1 denominator).
// A single observation yields NaN; identical observations yield 0.
func SampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// Quantile returns the q-th quantile of sorted values using linear
// interpolation between order statistics. sorted must be ascending.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median is the 0.5 quantile of unsorted values.
func Median(xs []float64) float64 {
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)
	return Quantile(cp, 0.5)
}

// Skewness returns the moment-based sample skewness g1 = m3 / m2^(3/2).
// Zero-variance or short inputs yield 0 so callers can compare it against
// a cutoff without special cases.
func Skewness(xs []float64) float64 {
	if len(xs) < 3 {
		return 0
	}
	m := Mean(xs)
	var m2, m3 float64
	for _, x := range xs {
		d := x - m
		m2 += d * d
		m3 += d * d * d
	}
	n := float64(len(xs))
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// Pearson returns the Pearson correlation of two equal-length series.
// It returns NaN when either series has zero variance or fewer than two
// observations; results are clamped to [-1, 1].
func Pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if len(xs) != len(ys) || len(xs) < 2 {
		return math.NaN()
	}
	var sumX, sumY, sumXX, sumYY, sumXY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXX += xs[i] * xs[i]
		sumYY += ys[i] * ys[i]
		sumXY += xs[i] * ys[i]
	}
	denom := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	if denom == 0 {
		return math.NaN()
	}
	r := (n*sumXY - sumX*sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// IQRBounds returns Q1, Q3 and the 1.5*IQR outlier bounds for unsorted
// values. Zero IQR collapses the bounds to [Q1, Q3].
func IQRBounds(xs []float64) (q1, q3, lower, upper float64) {
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)
	q1 = Quantile(cp, 0.25)
	q3 = Quantile(cp, 0.75)
	iqr := q3 - q1
	return q1, q3, q1 - 1.5*iqr, q3 + 1.5*iqr
}

// SturgesBins returns the Sturges-rule histogram bin count, floored at min.
func SturgesBins(n, min int) int {
	if n <= 0 {
		return min
	}
	bins := int(math.Ceil(math.Log2(float64(n)))) + 1
	if bins < min {
		return min
	}
	return bins
}
