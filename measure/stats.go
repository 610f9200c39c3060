// Package measure estimates link bandwidth and latency from timed
// transfers between ranks, and provides the statistical tooling the
// estimates are built on.
package measure

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInsufficientSamples is reported when a statistic needs more
// samples than the analyzer holds.
var ErrInsufficientSamples = errors.New("measure: insufficient samples")

// zScore95 is the two-sided z value for a 95% confidence interval.
const zScore95 = 1.96

// An Analyzer accumulates scalar samples and computes summary
// statistics over them. It keeps every sample, so outlier passes can
// re-inspect the full set. Not safe for concurrent use.
type Analyzer struct {
	samples []float64
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AddSample records one observation.
func (a *Analyzer) AddSample(v float64) {
	a.samples = append(a.samples, v)
}

// Clear discards all samples.
func (a *Analyzer) Clear() {
	a.samples = a.samples[:0]
}

// Count returns the number of samples held.
func (a *Analyzer) Count() int {
	return len(a.samples)
}

// Mean returns the arithmetic mean of the samples.
func (a *Analyzer) Mean() (float64, error) {
	if len(a.samples) == 0 {
		return 0, fmt.Errorf("mean of 0 samples: %w", ErrInsufficientSamples)
	}
	var sum float64
	for _, v := range a.samples {
		sum += v
	}
	return sum / float64(len(a.samples)), nil
}

// Median returns the middle sample, or the average of the two middle
// samples for an even count.
func (a *Analyzer) Median() (float64, error) {
	if len(a.samples) == 0 {
		return 0, fmt.Errorf("median of 0 samples: %w", ErrInsufficientSamples)
	}
	s := a.sorted()
	n := len(s)
	if n%2 == 1 {
		return s[n/2], nil
	}
	return (s[n/2-1] + s[n/2]) / 2, nil
}

// Variance returns the sample variance with Bessel's correction.
func (a *Analyzer) Variance() (float64, error) {
	if len(a.samples) < 2 {
		return 0, fmt.Errorf("variance of %d samples: %w",
			len(a.samples), ErrInsufficientSamples)
	}
	mean, _ := a.Mean()
	var sum float64
	for _, v := range a.samples {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(a.samples)-1), nil
}

// StdDev returns the sample standard deviation.
func (a *Analyzer) StdDev() (float64, error) {
	v, err := a.Variance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// Min returns the smallest sample.
func (a *Analyzer) Min() (float64, error) {
	if len(a.samples) == 0 {
		return 0, fmt.Errorf("min of 0 samples: %w", ErrInsufficientSamples)
	}
	min := a.samples[0]
	for _, v := range a.samples[1:] {
		if v < min {
			min = v
		}
	}
	return min, nil
}

// Max returns the largest sample.
func (a *Analyzer) Max() (float64, error) {
	if len(a.samples) == 0 {
		return 0, fmt.Errorf("max of 0 samples: %w", ErrInsufficientSamples)
	}
	max := a.samples[0]
	for _, v := range a.samples[1:] {
		if v > max {
			max = v
		}
	}
	return max, nil
}

// ConfidenceInterval returns the 95% confidence interval of the mean,
// using the normal approximation.
func (a *Analyzer) ConfidenceInterval() (lo, hi float64, err error) {
	sd, err := a.StdDev()
	if err != nil {
		return 0, 0, err
	}
	mean, _ := a.Mean()
	margin := zScore95 * sd / math.Sqrt(float64(len(a.samples)))
	return mean - margin, mean + margin, nil
}

// IsNormal reports whether the samples look normally distributed,
// judged by skewness and excess kurtosis. Fewer than 20 samples never
// qualify: the moment estimates are too noisy to trust.
func (a *Analyzer) IsNormal() bool {
	n := len(a.samples)
	if n < 20 {
		return false
	}
	sd, err := a.StdDev()
	if err != nil || sd == 0 {
		return false
	}
	mean, _ := a.Mean()
	var m3, m4 float64
	for _, v := range a.samples {
		d := v - mean
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m3 /= float64(n)
	m4 /= float64(n)
	skew := m3 / (sd * sd * sd)
	kurt := m4 / (sd * sd * sd * sd)
	return math.Abs(skew) < 1 && math.Abs(kurt-3) < 2
}

// DetectOutliers returns the samples outside the Tukey fences,
// threshold interquartile ranges beyond the first and third quartiles
// (1.5 is the conventional multiplier). At least four samples are
// required for the quartiles to be meaningful.
func (a *Analyzer) DetectOutliers(threshold float64) ([]float64, error) {
	lo, hi, err := a.fences(threshold)
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, v := range a.samples {
		if v < lo || v > hi {
			out = append(out, v)
		}
	}
	return out, nil
}

// RemoveOutliers drops every sample outside the Tukey fences and
// reports whether any were removed. The fences are computed once over
// the full set, not iterated.
func (a *Analyzer) RemoveOutliers(threshold float64) (bool, error) {
	lo, hi, err := a.fences(threshold)
	if err != nil {
		return false, err
	}
	kept := a.samples[:0]
	for _, v := range a.samples {
		if v >= lo && v <= hi {
			kept = append(kept, v)
		}
	}
	removed := len(kept) != len(a.samples)
	a.samples = kept
	return removed, nil
}

func (a *Analyzer) fences(threshold float64) (lo, hi float64, err error) {
	if len(a.samples) < 4 {
		return 0, 0, fmt.Errorf("outlier fences over %d samples: %w",
			len(a.samples), ErrInsufficientSamples)
	}
	s := a.sorted()
	q1 := s[len(s)/4]
	q3 := s[3*len(s)/4]
	iqr := q3 - q1
	return q1 - threshold*iqr, q3 + threshold*iqr, nil
}

func (a *Analyzer) sorted() []float64 {
	s := append([]float64{}, a.samples...)
	sort.Float64s(s)
	return s
}

// A Summary is a one-shot snapshot of an analyzer's statistics.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	CILow  float64
	CIHigh float64
}

// Summary computes all summary statistics at once. At least two
// samples are required.
func (a *Analyzer) Summary() (*Summary, error) {
	sd, err := a.StdDev()
	if err != nil {
		return nil, err
	}
	mean, _ := a.Mean()
	median, _ := a.Median()
	min, _ := a.Min()
	max, _ := a.Max()
	lo, hi, _ := a.ConfidenceInterval()
	return &Summary{
		Count:  a.Count(),
		Mean:   mean,
		Median: median,
		StdDev: sd,
		Min:    min,
		Max:    max,
		CILow:  lo,
		CIHigh: hi,
	}, nil
}
