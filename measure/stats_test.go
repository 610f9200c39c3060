package measure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func analyzerWith(samples ...float64) *Analyzer {
	a := NewAnalyzer()
	for _, v := range samples {
		a.AddSample(v)
	}
	return a
}

func TestAnalyzerBasics(t *testing.T) {
	a := analyzerWith(1, 2, 3, 4, 5)
	require.Equal(t, 5, a.Count())

	mean, err := a.Mean()
	require.NoError(t, err)
	require.Equal(t, 3.0, mean)

	median, err := a.Median()
	require.NoError(t, err)
	require.Equal(t, 3.0, median)

	variance, err := a.Variance()
	require.NoError(t, err)
	require.Equal(t, 2.5, variance)

	sd, err := a.StdDev()
	require.NoError(t, err)
	require.InDelta(t, 1.5811, sd, 1e-4)

	min, err := a.Min()
	require.NoError(t, err)
	require.Equal(t, 1.0, min)

	max, err := a.Max()
	require.NoError(t, err)
	require.Equal(t, 5.0, max)
}

func TestAnalyzerEvenMedian(t *testing.T) {
	a := analyzerWith(4, 1, 3, 2)
	median, err := a.Median()
	require.NoError(t, err)
	require.Equal(t, 2.5, median)
}

func TestAnalyzerConfidenceInterval(t *testing.T) {
	a := analyzerWith(1, 2, 3, 4, 5)
	lo, hi, err := a.ConfidenceInterval()
	require.NoError(t, err)
	sd, _ := a.StdDev()
	margin := 1.96 * sd / 2.2360679774997896
	require.InDelta(t, 3-margin, lo, 1e-9)
	require.InDelta(t, 3+margin, hi, 1e-9)
}

func TestAnalyzerInsufficientSamples(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.Mean()
	require.ErrorIs(t, err, ErrInsufficientSamples)
	_, err = a.Median()
	require.ErrorIs(t, err, ErrInsufficientSamples)
	_, err = a.Min()
	require.ErrorIs(t, err, ErrInsufficientSamples)

	a.AddSample(1)
	_, err = a.StdDev()
	require.ErrorIs(t, err, ErrInsufficientSamples)
	_, _, err = a.ConfidenceInterval()
	require.ErrorIs(t, err, ErrInsufficientSamples)
	_, err = a.Summary()
	require.ErrorIs(t, err, ErrInsufficientSamples)

	a.AddSample(2)
	a.AddSample(3)
	_, err = a.DetectOutliers(1.5)
	require.ErrorIs(t, err, ErrInsufficientSamples)
	_, err = a.RemoveOutliers(1.5)
	require.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestAnalyzerOutliers(t *testing.T) {
	a := analyzerWith(10, 12, 11, 13, 12, 100)

	out, err := a.DetectOutliers(1.5)
	require.NoError(t, err)
	require.Equal(t, []float64{100}, out)

	// A tighter multiplier pulls the fences in; a looser one lets
	// everything through.
	strict, err := a.DetectOutliers(0.4)
	require.NoError(t, err)
	require.Equal(t, []float64{10, 100}, strict)

	removed, err := a.RemoveOutliers(50)
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, 6, a.Count())

	removed, err = a.RemoveOutliers(1.5)
	require.NoError(t, err)
	require.True(t, removed)
	require.Equal(t, 5, a.Count())

	removed, err = a.RemoveOutliers(1.5)
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, 5, a.Count())
}

func TestAnalyzerClear(t *testing.T) {
	a := analyzerWith(1, 2, 3)
	a.Clear()
	require.Equal(t, 0, a.Count())
	_, err := a.Mean()
	require.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestAnalyzerIsNormal(t *testing.T) {
	small := analyzerWith(1, 2, 3, 4, 5)
	require.False(t, small.IsNormal())

	// Symmetric, bell-ish histogram: 1 2 2 3 3 3 4 4 5, three times.
	bell := NewAnalyzer()
	for i := 0; i < 3; i++ {
		for _, v := range []float64{1, 2, 2, 3, 3, 3, 4, 4, 5} {
			bell.AddSample(v)
		}
	}
	require.True(t, bell.IsNormal())

	skewed := NewAnalyzer()
	for i := 0; i < 25; i++ {
		skewed.AddSample(0)
	}
	for i := 0; i < 5; i++ {
		skewed.AddSample(10)
	}
	require.False(t, skewed.IsNormal())

	constant := NewAnalyzer()
	for i := 0; i < 30; i++ {
		constant.AddSample(7)
	}
	require.False(t, constant.IsNormal())

	// Symmetric with heavy tails: kurtosis normalized by the n-1
	// standard deviation is 4.75, just inside the gate, while the
	// population normalization would put it at 5.26, outside.
	heavy := NewAnalyzer()
	for i := 0; i < 9; i++ {
		heavy.AddSample(1)
		heavy.AddSample(-1)
	}
	heavy.AddSample(4.8)
	heavy.AddSample(-4.8)
	require.True(t, heavy.IsNormal())
}

func TestAnalyzerSummary(t *testing.T) {
	a := analyzerWith(1, 2, 3, 4, 5)
	s, err := a.Summary()
	require.NoError(t, err)
	require.Equal(t, 5, s.Count)
	require.Equal(t, 3.0, s.Mean)
	require.Equal(t, 3.0, s.Median)
	require.InDelta(t, 1.5811, s.StdDev, 1e-4)
	require.Equal(t, 1.0, s.Min)
	require.Equal(t, 5.0, s.Max)
	require.Less(t, s.CILow, s.Mean)
	require.Greater(t, s.CIHigh, s.Mean)
}
