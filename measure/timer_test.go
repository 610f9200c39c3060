package measure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPerformanceTimer(t *testing.T) {
	now := 0.0
	timer := NewPerformanceTimer(func() float64 { return now })

	timer.Start("bcast")
	now = 1.5
	require.Equal(t, 1.5, timer.Stop("bcast"))
	require.Equal(t, 1.5, timer.Elapsed("bcast"))

	timer.Start("bcast")
	now = 2.0
	require.Equal(t, 0.5, timer.Stop("bcast"))
	require.Equal(t, 2.0, timer.Elapsed("bcast"))

	require.Equal(t, 0.0, timer.Stop("never-started"))
	require.Equal(t, 0.0, timer.Elapsed("never-started"))
}

func TestPerformanceTimerAllTimings(t *testing.T) {
	now := 0.0
	timer := NewPerformanceTimer(func() float64 { return now })

	timer.Start("a")
	now = 1
	timer.Stop("a")
	timer.Start("b")
	now = 3
	timer.Stop("b")

	first := timer.AllTimings()
	require.Equal(t, map[string]float64{"a": 1, "b": 2}, first)

	// Reading must not disturb the totals, and the returned map is a
	// copy the caller may scribble on.
	first["a"] = 99
	second := timer.AllTimings()
	require.Equal(t, map[string]float64{"a": 1, "b": 2}, second)
	require.Equal(t, 1.0, timer.Elapsed("a"))
}

func TestPerformanceTimerReset(t *testing.T) {
	now := 0.0
	timer := NewPerformanceTimer(func() float64 { return now })
	timer.Start("a")
	now = 1
	timer.Stop("a")
	timer.Reset()
	require.Empty(t, timer.AllTimings())
	require.Equal(t, 0.0, timer.Elapsed("a"))
}

func TestPerformanceTimerWriteTimings(t *testing.T) {
	now := 0.0
	timer := NewPerformanceTimer(func() float64 { return now })
	timer.Start("zeta")
	now = 0.5
	timer.Stop("zeta")
	timer.Start("alpha")
	now = 1.5
	timer.Stop("alpha")

	var sb strings.Builder
	require.NoError(t, timer.WriteTimings(&sb))
	require.Equal(t, "alpha: 1.000000 s\nzeta: 0.500000 s\n", sb.String())
}
