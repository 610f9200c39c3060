package measure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpcsim/topocoll/comm"
	"github.com/hpcsim/topocoll/netchar"
	"github.com/hpcsim/topocoll/simulator"
	"github.com/hpcsim/topocoll/topology"
)

// runGroup spawns n ranks over a uniform link network with the given
// rate (bytes/sec) and latency (seconds).
func runGroup(t *testing.T, n int, rate, latency float64, f func(g *comm.Group)) {
	t.Helper()
	loop := simulator.NewEventLoop()
	network := simulator.NewLinkNetwork(simulator.UniformLinks(rate, latency))
	comm.SpawnGroup(loop, network, n, f)
	require.NoError(t, loop.Run())
}

func TestLatencyMeasure(t *testing.T) {
	// One-way delay for the 8-byte probe: 50us latency plus 8us of
	// serialization at 1e6 bytes/sec.
	m := &LatencyMeasurer{Iterations: 8, Warmup: 2}
	results := make([]float64, 3)
	runGroup(t, 3, 1e6, 50e-6, func(g *comm.Group) {
		v, err := m.Measure(g, 1, 2)
		require.NoError(t, err)
		results[g.Rank()] = v
	})
	for _, v := range results {
		require.InDelta(t, 58.0, v, 1e-6)
	}
}

func TestBandwidthMeasure(t *testing.T) {
	m := &BandwidthMeasurer{Iterations: 4, Warmup: 1, Size: 1000}
	bytes := 8000.0
	elapsed := 50e-6 + bytes/1e6
	expected := bytes * 8 / (elapsed * 1e6)

	results := make([]float64, 3)
	runGroup(t, 3, 1e6, 50e-6, func(g *comm.Group) {
		v, err := m.Measure(g, 1, 2)
		require.NoError(t, err)
		results[g.Rank()] = v
	})
	for _, v := range results {
		require.InDelta(t, expected, v, 1e-6)
	}
}

func TestMeasurePairValidation(t *testing.T) {
	m := &LatencyMeasurer{Iterations: 1, Warmup: 1}
	runGroup(t, 2, 1e6, 50e-6, func(g *comm.Group) {
		_, err := m.Measure(g, 0, 0)
		require.ErrorIs(t, err, netchar.ErrOutOfRange)
		_, err = m.Measure(g, 0, 2)
		require.ErrorIs(t, err, netchar.ErrOutOfRange)
		b := &BandwidthMeasurer{Iterations: 1, Warmup: 1, Size: 8}
		_, err = b.Measure(g, -1, 1)
		require.ErrorIs(t, err, netchar.ErrOutOfRange)
	})
}

func TestCharacterize(t *testing.T) {
	n := 3
	topo := topology.NewFlat(n)
	bw := &BandwidthMeasurer{Iterations: 3, Warmup: 1, Size: 1000}
	lat := &LatencyMeasurer{Iterations: 5, Warmup: 1}

	chars := make([]*netchar.Characteristics, n)
	runGroup(t, n, 1e7, 20e-6, func(g *comm.Group) {
		c, err := Characterize(g, topo, bw, lat)
		require.NoError(t, err)
		chars[g.Rank()] = c
	})

	// Every rank must end up with the same symmetric matrices.
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			bwAB, err := chars[0].Bandwidth(a, b)
			require.NoError(t, err)
			latAB, err := chars[0].Latency(a, b)
			require.NoError(t, err)
			if a == b {
				require.Zero(t, bwAB)
				require.Zero(t, latAB)
				continue
			}
			require.Greater(t, bwAB, 0.0)
			require.Greater(t, latAB, 0.0)
			bwBA, _ := chars[0].Bandwidth(b, a)
			require.Equal(t, bwAB, bwBA)
			for rank := 1; rank < n; rank++ {
				v, err := chars[rank].Bandwidth(a, b)
				require.NoError(t, err)
				require.Equal(t, bwAB, v)
			}
		}
	}
	require.Equal(t, topo, chars[0].Topology())
}

func TestCharacterizeSizeMismatch(t *testing.T) {
	bw := &BandwidthMeasurer{Iterations: 1, Warmup: 1, Size: 8}
	lat := &LatencyMeasurer{Iterations: 1, Warmup: 1}
	runGroup(t, 2, 1e6, 50e-6, func(g *comm.Group) {
		_, err := Characterize(g, topology.NewFlat(3), bw, lat)
		require.ErrorIs(t, err, netchar.ErrOutOfRange)
	})
}
