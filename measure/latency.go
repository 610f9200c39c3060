package measure

import "github.com/hpcsim/topocoll/comm"

// A LatencyMeasurer estimates per-link one-way latency from ping-pong
// round trips. Zero-valued fields fall back to the defaults.
type LatencyMeasurer struct {
	// Iterations is the number of timed round trips per link.
	Iterations int

	// Warmup is the number of untimed round trips before the timed ones.
	Warmup int
}

func (m *LatencyMeasurer) iterations() int {
	if m.Iterations > 0 {
		return m.Iterations
	}
	return DefaultLatencyIterations
}

func (m *LatencyMeasurer) warmup() int {
	if m.Warmup > 0 {
		return m.Warmup
	}
	return DefaultLatencyWarmup
}

// Measure ping-pongs a one-element message between src and dst and
// returns the estimated one-way latency in microseconds, half the
// round-trip time. It is collective, and every rank returns the same
// value.
func (m *LatencyMeasurer) Measure(g *comm.Group, src, dst int) (float64, error) {
	if err := checkPair(g, src, dst); err != nil {
		return 0, err
	}

	analyzer := NewAnalyzer()
	probe := []float64{0}

	total := m.warmup() + m.iterations()
	for i := 0; i < total; i++ {
		if err := g.Barrier(); err != nil {
			return 0, err
		}
		switch g.Rank() {
		case src:
			start := g.Time()
			if err := g.Send(dst, tagPing, probe); err != nil {
				return 0, err
			}
			if _, _, err := g.Recv(dst, tagPong); err != nil {
				return 0, err
			}
			if i >= m.warmup() {
				analyzer.AddSample((g.Time() - start) / 2 * 1e6)
			}
		case dst:
			if _, _, err := g.Recv(src, tagPing); err != nil {
				return 0, err
			}
			if err := g.Send(src, tagPong, probe); err != nil {
				return 0, err
			}
		}
	}

	return shareEstimate(g, analyzer, src)
}

// MeasureAll measures every unordered rank pair once and returns the
// symmetric latency matrix in microseconds. Diagonal entries are zero.
func (m *LatencyMeasurer) MeasureAll(g *comm.Group) ([][]float64, error) {
	return measureAllPairs(g, m.Measure)
}
