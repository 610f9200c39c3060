package measure

import (
	"fmt"

	"github.com/hpcsim/topocoll/comm"
	"github.com/hpcsim/topocoll/netchar"
	"github.com/hpcsim/topocoll/topology"
)

// Tags used by the measurement exchanges. The measurers are collective,
// so they never overlap a running collective on the same group.
const (
	tagBandwidth = 1 << 14
	tagPing      = 1<<14 + 1
	tagPong      = 1<<14 + 2
)

// Measurement defaults.
const (
	DefaultBandwidthIterations = 10
	DefaultBandwidthWarmup     = 5
	DefaultBandwidthSize       = 1 << 17

	DefaultLatencyIterations = 1000
	DefaultLatencyWarmup     = 100

	// IQR multiplier for trimming noisy trials before averaging.
	outlierThreshold = 1.5
)

// A BandwidthMeasurer estimates per-link bandwidth by timing large
// transfers. Zero-valued fields fall back to the defaults.
type BandwidthMeasurer struct {
	// Iterations is the number of timed transfers per link.
	Iterations int

	// Warmup is the number of untimed transfers before the timed ones.
	Warmup int

	// Size is the transfer length in float64 elements.
	Size int
}

func (m *BandwidthMeasurer) iterations() int {
	if m.Iterations > 0 {
		return m.Iterations
	}
	return DefaultBandwidthIterations
}

func (m *BandwidthMeasurer) warmup() int {
	if m.Warmup > 0 {
		return m.Warmup
	}
	return DefaultBandwidthWarmup
}

func (m *BandwidthMeasurer) size() int {
	if m.Size > 0 {
		return m.Size
	}
	return DefaultBandwidthSize
}

// Measure times transfers from src to dst and returns the estimated
// bandwidth in Mbit/s. It is collective: every rank must call it, and
// every rank returns the same value. The receiver does the timing, and
// its estimate is shared with the group, so all ranks agree on the
// link's number.
func (m *BandwidthMeasurer) Measure(g *comm.Group, src, dst int) (float64, error) {
	if err := checkPair(g, src, dst); err != nil {
		return 0, err
	}

	bytes := float64(m.size() * 8)
	analyzer := NewAnalyzer()
	var payload []float64
	if g.Rank() == src {
		payload = make([]float64, m.size())
	}

	total := m.warmup() + m.iterations()
	for i := 0; i < total; i++ {
		// The barrier keeps unrelated ranks from clogging the network
		// mid-measurement.
		if err := g.Barrier(); err != nil {
			return 0, err
		}
		switch g.Rank() {
		case src:
			if err := g.Send(dst, tagBandwidth, payload); err != nil {
				return 0, err
			}
		case dst:
			start := g.Time()
			if _, _, err := g.Recv(src, tagBandwidth); err != nil {
				return 0, err
			}
			elapsed := g.Time() - start
			if i >= m.warmup() && elapsed > 0 {
				analyzer.AddSample(bytes * 8 / (elapsed * 1e6))
			}
		}
	}

	return shareEstimate(g, analyzer, dst)
}

// MeasureAll measures every unordered rank pair once and returns the
// symmetric bandwidth matrix in Mbit/s. Diagonal entries are zero.
func (m *BandwidthMeasurer) MeasureAll(g *comm.Group) ([][]float64, error) {
	return measureAllPairs(g, m.Measure)
}

// Characterize runs both measurers over every link and binds the
// resulting matrices to the topology descriptor.
func Characterize(g *comm.Group, topo topology.Descriptor,
	bw *BandwidthMeasurer, lat *LatencyMeasurer) (*netchar.Characteristics, error) {
	if topo.Nodes != g.Size() {
		return nil, fmt.Errorf("measure: topology has %d nodes for %d ranks: %w",
			topo.Nodes, g.Size(), netchar.ErrOutOfRange)
	}
	bwMat, err := bw.MeasureAll(g)
	if err != nil {
		return nil, err
	}
	latMat, err := lat.MeasureAll(g)
	if err != nil {
		return nil, err
	}
	return netchar.FromMatrices(topo, bwMat, latMat)
}

// shareEstimate reduces the measuring rank's samples to a single
// robust estimate and shares it with the whole group, so every rank
// holds the same matrix afterwards.
func shareEstimate(g *comm.Group, analyzer *Analyzer, measurer int) (float64, error) {
	result := []float64{0}
	if g.Rank() == measurer {
		if analyzer.Count() >= 4 {
			if _, err := analyzer.RemoveOutliers(outlierThreshold); err != nil {
				return 0, err
			}
		}
		mean, err := analyzer.Mean()
		if err != nil {
			return 0, err
		}
		result[0] = mean
	}
	if err := g.RefBroadcast(result, measurer); err != nil {
		return 0, err
	}
	return result[0], nil
}

func measureAllPairs(g *comm.Group,
	measure func(g *comm.Group, src, dst int) (float64, error)) ([][]float64, error) {
	n := g.Size()
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v, err := measure(g, i, j)
			if err != nil {
				return nil, err
			}
			mat[i][j] = v
			mat[j][i] = v
		}
	}
	return mat, nil
}

func checkPair(g *comm.Group, src, dst int) error {
	if src < 0 || dst < 0 || src >= g.Size() || dst >= g.Size() || src == dst {
		return fmt.Errorf("measure: pair (%d, %d) with %d ranks: %w",
			src, dst, g.Size(), netchar.ErrOutOfRange)
	}
	return nil
}
