// Package netchar holds the measured or assumed characteristics of a
// network: per-ordered-pair bandwidth and latency, plus the active
// topology descriptor.
//
// A Characteristics value is built once, before any collective runs,
// and is read-only afterwards, so it is shared between components
// without synchronization.
package netchar

import (
	"errors"
	"fmt"

	"github.com/hpcsim/topocoll/topology"
)

// ErrOutOfRange is reported when a queried rank pair is not part of
// the live group.
var ErrOutOfRange = errors.New("netchar: rank out of range")

// Characteristics maps ordered rank pairs to bandwidth (Mbit/s) and
// latency (µs) and carries the topology the group runs on.
type Characteristics struct {
	topo      topology.Descriptor
	n         int
	bandwidth []float64
	latency   []float64
}

// Uniform builds characteristics where every link has the same
// bandwidth (Mbit/s) and latency (µs). This is the simulation-only
// default used before any measurement has run.
func Uniform(topo topology.Descriptor, bandwidthMbps, latencyUs float64) *Characteristics {
	n := topo.Nodes
	c := &Characteristics{
		topo:      topo,
		n:         n,
		bandwidth: make([]float64, n*n),
		latency:   make([]float64, n*n),
	}
	for i := range c.bandwidth {
		c.bandwidth[i] = bandwidthMbps
		c.latency[i] = latencyUs
	}
	return c
}

// HopScaled builds characteristics where each pair's latency is the
// base latency multiplied by the topology hop count, and bandwidth is
// uniform. It is the default model the scenarios derive from a
// descriptor.
func HopScaled(topo topology.Descriptor, bandwidthMbps, latencyUs float64) *Characteristics {
	c := Uniform(topo, bandwidthMbps, latencyUs)
	for a := 0; a < c.n; a++ {
		for b := 0; b < c.n; b++ {
			if a == b {
				continue
			}
			c.latency[a*c.n+b] = latencyUs * float64(topo.Distance(a, b))
		}
	}
	return c
}

// FromMatrices builds characteristics from explicit per-pair matrices,
// typically produced by the measurement subsystem. Both matrices must
// be n x n for the descriptor's n nodes.
func FromMatrices(topo topology.Descriptor, bandwidthMbps, latencyUs [][]float64) (*Characteristics, error) {
	n := topo.Nodes
	if len(bandwidthMbps) != n || len(latencyUs) != n {
		return nil, fmt.Errorf("netchar: expected %d rows: %w", n, ErrOutOfRange)
	}
	c := &Characteristics{
		topo:      topo,
		n:         n,
		bandwidth: make([]float64, n*n),
		latency:   make([]float64, n*n),
	}
	for a := 0; a < n; a++ {
		if len(bandwidthMbps[a]) != n || len(latencyUs[a]) != n {
			return nil, fmt.Errorf("netchar: expected %d columns in row %d: %w", n, a, ErrOutOfRange)
		}
		for b := 0; b < n; b++ {
			c.bandwidth[a*n+b] = bandwidthMbps[a][b]
			c.latency[a*n+b] = latencyUs[a][b]
		}
	}
	return c, nil
}

// Size returns the number of ranks the characteristics cover.
func (c *Characteristics) Size() int {
	return c.n
}

// Topology returns the active topology descriptor.
func (c *Characteristics) Topology() topology.Descriptor {
	return c.topo
}

// Bandwidth returns the bandwidth from rank a to rank b in Mbit/s.
func (c *Characteristics) Bandwidth(a, b int) (float64, error) {
	if err := c.check(a, b); err != nil {
		return 0, err
	}
	return c.bandwidth[a*c.n+b], nil
}

// Latency returns the one-way latency from rank a to rank b in µs.
func (c *Characteristics) Latency(a, b int) (float64, error) {
	if err := c.check(a, b); err != nil {
		return 0, err
	}
	return c.latency[a*c.n+b], nil
}

// MeanBandwidth averages the off-diagonal bandwidth entries, in
// Mbit/s. It is the scalar the cost model works from.
func (c *Characteristics) MeanBandwidth() float64 {
	return c.meanOffDiagonal(c.bandwidth)
}

// MeanLatency averages the off-diagonal latency entries, in µs.
func (c *Characteristics) MeanLatency() float64 {
	return c.meanOffDiagonal(c.latency)
}

// LinkModel adapts the characteristics to the units the simulator's
// link networks expect: bytes per second and seconds.
func (c *Characteristics) LinkModel() func(src, dst int) (rate, latency float64) {
	return func(src, dst int) (float64, float64) {
		bw := c.bandwidth[src*c.n+dst]
		lat := c.latency[src*c.n+dst]
		return bw * 1e6 / 8, lat * 1e-6
	}
}

func (c *Characteristics) check(a, b int) error {
	if a < 0 || b < 0 || a >= c.n || b >= c.n {
		return fmt.Errorf("netchar: pair (%d, %d) with %d ranks: %w", a, b, c.n, ErrOutOfRange)
	}
	return nil
}

func (c *Characteristics) meanOffDiagonal(vals []float64) float64 {
	if c.n < 2 {
		if len(vals) > 0 {
			return vals[0]
		}
		return 0
	}
	var sum float64
	for a := 0; a < c.n; a++ {
		for b := 0; b < c.n; b++ {
			if a != b {
				sum += vals[a*c.n+b]
			}
		}
	}
	return sum / float64(c.n*(c.n-1))
}
