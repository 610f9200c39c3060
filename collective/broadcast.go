package collective

import (
	"fmt"

	"github.com/hpcsim/topocoll/comm"
	"github.com/hpcsim/topocoll/netchar"
	"github.com/hpcsim/topocoll/topology"
)

// Message tags used by the collective algorithms. Tags keep the
// algorithms multiplexed over one group without interfering, but
// back-to-back invocations of the same collective must still be
// serialized by the caller.
const (
	tagTreeBcast = iota + 1
	tagTreeReduce
)

const (
	tagPipeBase      = 1 << 10 // + chunk index
	tagAllreduceBase = 2 << 10 // + round
	tagAllgatherBase = 3 << 10 // + step
)

// DefaultChunks is the pipeline broadcast chunk count used when the
// engine is not configured otherwise.
const DefaultChunks = 8

// An Engine builds and executes topology-aware broadcast schedules.
type Engine struct {
	// Chars calibrates the engine's decisions. It may be nil for an
	// engine that is always driven explicitly.
	Chars *netchar.Characteristics

	// Chunks is the pipeline chunk count; 0 means DefaultChunks.
	Chunks int
}

// NewEngine creates an Engine calibrated by chars.
func NewEngine(chars *netchar.Characteristics) *Engine {
	return &Engine{Chars: chars}
}

func (e *Engine) chunkCount() int {
	if e.Chunks <= 0 {
		return DefaultChunks
	}
	return e.Chunks
}

// BinomialTreeBroadcast copies the root's buffer to every rank along
// a binomial tree in ceil(log2(N)) rounds with N-1 transfers total.
// Every rank, including the root, ends up holding the root's original
// buffer.
func (e *Engine) BinomialTreeBroadcast(g *comm.Group, buf []float64, root int) error {
	if err := validateRoot(g, root); err != nil {
		return err
	}
	n := g.Size()
	if n == 1 || len(buf) == 0 {
		return nil
	}

	vrank := topology.VirtualRank(g.Rank(), root, n)

	if parent, ok := topology.BinomialParent(vrank); ok {
		data, _, err := g.Recv(topology.AbsoluteRank(parent, root, n), tagTreeBcast)
		if err != nil {
			return err
		}
		copy(buf, data)
	}
	// Forwarding is only legal once the buffer has been received;
	// children at distance d+1 are served in ascending round order.
	for _, child := range topology.BinomialChildren(vrank, n) {
		if err := g.Send(topology.AbsoluteRank(child, root, n), tagTreeBcast, buf); err != nil {
			return err
		}
	}
	return nil
}

// PipelineBroadcast streams the buffer down a relay chain rooted at
// root in fixed-size chunks. Chain position p relays chunk i as soon
// as it has received it, so transmission of chunk i+1 overlaps with
// the relay of chunk i. This trades a longer critical path for higher
// achieved bandwidth on large messages.
func (e *Engine) PipelineBroadcast(g *comm.Group, buf []float64, root int) error {
	if err := validateRoot(g, root); err != nil {
		return err
	}
	n := g.Size()
	if n == 1 || len(buf) == 0 {
		return nil
	}

	pos := topology.VirtualRank(g.Rank(), root, n)
	sizes := ChunkSizes(len(buf), e.chunkCount())

	offset := 0
	for ci, size := range sizes {
		chunk := buf[offset : offset+size]
		if pos > 0 {
			prev := topology.AbsoluteRank(pos-1, root, n)
			data, _, err := g.Recv(prev, tagPipeBase+ci)
			if err != nil {
				return err
			}
			copy(chunk, data)
		}
		if pos < n-1 {
			next := topology.AbsoluteRank(pos+1, root, n)
			if err := g.Send(next, tagPipeBase+ci, chunk); err != nil {
				return err
			}
		}
		offset += size
	}
	return nil
}

// validateRoot fails fast on an out-of-range root, before any
// communication begins.
func validateRoot(g *comm.Group, root int) error {
	if root < 0 || root >= g.Size() {
		return fmt.Errorf("root %d with %d ranks: %w", root, g.Size(), ErrInvalidArgument)
	}
	return nil
}
