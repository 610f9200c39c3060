// Package collective implements topology-aware collective operations:
// binomial-tree and pipelined broadcast, tree reduce, allreduce and
// allgather, with strategy selection calibrated by measured network
// characteristics.
//
// All operations are collective: every rank in the group must call
// the same operation with consistent parameters, or behavior is
// undefined.
package collective

import (
	"fmt"

	"github.com/hpcsim/topocoll/comm"
	"github.com/hpcsim/topocoll/netchar"
	"github.com/hpcsim/topocoll/topology"
)

// An Optimizer chooses and drives an execution strategy for each
// collective kind, based on message size, rank count and the network
// characteristics it was constructed with.
type Optimizer struct {
	chars  *netchar.Characteristics
	engine *Engine
	model  CostModel
}

// NewOptimizer creates an optimizer calibrated by chars.
func NewOptimizer(chars *netchar.Characteristics) *Optimizer {
	return &Optimizer{
		chars:  chars,
		engine: NewEngine(chars),
		model:  ModelFromCharacteristics(chars),
	}
}

// Characteristics returns the network characteristics the optimizer
// was calibrated with.
func (o *Optimizer) Characteristics() *netchar.Characteristics {
	return o.chars
}

// Engine returns the underlying broadcast engine.
func (o *Optimizer) Engine() *Engine {
	return o.engine
}

// Broadcast copies the root's buffer to every rank, choosing the
// binomial tree for small messages and the pipelined chain once the
// message size passes the latency/bandwidth break-even point.
func (o *Optimizer) Broadcast(g *comm.Group, buf []float64, root int) error {
	if err := validateRoot(g, root); err != nil {
		return err
	}
	if o.usePipeline(g.Size(), len(buf)) {
		return o.engine.PipelineBroadcast(g, buf, root)
	}
	return o.engine.BinomialTreeBroadcast(g, buf, root)
}

// usePipeline applies the break-even rule: pipeline once the tree's
// per-round latency cost exceeds the chain's relay-plus-transfer cost.
func (o *Optimizer) usePipeline(n, count int) bool {
	if n <= 2 {
		return false
	}
	bytes := float64(count * 8)
	chunks := o.engine.chunkCount()
	return o.model.PipelineTime(n, bytes, chunks) < o.model.BinomialTime(n, bytes)
}

// BroadcastStrategy names the algorithm Broadcast would pick for a
// group of n ranks and a count-element vector. The reporting layer
// labels results with it.
func (o *Optimizer) BroadcastStrategy(n, count int) string {
	if o.usePipeline(n, count) {
		return "pipeline"
	}
	return "binomial"
}

// AllreduceStrategy names the algorithm Allreduce would pick for a
// group of n ranks.
func (o *Optimizer) AllreduceStrategy(n int) string {
	if n > 1 && isPowerOfTwo(n) {
		return "recursive-doubling"
	}
	return "reduce-broadcast"
}

// Reduce folds every rank's send buffer into the root's recv buffer
// with op, accumulating up the same binomial tree the broadcast uses,
// reversed. Only the root's recv buffer is defined on return; other
// ranks' recv buffers are left untouched.
func (o *Optimizer) Reduce(g *comm.Group, send, recv []float64, op Op, root int) error {
	if err := validateRoot(g, root); err != nil {
		return err
	}
	if !op.Valid() {
		return fmt.Errorf("operator %d: %w", int(op), ErrUnsupportedOperation)
	}
	if len(send) == 0 {
		return nil
	}
	n := g.Size()
	if g.Rank() == root {
		if len(recv) < len(send) {
			return fmt.Errorf("recv buffer holds %d of %d elements: %w",
				len(recv), len(send), ErrInvalidArgument)
		}
		if n == 1 {
			copy(recv, send)
			return nil
		}
	}

	accum := make([]float64, len(send))
	copy(accum, send)

	vrank := topology.VirtualRank(g.Rank(), root, n)

	// Children finish their subtrees before this rank may forward, so
	// the up-tree order is the broadcast rounds reversed.
	children := topology.BinomialChildren(vrank, n)
	for i := len(children) - 1; i >= 0; i-- {
		child := topology.AbsoluteRank(children[i], root, n)
		data, _, err := g.Recv(child, tagTreeReduce)
		if err != nil {
			return err
		}
		combineTimed(g, op, accum, data)
	}

	if parent, ok := topology.BinomialParent(vrank); ok {
		return g.Send(topology.AbsoluteRank(parent, root, n), tagTreeReduce, accum)
	}
	copy(recv, accum)
	return nil
}

// Allreduce leaves the reduction of all ranks' send buffers in every
// rank's recv buffer. For power-of-two groups it runs a
// recursive-doubling exchange; otherwise it reduces to rank 0 and
// broadcasts back. The result is identical on every rank.
func (o *Optimizer) Allreduce(g *comm.Group, send, recv []float64, op Op) error {
	if !op.Valid() {
		return fmt.Errorf("operator %d: %w", int(op), ErrUnsupportedOperation)
	}
	if len(send) == 0 {
		return nil
	}
	if len(recv) < len(send) {
		return fmt.Errorf("recv buffer holds %d of %d elements: %w",
			len(recv), len(send), ErrInvalidArgument)
	}
	n := g.Size()
	if n == 1 {
		copy(recv, send)
		return nil
	}

	if isPowerOfTwo(n) {
		return o.recursiveDoubling(g, send, recv, op)
	}

	// Reduce to rank 0, then broadcast the result. The broadcast
	// fills every rank's recv buffer with bit-identical contents.
	if err := o.Reduce(g, send, recv, op, 0); err != nil {
		return err
	}
	return o.Broadcast(g, recv, 0)
}

// recursiveDoubling exchanges full vectors with partners at doubling
// bit distances. Every rank does work, but the result arrives in
// log2(N) hops instead of the tree's 2*log2(N).
func (o *Optimizer) recursiveDoubling(g *comm.Group, send, recv []float64, op Op) error {
	accum := make([]float64, len(send))
	copy(accum, send)

	n := g.Size()
	round := 0
	for mask := 1; mask < n; mask <<= 1 {
		partner := g.Rank() ^ mask
		if err := g.Send(partner, tagAllreduceBase+round, accum); err != nil {
			return err
		}
		data, _, err := g.Recv(partner, tagAllreduceBase+round)
		if err != nil {
			return err
		}
		// A sent vector may still be in flight, so the accumulator is
		// replaced rather than mutated. Both partners hold the same
		// two partial vectors, and the commutative combine keeps all
		// ranks bit-identical.
		next := make([]float64, len(accum))
		copy(next, accum)
		combineTimed(g, op, next, data)
		accum = next
		round++
	}
	copy(recv, accum)
	return nil
}

// Allgather places every rank's send chunk at that rank's offset in
// recv, via a ring exchange. The concatenation read in rank order
// matches a direct all-gather exactly.
func (o *Optimizer) Allgather(g *comm.Group, send, recv []float64) error {
	if len(send) == 0 {
		return nil
	}
	n := g.Size()
	if len(recv) < n*len(send) {
		return fmt.Errorf("recv buffer holds %d of %d elements: %w",
			len(recv), n*len(send), ErrInvalidArgument)
	}

	size := len(send)
	copy(recv[g.Rank()*size:(g.Rank()+1)*size], send)
	if n == 1 {
		return nil
	}

	right := (g.Rank() + 1) % n
	left := (g.Rank() - 1 + n) % n
	for step := 0; step < n-1; step++ {
		sendBlock := (g.Rank() - step + n) % n
		recvBlock := (g.Rank() - step - 1 + n) % n
		if err := g.Send(right, tagAllgatherBase+step,
			recv[sendBlock*size:(sendBlock+1)*size]); err != nil {
			return err
		}
		data, _, err := g.Recv(left, tagAllgatherBase+step)
		if err != nil {
			return err
		}
		copy(recv[recvBlock*size:(recvBlock+1)*size], data)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
