package comm

import (
	"fmt"

	"github.com/hpcsim/topocoll/simulator"
)

// Reference collectives: direct, unoptimized implementations with the
// same semantics as the optimized algorithms. The test harness and the
// benchmarks compare optimized results against these.

const tagRefBcast = reservedTagFloor + 10
const tagRefReduce = reservedTagFloor + 11
const tagRefGather = reservedTagFloor + 12

// A CombineFunc folds src into dst element-wise. It must be
// commutative and associative.
type CombineFunc func(dst, src []float64)

// RefBroadcast copies the root's buffer to every rank with direct
// sends from the root.
func (g *Group) RefBroadcast(buf []float64, root int) error {
	if len(buf) == 0 || g.Size() == 1 {
		return nil
	}
	if g.Rank() == root {
		return g.sendToAll(tagRefBcast, buf)
	}
	data, _, err := g.Recv(root, tagRefBcast)
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}

// RefReduce folds every rank's send buffer into the root's recv
// buffer, combining in rank order so the result is deterministic.
// Only the root's recv buffer is written.
func (g *Group) RefReduce(send, recv []float64, combine CombineFunc, root int) error {
	if len(send) == 0 {
		return nil
	}
	if g.Rank() != root {
		return g.Send(root, tagRefReduce, send)
	}
	if len(recv) < len(send) {
		return fmt.Errorf("comm: reduce recv buffer too small: %w", ErrCommunicationFailure)
	}
	copy(recv, send)
	for src := 0; src < g.Size(); src++ {
		if src == root {
			continue
		}
		data, _, err := g.Recv(src, tagRefReduce)
		if err != nil {
			return err
		}
		combine(recv, data)
	}
	return nil
}

// RefAllreduce gathers every rank's vector on every rank and combines
// them in rank order, so all ranks produce bit-identical results.
func (g *Group) RefAllreduce(send, recv []float64, combine CombineFunc) error {
	if len(send) == 0 {
		return nil
	}
	if len(recv) < len(send) {
		return fmt.Errorf("comm: allreduce recv buffer too small: %w", ErrCommunicationFailure)
	}
	gathered, err := g.gatherAll(send)
	if err != nil {
		return err
	}
	copy(recv, gathered[0])
	for _, vec := range gathered[1:] {
		combine(recv, vec)
	}
	return nil
}

// RefAllgather places every rank's chunk at that rank's offset in
// recv, which must hold Size()*len(send) elements.
func (g *Group) RefAllgather(send, recv []float64) error {
	if len(send) == 0 {
		return nil
	}
	if len(recv) < g.Size()*len(send) {
		return fmt.Errorf("comm: allgather recv buffer too small: %w", ErrCommunicationFailure)
	}
	gathered, err := g.gatherAll(send)
	if err != nil {
		return err
	}
	for src, vec := range gathered {
		copy(recv[src*len(send):(src+1)*len(send)], vec)
	}
	return nil
}

// gatherAll collects every rank's vector, indexed by rank.
func (g *Group) gatherAll(send []float64) ([][]float64, error) {
	if err := g.sendToAll(tagRefGather, send); err != nil {
		return nil, err
	}
	gathered := make([][]float64, g.Size())
	gathered[g.Rank()] = send
	for i := 0; i < g.Size()-1; i++ {
		data, src, err := g.Recv(AnySource, tagRefGather)
		if err != nil {
			return nil, err
		}
		gathered[src] = data
	}
	return gathered, nil
}

// sendToAll sends vec to every other rank in one network call, the
// way the simulator's networks prefer.
func (g *Group) sendToAll(tag int, vec []float64) error {
	msgs := make([]*simulator.Message, 0, g.Size()-1)
	for dst, port := range g.Ports {
		if dst == g.Rank() {
			continue
		}
		msgs = append(msgs, &simulator.Message{
			Source:  g.Port,
			Dest:    port,
			Payload: &envelope{Source: g.Rank(), Tag: tag, Data: vec},
			Size:    float64(len(vec) * 8),
		})
	}
	if err := g.Network.Send(g.Handle, msgs...); err != nil {
		return fmt.Errorf("comm: broadcast send: %w (%v)", ErrCommunicationFailure, err)
	}
	return nil
}
