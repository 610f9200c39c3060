// Package comm provides the per-rank view of a fixed-size
// communication group: tagged point-to-point send/receive, a group
// barrier, a wall-clock source, and naive reference collectives used
// for correctness comparison.
//
// The group is the transport the collective algorithms run on. Every
// rank runs in its own goroutine on a shared event loop, and all
// operations here are blocking and group-synchronous.
package comm

import (
	"errors"
	"fmt"

	"github.com/unixpickle/essentials"

	"github.com/hpcsim/topocoll/simulator"
)

// ErrCommunicationFailure is reported when the underlying transport
// refuses a send or receive. Failures are not retried: a retry at this
// layer could duplicate delivery, and the group is assumed to require
// external recovery afterwards.
var ErrCommunicationFailure = errors.New("comm: communication failure")

// AnySource matches a message from any rank in Recv.
const AnySource = -1

// Tags below this value are reserved for the group's own protocol
// messages (barriers).
const reservedTagFloor = -1 << 20

const tagBarrierArrive = reservedTagFloor
const tagBarrierRelease = reservedTagFloor + 1

// A Group is one rank's handle on the whole communication group.
//
// A Group must only be used from the goroutine it was spawned on, and
// the caller is responsible for serializing collective operations: two
// collectives must never be in flight on the same group at once.
type Group struct {
	// Handle is the rank's handle on the event loop.
	Handle *simulator.Handle

	// Port is this rank's own port.
	Port *simulator.Port

	// Ports contains ports to every rank, including this one,
	// indexed by rank.
	Ports []*simulator.Port

	// Network is the transport connecting the ranks.
	Network simulator.Network

	// Messages received while waiting for a different (source, tag)
	// pair, in arrival order.
	stashed []*envelope
}

// envelope is the wire format of a tagged vector message.
type envelope struct {
	Source int
	Tag    int
	Data   []float64
}

// SpawnGroup creates ports for n ranks on the network and runs f once
// per rank, each in its own goroutine.
func SpawnGroup(loop *simulator.EventLoop, network simulator.Network, n int,
	f func(g *Group)) {
	SpawnGroupOn(loop, network, simulator.NewPorts(loop, n), f)
}

// SpawnGroupOn is like SpawnGroup but runs over caller-created ports,
// so tests and scenarios can keep control of the endpoints.
func SpawnGroupOn(loop *simulator.EventLoop, network simulator.Network,
	ports []*simulator.Port, f func(g *Group)) {
	for i := range ports {
		port := ports[i]
		loop.Go(func(h *simulator.Handle) {
			f(&Group{
				Handle:  h,
				Port:    port,
				Ports:   ports,
				Network: network,
			})
		})
	}
}

// Rank returns this rank's identity within the group.
func (g *Group) Rank() int {
	return g.Port.Index
}

// Size returns the number of ranks in the group.
func (g *Group) Size() int {
	return len(g.Ports)
}

// Time returns the group's wall-clock time in seconds.
func (g *Group) Time() float64 {
	return g.Handle.Time()
}

// Send sends a tagged vector to dst. The vector must not be mutated
// until the matching receive completes.
func (g *Group) Send(dst, tag int, vec []float64) error {
	if dst < 0 || dst >= len(g.Ports) {
		return fmt.Errorf("comm: send to rank %d of %d: %w",
			dst, len(g.Ports), ErrCommunicationFailure)
	}
	err := g.Network.Send(g.Handle, &simulator.Message{
		Source:  g.Port,
		Dest:    g.Ports[dst],
		Payload: &envelope{Source: g.Rank(), Tag: tag, Data: vec},
		Size:    float64(len(vec) * 8),
	})
	if err != nil {
		return fmt.Errorf("comm: send to rank %d: %w (%v)", dst, ErrCommunicationFailure, err)
	}
	return nil
}

// Recv blocks until a message matching (src, tag) arrives and returns
// its payload and actual source. Pass AnySource to match any sender.
// Messages that do not match are stashed and matched by later calls.
func (g *Group) Recv(src, tag int) ([]float64, int, error) {
	for i, env := range g.stashed {
		if env.matches(src, tag) {
			essentials.OrderedDelete(&g.stashed, i)
			return env.Data, env.Source, nil
		}
	}
	for {
		msg := g.Port.Recv(g.Handle)
		env, ok := msg.Payload.(*envelope)
		if !ok {
			return nil, 0, fmt.Errorf("comm: unexpected payload %T: %w",
				msg.Payload, ErrCommunicationFailure)
		}
		if env.matches(src, tag) {
			return env.Data, env.Source, nil
		}
		g.stashed = append(g.stashed, env)
	}
}

func (e *envelope) matches(src, tag int) bool {
	return (src == AnySource || src == e.Source) && tag == e.Tag
}

// Barrier blocks until every rank in the group has entered the
// barrier. Rank 0 acts as the coordinator.
func (g *Group) Barrier() error {
	if g.Size() == 1 {
		return nil
	}
	if g.Rank() == 0 {
		for i := 1; i < g.Size(); i++ {
			if _, _, err := g.Recv(AnySource, tagBarrierArrive); err != nil {
				return err
			}
		}
		for i := 1; i < g.Size(); i++ {
			if err := g.Send(i, tagBarrierRelease, nil); err != nil {
				return err
			}
		}
		return nil
	}
	if err := g.Send(0, tagBarrierArrive, nil); err != nil {
		return err
	}
	_, _, err := g.Recv(0, tagBarrierRelease)
	return err
}
