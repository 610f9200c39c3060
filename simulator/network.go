package simulator

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/unixpickle/essentials"
)

// ErrEndpointDown is reported when a message is sent to or from an
// endpoint that has been marked down.
var ErrEndpointDown = errors.New("simulator: endpoint is down")

// A Port is one machine's point of communication on a network.
// Data is sent from Ports and received on Ports.
type Port struct {
	// Index is the port's position in the network's port list.
	// Group code uses it as the machine's integer rank.
	Index int

	// Incoming is a stream of *Message objects.
	Incoming *EventStream
}

// NewPorts creates n ports on the loop, indexed 0..n-1.
func NewPorts(loop *EventLoop, n int) []*Port {
	ports := make([]*Port, n)
	for i := range ports {
		ports[i] = &Port{Index: i, Incoming: loop.Stream()}
	}
	return ports
}

// Recv receives the next message on the port.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between ports.
type Message struct {
	Source  *Port
	Dest    *Port
	Payload interface{}

	// Size is the message's size in bytes, used by networks to model
	// transmission time.
	Size float64
}

// A Network is an abstract way of delivering messages between ports.
type Network interface {
	// Send delivers message objects to their destination ports.
	// A message arrives on the destination port's incoming stream if
	// the communication succeeds.
	//
	// Send is non-blocking. Passing several messages at once is
	// preferable when possible, since some networks re-plan the whole
	// delivery timeline on every call.
	//
	// A non-nil error means the transport refused the messages, e.g.
	// because an endpoint is down. No partial delivery is attempted
	// in that case.
	Send(h *Handle, msgs ...*Message) error
}

// A RandomNetwork delivers every message with an independent random
// delay. It is useful for shaking out ordering assumptions in tests.
type RandomNetwork struct{}

// Send sends the messages with random delays.
func (r RandomNetwork) Send(h *Handle, msgs ...*Message) error {
	for _, msg := range msgs {
		h.Schedule(msg.Dest.Incoming, msg, rand.Float64())
	}
	return nil
}

// A LinkFunc describes the link between an ordered pair of ports:
// a transfer rate in bytes per unit time and a fixed latency.
type LinkFunc func(src, dst int) (rate, latency float64)

// UniformLinks returns a LinkFunc with the same rate and latency on
// every link.
func UniformLinks(rate, latency float64) LinkFunc {
	return func(src, dst int) (float64, float64) {
		return rate, latency
	}
}

// A LinkNetwork delivers messages with a per-link rate and latency,
// keeping per-destination FIFO ordering. Endpoints can be marked down,
// in which case sends involving them fail.
//
// The per-pair link model is how topology-derived characteristics
// (fat-tree tiers, torus hop counts) are materialized into a running
// network.
type LinkNetwork struct {
	lock sync.Mutex

	link LinkFunc

	nextTimes map[int]float64
	downPorts map[int]bool
	timers    map[int][]*Timer
}

// NewLinkNetwork creates a LinkNetwork using the given link model.
func NewLinkNetwork(link LinkFunc) *LinkNetwork {
	return &LinkNetwork{
		link:      link,
		nextTimes: map[int]float64{},
		downPorts: map[int]bool{},
		timers:    map[int][]*Timer{},
	}
}

// Send sends the messages over the network in order.
func (l *LinkNetwork) Send(h *Handle, msgs ...*Message) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	for _, msg := range msgs {
		if l.downPorts[msg.Source.Index] || l.downPorts[msg.Dest.Index] {
			return ErrEndpointDown
		}
	}

	l.cleanupTimers(h)

	curTime := h.Time()

	for _, msg := range msgs {
		src := msg.Source.Index
		dst := msg.Dest.Index
		rate, latency := l.link(src, dst)
		delay := latency + msg.Size/rate

		var timer *Timer
		if t, ok := l.nextTimes[dst]; !ok || t <= curTime {
			timer = h.Schedule(msg.Dest.Incoming, msg, delay)
			l.nextTimes[dst] = curTime + delay
		} else {
			timer = h.Schedule(msg.Dest.Incoming, msg, delay+(t-curTime))
			l.nextTimes[dst] = delay + t
		}
		l.timers[dst] = append(l.timers[dst], timer)
		l.timers[src] = append(l.timers[src], timer)
	}
	return nil
}

// SetDown marks a port as down or up. Marking a port down kills all of
// its in-flight messages.
func (l *LinkNetwork) SetDown(h *Handle, port *Port, down bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.downPorts[port.Index] = down

	if !down {
		return
	}

	delete(l.nextTimes, port.Index)

	l.cleanupTimers(h)
	timers := l.timers[port.Index]
	canceled := map[*Timer]bool{}
	for _, t := range timers {
		canceled[t] = true
		h.Cancel(t)
	}
	delete(l.timers, port.Index)
	l.filterTimers(func(t *Timer) bool {
		return !canceled[t]
	})
}

func (l *LinkNetwork) cleanupTimers(h *Handle) {
	time := h.Time()
	l.filterTimers(func(t *Timer) bool {
		return t.Time() >= time
	})
}

func (l *LinkNetwork) filterTimers(f func(t *Timer) bool) {
	var keys []int
	for k := range l.timers {
		keys = append(keys, k)
	}
	for _, k := range keys {
		timers := l.timers[k]
		for i := 0; i < len(timers); i++ {
			if !f(timers[i]) {
				essentials.UnorderedDelete(&timers, i)
				i--
			}
		}
		l.timers[k] = timers
	}
}
