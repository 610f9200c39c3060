package simulator

import (
	"errors"
	"testing"
)

func TestSwitchedNetworkSingleMessage(t *testing.T) {
	loop := NewEventLoop()

	switcher := NewGreedyDropSwitcher(2, 2.0)
	ports := NewPorts(loop, 2)
	network := NewSwitcherNetwork(switcher, 2, 3.0)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  ports[0],
			Dest:    ports[1],
			Payload: "hi port 1",
			Size:    124.0,
		})
		if val := ports[0].Recv(h).Payload; val != "hi port 0" {
			t.Errorf("unexpected message: %s", val)
		}
	})
	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  ports[1],
			Dest:    ports[0],
			Payload: "hi port 0",
			Size:    124.0,
		})
		if val := ports[1].Recv(h).Payload; val != "hi port 1" {
			t.Errorf("unexpected message: %s", val)
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	expectedTime := 124.0/2.0 + 3.0
	if loop.Time() != expectedTime {
		t.Errorf("time should be %f but got %f", expectedTime, loop.Time())
	}
}

func TestSwitchedNetworkOversubscribed(t *testing.T) {
	loop := NewEventLoop()

	dataRate := 4.0
	switcher := NewGreedyDropSwitcher(2, dataRate)
	ports := NewPorts(loop, 2)
	network := NewSwitcherNetwork(switcher, 2, 2.0)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  ports[0],
			Dest:    ports[1],
			Payload: "hi port 1 (message 1)",
			Size:    123.0,
		})
		network.Send(h, &Message{
			Source:  ports[0],
			Dest:    ports[1],
			Payload: "hi port 1 (message 2)",
			Size:    124.0,
		})
		if val := ports[0].Recv(h).Payload; val != "hi port 0" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime := 1.0 + 2.0 + 124.0/dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
	})

	loop.Go(func(h *Handle) {
		// Make sure the other messages are in-flight, so rescheduling
		// in front of them is exercised.
		h.Sleep(1)

		network.Send(h, &Message{
			Source:  ports[1],
			Dest:    ports[0],
			Payload: "hi port 0",
			Size:    124.0,
		})
		if val := ports[1].Recv(h).Payload; val != "hi port 1 (message 1)" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime := 2.0 + 2.0*123.0/dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
		if val := ports[1].Recv(h).Payload; val != "hi port 1 (message 2)" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime += 1.0 / dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	expectedTime := 2.0 + 2.0*123.0/dataRate + 1.0/dataRate
	if loop.Time() != expectedTime {
		t.Errorf("time should be %f but got %f", expectedTime, loop.Time())
	}

	// Make sure there are no stray messages.
	for _, port := range ports {
		p := port
		loop.Go(func(h *Handle) {
			h.Poll(p.Incoming)
		})
		if loop.Run() == nil {
			t.Error("expected deadlock error")
		}
	}
}

func TestLinkNetworkDelay(t *testing.T) {
	loop := NewEventLoop()
	ports := NewPorts(loop, 2)
	network := NewLinkNetwork(UniformLinks(10.0, 2.0))

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  ports[0],
			Dest:    ports[1],
			Payload: "data",
			Size:    50.0,
		})
	})
	loop.Go(func(h *Handle) {
		ports[1].Recv(h)
		expected := 2.0 + 50.0/10.0
		if h.Time() != expected {
			t.Errorf("expected time %f but got %f", expected, h.Time())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestLinkNetworkFIFO(t *testing.T) {
	loop := NewEventLoop()
	ports := NewPorts(loop, 2)
	network := NewLinkNetwork(UniformLinks(1.0, 0.5))

	loop.Go(func(h *Handle) {
		// Both messages target the same destination, so the second
		// must queue behind the first regardless of its size.
		network.Send(h, &Message{Source: ports[0], Dest: ports[1], Payload: 1, Size: 10.0})
		network.Send(h, &Message{Source: ports[0], Dest: ports[1], Payload: 2, Size: 1.0})
	})
	loop.Go(func(h *Handle) {
		first := ports[1].Recv(h)
		if first.Payload != 1 {
			t.Errorf("expected payload 1 but got %v", first.Payload)
		}
		second := ports[1].Recv(h)
		if second.Payload != 2 {
			t.Errorf("expected payload 2 but got %v", second.Payload)
		}
		expected := (0.5 + 10.0) + (0.5 + 1.0)
		if h.Time() != expected {
			t.Errorf("expected time %f but got %f", expected, h.Time())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestLinkNetworkDown(t *testing.T) {
	loop := NewEventLoop()
	ports := NewPorts(loop, 2)
	network := NewLinkNetwork(UniformLinks(1.0, 0.1))

	loop.Go(func(h *Handle) {
		network.SetDown(h, ports[1], true)
		err := network.Send(h, &Message{
			Source:  ports[0],
			Dest:    ports[1],
			Payload: "lost",
			Size:    1.0,
		})
		if !errors.Is(err, ErrEndpointDown) {
			t.Errorf("expected ErrEndpointDown but got %v", err)
		}

		network.SetDown(h, ports[1], false)
		if err := network.Send(h, &Message{
			Source:  ports[0],
			Dest:    ports[1],
			Payload: "found",
			Size:    1.0,
		}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
	loop.Go(func(h *Handle) {
		if msg := ports[1].Recv(h); msg.Payload != "found" {
			t.Errorf("unexpected payload: %v", msg.Payload)
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}
