package scenario

import (
	"errors"
	"fmt"

	"github.com/hpcsim/topocoll/collective"
	"github.com/hpcsim/topocoll/comm"
	"github.com/hpcsim/topocoll/netchar"
	"github.com/hpcsim/topocoll/report"
	"github.com/hpcsim/topocoll/simulator"
)

// Run executes the scenario on a simulated network and reports one
// result per event to rep. An event's reported time covers the
// collective plus the closing barrier, so the slowest rank defines
// completion, the way the original scenario drivers measured it.
func Run(cfg *Config, rep report.Reporter) error {
	desc, err := cfg.Topology.Descriptor()
	if err != nil {
		return err
	}
	chars := netchar.HopScaled(desc, cfg.Links.BandwidthMbps, cfg.Links.LatencyUs)
	opt := collective.NewOptimizer(chars)
	runID := report.NewRunID()

	loop := simulator.NewEventLoop()
	network := simulator.NewLinkNetwork(chars.LinkModel())
	errs := make([]error, desc.Nodes)
	comm.SpawnGroup(loop, network, desc.Nodes, func(g *comm.Group) {
		errs[g.Rank()] = runEvents(cfg, opt, rep, runID, g)
	})
	if err := loop.Run(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func runEvents(cfg *Config, opt *collective.Optimizer, rep report.Reporter,
	runID string, g *comm.Group) error {
	for i, ev := range cfg.Events {
		if wait := ev.At - g.Time(); wait > 0 {
			g.Handle.Sleep(wait)
		}
		start := g.Time()
		algorithm, err := execute(opt, g, ev)
		if err != nil {
			return fmt.Errorf("scenario: event %d (%s): %w", i, ev.Operation, err)
		}
		if err := g.Barrier(); err != nil {
			return fmt.Errorf("scenario: event %d (%s): %w", i, ev.Operation, err)
		}
		if g.Rank() == 0 {
			if err := rep.Report(&report.Result{
				RunID:     runID,
				Operation: ev.Operation,
				Algorithm: algorithm,
				Nodes:     g.Size(),
				Count:     ev.Count,
				Seconds:   g.Time() - start,
			}); err != nil {
				return fmt.Errorf("scenario: event %d (%s): %w", i, ev.Operation, err)
			}
		}
	}
	return nil
}

// execute runs one event's collective and names the algorithm used.
// Buffers are synthesized per rank; scenarios measure timing, not
// payload content.
func execute(opt *collective.Optimizer, g *comm.Group, ev Event) (string, error) {
	switch ev.Operation {
	case "broadcast":
		buf := make([]float64, ev.Count)
		if g.Rank() == ev.Root {
			fill(buf, ev.Root)
		}
		return opt.BroadcastStrategy(g.Size(), ev.Count), opt.Broadcast(g, buf, ev.Root)
	case "reduce":
		op, err := collective.ParseOp(ev.operator())
		if err != nil {
			return "", err
		}
		send := make([]float64, ev.Count)
		fill(send, g.Rank())
		recv := make([]float64, ev.Count)
		return "tree", opt.Reduce(g, send, recv, op, ev.Root)
	case "allreduce":
		op, err := collective.ParseOp(ev.operator())
		if err != nil {
			return "", err
		}
		send := make([]float64, ev.Count)
		fill(send, g.Rank())
		recv := make([]float64, ev.Count)
		return opt.AllreduceStrategy(g.Size()), opt.Allreduce(g, send, recv, op)
	case "allgather":
		send := make([]float64, ev.Count)
		fill(send, g.Rank())
		recv := make([]float64, g.Size()*ev.Count)
		return "ring", opt.Allgather(g, send, recv)
	}
	return "", fmt.Errorf("unknown operation %q", ev.Operation)
}

func fill(buf []float64, rank int) {
	for i := range buf {
		buf[i] = float64(i + rank + 1)
	}
}
