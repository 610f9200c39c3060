package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hpcsim/topocoll/collective"
	"github.com/hpcsim/topocoll/comm"
	"github.com/hpcsim/topocoll/netchar"
	"github.com/hpcsim/topocoll/simulator"
	"github.com/hpcsim/topocoll/topology"
)

func newBenchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Print a markdown table of simulated collective times",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.OutOrStdout(), a.cfg)
		},
	}
}

var benchOperations = []string{"broadcast", "allreduce", "allgather"}

func runBench(w io.Writer, cfg *Config) error {
	fmt.Fprintln(w, "| Nodes | Elements | Operation | Algorithm | Seconds |")
	fmt.Fprintln(w, "|------:|---------:|:----------|:----------|--------:|")
	for _, n := range cfg.Bench.Nodes {
		for _, size := range cfg.Bench.Sizes {
			for _, operation := range benchOperations {
				algorithm, seconds, err := benchOnce(cfg, n, size, operation)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "| %d | %d | %s | %s | %.9f |\n",
					n, size, operation, algorithm, seconds)
			}
		}
	}
	return nil
}

// benchOnce runs one collective on a fresh simulated network and
// returns the algorithm label and the simulated completion time.
func benchOnce(cfg *Config, n, size int, operation string) (string, float64, error) {
	chars := netchar.Uniform(topology.NewFlat(n),
		cfg.Links.BandwidthMbps, cfg.Links.LatencyUs)
	opt := collective.NewOptimizer(chars)
	loop := simulator.NewEventLoop()
	network := simulator.NewLinkNetwork(chars.LinkModel())

	var algorithm string
	switch operation {
	case "broadcast":
		algorithm = opt.BroadcastStrategy(n, size)
	case "allreduce":
		algorithm = opt.AllreduceStrategy(n)
	case "allgather":
		algorithm = "ring"
	default:
		return "", 0, fmt.Errorf("unknown bench operation %q", operation)
	}

	errs := make([]error, n)
	comm.SpawnGroup(loop, network, n, func(g *comm.Group) {
		var err error
		switch operation {
		case "broadcast":
			err = opt.Broadcast(g, make([]float64, size), 0)
		case "allreduce":
			err = opt.Allreduce(g, make([]float64, size),
				make([]float64, size), collective.OpSum)
		case "allgather":
			err = opt.Allgather(g, make([]float64, size),
				make([]float64, n*size))
		}
		errs[g.Rank()] = err
	})
	if err := loop.Run(); err != nil {
		return "", 0, err
	}
	if err := errors.Join(errs...); err != nil {
		return "", 0, err
	}
	return algorithm, loop.Time(), nil
}
