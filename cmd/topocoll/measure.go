package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hpcsim/topocoll/comm"
	"github.com/hpcsim/topocoll/measure"
	"github.com/hpcsim/topocoll/netchar"
	"github.com/hpcsim/topocoll/simulator"
	"github.com/hpcsim/topocoll/topology"
)

func newMeasureCmd(a *app) *cobra.Command {
	var nodes int
	var iterations int
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Estimate link bandwidth and latency on a simulated network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(cmd.OutOrStdout(), a.cfg, nodes, iterations)
		},
	}
	cmd.Flags().IntVar(&nodes, "nodes", 8, "number of ranks")
	cmd.Flags().IntVar(&iterations, "iterations", 0,
		"timed trials per link (0 for the per-measurer defaults)")
	return cmd
}

func runMeasure(w io.Writer, cfg *Config, nodes, iterations int) error {
	if nodes < 2 {
		return fmt.Errorf("measure needs at least 2 nodes, got %d", nodes)
	}
	topo := topology.NewFlat(nodes)
	model := netchar.Uniform(topo, cfg.Links.BandwidthMbps, cfg.Links.LatencyUs)
	bw := &measure.BandwidthMeasurer{Iterations: iterations}
	lat := &measure.LatencyMeasurer{Iterations: iterations}

	loop := simulator.NewEventLoop()
	network := simulator.NewLinkNetwork(model.LinkModel())
	errs := make([]error, nodes)
	var measured *netchar.Characteristics
	var timer *measure.PerformanceTimer
	comm.SpawnGroup(loop, network, nodes, func(g *comm.Group) {
		t := measure.NewPerformanceTimer(g.Time)
		t.Start("bandwidth")
		bwMat, err := bw.MeasureAll(g)
		if err != nil {
			errs[g.Rank()] = err
			return
		}
		t.Stop("bandwidth")

		t.Start("latency")
		latMat, err := lat.MeasureAll(g)
		if err != nil {
			errs[g.Rank()] = err
			return
		}
		t.Stop("latency")

		if g.Rank() != 0 {
			return
		}
		c, err := netchar.FromMatrices(topo, bwMat, latMat)
		if err != nil {
			errs[0] = err
			return
		}
		measured = c
		timer = t
	})
	if err := loop.Run(); err != nil {
		return err
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	fmt.Fprintf(w, "nodes: %d\n", nodes)
	fmt.Fprintf(w, "mean bandwidth: %.3f Mbit/s\n", measured.MeanBandwidth())
	fmt.Fprintf(w, "mean latency: %.3f us\n", measured.MeanLatency())
	if err := writeMatrix(w, "bandwidth (Mbit/s)", measured, measured.Bandwidth); err != nil {
		return err
	}
	if err := writeMatrix(w, "latency (us)", measured, measured.Latency); err != nil {
		return err
	}
	fmt.Fprintln(w, "simulated measurement cost:")
	return timer.WriteTimings(w)
}

func writeMatrix(w io.Writer, title string, c *netchar.Characteristics,
	get func(a, b int) (float64, error)) error {
	fmt.Fprintf(w, "%s:\n", title)
	for a := 0; a < c.Size(); a++ {
		for b := 0; b < c.Size(); b++ {
			v, err := get(a, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, " %10.3f", v)
		}
		fmt.Fprintln(w)
	}
	return nil
}
