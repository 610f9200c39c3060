// Package scenario drives simulated collective runs from declarative
// YAML files. A scenario names a topology, a link model, and a timed
// schedule of collective operations; running it produces one report
// result per event.
package scenario

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hpcsim/topocoll/collective"
	"github.com/hpcsim/topocoll/topology"
)

// A Config is a parsed scenario file.
type Config struct {
	Name     string   `yaml:"name"`
	Topology Topology `yaml:"topology"`
	Links    Links    `yaml:"links"`
	Events   []Event  `yaml:"events"`
}

// A Topology selects the interconnect shape. Nodes is optional for
// shapes whose node count is derived (fat-tree, torus); when present
// it must agree with the derived count.
type Topology struct {
	Kind  string `yaml:"kind"`
	Nodes int    `yaml:"nodes"`
	Arity int    `yaml:"arity"`
	DimX  int    `yaml:"dim_x"`
	DimY  int    `yaml:"dim_y"`
	DimZ  int    `yaml:"dim_z"`
	Wrap  bool   `yaml:"wrap"`
}

// Links sets the base link model. Latency scales with topology hop
// count per pair; bandwidth is uniform.
type Links struct {
	BandwidthMbps float64 `yaml:"bandwidth_mbps"`
	LatencyUs     float64 `yaml:"latency_us"`
}

// An Event schedules one collective at a simulated time.
type Event struct {
	// At is the earliest start time in simulated seconds.
	At float64 `yaml:"at"`

	// Operation is broadcast, reduce, allreduce or allgather.
	Operation string `yaml:"operation"`

	// Count is the vector length in elements.
	Count int `yaml:"count"`

	// Root applies to broadcast and reduce.
	Root int `yaml:"root"`

	// Op is the reduction operator; empty means sum.
	Op string `yaml:"op"`
}

// Load parses and validates a scenario. Unknown fields are rejected,
// so typos in a schedule fail loudly instead of silently defaulting.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads a scenario from a YAML file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (c *Config) validate() error {
	desc, err := c.Topology.Descriptor()
	if err != nil {
		return err
	}
	if c.Links.BandwidthMbps <= 0 || c.Links.LatencyUs <= 0 {
		return fmt.Errorf("scenario: links need positive bandwidth and latency, got %v/%v",
			c.Links.BandwidthMbps, c.Links.LatencyUs)
	}
	if len(c.Events) == 0 {
		return fmt.Errorf("scenario: no events")
	}
	for i, ev := range c.Events {
		if ev.At < 0 {
			return fmt.Errorf("scenario: event %d starts at negative time %v", i, ev.At)
		}
		if ev.Count < 0 {
			return fmt.Errorf("scenario: event %d has negative count %d", i, ev.Count)
		}
		switch ev.Operation {
		case "broadcast", "reduce":
			if !desc.Contains(ev.Root) {
				return fmt.Errorf("scenario: event %d root %d outside %d nodes",
					i, ev.Root, desc.Nodes)
			}
		case "allreduce", "allgather":
		default:
			return fmt.Errorf("scenario: event %d has unknown operation %q", i, ev.Operation)
		}
		if ev.Operation == "reduce" || ev.Operation == "allreduce" {
			if _, err := collective.ParseOp(ev.operator()); err != nil {
				return fmt.Errorf("scenario: event %d: %w", i, err)
			}
		}
	}
	return nil
}

func (e Event) operator() string {
	if e.Op == "" {
		return "sum"
	}
	return e.Op
}

// Descriptor converts the shape selection to a topology descriptor.
func (t Topology) Descriptor() (topology.Descriptor, error) {
	var d topology.Descriptor
	switch t.Kind {
	case "flat":
		d = topology.NewFlat(t.Nodes)
	case "binomial":
		d = topology.NewBinomial(t.Nodes)
	case "fat-tree":
		d = topology.NewFatTree(t.Arity)
	case "torus-2d":
		d = topology.NewTorus2D(t.DimX, t.DimY, t.Wrap)
	case "torus-3d":
		d = topology.NewTorus3D(t.DimX, t.DimY, t.DimZ, t.Wrap)
	default:
		return d, fmt.Errorf("scenario: unknown topology kind %q", t.Kind)
	}
	if t.Nodes != 0 && t.Nodes != d.Nodes {
		return d, fmt.Errorf("scenario: %s topology has %d nodes, config says %d",
			t.Kind, d.Nodes, t.Nodes)
	}
	if !d.Valid() {
		return d, fmt.Errorf("scenario: invalid %s topology parameters", t.Kind)
	}
	return d, nil
}
