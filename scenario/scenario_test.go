package scenario

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpcsim/topocoll/report"
)

const sampleYAML = `
name: smoke
topology:
  kind: torus-2d
  dim_x: 4
  dim_y: 2
  wrap: true
links:
  bandwidth_mbps: 1000
  latency_us: 20
events:
  - at: 0
    operation: broadcast
    count: 64
    root: 0
  - at: 0.01
    operation: reduce
    count: 32
    root: 1
    op: max
  - at: 0.02
    operation: allreduce
    count: 32
  - at: 0.03
    operation: allgather
    count: 8
`

func TestLoad(t *testing.T) {
	cfg, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "smoke", cfg.Name)
	require.Len(t, cfg.Events, 4)
	require.Equal(t, "max", cfg.Events[1].operator())
	require.Equal(t, "sum", cfg.Events[2].operator())

	desc, err := cfg.Topology.Descriptor()
	require.NoError(t, err)
	require.Equal(t, 8, desc.Nodes)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	bad := strings.Replace(sampleYAML, "name: smoke", "name: smoke\nspeed: warp", 1)
	_, err := Load(strings.NewReader(bad))
	require.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"unknown operation": strings.Replace(sampleYAML, "operation: allgather", "operation: scatter", 1),
		"root out of range": strings.Replace(sampleYAML, "root: 1", "root: 8", 1),
		"bad operator":      strings.Replace(sampleYAML, "op: max", "op: xor", 1),
		"zero bandwidth":    strings.Replace(sampleYAML, "bandwidth_mbps: 1000", "bandwidth_mbps: 0", 1),
		"unknown topology":  strings.Replace(sampleYAML, "kind: torus-2d", "kind: dragonfly", 1),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(text))
			require.Error(t, err)
		})
	}
}

func TestDescriptorMismatch(t *testing.T) {
	// A fat-tree's node count is derived from its arity; a contradicting
	// explicit count must be rejected.
	topo := Topology{Kind: "fat-tree", Arity: 4, Nodes: 10}
	_, err := topo.Descriptor()
	require.Error(t, err)

	topo.Nodes = 16
	desc, err := topo.Descriptor()
	require.NoError(t, err)
	require.Equal(t, 16, desc.Nodes)
}

type collector struct {
	results []*report.Result
}

func (c *collector) Report(r *report.Result) error {
	c.results = append(c.results, r)
	return nil
}

func TestRun(t *testing.T) {
	cfg, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	var sink collector
	require.NoError(t, Run(cfg, &sink))
	require.Len(t, sink.results, 4)

	runID := sink.results[0].RunID
	require.NotEmpty(t, runID)
	expectedAlgs := map[string]string{
		"broadcast": "binomial",
		"reduce":    "tree",
		"allreduce": "recursive-doubling",
		"allgather": "ring",
	}
	operations := []string{"broadcast", "reduce", "allreduce", "allgather"}
	for i, r := range sink.results {
		require.Equal(t, operations[i], r.Operation)
		require.Equal(t, expectedAlgs[r.Operation], r.Algorithm)
		require.Equal(t, runID, r.RunID)
		require.Equal(t, 8, r.Nodes)
		require.Greater(t, r.Seconds, 0.0)
	}
}
