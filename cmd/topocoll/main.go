// Command topocoll benchmarks and simulates topology-aware collective
// operations: bench sweeps a grid of node counts and vector sizes,
// scenario replays a YAML schedule on a modeled interconnect, and
// measure estimates link characteristics.
package main

import (
	"github.com/unixpickle/essentials"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		essentials.Die(err)
	}
}
