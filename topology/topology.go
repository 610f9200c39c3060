// Package topology describes interconnect shapes (flat, binomial,
// k-ary fat-tree, 2D/3D torus) and computes neighbor relationships as
// pure arithmetic over (rank, group size, parameters).
//
// Every rank in a group must hold an identical Descriptor: two ranks
// may never compute a different neighbor set for the same logical
// edge.
package topology

import "fmt"

// Kind enumerates the supported interconnect shapes.
type Kind int

const (
	// Flat is a single switch connecting every node pair directly.
	Flat Kind = iota
	// Binomial is a hypercube-style structure used by tree
	// collectives; node distance is the Hamming distance.
	Binomial
	// FatTree is a k-ary fat-tree with core, aggregation and edge
	// tiers.
	FatTree
	// Torus2D is a 2D mesh with optional wrap-around links.
	Torus2D
	// Torus3D is a 3D mesh with optional wrap-around links.
	Torus3D
)

func (k Kind) String() string {
	switch k {
	case Flat:
		return "flat"
	case Binomial:
		return "binomial"
	case FatTree:
		return "fat-tree"
	case Torus2D:
		return "torus-2d"
	case Torus3D:
		return "torus-3d"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// A Descriptor is a structural description of an interconnect.
// It is a value type; copies are always consistent.
type Descriptor struct {
	Kind  Kind
	Nodes int

	// Arity is the k parameter of a k-ary fat-tree.
	Arity int

	// Torus dimensions. DimZ is 1 for a 2D torus.
	DimX, DimY, DimZ int

	// Wrap enables the torus wrap-around links.
	Wrap bool
}

// NewFlat creates a flat topology over n nodes.
func NewFlat(n int) Descriptor {
	return Descriptor{Kind: Flat, Nodes: n}
}

// NewBinomial creates a binomial (hypercube) topology over n nodes.
func NewBinomial(n int) Descriptor {
	return Descriptor{Kind: Binomial, Nodes: n}
}

// NewFatTree creates a k-ary fat-tree. The compute node count is
// k^3/4: k pods, k/2 edge switches per pod, k/2 nodes per edge switch.
func NewFatTree(k int) Descriptor {
	return Descriptor{Kind: FatTree, Nodes: k * k * k / 4, Arity: k}
}

// NewTorus2D creates a dimX x dimY torus.
func NewTorus2D(dimX, dimY int, wrap bool) Descriptor {
	return Descriptor{Kind: Torus2D, Nodes: dimX * dimY, DimX: dimX, DimY: dimY, DimZ: 1, Wrap: wrap}
}

// NewTorus3D creates a dimX x dimY x dimZ torus.
func NewTorus3D(dimX, dimY, dimZ int, wrap bool) Descriptor {
	return Descriptor{
		Kind: Torus3D, Nodes: dimX * dimY * dimZ,
		DimX: dimX, DimY: dimY, DimZ: dimZ, Wrap: wrap,
	}
}

// Valid reports whether the descriptor's parameters are coherent.
func (d Descriptor) Valid() bool {
	if d.Nodes < 1 {
		return false
	}
	switch d.Kind {
	case Flat, Binomial:
		return true
	case FatTree:
		return d.Arity >= 2 && d.Arity%2 == 0 && d.Nodes == d.Arity*d.Arity*d.Arity/4
	case Torus2D:
		return d.DimX >= 1 && d.DimY >= 1 && d.Nodes == d.DimX*d.DimY
	case Torus3D:
		return d.DimX >= 1 && d.DimY >= 1 && d.DimZ >= 1 && d.Nodes == d.DimX*d.DimY*d.DimZ
	default:
		return false
	}
}

// Contains reports whether rank is a member of the topology.
func (d Descriptor) Contains(rank int) bool {
	return rank >= 0 && rank < d.Nodes
}

// Distance returns the hop count between two ranks in the physical
// structure. Both ranks must be contained in the topology.
func (d Descriptor) Distance(a, b int) int {
	if !d.Contains(a) || !d.Contains(b) {
		panic("topology: rank out of range")
	}
	if a == b {
		return 0
	}
	switch d.Kind {
	case Flat:
		return 1
	case Binomial:
		return hammingDistance(a, b)
	case FatTree:
		return d.fatTreeDistance(a, b)
	case Torus2D, Torus3D:
		return d.torusDistance(a, b)
	default:
		panic("topology: unknown kind")
	}
}

// Neighbors returns the ranks directly linked to rank in the physical
// structure, in a deterministic order.
func (d Descriptor) Neighbors(rank int) []int {
	if !d.Contains(rank) {
		panic("topology: rank out of range")
	}
	switch d.Kind {
	case Flat:
		res := make([]int, 0, d.Nodes-1)
		for i := 0; i < d.Nodes; i++ {
			if i != rank {
				res = append(res, i)
			}
		}
		return res
	case Binomial:
		var res []int
		for bit := 1; bit < d.Nodes; bit <<= 1 {
			if other := rank ^ bit; other < d.Nodes {
				res = append(res, other)
			}
		}
		return res
	case FatTree:
		// Nodes sharing an edge switch are one switch hop apart.
		var res []int
		edge := d.EdgeSwitchOf(rank)
		for i := 0; i < d.Nodes; i++ {
			if i != rank && d.EdgeSwitchOf(i) == edge {
				res = append(res, i)
			}
		}
		return res
	case Torus2D, Torus3D:
		return d.torusNeighbors(rank)
	default:
		panic("topology: unknown kind")
	}
}

func hammingDistance(a, b int) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count += x & 1
		x >>= 1
	}
	return count
}
