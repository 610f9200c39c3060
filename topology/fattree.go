package topology

// Fat-tree layout: compute nodes are numbered pod-major, then edge
// switch, then position under the edge switch. A k-ary fat-tree has
// k pods, k/2 edge switches per pod and k/2 compute nodes per edge
// switch.

// NodesPerEdge returns how many compute nodes hang off one edge
// switch.
func (d Descriptor) NodesPerEdge() int {
	return d.Arity / 2
}

// NodesPerPod returns how many compute nodes one pod holds.
func (d Descriptor) NodesPerPod() int {
	return (d.Arity / 2) * (d.Arity / 2)
}

// PodOf returns the pod index of a compute node.
func (d Descriptor) PodOf(rank int) int {
	if d.Kind != FatTree {
		panic("topology: not a fat-tree")
	}
	if !d.Contains(rank) {
		panic("topology: rank out of range")
	}
	return rank / d.NodesPerPod()
}

// EdgeSwitchOf returns the global edge switch index of a compute node.
func (d Descriptor) EdgeSwitchOf(rank int) int {
	if d.Kind != FatTree {
		panic("topology: not a fat-tree")
	}
	if !d.Contains(rank) {
		panic("topology: rank out of range")
	}
	return rank / d.NodesPerEdge()
}

// fatTreeDistance counts switch traversal hops: 2 within one edge
// switch, 4 within one pod (edge-aggregation-edge), 6 across pods
// (up to the core tier and back down).
func (d Descriptor) fatTreeDistance(a, b int) int {
	switch {
	case d.EdgeSwitchOf(a) == d.EdgeSwitchOf(b):
		return 2
	case d.PodOf(a) == d.PodOf(b):
		return 4
	default:
		return 6
	}
}
