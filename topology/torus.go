package topology

// TorusCoords converts a rank to its (x, y, z) position. For a 2D
// torus z is always 0.
func (d Descriptor) TorusCoords(rank int) (x, y, z int) {
	if d.Kind != Torus2D && d.Kind != Torus3D {
		panic("topology: not a torus")
	}
	if !d.Contains(rank) {
		panic("topology: rank out of range")
	}
	x = rank % d.DimX
	y = (rank / d.DimX) % d.DimY
	z = rank / (d.DimX * d.DimY)
	return
}

// TorusRank converts coordinates back to a rank.
func (d Descriptor) TorusRank(x, y, z int) int {
	return x + y*d.DimX + z*d.DimX*d.DimY
}

func (d Descriptor) torusNeighbors(rank int) []int {
	x, y, z := d.TorusCoords(rank)
	dims := [3]int{d.DimX, d.DimY, d.DimZ}
	coords := [3]int{x, y, z}

	numDims := 2
	if d.Kind == Torus3D {
		numDims = 3
	}

	var res []int
	for dim := 0; dim < numDims; dim++ {
		if dims[dim] < 2 {
			continue
		}
		for _, delta := range [2]int{-1, 1} {
			c := coords
			next := c[dim] + delta
			if next < 0 || next >= dims[dim] {
				if !d.Wrap {
					continue
				}
				next = (next + dims[dim]) % dims[dim]
			}
			c[dim] = next
			neighbor := d.TorusRank(c[0], c[1], c[2])
			if neighbor != rank {
				res = append(res, neighbor)
			}
		}
	}
	return res
}

func (d Descriptor) torusDistance(a, b int) int {
	ax, ay, az := d.TorusCoords(a)
	bx, by, bz := d.TorusCoords(b)
	return d.axisDistance(ax, bx, d.DimX) +
		d.axisDistance(ay, by, d.DimY) +
		d.axisDistance(az, bz, d.DimZ)
}

// axisDistance is the hop count along a single dimension, taking the
// shorter way around when wrap-around links exist.
func (d Descriptor) axisDistance(a, b, dim int) int {
	direct := a - b
	if direct < 0 {
		direct = -direct
	}
	if !d.Wrap || dim == 0 {
		return direct
	}
	wrapped := dim - direct
	if wrapped < direct {
		return wrapped
	}
	return direct
}
