package simulator

// A ConnMat is a connectivity matrix.
//
// Entries in the matrix indicate a transfer rate from a source port
// (row) to a destination port (column).
type ConnMat struct {
	numPorts int
	rates    []float64
}

// NewConnMat creates an all-zero connection matrix.
func NewConnMat(numPorts int) *ConnMat {
	return &ConnMat{
		numPorts: numPorts,
		rates:    make([]float64, numPorts*numPorts),
	}
}

// NumPorts returns the number of ports.
func (c *ConnMat) NumPorts() int {
	return c.numPorts
}

// Get an entry in the matrix.
func (c *ConnMat) Get(src, dst int) float64 {
	if src < 0 || dst < 0 || src >= c.numPorts || dst >= c.numPorts {
		panic("index out of bounds")
	}
	return c.rates[src*c.numPorts+dst]
}

// Set an entry in the matrix.
func (c *ConnMat) Set(src, dst int, value float64) {
	if src < 0 || dst < 0 || src >= c.numPorts || dst >= c.numPorts {
		panic("index out of bounds")
	}
	c.rates[src*c.numPorts+dst] = value
}

// SumDest sums a column of the matrix.
func (c *ConnMat) SumDest(dst int) float64 {
	if dst < 0 || dst >= c.numPorts {
		panic("index out of bounds")
	}
	var sum float64
	for i := 0; i < c.numPorts; i++ {
		sum += c.Get(i, dst)
	}
	return sum
}

// SumSource sums a row of the matrix.
func (c *ConnMat) SumSource(src int) float64 {
	if src < 0 || src >= c.numPorts {
		panic("index out of bounds")
	}
	var sum float64
	for i := 0; i < c.numPorts; i++ {
		sum += c.Get(src, i)
	}
	return sum
}

// ScaleDest scales a column of the matrix.
func (c *ConnMat) ScaleDest(dst int, scale float64) {
	if dst < 0 || dst >= c.numPorts {
		panic("index out of bounds")
	}
	for i := 0; i < c.numPorts; i++ {
		c.Set(i, dst, c.Get(i, dst)*scale)
	}
}

// ScaleSource scales a row of the matrix.
func (c *ConnMat) ScaleSource(src int, scale float64) {
	if src < 0 || src >= c.numPorts {
		panic("index out of bounds")
	}
	for i := 0; i < c.numPorts; i++ {
		c.Set(src, i, c.Get(src, i)*scale)
	}
}
