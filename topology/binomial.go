package topology

// Binomial tree arithmetic over a rotated rank numbering: the root
// occupies logical position 0 and the structure doubles each round.
// Logical rank v receives in the round equal to the position of its
// highest set bit, from the parent obtained by clearing that bit.

// VirtualRank rotates rank so that root maps to logical position 0.
func VirtualRank(rank, root, n int) int {
	return (rank - root + n) % n
}

// AbsoluteRank inverts VirtualRank.
func AbsoluteRank(vrank, root, n int) int {
	return (vrank + root) % n
}

// BinomialRounds returns ceil(log2(n)), the number of rounds a
// binomial broadcast over n ranks takes.
func BinomialRounds(n int) int {
	rounds := 0
	for (1 << rounds) < n {
		rounds++
	}
	return rounds
}

// BinomialReceiveRound returns the round in which logical rank vrank
// receives the buffer. The root (vrank 0) holds the data from the
// start and returns -1.
func BinomialReceiveRound(vrank int) int {
	if vrank == 0 {
		return -1
	}
	return highestBit(vrank)
}

// BinomialParent returns the logical parent of vrank: vrank with its
// highest set bit cleared. The root has no parent.
func BinomialParent(vrank int) (parent int, ok bool) {
	if vrank == 0 {
		return 0, false
	}
	return vrank &^ (1 << highestBit(vrank)), true
}

// BinomialChildren returns the logical children of vrank in a group of
// n logical ranks, in the round order the parent serves them.
// Child c = vrank + 2^r exists for every round r with 2^r > vrank and
// c < n.
func BinomialChildren(vrank, n int) []int {
	var children []int
	for bit := nextPowerAbove(vrank); vrank+bit < n; bit <<= 1 {
		children = append(children, vrank+bit)
	}
	return children
}

// highestBit returns the position of the highest set bit of v > 0.
func highestBit(v int) int {
	pos := 0
	for v > 1 {
		v >>= 1
		pos++
	}
	return pos
}

// nextPowerAbove returns the smallest power of two strictly greater
// than v.
func nextPowerAbove(v int) int {
	bit := 1
	for bit <= v {
		bit <<= 1
	}
	return bit
}
