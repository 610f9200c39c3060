package collective

import "github.com/hpcsim/topocoll/topology"

// A Step is a single point-to-point transfer in a broadcast schedule.
// Ranks are absolute.
type Step struct {
	From int
	To   int
}

// A Schedule is the deterministic communication plan of a tree
// broadcast: Rounds[k] holds the transfers of round k, all of which
// depend on round k-1 having completed.
type Schedule struct {
	Rounds [][]Step
}

// BinomialSchedule computes the binomial-tree broadcast schedule for a
// group of n ranks rooted at root. In round k every logical rank below
// 2^k that has the buffer forwards it to its child at logical distance
// 2^k, so the set of ranks holding the data doubles each round.
func BinomialSchedule(root, n int) Schedule {
	rounds := make([][]Step, 0, topology.BinomialRounds(n))
	for bit := 1; bit < n; bit <<= 1 {
		var steps []Step
		for v := 0; v < bit && v+bit < n; v++ {
			steps = append(steps, Step{
				From: topology.AbsoluteRank(v, root, n),
				To:   topology.AbsoluteRank(v+bit, root, n),
			})
		}
		rounds = append(rounds, steps)
	}
	return Schedule{Rounds: rounds}
}

// NumRounds returns the number of rounds in the schedule.
func (s Schedule) NumRounds() int {
	return len(s.Rounds)
}

// NumTransfers returns the total number of point-to-point transfers.
func (s Schedule) NumTransfers() int {
	total := 0
	for _, round := range s.Rounds {
		total += len(round)
	}
	return total
}

// ChunkSizes splits count elements into at most chunks pieces whose
// sizes sum to count and differ by at most one element. Chunks beyond
// count are dropped rather than left empty.
func ChunkSizes(count, chunks int) []int {
	if count <= 0 {
		return nil
	}
	if chunks < 1 {
		chunks = 1
	}
	if chunks > count {
		chunks = count
	}
	sizes := make([]int, chunks)
	base := count / chunks
	extra := count % chunks
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}
