package collective

import "github.com/hpcsim/topocoll/netchar"

// A CostModel predicts collective completion times from the alpha-beta
// link model: sending m bytes costs Alpha + Beta*m seconds.
type CostModel struct {
	// Alpha is the per-message startup cost in seconds.
	Alpha float64

	// Beta is the per-byte transfer cost in seconds.
	Beta float64
}

// ModelFromCharacteristics derives a cost model from the mean link
// latency and bandwidth of the network characteristics.
func ModelFromCharacteristics(c *netchar.Characteristics) CostModel {
	model := CostModel{Alpha: 1e-6, Beta: 8 / 1e9}
	if c == nil {
		return model
	}
	if lat := c.MeanLatency(); lat > 0 {
		model.Alpha = lat * 1e-6
	}
	if bw := c.MeanBandwidth(); bw > 0 {
		model.Beta = 8 / (bw * 1e6)
	}
	return model
}

// BinomialTime predicts the completion time of a binomial-tree
// broadcast of the given byte count: every one of the ceil(log2(N))
// rounds pays full message latency and transfer time.
func (m CostModel) BinomialTime(n int, bytes float64) float64 {
	if n <= 1 {
		return 0
	}
	rounds := 0
	for (1 << rounds) < n {
		rounds++
	}
	return float64(rounds) * (m.Alpha + m.Beta*bytes)
}

// PipelineTime predicts the completion time of a chunked relay-chain
// broadcast: the last chunk leaves the root after chunks-1 relay
// slots and then traverses the n-1 link chain.
func (m CostModel) PipelineTime(n int, bytes float64, chunks int) float64 {
	if n <= 1 {
		return 0
	}
	if chunks < 1 {
		chunks = 1
	}
	chunkBytes := bytes / float64(chunks)
	slots := float64(n - 1 + chunks - 1)
	return slots * (m.Alpha + m.Beta*chunkBytes)
}
