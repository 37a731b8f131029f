package mining

import (
	"epic.dev/node/consensus"
	"epic.dev/node/core"
	"epic.dev/node/policy"
	"epic.dev/node/pow"
)

// ConsensusAdapter adapts the free functions in package consensus to the
// mining.Consensus interface, so the assembler never imports consensus
// directly and stays testable against a fake Consensus implementation.
type ConsensusAdapter struct{}

var _ Consensus = ConsensusAdapter{}

func windowTargetSeconds() int64 {
	cfg := consensus.Current()
	return cfg.BlockTimeSec * int64(cfg.DifficultyAdjustWindow)
}

// toConsensusSamples turns the assembler's newest-first ancestor samples
// into the oldest-first window consensus.NextDifficulty expects, keeping
// only the DifficultyAdjustWindow most recent samples.
func toConsensusSamples(samples []DifficultyData) []consensus.DifficultyData {
	n := len(samples)
	if w := int(consensus.Current().DifficultyAdjustWindow); w > 0 && n > w {
		n = w
	}
	out := make([]consensus.DifficultyData, n)
	for i := 0; i < n; i++ {
		s := samples[n-1-i]
		out[i] = consensus.DifficultyData{Timestamp: s.Timestamp, Difficulty: s.Difficulty}
	}
	return out
}

func (ConsensusAdapter) NextDifficulty(powType pow.Type, head core.BlockHeader, samples []DifficultyData) uint64 {
	return consensus.NextDifficulty(powType, windowTargetSeconds(), toConsensusSamples(samples))
}

func (ConsensusAdapter) NextDifficultyEra1(powType pow.Type, head core.BlockHeader, samples []DifficultyData) uint64 {
	return consensus.NextDifficultyEra1(powType, windowTargetSeconds(), toConsensusSamples(samples))
}

func (ConsensusAdapter) NextPolicy(policyByte uint8, bottles policy.Policy) (pow.Type, policy.Policy) {
	return consensus.NextPolicy(policyByte, bottles)
}

func (ConsensusAdapter) RewardAtHeight(height uint64) uint64 {
	return consensus.RewardAtHeight(height)
}

func (ConsensusAdapter) IsFoundationHeight(height uint64) bool {
	return consensus.IsFoundationHeight(height)
}

func (ConsensusAdapter) GetEmittedPolicy(height uint64) uint8 {
	return consensus.GetEmittedPolicy(height)
}

func (ConsensusAdapter) DifficultyFixHeight() uint64 {
	return consensus.DifficultyFixHeight()
}

func (ConsensusAdapter) RxCurrentSeedHeight(height uint64) uint64 {
	return consensus.RxCurrentSeedHeight(height)
}

func (ConsensusAdapter) CoinbaseMaturity() uint64 {
	return consensus.CoinbaseMaturity()
}
