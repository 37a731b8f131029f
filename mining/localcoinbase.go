package mining

import "epic.dev/node/core"

// LocalCoinbase is the no-wallet Coinbase collaborator: normal rewards
// are burned (BurnEnabled reports true so the assembler never calls
// BuildCoinbase on it), while foundation-height rewards are served from a
// preloaded output, matching mine_block.rs's load_foundation_output path
// used when a node mines without a wallet attached.
type LocalCoinbase struct {
	Consensus        Consensus
	FoundationOutput core.Output
	FoundationKernel core.Kernel
}

var _ Coinbase = (*LocalCoinbase)(nil)

func (l *LocalCoinbase) BurnEnabled() bool { return true }

// BuildCoinbase is never called by the assembler when BurnEnabled is
// true, but is implemented for interface completeness and direct tests.
func (l *LocalCoinbase) BuildCoinbase(fees core.BlockFees) (core.CbData, error) {
	reward := l.Consensus.RewardAtHeight(fees.Height) + fees.Fees
	return core.CbData{Output: core.Output{Payload: encodeBurnMarker(reward)}}, nil
}

// BuildFoundation returns the preloaded foundation output/kernel
// unmodified; the foundation reward amount is fixed by the foundation
// wallet's own output, not recomputed here.
func (l *LocalCoinbase) BuildFoundation(fees core.BlockFees) (core.CbData, error) {
	return core.CbData{Output: l.FoundationOutput, Kernel: l.FoundationKernel}, nil
}
