package mining

import (
	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/policy"
	"epic.dev/node/pow"
)

// Chain is the read/write surface the assembler needs from the chain
// store, kept narrow on purpose: everything else (full validation, MMR
// construction) lives behind Consensus/VerifierCache.
type Chain interface {
	HeadHeader() (core.BlockHeader, error)
	HeaderHashAtHeight(height uint64) (chainhash.Hash, error)
	DifficultyIter(start chainhash.Hash, t pow.Type) HeaderInfoIter
	// BottleIter walks back from start for the nearest header (including
	// start itself) stamped with policyByte, returning its bottle table.
	BottleIter(start chainhash.Hash, policyByte uint8) (policy.Policy, bool, error)
	// SetTxHashsetRoots fills in the MMR/txhashset root fields of the
	// candidate block's header from the live txhashset extension,
	// returning a *mining.Error{Kind: KindDuplicateCommitment} if one of
	// the candidate's outputs collides with an existing commitment.
	SetTxHashsetRoots(blk *core.Block) error
}

// HeaderInfoIter is the pull-style iterator shape DifficultyIter/
// DifficultyIterAll expose, abstracted here so the assembler does not
// depend on the store package directly.
type HeaderInfoIter interface {
	Next() (core.HeaderInfo, bool)
	Err() error
}

// Mempool supplies the candidate transactions to include in the block
// being assembled.
type Mempool interface {
	PrepareMineableTransactions(maxWeight uint64) ([]core.Tx, error)
}

// VerifierCache is a cache of kernel signatures/range proofs already
// checked for transactions present in the mempool. The assembler holds
// one as a field, but buildBlock performs no block validation and never
// calls into it.
type VerifierCache interface {
	FilterUnverified(kernels []core.Kernel) []core.Kernel
	MarkVerified(kernels []core.Kernel)
}

// Consensus is the subset of consensus rules the assembler consults,
// matching the contract named in SPEC_FULL.md §6.
type Consensus interface {
	NextDifficulty(powType pow.Type, head core.BlockHeader, samples []DifficultyData) uint64
	NextDifficultyEra1(powType pow.Type, head core.BlockHeader, samples []DifficultyData) uint64
	// NextPolicy picks the PoW algorithm the next block mines under and
	// the bottle table it leaves behind, given the bottle table found at
	// policyByte (nil if BottleIter found none).
	NextPolicy(policyByte uint8, bottles policy.Policy) (pow.Type, policy.Policy)
	RewardAtHeight(height uint64) uint64
	IsFoundationHeight(height uint64) bool
	GetEmittedPolicy(height uint64) uint8
	DifficultyFixHeight() uint64
	RxCurrentSeedHeight(height uint64) uint64
	CoinbaseMaturity() uint64
}

// DifficultyData mirrors consensus.DifficultyData, redeclared here so
// mining.Consensus does not force every implementation to import the
// consensus package's internal sample shape directly.
type DifficultyData struct {
	Timestamp  int64
	Difficulty pow.Difficulty
}

// Coinbase is the wallet coinbase-building collaborator: build a regular
// coinbase, or burn the reward locally when no wallet is configured.
type Coinbase interface {
	BuildCoinbase(fees core.BlockFees) (core.CbData, error)
	BuildFoundation(fees core.BlockFees) (core.CbData, error)
	BurnEnabled() bool
}
