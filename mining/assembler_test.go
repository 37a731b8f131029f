package mining_test

import (
	"testing"

	"github.com/rs/zerolog"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/mining"
	"epic.dev/node/policy"
	"epic.dev/node/pow"
)

type fakeHeaderInfoIter struct {
	items []core.HeaderInfo
	i     int
}

func (it *fakeHeaderInfoIter) Next() (core.HeaderInfo, bool) {
	if it.i >= len(it.items) {
		return core.HeaderInfo{}, false
	}
	v := it.items[it.i]
	it.i++
	return v, true
}

func (it *fakeHeaderInfoIter) Err() error { return nil }

type fakeChain struct {
	head         core.BlockHeader
	setRootsErr  error
	setRootsCall int
}

func (c *fakeChain) HeadHeader() (core.BlockHeader, error) { return c.head, nil }

func (c *fakeChain) HeaderHashAtHeight(height uint64) (chainhash.Hash, error) {
	return chainhash.Hash{byte(height)}, nil
}

func (c *fakeChain) DifficultyIter(start chainhash.Hash, t pow.Type) mining.HeaderInfoIter {
	return &fakeHeaderInfoIter{}
}

func (c *fakeChain) BottleIter(start chainhash.Hash, policyByte uint8) (policy.Policy, bool, error) {
	return policy.New(1, 0, 1), true, nil
}

func (c *fakeChain) SetTxHashsetRoots(blk *core.Block) error {
	c.setRootsCall++
	if c.setRootsCall == 1 && c.setRootsErr != nil {
		return c.setRootsErr
	}
	return nil
}

type fakeMempool struct{}

func (fakeMempool) PrepareMineableTransactions(maxWeight uint64) ([]core.Tx, error) {
	return nil, nil
}

type fakeConsensus struct{}

func (fakeConsensus) NextDifficulty(t pow.Type, head core.BlockHeader, samples []mining.DifficultyData) uint64 {
	return 10
}
func (fakeConsensus) NextDifficultyEra1(t pow.Type, head core.BlockHeader, samples []mining.DifficultyData) uint64 {
	return 5
}
func (fakeConsensus) NextPolicy(policyByte uint8, bottles policy.Policy) (pow.Type, policy.Policy) {
	if bottles == nil {
		bottles = policy.New(1, 0, 1)
	}
	return pow.Cuckatoo, bottles.WithDecrement(pow.Cuckatoo)
}
func (fakeConsensus) RewardAtHeight(height uint64) uint64 { return 1000 }
func (fakeConsensus) IsFoundationHeight(height uint64) bool {
	return height%10 == 0
}
func (fakeConsensus) GetEmittedPolicy(height uint64) uint8 {
	return 0
}
func (fakeConsensus) DifficultyFixHeight() uint64         { return 0 }
func (fakeConsensus) RxCurrentSeedHeight(h uint64) uint64  { return 0 }
func (fakeConsensus) CoinbaseMaturity() uint64             { return 3 }

type fakeCoinbase struct {
	burn bool
	err  error
}

func (c *fakeCoinbase) BurnEnabled() bool { return c.burn }
func (c *fakeCoinbase) BuildCoinbase(fees core.BlockFees) (core.CbData, error) {
	if c.err != nil {
		return core.CbData{}, c.err
	}
	return core.CbData{Output: core.Output{Commitment: [33]byte{1}}}, nil
}
func (c *fakeCoinbase) BuildFoundation(fees core.BlockFees) (core.CbData, error) {
	return core.CbData{Output: core.Output{Commitment: [33]byte{2}}}, nil
}

func newAssembler(chain *fakeChain, cb *fakeCoinbase) *mining.Assembler {
	return &mining.Assembler{
		Chain:     chain,
		Mempool:   fakeMempool{},
		Consensus: fakeConsensus{},
		Coinbase:  cb,
		HashFunc:  chainhash.Blake2b256,
		Logger:    zerolog.Nop(),
	}
}

func TestGetBlockHappyPath(t *testing.T) {
	chain := &fakeChain{head: core.BlockHeader{Height: 10, Timestamp: 1000, TotalDifficulty: pow.Zero()}}
	a := newAssembler(chain, &fakeCoinbase{})

	blk, fees, powType, err := a.GetBlock()
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if blk.Header.Height != 11 {
		t.Fatalf("expected height 11, got %d", blk.Header.Height)
	}
	if fees.Height != 11 {
		t.Fatalf("expected fee height 11, got %d", fees.Height)
	}
	if powType != pow.Cuckatoo {
		t.Fatalf("expected Cuckatoo chosen by the fake policy, got %v", powType)
	}
	if blk.Header.PoWType != powType {
		t.Fatalf("expected header.PoWType to match the returned PoW type")
	}
	if len(blk.Outputs) != 1 {
		t.Fatalf("expected one coinbase output, got %d", len(blk.Outputs))
	}
}

func TestGetBlockRetriesOnDuplicateCommitment(t *testing.T) {
	chain := &fakeChain{
		head:        core.BlockHeader{Height: 10, Timestamp: 1000, TotalDifficulty: pow.Zero()},
		setRootsErr: &mining.Error{Kind: mining.KindDuplicateCommitment, Context: "test"},
	}
	a := newAssembler(chain, &fakeCoinbase{})

	_, _, _, err := a.GetBlock()
	if err != nil {
		t.Fatalf("expected eventual success after retry, got %v", err)
	}
	if chain.setRootsCall != 2 {
		t.Fatalf("expected SetTxHashsetRoots called twice (fail then succeed), got %d", chain.setRootsCall)
	}
}

func TestGetBlockStopsWhenStopped(t *testing.T) {
	chain := &fakeChain{head: core.BlockHeader{Height: 10, Timestamp: 1000, TotalDifficulty: pow.Zero()}}
	a := newAssembler(chain, &fakeCoinbase{})
	a.Stopped = func() bool { return true }

	_, _, _, err := a.GetBlock()
	if err == nil {
		t.Fatalf("expected error when stopped before first attempt")
	}
}

func TestBuildCoinbaseBurnsWhenEnabled(t *testing.T) {
	chain := &fakeChain{head: core.BlockHeader{Height: 10, Timestamp: 1000, TotalDifficulty: pow.Zero()}}
	a := newAssembler(chain, &fakeCoinbase{burn: true})

	blk, _, _, err := a.GetBlock()
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if len(blk.Outputs) != 1 || blk.Outputs[0].Commitment != ([33]byte{}) {
		t.Fatalf("expected a burned (zero-commitment) coinbase output, got %+v", blk.Outputs)
	}
}

func TestGetBlockAddsFoundationCoinbaseWithoutDroppingTheNormalOne(t *testing.T) {
	// head height 9 -> candidate height 10, a foundation height per fakeConsensus.
	chain := &fakeChain{head: core.BlockHeader{Height: 9, Timestamp: 1000, TotalDifficulty: pow.Zero()}}
	a := newAssembler(chain, &fakeCoinbase{})

	blk, _, _, err := a.GetBlock()
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if len(blk.Outputs) != 2 {
		t.Fatalf("expected both the normal and foundation coinbase outputs, got %d", len(blk.Outputs))
	}
	if blk.Outputs[0].Commitment != ([33]byte{1}) {
		t.Fatalf("expected the normal coinbase output first, got %+v", blk.Outputs[0])
	}
	if blk.Outputs[1].Commitment != ([33]byte{2}) {
		t.Fatalf("expected the foundation coinbase output second, got %+v", blk.Outputs[1])
	}
}
