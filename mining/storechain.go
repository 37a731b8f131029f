package mining

import (
	"fmt"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/policy"
	"epic.dev/node/pow"
	"epic.dev/node/store"
)

// StoreChain adapts a *store.ChainStore to the mining.Chain interface the
// assembler consumes, resolving height-indexed lookups by walking
// PrevHash pointers since the store itself only indexes by hash.
type StoreChain struct {
	Store    *store.ChainStore
	HashFunc chainhash.HashFunc
}

var _ Chain = (*StoreChain)(nil)

func (c *StoreChain) HeadHeader() (core.BlockHeader, error) {
	return c.Store.HeadHeader()
}

// HeaderHashAtHeight walks back from HEAD to the header at height,
// recomputing each ancestor's hash with HashFunc as it goes.
func (c *StoreChain) HeaderHashAtHeight(height uint64) (chainhash.Hash, error) {
	head, err := c.Store.HeadHeader()
	if err != nil {
		return chainhash.Hash{}, err
	}
	if height > head.Height {
		return chainhash.Hash{}, fmt.Errorf("mining: height %d is ahead of head %d", height, head.Height)
	}
	cur := head
	curHash := cur.Hash(c.HashFunc)
	for cur.Height > height {
		prev, err := c.Store.GetPreviousHeader(cur)
		if err != nil {
			return chainhash.Hash{}, err
		}
		cur = prev
		curHash = cur.Hash(c.HashFunc)
	}
	return curHash, nil
}

func (c *StoreChain) DifficultyIter(start chainhash.Hash, t pow.Type) HeaderInfoIter {
	return store.NewDifficultyIter(c.Store, start, t)
}

func (c *StoreChain) BottleIter(start chainhash.Hash, policyByte uint8) (policy.Policy, bool, error) {
	return store.NewBottleIter(c.Store, start, policyByte).Find()
}

// SetTxHashsetRoots is the one write-shaped call the assembler makes
// through mining.Chain. Full MMR/txhashset root computation is out of
// scope (Non-goals); this adapter only performs the duplicate-commitment
// check against the committed output-pos index the spec calls out in
// §4.H step 12, returning a *mining.Error{Kind: KindDuplicateCommitment}
// on collision so the assembler's retry loop can classify it without
// reaching into the store package.
func (c *StoreChain) SetTxHashsetRoots(blk *core.Block) error {
	for _, out := range blk.Outputs {
		if _, err := c.Store.GetOutputPos(out.Commitment); err == nil {
			return newError(KindDuplicateCommitment, "output commitment already in txhashset", nil)
		} else if !store.IsNotFound(err) {
			return newError(KindOther, "check output commitment", err)
		}
	}
	return nil
}
