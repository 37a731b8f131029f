package store

import (
	"epic.dev/node/chainhash"
	"epic.dev/node/core"
)

// DifficultyIterAll walks backward from a starting header yielding every
// ancestor regardless of PoW type, with no header_info fix-up quirk
// (each HeaderInfo reports its own header's timestamp and the difficulty
// that header added over its immediate predecessor, or its full total
// when it has none).
// Grounded on store.rs's DifficultyIterAll.
type DifficultyIterAll struct {
	src  ChainSource
	cur  chainhash.Hash
	done bool
	err  error
}

// NewDifficultyIterAll starts an unfiltered walk from start.
func NewDifficultyIterAll(src ChainSource, start chainhash.Hash) *DifficultyIterAll {
	return &DifficultyIterAll{src: src, cur: start}
}

// Next returns the next ancestor, or (zero, false) at genesis or on error.
func (it *DifficultyIterAll) Next() (core.HeaderInfo, bool) {
	if it.done || it.cur.IsZero() {
		return core.HeaderInfo{}, false
	}

	hash := it.cur
	h, err := getHeader(it.src, hash)
	if err != nil {
		it.err = err
		it.done = true
		return core.HeaderInfo{}, false
	}
	it.cur = h.PrevHash
	info := core.HeaderInfoFrom(h, hash)
	if !h.PrevHash.IsZero() {
		p, err := getHeader(it.src, h.PrevHash)
		if err != nil {
			it.err = err
			it.done = true
			return core.HeaderInfo{}, false
		}
		info.Difficulty = h.TotalDifficulty.Sub(p.TotalDifficulty)
	}
	return info, true
}

// Err returns the error that stopped iteration, if any.
func (it *DifficultyIterAll) Err() error {
	return it.err
}
