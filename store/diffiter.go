package store

import (
	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/pow"
)

// DifficultyIter walks backward from a starting header, yielding one
// core.HeaderInfo per ancestor that shares the iterator's target PoW
// type. Grounded line-for-line on store.rs's Iterator impl for
// DifficultyIter, including its header_info fix-up quirk: on each Next
// call the difficulty and timestamp are taken from the first header the
// scan examines (regardless of its PoW type), the difficulty being that
// header's total minus its immediate predecessor's (its full total when
// it has none), yet are reported alongside the hash and type of whichever
// same-type header the scan eventually lands on. This is preserved verbatim per
// the Open Question in SPEC_FULL.md §9 rather than "fixed," since
// downstream consensus code depends on the existing behavior.
type DifficultyIter struct {
	src      ChainSource
	target   pow.Type
	cur      chainhash.Hash
	done     bool
	err      error
}

// NewDifficultyIter starts a filtered walk from start, over src (either a
// committed ChainStore or an in-flight StoreBatch).
func NewDifficultyIter(src ChainSource, start chainhash.Hash, target pow.Type) *DifficultyIter {
	return &DifficultyIter{src: src, target: target, cur: start}
}

// Next returns the next ancestor matching the iterator's PoW type, or
// (zero, false) once the walk reaches the zero hash (genesis's prev) or
// an error occurs (retrievable via Err).
func (it *DifficultyIter) Next() (core.HeaderInfo, bool) {
	if it.done || it.cur.IsZero() {
		return core.HeaderInfo{}, false
	}

	first := true
	var prevDifficulty pow.Difficulty
	var prevTimestamp int64

	for {
		hash := it.cur
		h, err := getHeader(it.src, hash)
		if err != nil {
			it.err = err
			it.done = true
			return core.HeaderInfo{}, false
		}

		if first {
			prevDifficulty = h.TotalDifficulty
			if !h.PrevHash.IsZero() {
				p, err := getHeader(it.src, h.PrevHash)
				if err != nil {
					it.err = err
					it.done = true
					return core.HeaderInfo{}, false
				}
				prevDifficulty = h.TotalDifficulty.Sub(p.TotalDifficulty)
			}
			prevTimestamp = h.Timestamp
			first = false
		}

		it.cur = h.PrevHash

		if h.PoWType == it.target {
			info := core.HeaderInfoFrom(h, hash)
			// Carry the first-ancestor snapshot rather than this
			// header's own values, matching store.rs's quirked
			// reporting.
			info.Difficulty = prevDifficulty
			info.Timestamp = prevTimestamp
			return info, true
		}

		if it.cur.IsZero() {
			it.done = true
			return core.HeaderInfo{}, false
		}
	}
}

// Err returns the error that stopped iteration, if any.
func (it *DifficultyIter) Err() error {
	return it.err
}
