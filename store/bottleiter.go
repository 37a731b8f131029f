package store

import (
	"epic.dev/node/chainhash"
	"epic.dev/node/policy"
)

// bottleSearchLimit bounds how far BottleIter walks back looking for the
// nearest ancestor stamped with a given policy epoch, carried over
// verbatim from store.rs's limit_search = 200.
const bottleSearchLimit = 200

// BottleIter walks backward from a starting header looking for the
// nearest ancestor whose policy selector (BlockHeader.PolicyByte) matches
// the target policy epoch, returning its bottle vector, and gives up
// after bottleSearchLimit ancestors. Grounded on store.rs's BottleIter:
// the starting header itself is checked first (its own bottles are
// yielded directly if its policy already matches), and only then does
// the scan walk ancestors looking for the nearest matching one.
type BottleIter struct {
	src    ChainSource
	policy uint8
	cur    chainhash.Hash
}

// NewBottleIter starts a bottle search from start, looking for the
// nearest header (including start itself) stamped with policy.
func NewBottleIter(src ChainSource, start chainhash.Hash, policy uint8) *BottleIter {
	return &BottleIter{src: src, policy: policy, cur: start}
}

// Find returns the bottle vector of the nearest header (start itself, or
// an ancestor within bottleSearchLimit steps) whose policy selector
// matches the target. ok is false if no such header was found within the
// search limit or genesis was reached first.
func (it *BottleIter) Find() (p policy.Policy, ok bool, err error) {
	h, err := getHeader(it.src, it.cur)
	if err != nil {
		return nil, false, err
	}
	if h.PolicyByte == it.policy {
		return h.Bottles, true, nil
	}

	cur := h.PrevHash
	for i := 0; i < bottleSearchLimit; i++ {
		if cur.IsZero() {
			return nil, false, nil
		}
		anc, err := getHeader(it.src, cur)
		if err != nil {
			return nil, false, err
		}
		if anc.PolicyByte == it.policy {
			return anc.Bottles, true, nil
		}
		cur = anc.PrevHash
	}
	return nil, false, nil
}
