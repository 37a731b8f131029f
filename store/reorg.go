package store

import (
	"fmt"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
)

// ReorgTo repoints HEAD at newTip, whose header (and every header between
// it and the common ancestor with the current HEAD) must already be
// stored. It opens its own batch, walks back to find the fork point with
// findForkPoint, deletes the now-orphaned bodies/sums/bitmaps on the old
// branch, repoints HEAD, and commits. Grounded on the teacher's
// node/store/reorg.go ReorgToTip/findForkPoint, supplementing spec.md
// (which describes only the read-side iterators a reorg driver would
// use) with the write-side primitive that driver needs — the original
// chain's store carries an equivalent operation.
func (s *ChainStore) ReorgTo(newTip core.Tip) error {
	b, err := s.Batch()
	if err != nil {
		return err
	}

	if err := reorgTo(b, newTip); err != nil {
		_ = b.Abandon()
		return err
	}
	return b.Commit()
}

func reorgTo(b *StoreBatch, newTip core.Tip) error {
	curTip, err := getTip(b, PointerKey(PrefixHead))
	if err != nil && !IsNotFound(err) {
		return err
	}

	// Uninitialized store: nothing to fork from, HEAD just becomes newTip.
	if IsNotFound(err) {
		return b.SaveHead(newTip)
	}

	fork, err := findForkPoint(b, curTip.LastBlockHash, newTip.LastBlockHash)
	if err != nil {
		return fmt.Errorf("store: find fork point: %w", err)
	}

	old := curTip.LastBlockHash
	for old != fork && !old.IsZero() {
		h, err := b.GetBlockHeader(old)
		if err != nil {
			return fmt.Errorf("store: walk old branch: %w", err)
		}
		if err := b.DeleteBlock(old); err != nil {
			return err
		}
		if err := b.DeleteBlockSums(old); err != nil {
			return err
		}
		if err := b.DeleteBlockInputBitmap(old); err != nil {
			return err
		}
		old = h.PrevHash
	}

	return b.SaveHead(newTip)
}

// findForkPoint walks a and b back to equal height, then walks both in
// lockstep until their hashes agree, returning the common ancestor hash.
func findForkPoint(b *StoreBatch, a, other chainhash.Hash) (chainhash.Hash, error) {
	ha, err := b.GetBlockHeader(a)
	if err != nil {
		return chainhash.Hash{}, err
	}
	hb, err := b.GetBlockHeader(other)
	if err != nil {
		return chainhash.Hash{}, err
	}

	for ha.Height > hb.Height {
		a = ha.PrevHash
		ha, err = b.GetBlockHeader(a)
		if err != nil {
			return chainhash.Hash{}, err
		}
	}
	for hb.Height > ha.Height {
		other = hb.PrevHash
		hb, err = b.GetBlockHeader(other)
		if err != nil {
			return chainhash.Hash{}, err
		}
	}

	for a != other {
		if a.IsZero() || other.IsZero() {
			return chainhash.ZeroHash, nil
		}
		a = ha.PrevHash
		other = hb.PrevHash
		ha, err = b.GetBlockHeader(a)
		if err != nil {
			return chainhash.Hash{}, err
		}
		hb, err = b.GetBlockHeader(other)
		if err != nil {
			return chainhash.Hash{}, err
		}
	}
	return a, nil
}
