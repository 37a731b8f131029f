package store

import (
	"epic.dev/node/chainhash"
	"epic.dev/node/core"
)

// StoreBatch is a ChainStore-scoped mutation set: a typed wrapper around
// the lower-level Batch overlay, exposing the save/delete operations
// store.rs's Batch impl provides. The root StoreBatch holds the
// ChainStore's mutex for its whole lifetime (single outstanding mutating
// batch), released on Commit or Abandon.
type StoreBatch struct {
	store  *ChainStore
	batch  *Batch
	unlock func() // nil on a child batch
}

func (b *StoreBatch) getRaw(key []byte) ([]byte, bool, error) {
	return b.batch.GetRaw(key)
}

// PutRaw stages a raw write, bypassing the typed accessors above. Exposed
// for store-internal tooling and tests that need to exercise the codec's
// failure paths directly.
func (b *StoreBatch) PutRaw(key, value []byte) error {
	return b.batch.PutRaw(key, value)
}

// Child opens a nested batch whose writes merge into b only when its own
// Commit is called.
func (b *StoreBatch) Child() *StoreBatch {
	return &StoreBatch{store: b.store, batch: b.batch.Child()}
}

// Commit flushes this batch (and, at the root, the underlying bbolt
// transaction) and releases the store mutex if this was the root batch.
func (b *StoreBatch) Commit() error {
	err := b.batch.Commit()
	if b.unlock != nil {
		b.unlock()
	}
	return err
}

// Abandon discards this batch's pending writes and releases the store
// mutex if this was the root batch.
func (b *StoreBatch) Abandon() error {
	err := b.batch.Abandon()
	if b.unlock != nil {
		b.unlock()
	}
	return err
}

// --- pointer records ---

// SaveHead sets the current chain tip.
func (b *StoreBatch) SaveHead(t core.Tip) error {
	return b.batch.PutRaw(PointerKey(PrefixHead), encodeTip(t))
}

// SaveBodyHead is an alias retained from the original naming
// (save_body_head): the body chain's head, distinct from the
// header-only chain's head during header-first sync. Stored under the
// same HEAD pointer as SaveHead once body sync catches up to headers.
func (b *StoreBatch) SaveBodyHead(t core.Tip) error {
	return b.SaveHead(t)
}

// SaveBodyTail sets the oldest retained body tip.
func (b *StoreBatch) SaveBodyTail(t core.Tip) error {
	return b.batch.PutRaw(PointerKey(PrefixTail), encodeTip(t))
}

// SaveHeaderHead sets the tip of the header-only chain.
func (b *StoreBatch) SaveHeaderHead(t core.Tip) error {
	return b.batch.PutRaw(PointerKey(PrefixHeaderHead), encodeTip(t))
}

// SaveSyncHead sets the tip currently being synced toward.
func (b *StoreBatch) SaveSyncHead(t core.Tip) error {
	return b.batch.PutRaw(PointerKey(PrefixSyncHead), encodeTip(t))
}

// ResetSyncHead clears the sync-head pointer, restarting it from the
// current HEADER_HEAD, matching store.rs's reset_sync_head.
func (b *StoreBatch) ResetSyncHead() error {
	t, err := getTip(b, PointerKey(PrefixHeaderHead))
	if err != nil {
		return err
	}
	return b.SaveSyncHead(t)
}

// ResetHeaderHead resets HEADER_HEAD back to the current body HEAD,
// matching store.rs's reset_header_head (used when header sync is
// abandoned in favor of the already-validated body chain).
func (b *StoreBatch) ResetHeaderHead() error {
	t, err := getTip(b, PointerKey(PrefixHead))
	if err != nil {
		return err
	}
	return b.SaveHeaderHead(t)
}

// --- blocks and headers ---

// SaveBlock persists a full block body (and implicitly its header, since
// the header is re-derivable from Block.Header; callers still call
// SaveBlockHeader separately to keep header-only sync independent of body
// storage per §3 Lifecycles). Per §4.D's save_block contract, the input
// bitmap is derived from blk's inputs and persisted before the block
// body itself, so GetBlockInputBitmap never has to fall back to a
// rebuild for a block saved through this path.
func (b *StoreBatch) SaveBlock(blk core.Block, hash chainhash.Hash) error {
	bm, err := buildInputBitmapForInputs(b, blk.Inputs)
	if err != nil {
		return err
	}
	if err := b.SaveBlockInputBitmap(hash, bm); err != nil {
		return err
	}
	return b.batch.PutRaw(Key(PrefixBlock, hash.Bytes()), encodeBlock(blk))
}

// DeleteBlock removes a stored block body (but never its header, which
// may still be needed by header-only chain consumers).
func (b *StoreBatch) DeleteBlock(hash chainhash.Hash) error {
	return b.batch.DeleteRaw(Key(PrefixBlock, hash.Bytes()))
}

// SaveBlockHeader persists a header independently of any body.
func (b *StoreBatch) SaveBlockHeader(h core.BlockHeader, hash chainhash.Hash) error {
	return b.batch.PutRaw(Key(PrefixHeader, hash.Bytes()), encodeHeader(h))
}

// GetBlockHeader reads a header visible through this batch's overlay
// chain (its own pending writes, its ancestors', then the committed
// store).
func (b *StoreBatch) GetBlockHeader(hash chainhash.Hash) (core.BlockHeader, error) {
	return getHeader(b, hash)
}

// GetBlock reads a block body visible through this batch.
func (b *StoreBatch) GetBlock(hash chainhash.Hash) (core.Block, error) {
	v, ok, err := b.getRaw(Key(PrefixBlock, hash.Bytes()))
	if err := OptionToNotFound(ok, err, "block "+hash.String()); err != nil {
		return core.Block{}, err
	}
	return decodeBlock(v)
}

// --- commit-pos index ---

// SaveOutputPos records the MMR position an output commitment was placed
// at.
func (b *StoreBatch) SaveOutputPos(commitment [33]byte, pos uint64) error {
	return b.batch.PutRaw(Key(PrefixOutputPos, commitment[:]), encodeOutputPos(pos))
}

// GetOutputPos reads an output position visible through this batch.
func (b *StoreBatch) GetOutputPos(commitment [33]byte) (uint64, error) {
	v, ok, err := b.getRaw(Key(PrefixOutputPos, commitment[:]))
	if err := OptionToNotFound(ok, err, "output pos"); err != nil {
		return 0, err
	}
	return decodeOutputPos(v)
}

// ClearOutputPos removes every entry under the output-pos prefix,
// skipping (never aborting on) any entry whose value fails to decode as
// a position — the §9 Open Question resolution carried verbatim from
// store.rs's clear_output_pos.
func (b *StoreBatch) ClearOutputPos() error {
	lower := PointerKey(PrefixOutputPos)
	upper := PrefixBound(PrefixOutputPos)
	var keys [][]byte
	err := b.batch.Iter(lower, upper, func(k, v []byte) (bool, error) {
		if _, decErr := decodeOutputPos(v); decErr != nil {
			return true, nil
		}
		keys = append(keys, append([]byte(nil), k...))
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.batch.DeleteRaw(k); err != nil {
			return err
		}
	}
	return nil
}

// --- block sums ---

// SaveBlockSums persists the commitment sums for hash.
func (b *StoreBatch) SaveBlockSums(hash chainhash.Hash, sums core.BlockSums) error {
	return b.batch.PutRaw(Key(PrefixBlockSums, hash.Bytes()), encodeBlockSums(sums))
}

// GetBlockSums reads block sums visible through this batch.
func (b *StoreBatch) GetBlockSums(hash chainhash.Hash) (core.BlockSums, error) {
	v, ok, err := b.getRaw(Key(PrefixBlockSums, hash.Bytes()))
	if err := OptionToNotFound(ok, err, "block sums "+hash.String()); err != nil {
		return core.BlockSums{}, err
	}
	return decodeBlockSums(v)
}

// DeleteBlockSums removes the stored sums for hash, mirroring store.rs's
// delete_block_sums (used when rewinding past a block during a reorg).
func (b *StoreBatch) DeleteBlockSums(hash chainhash.Hash) error {
	return b.batch.DeleteRaw(Key(PrefixBlockSums, hash.Bytes()))
}

// --- input bitmaps ---

// SaveBlockInputBitmap persists a precomputed input bitmap for hash.
func (b *StoreBatch) SaveBlockInputBitmap(hash chainhash.Hash, bm *InputBitmap) error {
	data, err := bm.Marshal()
	if err != nil {
		return err
	}
	return b.batch.PutRaw(Key(PrefixInputBitmap, hash.Bytes()), data)
}

// DeleteBlockInputBitmap removes the stored bitmap for hash.
func (b *StoreBatch) DeleteBlockInputBitmap(hash chainhash.Hash) error {
	return b.batch.DeleteRaw(Key(PrefixInputBitmap, hash.Bytes()))
}

// GetBlockInputBitmap returns the bitmap for hash visible through this
// batch, building and storing it from the block's inputs if absent
// (build_and_store_block_input_bitmap in store.rs).
func (b *StoreBatch) GetBlockInputBitmap(hash chainhash.Hash) (*InputBitmap, error) {
	v, ok, err := b.getRaw(Key(PrefixInputBitmap, hash.Bytes()))
	if err != nil {
		return nil, err
	}
	if ok {
		return UnmarshalInputBitmap(v)
	}
	return b.buildAndStoreBlockInputBitmap(hash)
}

func (b *StoreBatch) buildAndStoreBlockInputBitmap(hash chainhash.Hash) (*InputBitmap, error) {
	bm, err := buildInputBitmapFromSource(b, hash)
	if err != nil {
		return nil, err
	}
	if err := b.SaveBlockInputBitmap(hash, bm); err != nil {
		return nil, err
	}
	return bm, nil
}
