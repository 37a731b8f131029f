package store

import (
	"fmt"
	"sync"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
)

// ChainSource is the common read surface both a committed ChainStore and
// an in-flight StoreBatch expose. DifficultyIter/DifficultyIterAll/
// BottleIter and the plain read accessors are built against this
// interface so the same walking code works whether it is invoked outside
// any batch or from within one under construction — the sum type named
// in SPEC_FULL.md's design notes ({Store} | {Batch}).
type ChainSource interface {
	getRaw(key []byte) ([]byte, bool, error)
}

// ChainStore is the persistent chain store: distinguished pointers (HEAD,
// TAIL, HEADER_HEAD, SYNC_HEAD), headers, bodies, block sums, the
// commit→pos index and its input bitmaps. All mutation goes through a
// Batch obtained from Batch(); reads outside a batch go straight to the
// engine. mu enforces the "only one outstanding mutating batch" rule from
// the concurrency model.
type ChainStore struct {
	mu     sync.RWMutex
	engine Engine
}

// Open opens (or creates) a chain store rooted at dataRoot.
func Open(dataRoot string) (*ChainStore, error) {
	eng, err := OpenBbolt(dataRoot)
	if err != nil {
		return nil, err
	}
	return &ChainStore{engine: eng}, nil
}

// Close releases the underlying engine.
func (s *ChainStore) Close() error {
	return s.engine.Close()
}

func (s *ChainStore) getRaw(key []byte) ([]byte, bool, error) {
	return s.engine.GetRaw(key)
}

// Head returns the current chain tip pointer.
func (s *ChainStore) Head() (core.Tip, error) {
	return getTip(s, PointerKey(PrefixHead))
}

// Tail returns the oldest retained block's tip pointer.
func (s *ChainStore) Tail() (core.Tip, error) {
	return getTip(s, PointerKey(PrefixTail))
}

// HeaderHead returns the tip of the header-only chain (ahead of Head
// during header-first sync).
func (s *ChainStore) HeaderHead() (core.Tip, error) {
	return getTip(s, PointerKey(PrefixHeaderHead))
}

// GetSyncHead returns the tip currently being synced toward.
func (s *ChainStore) GetSyncHead() (core.Tip, error) {
	return getTip(s, PointerKey(PrefixSyncHead))
}

func getTip(src ChainSource, key []byte) (core.Tip, error) {
	v, ok, err := src.getRaw(key)
	if err := OptionToNotFound(ok, err, "tip"); err != nil {
		return core.Tip{}, err
	}
	return decodeTip(v)
}

func encodeTip(t core.Tip) []byte {
	buf := make([]byte, 0, 32+32+8+8*3)
	buf = append(buf, t.LastBlockHash.Bytes()...)
	buf = append(buf, t.PrevBlockHash.Bytes()...)
	buf = append(buf, encodeUint64(t.Height)...)
	buf = append(buf, encodeDifficulty(t.TotalDifficulty)...)
	return buf
}

func decodeTip(b []byte) (core.Tip, error) {
	if len(b) < 32+32+8 {
		return core.Tip{}, fmt.Errorf("decodeTip: truncated")
	}
	last, err := chainhash.FromBytes(b[:32])
	if err != nil {
		return core.Tip{}, err
	}
	prev, err := chainhash.FromBytes(b[32:64])
	if err != nil {
		return core.Tip{}, err
	}
	height, err := decodeUint64(b[64:72])
	if err != nil {
		return core.Tip{}, err
	}
	diff, err := decodeDifficulty(b[72:])
	if err != nil {
		return core.Tip{}, err
	}
	return core.Tip{LastBlockHash: last, PrevBlockHash: prev, Height: height, TotalDifficulty: diff}, nil
}

// HeadHeader returns the full header at the current head.
func (s *ChainStore) HeadHeader() (core.BlockHeader, error) {
	tip, err := s.Head()
	if err != nil {
		return core.BlockHeader{}, err
	}
	return s.GetBlockHeader(tip.LastBlockHash)
}

// GetBlock returns the full block body+header stored under hash.
func (s *ChainStore) GetBlock(hash chainhash.Hash) (core.Block, error) {
	v, ok, err := s.getRaw(Key(PrefixBlock, hash.Bytes()))
	if err := OptionToNotFound(ok, err, "block "+hash.String()); err != nil {
		return core.Block{}, err
	}
	return decodeBlock(v)
}

// BlockExists reports whether a block body is stored under hash.
func (s *ChainStore) BlockExists(hash chainhash.Hash) (bool, error) {
	return s.engine.Exists(Key(PrefixBlock, hash.Bytes()))
}

// GetBlockHeader returns the header stored under hash. Headers outlive
// bodies: a header may exist with no corresponding block (§3 Lifecycles).
func (s *ChainStore) GetBlockHeader(hash chainhash.Hash) (core.BlockHeader, error) {
	return getHeader(s, hash)
}

func getHeader(src ChainSource, hash chainhash.Hash) (core.BlockHeader, error) {
	v, ok, err := src.getRaw(Key(PrefixHeader, hash.Bytes()))
	if err := OptionToNotFound(ok, err, "header "+hash.String()); err != nil {
		return core.BlockHeader{}, err
	}
	h, _, err := decodeHeader(v)
	return h, err
}

// GetPreviousHeader returns the header immediately preceding h.
func (s *ChainStore) GetPreviousHeader(h core.BlockHeader) (core.BlockHeader, error) {
	return s.GetBlockHeader(h.PrevHash)
}

// GetBlockSums returns the stored commitment sums for hash.
func (s *ChainStore) GetBlockSums(hash chainhash.Hash) (core.BlockSums, error) {
	v, ok, err := s.getRaw(Key(PrefixBlockSums, hash.Bytes()))
	if err := OptionToNotFound(ok, err, "block sums "+hash.String()); err != nil {
		return core.BlockSums{}, err
	}
	return decodeBlockSums(v)
}

// GetOutputPos returns the MMR position an output commitment was placed
// at, per the commit→pos index.
func (s *ChainStore) GetOutputPos(commitment [33]byte) (uint64, error) {
	v, ok, err := s.getRaw(Key(PrefixOutputPos, commitment[:]))
	if err := OptionToNotFound(ok, err, "output pos"); err != nil {
		return 0, err
	}
	return decodeOutputPos(v)
}

// GetBlockInputBitmap returns the bitmap for hash, rebuilding it from
// the stored block body (without persisting the rebuild) if it was
// never saved or was deleted independently of the body — mirroring the
// same fallback StoreBatch.GetBlockInputBitmap applies from within a
// batch.
func (s *ChainStore) GetBlockInputBitmap(hash chainhash.Hash) (*InputBitmap, error) {
	v, ok, err := s.getRaw(Key(PrefixInputBitmap, hash.Bytes()))
	if err != nil {
		return nil, err
	}
	if ok {
		return UnmarshalInputBitmap(v)
	}
	return buildInputBitmapFromSource(s, hash)
}

// Batch opens the single outstanding mutating batch over this store,
// blocking (via mu.Lock) until any prior batch has committed or been
// abandoned.
func (s *ChainStore) Batch() (*StoreBatch, error) {
	s.mu.Lock()
	b, err := s.engine.OpenBatch()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return &StoreBatch{store: s, batch: b, unlock: s.mu.Unlock}, nil
}

// BlocksIter walks every stored block body in ascending key (hash) order,
// calling fn until it returns false or an error. Grounded on store.rs's
// blocks_iter prefix scan over the 'b' prefix.
func (s *ChainStore) BlocksIter(fn func(core.Block) (bool, error)) error {
	lower := PointerKey(PrefixBlock)
	upper := PrefixBound(PrefixBlock)
	return s.engine.Iter(lower, upper, func(_, v []byte) (bool, error) {
		blk, err := decodeBlock(v)
		if err != nil {
			return false, err
		}
		return fn(blk)
	})
}
