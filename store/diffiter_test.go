package store_test

import (
	"testing"

	"epic.dev/node/chainhash"
	"epic.dev/node/pow"
	"epic.dev/node/store"
	"epic.dev/node/store/storetest"
)

// chain builds a simple alternating-PoW-type chain of n blocks on top of
// genesis and stores only headers (no bodies), returning the stored
// hashes in order.
func buildHeaderChain(t *testing.T, s *store.ChainStore, types []pow.Type) []chainhash.Hash {
	t.Helper()
	hashes := make([]chainhash.Hash, 0, len(types)+1)
	hashes = append(hashes, chainhash.ZeroHash)

	b, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	for i, pt := range types {
		h := testHeader(uint64(i+1), hashes[len(hashes)-1], int64(1000+i*10), pt)
		hash := headerHash(h)
		if err := b.SaveBlockHeader(h, hash); err != nil {
			t.Fatalf("save header %d: %v", i, err)
		}
		hashes = append(hashes, hash)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hashes
}

func TestDifficultyIterFiltersByPoWType(t *testing.T) {
	s := storetest.OpenTemp(t)
	types := []pow.Type{pow.Cuckatoo, pow.RandomX, pow.Cuckatoo, pow.ProgPow, pow.Cuckatoo}
	hashes := buildHeaderChain(t, s, types)
	tip := hashes[len(hashes)-1]

	it := store.NewDifficultyIter(s, tip, pow.Cuckatoo)
	var got []uint64
	for {
		info, ok := it.Next()
		if !ok {
			break
		}
		h, err := s.GetBlockHeader(info.BlockHash)
		if err != nil {
			t.Fatalf("resolve yielded hash: %v", err)
		}
		got = append(got, h.Height)
	}
	if it.Err() != nil {
		t.Fatalf("iterator error: %v", it.Err())
	}

	want := []uint64{5, 3, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v heights, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got height %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDifficultyIterAllYieldsEveryAncestor(t *testing.T) {
	s := storetest.OpenTemp(t)
	types := []pow.Type{pow.Cuckatoo, pow.RandomX, pow.ProgPow}
	hashes := buildHeaderChain(t, s, types)
	tip := hashes[len(hashes)-1]

	it := store.NewDifficultyIterAll(s, tip)
	count := 0
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	if it.Err() != nil {
		t.Fatalf("iterator error: %v", it.Err())
	}
	if count != len(types) {
		t.Fatalf("got %d ancestors, want %d", count, len(types))
	}
}

func TestDifficultyIterTerminatesAtGenesis(t *testing.T) {
	s := storetest.OpenTemp(t)
	hashes := buildHeaderChain(t, s, []pow.Type{pow.Cuckatoo})
	tip := hashes[len(hashes)-1]

	it := store.NewDifficultyIter(s, tip, pow.ProgPow)
	_, ok := it.Next()
	if ok {
		t.Fatalf("expected no match and clean termination at genesis")
	}
	if it.Err() != nil {
		t.Fatalf("unexpected error at genesis: %v", it.Err())
	}
}
