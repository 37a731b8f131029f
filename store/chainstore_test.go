package store_test

import (
	"testing"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/pow"
	"epic.dev/node/store"
	"epic.dev/node/store/storetest"
)

func testHeader(height uint64, prev chainhash.Hash, ts int64, t pow.Type) core.BlockHeader {
	return core.BlockHeader{
		Height:          height,
		PrevHash:        prev,
		Timestamp:       ts,
		PoWType:         t,
		POW:             pow.Proof{Nonce: height},
		TotalDifficulty: pow.NewDifficulty(height, 0, 0),
	}
}

func headerHash(h core.BlockHeader) chainhash.Hash {
	return h.Hash(chainhash.Blake2b256)
}

func TestSaveAndGetHeadRoundTrip(t *testing.T) {
	s := storetest.OpenTemp(t)

	h0 := testHeader(0, chainhash.ZeroHash, 1000, pow.Cuckatoo)
	hash0 := headerHash(h0)

	b, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b.SaveBlockHeader(h0, hash0); err != nil {
		t.Fatalf("save header: %v", err)
	}
	tip := core.Tip{LastBlockHash: hash0, Height: 0, TotalDifficulty: h0.TotalDifficulty}
	if err := b.SaveHead(tip); err != nil {
		t.Fatalf("save head: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if got.LastBlockHash != hash0 {
		t.Fatalf("head hash mismatch: got %s want %s", got.LastBlockHash, hash0)
	}

	gotHeader, err := s.GetBlockHeader(hash0)
	if err != nil {
		t.Fatalf("get header: %v", err)
	}
	if gotHeader.Height != 0 || gotHeader.Timestamp != 1000 {
		t.Fatalf("header round-trip mismatch: %+v", gotHeader)
	}
}

func TestAbandonedBatchLeavesNoTrace(t *testing.T) {
	s := storetest.OpenTemp(t)

	h0 := testHeader(0, chainhash.ZeroHash, 1000, pow.Cuckatoo)
	hash0 := headerHash(h0)

	b, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b.SaveBlockHeader(h0, hash0); err != nil {
		t.Fatalf("save header: %v", err)
	}
	if err := b.Abandon(); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	if _, err := s.GetBlockHeader(hash0); !store.IsNotFound(err) {
		t.Fatalf("expected not-found after abandon, got %v", err)
	}
}

func TestChildBatchMergesOnlyOnParentCommit(t *testing.T) {
	s := storetest.OpenTemp(t)

	h0 := testHeader(0, chainhash.ZeroHash, 1000, pow.Cuckatoo)
	hash0 := headerHash(h0)

	root, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	child := root.Child()
	if err := child.SaveBlockHeader(h0, hash0); err != nil {
		t.Fatalf("save in child: %v", err)
	}

	if _, err := root.GetBlockHeader(hash0); !store.IsNotFound(err) {
		t.Fatalf("child writes must not be visible in parent before child commit")
	}

	if err := child.Commit(); err != nil {
		t.Fatalf("child commit: %v", err)
	}
	if _, err := root.GetBlockHeader(hash0); err != nil {
		t.Fatalf("expected header visible in parent after child commit: %v", err)
	}

	if err := root.Commit(); err != nil {
		t.Fatalf("root commit: %v", err)
	}
	if _, err := s.GetBlockHeader(hash0); err != nil {
		t.Fatalf("expected header visible in store after root commit: %v", err)
	}
}

func TestDeleteBlockLeavesHeaderIntact(t *testing.T) {
	s := storetest.OpenTemp(t)

	h0 := testHeader(0, chainhash.ZeroHash, 1000, pow.Cuckatoo)
	hash0 := headerHash(h0)
	blk := core.Block{Header: h0}

	b, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b.SaveBlockHeader(h0, hash0); err != nil {
		t.Fatalf("save header: %v", err)
	}
	if err := b.SaveBlock(blk, hash0); err != nil {
		t.Fatalf("save block: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	b2, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b2.DeleteBlock(hash0); err != nil {
		t.Fatalf("delete block: %v", err)
	}
	if err := b2.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := s.GetBlock(hash0); !store.IsNotFound(err) {
		t.Fatalf("expected block gone, got %v", err)
	}
	if _, err := s.GetBlockHeader(hash0); err != nil {
		t.Fatalf("header must outlive body: %v", err)
	}
}

func TestClearOutputPosSkipsUndecodableEntries(t *testing.T) {
	s := storetest.OpenTemp(t)

	var c1, c2 [33]byte
	c1[0] = 1
	c2[0] = 2

	b, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b.SaveOutputPos(c1, 5); err != nil {
		t.Fatalf("save pos: %v", err)
	}
	// Corrupt entry: wrong-length value under the same prefix.
	if err := b.PutRaw(store.Key(store.PrefixOutputPos, c2[:]), []byte{1, 2, 3}); err != nil {
		t.Fatalf("put raw: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	b2, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b2.ClearOutputPos(); err != nil {
		t.Fatalf("clear output pos must not abort on bad entries: %v", err)
	}
	if err := b2.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := s.GetOutputPos(c1); !store.IsNotFound(err) {
		t.Fatalf("expected c1 cleared, got %v", err)
	}
}

func TestSaveBlockEagerlyBuildsInputBitmap(t *testing.T) {
	s := storetest.OpenTemp(t)

	var c1 [33]byte
	c1[0] = 1

	h0 := testHeader(1, chainhash.ZeroHash, 1000, pow.Cuckatoo)
	hash0 := headerHash(h0)
	blk := core.Block{Header: h0, Inputs: []core.Input{{Commitment: c1}}}

	b, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b.SaveOutputPos(c1, 4); err != nil {
		t.Fatalf("save pos: %v", err)
	}
	if err := b.SaveBlockHeader(h0, hash0); err != nil {
		t.Fatalf("save header: %v", err)
	}
	if err := b.SaveBlock(blk, hash0); err != nil {
		t.Fatalf("save block: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// SaveBlock must have derived and persisted the bitmap itself, with
	// no further build/store call required.
	bm, err := s.GetBlockInputBitmap(hash0)
	if err != nil {
		t.Fatalf("get block input bitmap: %v", err)
	}
	if !bm.Contains(4) {
		t.Fatalf("expected the eagerly-built bitmap to contain position 4")
	}
}

func TestGetBlockInputBitmapRebuildsWhenNotStored(t *testing.T) {
	s := storetest.OpenTemp(t)

	var c1, c2, c3 [33]byte
	c1[0], c2[0], c3[0] = 1, 2, 3

	h0 := testHeader(1, chainhash.ZeroHash, 1000, pow.Cuckatoo)
	hash0 := headerHash(h0)
	blk := core.Block{
		Header: h0,
		Inputs: []core.Input{{Commitment: c1}, {Commitment: c2}, {Commitment: c3}},
	}

	b, err := s.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := b.SaveOutputPos(c1, 5); err != nil {
		t.Fatalf("save pos c1: %v", err)
	}
	if err := b.SaveOutputPos(c2, 9); err != nil {
		t.Fatalf("save pos c2: %v", err)
	}
	// c3 is never indexed, standing in for an output already pruned past
	// the retained tail window; the rebuild must skip it rather than fail.
	if err := b.SaveBlockHeader(h0, hash0); err != nil {
		t.Fatalf("save header: %v", err)
	}
	if err := b.SaveBlock(blk, hash0); err != nil {
		t.Fatalf("save block: %v", err)
	}
	// Drop the eagerly-stored bitmap so GetBlockInputBitmap must rebuild
	// it from the block body rather than read it straight back.
	if err := b.DeleteBlockInputBitmap(hash0); err != nil {
		t.Fatalf("delete bitmap: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	bm, err := s.GetBlockInputBitmap(hash0)
	if err != nil {
		t.Fatalf("get block input bitmap: %v", err)
	}
	if !bm.Contains(5) {
		t.Fatalf("expected rebuilt bitmap to contain position 5")
	}
	if !bm.Contains(9) {
		t.Fatalf("expected rebuilt bitmap to contain position 9")
	}
	if bm.Contains(1) {
		t.Fatalf("expected no spurious bit for an unindexed position")
	}
}
