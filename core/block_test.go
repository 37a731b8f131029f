package core_test

import (
	"testing"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/pow"
)

func TestHeaderHashIsDeterministic(t *testing.T) {
	h := core.BlockHeader{
		Height:    1,
		PrevHash:  chainhash.ZeroHash,
		Timestamp: 100,
		POW:       pow.Proof{Nonce: 7},
	}
	a := h.Hash(chainhash.Blake2b256)
	b := h.Hash(chainhash.Blake2b256)
	if a != b {
		t.Fatalf("expected deterministic hash, got %s vs %s", a, b)
	}

	h2 := h
	h2.Timestamp = 101
	c := h2.Hash(chainhash.Blake2b256)
	if a == c {
		t.Fatalf("expected different headers to hash differently")
	}
}

func TestHeaderInfoFromCarriesSecondary(t *testing.T) {
	h := core.BlockHeader{
		PoWType: pow.Cuckatoo,
		POW:     pow.Proof{SecondaryScaling: 2},
	}
	info := core.HeaderInfoFrom(h, chainhash.ZeroHash)
	if !info.Secondary {
		t.Fatalf("expected secondary flag carried through")
	}
}
