// Package core defines the chain's data model: headers, blocks, the
// opaque commitment sums carried per block, and the chain tip pointer.
// Full block and kernel validation (signature/range-proof/MMR checks) are
// injected capabilities — this package only carries the shapes the store
// and mining packages need to move blocks around.
package core

import (
	"epic.dev/node/chainhash"
	"epic.dev/node/policy"
	"epic.dev/node/pow"
)

// BlockHeader is the fixed-size part of a block: everything needed to
// link it into the chain and evaluate consensus rules without touching
// its body.
type BlockHeader struct {
	Height          uint64
	PrevHash        chainhash.Hash
	Timestamp       int64
	POW             pow.Proof
	PoWType         pow.Type
	TotalDifficulty pow.Difficulty
	PolicyByte      byte
	Bottles         policy.Policy
}

// Hash derives the header's content hash using the supplied HashFunc. The
// chain core never picks a concrete hash function itself (Non-goals); the
// caller supplies one (chainhash.Blake2b256 in tests/tooling, the real
// consensus hash in production).
func (h BlockHeader) Hash(hf chainhash.HashFunc) chainhash.Hash {
	return hf(h.PrevHash.Bytes(), encodeHeaderForHash(h))
}

func encodeHeaderForHash(h BlockHeader) []byte {
	buf := make([]byte, 0, 64)
	buf = appendUint64(buf, h.Height)
	buf = appendUint64(buf, uint64(h.Timestamp))
	buf = append(buf, byte(h.PoWType))
	buf = append(buf, h.PolicyByte)
	buf = appendUint64(buf, h.POW.Nonce)
	buf = append(buf, h.POW.Seed[:]...)
	buf = append(buf, h.POW.ProofBytes...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(v >> (8 * uint(i)))
	}
	return append(buf, tmp[:]...)
}

// Input references a spent output by its Pedersen commitment. Range-proof
// and signature validity of the spend are out of scope; the store only
// needs the commitment to maintain the commit→pos index and input bitmap.
type Input struct {
	Commitment [33]byte
}

// Output is a new unspent commitment created by the block, carrying
// whatever opaque payload (range proof, output features) the wire codec
// attaches; this package never interprets Payload.
type Output struct {
	Commitment [33]byte
	Payload    []byte
}

// Kernel is a transaction kernel: an opaque excess commitment plus fee and
// feature bits. Kernel signature and sum validation are out of scope.
type Kernel struct {
	Excess   [33]byte
	Fee      uint64
	Features byte
	Payload  []byte
}

// Block is a full header plus body. Body-level validation (sum equality,
// signature checks) lives behind the injected CommitmentOps/Verifier
// capabilities, never inside this package.
type Block struct {
	Header  BlockHeader
	Inputs  []Input
	Outputs []Output
	Kernels []Kernel
}

// Tx is a pool-held candidate transaction the mining assembler pulls from
// mempool; kept intentionally minimal since full transaction semantics
// are out of scope for this core.
type Tx struct {
	Inputs  []Input
	Outputs []Output
	Kernels []Kernel
	Fee     uint64
}

// BlockSums carries the running UTXO and kernel Pedersen commitment sums
// for a block. The sums themselves are opaque 33-byte commitments;
// verifying or recomputing them is an injected capability (CommitmentOps)
// this package never performs.
type BlockSums struct {
	UTXOSum   [33]byte
	KernelSum [33]byte
}

// CommitmentOps is the injected capability for any Pedersen commitment
// arithmetic a caller needs (summing/verifying BlockSums). Left abstract
// per the Non-goals: commitment math is out of scope for the chain core.
type CommitmentOps interface {
	Sum(commitments ...[33]byte) ([33]byte, error)
	Verify(sum [33]byte, parts ...[33]byte) error
}

// Tip identifies the current head of a chain: its block hash, its
// parent's hash, height, and cumulative difficulty tuple.
type Tip struct {
	LastBlockHash chainhash.Hash
	PrevBlockHash chainhash.Hash
	Height        uint64
	TotalDifficulty pow.Difficulty
}

// HeaderInfo is the minimal ancestor-walk record produced by the
// difficulty iterators: enough to evaluate retarget rules without
// loading a full header.
type HeaderInfo struct {
	BlockHash  chainhash.Hash
	Timestamp  int64
	Difficulty pow.Difficulty
	POWType    pow.Type
	Secondary  bool
}

// HeaderInfoFrom projects a BlockHeader down to the ancestor-walk shape
// the difficulty iterators operate on, with Difficulty set to the
// header's cumulative TotalDifficulty.
func HeaderInfoFrom(h BlockHeader, blockHash chainhash.Hash) HeaderInfo {
	return HeaderInfo{
		BlockHash:  blockHash,
		Timestamp:  h.Timestamp,
		Difficulty: h.TotalDifficulty,
		POWType:    h.PoWType,
		Secondary:  h.POW.IsSecondary(h.PoWType),
	}
}
