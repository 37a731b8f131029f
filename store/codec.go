package store

import (
	"encoding/binary"
	"fmt"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/policy"
	"epic.dev/node/pow"
)

// Hand-rolled length-prefixed binary codecs for every record type this
// store persists, mirroring the teacher's encodeIndexEntry/
// decodeIndexEntry layout (db.go) rather than a reflection-based
// serializer the teacher never reaches for.

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("decodeUint64: expected 8 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func encodeInt64(v int64) []byte {
	return encodeUint64(uint64(v))
}

func decodeInt64(b []byte) (int64, error) {
	v, err := decodeUint64(b)
	return int64(v), err
}

func encodeDifficulty(d pow.Difficulty) []byte {
	buf := make([]byte, 0, 8*len(pow.AllTypes))
	for _, t := range pow.AllTypes {
		buf = append(buf, encodeUint64(d.ToNum(t))...)
	}
	return buf
}

func decodeDifficulty(b []byte) (pow.Difficulty, error) {
	want := 8 * len(pow.AllTypes)
	if len(b) != want {
		return pow.Difficulty{}, fmt.Errorf("decodeDifficulty: expected %d bytes, got %d", want, len(b))
	}
	d := pow.Zero()
	for i, t := range pow.AllTypes {
		v, err := decodeUint64(b[i*8 : i*8+8])
		if err != nil {
			return pow.Difficulty{}, err
		}
		d = d.WithNum(t, v)
	}
	return d, nil
}

func encodePolicy(p policy.Policy) []byte {
	buf := make([]byte, 0, 1+5*len(pow.AllTypes))
	buf = append(buf, byte(len(pow.AllTypes)))
	for _, t := range pow.AllTypes {
		buf = append(buf, byte(t))
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], p.Get(t))
		buf = append(buf, v[:]...)
	}
	return buf
}

// decodePolicy reads a policy encoded by encodePolicy from the front of
// b and returns it along with the number of bytes consumed, leaving any
// trailing bytes (e.g. a block's input/output/kernel lists, when the
// policy is embedded inside a larger encoded header) untouched.
func decodePolicy(b []byte) (policy.Policy, int, error) {
	if len(b) < 1 {
		return nil, 0, fmt.Errorf("decodePolicy: empty")
	}
	n := int(b[0])
	body := b[1:]
	if len(body) < n*5 {
		return nil, 0, fmt.Errorf("decodePolicy: expected at least %d bytes, got %d", n*5, len(body))
	}
	p := make(policy.Policy, n)
	for i := 0; i < n; i++ {
		t := pow.Type(body[i*5])
		v := binary.LittleEndian.Uint32(body[i*5+1 : i*5+5])
		p[t] = v
	}
	return p, 1 + n*5, nil
}

// encodeHeader serializes a core.BlockHeader. Layout: height(8) |
// prev_hash(32) | timestamp(8) | pow_type(1) | policy_byte(1) |
// pow_nonce(8) | pow_seed(32) | pow_secondary_scaling(4) |
// proof_bytes_len(4) | proof_bytes | total_difficulty(8*N) |
// bottles(encodePolicy).
func encodeHeader(h core.BlockHeader) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, encodeUint64(h.Height)...)
	buf = append(buf, h.PrevHash.Bytes()...)
	buf = append(buf, encodeInt64(h.Timestamp)...)
	buf = append(buf, byte(h.PoWType))
	buf = append(buf, h.PolicyByte)
	buf = append(buf, encodeUint64(h.POW.Nonce)...)
	buf = append(buf, h.POW.Seed[:]...)
	var scaling [4]byte
	binary.LittleEndian.PutUint32(scaling[:], h.POW.SecondaryScaling)
	buf = append(buf, scaling[:]...)
	var plen [4]byte
	binary.LittleEndian.PutUint32(plen[:], uint32(len(h.POW.ProofBytes)))
	buf = append(buf, plen[:]...)
	buf = append(buf, h.POW.ProofBytes...)
	buf = append(buf, encodeDifficulty(h.TotalDifficulty)...)
	buf = append(buf, encodePolicy(h.Bottles)...)
	return buf
}

// decodeHeader reads a header encoded by encodeHeader from the front of
// b and returns it along with the number of bytes consumed, so callers
// decoding a larger buffer (a full block body) can continue reading
// right after the header.
func decodeHeader(b []byte) (core.BlockHeader, int, error) {
	var h core.BlockHeader
	if len(b) < 8+32+8+1+1+8+32+4+4 {
		return h, 0, fmt.Errorf("decodeHeader: truncated")
	}
	off := 0
	height, err := decodeUint64(b[off : off+8])
	if err != nil {
		return h, 0, err
	}
	off += 8
	prevHash, err := chainhash.FromBytes(b[off : off+32])
	if err != nil {
		return h, 0, err
	}
	off += 32
	ts, err := decodeInt64(b[off : off+8])
	if err != nil {
		return h, 0, err
	}
	off += 8
	powType := pow.Type(b[off])
	off++
	policyByte := b[off]
	off++
	nonce, err := decodeUint64(b[off : off+8])
	if err != nil {
		return h, 0, err
	}
	off += 8
	var seed [32]byte
	copy(seed[:], b[off:off+32])
	off += 32
	scaling := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	plen := int(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	if len(b) < off+plen {
		return h, 0, fmt.Errorf("decodeHeader: truncated proof bytes")
	}
	proofBytes := append([]byte(nil), b[off:off+plen]...)
	off += plen
	diffWant := 8 * len(pow.AllTypes)
	if len(b) < off+diffWant {
		return h, 0, fmt.Errorf("decodeHeader: truncated difficulty")
	}
	diff, err := decodeDifficulty(b[off : off+diffWant])
	if err != nil {
		return h, 0, err
	}
	off += diffWant
	bottles, consumed, err := decodePolicy(b[off:])
	if err != nil {
		return h, 0, err
	}
	off += consumed

	h = core.BlockHeader{
		Height:    height,
		PrevHash:  prevHash,
		Timestamp: ts,
		POW: pow.Proof{
			Nonce:            nonce,
			Seed:             seed,
			SecondaryScaling: scaling,
			ProofBytes:       proofBytes,
		},
		PoWType:         powType,
		TotalDifficulty: diff,
		PolicyByte:      policyByte,
		Bottles:         bottles,
	}
	return h, off, nil
}

// encodeBlock serializes a full block: header, then inputs/outputs/kernels
// each as a count-prefixed list of fixed/length-prefixed records.
func encodeBlock(b core.Block) []byte {
	buf := encodeHeader(b.Header)
	buf = append(buf, encodeUint32(uint32(len(b.Inputs)))...)
	for _, in := range b.Inputs {
		buf = append(buf, in.Commitment[:]...)
	}
	buf = append(buf, encodeUint32(uint32(len(b.Outputs)))...)
	for _, out := range b.Outputs {
		buf = append(buf, out.Commitment[:]...)
		buf = append(buf, encodeUint32(uint32(len(out.Payload)))...)
		buf = append(buf, out.Payload...)
	}
	buf = append(buf, encodeUint32(uint32(len(b.Kernels)))...)
	for _, k := range b.Kernels {
		buf = append(buf, k.Excess[:]...)
		buf = append(buf, encodeUint64(k.Fee)...)
		buf = append(buf, k.Features)
		buf = append(buf, encodeUint32(uint32(len(k.Payload)))...)
		buf = append(buf, k.Payload...)
	}
	return buf
}

func decodeBlock(b []byte) (core.Block, error) {
	header, rest, err := decodeHeaderPrefix(b)
	if err != nil {
		return core.Block{}, err
	}

	inCount, rest, err := takeUint32(rest)
	if err != nil {
		return core.Block{}, err
	}
	inputs := make([]core.Input, inCount)
	for i := range inputs {
		if len(rest) < 33 {
			return core.Block{}, fmt.Errorf("decodeBlock: truncated input %d", i)
		}
		copy(inputs[i].Commitment[:], rest[:33])
		rest = rest[33:]
	}

	outCount, rest, err := takeUint32(rest)
	if err != nil {
		return core.Block{}, err
	}
	outputs := make([]core.Output, outCount)
	for i := range outputs {
		if len(rest) < 33 {
			return core.Block{}, fmt.Errorf("decodeBlock: truncated output %d", i)
		}
		copy(outputs[i].Commitment[:], rest[:33])
		rest = rest[33:]
		plen, r2, err := takeUint32(rest)
		if err != nil {
			return core.Block{}, err
		}
		rest = r2
		if uint32(len(rest)) < plen {
			return core.Block{}, fmt.Errorf("decodeBlock: truncated output payload %d", i)
		}
		outputs[i].Payload = append([]byte(nil), rest[:plen]...)
		rest = rest[plen:]
	}

	kCount, rest, err := takeUint32(rest)
	if err != nil {
		return core.Block{}, err
	}
	kernels := make([]core.Kernel, kCount)
	for i := range kernels {
		if len(rest) < 33+8+1+4 {
			return core.Block{}, fmt.Errorf("decodeBlock: truncated kernel %d", i)
		}
		copy(kernels[i].Excess[:], rest[:33])
		rest = rest[33:]
		fee, err := decodeUint64(rest[:8])
		if err != nil {
			return core.Block{}, err
		}
		kernels[i].Fee = fee
		rest = rest[8:]
		kernels[i].Features = rest[0]
		rest = rest[1:]
		plen, r2, err := takeUint32(rest)
		if err != nil {
			return core.Block{}, err
		}
		rest = r2
		if uint32(len(rest)) < plen {
			return core.Block{}, fmt.Errorf("decodeBlock: truncated kernel payload %d", i)
		}
		kernels[i].Payload = append([]byte(nil), rest[:plen]...)
		rest = rest[plen:]
	}

	return core.Block{Header: header, Inputs: inputs, Outputs: outputs, Kernels: kernels}, nil
}

func decodeHeaderPrefix(b []byte) (core.BlockHeader, []byte, error) {
	h, n, err := decodeHeader(b)
	if err != nil {
		return core.BlockHeader{}, nil, err
	}
	return h, b[n:], nil
}

func encodeUint32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func takeUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("takeUint32: truncated")
	}
	return binary.LittleEndian.Uint32(b[:4]), b[4:], nil
}

func encodeBlockSums(s core.BlockSums) []byte {
	buf := make([]byte, 0, 66)
	buf = append(buf, s.UTXOSum[:]...)
	buf = append(buf, s.KernelSum[:]...)
	return buf
}

func decodeBlockSums(b []byte) (core.BlockSums, error) {
	if len(b) != 66 {
		return core.BlockSums{}, fmt.Errorf("decodeBlockSums: expected 66 bytes, got %d", len(b))
	}
	var s core.BlockSums
	copy(s.UTXOSum[:], b[:33])
	copy(s.KernelSum[:], b[33:])
	return s, nil
}

func encodeOutputPos(pos uint64) []byte {
	return encodeUint64(pos)
}

func decodeOutputPos(b []byte) (uint64, error) {
	return decodeUint64(b)
}

func encodeHash(h chainhash.Hash) []byte {
	return h.Bytes()
}

func decodeHash(b []byte) (chainhash.Hash, error) {
	return chainhash.FromBytes(b)
}
