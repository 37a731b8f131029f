// Package pow defines the pluggable proof-of-work types shared by the
// chain core: the three supported algorithms, a per-algorithm difficulty
// tuple, and the proof envelope carried in a block header.
package pow

import "fmt"

// Type identifies which of the three interchangeable PoW algorithms
// produced a given header.
type Type int

const (
	Cuckatoo Type = iota
	ProgPow
	RandomX

	numTypes = int(RandomX) + 1
)

func (t Type) String() string {
	switch t {
	case Cuckatoo:
		return "cuckatoo"
	case ProgPow:
		return "progpow"
	case RandomX:
		return "randomx"
	default:
		return fmt.Sprintf("pow.Type(%d)", int(t))
	}
}

// AllTypes lists every supported PoW algorithm in a stable order, used by
// callers that need to enumerate the full Difficulty tuple.
var AllTypes = [numTypes]Type{Cuckatoo, ProgPow, RandomX}

// Proof is the PoW envelope stored on a block header. ProofBytes carries
// the algorithm-specific proof payload (cuckoo cycle, ProgPow mix, RandomX
// output); this package never validates it — PoW verification is an
// injected capability (see Verifier) kept out of scope per SPEC_FULL.md's
// Non-goals.
type Proof struct {
	ProofBytes       []byte
	SecondaryScaling uint32
	Nonce            uint64
	Seed             [32]byte
}

// DeriveTypeFunc derives the PoWType a proof was produced under. The
// mapping from proof shape to algorithm is itself consensus-defined and
// supplied by a collaborator; DeriveTypeFunc lets callers plug that rule
// in without this package hard-coding a specific proof encoding.
type DeriveTypeFunc func(p Proof) Type

// IsSecondary reports whether the proof used the "secondary" (AsicBoost
// style) scaling path. Matches the header.pow.is_secondary() predicate
// referenced by SPEC_FULL.md §4.E: only Cuckatoo proofs carry secondary
// scaling, all other algorithms report false.
func (p Proof) IsSecondary(t Type) bool {
	return t == Cuckatoo && p.SecondaryScaling > 0
}

// Verifier checks a proof against a target difficulty for a given
// algorithm. Left abstract: PoW verification math is explicitly out of
// scope for the chain core (SPEC_FULL.md Non-goals).
type Verifier interface {
	Verify(t Type, headerBytes []byte, proof Proof, target Difficulty) error
}

// Difficulty is an ordered tuple carrying one scalar per PoWType. It is
// monotonic along any chain and supports per-algorithm saturating
// subtraction, matching §3's Difficulty entity.
type Difficulty struct {
	values [numTypes]uint64
}

// NewDifficulty builds a Difficulty with the given per-algorithm scalars.
func NewDifficulty(cuckatoo, progpow, randomx uint64) Difficulty {
	return Difficulty{values: [numTypes]uint64{cuckatoo, progpow, randomx}}
}

// Zero is the additive identity.
func Zero() Difficulty {
	return Difficulty{}
}

// ToNum projects the difficulty onto a single algorithm's scalar.
func (d Difficulty) ToNum(t Type) uint64 {
	return d.values[t]
}

// WithNum returns a copy of d with the given algorithm's scalar replaced.
func (d Difficulty) WithNum(t Type, v uint64) Difficulty {
	out := d
	out.values[t] = v
	return out
}

// Add returns the component-wise sum of d and o.
func (d Difficulty) Add(o Difficulty) Difficulty {
	var out Difficulty
	for i := range out.values {
		out.values[i] = d.values[i] + o.values[i]
	}
	return out
}

// Sub returns the component-wise difference d - o, saturating each
// component at zero rather than underflowing. Used by the difficulty
// iterators to compute per-block difficulty contributions from two
// cumulative total_difficulty tuples.
func (d Difficulty) Sub(o Difficulty) Difficulty {
	var out Difficulty
	for i := range out.values {
		if d.values[i] < o.values[i] {
			out.values[i] = 0
			continue
		}
		out.values[i] = d.values[i] - o.values[i]
	}
	return out
}

// Cmp returns -1, 0 or 1 comparing d and o lexicographically in AllTypes
// order, deciding on the first unequal component; returns 0 only if every
// component is equal. It is not a component-wise check: the monotone
// total_difficulty invariant in SPEC_FULL.md §8 is what
// GreaterOrEqualComponentwise tests.
func (d Difficulty) Cmp(o Difficulty) int {
	for i := range d.values {
		switch {
		case d.values[i] < o.values[i]:
			return -1
		case d.values[i] > o.values[i]:
			return 1
		}
	}
	return 0
}

// GreaterOrEqualComponentwise reports whether every component of d is >=
// the matching component of o — the §3 monotonicity invariant.
func (d Difficulty) GreaterOrEqualComponentwise(o Difficulty) bool {
	for i := range d.values {
		if d.values[i] < o.values[i] {
			return false
		}
	}
	return true
}
