// Package policy implements the "bottles" emission-throttling vector
// (Feijoada) carried on every block header: a per-PoW-type count used by
// consensus to decide which algorithm is allowed to mine the next block.
package policy

import "epic.dev/node/pow"

// Policy is the bottle count per PoW algorithm. A zero value is the empty
// policy (all bottles at zero), distinct from any default table below.
type Policy map[pow.Type]uint32

// New builds a Policy with the given starting counts, filling in any
// algorithm not present with zero.
func New(cuckatoo, progpow, randomx uint32) Policy {
	return Policy{
		pow.Cuckatoo: cuckatoo,
		pow.ProgPow:  progpow,
		pow.RandomX:  randomx,
	}
}

// Clone returns a deep copy, matching the original chain's policy clone
// semantics used whenever a policy is threaded through header construction
// without aliasing the caller's map.
func (p Policy) Clone() Policy {
	out := make(Policy, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Get returns the bottle count for t, defaulting to zero when absent.
func (p Policy) Get(t pow.Type) uint32 {
	return p[t]
}

// WithDecrement returns a clone of p with t's bottle count decremented by
// one, saturating at zero. Used by consensus.NextPolicy when a block of
// algorithm t is accepted and consumes one of its own bottles.
func (p Policy) WithDecrement(t pow.Type) Policy {
	out := p.Clone()
	if out[t] > 0 {
		out[t]--
	}
	return out
}

// DefaultMainnet is the bottle table a freshly initialized mainnet chain
// starts from: Cuckatoo and RandomX enabled evenly, ProgPow withheld until
// consensus schedules its activation height (consensus.GetEmittedPolicy).
func DefaultMainnet() Policy {
	return New(2, 0, 2)
}

// DefaultAutomatedTesting mirrors the original chain's AutomatedTesting
// global mode: every algorithm enabled from genesis so test chains can
// freely mix PoW types without waiting on an activation schedule.
func DefaultAutomatedTesting() Policy {
	return New(1, 1, 1)
}
