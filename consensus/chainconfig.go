// Package consensus holds the retarget, reward, and policy-schedule rules
// the block assembler and difficulty iterators consult. Actual PoW
// verification and commitment arithmetic stay out of scope; this package
// only computes the scalars and schedules consensus rules are defined by.
package consensus

import (
	"sync"

	"epic.dev/node/policy"
	"epic.dev/node/pow"
)

// ChainConfig carries the tunables that differ between mainnet,
// floonet/testnet, and automated-testing chains. It is assembled once at
// process start and treated as read-only afterward, mirroring the
// original chain's global::set_mining_mode switch.
type ChainConfig struct {
	CoinbaseMaturity    uint64
	DifficultyFixHeight uint64
	DifficultyAdjustWindow uint64
	BlockTimeSec        int64
	FoundationHeightMod uint64
	DefaultPolicy       policy.Policy
}

// Mainnet is the production tuning: coinbase matures after 1440 blocks
// (~1 day at a 60s block time), matching the original chain's mainnet
// constants.
func Mainnet() ChainConfig {
	return ChainConfig{
		CoinbaseMaturity:       1440,
		DifficultyFixHeight:    0,
		DifficultyAdjustWindow: 60,
		BlockTimeSec:           60,
		FoundationHeightMod:    1440,
		DefaultPolicy:          policy.DefaultMainnet(),
	}
}

// AutomatedTesting matches the original chain test harness's
// coinbase_maturity() == 3 behavior (test_coinbase_maturity.rs) and a
// short retarget window so unit tests never need hundreds of blocks to
// exercise a retarget.
func AutomatedTesting() ChainConfig {
	return ChainConfig{
		CoinbaseMaturity:       3,
		DifficultyFixHeight:    0,
		DifficultyAdjustWindow: 3,
		BlockTimeSec:           1,
		FoundationHeightMod:    10,
		DefaultPolicy:          policy.DefaultAutomatedTesting(),
	}
}

var (
	globalMu     sync.RWMutex
	globalConfig = Mainnet()
	globalSet    bool
)

// SetChainConfig installs the process-wide consensus configuration. It is
// expected to be called exactly once during startup, mirroring the
// original's global::set_mining_mode; calling it again after the first
// call is a no-op so tests that import multiple packages concurrently
// cannot race each other into an inconsistent config.
func SetChainConfig(cfg ChainConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalSet {
		return
	}
	globalConfig = cfg
	globalSet = true
}

// Current returns the process-wide ChainConfig, defaulting to Mainnet if
// SetChainConfig was never called.
func Current() ChainConfig {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// CoinbaseMaturity returns the number of confirmations a coinbase output
// needs before it may be spent, per the current ChainConfig.
func CoinbaseMaturity() uint64 {
	return Current().CoinbaseMaturity
}

// DifficultyFixHeight is the height at which the era-1 retarget algorithm
// is replaced by the (corrected) standard one; mining.Assembler's
// buildBlock dispatches on it between NextDifficultyEra1 and
// NextDifficulty.
func DifficultyFixHeight() uint64 {
	return Current().DifficultyFixHeight
}

// RxCurrentSeedHeight computes the RandomX seed-rotation height for a
// candidate block at height h: RandomX reseeds every
// DifficultyAdjustWindow*4 blocks (grounded on mine_block.rs's
// rx_current_seed_height, which floors to the start of the current
// seed epoch).
func RxCurrentSeedHeight(h uint64) uint64 {
	window := Current().DifficultyAdjustWindow * 4
	if window == 0 {
		return 0
	}
	return (h / window) * window
}

// IsFoundationHeight reports whether height h is one of the periodic
// foundation-reward heights, per mine_block.rs's is_foundation_height.
func IsFoundationHeight(h uint64) bool {
	mod := Current().FoundationHeightMod
	if mod == 0 {
		return false
	}
	return h%mod == 0
}

// RewardAtHeight returns the base block subsidy at height h, in the
// chain's smallest unit. A flat schedule is used here since the halving
// schedule itself is out of scope (Non-goals: full consensus
// specification) — callers that need a real schedule inject one via
// mining.Consensus instead of calling this directly.
func RewardAtHeight(h uint64) uint64 {
	const baseReward = 48_000_000_000
	return baseReward
}

// GetEmittedPolicy returns the policy epoch selector a freshly mined
// block at height h should be stamped with (BlockHeader.PolicyByte).
// This is the value store.BottleIter's target is compared against, not
// a bottle table itself — only one policy epoch is wired in here, so
// every height resolves to epoch 0 until a schedule of epoch-changing
// heights is introduced.
func GetEmittedPolicy(h uint64) uint8 {
	return 0
}

// DefaultBottles returns the bottle table a policy epoch starts from,
// before any WithDecrement is applied. Since only one epoch is wired in
// (see GetEmittedPolicy), this ignores policyByte and returns the
// current ChainConfig's DefaultPolicy clone.
func DefaultBottles(policyByte uint8) policy.Policy {
	return Current().DefaultPolicy.Clone()
}

// NextPolicy picks the PoW algorithm that mines the next block and
// returns the bottle table it leaves behind, matching mine_block.rs's
// `let (pow_type, bottles) = consensus::next_policy(header.policy,
// bottle_cursor)`. bottles is the table found by walking back for the
// nearest ancestor stamped with policyByte (store.BottleIter), or nil if
// none was found within the search window.
//
// The real chain selects among algorithms with a still-nonzero bottle
// count by a "Feijoada" weighted-deterministic draw implemented in the
// core crate, which is not part of the retrieval pack this module was
// built from. In its place this picks the first algorithm in
// pow.AllTypes order that still has a nonzero bottle count, which
// preserves the throttling property (an algorithm stays selectable only
// while its bottles last) without the weighting. See DESIGN.md.
func NextPolicy(policyByte uint8, bottles policy.Policy) (pow.Type, policy.Policy) {
	if bottles == nil {
		bottles = DefaultBottles(policyByte)
	}
	if t, ok := firstAvailable(bottles); ok {
		return t, bottles.WithDecrement(t)
	}
	fresh := DefaultBottles(policyByte)
	if t, ok := firstAvailable(fresh); ok {
		return t, fresh.WithDecrement(t)
	}
	return pow.AllTypes[0], fresh
}

func firstAvailable(p policy.Policy) (pow.Type, bool) {
	for _, t := range pow.AllTypes {
		if p.Get(t) > 0 {
			return t, true
		}
	}
	return 0, false
}
