package mining

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"epic.dev/node/chainhash"
	"epic.dev/node/core"
	"epic.dev/node/pow"
)

// maxBlockWeight bounds how many mempool transactions PrepareMineableTransactions
// is asked for in one pass; kept as a constant rather than plumbed through
// config since the underlying weight unit is an out-of-scope mempool
// concern.
const maxBlockWeight = 40_000

// walletRetryDelay and duplicateCommitmentRetryDelay mirror
// get_block's sleep(5) / sleep(100ms) retry pacing in mine_block.rs.
const (
	walletRetryDelay              = 5 * time.Second
	duplicateCommitmentRetryDelay = 100 * time.Millisecond
)

// Assembler builds candidate blocks, matching servers/src/mining/
// mine_block.rs's get_block/build_block. It never verifies or solves the
// PoW itself — Proof.Seed is set to the RandomX seed hash, while
// Proof.ProofBytes/Nonce are left for the actual miner loop to fill in
// after GetBlock returns. Unlike the original flag-driven
// miner process, the PoW algorithm a candidate block mines under is not
// configured externally: it is chosen per block by the policy/bottles
// mechanism (see buildBlock) and returned from GetBlock.
type Assembler struct {
	Chain         Chain
	Mempool       Mempool
	VerifierCache VerifierCache
	Consensus     Consensus
	Coinbase      Coinbase
	HashFunc      chainhash.HashFunc
	Logger        zerolog.Logger

	// Stopped is polled between outer-loop retries (never mid-build),
	// matching the concurrency model's cooperative-stop contract. A nil
	// Stopped never stops the loop.
	Stopped func() bool
}

// GetBlock assembles a mineable candidate block, retrying internally on
// duplicate-commitment and wallet-communication failures the way
// get_block does, until it succeeds or Stopped reports true. The
// returned pow.Type is the algorithm the candidate must be solved under,
// chosen internally from the current policy/bottles state.
func (a *Assembler) GetBlock() (core.Block, core.BlockFees, pow.Type, error) {
	var keyID *core.Identifier

	for {
		if a.Stopped != nil && a.Stopped() {
			return core.Block{}, core.BlockFees{}, 0, errors.New("mining: stopped")
		}

		blk, fees, powType, err := a.buildBlock(keyID)
		if err == nil {
			return blk, fees, powType, nil
		}

		var merr *Error
		if errors.As(err, &merr) {
			switch merr.Kind {
			case KindDuplicateCommitment:
				a.Logger.Debug().Str("context", merr.Context).Msg("duplicate commitment, dropping key id and retrying")
				keyID = nil
				time.Sleep(duplicateCommitmentRetryDelay)
				continue
			case KindWalletComm:
				a.Logger.Warn().Err(merr).Msg("wallet unreachable, retrying")
				time.Sleep(walletRetryDelay)
				continue
			default:
				a.Logger.Warn().Err(merr).Msg("block assembly failed, retrying")
			}
		} else {
			a.Logger.Warn().Err(err).Msg("block assembly failed, retrying")
		}

		if keyID != nil {
			time.Sleep(duplicateCommitmentRetryDelay)
		}
	}
}

func (a *Assembler) buildBlock(keyID *core.Identifier) (core.Block, core.BlockFees, pow.Type, error) {
	head, err := a.Chain.HeadHeader()
	if err != nil {
		return core.Block{}, core.BlockFees{}, 0, newError(KindOther, "head header", err)
	}
	height := head.Height + 1

	// Resolve which algorithm mines this block before anything else is
	// computed, since the difficulty retarget and header fields below
	// both depend on it: (pow_type, bottles) := next_policy(header.policy,
	// bottle_cursor), per mine_block.rs's build_block.
	policyByte := a.Consensus.GetEmittedPolicy(height)
	bottles, ok, berr := a.Chain.BottleIter(head.PrevHash, policyByte)
	if berr != nil {
		return core.Block{}, core.BlockFees{}, 0, newError(KindOther, "bottle iter", berr)
	}
	if !ok {
		bottles = nil
	}
	powType, nextBottles := a.Consensus.NextPolicy(policyByte, bottles)

	seedHeight := a.Consensus.RxCurrentSeedHeight(height)
	seedHash, err := a.Chain.HeaderHashAtHeight(seedHeight)
	if err != nil {
		return core.Block{}, core.BlockFees{}, 0, newError(KindOther, "randomx seed height", err)
	}

	timestamp := a.chooseTimestamp(head)

	samples := a.collectDifficultySamples(head.PrevHash, powType)
	var targetDiff uint64
	if height < a.Consensus.DifficultyFixHeight() {
		targetDiff = a.Consensus.NextDifficultyEra1(powType, head, samples)
	} else {
		targetDiff = a.Consensus.NextDifficulty(powType, head, samples)
	}

	txs, err := a.Mempool.PrepareMineableTransactions(maxBlockWeight)
	if err != nil {
		// Empty-block fallback: a mempool error never blocks mining, it
		// just yields a fee-less block, matching build_block's behavior
		// when prepare_mineable_transactions itself fails.
		a.Logger.Warn().Err(err).Msg("mempool unavailable, falling back to an empty block")
		txs = nil
	}

	var fees uint64
	var inputs []core.Input
	var outputs []core.Output
	var kernels []core.Kernel
	for _, tx := range txs {
		fees += tx.Fee
		inputs = append(inputs, tx.Inputs...)
		outputs = append(outputs, tx.Outputs...)
		kernels = append(kernels, tx.Kernels...)
	}

	blockFees := core.BlockFees{Fees: fees, Height: height, KeyID: keyID}

	normalCb, err := a.normalCoinbase(blockFees)
	if err != nil {
		return core.Block{}, core.BlockFees{}, 0, err
	}
	outputs = append(outputs, normalCb.Output)
	kernels = append(kernels, normalCb.Kernel)
	blockFees.KeyID = normalCb.KeyID

	// A foundation height adds a second coinbase on top of the normal
	// one (Block::from_coinbases), it never replaces it
	// (Block::from_reward would be the single-coinbase case).
	if a.Consensus.IsFoundationHeight(height) {
		foundationCb, err := a.Coinbase.BuildFoundation(blockFees)
		if err != nil {
			return core.Block{}, core.BlockFees{}, 0, newError(KindWalletComm, "build foundation coinbase", err)
		}
		outputs = append(outputs, foundationCb.Output)
		kernels = append(kernels, foundationCb.Kernel)
	}

	header := core.BlockHeader{
		Height:          height,
		PrevHash:        a.headHash(head),
		Timestamp:       timestamp,
		PoWType:         powType,
		TotalDifficulty: head.TotalDifficulty.WithNum(powType, head.TotalDifficulty.ToNum(powType)+targetDiff),
		PolicyByte:      policyByte,
		Bottles:         nextBottles,
		POW: pow.Proof{
			Seed: seedHash,
		},
	}

	blk := core.Block{Header: header, Inputs: inputs, Outputs: outputs, Kernels: kernels}

	if err := a.Chain.SetTxHashsetRoots(&blk); err != nil {
		return core.Block{}, core.BlockFees{}, 0, classifySetRootsErr(err)
	}

	return blk, blockFees, powType, nil
}

// normalCoinbase builds the miner's own reward coinbase: burned locally
// if no wallet listener is configured, otherwise fetched from the
// wallet. This is always built, independent of IsFoundationHeight — see
// buildBlock, which additionally appends a foundation coinbase.
func (a *Assembler) normalCoinbase(fees core.BlockFees) (core.CbData, error) {
	if a.Coinbase.BurnEnabled() {
		return a.burnReward(fees), nil
	}
	cb, err := a.Coinbase.BuildCoinbase(fees)
	if err != nil {
		return core.CbData{}, newError(KindWalletComm, "build coinbase", err)
	}
	return cb, nil
}

// burnReward constructs a coinbase whose reward is provably unspendable,
// used when no wallet listener is configured (solo test mining).
// Mirrors mine_block.rs's burn_reward.
func (a *Assembler) burnReward(fees core.BlockFees) core.CbData {
	reward := a.Consensus.RewardAtHeight(fees.Height) + fees.Fees
	var out core.Output
	out.Payload = encodeBurnMarker(reward)
	return core.CbData{Output: out}
}

func encodeBurnMarker(reward uint64) []byte {
	buf := make([]byte, 8)
	v := reward
	for i := 0; i < 8; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

func (a *Assembler) headHash(head core.BlockHeader) chainhash.Hash {
	return head.Hash(a.HashFunc)
}

// chooseTimestamp picks a timestamp for the candidate block that is
// strictly greater than head's, never going backward even if wall-clock
// time has, matching the monotonicity invariant in SPEC_FULL.md §8.
func (a *Assembler) chooseTimestamp(head core.BlockHeader) int64 {
	now := time.Now().Unix()
	if now <= head.Timestamp {
		return head.Timestamp + 1
	}
	return now
}

// collectDifficultySamples walks the filtered difficulty ancestry from
// prevHash and converts it into the Consensus contract's sample shape.
func (a *Assembler) collectDifficultySamples(prevHash chainhash.Hash, target pow.Type) []DifficultyData {
	it := a.Chain.DifficultyIter(prevHash, target)
	var out []DifficultyData
	for {
		info, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, DifficultyData{Timestamp: info.Timestamp, Difficulty: info.Difficulty})
	}
	return out
}

// classifySetRootsErr passes a *mining.Error from Chain.SetTxHashsetRoots
// through unchanged (so a KindDuplicateCommitment reaches GetBlock's
// retry loop) and wraps any other error, including a *store.Error, as a
// KindOther failure. Chain implementations therefore return a
// *mining.Error for a duplicate commitment, as StoreChain does.
func classifySetRootsErr(err error) error {
	var merr *Error
	if errors.As(err, &merr) {
		return merr
	}
	return newError(KindOther, "set txhashset roots", err)
}
