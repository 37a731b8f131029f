package consensus

import "epic.dev/node/pow"

// DifficultyData is the per-ancestor sample DifficultyIter produces: a
// block's timestamp and the difficulty it contributed, matching the
// HeaderDifficultyInfo shape consumed by the original chain's retarget
// functions.
type DifficultyData struct {
	Timestamp  int64
	Difficulty pow.Difficulty
}

const (
	// clampFactor bounds how far a single retarget step may move, per
	// window, matching the original chain's damping factor.
	clampFactor = 4
	minDifficultyValue = 1
)

// NextDifficulty computes the target difficulty for powType at the next
// block, from the most recent window of DifficultyData samples (oldest
// first). It clamps the actual observed timespan to
// [windowTarget/clampFactor, windowTarget*clampFactor] before scaling,
// the standard damped retarget used post-DifficultyFixHeight.
func NextDifficulty(powType pow.Type, windowTarget int64, samples []DifficultyData) uint64 {
	return nextDifficulty(powType, windowTarget, samples, true)
}

// NextDifficultyEra1 is the pre-fix retarget rule kept for historical
// blocks mined before DifficultyFixHeight: it omits the timespan clamp,
// matching mine_block.rs's next_difficulty_era1 branch.
func NextDifficultyEra1(powType pow.Type, windowTarget int64, samples []DifficultyData) uint64 {
	return nextDifficulty(powType, windowTarget, samples, false)
}

func nextDifficulty(powType pow.Type, windowTarget int64, samples []DifficultyData, clamp bool) uint64 {
	if len(samples) == 0 {
		return minDifficultyValue
	}
	first, last := samples[0], samples[len(samples)-1]
	timespan := last.Timestamp - first.Timestamp
	if timespan <= 0 {
		timespan = 1
	}
	if clamp {
		lo := windowTarget / clampFactor
		hi := windowTarget * clampFactor
		if timespan < lo {
			timespan = lo
		}
		if timespan > hi {
			timespan = hi
		}
	}

	var totalDiff uint64
	for _, s := range samples {
		totalDiff += s.Difficulty.ToNum(powType)
	}
	if totalDiff == 0 {
		return minDifficultyValue
	}

	next := (totalDiff * uint64(windowTarget)) / uint64(timespan)
	if next < minDifficultyValue {
		next = minDifficultyValue
	}
	return next
}
