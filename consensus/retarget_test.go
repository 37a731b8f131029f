package consensus_test

import (
	"testing"

	"epic.dev/node/consensus"
	"epic.dev/node/policy"
	"epic.dev/node/pow"
)

func TestNextDifficultyClampsTimespan(t *testing.T) {
	samples := []consensus.DifficultyData{
		{Timestamp: 0, Difficulty: pow.NewDifficulty(100, 0, 0)},
		{Timestamp: 1, Difficulty: pow.NewDifficulty(110, 0, 0)},
	}
	// windowTarget=60, observed timespan=1 clamps up to windowTarget/4=15.
	got := consensus.NextDifficulty(pow.Cuckatoo, 60, samples)
	if got == 0 {
		t.Fatalf("expected nonzero difficulty")
	}
}

func TestNextDifficultyEra1NeverClamps(t *testing.T) {
	samples := []consensus.DifficultyData{
		{Timestamp: 0, Difficulty: pow.NewDifficulty(100, 0, 0)},
		{Timestamp: 1, Difficulty: pow.NewDifficulty(100, 0, 0)},
	}
	got := consensus.NextDifficultyEra1(pow.Cuckatoo, 60, samples)
	if got == 0 {
		t.Fatalf("expected nonzero difficulty")
	}
}

func TestNextPolicyRefillsWhenAllBottlesDrained(t *testing.T) {
	consensus.SetChainConfig(consensus.AutomatedTesting())
	prev := policy.New(0, 0, 0)
	_, next := consensus.NextPolicy(0, prev)
	if next.Get(pow.Cuckatoo) == 0 && next.Get(pow.RandomX) == 0 {
		t.Fatalf("expected refill to produce a nonzero emitted policy, got %v", next)
	}
}

func TestNextPolicyPicksFirstAvailableAlgorithm(t *testing.T) {
	consensus.SetChainConfig(consensus.AutomatedTesting())
	prev := policy.New(0, 0, 2)
	picked, next := consensus.NextPolicy(0, prev)
	if picked != pow.RandomX {
		t.Fatalf("expected RandomX (the only algorithm with bottles left), got %v", picked)
	}
	if next.Get(pow.RandomX) != 1 {
		t.Fatalf("expected RandomX's bottle count decremented to 1, got %v", next)
	}
}

func TestNextPolicyFallsBackToDefaultTableWhenNoBottlesFound(t *testing.T) {
	consensus.SetChainConfig(consensus.AutomatedTesting())
	picked, next := consensus.NextPolicy(0, nil)
	start := consensus.DefaultBottles(0)
	if start.Get(picked) == 0 || next.Get(picked) != start.Get(picked)-1 {
		t.Fatalf("expected the picked algorithm to have a nonzero starting bottle count, decremented by one, got %v from %v for %v", next, start, picked)
	}
}
