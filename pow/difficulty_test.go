package pow_test

import (
	"testing"

	"epic.dev/node/pow"
)

func TestDifficultySubSaturates(t *testing.T) {
	a := pow.NewDifficulty(5, 5, 5)
	b := pow.NewDifficulty(10, 2, 5)
	got := a.Sub(b)
	if got.ToNum(pow.Cuckatoo) != 0 {
		t.Fatalf("expected saturating sub to floor at 0, got %d", got.ToNum(pow.Cuckatoo))
	}
	if got.ToNum(pow.ProgPow) != 3 {
		t.Fatalf("expected 3, got %d", got.ToNum(pow.ProgPow))
	}
	if got.ToNum(pow.RandomX) != 0 {
		t.Fatalf("expected 0, got %d", got.ToNum(pow.RandomX))
	}
}

func TestDifficultyCmpMonotone(t *testing.T) {
	a := pow.NewDifficulty(1, 2, 3)
	b := pow.NewDifficulty(1, 2, 4)
	if a.Cmp(b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if !b.GreaterOrEqualComponentwise(a) {
		t.Fatalf("expected b >= a component-wise")
	}
}

func TestProofIsSecondaryOnlyForCuckatoo(t *testing.T) {
	p := pow.Proof{SecondaryScaling: 1}
	if !p.IsSecondary(pow.Cuckatoo) {
		t.Fatalf("expected secondary scaling to apply to Cuckatoo")
	}
	if p.IsSecondary(pow.RandomX) {
		t.Fatalf("expected RandomX to never report secondary scaling")
	}
}
