package router

import (
	"errors"
	"testing"

	"routevault/native/dex"
)

func step(percent uint8, in, out uint16, accounts ...uint16) Step {
	return Step{
		Swap:        dex.SwapConstantProduct,
		Percent:     percent,
		InputIndex:  in,
		OutputIndex: out,
		Accounts:    accounts,
	}
}

func TestValidateRejectsEmptyPlan(t *testing.T) {
	if err := Validate(Plan{}, 4, 0); !errors.Is(err, ErrEmptyRoute) {
		t.Fatalf("expected ErrEmptyRoute, got %v", err)
	}
}

func TestValidateIndexBounds(t *testing.T) {
	plan := Plan{Steps: []Step{step(100, 9, 1, 0)}}
	if err := Validate(plan, 4, 0); !errors.Is(err, ErrInvalidInputIndex) {
		t.Fatalf("expected ErrInvalidInputIndex, got %v", err)
	}

	plan = Plan{Steps: []Step{step(100, 0, 9, 0)}}
	if err := Validate(plan, 4, 0); !errors.Is(err, ErrInvalidOutputIndex) {
		t.Fatalf("expected ErrInvalidOutputIndex, got %v", err)
	}

	plan = Plan{Steps: []Step{step(100, 0, 1, 0, 42)}}
	if err := Validate(plan, 4, 0); !errors.Is(err, ErrNotEnoughAccountKeys) {
		t.Fatalf("expected ErrNotEnoughAccountKeys, got %v", err)
	}
}

func TestValidatePercentSums(t *testing.T) {
	// 60 + 30 leaves 10% unrouted.
	plan := Plan{Steps: []Step{step(60, 0, 1), step(30, 0, 1)}}
	if err := Validate(plan, 4, 0); !errors.Is(err, ErrNotEnoughPercent) {
		t.Fatalf("expected ErrNotEnoughPercent, got %v", err)
	}

	// 60 + 50 overbooks the hop.
	plan = Plan{Steps: []Step{step(60, 0, 1), step(50, 0, 1)}}
	if err := Validate(plan, 4, 0); !errors.Is(err, ErrInvalidPartialPercent) {
		t.Fatalf("expected ErrInvalidPartialPercent, got %v", err)
	}

	// Zero percent is never a valid split.
	plan = Plan{Steps: []Step{step(0, 0, 1), step(100, 0, 1)}}
	if err := Validate(plan, 4, 0); !errors.Is(err, ErrInvalidPartialPercent) {
		t.Fatalf("expected ErrInvalidPartialPercent, got %v", err)
	}

	// Chained hops are checked independently: each must sum to 100.
	plan = Plan{Steps: []Step{
		step(50, 0, 1), step(50, 0, 1),
		step(100, 1, 2),
	}}
	if err := Validate(plan, 4, 0); err != nil {
		t.Fatalf("valid chained plan rejected: %v", err)
	}
}

func TestValidateSlippageCeiling(t *testing.T) {
	plan := Plan{Steps: []Step{step(100, 0, 1)}}
	if err := Validate(plan, 4, 10_001); !errors.Is(err, ErrInvalidSlippage) {
		t.Fatalf("expected ErrInvalidSlippage, got %v", err)
	}
}

func TestHopGroupsPreserveOrder(t *testing.T) {
	plan := Plan{Steps: []Step{
		step(50, 0, 1),
		step(100, 1, 2),
		step(50, 0, 1),
	}}
	hops := plan.hopGroups()
	if len(hops) != 2 {
		t.Fatalf("hop count = %d, want 2", len(hops))
	}
	if len(hops[0]) != 2 || hops[0][0].InputIndex != 0 {
		t.Fatalf("first hop grouping wrong: %+v", hops[0])
	}
	if len(hops[1]) != 1 || hops[1][0].InputIndex != 1 {
		t.Fatalf("second hop grouping wrong: %+v", hops[1])
	}
}
