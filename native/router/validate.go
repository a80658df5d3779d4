package router

import "routevault/core/types"

// Validate runs the static checks on a caller-supplied route plan. It is
// pure: no state is read or written, and the checks run in a fixed order so
// a malformed plan always surfaces the same error.
func Validate(plan Plan, accountsLen int, slippageBps uint32) error {
	if len(plan.Steps) == 0 {
		return ErrEmptyRoute
	}
	for _, step := range plan.Steps {
		if int(step.InputIndex) >= accountsLen {
			return ErrInvalidInputIndex
		}
		if int(step.OutputIndex) >= accountsLen {
			return ErrInvalidOutputIndex
		}
		for _, idx := range step.Accounts {
			if int(idx) >= accountsLen {
				return ErrNotEnoughAccountKeys
			}
		}
	}
	for _, hop := range plan.hopGroups() {
		total := 0
		for _, step := range hop {
			if step.Percent == 0 || step.Percent > 100 {
				return ErrInvalidPartialPercent
			}
			total += int(step.Percent)
		}
		if total > 100 {
			return ErrInvalidPartialPercent
		}
		if total < 100 {
			return ErrNotEnoughPercent
		}
	}
	if slippageBps > types.MaxBps {
		return ErrInvalidSlippage
	}
	return nil
}
