/*

This file contains the slippage arithmetic used by the plan compiler. All math
is integer math on base units so a minimum-out bound can never be off by a
rounding mode.

*/

package planner

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var ErrInvalidSlippage = errors.New("invalid slippage")

const bpsDenominator = 10_000

// MinimumOut computes the guaranteed minimum received amount for an expected
// amount and a slippage tolerance in basis points. The haircut is floored, so
// the bound is never looser than the tolerance, and the result is clamped at
// zero for degenerate tolerances above 100%.
func MinimumOut(expected sdkmath.Int, slippageBps int64) (sdkmath.Int, error) {
	if slippageBps < 0 {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidSlippage, fmt.Errorf("slippage bps must be non-negative, got %d", slippageBps))
	}
	if expected.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidSlippage, fmt.Errorf("expected amount must be non-negative, got %s", expected.String()))
	}

	haircut := expected.Mul(sdkmath.NewInt(slippageBps)).Quo(sdkmath.NewInt(bpsDenominator))
	minOut := expected.Sub(haircut)
	if minOut.IsNegative() {
		return sdkmath.ZeroInt(), nil
	}
	return minOut, nil
}
