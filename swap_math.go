package clmm_simulator

import "github.com/shopspring/decimal"

type SwapStep struct {
	SqrtPriceNext decimal.Decimal
	AmountIn      decimal.Decimal
	AmountOut     decimal.Decimal
	FeeAmount     decimal.Decimal
}

// ComputeSwapStep advances the price from sqrtPriceCurrent toward
// sqrtPriceTarget inside a single liquidity interval. The fee is charged on
// the input token: for exact input the net amount is compared against the
// interval capacity, and when the interval is only partially consumed the fee
// is whatever remains of the gross input after the net amount, so input
// accounting closes exactly.
func ComputeSwapStep(
	sqrtPriceCurrent decimal.Decimal,
	sqrtPriceTarget decimal.Decimal,
	liquidity decimal.Decimal,
	amountRemaining decimal.Decimal,
	feeRate decimal.Decimal,
	byAmountIn bool,
) (SwapStep, error) {
	var (
		step SwapStep
		err  error
	)
	aToB := sqrtPriceCurrent.GreaterThanOrEqual(sqrtPriceTarget)
	feeRateComplement := FEE_RATE_DENOMINATOR.Sub(feeRate)

	if byAmountIn {
		amountRemainingLessFee, ferr := MulDivFloor(amountRemaining, feeRateComplement, FEE_RATE_DENOMINATOR)
		if ferr != nil {
			return step, ferr
		}
		if aToB {
			step.AmountIn, err = GetTokenAmountAFromLiquidity(sqrtPriceTarget, sqrtPriceCurrent, liquidity, true)
		} else {
			step.AmountIn, err = GetTokenAmountBFromLiquidity(sqrtPriceCurrent, sqrtPriceTarget, liquidity, true)
		}
		if err != nil {
			return step, err
		}
		if amountRemainingLessFee.GreaterThanOrEqual(step.AmountIn) {
			step.SqrtPriceNext = sqrtPriceTarget
		} else {
			step.SqrtPriceNext, err = GetNextSqrtPriceFromInput(sqrtPriceCurrent, liquidity, amountRemainingLessFee, aToB)
			if err != nil {
				return step, err
			}
		}
	} else {
		if aToB {
			step.AmountOut, err = GetTokenAmountBFromLiquidity(sqrtPriceTarget, sqrtPriceCurrent, liquidity, false)
		} else {
			step.AmountOut, err = GetTokenAmountAFromLiquidity(sqrtPriceCurrent, sqrtPriceTarget, liquidity, false)
		}
		if err != nil {
			return step, err
		}
		if amountRemaining.GreaterThanOrEqual(step.AmountOut) {
			step.SqrtPriceNext = sqrtPriceTarget
		} else {
			step.SqrtPriceNext, err = GetNextSqrtPriceFromOutput(sqrtPriceCurrent, liquidity, amountRemaining, aToB)
			if err != nil {
				return step, err
			}
		}
	}

	reachedTarget := step.SqrtPriceNext.Equal(sqrtPriceTarget)
	if aToB {
		if !(reachedTarget && byAmountIn) {
			step.AmountIn, err = GetTokenAmountAFromLiquidity(step.SqrtPriceNext, sqrtPriceCurrent, liquidity, true)
			if err != nil {
				return step, err
			}
		}
		if !(reachedTarget && !byAmountIn) {
			step.AmountOut, err = GetTokenAmountBFromLiquidity(step.SqrtPriceNext, sqrtPriceCurrent, liquidity, false)
			if err != nil {
				return step, err
			}
		}
	} else {
		if !(reachedTarget && byAmountIn) {
			step.AmountIn, err = GetTokenAmountBFromLiquidity(sqrtPriceCurrent, step.SqrtPriceNext, liquidity, true)
			if err != nil {
				return step, err
			}
		}
		if !(reachedTarget && !byAmountIn) {
			step.AmountOut, err = GetTokenAmountAFromLiquidity(sqrtPriceCurrent, step.SqrtPriceNext, liquidity, false)
			if err != nil {
				return step, err
			}
		}
	}
	// exact out never pays more than requested
	if !byAmountIn && step.AmountOut.GreaterThan(amountRemaining) {
		step.AmountOut = amountRemaining
	}
	if byAmountIn && !reachedTarget {
		step.FeeAmount = amountRemaining.Sub(step.AmountIn)
	} else {
		step.FeeAmount, err = MulDivCeil(step.AmountIn, feeRate, feeRateComplement)
		if err != nil {
			return step, err
		}
	}
	return step, nil
}
