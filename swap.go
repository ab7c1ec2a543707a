package clmm_simulator

import (
	"errors"
	"github.com/shopspring/decimal"
)

var INVALID_AMOUNT = errors.New("INVALID_AMOUNT")
var MALFORMED_TICK_DATA = errors.New("MALFORMED_TICK_DATA")

// PoolSnapshot is the read-only pool state a swap simulation runs against.
type PoolSnapshot struct {
	Liquidity             decimal.Decimal
	CurrentSqrtPrice      decimal.Decimal
	CurrentTickIndex      int
	FeeRate               FeeRate
	TickSpacing           int
	FeeGrowthGlobalA      decimal.Decimal
	FeeGrowthGlobalB      decimal.Decimal
	RewarderGrowthGlobals [NUM_REWARDS]decimal.Decimal
}

// CrossedTick records one tick crossing together with the input-side fee
// growth accumulated from the start of the swap up to the moment of the
// crossing. Applying the swap needs that running value to flip the tick's
// outside trackers consistently.
type CrossedTick struct {
	TickIndex      int
	FeeGrowthDelta decimal.Decimal
}

type SwapResult struct {
	AmountIn       decimal.Decimal
	AmountOut      decimal.Decimal
	FeeAmount      decimal.Decimal
	NextSqrtPrice  decimal.Decimal
	CrossTickCount int
	// IsExceedLimit marks a partial fill: the requested amount could not be
	// satisfied before the swap ran into its price bound or the crossing cap.
	IsExceedLimit bool

	// FeeGrowthDelta is the input-side fee growth per unit of liquidity
	// accumulated over the whole swap, Q64.64.
	FeeGrowthDelta decimal.Decimal
	CrossedTicks   []CrossedTick
}

type swapState struct {
	amountRemaining decimal.Decimal
	sqrtPrice       decimal.Decimal
	liquidity       decimal.Decimal
	totalAmountIn   decimal.Decimal
	totalAmountOut  decimal.Decimal
	totalFee        decimal.Decimal
	feeGrowthDelta  decimal.Decimal
	crossCount      int
}

// SimulateSwap walks the price across the supplied tick sequence without
// touching any shared state. ticks must be ordered in the direction of
// travel: descending indices for aToB, ascending for bToA. Moving down
// crosses only ticks at or below the pool's current tick index, moving up
// only ticks above it. The walk stops when the amount is exhausted, the
// hard price bound is reached, or MAX_SWAP_TICK_CROSS ticks have been
// crossed; in the two latter cases the result is a partial fill, not an
// error.
func SimulateSwap(aToB bool, byAmountIn bool, amount decimal.Decimal, pool *PoolSnapshot, ticks []Tick) (*SwapResult, error) {
	if !amount.IsPositive() {
		return nil, INVALID_AMOUNT
	}
	if pool.CurrentSqrtPrice.LessThan(MIN_SQRT_PRICE_X64) || pool.CurrentSqrtPrice.GreaterThan(MAX_SQRT_PRICE_X64) {
		return nil, PRICE_OUT_OF_BOUNDS
	}
	if err := validateSwapTicks(aToB, ticks); err != nil {
		return nil, err
	}
	sqrtPriceLimit := DefaultSqrtPriceLimit(aToB)
	feeRate := decimal.NewFromInt(int64(pool.FeeRate))

	state := &swapState{
		amountRemaining: amount,
		sqrtPrice:       pool.CurrentSqrtPrice,
		liquidity:       pool.Liquidity,
		totalAmountIn:   ZERO,
		totalAmountOut:  ZERO,
		totalFee:        ZERO,
		feeGrowthDelta:  ZERO,
	}
	result := &SwapResult{}

	nextTickIdx := 0
	for state.amountRemaining.IsPositive() && !state.sqrtPrice.Equal(sqrtPriceLimit) && state.crossCount < MAX_SWAP_TICK_CROSS {
		var (
			targetPrice  decimal.Decimal
			crossingTick *Tick
		)
		for nextTickIdx < len(ticks) {
			// which side of an exactly-priced boundary the pool sits on is
			// carried by CurrentTickIndex, not by the price itself
			if (aToB && ticks[nextTickIdx].TickIndex > pool.CurrentTickIndex) || (!aToB && ticks[nextTickIdx].TickIndex <= pool.CurrentTickIndex) {
				nextTickIdx++
				continue
			}
			tickPrice, err := TickIndexToSqrtPriceQ64(ticks[nextTickIdx].TickIndex)
			if err != nil {
				return nil, err
			}
			targetPrice = tickPrice
			crossingTick = &ticks[nextTickIdx]
			break
		}
		if crossingTick == nil {
			targetPrice = sqrtPriceLimit
		} else if (aToB && targetPrice.LessThan(sqrtPriceLimit)) || (!aToB && targetPrice.GreaterThan(sqrtPriceLimit)) {
			targetPrice = sqrtPriceLimit
			crossingTick = nil
		}

		step, err := ComputeSwapStep(state.sqrtPrice, targetPrice, state.liquidity, state.amountRemaining, feeRate, byAmountIn)
		if err != nil {
			return nil, err
		}
		if byAmountIn {
			state.amountRemaining = state.amountRemaining.Sub(step.AmountIn).Sub(step.FeeAmount)
		} else {
			state.amountRemaining = state.amountRemaining.Sub(step.AmountOut)
		}
		state.totalAmountIn = state.totalAmountIn.Add(step.AmountIn).Add(step.FeeAmount)
		state.totalAmountOut = state.totalAmountOut.Add(step.AmountOut)
		state.totalFee = state.totalFee.Add(step.FeeAmount)
		if step.FeeAmount.IsPositive() && state.liquidity.IsPositive() {
			growth, gerr := MulDivFloor(step.FeeAmount, Q64, state.liquidity)
			if gerr != nil {
				return nil, gerr
			}
			state.feeGrowthDelta = state.feeGrowthDelta.Add(growth)
		}
		state.sqrtPrice = step.SqrtPriceNext

		if crossingTick != nil && step.SqrtPriceNext.Equal(targetPrice) {
			liquidityNet := crossingTick.LiquidityNet
			if aToB {
				liquidityNet = liquidityNet.Neg()
			}
			state.liquidity, err = LiquidityAddDelta(state.liquidity, liquidityNet)
			if err != nil {
				return nil, err
			}
			state.crossCount++
			result.CrossedTicks = append(result.CrossedTicks, CrossedTick{
				TickIndex:      crossingTick.TickIndex,
				FeeGrowthDelta: state.feeGrowthDelta,
			})
			nextTickIdx++
		}
	}

	result.AmountIn = state.totalAmountIn
	result.AmountOut = state.totalAmountOut
	result.FeeAmount = state.totalFee
	result.NextSqrtPrice = state.sqrtPrice
	result.CrossTickCount = state.crossCount
	result.IsExceedLimit = state.amountRemaining.IsPositive()
	result.FeeGrowthDelta = state.feeGrowthDelta
	return result, nil
}

func validateSwapTicks(aToB bool, ticks []Tick) error {
	for i := range ticks {
		if ticks[i].TickIndex < MIN_TICK || ticks[i].TickIndex > MAX_TICK {
			return INVALID_TICK
		}
		if i == 0 {
			continue
		}
		if aToB && ticks[i].TickIndex >= ticks[i-1].TickIndex {
			return MALFORMED_TICK_DATA
		}
		if !aToB && ticks[i].TickIndex <= ticks[i-1].TickIndex {
			return MALFORMED_TICK_DATA
		}
	}
	return nil
}
