package clmm_simulator

import (
	"github.com/shopspring/decimal"
)

// TickSpacingToMaxLiquidityPerTick returns the largest liquidity one tick may
// carry so that the sum over every usable tick stays inside u128.
func TickSpacingToMaxLiquidityPerTick(tickSpacing int) decimal.Decimal {
	minTick := (MIN_TICK / tickSpacing) * tickSpacing
	maxTick := (MAX_TICK / tickSpacing) * tickSpacing
	numTicks := (maxTick-minTick)/tickSpacing + 1
	return MaxUint128.Div(decimal.NewFromInt(int64(numTicks))).Floor()
}
