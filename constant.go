package clmm_simulator

import (
	"github.com/shopspring/decimal"
)

const (
	NUM_REWARDS         = 3
	MAX_SWAP_TICK_CROSS = 100
)

var (
	ZERO = decimal.Zero
	ONE  = decimal.NewFromInt(1)

	Q64  = decimal.NewFromInt(2).Pow(decimal.NewFromInt(64))
	Q96  = decimal.NewFromInt(2).Pow(decimal.NewFromInt(96))
	Q128 = decimal.NewFromInt(2).Pow(decimal.NewFromInt(128))

	MaxUint128 = decimal.NewFromInt(2).Pow(decimal.NewFromInt(128)).Sub(decimal.NewFromInt(1))
	MaxUint256 = decimal.NewFromInt(2).Pow(decimal.NewFromInt(256)).Sub(decimal.NewFromInt(1))
	MaxInt128  = decimal.NewFromInt(2).Pow(decimal.NewFromInt(127)).Sub(decimal.NewFromInt(1))
	MinInt128  = decimal.NewFromInt(2).Pow(decimal.NewFromInt(127)).Neg()

	MIN_TICK int = -443636
	MAX_TICK int = -MIN_TICK

	MIN_SQRT_PRICE_X64    = decimal.NewFromInt(4295048016)
	MAX_SQRT_PRICE_X64, _ = decimal.NewFromString("79226673515401279992447579055")

	FEE_RATE_DENOMINATOR = decimal.NewFromInt(10).Pow(decimal.NewFromInt(6))

	// growth deltas above this come from mismatched snapshots, not real accrual
	MAX_GROWTH_DELTA = Q128.Div(decimal.NewFromInt(100)).Floor()

	TICK_SPACINGS = map[FeeRate]int{
		FeeRateLowest: 2,
		FeeRateLow:    10,
		FeeRateMedium: 60,
		FeeRateHigh:   200,
	}
)
