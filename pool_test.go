package clmm_simulator

import (
	"github.com/daoleno/uniswapv3-sdk/constants"
	"github.com/daoleno/uniswapv3-sdk/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"math/big"
	"testing"
)

func TestCorePool_computeSwapStep(t *testing.T) {
	// the reference implementation runs in X96; scaling our X64 prices by
	// 2^32 makes every step amount directly comparable
	currentX64 := Q64
	targetX64, _ := TickIndexToSqrtPriceQ64(100)
	liquidity := decimal.NewFromInt(2).Mul(decimal.NewFromInt(10).Pow(decimal.NewFromInt(18)))
	amount := decimal.NewFromInt(10).Pow(decimal.NewFromInt(18))
	feeRate := decimal.NewFromInt(600)

	step, err := ComputeSwapStep(currentX64, targetX64, liquidity, amount, feeRate, true)
	assert.NoError(t, err)
	assert.Equal(t, step.AmountIn.String(), "10024539246102407")
	assert.Equal(t, step.AmountOut.String(), "9974544141498192")
	assert.Equal(t, step.FeeAmount.String(), "6018334548391")
	assert.Condition(t, func() bool { return step.SqrtPriceNext.Equal(targetX64) }, "a large amount reaches the target")

	currentX96 := utils.EncodeSqrtRatioX96(big.NewInt(1), big.NewInt(1))
	targetX96 := new(big.Int).Lsh(targetX64.BigInt(), 32)
	nextX96, amountIn, amountOut, feeAmount, err := utils.ComputeSwapStep(currentX96, targetX96, liquidity.BigInt(), amount.BigInt(), constants.FeeAmount(600))
	assert.NoError(t, err)
	assert.Condition(t, func() bool { return amountIn.Cmp(step.AmountIn.BigInt()) == 0 })
	assert.Condition(t, func() bool { return amountOut.Cmp(step.AmountOut.BigInt()) == 0 })
	assert.Condition(t, func() bool { return feeAmount.Cmp(step.FeeAmount.BigInt()) == 0 })
	assert.Condition(t, func() bool { return nextX96.Cmp(new(big.Int).Lsh(step.SqrtPriceNext.BigInt(), 32)) == 0 })

	stepOut, err := ComputeSwapStep(currentX64, targetX64, liquidity, decimal.NewFromInt(10).Pow(decimal.NewFromInt(16)), feeRate, false)
	assert.NoError(t, err)
	assert.Equal(t, stepOut.AmountOut.String(), "9974544141498192", "exact out caps at the range capacity")
	assert.Equal(t, stepOut.AmountIn.String(), "10024539246102407")
}

func newTestPool() *CorePool {
	pool := NewCorePoolFromConfig("pool-1", PoolConfig{
		TickSpacing: 60,
		TokenA:      "WETH",
		TokenB:      "USDC",
		FeeRate:     FeeRateMedium,
	})
	_ = pool.Initialize(Q64)
	return pool
}

func TestCorePool_Initialize(t *testing.T) {
	pool := NewCorePoolFromConfig("pool-1", PoolConfig{
		TickSpacing: 60,
		TokenA:      "WETH",
		TokenB:      "USDC",
		FeeRate:     FeeRateMedium,
	})
	assert.False(t, pool.Initialized())

	_, _, err := pool.AddLiquidity("lp1", -60, 60, decimal.NewFromInt(1000))
	assert.EqualError(t, err, "pool not initialized")

	err = pool.Initialize(ONE)
	assert.ErrorIs(t, err, PRICE_OUT_OF_BOUNDS, "price below the supported range")

	err = pool.Initialize(Q64)
	assert.NoError(t, err)
	assert.True(t, pool.Initialized())
	assert.Equal(t, pool.CurrentTickIndex, 0)

	err = pool.Initialize(Q64)
	assert.EqualError(t, err, "Already initialized!")
}

func TestCorePool_tickChecks(t *testing.T) {
	pool := newTestPool()
	liquidity := decimal.NewFromInt(1000)

	_, _, err := pool.AddLiquidity("lp1", 60, 60, liquidity)
	assert.EqualError(t, err, "TLU")

	_, _, err = pool.AddLiquidity("lp1", MIN_TICK-60, 60, liquidity)
	assert.EqualError(t, err, "TLM")

	_, _, err = pool.AddLiquidity("lp1", -60, MAX_TICK+60, liquidity)
	assert.EqualError(t, err, "TUM")

	_, _, err = pool.AddLiquidity("lp1", -90, 60, liquidity)
	assert.EqualError(t, err, "TICK_SPACING")

	_, _, err = pool.AddLiquidity("lp1", -60, 60, ZERO)
	assert.ErrorIs(t, err, INVALID_AMOUNT)
}

func TestCorePool_AddRemoveLiquidity(t *testing.T) {
	pool := newTestPool()

	amountA, amountB, err := pool.AddLiquidity("lp2", -60, 60, decimal.NewFromInt(500000))
	assert.NoError(t, err)
	assert.Equal(t, amountA.String(), "1498", "amounts rounded up against the owner")
	assert.Equal(t, amountB.String(), "1498")
	assert.Equal(t, pool.Liquidity.String(), "500000")
	assert.Equal(t, pool.TokenABalance.String(), "1498")
	assert.Equal(t, pool.TokenBBalance.String(), "1498")

	lower, err := pool.TickManager.GetTickReadonly(-60)
	assert.NoError(t, err)
	assert.Equal(t, lower.LiquidityNet.String(), "500000")
	assert.Equal(t, lower.LiquidityGross.String(), "500000")
	upper, err := pool.TickManager.GetTickReadonly(60)
	assert.NoError(t, err)
	assert.Equal(t, upper.LiquidityNet.String(), "-500000")

	amountA, amountB, err = pool.RemoveLiquidity("lp2", -60, 60, decimal.NewFromInt(500000))
	assert.NoError(t, err)
	assert.Equal(t, amountA.String(), "1497", "amounts rounded down on the way out")
	assert.Equal(t, amountB.String(), "1497")
	assert.Equal(t, pool.Liquidity.String(), "0")
	assert.Equal(t, pool.TokenABalance.String(), "1", "rounding dust stays in the pool")
	assert.Equal(t, pool.TokenBBalance.String(), "1")
	assert.Equal(t, len(pool.TickManager.GetSortedTicks()), 0, "emptied ticks are dropped")

	_, _, err = pool.RemoveLiquidity("lp2", -60, 60, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, UNDERFLOW, "removing from an empty position")
}

func TestCorePool_ExecuteSwap(t *testing.T) {
	pool := newTestPool()
	amountA, amountB, err := pool.AddLiquidity("lp1", -600, 600, decimal.NewFromInt(1000000))
	assert.NoError(t, err)
	assert.Equal(t, amountA.String(), "29554")
	assert.Equal(t, amountB.String(), "29554")
	_, _, err = pool.AddLiquidity("lp2", -60, 60, decimal.NewFromInt(500000))
	assert.NoError(t, err)
	assert.Equal(t, pool.Liquidity.String(), "1500000")

	result, err := pool.ExecuteSwap(true, true, decimal.NewFromInt(5000))
	assert.NoError(t, err)
	assert.Equal(t, result.AmountIn.String(), "5000")
	assert.Equal(t, result.AmountOut.String(), "4968")
	assert.Equal(t, result.FeeAmount.String(), "14")
	assert.Equal(t, result.NextSqrtPrice.String(), "18382710584112175469")
	assert.Equal(t, result.CrossTickCount, 1)
	assert.False(t, result.IsExceedLimit)
	assert.Equal(t, result.CrossedTicks[0].TickIndex, -60)

	assert.Equal(t, pool.Liquidity.String(), "1000000", "crossing -60 deactivates lp2's range")
	assert.Equal(t, pool.CurrentTickIndex, -70)
	assert.Equal(t, pool.FeeGrowthGlobalA.String(), "184467440737095")
	assert.Equal(t, pool.FeeGrowthGlobalB.String(), "0")
	assert.Equal(t, pool.TokenABalance.String(), "36052")
	assert.Equal(t, pool.TokenBBalance.String(), "26084")

	lower, err := pool.TickManager.GetTickReadonly(-60)
	assert.NoError(t, err)
	assert.Equal(t, lower.FeeGrowthOutsideA.String(), "147573952589676", "outside tracker flipped at the crossing")
	assert.Equal(t, lower.FeeGrowthOutsideB.String(), "0")

	feeA, feeB, err := pool.FeeOwed("lp1", -600, 600)
	assert.NoError(t, err)
	assert.Equal(t, feeA.String(), "9")
	assert.Equal(t, feeB.String(), "0")

	feeA, feeB, err = pool.FeeOwed("lp2", -60, 60)
	assert.NoError(t, err)
	assert.Equal(t, feeA.String(), "3", "accrued only while the range was active")
	assert.Equal(t, feeB.String(), "0")

	collectedA, collectedB, err := pool.CollectFees("lp1", -600, 600, decimal.NewFromInt(1000000), decimal.NewFromInt(1000000))
	assert.NoError(t, err)
	assert.Equal(t, collectedA.String(), "9")
	assert.Equal(t, collectedB.String(), "0")
	assert.Equal(t, pool.TokenABalance.String(), "36043")

	feeA, _, err = pool.FeeOwed("lp1", -600, 600)
	assert.NoError(t, err)
	assert.Equal(t, feeA.String(), "0", "nothing left after collect")
}

func TestCorePool_Quote(t *testing.T) {
	pool := newTestPool()
	_, _, err := pool.AddLiquidity("lp1", -600, 600, decimal.NewFromInt(1000000))
	assert.NoError(t, err)

	quoted, err := pool.Quote(true, true, decimal.NewFromInt(5000))
	assert.NoError(t, err)
	assert.Equal(t, quoted.AmountIn.String(), "5000")
	assert.Condition(t, func() bool { return pool.CurrentSqrtPrice.Equal(Q64) }, "quote leaves the pool untouched")
	assert.Equal(t, pool.CurrentTickIndex, 0)

	executed, err := pool.ExecuteSwap(true, true, decimal.NewFromInt(5000))
	assert.NoError(t, err)
	assert.Condition(t, func() bool { return executed.AmountOut.Equal(quoted.AmountOut) }, "executing matches the quote")
	assert.Condition(t, func() bool { return pool.CurrentSqrtPrice.Equal(executed.NextSqrtPrice) })
}

func TestCorePool_SwapOntoTickBoundary(t *testing.T) {
	pool := newTestPool()
	_, _, err := pool.AddLiquidity("lp1", -600, 600, decimal.NewFromInt(1000000))
	assert.NoError(t, err)
	_, _, err = pool.AddLiquidity("lp2", -60, 60, decimal.NewFromInt(500000))
	assert.NoError(t, err)

	// 4507 fills the range down to tick -60 exactly, 12 covers the fee
	result, err := pool.ExecuteSwap(true, true, decimal.NewFromInt(4519))
	assert.NoError(t, err)
	priceAtBoundary, _ := TickIndexToSqrtPriceQ64(-60)
	assert.Condition(t, func() bool { return result.NextSqrtPrice.Equal(priceAtBoundary) }, "swap lands exactly on the tick price")
	assert.Equal(t, result.CrossTickCount, 1)
	assert.False(t, result.IsExceedLimit)
	assert.Equal(t, pool.CurrentTickIndex, -61, "landing on a boundary moving down puts the pool below it")
	assert.Equal(t, pool.Liquidity.String(), "1000000")
}

func TestCorePool_SwapResumesBelowBoundary(t *testing.T) {
	pool := newTestPool()
	_, _, err := pool.AddLiquidity("lp1", -600, 600, decimal.NewFromInt(1000000))
	assert.NoError(t, err)
	_, _, err = pool.AddLiquidity("lp2", -60, 60, decimal.NewFromInt(500000))
	assert.NoError(t, err)
	_, err = pool.ExecuteSwap(true, true, decimal.NewFromInt(4519))
	assert.NoError(t, err)

	// -60 was already crossed on the way down; the next swap must not
	// apply its liquidity a second time
	result, err := pool.ExecuteSwap(true, true, decimal.NewFromInt(1000))
	assert.NoError(t, err)
	assert.Equal(t, result.CrossTickCount, 0)
	assert.Equal(t, result.AmountOut.String(), "990")
	assert.Equal(t, pool.Liquidity.String(), "1000000")
	assert.Equal(t, pool.CurrentTickIndex, -80)
	assert.Equal(t, pool.CurrentSqrtPrice.String(), "18373226290048190528")
	assert.Equal(t, pool.FeeGrowthGlobalA.String(), "202914184810804")
}

func TestCorePool_SwapBackAcrossBoundary(t *testing.T) {
	pool := newTestPool()
	_, _, err := pool.AddLiquidity("lp1", -600, 600, decimal.NewFromInt(1000000))
	assert.NoError(t, err)
	_, _, err = pool.AddLiquidity("lp2", -60, 60, decimal.NewFromInt(500000))
	assert.NoError(t, err)
	_, err = pool.ExecuteSwap(true, true, decimal.NewFromInt(4519))
	assert.NoError(t, err)

	// moving back up re-crosses -60, putting lp2's liquidity back in range
	result, err := pool.ExecuteSwap(false, true, decimal.NewFromInt(3000))
	assert.NoError(t, err)
	assert.Equal(t, result.CrossTickCount, 1)
	assert.Equal(t, result.AmountOut.String(), "3003")
	assert.Equal(t, pool.Liquidity.String(), "1500000")
	assert.Equal(t, pool.CurrentTickIndex, -21)
	assert.Equal(t, pool.CurrentSqrtPrice.String(), "18428284632940307197")
}

func TestCorePool_AccrueReward(t *testing.T) {
	pool := newTestPool()
	_, _, err := pool.AddLiquidity("lp1", -600, 600, decimal.NewFromInt(1000000))
	assert.NoError(t, err)

	err = pool.AccrueReward(0, dec("9223372036854775808"))
	assert.NoError(t, err)

	owed, err := pool.RewardsOwed("lp1", -600, 600)
	assert.NoError(t, err)
	assert.Equal(t, len(owed), NUM_REWARDS)
	assert.Equal(t, owed[0].RewarderIndex, 0)
	assert.Equal(t, owed[0].AmountOwed.String(), "500000")
	assert.Equal(t, owed[1].AmountOwed.String(), "0")

	collected, err := pool.CollectReward("lp1", -600, 600, 0, decimal.NewFromInt(200000))
	assert.NoError(t, err)
	assert.Equal(t, collected.String(), "200000", "partial reward collect")

	owed, err = pool.RewardsOwed("lp1", -600, 600)
	assert.NoError(t, err)
	assert.Equal(t, owed[0].AmountOwed.String(), "300000")

	err = pool.AccrueReward(NUM_REWARDS, ONE)
	assert.EqualError(t, err, "rewarder index out of range")

	err = pool.AccrueReward(0, dec("-1"))
	assert.ErrorIs(t, err, INVALID_AMOUNT)
}

func TestCorePool_CollectFeesUnknownPosition(t *testing.T) {
	pool := newTestPool()
	amountA, amountB, err := pool.CollectFees("nobody", -60, 60, decimal.NewFromInt(10), decimal.NewFromInt(10))
	assert.NoError(t, err)
	assert.Equal(t, amountA.String(), "0")
	assert.Equal(t, amountB.String(), "0")
}

func TestCorePool_AddLiquidityAboveTickMax(t *testing.T) {
	pool := newTestPool()
	tooMuch := TickSpacingToMaxLiquidityPerTick(60).Add(ONE)
	_, _, err := pool.AddLiquidity("lp1", -60, 60, tooMuch)
	assert.EqualError(t, err, "LO")
}

func TestTickSpacingToMaxLiquidityPerTick(t *testing.T) {
	type args struct {
		tickSpacing int
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{name: "spacing 2", args: args{tickSpacing: 2}, want: "767028825190275976673213928125400"},
		{name: "spacing 10", args: args{tickSpacing: 10}, want: "3835161415588698631345301964810804"},
		{name: "spacing 60", args: args{tickSpacing: 60}, want: "23012265295255187899058267899625901"},
		{name: "spacing 200", args: args{tickSpacing: 200}, want: "76691991643213536953656661580294841"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TickSpacingToMaxLiquidityPerTick(tt.args.tickSpacing)
			assert.Equalf(t, tt.want, got.String(), "TickSpacingToMaxLiquidityPerTick(%v)", tt.args.tickSpacing)
		})
	}
}

func TestCorePool_Clone(t *testing.T) {
	pool := newTestPool()
	_, _, err := pool.AddLiquidity("lp1", -600, 600, decimal.NewFromInt(1000000))
	assert.NoError(t, err)

	cloned := pool.Clone()
	_, err = cloned.ExecuteSwap(true, true, decimal.NewFromInt(5000))
	assert.NoError(t, err)

	assert.Condition(t, func() bool { return pool.CurrentSqrtPrice.Equal(Q64) }, "the source pool is untouched")
	assert.Equal(t, pool.CurrentTickIndex, 0)
	assert.Equal(t, pool.FeeGrowthGlobalA.String(), "0")
	assert.Condition(t, func() bool { return !cloned.CurrentSqrtPrice.Equal(Q64) })

	_, _, err = cloned.AddLiquidity("lp2", -60, 60, decimal.NewFromInt(500000))
	assert.NoError(t, err)
	assert.Equal(t, len(pool.TickManager.GetSortedTicks()), 2, "tick managers are independent")
	assert.Equal(t, len(cloned.TickManager.GetSortedTicks()), 4)
}
