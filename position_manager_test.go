package clmm_simulator

import (
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"testing"
)

var noRewards = [NUM_REWARDS]decimal.Decimal{ZERO, ZERO, ZERO}

func TestPosition_Update(t *testing.T) {
	position := NewPosition()

	err := position.Update(ZERO, ZERO, ZERO, noRewards)
	assert.EqualError(t, err, "NP", "settling an empty position")

	err = position.Update(decimal.NewFromInt(1000000), ZERO, ZERO, noRewards)
	assert.NoError(t, err)
	assert.Equal(t, position.Liquidity.String(), "1000000")

	err = position.Update(ZERO, dec("5534023222112865"), ZERO, noRewards)
	assert.NoError(t, err)
	assert.Equal(t, position.FeeOwedA.String(), "299")
	assert.Equal(t, position.FeeOwedB.String(), "0")
	assert.Condition(t, func() bool { return position.FeeGrowthInsideALast.Equal(dec("5534023222112865")) })

	// settling again at the same growth accrues nothing
	err = position.Update(ZERO, dec("5534023222112865"), ZERO, noRewards)
	assert.NoError(t, err)
	assert.Equal(t, position.FeeOwedA.String(), "299")

	err = position.Update(decimal.NewFromInt(-1000000), dec("5534023222112865"), ZERO, noRewards)
	assert.NoError(t, err)
	assert.Equal(t, position.Liquidity.String(), "0")
	assert.Equal(t, position.FeeOwedA.String(), "299", "owed fees survive a full burn")
}

func TestPosition_wrappedGrowth(t *testing.T) {
	position := NewPosition()
	err := position.Update(dec("9223372036854775808"), dec("340282366920938463463374607431768211451"), ZERO, noRewards)
	assert.NoError(t, err)

	// growth wrapped past 2^128: 5 - (2^128 - 5) is a delta of 10
	err = position.Update(ZERO, dec("5"), ZERO, noRewards)
	assert.NoError(t, err)
	assert.Equal(t, position.FeeOwedA.String(), "5")
}

func TestPosition_clampedGrowth(t *testing.T) {
	position := NewPosition()
	err := position.Update(Q64, ZERO, ZERO, noRewards)
	assert.NoError(t, err)

	err = position.Update(ZERO, MAX_GROWTH_DELTA.Add(ONE), ZERO, noRewards)
	assert.NoError(t, err)
	assert.Equal(t, position.FeeOwedA.String(), "1", "implausible delta collapses to one unit")
}

func TestComputeFeeOwed(t *testing.T) {
	pool := &PoolSnapshot{
		Liquidity:        decimal.NewFromInt(1000000),
		CurrentSqrtPrice: dec("18382710584112175469"),
		CurrentTickIndex: -70,
		FeeRate:          FeeRateMedium,
		TickSpacing:      60,
		FeeGrowthGlobalA: dec("184467440737095"),
		FeeGrowthGlobalB: ZERO,
	}
	position := NewPosition()
	position.Liquidity = decimal.NewFromInt(1000000)
	position.FeeOwedA = decimal.NewFromInt(2)
	lower, _ := NewTick(-600)
	upper, _ := NewTick(600)

	feeA, feeB, err := ComputeFeeOwed(pool, position, lower, upper)
	assert.NoError(t, err)
	assert.Equal(t, feeA.String(), "11", "previously owed plus the fresh delta")
	assert.Equal(t, feeB.String(), "0")

	// the preview must not move the position's stored snapshot
	assert.Equal(t, position.FeeOwedA.String(), "2")
	assert.Condition(t, func() bool { return position.FeeGrowthInsideALast.Equal(ZERO) })

	again, _, err := ComputeFeeOwed(pool, position, lower, upper)
	assert.NoError(t, err)
	assert.Equal(t, again.String(), "11", "previewing twice gives the same answer")
}

func TestComputeRewardsOwed(t *testing.T) {
	pool := &PoolSnapshot{
		Liquidity:        decimal.NewFromInt(2),
		CurrentSqrtPrice: Q64,
		CurrentTickIndex: 0,
		FeeRate:          FeeRateMedium,
		TickSpacing:      60,
	}
	position := NewPosition()
	position.Liquidity = decimal.NewFromInt(2)
	lower, _ := NewTick(-60)
	upper, _ := NewTick(60)

	globals := []decimal.Decimal{dec("10000"), ZERO, ZERO}
	owed, err := ComputeRewardsOwed(pool, position, lower, upper, globals)
	assert.NoError(t, err)
	assert.Equal(t, len(owed), NUM_REWARDS)
	assert.Equal(t, owed[0].RewarderIndex, 0)
	assert.Equal(t, owed[0].GrowthInside.String(), "10000")
	assert.Equal(t, owed[0].AmountOwed.String(), "0", "growth too small to pay a unit at this liquidity")

	globals[0] = Q64.Mul(decimal.NewFromInt(5))
	owed, err = ComputeRewardsOwed(pool, position, lower, upper, globals)
	assert.NoError(t, err)
	assert.Equal(t, owed[0].AmountOwed.String(), "10")
	assert.Equal(t, owed[1].AmountOwed.String(), "0")
}

func TestGetPositionKey(t *testing.T) {
	assert.Equal(t, GetPositionKey("alice", -100, 200), "alice_-100_200")
}

func TestPositionManager_CollectPosition(t *testing.T) {
	pm := NewPositionManager()
	position := pm.GetPositionAndInitIfAbsent(GetPositionKey("alice", -100, 200))
	position.FeeOwedA = decimal.NewFromInt(100)
	position.FeeOwedB = decimal.NewFromInt(50)

	amountA, amountB, err := pm.CollectPosition("alice", -100, 200, decimal.NewFromInt(200), decimal.NewFromInt(20))
	assert.NoError(t, err)
	assert.Equal(t, amountA.String(), "100", "clamped to what is owed")
	assert.Equal(t, amountB.String(), "20")
	assert.Equal(t, len(pm.Positions), 1, "position still owes token B")

	amountA, amountB, err = pm.CollectPosition("alice", -100, 200, ZERO, decimal.NewFromInt(30))
	assert.NoError(t, err)
	assert.Equal(t, amountA.String(), "0")
	assert.Equal(t, amountB.String(), "30")
	assert.Equal(t, len(pm.Positions), 0, "drained position is dropped")

	amountA, amountB, err = pm.CollectPosition("nobody", -100, 200, decimal.NewFromInt(10), decimal.NewFromInt(10))
	assert.NoError(t, err)
	assert.Equal(t, amountA.String(), "0", "unknown position collects nothing")
	assert.Equal(t, amountB.String(), "0")

	_, _, err = pm.CollectPosition("alice", -100, 200, dec("-1"), ZERO)
	assert.EqualError(t, err, "amounts requested should be positive")
}

func TestPositionManager_CollectReward(t *testing.T) {
	pm := NewPositionManager()
	position := pm.GetPositionAndInitIfAbsent(GetPositionKey("alice", -100, 200))
	position.RewardAmountsOwed[1] = decimal.NewFromInt(700)

	amount, err := pm.CollectReward("alice", -100, 200, 1, decimal.NewFromInt(1000))
	assert.NoError(t, err)
	assert.Equal(t, amount.String(), "700", "clamped to what is owed")
	assert.Equal(t, len(pm.Positions), 0)

	amount, err = pm.CollectReward("nobody", -100, 200, 0, decimal.NewFromInt(10))
	assert.NoError(t, err)
	assert.Equal(t, amount.String(), "0")

	_, err = pm.CollectReward("alice", -100, 200, NUM_REWARDS, ONE)
	assert.EqualError(t, err, "rewarder index out of range")
}

func TestPositionManager_TotalOwed(t *testing.T) {
	pm := NewPositionManager()
	first := pm.GetPositionAndInitIfAbsent(GetPositionKey("alice", -100, 200))
	first.FeeOwedA = decimal.NewFromInt(10)
	first.FeeOwedB = decimal.NewFromInt(3)
	second := pm.GetPositionAndInitIfAbsent(GetPositionKey("bob", -60, 60))
	second.FeeOwedA = decimal.NewFromInt(5)

	totalA, totalB := pm.TotalOwed()
	assert.Equal(t, totalA.String(), "15")
	assert.Equal(t, totalB.String(), "3")
}

func TestPositionManager_Clone(t *testing.T) {
	pm := NewPositionManager()
	position := pm.GetPositionAndInitIfAbsent(GetPositionKey("alice", -100, 200))
	position.Liquidity = decimal.NewFromInt(500)

	cloned := pm.Clone()
	clonedPos := cloned.GetPositionAndInitIfAbsent(GetPositionKey("alice", -100, 200))
	clonedPos.Liquidity = decimal.NewFromInt(900)

	assert.Equal(t, position.Liquidity.String(), "500", "clone does not share positions")
	assert.Equal(t, pm.GetPositionReadonly("alice", -100, 200).Liquidity.String(), "500")
}
