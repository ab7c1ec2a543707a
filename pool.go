package clmm_simulator

import (
	"errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"time"
)

type FeeRate int

const (
	FeeRateLowest FeeRate = 100
	FeeRateLow    FeeRate = 500
	FeeRateMedium FeeRate = 2500
	FeeRateHigh   FeeRate = 10000
)

// pool config
type PoolConfig struct {
	Id          string
	TickSpacing int
	TokenA      string
	TokenB      string
	FeeRate     FeeRate
}

func NewPoolConfig(
	tickSpacing int,
	tokenA string,
	tokenB string,
	feeRate FeeRate,
) (*PoolConfig, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return &PoolConfig{
		Id:          id.String(),
		TickSpacing: tickSpacing,
		TokenA:      tokenA,
		TokenB:      tokenB,
		FeeRate:     feeRate,
	}, nil
}

// core pool
type CorePool struct {
	PoolId              string `gorm:"primaryKey"`
	TokenA              string
	TokenB              string
	FeeRate             FeeRate
	TickSpacing         int
	MaxLiquidityPerTick decimal.Decimal
	TokenABalance       decimal.Decimal
	TokenBBalance       decimal.Decimal
	CurrentSqrtPrice    decimal.Decimal
	CurrentTickIndex    int
	Liquidity           decimal.Decimal
	FeeGrowthGlobalA    decimal.Decimal
	FeeGrowthGlobalB    decimal.Decimal
	RewardGrowthGlobal0 decimal.Decimal
	RewardGrowthGlobal1 decimal.Decimal
	RewardGrowthGlobal2 decimal.Decimal
	TickManager         *TickManager
	PositionManager     *PositionManager
	DeploySeq           uint64
	CurrentSeq          uint64
}

func NewCorePoolFromConfig(poolId string, config PoolConfig) *CorePool {
	return &CorePool{
		PoolId:              poolId,
		TokenA:              config.TokenA,
		TokenB:              config.TokenB,
		FeeRate:             config.FeeRate,
		TickSpacing:         config.TickSpacing,
		MaxLiquidityPerTick: TickSpacingToMaxLiquidityPerTick(config.TickSpacing),
		TokenABalance:       decimal.Zero,
		TokenBBalance:       decimal.Zero,
		CurrentSqrtPrice:    decimal.Zero,
		CurrentTickIndex:    0,
		Liquidity:           decimal.Zero,
		FeeGrowthGlobalA:    decimal.Zero,
		FeeGrowthGlobalB:    decimal.Zero,
		RewardGrowthGlobal0: decimal.Zero,
		RewardGrowthGlobal1: decimal.Zero,
		RewardGrowthGlobal2: decimal.Zero,
		TickManager:         NewTickManager(),
		PositionManager:     NewPositionManager(),
	}
}

func (p *CorePool) Initialize(sqrtPrice decimal.Decimal) error {
	if !p.CurrentSqrtPrice.IsZero() {
		return errors.New("Already initialized!")
	}
	if sqrtPrice.LessThan(MIN_SQRT_PRICE_X64) || sqrtPrice.GreaterThan(MAX_SQRT_PRICE_X64) {
		return PRICE_OUT_OF_BOUNDS
	}
	tick, err := SqrtPriceQ64ToTickIndex(sqrtPrice)
	if err != nil {
		return err
	}
	p.CurrentSqrtPrice = sqrtPrice
	p.CurrentTickIndex = tick
	return nil
}

func (p *CorePool) Initialized() bool {
	return !p.CurrentSqrtPrice.IsZero()
}

func (p *CorePool) rewarderGrowthGlobals() [NUM_REWARDS]decimal.Decimal {
	return [NUM_REWARDS]decimal.Decimal{
		p.RewardGrowthGlobal0,
		p.RewardGrowthGlobal1,
		p.RewardGrowthGlobal2,
	}
}

func (p *CorePool) setRewarderGrowthGlobal(rewarderIndex int, growth decimal.Decimal) {
	switch rewarderIndex {
	case 0:
		p.RewardGrowthGlobal0 = growth
	case 1:
		p.RewardGrowthGlobal1 = growth
	case 2:
		p.RewardGrowthGlobal2 = growth
	}
}

// Snapshot captures the pool state a simulation needs. The returned value is
// detached from the pool; simulations never see later mutations.
func (p *CorePool) Snapshot() *PoolSnapshot {
	return &PoolSnapshot{
		Liquidity:             p.Liquidity,
		CurrentSqrtPrice:      p.CurrentSqrtPrice,
		CurrentTickIndex:      p.CurrentTickIndex,
		FeeRate:               p.FeeRate,
		TickSpacing:           p.TickSpacing,
		FeeGrowthGlobalA:      p.FeeGrowthGlobalA,
		FeeGrowthGlobalB:      p.FeeGrowthGlobalB,
		RewarderGrowthGlobals: p.rewarderGrowthGlobals(),
	}
}

// Quote simulates a swap against the current state without mutating the pool.
func (p *CorePool) Quote(aToB bool, byAmountIn bool, amount decimal.Decimal) (*SwapResult, error) {
	if !p.Initialized() {
		return nil, errors.New("pool not initialized")
	}
	return SimulateSwap(aToB, byAmountIn, amount, p.Snapshot(), p.TickManager.TicksForSwap(aToB))
}

// ExecuteSwap simulates a swap and applies the outcome: price, tick,
// liquidity, balances, fee growth and every crossed tick's outside trackers.
func (p *CorePool) ExecuteSwap(aToB bool, byAmountIn bool, amount decimal.Decimal) (*SwapResult, error) {
	result, err := p.Quote(aToB, byAmountIn, amount)
	if err != nil {
		return nil, err
	}
	err = p.applySwapResult(aToB, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *CorePool) applySwapResult(aToB bool, result *SwapResult) error {
	feeGrowthGlobalStart := p.FeeGrowthGlobalB
	if aToB {
		feeGrowthGlobalStart = p.FeeGrowthGlobalA
	}
	rewardGlobals := p.rewarderGrowthGlobals()
	for _, crossed := range result.CrossedTicks {
		tick, ok := p.TickManager.Ticks[crossed.TickIndex]
		if !ok {
			return MALFORMED_TICK_DATA
		}
		// the input-side global as it stood at the moment of this crossing
		globalAtCross, err := WrappingAddU128(feeGrowthGlobalStart, crossed.FeeGrowthDelta)
		if err != nil {
			return err
		}
		feeGrowthA, feeGrowthB := p.FeeGrowthGlobalA, globalAtCross
		if aToB {
			feeGrowthA, feeGrowthB = globalAtCross, p.FeeGrowthGlobalB
		}
		liquidityNet, err := tick.Cross(feeGrowthA, feeGrowthB, rewardGlobals)
		if err != nil {
			return err
		}
		if aToB {
			liquidityNet = liquidityNet.Neg()
		}
		p.Liquidity, err = LiquidityAddDelta(p.Liquidity, liquidityNet)
		if err != nil {
			return err
		}
	}
	feeGrowthGlobalEnd, err := WrappingAddU128(feeGrowthGlobalStart, result.FeeGrowthDelta)
	if err != nil {
		return err
	}
	if aToB {
		p.FeeGrowthGlobalA = feeGrowthGlobalEnd
	} else {
		p.FeeGrowthGlobalB = feeGrowthGlobalEnd
	}

	tick, err := SqrtPriceQ64ToTickIndex(result.NextSqrtPrice)
	if err != nil {
		return err
	}
	if aToB && tick > MIN_TICK {
		// landing exactly on a boundary while moving down puts the pool in
		// the range below it
		tickPrice, terr := TickIndexToSqrtPriceQ64(tick)
		if terr != nil {
			return terr
		}
		if tickPrice.Equal(result.NextSqrtPrice) {
			tick = tick - 1
		}
	}
	p.CurrentSqrtPrice = result.NextSqrtPrice
	p.CurrentTickIndex = tick

	if aToB {
		p.TokenABalance = p.TokenABalance.Add(result.AmountIn)
		p.TokenBBalance = p.TokenBBalance.Sub(result.AmountOut)
	} else {
		p.TokenBBalance = p.TokenBBalance.Add(result.AmountIn)
		p.TokenABalance = p.TokenABalance.Sub(result.AmountOut)
	}
	return nil
}

func (p *CorePool) checkTicks(tickLower int, tickUpper int) error {
	if tickLower >= tickUpper {
		return errors.New("TLU")
	}
	if tickLower < MIN_TICK {
		return errors.New("TLM")
	}
	if tickUpper > MAX_TICK {
		return errors.New("TUM")
	}
	if tickLower%p.TickSpacing != 0 || tickUpper%p.TickSpacing != 0 {
		return errors.New("TICK_SPACING")
	}
	return nil
}

// AddLiquidity credits liquidity to the owner's position over the tick range
// and returns the token amounts the pool takes in exchange, rounded up.
func (p *CorePool) AddLiquidity(owner string, tickLower int, tickUpper int, liquidity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !p.Initialized() {
		return ZERO, ZERO, errors.New("pool not initialized")
	}
	if !liquidity.IsPositive() {
		return ZERO, ZERO, INVALID_AMOUNT
	}
	amountA, amountB, err := p.modifyPosition(owner, tickLower, tickUpper, liquidity)
	if err != nil {
		return ZERO, ZERO, err
	}
	p.TokenABalance = p.TokenABalance.Add(amountA)
	p.TokenBBalance = p.TokenBBalance.Add(amountB)
	return amountA, amountB, nil
}

// RemoveLiquidity debits liquidity from the owner's position and returns the
// token amounts paid back out, rounded down. Fees accrued so far stay owed on
// the position until collected.
func (p *CorePool) RemoveLiquidity(owner string, tickLower int, tickUpper int, liquidity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !p.Initialized() {
		return ZERO, ZERO, errors.New("pool not initialized")
	}
	if !liquidity.IsPositive() {
		return ZERO, ZERO, INVALID_AMOUNT
	}
	amountA, amountB, err := p.modifyPosition(owner, tickLower, tickUpper, liquidity.Neg())
	if err != nil {
		return ZERO, ZERO, err
	}
	p.TokenABalance = p.TokenABalance.Sub(amountA)
	p.TokenBBalance = p.TokenBBalance.Sub(amountB)
	return amountA, amountB, nil
}

func (p *CorePool) modifyPosition(owner string, tickLower int, tickUpper int, liquidityDelta decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	err := p.checkTicks(tickLower, tickUpper)
	if err != nil {
		return ZERO, ZERO, err
	}
	err = p.updatePosition(owner, tickLower, tickUpper, liquidityDelta)
	if err != nil {
		return ZERO, ZERO, err
	}
	amountA, amountB := ZERO, ZERO
	if !liquidityDelta.IsZero() {
		priceLower, perr := TickIndexToSqrtPriceQ64(tickLower)
		if perr != nil {
			return ZERO, ZERO, perr
		}
		priceUpper, perr := TickIndexToSqrtPriceQ64(tickUpper)
		if perr != nil {
			return ZERO, ZERO, perr
		}
		roundUp := liquidityDelta.IsPositive()
		absDelta := liquidityDelta.Abs()
		if p.CurrentTickIndex < tickLower {
			// all token A, price below the range
			amountA, err = GetTokenAmountAFromLiquidity(priceLower, priceUpper, absDelta, roundUp)
			if err != nil {
				return ZERO, ZERO, err
			}
		} else if p.CurrentTickIndex < tickUpper {
			amountA, err = GetTokenAmountAFromLiquidity(p.CurrentSqrtPrice, priceUpper, absDelta, roundUp)
			if err != nil {
				return ZERO, ZERO, err
			}
			amountB, err = GetTokenAmountBFromLiquidity(priceLower, p.CurrentSqrtPrice, absDelta, roundUp)
			if err != nil {
				return ZERO, ZERO, err
			}
			p.Liquidity, err = LiquidityAddDelta(p.Liquidity, liquidityDelta)
			if err != nil {
				return ZERO, ZERO, err
			}
		} else {
			// all token B, price above the range
			amountB, err = GetTokenAmountBFromLiquidity(priceLower, priceUpper, absDelta, roundUp)
			if err != nil {
				return ZERO, ZERO, err
			}
		}
	}
	return amountA, amountB, nil
}

func (p *CorePool) updatePosition(owner string, tickLower int, tickUpper int, liquidityDelta decimal.Decimal) error {
	position := p.PositionManager.GetPositionAndInitIfAbsent(GetPositionKey(owner, tickLower, tickUpper))
	rewardGlobals := p.rewarderGrowthGlobals()
	var flippedLower, flippedUpper bool
	if !liquidityDelta.IsZero() {
		lower, err := p.TickManager.GetTickAndInitIfAbsent(tickLower)
		if err != nil {
			return err
		}
		flippedLower, err = lower.Update(liquidityDelta, p.CurrentTickIndex, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, rewardGlobals, false, p.MaxLiquidityPerTick)
		if err != nil {
			return err
		}
		upper, err := p.TickManager.GetTickAndInitIfAbsent(tickUpper)
		if err != nil {
			return err
		}
		flippedUpper, err = upper.Update(liquidityDelta, p.CurrentTickIndex, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, rewardGlobals, true, p.MaxLiquidityPerTick)
		if err != nil {
			return err
		}
	}
	lowerRO, err := p.TickManager.GetTickReadonly(tickLower)
	if err != nil {
		return err
	}
	upperRO, err := p.TickManager.GetTickReadonly(tickUpper)
	if err != nil {
		return err
	}
	insideA, insideB, err := FeeGrowthInside(lowerRO, upperRO, p.CurrentTickIndex, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB)
	if err != nil {
		return err
	}
	insideRewards, err := RewardGrowthInside(lowerRO, upperRO, p.CurrentTickIndex, rewardGlobals[:])
	if err != nil {
		return err
	}
	var insideRewardsArr [NUM_REWARDS]decimal.Decimal
	copy(insideRewardsArr[:], insideRewards)
	err = position.Update(liquidityDelta, insideA, insideB, insideRewardsArr)
	if err != nil {
		return err
	}
	if liquidityDelta.IsNegative() {
		if flippedLower {
			p.TickManager.Clear(tickLower)
		}
		if flippedUpper {
			p.TickManager.Clear(tickUpper)
		}
	}
	return nil
}

// settlePosition brings the position's accrual up to the pool's current
// growth state without touching its liquidity.
func (p *CorePool) settlePosition(owner string, tickLower int, tickUpper int) error {
	err := p.checkTicks(tickLower, tickUpper)
	if err != nil {
		return err
	}
	return p.updatePosition(owner, tickLower, tickUpper, ZERO)
}

// CollectFees settles the position and pays out up to the requested amounts
// of its owed fees. Collecting from an unknown position yields zero, not an
// error.
func (p *CorePool) CollectFees(owner string, tickLower int, tickUpper int, amountARequested, amountBRequested decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	position := p.PositionManager.GetPositionReadonly(owner, tickLower, tickUpper)
	if position.Liquidity.IsPositive() {
		err := p.settlePosition(owner, tickLower, tickUpper)
		if err != nil {
			return ZERO, ZERO, err
		}
	}
	amountA, amountB, err := p.PositionManager.CollectPosition(owner, tickLower, tickUpper, amountARequested, amountBRequested)
	if err != nil {
		return ZERO, ZERO, err
	}
	p.TokenABalance = p.TokenABalance.Sub(amountA)
	p.TokenBBalance = p.TokenBBalance.Sub(amountB)
	return amountA, amountB, nil
}

// CollectReward settles the position and pays out up to the requested amount
// from one rewarder's owed balance. Reward tokens live in an external vault,
// so pool balances are untouched.
func (p *CorePool) CollectReward(owner string, tickLower int, tickUpper int, rewarderIndex int, amountRequested decimal.Decimal) (decimal.Decimal, error) {
	position := p.PositionManager.GetPositionReadonly(owner, tickLower, tickUpper)
	if position.Liquidity.IsPositive() {
		err := p.settlePosition(owner, tickLower, tickUpper)
		if err != nil {
			return ZERO, err
		}
	}
	return p.PositionManager.CollectReward(owner, tickLower, tickUpper, rewarderIndex, amountRequested)
}

// FeeOwed previews the fees the position could collect right now, without
// mutating anything.
func (p *CorePool) FeeOwed(owner string, tickLower int, tickUpper int) (decimal.Decimal, decimal.Decimal, error) {
	err := p.checkTicks(tickLower, tickUpper)
	if err != nil {
		return ZERO, ZERO, err
	}
	position := p.PositionManager.GetPositionReadonly(owner, tickLower, tickUpper)
	lower, err := p.TickManager.GetTickReadonly(tickLower)
	if err != nil {
		return ZERO, ZERO, err
	}
	upper, err := p.TickManager.GetTickReadonly(tickUpper)
	if err != nil {
		return ZERO, ZERO, err
	}
	return ComputeFeeOwed(p.Snapshot(), position, lower, upper)
}

// RewardsOwed previews the rewards the position could collect right now.
func (p *CorePool) RewardsOwed(owner string, tickLower int, tickUpper int) ([]RewardOwed, error) {
	err := p.checkTicks(tickLower, tickUpper)
	if err != nil {
		return nil, err
	}
	position := p.PositionManager.GetPositionReadonly(owner, tickLower, tickUpper)
	lower, err := p.TickManager.GetTickReadonly(tickLower)
	if err != nil {
		return nil, err
	}
	upper, err := p.TickManager.GetTickReadonly(tickUpper)
	if err != nil {
		return nil, err
	}
	globals := p.rewarderGrowthGlobals()
	return ComputeRewardsOwed(p.Snapshot(), position, lower, upper, globals[:])
}

// AccrueReward advances one rewarder's global growth accumulator, wrapping
// modulo 2^128 like every growth value.
func (p *CorePool) AccrueReward(rewarderIndex int, growthDelta decimal.Decimal) error {
	if rewarderIndex < 0 || rewarderIndex >= NUM_REWARDS {
		return errors.New("rewarder index out of range")
	}
	if growthDelta.IsNegative() {
		return INVALID_AMOUNT
	}
	globals := p.rewarderGrowthGlobals()
	next, err := WrappingAddU128(globals[rewarderIndex], growthDelta)
	if err != nil {
		return err
	}
	p.setRewarderGrowthGlobal(rewarderIndex, next)
	return nil
}

func (p *CorePool) Clone() *CorePool {
	cloned := *p
	cloned.TickManager = p.TickManager.Clone()
	cloned.PositionManager = p.PositionManager.Clone()
	return &cloned
}

// Flush writes the pool's mutable state through the given transaction,
// inserting the row on first flush.
func (p *CorePool) Flush(tx *gorm.DB) error {
	result := tx.Model(&CorePool{}).Where("pool_id = ?", p.PoolId).Updates(map[string]interface{}{
		"token_a_balance":       p.TokenABalance,
		"token_b_balance":       p.TokenBBalance,
		"current_sqrt_price":    p.CurrentSqrtPrice,
		"current_tick_index":    p.CurrentTickIndex,
		"liquidity":             p.Liquidity,
		"fee_growth_global_a":   p.FeeGrowthGlobalA,
		"fee_growth_global_b":   p.FeeGrowthGlobalB,
		"reward_growth_global0": p.RewardGrowthGlobal0,
		"reward_growth_global1": p.RewardGrowthGlobal1,
		"reward_growth_global2": p.RewardGrowthGlobal2,
		"tick_manager":          p.TickManager,
		"position_manager":      p.PositionManager,
		"current_seq":           p.CurrentSeq,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tx.Create(p).Error
	}
	return nil
}

type ActionType string

const (
	INITIALIZE       ActionType = "initialize"
	ADD_LIQUIDITY    ActionType = "add_liquidity"
	REMOVE_LIQUIDITY ActionType = "remove_liquidity"
	COLLECT          ActionType = "collect"
	SWAP             ActionType = "swap"
	ACCRUE_REWARD    ActionType = "accrue_reward"
	FORK             ActionType = "fork"
)

type Record struct {
	Id         string
	ActionType ActionType
	Params     interface{}
	AmountA    decimal.Decimal
	AmountB    decimal.Decimal
	Timestamp  time.Time
}
