package clmm_simulator

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
)

type Position struct {
	Liquidity               decimal.Decimal              `json:"liquidity"`
	FeeGrowthInsideALast    decimal.Decimal              `json:"fee_growth_inside_a_last"`
	FeeGrowthInsideBLast    decimal.Decimal              `json:"fee_growth_inside_b_last"`
	RewardGrowthsInsideLast [NUM_REWARDS]decimal.Decimal `json:"reward_growths_inside_last"`
	FeeOwedA                decimal.Decimal              `json:"fee_owed_a"`
	FeeOwedB                decimal.Decimal              `json:"fee_owed_b"`
	RewardAmountsOwed       [NUM_REWARDS]decimal.Decimal `json:"reward_amounts_owed"`
}

func NewPosition() *Position {
	return &Position{
		Liquidity:               ZERO,
		FeeGrowthInsideALast:    ZERO,
		FeeGrowthInsideBLast:    ZERO,
		RewardGrowthsInsideLast: [NUM_REWARDS]decimal.Decimal{ZERO, ZERO, ZERO},
		FeeOwedA:                ZERO,
		FeeOwedB:                ZERO,
		RewardAmountsOwed:       [NUM_REWARDS]decimal.Decimal{ZERO, ZERO, ZERO},
	}
}

func (p *Position) Clone() *Position {
	cloned := *p
	return &cloned
}

// growthDeltaOwed converts a growth-inside movement into a token amount owed
// at the given liquidity. The subtraction wraps modulo 2^128 and implausibly
// large deltas collapse to the unit delta before scaling.
func growthDeltaOwed(liquidity, growthInside, growthInsideLast decimal.Decimal) (decimal.Decimal, error) {
	delta, err := WrappingSubU128(growthInside, growthInsideLast)
	if err != nil {
		return ZERO, err
	}
	return MulShiftRight(liquidity, ClampGrowthDelta(delta), 64), nil
}

func (p *Position) Update(
	liquidityDelta decimal.Decimal,
	feeGrowthInsideA decimal.Decimal,
	feeGrowthInsideB decimal.Decimal,
	rewardGrowthsInside [NUM_REWARDS]decimal.Decimal,
) error {
	var liquidityNext decimal.Decimal
	var err error
	if liquidityDelta.IsZero() {
		if p.Liquidity.LessThanOrEqual(ZERO) {
			return errors.New("NP")
		}
		liquidityNext = p.Liquidity
	} else {
		liquidityNext, err = LiquidityAddDelta(p.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
	}
	feeOwedA, err := growthDeltaOwed(p.Liquidity, feeGrowthInsideA, p.FeeGrowthInsideALast)
	if err != nil {
		return err
	}
	feeOwedB, err := growthDeltaOwed(p.Liquidity, feeGrowthInsideB, p.FeeGrowthInsideBLast)
	if err != nil {
		return err
	}
	var rewardsOwed [NUM_REWARDS]decimal.Decimal
	for i := 0; i < NUM_REWARDS; i++ {
		rewardsOwed[i], err = growthDeltaOwed(p.Liquidity, rewardGrowthsInside[i], p.RewardGrowthsInsideLast[i])
		if err != nil {
			return err
		}
	}
	if !liquidityDelta.IsZero() {
		p.Liquidity = liquidityNext
	}
	p.FeeGrowthInsideALast = feeGrowthInsideA
	p.FeeGrowthInsideBLast = feeGrowthInsideB
	p.RewardGrowthsInsideLast = rewardGrowthsInside

	p.FeeOwedA = p.FeeOwedA.Add(feeOwedA)
	p.FeeOwedB = p.FeeOwedB.Add(feeOwedB)
	for i := 0; i < NUM_REWARDS; i++ {
		p.RewardAmountsOwed[i] = p.RewardAmountsOwed[i].Add(rewardsOwed[i])
	}
	return nil
}

func (p *Position) UpdateBurn(
	newFeeOwedA decimal.Decimal,
	newFeeOwedB decimal.Decimal,
) {
	p.FeeOwedA = newFeeOwedA
	p.FeeOwedB = newFeeOwedB
}

func (p *Position) IsEmpty() bool {
	if !p.Liquidity.IsZero() || !p.FeeOwedA.IsZero() || !p.FeeOwedB.IsZero() {
		return false
	}
	for i := 0; i < NUM_REWARDS; i++ {
		if !p.RewardAmountsOwed[i].IsZero() {
			return false
		}
	}
	return true
}

// ComputeFeeOwed returns the total fees claimable by the position once its
// accrual is brought up to the pool's current growth state: previously owed
// plus the delta since the last stored snapshot. It mutates nothing; callers
// persist the result themselves.
func ComputeFeeOwed(
	pool *PoolSnapshot,
	position *Position,
	tickLower *Tick,
	tickUpper *Tick,
) (decimal.Decimal, decimal.Decimal, error) {
	insideA, insideB, err := FeeGrowthInside(
		tickLower, tickUpper,
		pool.CurrentTickIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB,
	)
	if err != nil {
		return ZERO, ZERO, err
	}
	deltaA, err := growthDeltaOwed(position.Liquidity, insideA, position.FeeGrowthInsideALast)
	if err != nil {
		return ZERO, ZERO, err
	}
	deltaB, err := growthDeltaOwed(position.Liquidity, insideB, position.FeeGrowthInsideBLast)
	if err != nil {
		return ZERO, ZERO, err
	}
	return position.FeeOwedA.Add(deltaA), position.FeeOwedB.Add(deltaB), nil
}

type RewardOwed struct {
	RewarderIndex int
	GrowthInside  decimal.Decimal
	AmountOwed    decimal.Decimal
}

// ComputeRewardsOwed is ComputeFeeOwed for the pool's rewarders. One entry is
// returned per supplied global accumulator, carrying the fresh growth-inside
// value alongside the total owed so callers can persist the new snapshot.
func ComputeRewardsOwed(
	pool *PoolSnapshot,
	position *Position,
	tickLower *Tick,
	tickUpper *Tick,
	rewarderGrowthGlobals []decimal.Decimal,
) ([]RewardOwed, error) {
	insides, err := RewardGrowthInside(tickLower, tickUpper, pool.CurrentTickIndex, rewarderGrowthGlobals)
	if err != nil {
		return nil, err
	}
	owed := make([]RewardOwed, 0, len(insides))
	for i, inside := range insides {
		delta, derr := growthDeltaOwed(position.Liquidity, inside, position.RewardGrowthsInsideLast[i])
		if derr != nil {
			return nil, derr
		}
		owed = append(owed, RewardOwed{
			RewarderIndex: i,
			GrowthInside:  inside,
			AmountOwed:    position.RewardAmountsOwed[i].Add(delta),
		})
	}
	return owed, nil
}

func GetPositionKey(owner string, tickLower int, tickUpper int) string {
	return fmt.Sprintf("%s_%d_%d", owner, tickLower, tickUpper)
}

type PositionManager struct {
	Positions map[string]*Position `json:"positions"`
}

func NewPositionManager() *PositionManager {
	return &PositionManager{
		Positions: map[string]*Position{},
	}
}

func (pm *PositionManager) Clone() *PositionManager {
	newPm := NewPositionManager()
	ps := make(map[string]*Position, len(pm.Positions))
	for s, position := range pm.Positions {
		ps[s] = position.Clone()
	}
	newPm.Positions = ps
	return newPm
}

func (pm *PositionManager) Set(key string, position *Position) {
	pm.Positions[key] = position
}

func (pm *PositionManager) Clear(key string) {
	delete(pm.Positions, key)
}

func (pm *PositionManager) GetPositionAndInitIfAbsent(key string) *Position {
	if v, ok := pm.Positions[key]; ok {
		return v
	}
	newP := NewPosition()
	pm.Set(key, newP)
	return newP
}

func (pm *PositionManager) GetPositionReadonly(owner string, tickLower int, tickUpper int) *Position {
	key := GetPositionKey(owner, tickLower, tickUpper)
	if v, ok := pm.Positions[key]; ok {
		return v.Clone()
	}
	return NewPosition()
}

// CollectPosition pays out up to the requested fee amounts from what the
// position is owed and drops the position once it holds nothing at all.
func (pm *PositionManager) CollectPosition(owner string, tickLower int, tickUpper int, amountARequested, amountBRequested decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if amountARequested.LessThan(ZERO) || amountBRequested.LessThan(ZERO) {
		return ZERO, ZERO, errors.New("amounts requested should be positive")
	}
	key := GetPositionKey(owner, tickLower, tickUpper)
	positionToCollect, ok := pm.Positions[key]
	if !ok {
		return ZERO, ZERO, nil
	}
	var amountA decimal.Decimal
	if amountARequested.GreaterThan(positionToCollect.FeeOwedA) {
		amountA = positionToCollect.FeeOwedA
	} else {
		amountA = amountARequested
	}
	var amountB decimal.Decimal
	if amountBRequested.GreaterThan(positionToCollect.FeeOwedB) {
		amountB = positionToCollect.FeeOwedB
	} else {
		amountB = amountBRequested
	}
	if amountA.GreaterThan(ZERO) || amountB.GreaterThan(ZERO) {
		positionToCollect.UpdateBurn(positionToCollect.FeeOwedA.Sub(amountA), positionToCollect.FeeOwedB.Sub(amountB))
	}
	if positionToCollect.IsEmpty() {
		pm.Clear(key)
	}
	return amountA, amountB, nil
}

// CollectReward pays out up to the requested amount from one rewarder's owed
// balance.
func (pm *PositionManager) CollectReward(owner string, tickLower int, tickUpper int, rewarderIndex int, amountRequested decimal.Decimal) (decimal.Decimal, error) {
	if rewarderIndex < 0 || rewarderIndex >= NUM_REWARDS {
		return ZERO, errors.New("rewarder index out of range")
	}
	if amountRequested.LessThan(ZERO) {
		return ZERO, errors.New("amounts requested should be positive")
	}
	key := GetPositionKey(owner, tickLower, tickUpper)
	positionToCollect, ok := pm.Positions[key]
	if !ok {
		return ZERO, nil
	}
	amount := amountRequested
	if amount.GreaterThan(positionToCollect.RewardAmountsOwed[rewarderIndex]) {
		amount = positionToCollect.RewardAmountsOwed[rewarderIndex]
	}
	positionToCollect.RewardAmountsOwed[rewarderIndex] = positionToCollect.RewardAmountsOwed[rewarderIndex].Sub(amount)
	if positionToCollect.IsEmpty() {
		pm.Clear(key)
	}
	return amount, nil
}

// TotalOwed sums the claimable fees over every tracked position.
func (pm *PositionManager) TotalOwed() (decimal.Decimal, decimal.Decimal) {
	totalA := ZERO
	totalB := ZERO
	for _, position := range pm.Positions {
		totalA = totalA.Add(position.FeeOwedA)
		totalB = totalB.Add(position.FeeOwedB)
	}
	return totalA, totalB
}

func (pm *PositionManager) GormDataType() string {
	return "LONGTEXT"
}

func (pm *PositionManager) Scan(value interface{}) error {
	var err error
	switch v := value.(type) {
	case []byte:
		err = json.Unmarshal(v, pm)
	case string:
		err = json.Unmarshal([]byte(v), pm)
	case nil:
		return nil
	default:
		err = errors.New(fmt.Sprint("Failed to unmarshal PositionManager value:", value))
	}
	return err
}

func (pm *PositionManager) Value() (driver.Value, error) {
	bs, err := json.Marshal(pm)
	if err != nil {
		return nil, err
	}
	return string(bs), nil
}
