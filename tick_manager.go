package clmm_simulator

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
	"sort"
)

type Tick struct {
	TickIndex            int                          `json:"tick_index"`
	LiquidityGross       decimal.Decimal              `json:"liquidity_gross"`
	LiquidityNet         decimal.Decimal              `json:"liquidity_net"`
	FeeGrowthOutsideA    decimal.Decimal              `json:"fee_growth_outside_a"`
	FeeGrowthOutsideB    decimal.Decimal              `json:"fee_growth_outside_b"`
	RewardGrowthsOutside [NUM_REWARDS]decimal.Decimal `json:"reward_growths_outside"`
}

func NewTick(tickIndex int) (*Tick, error) {
	if tickIndex < MIN_TICK || tickIndex > MAX_TICK {
		return nil, INVALID_TICK
	}
	return &Tick{
		TickIndex:            tickIndex,
		LiquidityGross:       ZERO,
		LiquidityNet:         ZERO,
		FeeGrowthOutsideA:    ZERO,
		FeeGrowthOutsideB:    ZERO,
		RewardGrowthsOutside: [NUM_REWARDS]decimal.Decimal{ZERO, ZERO, ZERO},
	}, nil
}

func (t *Tick) Initialized() bool {
	return !t.LiquidityGross.IsZero()
}

func (t *Tick) Clone() *Tick {
	cloned := *t
	return &cloned
}

// Update applies a liquidity delta to the tick. A tick initialized at or
// below the current tick starts with the current globals as its outside
// values, so growth-inside arithmetic stays consistent from that point on.
func (t *Tick) Update(
	liquidityDelta decimal.Decimal,
	tickCurrent int,
	feeGrowthGlobalA decimal.Decimal,
	feeGrowthGlobalB decimal.Decimal,
	rewardGrowthGlobals [NUM_REWARDS]decimal.Decimal,
	upper bool,
	maxLiquidity decimal.Decimal,
) (bool, error) {
	liquidityGrossBefore := t.LiquidityGross
	liquidityGrossAfter, err := LiquidityAddDelta(liquidityGrossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if liquidityGrossAfter.GreaterThan(maxLiquidity) {
		return false, errors.New("LO")
	}
	flipped := liquidityGrossAfter.IsZero() != liquidityGrossBefore.IsZero()
	if liquidityGrossBefore.IsZero() && t.TickIndex <= tickCurrent {
		t.FeeGrowthOutsideA = feeGrowthGlobalA
		t.FeeGrowthOutsideB = feeGrowthGlobalB
		t.RewardGrowthsOutside = rewardGrowthGlobals
	}
	t.LiquidityGross = liquidityGrossAfter
	if upper {
		t.LiquidityNet = t.LiquidityNet.Sub(liquidityDelta)
	} else {
		t.LiquidityNet = t.LiquidityNet.Add(liquidityDelta)
	}
	if t.LiquidityNet.GreaterThan(MaxInt128) || t.LiquidityNet.LessThan(MinInt128) {
		return false, OVERFLOW
	}
	return flipped, nil
}

// Cross flips the tick's outside trackers to the other side of the price and
// returns the liquidity net the caller must apply. All flips wrap modulo
// 2^128.
func (t *Tick) Cross(
	feeGrowthGlobalA decimal.Decimal,
	feeGrowthGlobalB decimal.Decimal,
	rewardGrowthGlobals [NUM_REWARDS]decimal.Decimal,
) (decimal.Decimal, error) {
	outsideA, err := WrappingSubU128(feeGrowthGlobalA, t.FeeGrowthOutsideA)
	if err != nil {
		return ZERO, err
	}
	outsideB, err := WrappingSubU128(feeGrowthGlobalB, t.FeeGrowthOutsideB)
	if err != nil {
		return ZERO, err
	}
	t.FeeGrowthOutsideA = outsideA
	t.FeeGrowthOutsideB = outsideB
	for i := 0; i < NUM_REWARDS; i++ {
		outside, rerr := WrappingSubU128(rewardGrowthGlobals[i], t.RewardGrowthsOutside[i])
		if rerr != nil {
			return ZERO, rerr
		}
		t.RewardGrowthsOutside[i] = outside
	}
	return t.LiquidityNet, nil
}

// FeeGrowthInside returns the fee growth accumulated strictly between the two
// ticks for both tokens. Every subtraction wraps modulo 2^128; the result is
// only meaningful as a difference against an earlier inside value.
func FeeGrowthInside(
	tickLower *Tick,
	tickUpper *Tick,
	tickCurrent int,
	feeGrowthGlobalA decimal.Decimal,
	feeGrowthGlobalB decimal.Decimal,
) (decimal.Decimal, decimal.Decimal, error) {
	var (
		growthBelowA, growthBelowB decimal.Decimal
		growthAboveA, growthAboveB decimal.Decimal
		err                        error
	)
	if tickCurrent >= tickLower.TickIndex {
		growthBelowA = tickLower.FeeGrowthOutsideA
		growthBelowB = tickLower.FeeGrowthOutsideB
	} else {
		growthBelowA, err = WrappingSubU128(feeGrowthGlobalA, tickLower.FeeGrowthOutsideA)
		if err != nil {
			return ZERO, ZERO, err
		}
		growthBelowB, err = WrappingSubU128(feeGrowthGlobalB, tickLower.FeeGrowthOutsideB)
		if err != nil {
			return ZERO, ZERO, err
		}
	}
	if tickCurrent < tickUpper.TickIndex {
		growthAboveA = tickUpper.FeeGrowthOutsideA
		growthAboveB = tickUpper.FeeGrowthOutsideB
	} else {
		growthAboveA, err = WrappingSubU128(feeGrowthGlobalA, tickUpper.FeeGrowthOutsideA)
		if err != nil {
			return ZERO, ZERO, err
		}
		growthAboveB, err = WrappingSubU128(feeGrowthGlobalB, tickUpper.FeeGrowthOutsideB)
		if err != nil {
			return ZERO, ZERO, err
		}
	}
	insideA, err := WrappingSubU128(feeGrowthGlobalA, growthBelowA)
	if err != nil {
		return ZERO, ZERO, err
	}
	insideA, err = WrappingSubU128(insideA, growthAboveA)
	if err != nil {
		return ZERO, ZERO, err
	}
	insideB, err := WrappingSubU128(feeGrowthGlobalB, growthBelowB)
	if err != nil {
		return ZERO, ZERO, err
	}
	insideB, err = WrappingSubU128(insideB, growthAboveB)
	if err != nil {
		return ZERO, ZERO, err
	}
	return insideA, insideB, nil
}

// RewardGrowthInside is FeeGrowthInside for the rewarder accumulators. The
// globals slice may carry fewer entries than NUM_REWARDS when a pool has
// fewer rewarders configured.
func RewardGrowthInside(
	tickLower *Tick,
	tickUpper *Tick,
	tickCurrent int,
	rewardGrowthGlobals []decimal.Decimal,
) ([]decimal.Decimal, error) {
	if len(rewardGrowthGlobals) > NUM_REWARDS {
		return nil, errors.New("rewarder count out of range")
	}
	insides := make([]decimal.Decimal, 0, len(rewardGrowthGlobals))
	for i, global := range rewardGrowthGlobals {
		var below, above decimal.Decimal
		var err error
		if tickCurrent >= tickLower.TickIndex {
			below = tickLower.RewardGrowthsOutside[i]
		} else {
			below, err = WrappingSubU128(global, tickLower.RewardGrowthsOutside[i])
			if err != nil {
				return nil, err
			}
		}
		if tickCurrent < tickUpper.TickIndex {
			above = tickUpper.RewardGrowthsOutside[i]
		} else {
			above, err = WrappingSubU128(global, tickUpper.RewardGrowthsOutside[i])
			if err != nil {
				return nil, err
			}
		}
		inside, err := WrappingSubU128(global, below)
		if err != nil {
			return nil, err
		}
		inside, err = WrappingSubU128(inside, above)
		if err != nil {
			return nil, err
		}
		insides = append(insides, inside)
	}
	return insides, nil
}

type TickManager struct {
	Ticks map[int]*Tick `json:"ticks"`
}

func NewTickManager() *TickManager {
	return &TickManager{
		Ticks: map[int]*Tick{},
	}
}

func (tm *TickManager) Clone() *TickManager {
	ticks := make(map[int]*Tick, len(tm.Ticks))
	for i, tick := range tm.Ticks {
		ticks[i] = tick.Clone()
	}
	return &TickManager{
		Ticks: ticks,
	}
}

func (tm *TickManager) GetSortedTicks() []*Tick {
	sorted := make([]*Tick, 0, len(tm.Ticks))
	for _, tick := range tm.Ticks {
		sorted = append(sorted, tick)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TickIndex < sorted[j].TickIndex
	})
	return sorted
}

// TicksForSwap returns the initialized ticks as value copies ordered in the
// direction of travel, ready to hand to SimulateSwap.
func (tm *TickManager) TicksForSwap(aToB bool) []Tick {
	sorted := tm.GetSortedTicks()
	ticks := make([]Tick, 0, len(sorted))
	if aToB {
		for i := len(sorted) - 1; i >= 0; i-- {
			if sorted[i].Initialized() {
				ticks = append(ticks, *sorted[i])
			}
		}
		return ticks
	}
	for _, tick := range sorted {
		if tick.Initialized() {
			ticks = append(ticks, *tick)
		}
	}
	return ticks
}

func (tm *TickManager) GetTickAndInitIfAbsent(tickIndex int) (*Tick, error) {
	if tick, ok := tm.Ticks[tickIndex]; ok {
		return tick, nil
	}
	tick, err := NewTick(tickIndex)
	if err != nil {
		return nil, err
	}
	tm.Ticks[tickIndex] = tick
	return tick, nil
}

// GetTickReadonly returns a copy of the tick, or a zero-valued tick when it
// was never initialized. Callers can inspect it freely without affecting the
// manager.
func (tm *TickManager) GetTickReadonly(tickIndex int) (*Tick, error) {
	if tick, ok := tm.Ticks[tickIndex]; ok {
		return tick.Clone(), nil
	}
	return NewTick(tickIndex)
}

func (tm *TickManager) Clear(tickIndex int) {
	delete(tm.Ticks, tickIndex)
}

func (tm *TickManager) GetFeeGrowthInside(
	tickLower int,
	tickUpper int,
	tickCurrent int,
	feeGrowthGlobalA decimal.Decimal,
	feeGrowthGlobalB decimal.Decimal,
) (decimal.Decimal, decimal.Decimal, error) {
	lower, lok := tm.Ticks[tickLower]
	upper, uok := tm.Ticks[tickUpper]
	if !lok || !uok {
		return ZERO, ZERO, INVALID_TICK
	}
	return FeeGrowthInside(lower, upper, tickCurrent, feeGrowthGlobalA, feeGrowthGlobalB)
}

func (tm *TickManager) GetRewardGrowthInside(
	tickLower int,
	tickUpper int,
	tickCurrent int,
	rewardGrowthGlobals [NUM_REWARDS]decimal.Decimal,
) ([NUM_REWARDS]decimal.Decimal, error) {
	var out [NUM_REWARDS]decimal.Decimal
	lower, lok := tm.Ticks[tickLower]
	upper, uok := tm.Ticks[tickUpper]
	if !lok || !uok {
		return out, INVALID_TICK
	}
	insides, err := RewardGrowthInside(lower, upper, tickCurrent, rewardGrowthGlobals[:])
	if err != nil {
		return out, err
	}
	copy(out[:], insides)
	return out, nil
}

func (tm *TickManager) GormDataType() string {
	return "LONGTEXT"
}

func (tm *TickManager) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal TickManager value:", value))
	}
	return json.Unmarshal(bytes, tm)
}

func (tm TickManager) Value() (driver.Value, error) {
	b, err := json.Marshal(tm)
	return string(b), err
}
