package clmm_simulator

import (
	"errors"
	"github.com/shopspring/decimal"
)

var OVERFLOW = errors.New("OVERFLOW")
var UNDERFLOW = errors.New("UNDERFLOW")

// LiquidityAddDelta applies a signed liquidity delta to an unsigned u128
// liquidity value.
func LiquidityAddDelta(x decimal.Decimal, y decimal.Decimal) (decimal.Decimal, error) {
	if x.IsNegative() || x.GreaterThan(MaxUint128) {
		return decimal.Zero, OVERFLOW
	}
	if y.LessThan(MinInt128) || y.GreaterThan(MaxInt128) {
		return decimal.Zero, OVERFLOW
	}
	if y.IsNegative() {
		negy := y.Neg()
		if negy.GreaterThan(x) {
			return decimal.Zero, UNDERFLOW
		}
		return x.Sub(negy), nil
	}
	sum := x.Add(y)
	if sum.GreaterThan(MaxUint128) {
		return decimal.Zero, OVERFLOW
	}
	return sum, nil
}
