package clmm_simulator

import (
	"errors"
	"github.com/shopspring/decimal"
	"math/big"
)

var DIVISION_BY_ZERO = errors.New("DIVISION_BY_ZERO")

func MulDivFloor(a, b, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return decimal.Zero, DIVISION_BY_ZERO
	}
	if a.IsNegative() || b.IsNegative() || denominator.IsNegative() {
		return decimal.Zero, UNDERFLOW
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	quotient := product.Quo(product, denominator.BigInt())
	if quotient.Cmp(MaxUint256.BigInt()) > 0 {
		return decimal.Zero, OVERFLOW
	}
	return decimal.NewFromBigInt(quotient, 0), nil
}

func MulDivCeil(a, b, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return decimal.Zero, DIVISION_BY_ZERO
	}
	if a.IsNegative() || b.IsNegative() || denominator.IsNegative() {
		return decimal.Zero, UNDERFLOW
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	quotient, remainder := new(big.Int).QuoRem(product, denominator.BigInt(), new(big.Int))
	if remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	if quotient.Cmp(MaxUint256.BigInt()) > 0 {
		return decimal.Zero, OVERFLOW
	}
	return decimal.NewFromBigInt(quotient, 0), nil
}

// MulShiftRight returns floor(a * b / 2^shift). It is the multiply primitive
// for Q64.64 values: shift 64 rescales a product of two fixed points back to
// one fixed point.
func MulShiftRight(a, b decimal.Decimal, shift uint) decimal.Decimal {
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return decimal.NewFromBigInt(product.Rsh(product, shift), 0)
}

// WrappingSubU128 returns a - b modulo 2^128. Growth accumulators are allowed
// to overflow on chain, so differences of two accumulators must wrap instead
// of going negative.
func WrappingSubU128(a, b decimal.Decimal) (decimal.Decimal, error) {
	if a.IsNegative() || b.IsNegative() || a.GreaterThan(MaxUint128) || b.GreaterThan(MaxUint128) {
		return decimal.Zero, OVERFLOW
	}
	tmp := a.Add(Q128).Sub(b).BigInt()
	tmp = tmp.Rem(tmp, Q128.BigInt())
	return decimal.NewFromBigInt(tmp, 0), nil
}

// WrappingAddU128 returns a + b modulo 2^128.
func WrappingAddU128(a, b decimal.Decimal) (decimal.Decimal, error) {
	if a.IsNegative() || b.IsNegative() || a.GreaterThan(MaxUint128) || b.GreaterThan(MaxUint128) {
		return decimal.Zero, OVERFLOW
	}
	sum := a.Add(b)
	if sum.GreaterThan(MaxUint128) {
		return sum.Sub(Q128), nil
	}
	return sum, nil
}

// ClampGrowthDelta collapses a wrapped growth delta above MAX_GROWTH_DELTA to
// a single unit. Positions fed with snapshots taken at different times can
// observe inside-growth going backwards; the wrapped difference is then close
// to 2^128 and paying it out would mint fees out of thin air.
func ClampGrowthDelta(delta decimal.Decimal) decimal.Decimal {
	if delta.GreaterThan(MAX_GROWTH_DELTA) {
		return ONE
	}
	return delta
}
