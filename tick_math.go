package clmm_simulator

import (
	"errors"
	"github.com/shopspring/decimal"
	"math/big"
)

var INVALID_TICK = errors.New("INVALID_TICK")
var PRICE_OUT_OF_BOUNDS = errors.New("PRICE_OUT_OF_BOUNDS")

// Multipliers for sqrt(1.0001)^(2^i). Negative ticks accumulate in Q64.64,
// positive ticks in Q64.96 and shift down at the end, so that
// TickIndexToSqrtPriceQ64(MIN_TICK) == MIN_SQRT_PRICE_X64 and
// TickIndexToSqrtPriceQ64(MAX_TICK) == MAX_SQRT_PRICE_X64 hold exactly.
var sqrtPriceNegMultipliers = []decimal.Decimal{
	decimal.RequireFromString("18445821805675392311"),
	decimal.RequireFromString("18444899583751176498"),
	decimal.RequireFromString("18443055278223354162"),
	decimal.RequireFromString("18439367220385604838"),
	decimal.RequireFromString("18431993317065449817"),
	decimal.RequireFromString("18417254355718160513"),
	decimal.RequireFromString("18387811781193591352"),
	decimal.RequireFromString("18329067761203520168"),
	decimal.RequireFromString("18212142134806087854"),
	decimal.RequireFromString("17980523815641551639"),
	decimal.RequireFromString("17526086738831147013"),
	decimal.RequireFromString("16651378430235024244"),
	decimal.RequireFromString("15030750278693429944"),
	decimal.RequireFromString("12247334978882834399"),
	decimal.RequireFromString("8131365268884726200"),
	decimal.RequireFromString("3584323654723342297"),
	decimal.RequireFromString("696457651847595233"),
	decimal.RequireFromString("26294789957452057"),
	decimal.RequireFromString("37481735321082"),
}

var sqrtPricePosMultipliers = []decimal.Decimal{
	decimal.RequireFromString("79232123823359799118286999567"),
	decimal.RequireFromString("79236085330515764027303304731"),
	decimal.RequireFromString("79244008939048815603706035061"),
	decimal.RequireFromString("79259858533276714757314932305"),
	decimal.RequireFromString("79291567232598584799939703904"),
	decimal.RequireFromString("79355022692464371645785046466"),
	decimal.RequireFromString("79482085999252804386437311141"),
	decimal.RequireFromString("79736823300114093921829183326"),
	decimal.RequireFromString("80248749790819932309965073892"),
	decimal.RequireFromString("81282483887344747381513967011"),
	decimal.RequireFromString("83390072131320151908154831281"),
	decimal.RequireFromString("87770609709833776024991924138"),
	decimal.RequireFromString("97234110755111693312479820773"),
	decimal.RequireFromString("119332217159966728226237229890"),
	decimal.RequireFromString("179736315981702064433883588727"),
	decimal.RequireFromString("407748233172238350107850275304"),
	decimal.RequireFromString("2098478828474011932436660412517"),
	decimal.RequireFromString("55581415166113811149459800483533"),
	decimal.RequireFromString("38992368544603139932233054999993551"),
}

const bitPrecision = 14

var (
	logB2X32               = big.NewInt(59543866431248)
	logBPErrMarginLowerX64 = big.NewInt(184467440737095516)
	logBPErrMarginUpperX64 = new(big.Int).SetUint64(15793534762490258745)
)

// TickIndexToSqrtPriceQ64 returns sqrt(1.0001^tick) as a Q64.64 fixed point.
func TickIndexToSqrtPriceQ64(tick int) (decimal.Decimal, error) {
	if tick < MIN_TICK || tick > MAX_TICK {
		return decimal.Zero, INVALID_TICK
	}
	if tick >= 0 {
		ratio := Q96
		for i, multiplier := range sqrtPricePosMultipliers {
			if tick&(1<<uint(i)) != 0 {
				ratio = MulShiftRight(ratio, multiplier, 96)
			}
		}
		return MulShiftRight(ratio, ONE, 32), nil
	}
	absTick := -tick
	ratio := Q64
	for i, multiplier := range sqrtPriceNegMultipliers {
		if absTick&(1<<uint(i)) != 0 {
			ratio = MulShiftRight(ratio, multiplier, 64)
		}
	}
	return ratio, nil
}

// SqrtPriceQ64ToTickIndex returns the largest tick whose sqrt price is less
// than or equal to the given sqrt price. The log2 approximation carries 14
// fractional bits, which narrows the answer to two candidate ticks; the
// upper candidate is verified against the forward function.
func SqrtPriceQ64ToTickIndex(sqrtPrice decimal.Decimal) (int, error) {
	if sqrtPrice.LessThan(MIN_SQRT_PRICE_X64) || sqrtPrice.GreaterThan(MAX_SQRT_PRICE_X64) {
		return 0, PRICE_OUT_OF_BOUNDS
	}
	price := sqrtPrice.BigInt()
	msb := price.BitLen() - 1
	log2pIntegerX32 := new(big.Int).Lsh(big.NewInt(int64(msb-64)), 32)

	var r *big.Int
	if msb >= 64 {
		r = new(big.Int).Rsh(price, uint(msb-63))
	} else {
		r = new(big.Int).Lsh(price, uint(63-msb))
	}
	bit := new(big.Int).Lsh(big.NewInt(1), 63)
	log2pFractionX64 := new(big.Int)
	for i := 0; i < bitPrecision; i++ {
		r.Mul(r, r)
		rMoreThanTwo := new(big.Int).Rsh(r, 127)
		r.Rsh(r, uint(63+rMoreThanTwo.Uint64()))
		log2pFractionX64.Add(log2pFractionX64, new(big.Int).Mul(bit, rMoreThanTwo))
		bit.Rsh(bit, 1)
	}
	log2pFractionX32 := new(big.Int).Rsh(log2pFractionX64, 32)
	log2pX32 := new(big.Int).Add(log2pIntegerX32, log2pFractionX32)
	logbpX64 := new(big.Int).Mul(log2pX32, logB2X32)

	// big.Int Rsh is an arithmetic shift, so both candidates floor toward
	// negative infinity
	tickLow := int(new(big.Int).Rsh(new(big.Int).Sub(logbpX64, logBPErrMarginLowerX64), 64).Int64())
	tickHigh := int(new(big.Int).Rsh(new(big.Int).Add(logbpX64, logBPErrMarginUpperX64), 64).Int64())
	if tickLow == tickHigh {
		return tickLow, nil
	}
	derived, err := TickIndexToSqrtPriceQ64(tickHigh)
	if err != nil {
		return 0, err
	}
	if derived.LessThanOrEqual(sqrtPrice) {
		return tickHigh, nil
	}
	return tickLow, nil
}

var pow5To128 = new(big.Int).Exp(big.NewInt(5), big.NewInt(128), nil)

// SqrtPriceQ64ToDecimalPrice converts a Q64.64 sqrt price into the exact
// decimal price of token B in terms of token A, adjusted by the tokens'
// decimal difference. (p/2^64)^2 == p^2*5^128 * 10^-128, so the conversion
// stays in integer arithmetic.
func SqrtPriceQ64ToDecimalPrice(sqrtPrice decimal.Decimal, decimalsA, decimalsB int) (decimal.Decimal, error) {
	if !sqrtPrice.IsPositive() {
		return decimal.Zero, PRICE_OUT_OF_BOUNDS
	}
	squared := new(big.Int).Mul(sqrtPrice.BigInt(), sqrtPrice.BigInt())
	squared.Mul(squared, pow5To128)
	return decimal.NewFromBigInt(squared, -128).Shift(int32(decimalsA - decimalsB)), nil
}

// DefaultSqrtPriceLimit returns the hard price bound for a swap direction.
func DefaultSqrtPriceLimit(aToB bool) decimal.Decimal {
	if aToB {
		return MIN_SQRT_PRICE_X64
	}
	return MAX_SQRT_PRICE_X64
}
