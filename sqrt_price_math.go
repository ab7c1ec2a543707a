package clmm_simulator

import "github.com/shopspring/decimal"

// GetTokenAmountAFromLiquidity returns the amount of token A held between two
// sqrt prices at the given liquidity:
//
//	amountA = L<<64 * (upper - lower) / upper / lower
//
// with both divisions rounded the same way.
func GetTokenAmountAFromLiquidity(
	sqrtPrice0 decimal.Decimal,
	sqrtPrice1 decimal.Decimal,
	liquidity decimal.Decimal,
	roundUp bool,
) (decimal.Decimal, error) {
	lower, upper := sqrtPrice0, sqrtPrice1
	if lower.GreaterThan(upper) {
		lower, upper = upper, lower
	}
	if !lower.IsPositive() {
		return decimal.Zero, PRICE_OUT_OF_BOUNDS
	}
	numerator := liquidity.Mul(Q64)
	diff := upper.Sub(lower)
	if roundUp {
		quotient, err := MulDivCeil(numerator, diff, upper)
		if err != nil {
			return decimal.Zero, err
		}
		return MulDivCeil(quotient, ONE, lower)
	}
	quotient, err := MulDivFloor(numerator, diff, upper)
	if err != nil {
		return decimal.Zero, err
	}
	return MulDivFloor(quotient, ONE, lower)
}

// GetTokenAmountBFromLiquidity returns the amount of token B held between two
// sqrt prices at the given liquidity: amountB = L * (upper - lower) / 2^64.
func GetTokenAmountBFromLiquidity(
	sqrtPrice0 decimal.Decimal,
	sqrtPrice1 decimal.Decimal,
	liquidity decimal.Decimal,
	roundUp bool,
) (decimal.Decimal, error) {
	lower, upper := sqrtPrice0, sqrtPrice1
	if lower.GreaterThan(upper) {
		lower, upper = upper, lower
	}
	if roundUp {
		return MulDivCeil(liquidity, upper.Sub(lower), Q64)
	}
	return MulDivFloor(liquidity, upper.Sub(lower), Q64)
}

// GetNextSqrtPriceFromInput returns the sqrt price after consuming amountIn
// of the input token. The result is rounded away from the direction of
// travel, so the pool never gives out more than the input pays for.
func GetNextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn decimal.Decimal, aToB bool) (decimal.Decimal, error) {
	if !sqrtPrice.IsPositive() {
		return decimal.Zero, PRICE_OUT_OF_BOUNDS
	}
	if !liquidity.IsPositive() {
		return decimal.Zero, UNDERFLOW
	}
	if aToB {
		return getNextSqrtPriceFromTokenAAmountRoundingUp(sqrtPrice, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromTokenBAmountRoundingDown(sqrtPrice, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput returns the sqrt price after paying out
// amountOut of the output token.
func GetNextSqrtPriceFromOutput(sqrtPrice, liquidity, amountOut decimal.Decimal, aToB bool) (decimal.Decimal, error) {
	if !sqrtPrice.IsPositive() {
		return decimal.Zero, PRICE_OUT_OF_BOUNDS
	}
	if !liquidity.IsPositive() {
		return decimal.Zero, UNDERFLOW
	}
	if aToB {
		return getNextSqrtPriceFromTokenBAmountRoundingDown(sqrtPrice, liquidity, amountOut, false)
	}
	return getNextSqrtPriceFromTokenAAmountRoundingUp(sqrtPrice, liquidity, amountOut, false)
}

// p' = L<<64 * p / (L<<64 +- amount*p), rounded up.
func getNextSqrtPriceFromTokenAAmountRoundingUp(sqrtPrice, liquidity, amount decimal.Decimal, add bool) (decimal.Decimal, error) {
	if amount.IsZero() {
		return sqrtPrice, nil
	}
	numerator := liquidity.Mul(Q64)
	product := amount.Mul(sqrtPrice)
	if add {
		return MulDivCeil(numerator, sqrtPrice, numerator.Add(product))
	}
	if numerator.LessThanOrEqual(product) {
		return decimal.Zero, UNDERFLOW
	}
	return MulDivCeil(numerator, sqrtPrice, numerator.Sub(product))
}

// p' = p +- amount<<64 / L. The quotient is floored when adding and ceiled
// when subtracting so the price estimate never overshoots the true value.
func getNextSqrtPriceFromTokenBAmountRoundingDown(sqrtPrice, liquidity, amount decimal.Decimal, add bool) (decimal.Decimal, error) {
	if add {
		quotient, err := MulDivFloor(amount, Q64, liquidity)
		if err != nil {
			return decimal.Zero, err
		}
		return sqrtPrice.Add(quotient), nil
	}
	quotient, err := MulDivCeil(amount, Q64, liquidity)
	if err != nil {
		return decimal.Zero, err
	}
	if sqrtPrice.LessThanOrEqual(quotient) {
		return decimal.Zero, UNDERFLOW
	}
	return sqrtPrice.Sub(quotient), nil
}
