package risk

import "math/big"

var (
	// RatioScale is the fixed-point scale used for LLTV and fee fractions
	// (1e18 == 100%).
	RatioScale = mustBigInt("1000000000000000000")
	one        = big.NewInt(1)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// MulDivFloor returns floor(a*b/denom) without intermediate overflow. Nil
// operands count as zero. A zero denominator is a programming error and
// panics; callers that treat a zero denominator as infinite must
// short-circuit before calling.
func MulDivFloor(a, b, denom *big.Int) *big.Int {
	if denom == nil || denom.Sign() == 0 {
		panic("risk: mulDiv by zero denominator")
	}
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, denom)
}

// MulDivCeil returns ceil(a*b/denom). It equals MulDivFloor plus one exactly
// when a*b leaves a remainder modulo denom.
func MulDivCeil(a, b, denom *big.Int) *big.Int {
	if denom == nil || denom.Sign() == 0 {
		panic("risk: mulDiv by zero denominator")
	}
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	quo, rem := product.QuoRem(product, denom, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, one)
	}
	return quo
}

func clampZero(v *big.Int) *big.Int {
	if v == nil || v.Sign() < 0 {
		return big.NewInt(0)
	}
	return v
}
