package risk

import "math/big"

// MaxBorrow is the additional loan-token amount a position can draw while
// remaining safe. Floor rounding throughout: the displayed capacity must
// never exceed what the ledger would actually accept.
func MaxBorrow(maxSafeDebt, debt *big.Int) *big.Int {
	if maxSafeDebt == nil || maxSafeDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	remaining := new(big.Int).Set(maxSafeDebt)
	if debt != nil {
		remaining.Sub(remaining, debt)
	}
	return clampZero(remaining)
}

// RequiredCollateral is the smallest collateral balance that keeps the debt
// safe at the given price, rounded UP:
//
//	required = ceil(debt * RatioScale * oracleScale / (lltv * price))
//
// Rounding up is mandatory. Rounding down would look more generous but could
// report a withdrawal that the ledger's floor-based health check rejects, or
// worse, accepts into an under-collateralized position. Zero debt needs no
// collateral. A zero price or threshold makes the debt unsupportable at any
// collateral level; the sentinel nil return means "unbounded".
func RequiredCollateral(debt, price, lltv, oracleScale *big.Int) *big.Int {
	if debt == nil || debt.Sign() == 0 {
		return big.NewInt(0)
	}
	if price == nil || price.Sign() == 0 || lltv == nil || lltv.Sign() == 0 {
		return nil
	}
	if oracleScale == nil || oracleScale.Sign() == 0 {
		return nil
	}
	numerScale := new(big.Int).Mul(RatioScale, oracleScale)
	denom := new(big.Int).Mul(lltv, price)
	return MulDivCeil(debt, numerScale, denom)
}

// MaxWithdraw is the collateral that can be removed while keeping the health
// factor at or above one. An unbounded collateral requirement (nil) pins the
// result to zero.
func MaxWithdraw(collateral, requiredCollateral *big.Int) *big.Int {
	if collateral == nil || collateral.Sign() == 0 {
		return big.NewInt(0)
	}
	if requiredCollateral == nil {
		return big.NewInt(0)
	}
	free := new(big.Int).Sub(collateral, requiredCollateral)
	return clampZero(free)
}
