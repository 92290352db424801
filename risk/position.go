package risk

import "math/big"

// CollateralValue prices the collateral in loan-token units, rounding down.
// The oracle scale is the stored per-market constant from NormalizeParams.
func CollateralValue(collateral, price, oracleScale *big.Int) *big.Int {
	if collateral == nil || collateral.Sign() == 0 || price == nil || price.Sign() == 0 {
		return big.NewInt(0)
	}
	if oracleScale == nil || oracleScale.Sign() == 0 {
		return big.NewInt(0)
	}
	return MulDivFloor(collateral, price, oracleScale)
}

// MaxSafeDebt is the largest loan-token debt the collateral supports before
// the position becomes eligible for liquidation, rounding down. This matches
// the ledger's own floor-based health check.
func MaxSafeDebt(collateralValue, lltv *big.Int) *big.Int {
	if collateralValue == nil || collateralValue.Sign() == 0 || lltv == nil || lltv.Sign() == 0 {
		return big.NewInt(0)
	}
	return MulDivFloor(collateralValue, lltv, RatioScale)
}

// Health computes the health factor maxSafeDebt/debt. Zero debt yields the
// infinite sentinel rather than a division fault.
func Health(maxSafeDebt, debt *big.Int) HealthFactor {
	return FiniteHealth(maxSafeDebt, debt)
}

// LiquidationPrice solves for the collateral price, at the oracle scale,
// where the health factor equals exactly one:
//
//	debt == collateral * price / oracleScale * lltv / RatioScale
//
// The price is rounded up so the reported threshold is never below the point
// where the ledger would already consider the position liquidatable. Zero
// collateral has nothing to protect and pins the result to zero; zero debt
// likewise.
//
// The computation is staged through big integers, so no intermediate result
// can overflow for any realistic token magnitude.
func LiquidationPrice(debt, collateral, lltv, oracleScale *big.Int) *big.Int {
	if collateral == nil || collateral.Sign() == 0 {
		return big.NewInt(0)
	}
	if debt == nil || debt.Sign() == 0 {
		return big.NewInt(0)
	}
	if lltv == nil || lltv.Sign() == 0 || oracleScale == nil || oracleScale.Sign() == 0 {
		return big.NewInt(0)
	}
	borrowable := MulDivFloor(collateral, lltv, RatioScale)
	if borrowable.Sign() == 0 {
		return big.NewInt(0)
	}
	return MulDivCeil(debt, oracleScale, borrowable)
}
