package risk

import (
	"fmt"
	"math/big"
	"time"
)

// DefaultMaxPriceAge is the staleness horizon applied when a market config
// does not override it.
const DefaultMaxPriceAge = 24 * time.Hour

const oracleScaleBaseExponent = 36

var (
	// PriceScale is the encoding scale of the raw oracle integer: a 1:1
	// cross-asset price reads as 1e36 regardless of token decimals.
	PriceScale = mustBigInt("1000000000000000000000000000000000000")

	ten = big.NewInt(10)
)

// OracleScaleFor derives the per-market divisor that converts
// collateral * price into loan-token units:
//
//	collateralValue = collateral * price / 10^(36 + collateralDecimals - loanDecimals)
//
// The exponent folds the token decimal difference into the divisor, so a
// parity price is always the literal 1e36 and calculations never rescale by
// token decimals at call time. Decimals are per-market data: a market pairing
// unusual tokens gets its own scale instead of silently inheriting a global
// constant.
func OracleScaleFor(loanDecimals, collateralDecimals uint8) (*big.Int, error) {
	exponent := oracleScaleBaseExponent + int(collateralDecimals) - int(loanDecimals)
	if exponent < 0 {
		return nil, fmt.Errorf("risk: oracle scale exponent %d out of range for %d/%d decimals",
			exponent, loanDecimals, collateralDecimals)
	}
	return new(big.Int).Exp(ten, big.NewInt(int64(exponent)), nil), nil
}

// NormalizeParams fills in the derived oracle scale and validates the
// liquidation threshold. Market parameters must pass through here before any
// calculation uses them.
func NormalizeParams(params MarketParams) (MarketParams, error) {
	if params.LLTV == nil || params.LLTV.Sign() <= 0 {
		return params, fmt.Errorf("risk: market %s has no liquidation threshold", params.ID)
	}
	if params.LLTV.Cmp(RatioScale) >= 0 {
		return params, fmt.Errorf("risk: market %s LLTV %s is not below 100%%", params.ID, params.LLTV)
	}
	scale, err := OracleScaleFor(params.LoanDecimals, params.CollateralDecimals)
	if err != nil {
		return params, err
	}
	params.OracleScale = scale
	return params, nil
}
