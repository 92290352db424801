package risk

import (
	"math/big"
	"time"
)

// Engine bundles the static knobs the pure calculations need. It carries no
// mutable state; a single Engine may serve any number of concurrent
// snapshots.
type Engine struct {
	// MaxPriceAge marks oracle readings older than this as stale.
	MaxPriceAge time.Duration
	// Rates estimates display APYs from utilisation.
	Rates *InterestModel
}

// NewEngine applies the default staleness horizon and rate curve.
func NewEngine() *Engine {
	return &Engine{
		MaxPriceAge: DefaultMaxPriceAge,
		Rates:       DefaultInterestModel,
	}
}

// Compute derives the full risk view for one position from fresh ledger
// state. It is the single implementation of the formulas: both read paths
// feed their decoded integers through here, so the managed-client and
// raw-call paths cannot drift apart.
//
// Params must have passed NormalizeParams so the oracle scale is populated.
func (e *Engine) Compute(params MarketParams, state MarketState, position Position, price OraclePrice, now time.Time) RiskSnapshot {
	debt := DebtFromShares(position.BorrowShares, state.TotalBorrowAssets, state.TotalBorrowShares)
	collateralValue := CollateralValue(position.Collateral, price.Price, params.OracleScale)
	maxSafeDebt := MaxSafeDebt(collateralValue, params.LLTV)

	required := RequiredCollateral(debt, price.Price, params.LLTV, params.OracleScale)

	model := e.Rates
	if model == nil {
		model = DefaultInterestModel
	}

	return RiskSnapshot{
		Health:           Health(maxSafeDebt, debt),
		LiquidationPrice: LiquidationPrice(debt, position.Collateral, params.LLTV, params.OracleScale),
		CollateralValue:  collateralValue,
		Debt:             debt,
		MaxBorrow:        MaxBorrow(maxSafeDebt, debt),
		MaxWithdraw:      MaxWithdraw(position.Collateral, required),
		Utilization:      UtilisationPercent(state.TotalBorrowAssets, state.TotalSupplyAssets),
		BorrowAPY:        model.BorrowAPY(state.TotalBorrowAssets, state.TotalSupplyAssets),
		SupplyAPY:        model.SupplyAPY(state.TotalBorrowAssets, state.TotalSupplyAssets, state.Fee),
		Stale:            price.Stale(now, e.MaxPriceAge),
		Available:        true,
	}
}

// NeutralSnapshot is the well-defined result when every read path failed:
// infinitely healthy, zero capacity everywhere, and explicitly flagged
// unavailable so callers cannot mistake it for a genuinely empty position.
func NeutralSnapshot() RiskSnapshot {
	return RiskSnapshot{
		Health:           InfiniteHealth(),
		LiquidationPrice: big.NewInt(0),
		CollateralValue:  big.NewInt(0),
		Debt:             big.NewInt(0),
		MaxBorrow:        big.NewInt(0),
		MaxWithdraw:      big.NewInt(0),
		Available:        false,
	}
}
