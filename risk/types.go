package risk

import (
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MarketID identifies a lending market on the ledger.
type MarketID = common.Hash

// MarketParams captures the immutable configuration of a lending market.
// Amounts elsewhere in the engine are raw fixed-point integers tagged with
// the decimal scales recorded here; no calculation may mix scales without an
// explicit conversion.
type MarketParams struct {
	// ID is the ledger identifier of the market.
	ID MarketID
	// LoanToken is the asset borrowers draw from the pool.
	LoanToken common.Address
	// CollateralToken is the asset pledged against the debt.
	CollateralToken common.Address
	// Oracle is the price feed quoting collateral in loan-token terms.
	Oracle common.Address
	// IRM identifies the interest-rate model contract.
	IRM common.Address
	// LLTV is the liquidation loan-to-value ratio at RatioScale
	// (1e18 == 100%).
	LLTV *big.Int
	// LoanDecimals and CollateralDecimals are the token decimal places the
	// oracle scale is derived from. They are per-market data, never global
	// constants.
	LoanDecimals       uint8
	CollateralDecimals uint8
	// OracleScale is the fixed-point scale of the oracle price, derived once
	// at load time via OracleScaleFor. Calculations divide by this stored
	// value, never by one recomputed at call time.
	OracleScale *big.Int
}

// MarketState is the mutable pool accounting, read fresh for every snapshot.
type MarketState struct {
	TotalSupplyAssets *big.Int
	TotalSupplyShares *big.Int
	TotalBorrowAssets *big.Int
	TotalBorrowShares *big.Int
	// LastUpdate is the unix time interest was last accrued.
	LastUpdate uint64
	// Fee is the protocol fee fraction at RatioScale.
	Fee *big.Int
}

// Position is one borrower's stake in a market. The engine only reads it.
type Position struct {
	SupplyShares *big.Int
	BorrowShares *big.Int
	Collateral   *big.Int
}

// OraclePrice is a raw price reading at the market's oracle scale.
type OraclePrice struct {
	Price *big.Int
	// UpdatedAt is when the feed last refreshed; zero means unknown and is
	// treated as stale.
	UpdatedAt time.Time
}

// Stale reports whether the reading is older than maxAge at the given time.
func (p OraclePrice) Stale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	if p.UpdatedAt.IsZero() {
		return true
	}
	return now.Sub(p.UpdatedAt) > maxAge
}

// HealthFactor is the ratio of the maximum safe debt to the actual debt.
// A position with no debt is infinitely healthy; the sentinel state avoids
// any division by zero.
type HealthFactor struct {
	ratio    *big.Rat
	infinite bool
}

// InfiniteHealth returns the sentinel for a debt-free position.
func InfiniteHealth() HealthFactor {
	return HealthFactor{infinite: true}
}

// FiniteHealth builds the exact rational maxSafeDebt/debt. Zero debt yields
// the infinite sentinel.
func FiniteHealth(maxSafeDebt, debt *big.Int) HealthFactor {
	if debt == nil || debt.Sign() == 0 {
		return InfiniteHealth()
	}
	if maxSafeDebt == nil {
		maxSafeDebt = big.NewInt(0)
	}
	return HealthFactor{ratio: new(big.Rat).SetFrac(maxSafeDebt, debt)}
}

// Infinite reports whether the position carries no debt.
func (h HealthFactor) Infinite() bool { return h.infinite }

// Ratio returns the exact health ratio, or nil for the infinite sentinel.
func (h HealthFactor) Ratio() *big.Rat {
	if h.infinite || h.ratio == nil {
		return nil
	}
	return new(big.Rat).Set(h.ratio)
}

// Healthy reports whether the position is safe from liquidation
// (health >= 1, with no debt always safe).
func (h HealthFactor) Healthy() bool {
	if h.infinite {
		return true
	}
	if h.ratio == nil {
		return false
	}
	return h.ratio.Cmp(big.NewRat(1, 1)) >= 0
}

// Float64 renders the factor for display; the infinite sentinel becomes +Inf.
func (h HealthFactor) Float64() float64 {
	if h.infinite {
		return math.Inf(1)
	}
	if h.ratio == nil {
		return 0
	}
	f, _ := h.ratio.Float64()
	return f
}

// String renders a fixed four-decimal representation, or "inf".
func (h HealthFactor) String() string {
	if h.infinite {
		return "inf"
	}
	if h.ratio == nil {
		return "0"
	}
	return h.ratio.FloatString(4)
}

// RiskSnapshot is the derived view handed to presentation code. It has no
// lifecycle of its own: recomputed from fresh ledger state on every read and
// discarded.
type RiskSnapshot struct {
	Health HealthFactor
	// LiquidationPrice is the collateral price, at the market's oracle
	// scale, at which the health factor crosses 1. Zero collateral pins it
	// to zero.
	LiquidationPrice *big.Int
	// CollateralValue and Debt are in loan-token units.
	CollateralValue *big.Int
	Debt            *big.Int
	// MaxBorrow is the additional loan-token amount that can be drawn while
	// staying safe, rounded down.
	MaxBorrow *big.Int
	// MaxWithdraw is the collateral amount that can be removed while staying
	// safe, rounded down (the retained collateral is rounded up).
	MaxWithdraw *big.Int
	// Utilization is the pool borrow/supply percentage in [0, 100].
	Utilization float64
	BorrowAPY   float64
	SupplyAPY   float64
	// Stale marks an oracle reading older than the configured maximum age.
	// The numbers above are still computed; callers must warn.
	Stale bool
	// Available distinguishes a genuine snapshot from the neutral fallback
	// produced when every read path failed.
	Available bool
}
