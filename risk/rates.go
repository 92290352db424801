package risk

import (
	"math"
	"math/big"
)

const secondsPerYear = 365 * 24 * 60 * 60

// InterestModel shapes how the borrow rate reacts to pool utilisation. The
// curve is linear up to the kink and steepens beyond it. Display-only: no
// safety bound depends on these numbers, so no rounding direction applies.
type InterestModel struct {
	// BaseRate is the borrow APR at zero utilisation.
	BaseRate *big.Rat
	// Slope1 is the APR increase per unit of utilisation below the kink.
	Slope1 *big.Rat
	// Slope2 applies to utilisation beyond the kink.
	Slope2 *big.Rat
	// Kink is the utilisation ratio where the slope changes.
	Kink *big.Rat
}

// NewInterestModel builds a model from decimal inputs, e.g. a 2% base rate
// is 0.02 and an 80% kink is 0.8.
func NewInterestModel(baseRate, slope1, slope2, kink float64) *InterestModel {
	model := &InterestModel{
		BaseRate: new(big.Rat),
		Slope1:   new(big.Rat),
		Slope2:   new(big.Rat),
		Kink:     new(big.Rat),
	}
	model.BaseRate.SetFloat64(baseRate)
	model.Slope1.SetFloat64(slope1)
	model.Slope2.SetFloat64(slope2)
	model.Kink.SetFloat64(kink)
	return model
}

// DefaultInterestModel matches the deployed adaptive curve closely enough
// for display estimates.
var DefaultInterestModel = NewInterestModel(0.01, 0.04, 0.75, 0.9)

// Utilisation computes borrow/supply as an exact ratio. An empty pool has
// zero utilisation; a pool borrowed beyond its recorded supply clamps to one.
func Utilisation(totalBorrowAssets, totalSupplyAssets *big.Int) *big.Rat {
	if totalBorrowAssets == nil || totalBorrowAssets.Sign() == 0 {
		return new(big.Rat)
	}
	if totalSupplyAssets == nil || totalSupplyAssets.Sign() == 0 {
		return big.NewRat(1, 1)
	}
	ratio := new(big.Rat).SetFrac(totalBorrowAssets, totalSupplyAssets)
	if ratio.Cmp(big.NewRat(1, 1)) > 0 {
		return big.NewRat(1, 1)
	}
	return ratio
}

// UtilisationPercent renders utilisation as a percentage in [0, 100].
func UtilisationPercent(totalBorrowAssets, totalSupplyAssets *big.Int) float64 {
	ratio, _ := Utilisation(totalBorrowAssets, totalSupplyAssets).Float64()
	return ratio * 100
}

// BorrowAPR derives the annual borrow rate from the current utilisation.
func (m *InterestModel) BorrowAPR(totalBorrowAssets, totalSupplyAssets *big.Int) *big.Rat {
	if m == nil {
		return new(big.Rat)
	}
	rate := cloneRat(m.BaseRate)
	utilisation := Utilisation(totalBorrowAssets, totalSupplyAssets)
	if utilisation.Sign() == 0 {
		return rate
	}
	kink := cloneRat(m.Kink)
	if kink.Sign() == 0 || utilisation.Cmp(kink) <= 0 {
		return rate.Add(rate, new(big.Rat).Mul(cloneRat(m.Slope1), utilisation))
	}
	rate.Add(rate, new(big.Rat).Mul(cloneRat(m.Slope1), kink))
	excess := new(big.Rat).Sub(utilisation, kink)
	return rate.Add(rate, new(big.Rat).Mul(cloneRat(m.Slope2), excess))
}

// BorrowAPY annualises the per-second borrow rate with compound growth over
// a year of seconds.
func (m *InterestModel) BorrowAPY(totalBorrowAssets, totalSupplyAssets *big.Int) float64 {
	apr, _ := m.BorrowAPR(totalBorrowAssets, totalSupplyAssets).Float64()
	if apr <= 0 {
		return 0
	}
	perSecond := apr / secondsPerYear
	return math.Pow(1+perSecond, secondsPerYear) - 1
}

// SupplyAPY is the borrow yield passed through to suppliers after the
// protocol fee, scaled by utilisation.
func (m *InterestModel) SupplyAPY(totalBorrowAssets, totalSupplyAssets, fee *big.Int) float64 {
	borrowAPY := m.BorrowAPY(totalBorrowAssets, totalSupplyAssets)
	if borrowAPY == 0 {
		return 0
	}
	utilisation, _ := Utilisation(totalBorrowAssets, totalSupplyAssets).Float64()
	if utilisation == 0 {
		return 0
	}
	feeFraction := 0.0
	if fee != nil && fee.Sign() > 0 {
		feeFraction, _ = new(big.Rat).SetFrac(fee, RatioScale).Float64()
		if feeFraction > 1 {
			feeFraction = 1
		}
	}
	return borrowAPY * utilisation * (1 - feeFraction)
}

func cloneRat(r *big.Rat) *big.Rat {
	if r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(r)
}
