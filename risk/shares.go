package risk

import "math/big"

// DebtFromShares converts a borrower's share balance into a loan-token
// amount at the pool's current exchange rate, rounding up. The ledger rounds
// debt in the pool's favor; mirroring that here keeps every derived number a
// conservative bound. Both read paths must use this conversion.
func DebtFromShares(borrowShares, totalBorrowAssets, totalBorrowShares *big.Int) *big.Int {
	if borrowShares == nil || borrowShares.Sign() == 0 {
		return big.NewInt(0)
	}
	if totalBorrowShares == nil || totalBorrowShares.Sign() == 0 {
		return big.NewInt(0)
	}
	return MulDivCeil(borrowShares, clampZero(totalBorrowAssets), totalBorrowShares)
}
