package risk

import (
	"math/big"
	"testing"
)

func TestDebtFromSharesRoundsUp(t *testing.T) {
	// 3 shares of a 10-asset / 7-share pool: 30/7 = 4.28..., the ledger
	// rounds debt against the borrower.
	debt := DebtFromShares(big.NewInt(3), big.NewInt(10), big.NewInt(7))
	if debt.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("debt: got %s want 5", debt)
	}
}

func TestDebtFromSharesExact(t *testing.T) {
	debt := DebtFromShares(big.NewInt(4), big.NewInt(100), big.NewInt(10))
	if debt.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("debt: got %s want 40", debt)
	}
}

func TestDebtFromSharesEmptyPool(t *testing.T) {
	if DebtFromShares(big.NewInt(5), big.NewInt(0), big.NewInt(0)).Sign() != 0 {
		t.Fatal("empty pool must yield zero debt")
	}
	if DebtFromShares(nil, big.NewInt(10), big.NewInt(7)).Sign() != 0 {
		t.Fatal("nil shares must yield zero debt")
	}
}
