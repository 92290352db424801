package risk

import (
	"math/big"
	"testing"
)

func TestUtilisationPercentBounds(t *testing.T) {
	if got := UtilisationPercent(big.NewInt(0), big.NewInt(1_000)); got != 0 {
		t.Fatalf("empty borrow: got %v want 0", got)
	}
	if got := UtilisationPercent(big.NewInt(500), big.NewInt(1_000)); got != 50 {
		t.Fatalf("half borrowed: got %v want 50", got)
	}
	if got := UtilisationPercent(big.NewInt(100), big.NewInt(0)); got != 100 {
		t.Fatalf("borrow without supply must clamp to 100, got %v", got)
	}
	if got := UtilisationPercent(big.NewInt(2_000), big.NewInt(1_000)); got != 100 {
		t.Fatalf("over-borrowed pool must clamp to 100, got %v", got)
	}
}

func TestBorrowAPRKink(t *testing.T) {
	model := NewInterestModel(0.02, 0.15, 0.6, 0.8)

	atZero := model.BorrowAPR(big.NewInt(0), big.NewInt(1_000))
	if atZero.Cmp(model.BaseRate) != 0 {
		t.Fatalf("zero utilisation must return the base rate, got %s", atZero)
	}

	// Below the kink: 0.02 + 0.15*0.5 = 0.095.
	below, _ := model.BorrowAPR(big.NewInt(500), big.NewInt(1_000)).Float64()
	if below < 0.0949 || below > 0.0951 {
		t.Fatalf("below-kink APR: got %v want ~0.095", below)
	}

	// Above the kink: 0.02 + 0.15*0.8 + 0.6*0.15 = 0.23.
	above, _ := model.BorrowAPR(big.NewInt(950), big.NewInt(1_000)).Float64()
	if above < 0.2299 || above > 0.2301 {
		t.Fatalf("above-kink APR: got %v want ~0.23", above)
	}
}

func TestBorrowAPYCompounds(t *testing.T) {
	model := NewInterestModel(0.10, 0, 0, 0.8)
	apy := model.BorrowAPY(big.NewInt(0), big.NewInt(1_000))
	// e^0.10 - 1 = 0.10517; per-second compounding lands a hair below.
	if apy <= 0.105 || apy >= 0.1052 {
		t.Fatalf("APY: got %v want ~0.10517", apy)
	}
	if apy <= 0.10 {
		t.Fatal("compounded APY must exceed the simple APR")
	}
}

func TestSupplyAPYBelowBorrowAPY(t *testing.T) {
	model := NewInterestModel(0.02, 0.15, 0.6, 0.8)
	borrow := model.BorrowAPY(big.NewInt(500), big.NewInt(1_000))
	fee := mustBigInt("100000000000000000") // 10%
	supply := model.SupplyAPY(big.NewInt(500), big.NewInt(1_000), fee)
	if supply <= 0 {
		t.Fatal("supply APY must be positive while the pool earns")
	}
	if supply >= borrow {
		t.Fatalf("supply APY %v must stay below borrow APY %v", supply, borrow)
	}
	noFee := model.SupplyAPY(big.NewInt(500), big.NewInt(1_000), nil)
	if noFee <= supply {
		t.Fatal("protocol fee must reduce the supply APY")
	}
}
