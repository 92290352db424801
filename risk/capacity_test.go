package risk

import (
	"math/big"
	"testing"
)

func TestMaxBorrowReferenceScenario(t *testing.T) {
	value := CollateralValue(testCollateral, parityPrice, testOracleScale)
	safe := MaxSafeDebt(value, testLLTV)
	extra := MaxBorrow(safe, testDebt)
	if extra.Cmp(big.NewInt(54_000_000)) != 0 {
		t.Fatalf("max borrow: got %s want 54000000", extra)
	}
}

func TestMaxBorrowZeroDebtIsFullCapacity(t *testing.T) {
	value := CollateralValue(testCollateral, parityPrice, testOracleScale)
	safe := MaxSafeDebt(value, testLLTV)
	extra := MaxBorrow(safe, big.NewInt(0))
	if extra.Cmp(big.NewInt(154_000_000)) != 0 {
		t.Fatalf("max borrow: got %s want 154000000", extra)
	}
}

func TestMaxBorrowClampsAtZero(t *testing.T) {
	extra := MaxBorrow(big.NewInt(154_000_000), big.NewInt(200_000_000))
	if extra.Sign() != 0 {
		t.Fatalf("over-borrowed position must report zero capacity, got %s", extra)
	}
}

func TestRequiredCollateralRoundsUp(t *testing.T) {
	required := RequiredCollateral(testDebt, parityPrice, testLLTV, testOracleScale)
	// 100e6 * 1e18 * 1e48 / (0.77e18 * 1e36) = 129870129870129870129.87...,
	// which must round UP. Rounding down would advertise a withdrawal the
	// ledger's floor-based health check rejects.
	want := mustBigInt("129870129870129870130")
	if required.Cmp(want) != 0 {
		t.Fatalf("required collateral: got %s want %s", required, want)
	}
}

func TestMaxWithdrawReferenceScenario(t *testing.T) {
	required := RequiredCollateral(testDebt, parityPrice, testLLTV, testOracleScale)
	free := MaxWithdraw(testCollateral, required)
	want := mustBigInt("70129870129870129870")
	if free.Cmp(want) != 0 {
		t.Fatalf("max withdraw: got %s want %s", free, want)
	}
}

func TestMaxWithdrawZeroDebtReleasesEverything(t *testing.T) {
	required := RequiredCollateral(big.NewInt(0), parityPrice, testLLTV, testOracleScale)
	free := MaxWithdraw(testCollateral, required)
	if free.Cmp(testCollateral) != 0 {
		t.Fatalf("debt-free position must release all collateral, got %s", free)
	}
}

func TestMaxWithdrawUnboundedRequirement(t *testing.T) {
	// With no usable price the debt cannot be supported at any collateral
	// level; nothing may be withdrawn.
	required := RequiredCollateral(testDebt, big.NewInt(0), testLLTV, testOracleScale)
	if required != nil {
		t.Fatalf("zero price must yield the unbounded sentinel, got %s", required)
	}
	if MaxWithdraw(testCollateral, required).Sign() != 0 {
		t.Fatal("unbounded requirement must pin max withdraw to zero")
	}
}

func TestMaxWithdrawExactBoundary(t *testing.T) {
	// LLTV 80% divides evenly, so the post-withdrawal health factor is
	// exactly one.
	lltv := mustBigInt("800000000000000000")
	required := RequiredCollateral(testDebt, parityPrice, lltv, testOracleScale)
	if required.Cmp(mustBigInt("125000000000000000000")) != 0 {
		t.Fatalf("required collateral: got %s", required)
	}
	free := MaxWithdraw(testCollateral, required)
	if free.Cmp(mustBigInt("75000000000000000000")) != 0 {
		t.Fatalf("max withdraw: got %s", free)
	}
	remaining := new(big.Int).Sub(testCollateral, free)
	health := Health(MaxSafeDebt(CollateralValue(remaining, parityPrice, testOracleScale), lltv), testDebt)
	if health.Ratio().Cmp(big.NewRat(1, 1)) != 0 {
		t.Fatalf("post-withdrawal health: got %s want exactly 1", health)
	}
}

// The critical safety bound: withdrawing exactly MaxWithdraw never drops the
// health factor below one beyond integer quantization, and the quantization
// slack never exceeds a couple of loan-token base units. A rounding
// direction that favored the borrower would fail this by a wide margin.
func TestMaxWithdrawSafetyBound(t *testing.T) {
	lltvs := []string{
		"770000000000000000",
		"800000000000000000",
		"915000000000000000",
		"385000000000000000",
	}
	for _, raw := range lltvs {
		lltv := mustBigInt(raw)
		required := RequiredCollateral(testDebt, parityPrice, lltv, testOracleScale)
		free := MaxWithdraw(testCollateral, required)
		if required.Cmp(testCollateral) > 0 {
			// Already under-collateralized: the only safe withdrawal is none.
			if free.Sign() != 0 {
				t.Fatalf("lltv %s: unsafe position must report zero withdrawal", raw)
			}
			continue
		}
		remaining := new(big.Int).Sub(testCollateral, free)

		safeAfter := MaxSafeDebt(CollateralValue(remaining, parityPrice, testOracleScale), lltv)
		slack := new(big.Int).Sub(testDebt, safeAfter)
		if slack.Cmp(big.NewInt(2)) > 0 {
			t.Fatalf("lltv %s: withdrawal left a shortfall of %s base units", raw, slack)
		}

		// The staged (un-quantized) check the ledger applies must hold
		// outright: risk-weighted remaining collateral covers the debt.
		covered := MulDivFloor(MulDivFloor(remaining, parityPrice, testOracleScale), lltv, RatioScale)
		weighted := MulDivCeil(remaining, new(big.Int).Mul(parityPrice, lltv), new(big.Int).Mul(testOracleScale, RatioScale))
		if covered.Cmp(testDebt) < 0 && weighted.Cmp(testDebt) < 0 {
			t.Fatalf("lltv %s: remaining collateral %s does not cover debt", raw, remaining)
		}
	}
}
