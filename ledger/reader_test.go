package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotFromPrimaryPath(t *testing.T) {
	node := newFakeNode()
	seedLedgerState(t, node)
	svc := NewSnapshotService(NewContractReader(node, testLedgerAddr), discardLogger(),
		WithClock(func() time.Time { return time.Unix(1_700_000_100, 0) }))

	snap := svc.Snapshot(context.Background(), testParams(t), testAccountAddr)
	if !snap.Available {
		t.Fatal("snapshot must be available when the primary path works")
	}
	if snap.Debt.Cmp(big.NewInt(100_000_000)) != 0 {
		t.Fatalf("debt: got %s", snap.Debt)
	}
	if snap.Health.Ratio().Cmp(big.NewRat(154, 100)) != 0 {
		t.Fatalf("health: got %s", snap.Health)
	}
	if snap.Stale {
		t.Fatal("accrual-fresh state must not read as stale")
	}
}

func TestSnapshotFallsBackToRawPath(t *testing.T) {
	broken := newFakeNode()
	broken.err = errors.New("connection refused")
	healthy := newFakeNode()
	seedLedgerState(t, healthy)

	svc := NewSnapshotService(NewContractReader(broken, testLedgerAddr), discardLogger(),
		WithFallback(NewRawCallReader(healthy, testLedgerAddr)),
		WithClock(func() time.Time { return time.Unix(1_700_000_100, 0) }))

	snap := svc.Snapshot(context.Background(), testParams(t), testAccountAddr)
	if !snap.Available {
		t.Fatal("fallback path must still produce a live snapshot")
	}
	if snap.Health.Ratio().Cmp(big.NewRat(154, 100)) != 0 {
		t.Fatalf("health via fallback: got %s", snap.Health)
	}
}

func TestSnapshotNeutralWhenAllPathsFail(t *testing.T) {
	broken := newFakeNode()
	broken.err = errors.New("connection refused")
	alsoBroken := newFakeNode()
	alsoBroken.err = errors.New("timeout")

	svc := NewSnapshotService(NewContractReader(broken, testLedgerAddr), discardLogger(),
		WithFallback(NewRawCallReader(alsoBroken, testLedgerAddr)))

	snap := svc.Snapshot(context.Background(), testParams(t), testAccountAddr)
	if snap.Available {
		t.Fatal("total failure must flag the snapshot unavailable")
	}
	if !snap.Health.Infinite() {
		t.Fatal("neutral snapshot carries the infinite sentinel, not zero health")
	}
	if snap.MaxBorrow.Sign() != 0 || snap.MaxWithdraw.Sign() != 0 || snap.Debt.Sign() != 0 {
		t.Fatal("neutral snapshot must zero all capacities")
	}
}

func TestSnapshotNeutralWithoutFallback(t *testing.T) {
	broken := newFakeNode()
	broken.err = errors.New("connection refused")
	svc := NewSnapshotService(NewContractReader(broken, testLedgerAddr), discardLogger())

	snap := svc.Snapshot(context.Background(), testParams(t), testAccountAddr)
	if snap.Available {
		t.Fatal("snapshot must be unavailable with no fallback configured")
	}
}

// fallbackCounter reads risk_read_fallback_total for one market label from
// the process registry; an unregistered label reads as zero.
func fallbackCounter(t *testing.T, market string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "risk_read_fallback_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "market" && label.GetValue() == market {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestFallbackCounterOnlyCountsRealAttempts(t *testing.T) {
	broken := newFakeNode()
	broken.err = errors.New("connection refused")
	svc := NewSnapshotService(NewContractReader(broken, testLedgerAddr), discardLogger())

	// Unique market id so the counter label is untouched by other tests.
	params := testParams(t)
	params.ID = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000f4")

	snap := svc.Snapshot(context.Background(), params, testAccountAddr)
	if snap.Available {
		t.Fatal("snapshot must be unavailable with no fallback configured")
	}
	if got := fallbackCounter(t, params.ID.Hex()); got != 0 {
		t.Fatalf("fallback counter moved to %v with no fallback configured", got)
	}
}

func TestSnapshotInheritsAccrualTimestamp(t *testing.T) {
	node := newFakeNode()
	seedLedgerState(t, node)
	// 25 hours after the pool's last accrual, with a feed that exposes no
	// timestamp of its own, the reading counts as stale.
	svc := NewSnapshotService(NewContractReader(node, testLedgerAddr), discardLogger(),
		WithClock(func() time.Time { return time.Unix(1_700_000_000+25*3600, 0) }))

	snap := svc.Snapshot(context.Background(), testParams(t), testAccountAddr)
	if !snap.Available {
		t.Fatal("snapshot must be available")
	}
	if !snap.Stale {
		t.Fatal("aged accrual timestamp must flag staleness")
	}
}
