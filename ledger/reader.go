package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lendrisk/observability/metrics"
	"lendrisk/risk"
)

// ErrDecode marks a malformed or short response on either read path. A
// decode failure is a path failure: the caller moves on to the next path.
var ErrDecode = errors.New("ledger: malformed response")

// Reader is one call path into the ledger. The managed-client path and the
// raw-call fallback both satisfy it and must decode identical raw state into
// identical values.
type Reader interface {
	// Params fetches the immutable market configuration (token addresses,
	// oracle, LLTV). Token decimals are layered in by the caller.
	Params(ctx context.Context, market risk.MarketID) (risk.MarketParams, error)
	// MarketState fetches the mutable pool totals.
	MarketState(ctx context.Context, market risk.MarketID) (risk.MarketState, error)
	// Position fetches one borrower's shares and collateral.
	Position(ctx context.Context, market risk.MarketID, account common.Address) (risk.Position, error)
	// Price fetches the raw oracle reading. UpdatedAt may be zero when the
	// feed does not expose a timestamp.
	Price(ctx context.Context, oracle common.Address) (risk.OraclePrice, error)
	// TokenMetadata fetches display name, symbol and decimals of a token.
	TokenMetadata(ctx context.Context, token common.Address) (TokenMetadata, error)
}

// TokenMetadata is display-only token information.
type TokenMetadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// SnapshotService assembles risk snapshots from ledger state. Reads go to
// the primary path first; on failure the raw-call fallback is tried once; if
// both fail the caller receives the neutral snapshot, flagged unavailable.
// There are no further retries.
type SnapshotService struct {
	primary  Reader
	fallback Reader
	engine   *risk.Engine
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.RiskMetrics
	now      func() time.Time
}

// SnapshotOption customises a SnapshotService.
type SnapshotOption func(*SnapshotService)

// WithFallback installs the secondary read path.
func WithFallback(reader Reader) SnapshotOption {
	return func(s *SnapshotService) { s.fallback = reader }
}

// WithTimeout bounds each per-path fetch. The default is five seconds.
func WithTimeout(d time.Duration) SnapshotOption {
	return func(s *SnapshotService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithEngine overrides the default risk engine configuration.
func WithEngine(engine *risk.Engine) SnapshotOption {
	return func(s *SnapshotService) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SnapshotOption {
	return func(s *SnapshotService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSnapshotService wires the primary read path into the risk engine.
func NewSnapshotService(primary Reader, logger *slog.Logger, opts ...SnapshotOption) *SnapshotService {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &SnapshotService{
		primary: primary,
		engine:  risk.NewEngine(),
		timeout: 5 * time.Second,
		logger:  logger,
		metrics: metrics.Risk(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// rawState is one coherent set of ledger reads for a single snapshot.
type rawState struct {
	state    risk.MarketState
	position risk.Position
	price    risk.OraclePrice
}

// Snapshot computes the risk view for one position. It never returns an
// error: total read failure yields the neutral snapshot with Available
// unset, which is the engine's entire failure-recovery policy.
func (s *SnapshotService) Snapshot(ctx context.Context, params risk.MarketParams, account common.Address) risk.RiskSnapshot {
	s.metrics.SnapshotRequested(params.ID.Hex())

	raw, err := s.fetch(ctx, s.primary, params, account)
	if err != nil {
		s.logger.Warn("primary read path failed",
			"market", params.ID.Hex(), "account", account.Hex(), "error", err)
		if s.fallback == nil {
			s.metrics.Unavailable(params.ID.Hex())
			return risk.NeutralSnapshot()
		}
		s.metrics.FallbackUsed(params.ID.Hex())
		raw, err = s.fetch(ctx, s.fallback, params, account)
		if err != nil {
			s.logger.Error("all read paths failed",
				"market", params.ID.Hex(), "account", account.Hex(), "error", err)
			s.metrics.Unavailable(params.ID.Hex())
			return risk.NeutralSnapshot()
		}
	}

	now := s.now()
	snap := s.engine.Compute(params, raw.state, raw.position, raw.price, now)
	if snap.Stale {
		s.metrics.StaleOracle(params.ID.Hex())
	}
	return snap
}

// MarketSnapshot computes the pool-wide view without a position, for market
// listings.
func (s *SnapshotService) MarketSnapshot(ctx context.Context, params risk.MarketParams) risk.RiskSnapshot {
	return s.Snapshot(ctx, params, common.Address{})
}

// fetch issues the three reads concurrently and joins them. The fields are
// independent ledger slots with no ordering dependency; issuing them close
// together keeps the chance of a torn snapshot small.
func (s *SnapshotService) fetch(ctx context.Context, reader Reader, params risk.MarketParams, account common.Address) (rawState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		raw rawState
		wg  sync.WaitGroup

		stateErr    error
		positionErr error
		priceErr    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		raw.state, stateErr = reader.MarketState(ctx, params.ID)
	}()
	go func() {
		defer wg.Done()
		raw.position, positionErr = reader.Position(ctx, params.ID, account)
	}()
	go func() {
		defer wg.Done()
		raw.price, priceErr = reader.Price(ctx, params.Oracle)
	}()
	wg.Wait()

	switch {
	case stateErr != nil:
		return rawState{}, fmt.Errorf("market state: %w", stateErr)
	case positionErr != nil:
		return rawState{}, fmt.Errorf("position: %w", positionErr)
	case priceErr != nil:
		return rawState{}, fmt.Errorf("oracle price: %w", priceErr)
	}

	// Feeds without their own timestamp inherit the pool's accrual time so
	// staleness still has a reference point.
	if raw.price.UpdatedAt.IsZero() && raw.state.LastUpdate > 0 {
		raw.price.UpdatedAt = time.Unix(int64(raw.state.LastUpdate), 0)
	}
	return raw, nil
}
