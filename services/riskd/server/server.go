package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendrisk/risk"
)

// Snapshotter produces risk snapshots; *ledger.SnapshotService satisfies it.
type Snapshotter interface {
	Snapshot(ctx context.Context, params risk.MarketParams, account common.Address) risk.RiskSnapshot
	MarketSnapshot(ctx context.Context, params risk.MarketParams) risk.RiskSnapshot
}

// Server exposes the read-only risk API.
type Server struct {
	snapshots Snapshotter
	markets   map[common.Hash]risk.MarketParams
	order     []common.Hash
	logger    *slog.Logger
	limiter   *rateLimiter
	router    chi.Router
}

// New assembles the HTTP surface over the snapshot service. ratePerMin <= 0
// disables rate limiting.
func New(snapshots Snapshotter, markets []risk.MarketParams, logger *slog.Logger, ratePerMin int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		snapshots: snapshots,
		markets:   make(map[common.Hash]risk.MarketParams, len(markets)),
		logger:    logger,
	}
	for _, params := range markets {
		if _, dup := s.markets[params.ID]; dup {
			continue
		}
		s.markets[params.ID] = params
		s.order = append(s.order, params.ID)
	}
	if ratePerMin > 0 {
		s.limiter = newRateLimiter(float64(ratePerMin), logger)
	}

	r := chi.NewRouter()
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}
	r.Get("/healthz", s.handleHealthz)
	r.Get("/v1/markets", s.handleListMarkets)
	r.Get("/v1/markets/{id}", s.handleGetMarket)
	r.Get("/v1/markets/{id}/positions/{account}", s.handleGetPosition)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

type marketResponse struct {
	Market      string  `json:"market"`
	LoanToken   string  `json:"loanToken"`
	Collateral  string  `json:"collateralToken"`
	LLTV        string  `json:"lltv"`
	Utilization float64 `json:"utilization"`
	BorrowAPY   float64 `json:"borrowApy"`
	SupplyAPY   float64 `json:"supplyApy"`
	Stale       bool    `json:"stale"`
	Available   bool    `json:"available"`
}

type positionResponse struct {
	Market           string  `json:"market"`
	Account          string  `json:"account"`
	HealthFactor     string  `json:"healthFactor"`
	LiquidationPrice string  `json:"liquidationPrice"`
	CollateralValue  string  `json:"collateralValue"`
	Debt             string  `json:"debt"`
	MaxBorrow        string  `json:"maxBorrow"`
	MaxWithdraw      string  `json:"maxWithdraw"`
	Utilization      float64 `json:"utilization"`
	BorrowAPY        float64 `json:"borrowApy"`
	SupplyAPY        float64 `json:"supplyApy"`
	Stale            bool    `json:"stale"`
	Available        bool    `json:"available"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	out := make([]marketResponse, 0, len(s.order))
	for _, id := range s.order {
		params := s.markets[id]
		snap := s.snapshots.MarketSnapshot(r.Context(), params)
		out = append(out, toMarketResponse(params, snap))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	params, ok := s.lookupMarket(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown market")
		return
	}
	snap := s.snapshots.MarketSnapshot(r.Context(), params)
	writeJSON(w, http.StatusOK, toMarketResponse(params, snap))
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	params, ok := s.lookupMarket(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown market")
		return
	}
	rawAccount := strings.TrimSpace(chi.URLParam(r, "account"))
	if !common.IsHexAddress(rawAccount) {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	account := common.HexToAddress(rawAccount)
	snap := s.snapshots.Snapshot(r.Context(), params, account)
	writeJSON(w, http.StatusOK, toPositionResponse(params, account, snap))
}

func (s *Server) lookupMarket(raw string) (risk.MarketParams, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "0x") || len(trimmed) != 66 {
		return risk.MarketParams{}, false
	}
	params, ok := s.markets[common.HexToHash(trimmed)]
	return params, ok
}

func toMarketResponse(params risk.MarketParams, snap risk.RiskSnapshot) marketResponse {
	return marketResponse{
		Market:      params.ID.Hex(),
		LoanToken:   params.LoanToken.Hex(),
		Collateral:  params.CollateralToken.Hex(),
		LLTV:        params.LLTV.String(),
		Utilization: snap.Utilization,
		BorrowAPY:   snap.BorrowAPY,
		SupplyAPY:   snap.SupplyAPY,
		Stale:       snap.Stale,
		Available:   snap.Available,
	}
}

func toPositionResponse(params risk.MarketParams, account common.Address, snap risk.RiskSnapshot) positionResponse {
	return positionResponse{
		Market:           params.ID.Hex(),
		Account:          account.Hex(),
		HealthFactor:     snap.Health.String(),
		LiquidationPrice: snap.LiquidationPrice.String(),
		CollateralValue:  snap.CollateralValue.String(),
		Debt:             snap.Debt.String(),
		MaxBorrow:        snap.MaxBorrow.String(),
		MaxWithdraw:      snap.MaxWithdraw.String(),
		Utilization:      snap.Utilization,
		BorrowAPY:        snap.BorrowAPY,
		SupplyAPY:        snap.SupplyAPY,
		Stale:            snap.Stale,
		Available:        snap.Available,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
