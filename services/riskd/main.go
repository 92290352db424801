package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"lendrisk/config"
	"lendrisk/ledger"
	"lendrisk/observability/logging"
	"lendrisk/risk"
	riskserver "lendrisk/services/riskd/server"
)

func main() {
	cfg := LoadConfigFromEnv()
	flag.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
	flag.StringVar(&cfg.MarketsFile, "markets", cfg.MarketsFile, "path to the markets TOML file")
	flag.Parse()

	logger := logging.Setup("riskd", cfg.Environment, cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	deployment, err := config.Load(cfg.MarketsFile)
	if err != nil {
		logger.Error("load markets file", "path", cfg.MarketsFile, "error", err)
		os.Exit(1)
	}
	markets, err := deployment.MarketParams()
	if err != nil {
		logger.Error("normalize markets", "error", err)
		os.Exit(1)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		logger.Error("dial primary rpc", "url", cfg.RPCURL, "error", err)
		os.Exit(1)
	}
	defer client.Close()
	primary := ledger.NewContractReader(client, deployment.LedgerAddress())

	opts := []ledger.SnapshotOption{
		ledger.WithTimeout(deployment.CallTimeout()),
		ledger.WithEngine(&risk.Engine{
			MaxPriceAge: deployment.MaxPriceAge(),
			Rates:       risk.DefaultInterestModel,
		}),
	}
	if cfg.RPCFallbackURL != "" {
		rawClient, err := rpc.Dial(cfg.RPCFallbackURL)
		if err != nil {
			logger.Error("dial fallback rpc", "url", cfg.RPCFallbackURL, "error", err)
			os.Exit(1)
		}
		defer rawClient.Close()
		opts = append(opts, ledger.WithFallback(ledger.NewRawCallReader(rawClient, deployment.LedgerAddress())))
	}
	snapshots := ledger.NewSnapshotService(primary, logger, opts...)

	logMarketMetadata(primary, markets, deployment.CallTimeout(), logger)

	srv := riskserver.New(snapshots, markets, logger, cfg.RateLimitPerMin)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("riskd listening", "listen", cfg.Listen, "markets", len(markets))
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// logMarketMetadata records the display names of each configured market's
// tokens at startup. Metadata is cosmetic; failures only log.
func logMarketMetadata(reader ledger.Reader, markets []risk.MarketParams, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, params := range markets {
		loan, err := reader.TokenMetadata(ctx, params.LoanToken)
		if err != nil {
			logger.Warn("loan token metadata unavailable", "market", params.ID.Hex(), "error", err)
			continue
		}
		collateral, err := reader.TokenMetadata(ctx, params.CollateralToken)
		if err != nil {
			logger.Warn("collateral token metadata unavailable", "market", params.ID.Hex(), "error", err)
			continue
		}
		logger.Info("market configured",
			"market", params.ID.Hex(),
			"loan", loan.Symbol, "collateral", collateral.Symbol,
			"lltv", params.LLTV.String())
	}
}
