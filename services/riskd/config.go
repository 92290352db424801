package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures the runtime settings for riskd. Deployment data (markets,
// contract addresses) lives in the TOML file; everything environment-shaped
// lives here.
type Config struct {
	RPCURL          string
	RPCFallbackURL  string
	Listen          string
	MarketsFile     string
	Environment     string
	LogFile         string
	RateLimitPerMin int
}

const (
	envRPCURL         = "RISKD_RPC_URL"
	envRPCFallbackURL = "RISKD_RPC_FALLBACK_URL"
	envListen         = "RISKD_LISTEN"
	envMarketsFile    = "RISKD_MARKETS_FILE"
	envEnvironment    = "RISKD_ENV"
	envLogFile        = "RISKD_LOG_FILE"
	envRatePerMin     = "RISKD_RATE_PER_MIN"

	defaultListen      = "0.0.0.0:9460"
	defaultMarketsFile = "markets.toml"
	defaultRatePerMin  = 240
)

// LoadConfigFromEnv constructs a Config from environment variables and
// defaults.
func LoadConfigFromEnv() Config {
	return Config{
		RPCURL:          strings.TrimSpace(os.Getenv(envRPCURL)),
		RPCFallbackURL:  strings.TrimSpace(os.Getenv(envRPCFallbackURL)),
		Listen:          stringFromEnv(envListen, defaultListen),
		MarketsFile:     stringFromEnv(envMarketsFile, defaultMarketsFile),
		Environment:     strings.TrimSpace(os.Getenv(envEnvironment)),
		LogFile:         strings.TrimSpace(os.Getenv(envLogFile)),
		RateLimitPerMin: intFromEnv(envRatePerMin, defaultRatePerMin),
	}
}

// Validate ensures the configuration is internally consistent.
func (cfg Config) Validate() error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("%s is required", envRPCURL)
	}
	if cfg.MarketsFile == "" {
		return fmt.Errorf("%s must not be empty", envMarketsFile)
	}
	if cfg.RateLimitPerMin < 0 {
		return fmt.Errorf("rate limit per minute must be non-negative")
	}
	return nil
}

func stringFromEnv(key, fallback string) string {
	trimmed := strings.TrimSpace(os.Getenv(key))
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func intFromEnv(key string, fallback int) int {
	trimmed := strings.TrimSpace(os.Getenv(key))
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}
