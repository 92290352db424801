package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"lendrisk/risk"
)

// Config is the deployment description: where the lending contract lives and
// which markets the service watches. Decimal scales live here per market so
// the engine never leans on a global constant.
type Config struct {
	// Ledger is the lending contract address.
	Ledger string `toml:"Ledger"`
	// MaxPriceAgeHours flags oracle readings older than this as stale.
	MaxPriceAgeHours int `toml:"MaxPriceAgeHours"`
	// CallTimeoutSeconds bounds each read-path fetch.
	CallTimeoutSeconds int      `toml:"CallTimeoutSeconds"`
	Markets            []Market `toml:"Markets"`
}

// Market is one watched market entry.
type Market struct {
	ID                 string `toml:"ID"`
	LoanToken          string `toml:"LoanToken"`
	CollateralToken    string `toml:"CollateralToken"`
	Oracle             string `toml:"Oracle"`
	IRM                string `toml:"IRM"`
	LoanDecimals       uint8  `toml:"LoanDecimals"`
	CollateralDecimals uint8  `toml:"CollateralDecimals"`
	// LLTV is the liquidation threshold as a decimal integer at 1e18 scale.
	LLTV string `toml:"LLTV"`
}

// Load reads and validates a deployment file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxPriceAgeHours <= 0 {
		c.MaxPriceAgeHours = 24
	}
	if c.CallTimeoutSeconds <= 0 {
		c.CallTimeoutSeconds = 5
	}
}

// Validate checks the deployment for the mistakes that would otherwise
// surface as silently wrong numbers.
func (c *Config) Validate() error {
	if !common.IsHexAddress(strings.TrimSpace(c.Ledger)) {
		return fmt.Errorf("config: ledger address %q is not a valid address", c.Ledger)
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("config: at least one market is required")
	}
	seen := make(map[string]struct{}, len(c.Markets))
	for i, market := range c.Markets {
		id := strings.ToLower(strings.TrimSpace(market.ID))
		if id == "" {
			return fmt.Errorf("config: market %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("config: duplicate market id %s", market.ID)
		}
		seen[id] = struct{}{}
		if _, err := market.Params(); err != nil {
			return err
		}
	}
	return nil
}

// LedgerAddress returns the parsed lending contract address.
func (c *Config) LedgerAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(c.Ledger))
}

// MaxPriceAge returns the staleness horizon as a duration.
func (c *Config) MaxPriceAge() time.Duration {
	return time.Duration(c.MaxPriceAgeHours) * time.Hour
}

// CallTimeout returns the per-path fetch bound as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// Params converts the entry into normalized engine parameters, deriving the
// per-market oracle scale.
func (m Market) Params() (risk.MarketParams, error) {
	id := strings.TrimSpace(m.ID)
	if !strings.HasPrefix(id, "0x") || len(id) != 66 {
		return risk.MarketParams{}, fmt.Errorf("config: market id %q is not a 32-byte hex value", m.ID)
	}
	for _, field := range []struct{ name, value string }{
		{"loan token", m.LoanToken},
		{"collateral token", m.CollateralToken},
		{"oracle", m.Oracle},
	} {
		if !common.IsHexAddress(strings.TrimSpace(field.value)) {
			return risk.MarketParams{}, fmt.Errorf("config: market %s %s address %q invalid", id, field.name, field.value)
		}
	}
	lltv, ok := new(big.Int).SetString(strings.TrimSpace(m.LLTV), 10)
	if !ok {
		return risk.MarketParams{}, fmt.Errorf("config: market %s LLTV %q is not a decimal integer", id, m.LLTV)
	}
	params := risk.MarketParams{
		ID:                 common.HexToHash(id),
		LoanToken:          common.HexToAddress(strings.TrimSpace(m.LoanToken)),
		CollateralToken:    common.HexToAddress(strings.TrimSpace(m.CollateralToken)),
		Oracle:             common.HexToAddress(strings.TrimSpace(m.Oracle)),
		LLTV:               lltv,
		LoanDecimals:       m.LoanDecimals,
		CollateralDecimals: m.CollateralDecimals,
	}
	if irm := strings.TrimSpace(m.IRM); irm != "" {
		if !common.IsHexAddress(irm) {
			return risk.MarketParams{}, fmt.Errorf("config: market %s irm address %q invalid", id, m.IRM)
		}
		params.IRM = common.HexToAddress(irm)
	}
	return risk.NormalizeParams(params)
}

// MarketParams returns the normalized parameters of every configured market.
func (c *Config) MarketParams() ([]risk.MarketParams, error) {
	out := make([]risk.MarketParams, 0, len(c.Markets))
	for _, market := range c.Markets {
		params, err := market.Params()
		if err != nil {
			return nil, err
		}
		out = append(out, params)
	}
	return out, nil
}
