package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// Genesis is the protocol state a fresh database is seeded with.
type Genesis struct {
	TokenAdmin string          `yaml:"token_admin"`
	Gateway    GatewayGenesis  `yaml:"gateway"`
	Factory    FactoryGenesis  `yaml:"factory"`
	Proxy      ProxyGenesis    `yaml:"proxy"`
	Exchange   ExchangeGenesis `yaml:"exchange"`
}

type GatewayGenesis struct {
	Administrator   string `yaml:"administrator"`
	Address         string `yaml:"address"`
	CollateralToken string `yaml:"collateral_token"`
	RequiredDeposit string `yaml:"required_deposit"`
}

type FactoryGenesis struct {
	Address       string         `yaml:"address"`
	Administrator string         `yaml:"administrator"`
	Template      string         `yaml:"template"`
	Ruleset       RulesetGenesis `yaml:"ruleset"`
	Bounds        BoundsGenesis  `yaml:"bounds"`
}

type RulesetGenesis struct {
	OperatorFeePercent uint64        `yaml:"operator_fee_percent"`
	PenaltyMultiplier  uint64        `yaml:"penalty_multiplier"`
	Period             time.Duration `yaml:"period"`
}

type BoundsGenesis struct {
	MinAmount        string        `yaml:"min_amount"`
	MaxAmount        string        `yaml:"max_amount"`
	MinInterestRate  uint64        `yaml:"min_interest_rate"`
	MaxInterestRate  uint64        `yaml:"max_interest_rate"`
	MinTermLength    time.Duration `yaml:"min_term_length"`
	MinAuctionLength time.Duration `yaml:"min_auction_length"`
}

type ProxyGenesis struct {
	Address         string `yaml:"address"`
	Administrator   string `yaml:"administrator"`
	DepositRequired bool   `yaml:"deposit_required"`
}

type ExchangeGenesis struct {
	Reserve string      `yaml:"reserve"`
	Rates   []RateEntry `yaml:"rates"`
}

// RateEntry prices one unit of In at Numerator/Denominator units of Out.
type RateEntry struct {
	In          string `yaml:"in"`
	Out         string `yaml:"out"`
	Numerator   uint64 `yaml:"numerator"`
	Denominator uint64 `yaml:"denominator"`
}

// LoadGenesis reads the YAML genesis from disk and validates the result.
func LoadGenesis(path string) (Genesis, error) {
	if path == "" {
		return Genesis{}, fmt.Errorf("genesis path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("open genesis: %w", err)
	}
	defer file.Close()

	var g Genesis
	if err := yaml.NewDecoder(file).Decode(&g); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}
	g.normalize()
	if err := g.validate(); err != nil {
		return Genesis{}, err
	}
	return g, nil
}

func (g *Genesis) normalize() {
	trim := func(ss ...*string) {
		for _, s := range ss {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(&g.TokenAdmin,
		&g.Gateway.Administrator, &g.Gateway.Address, &g.Gateway.CollateralToken, &g.Gateway.RequiredDeposit,
		&g.Factory.Address, &g.Factory.Administrator, &g.Factory.Template,
		&g.Factory.Bounds.MinAmount, &g.Factory.Bounds.MaxAmount,
		&g.Proxy.Address, &g.Proxy.Administrator, &g.Exchange.Reserve)
	if g.Gateway.RequiredDeposit == "" {
		g.Gateway.RequiredDeposit = "0"
	}
	if g.Factory.Ruleset.Period == 0 {
		g.Factory.Ruleset.Period = 30 * 24 * time.Hour
	}
	for i := range g.Exchange.Rates {
		trim(&g.Exchange.Rates[i].In, &g.Exchange.Rates[i].Out)
	}
}

func (g *Genesis) validate() error {
	addrs := map[string]string{
		"token_admin":              g.TokenAdmin,
		"gateway.administrator":    g.Gateway.Administrator,
		"gateway.address":          g.Gateway.Address,
		"gateway.collateral_token": g.Gateway.CollateralToken,
		"factory.address":          g.Factory.Address,
		"factory.administrator":    g.Factory.Administrator,
		"factory.template":         g.Factory.Template,
		"proxy.address":            g.Proxy.Address,
		"proxy.administrator":      g.Proxy.Administrator,
	}
	for name, v := range addrs {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%s: invalid address %q", name, v)
		}
	}
	for name, v := range map[string]string{
		"gateway.required_deposit":  g.Gateway.RequiredDeposit,
		"factory.bounds.min_amount": g.Factory.Bounds.MinAmount,
		"factory.bounds.max_amount": g.Factory.Bounds.MaxAmount,
	} {
		if _, err := uint256.FromDecimal(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	b := g.Factory.Bounds
	if Amount(b.MinAmount).Gt(Amount(b.MaxAmount)) {
		return fmt.Errorf("factory.bounds: min_amount above max_amount")
	}
	if b.MinInterestRate > b.MaxInterestRate || b.MaxInterestRate > 100 {
		return fmt.Errorf("factory.bounds: interest rates must satisfy min <= max <= 100")
	}
	if b.MinTermLength <= 0 || b.MinAuctionLength <= 0 {
		return fmt.Errorf("factory.bounds: lengths must be positive")
	}
	if g.Factory.Ruleset.OperatorFeePercent > 100 {
		return fmt.Errorf("factory.ruleset: operator fee above 100 percent")
	}
	if len(g.Exchange.Rates) > 0 && !common.IsHexAddress(g.Exchange.Reserve) {
		return fmt.Errorf("exchange.reserve: invalid address %q", g.Exchange.Reserve)
	}
	for i, r := range g.Exchange.Rates {
		if !common.IsHexAddress(r.In) || !common.IsHexAddress(r.Out) {
			return fmt.Errorf("exchange.rates[%d]: invalid token address", i)
		}
		if r.Numerator == 0 || r.Denominator == 0 {
			return fmt.Errorf("exchange.rates[%d]: numerator and denominator must be positive", i)
		}
	}
	return nil
}

// Address parses a validated genesis address.
func Address(s string) common.Address { return common.HexToAddress(s) }

// Amount parses a validated genesis amount.
func Amount(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return new(uint256.Int)
	}
	return v
}
