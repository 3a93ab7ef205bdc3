package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("MYSQL_DB", "lend")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REQUIRE_SIGNATURES", "true")
	t.Setenv("KEEPER_INTERVAL_SECONDS", "5")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c := Load()
	if c.AppPort != "8080" || c.MySQLDB != "lend" || c.RedisDB != 3 {
		t.Fatalf("unexpected config: %+v", c)
	}
	if !c.RequireSignatures || c.KeeperInterval != 5*time.Second || c.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(c.MySQLDSN(), "@tcp(mysql:3306)/lend?") {
		t.Fatalf("dsn = %s", c.MySQLDSN())
	}
}

func TestLoad_SignaturesRequiredByDefault(t *testing.T) {
	cases := []struct {
		env  string
		want bool
	}{
		{"", true},
		{"false", false},
		{"0", false},
		{"yes please", true},
		{"true", true},
	}
	for _, tc := range cases {
		t.Setenv("REQUIRE_SIGNATURES", tc.env)
		if got := Load().RequireSignatures; got != tc.want {
			t.Errorf("REQUIRE_SIGNATURES=%q: got %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	c := Load()
	c.MySQLPort = "not-a-port"
	if err := c.Validate(); err == nil {
		t.Fatal("expected port error")
	}
	c = Load()
	c.LogLevel = "loud"
	if err := c.Validate(); err == nil {
		t.Fatal("expected log level error")
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("APP_PORT=9999\nAUCTIONLEND_TEST_ONLY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_PORT", "7000")
	t.Setenv("AUCTIONLEND_TEST_ONLY", "")
	os.Unsetenv("AUCTIONLEND_TEST_ONLY")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("APP_PORT"); got != "7000" {
		t.Fatalf("APP_PORT = %s", got)
	}
	if got := os.Getenv("AUCTIONLEND_TEST_ONLY"); got != "from-file" {
		t.Fatalf("AUCTIONLEND_TEST_ONLY = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

const genesisYAML = `
token_admin: "0x00000000000000000000000000000000000000ad"
gateway:
  administrator: "0x00000000000000000000000000000000000000ad"
  address: "0x00000000000000000000000000000000000000aa"
  collateral_token: "0x0000000000000000000000000000000000000c0c"
  required_deposit: "100"
factory:
  address: "0x00000000000000000000000000000000000000fa"
  administrator: "0x00000000000000000000000000000000000000ad"
  template: "0x00000000000000000000000000000000000000e1"
  ruleset:
    operator_fee_percent: 2
    penalty_multiplier: 2
  bounds:
    min_amount: "100"
    max_amount: "1000000"
    min_interest_rate: 2
    max_interest_rate: 30
    min_term_length: 720h
    min_auction_length: 1h
proxy:
  address: "0x00000000000000000000000000000000000000f0"
  administrator: "0x00000000000000000000000000000000000000ad"
  deposit_required: true
exchange:
  reserve: "0x00000000000000000000000000000000000000ee"
  rates:
    - in: "0x0000000000000000000000000000000000000d41"
      out: "0x0000000000000000000000000000000000000c0c"
      numerator: 1
      denominator: 2
`

func writeGenesis(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGenesis(t *testing.T) {
	g, err := LoadGenesis(writeGenesis(t, genesisYAML))
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}
	if g.Factory.Ruleset.Period != 30*24*time.Hour {
		t.Fatalf("period default not applied: %v", g.Factory.Ruleset.Period)
	}
	if g.Factory.Bounds.MinAuctionLength != time.Hour || g.Factory.Bounds.MinTermLength != 720*time.Hour {
		t.Fatalf("bounds = %+v", g.Factory.Bounds)
	}
	if Amount(g.Gateway.RequiredDeposit).Uint64() != 100 || !g.Proxy.DepositRequired {
		t.Fatalf("gateway/proxy = %+v %+v", g.Gateway, g.Proxy)
	}
	if len(g.Exchange.Rates) != 1 || g.Exchange.Rates[0].Denominator != 2 {
		t.Fatalf("rates = %+v", g.Exchange.Rates)
	}
}

func TestLoadGenesis_Rejections(t *testing.T) {
	cases := map[string]string{
		"bad address":   strings.Replace(genesisYAML, `address: "0x00000000000000000000000000000000000000fa"`, `address: "nope"`, 1),
		"inverted rate": strings.Replace(genesisYAML, "max_interest_rate: 30", "max_interest_rate: 1", 1),
		"bad amount":    strings.Replace(genesisYAML, `max_amount: "1000000"`, `max_amount: "-5"`, 1),
		"zero denom":    strings.Replace(genesisYAML, "denominator: 2", "denominator: 0", 1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadGenesis(writeGenesis(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := LoadGenesis(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLoadGenesis_ShippedFile(t *testing.T) {
	g, err := LoadGenesis(filepath.Join("..", "..", "genesis.yaml"))
	if err != nil {
		t.Fatalf("shipped genesis.yaml: %v", err)
	}
	if g.Factory.Ruleset.OperatorFeePercent != 2 || g.Factory.Bounds.MinAuctionLength != time.Hour {
		t.Fatalf("factory = %+v", g.Factory)
	}
}
