// Package protocoltest wires every protocol usecase over an in-memory sqlite
// database with a controllable clock.
package protocoltest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"auctionlend/internal/adapter/repository/mysql"
	"auctionlend/internal/config"
	"auctionlend/internal/domain/event"
	"auctionlend/internal/infrastructure/exchange"
	factoryuc "auctionlend/internal/usecase/factory"
	gatewayuc "auctionlend/internal/usecase/gateway"
	"auctionlend/internal/usecase/env"
	"auctionlend/internal/usecase/genesis"
	loanuc "auctionlend/internal/usecase/loan"
	proxyuc "auctionlend/internal/usecase/proxy"
	tokenuc "auctionlend/internal/usecase/token"
)

var (
	Admin      = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	Borrower   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	Alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	Bob        = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	Stranger   = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	Token      = common.HexToAddress("0x0000000000000000000000000000000000000d41")
	Collateral = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	Registry   = common.HexToAddress("0x000000000000000000000000000000000000006a")
	Factory    = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	Template   = common.HexToAddress("0x000000000000000000000000000000000000007e")
	Proxy      = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	Reserve    = common.HexToAddress("0x000000000000000000000000000000000000005e")

	Start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

const Day = 24 * time.Hour

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Recorder keeps every published event.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *Recorder) Publish(events []event.Event) {
	r.mu.Lock()
	r.events = append(r.events, events...)
	r.mu.Unlock()
}

func (r *Recorder) Kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

type Harness struct {
	DB       *gorm.DB
	Clock    *Clock
	Env      *env.Env
	Events   *Recorder
	Exchange *exchange.FixedRate

	Gateway *gatewayuc.Usecase
	Tokens  *tokenuc.Usecase
	Loans   *loanuc.Usecase
	Proxies *proxyuc.Usecase
	Factory *factoryuc.Usecase
}

// OpenDB returns a migrated in-memory database.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := mysql.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Genesis is the protocol every harness starts from: amounts 100..1e6,
// rates 5..20 percent, 2 percent fee, penalty multiplier 2, 30-day months.
func Genesis() config.Genesis {
	return config.Genesis{
		TokenAdmin: Admin.Hex(),
		Gateway: config.GatewayGenesis{
			Administrator:   Admin.Hex(),
			Address:         Registry.Hex(),
			CollateralToken: Collateral.Hex(),
			RequiredDeposit: "50",
		},
		Factory: config.FactoryGenesis{
			Address:       Factory.Hex(),
			Administrator: Admin.Hex(),
			Template:      Template.Hex(),
			Ruleset:       config.RulesetGenesis{OperatorFeePercent: 2, PenaltyMultiplier: 2, Period: 30 * Day},
			Bounds: config.BoundsGenesis{
				MinAmount:        "100",
				MaxAmount:        "1000000",
				MinInterestRate:  5,
				MaxInterestRate:  20,
				MinTermLength:    30 * Day,
				MinAuctionLength: time.Minute,
			},
		},
		Proxy: config.ProxyGenesis{Address: Proxy.Hex(), Administrator: Admin.Hex()},
		Exchange: config.ExchangeGenesis{
			Reserve: Reserve.Hex(),
			Rates:   []config.RateEntry{{In: Token.Hex(), Out: Collateral.Hex(), Numerator: 2, Denominator: 1}},
		},
	}
}

func New(t *testing.T) *Harness {
	t.Helper()
	db := OpenDB(t)
	clock := &Clock{now: Start}
	rec := &Recorder{}
	e := &env.Env{UoW: mysql.NewGormUoW(db), Log: zap.NewNop(), Clock: clock.Now, Publisher: rec}

	g := Genesis()
	if err := genesis.Apply(context.Background(), e, g); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	ex := genesis.Exchange(g)
	gw := gatewayuc.NewUsecase(e, genesis.Settings(g), nil)
	loans := loanuc.NewUsecase(e, gw, ex)
	return &Harness{
		DB:       db,
		Clock:    clock,
		Env:      e,
		Events:   rec,
		Exchange: ex,
		Gateway:  gw,
		Tokens:   tokenuc.NewUsecase(e, Admin),
		Loans:    loans,
		Proxies:  proxyuc.NewUsecase(e, gw, loans),
		Factory:  factoryuc.NewUsecase(e, Factory),
	}
}

func U(v uint64) *uint256.Int { return uint256.NewInt(v) }

// Lender verifies addr, mints it amount of the loan token and approves the
// default proxy for all of it.
func (h *Harness) Lender(t *testing.T, addr common.Address, amount uint64) {
	t.Helper()
	ctx := context.Background()
	if err := h.Gateway.SetVerified(ctx, Admin, addr, true); err != nil {
		t.Fatalf("verify %s: %v", addr.Hex(), err)
	}
	h.Fund(t, Token, addr, amount)
	if err := h.Tokens.Approve(ctx, Token, addr, Proxy, U(amount)); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

// Fund mints amount of tok to addr.
func (h *Harness) Fund(t *testing.T, tok, addr common.Address, amount uint64) {
	t.Helper()
	if err := h.Tokens.Mint(context.Background(), tok, Admin, addr, U(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
}

func (h *Harness) Balance(t *testing.T, tok, addr common.Address) uint64 {
	t.Helper()
	v, err := h.Tokens.BalanceOf(context.Background(), tok, addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return v.Uint64()
}

// BalloonRequest asks for 200..1000 at up to 20 percent over 360 days with a
// 1000 second auction.
func BalloonRequest() factoryuc.CreateLoanInput {
	return factoryuc.CreateLoanInput{
		Token:           Token,
		MinAmount:       U(200),
		MaxAmount:       U(1000),
		MaxInterestRate: 20,
		TermLength:      360 * Day,
		AuctionLength:   1000 * time.Second,
		Instalments:     1,
	}
}

// Deploy creates a loan for Borrower and returns its address.
func (h *Harness) Deploy(t *testing.T, in factoryuc.CreateLoanInput) common.Address {
	t.Helper()
	out, err := h.Factory.Deploy(context.Background(), Borrower, in)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	return common.HexToAddress(out.Address)
}
