package genesis_test

import (
	"context"
	"testing"

	"auctionlend/internal/config"
	pt "auctionlend/internal/testutil/protocoltest"
	factoryuc "auctionlend/internal/usecase/factory"
	"auctionlend/internal/usecase/genesis"
)

func TestApply_IsIdempotent(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()

	rate := uint64(15)
	if _, err := h.Factory.Update(ctx, pt.Admin, factoryuc.Settings{MaxInterestRate: &rate}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := genesis.Apply(ctx, h.Env, pt.Genesis()); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	f, err := h.Factory.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if f.MaxInterestRate != 15 {
		t.Fatalf("apply overwrote an existing factory: %+v", f)
	}
	if f.Proxy != pt.Proxy.Hex() || f.Template != pt.Template.Hex() || f.OperatorFeePercent != 2 {
		t.Fatalf("factory not seeded from genesis: %+v", f)
	}
	p, err := h.Proxies.Get(ctx, pt.Proxy)
	if err != nil || p.Administrator != pt.Admin.Hex() || p.DepositRequired {
		t.Fatalf("proxy not seeded: %+v %v", p, err)
	}
}

func TestApply_RejectsBadRuleset(t *testing.T) {
	h := pt.New(t)
	g := pt.Genesis()
	g.Factory.Ruleset.Period = 0
	if err := genesis.Apply(context.Background(), h.Env, g); err == nil {
		t.Fatalf("expected a zero period to be rejected")
	}
}

func TestSettingsAndExchange(t *testing.T) {
	g := pt.Genesis()
	s := genesis.Settings(g)
	if s.CollateralToken != pt.Collateral || s.RequiredDeposit.Uint64() != 50 || s.Address != pt.Registry {
		t.Fatalf("unexpected settings: %+v", s)
	}
	ex := genesis.Exchange(g)
	out, err := ex.Quote(context.Background(), pt.Token, pt.Collateral, pt.U(7))
	if err != nil || out.Uint64() != 14 {
		t.Fatalf("quote = %v, %v", out, err)
	}
	if ex.Reserve() != config.Address(g.Exchange.Reserve) {
		t.Fatalf("reserve mismatch")
	}
}
