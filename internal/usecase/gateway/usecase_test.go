package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"auctionlend/internal/domain/gateway"
	"auctionlend/internal/domain/token"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/infrastructure/cache"
	pt "auctionlend/internal/testutil/protocoltest"
	gatewayuc "auctionlend/internal/usecase/gateway"
	"auctionlend/internal/usecase/genesis"
)

func withCache(t *testing.T, h *pt.Harness) (*gatewayuc.Usecase, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = c.Close() })
	return gatewayuc.NewUsecase(h.Env, genesis.Settings(pt.Genesis()), cache.NewVerifiedCache(c, time.Minute)), s
}

func TestSetVerified_AdministratorOnly(t *testing.T) {
	h := pt.New(t)
	gw, _ := withCache(t, h)
	if err := gw.SetVerified(context.Background(), pt.Alice, pt.Bob, true); !errors.Is(err, gateway.ErrNotAdministrator) {
		t.Fatalf("want ErrNotAdministrator, got %v", err)
	}
}

func TestIsVerified_CachesPositiveAndForgetsRevocation(t *testing.T) {
	h := pt.New(t)
	gw, s := withCache(t, h)
	ctx := context.Background()
	key := "gateway:verified:" + pt.Alice.Hex()

	if ok, err := gw.IsVerified(ctx, pt.Alice); ok || err != nil {
		t.Fatalf("unknown address verified: %v %v", ok, err)
	}
	if s.Exists(key) {
		t.Fatalf("negative answer was cached")
	}
	if err := gw.SetVerified(ctx, pt.Admin, pt.Alice, true); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !s.Exists(key) {
		t.Fatalf("positive answer not cached")
	}
	if ok, err := gw.IsVerified(ctx, pt.Alice); !ok || err != nil {
		t.Fatalf("verified address rejected: %v %v", ok, err)
	}

	if err := gw.SetVerified(ctx, pt.Admin, pt.Alice, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if s.Exists(key) {
		t.Fatalf("revocation left the cache key behind")
	}
	if ok, _ := gw.IsVerified(ctx, pt.Alice); ok {
		t.Fatalf("revoked address still verified")
	}
}

// brokenCache fails every call.
type brokenCache struct{ calls int }

var errCacheDown = errors.New("cache down")

func (c *brokenCache) IsVerified(context.Context, common.Address) (bool, error) {
	c.calls++
	return false, errCacheDown
}

func (c *brokenCache) MarkVerified(context.Context, common.Address) error {
	c.calls++
	return errCacheDown
}

func (c *brokenCache) Forget(context.Context, common.Address) error {
	c.calls++
	return errCacheDown
}

func TestIsVerified_FallsBackWhenCacheIsDown(t *testing.T) {
	h := pt.New(t)
	bc := &brokenCache{}
	gw := gatewayuc.NewUsecase(h.Env, genesis.Settings(pt.Genesis()), bc)
	ctx := context.Background()

	if err := gw.SetVerified(ctx, pt.Admin, pt.Alice, true); err != nil {
		t.Fatalf("cache outage must not fail verification: %v", err)
	}
	if ok, err := gw.IsVerified(ctx, pt.Alice); !ok || err != nil {
		t.Fatalf("want database answer, got %v %v", ok, err)
	}
	if bc.calls == 0 {
		t.Fatalf("cache was never consulted")
	}
}

func TestDeposit_AccumulatesTowardsRequirement(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	h.Fund(t, pt.Collateral, pt.Alice, 60)

	if err := h.Gateway.Deposit(ctx, pt.Alice, pt.U(0)); !errors.Is(err, gateway.ErrZeroAmount) {
		t.Fatalf("want ErrZeroAmount, got %v", err)
	}
	if err := h.Gateway.Deposit(ctx, pt.Alice, pt.U(61)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if err := h.Gateway.Deposit(ctx, pt.Alice, pt.U(30)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if ok, _ := h.Gateway.HasCollateral(ctx, pt.Alice); ok {
		t.Fatalf("30 of 50 should not satisfy the requirement")
	}
	if err := h.Gateway.Deposit(ctx, pt.Alice, pt.U(20)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	st, err := h.Gateway.Status(ctx, pt.Alice)
	if err != nil || st.Deposit != "50" || !st.HasCollateral || st.Verified {
		t.Fatalf("unexpected status: %+v %v", st, err)
	}
	if h.Balance(t, pt.Collateral, pt.Registry) != 50 || h.Balance(t, pt.Collateral, pt.Alice) != 10 {
		t.Fatalf("collateral not moved to the registry")
	}
}

func TestAllowed(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	h.Lender(t, pt.Alice, 1)

	check := func(requireDeposit bool) error {
		return h.Env.Read(ctx, func(r uow.Repos) error {
			return h.Gateway.Allowed(ctx, r, pt.Alice, requireDeposit)
		})
	}
	if err := check(false); err != nil {
		t.Fatalf("verified address rejected: %v", err)
	}
	if err := check(true); !errors.Is(err, gateway.ErrNoDeposit) {
		t.Fatalf("want ErrNoDeposit, got %v", err)
	}
}
