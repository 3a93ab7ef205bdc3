package loan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/gateway"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/swap"
	"auctionlend/internal/domain/token"
	pt "auctionlend/internal/testutil/protocoltest"
)

// activeBalloon deploys the default balloon loan and fills it at t+500s:
// Alice bids 600, Bob bids 600 and gets 200 back. Rate 10, debt 2200, fee 20.
func activeBalloon(t *testing.T, h *pt.Harness) common.Address {
	t.Helper()
	ctx := context.Background()
	addr := h.Deploy(t, pt.BalloonRequest())
	h.Lender(t, pt.Alice, 600)
	h.Lender(t, pt.Bob, 600)

	h.Clock.Advance(500 * time.Second)
	if _, err := h.Proxies.Fund(ctx, pt.Proxy, pt.Alice, addr, pt.U(600)); err != nil {
		t.Fatalf("alice fund: %v", err)
	}
	f, err := h.Proxies.Fund(ctx, pt.Proxy, pt.Bob, addr, pt.U(600))
	if err != nil {
		t.Fatalf("bob fund: %v", err)
	}
	if f.Accepted != "400" || f.Excess != "200" || !f.Activated {
		t.Fatalf("unexpected funding result: %+v", f)
	}
	return addr
}

// repaid takes an active balloon loan through borrower withdrawal and full repayment.
func repaid(t *testing.T, h *pt.Harness, addr common.Address) {
	t.Helper()
	ctx := context.Background()
	got, err := h.Loans.WithdrawLoan(ctx, addr, pt.Borrower)
	if err != nil {
		t.Fatalf("withdraw loan: %v", err)
	}
	if got.Uint64() != 980 {
		t.Fatalf("borrower got %d, want 980", got.Uint64())
	}
	h.Lender(t, pt.Borrower, 1220)
	if err := h.Tokens.Approve(ctx, pt.Token, pt.Borrower, pt.Proxy, pt.U(2200)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	h.Clock.Advance(100 * pt.Day)
	rep, err := h.Proxies.Repay(ctx, pt.Proxy, pt.Borrower, addr, pt.U(2200))
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if !rep.Settled {
		t.Fatalf("expected repayment to settle: %+v", rep)
	}
}

func TestBalloon_FeesThenLastLenderCloses(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := activeBalloon(t, h)

	dto, err := h.Loans.Get(ctx, addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dto.State != "active" || dto.BorrowerDebt != "2200" || dto.OperatorBalance != "20" || dto.InterestRate != 10 {
		t.Fatalf("unexpected active loan: %+v", dto)
	}
	if h.Balance(t, pt.Token, pt.Bob) != 200 {
		t.Fatalf("bob excess not returned")
	}

	repaid(t, h, addr)

	if v, err := h.Loans.WithdrawRepayment(ctx, addr, pt.Alice); err != nil || v.Uint64() != 1320 {
		t.Fatalf("alice repayment: %v %v", v, err)
	}
	if v, err := h.Loans.WithdrawFees(ctx, addr, pt.Admin); err != nil || v.Uint64() != 20 {
		t.Fatalf("fees: %v %v", v, err)
	}
	if v, err := h.Loans.WithdrawRepayment(ctx, addr, pt.Bob); err != nil || v.Uint64() != 880 {
		t.Fatalf("bob repayment: %v %v", v, err)
	}

	dto, _ = h.Loans.Get(ctx, addr)
	if dto.State != "closed" {
		t.Fatalf("want closed, got %s", dto.State)
	}
	if b := h.Balance(t, pt.Token, addr); b != 0 {
		t.Fatalf("loan still holds %d", b)
	}
	if h.Balance(t, pt.Token, pt.Alice) != 1320 || h.Balance(t, pt.Token, pt.Bob) != 1080 || h.Balance(t, pt.Token, pt.Admin) != 20 {
		t.Fatalf("unexpected final balances")
	}
}

func TestBalloon_CloseSweepsUnclaimedFees(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := activeBalloon(t, h)
	repaid(t, h, addr)

	for _, l := range []common.Address{pt.Alice, pt.Bob} {
		if _, err := h.Loans.WithdrawRepayment(ctx, addr, l); err != nil {
			t.Fatalf("withdraw %s: %v", l.Hex(), err)
		}
	}
	if h.Balance(t, pt.Token, pt.Admin) != 20 || h.Balance(t, pt.Token, addr) != 0 {
		t.Fatalf("residual not swept to administrator")
	}
	if _, err := h.Loans.WithdrawFees(ctx, addr, pt.Admin); !errors.Is(err, loan.ErrFeesAlreadyWithdrawn) {
		t.Fatalf("want ErrFeesAlreadyWithdrawn, got %v", err)
	}

	evs, err := h.Loans.Events(ctx, addr, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	last := evs[len(evs)-1]
	if last.Kind != string(event.KindStateChanged) || last.ToState != "closed" {
		t.Fatalf("last event should close the loan: %+v", last)
	}
	swept := false
	for _, e := range evs {
		if e.Kind == string(event.KindResidualSwept) && e.Amount == "20" {
			swept = true
		}
	}
	if !swept {
		t.Fatalf("no ResidualSwept event in %+v", evs)
	}
}

func TestBalloon_RepayBeforeBorrowerWithdraws(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := activeBalloon(t, h)

	h.Lender(t, pt.Borrower, 2200)
	h.Clock.Advance(100 * pt.Day)
	if rep, err := h.Proxies.Repay(ctx, pt.Proxy, pt.Borrower, addr, pt.U(2200)); err != nil || !rep.Settled {
		t.Fatalf("repay: %+v %v", rep, err)
	}
	for _, l := range []common.Address{pt.Alice, pt.Bob} {
		if _, err := h.Loans.WithdrawRepayment(ctx, addr, l); err != nil {
			t.Fatalf("withdraw %s: %v", l.Hex(), err)
		}
	}

	dto, _ := h.Loans.Get(ctx, addr)
	if dto.State != "repaid" || h.Balance(t, pt.Token, addr) != 1000 || h.Balance(t, pt.Token, pt.Admin) != 0 {
		t.Fatalf("loan closed before the borrower took the principal: %+v", dto)
	}

	got, err := h.Loans.WithdrawLoan(ctx, addr, pt.Borrower)
	if err != nil || got.Uint64() != 980 {
		t.Fatalf("borrower withdraw after repay: %v %v", got, err)
	}
	dto, _ = h.Loans.Get(ctx, addr)
	if dto.State != "closed" {
		t.Fatalf("want closed, got %s", dto.State)
	}
	if h.Balance(t, pt.Token, pt.Borrower) != 980 || h.Balance(t, pt.Token, pt.Admin) != 20 || h.Balance(t, pt.Token, addr) != 0 {
		t.Fatalf("unexpected balances: borrower=%d admin=%d loan=%d",
			h.Balance(t, pt.Token, pt.Borrower), h.Balance(t, pt.Token, pt.Admin), h.Balance(t, pt.Token, addr))
	}
}

func TestWithdrawRepayment_TwiceIsRejected(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := activeBalloon(t, h)
	repaid(t, h, addr)

	if _, err := h.Loans.WithdrawRepayment(ctx, addr, pt.Alice); err != nil {
		t.Fatalf("first withdraw: %v", err)
	}
	if _, err := h.Loans.WithdrawRepayment(ctx, addr, pt.Alice); !errors.Is(err, loan.ErrAlreadyWithdrawn) {
		t.Fatalf("want ErrAlreadyWithdrawn, got %v", err)
	}
	if _, err := h.Loans.WithdrawRepayment(ctx, addr, pt.Stranger); !errors.Is(err, loan.ErrNotLender) {
		t.Fatalf("want ErrNotLender, got %v", err)
	}
}

func TestFailedAuction_RefundClosesLoan(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := h.Deploy(t, pt.BalloonRequest())
	h.Lender(t, pt.Alice, 101)

	if _, err := h.Proxies.Fund(ctx, pt.Proxy, pt.Alice, addr, pt.U(100)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	h.Clock.Advance(1001 * time.Second)

	if _, err := h.Proxies.Fund(ctx, pt.Proxy, pt.Alice, addr, pt.U(1)); !errors.Is(err, loan.ErrAuctionExpired) {
		t.Fatalf("want ErrAuctionExpired, got %v", err)
	}
	st, err := h.Loans.UpdateStateMachine(ctx, addr)
	if err != nil || st != loan.StateFailedToFund {
		t.Fatalf("update: %v %v", st, err)
	}
	// idempotent
	if st, err := h.Loans.UpdateStateMachine(ctx, addr); err != nil || st != loan.StateFailedToFund {
		t.Fatalf("second update: %v %v", st, err)
	}

	if v, err := h.Loans.WithdrawRefund(ctx, addr, pt.Alice); err != nil || v.Uint64() != 100 {
		t.Fatalf("refund: %v %v", v, err)
	}
	dto, _ := h.Loans.Get(ctx, addr)
	if dto.State != "closed" || h.Balance(t, pt.Token, pt.Alice) != 101 {
		t.Fatalf("refund did not close the loan: %+v", dto)
	}
}

func TestUnlock_LendersRecoverBids(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := activeBalloon(t, h)

	if err := h.Loans.Unlock(ctx, addr, pt.Borrower); !errors.Is(err, loan.ErrNotAdministrator) {
		t.Fatalf("want ErrNotAdministrator, got %v", err)
	}
	if err := h.Loans.Unlock(ctx, addr, pt.Admin); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := h.Loans.WithdrawLoan(ctx, addr, pt.Borrower); !errors.Is(err, loan.ErrNotActive) {
		t.Fatalf("want ErrNotActive, got %v", err)
	}
	if v, err := h.Loans.WithdrawFundsUnlocked(ctx, addr, pt.Alice); err != nil || v.Uint64() != 600 {
		t.Fatalf("alice unlocked: %v %v", v, err)
	}
	if v, err := h.Loans.WithdrawFundsUnlocked(ctx, addr, pt.Bob); err != nil || v.Uint64() != 400 {
		t.Fatalf("bob unlocked: %v %v", v, err)
	}
	dto, _ := h.Loans.Get(ctx, addr)
	if dto.State != "closed" || h.Balance(t, pt.Token, addr) != 0 {
		t.Fatalf("unexpected state after unlock: %+v", dto)
	}
}

func TestWithdrawRepaymentAndDeposit(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := activeBalloon(t, h)
	repaid(t, h, addr)
	h.Fund(t, pt.Collateral, pt.Reserve, 10000)

	if _, err := h.Loans.WithdrawRepaymentAndDeposit(ctx, addr, pt.Alice, pt.Collateral, pt.U(3000)); !errors.Is(err, swap.ErrInsufficientOut) {
		t.Fatalf("want ErrInsufficientOut, got %v", err)
	}
	rec, err := h.Loans.Lender(ctx, addr, pt.Alice)
	if err != nil || rec.Withdrawn || rec.Claimable != "1320" {
		t.Fatalf("failed swap must leave the claim intact: %+v %v", rec, err)
	}

	if _, err := h.Loans.WithdrawRepaymentAndDeposit(ctx, addr, pt.Alice, pt.Token, nil); !errors.Is(err, gateway.ErrWrongCollateral) {
		t.Fatalf("want ErrWrongCollateral, got %v", err)
	}

	out, err := h.Loans.WithdrawRepaymentAndDeposit(ctx, addr, pt.Alice, pt.Collateral, pt.U(2000))
	if err != nil {
		t.Fatalf("withdraw and deposit: %v", err)
	}
	if out.Uint64() != 2640 {
		t.Fatalf("deposited %d, want 2640", out.Uint64())
	}
	st, err := h.Gateway.Status(ctx, pt.Alice)
	if err != nil || st.Deposit != "2640" || !st.HasCollateral {
		t.Fatalf("unexpected gateway status: %+v %v", st, err)
	}
	if h.Balance(t, pt.Token, pt.Reserve) != 1320 || h.Balance(t, pt.Collateral, pt.Registry) != 2640 {
		t.Fatalf("swap did not settle against the reserve")
	}
	if h.Balance(t, pt.Token, pt.Alice) != 0 {
		t.Fatalf("alice should not receive loan tokens directly")
	}
}

func TestSetProxy_RepointsCallbacks(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := h.Deploy(t, pt.BalloonRequest())

	p2, err := h.Proxies.Deploy(ctx, pt.Admin, false)
	if err != nil {
		t.Fatalf("deploy proxy: %v", err)
	}
	next := common.HexToAddress(p2.Address)
	h.Lender(t, pt.Alice, 301)
	if err := h.Tokens.Approve(ctx, pt.Token, pt.Alice, next, pt.U(300)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := h.Proxies.Fund(ctx, next, pt.Alice, addr, pt.U(300)); !errors.Is(err, loan.ErrNotProxy) {
		t.Fatalf("want ErrNotProxy, got %v", err)
	}
	if h.Balance(t, pt.Token, pt.Alice) != 301 {
		t.Fatalf("rejected call must not move tokens")
	}

	if err := h.Loans.SetProxy(ctx, addr, pt.Alice, next); !errors.Is(err, loan.ErrNotAdministrator) {
		t.Fatalf("want ErrNotAdministrator, got %v", err)
	}
	if err := h.Loans.SetProxy(ctx, addr, pt.Admin, next); err != nil {
		t.Fatalf("set proxy: %v", err)
	}
	if _, err := h.Proxies.Fund(ctx, next, pt.Alice, addr, pt.U(300)); err != nil {
		t.Fatalf("fund through new proxy: %v", err)
	}
	if _, err := h.Proxies.Fund(ctx, pt.Proxy, pt.Alice, addr, pt.U(1)); !errors.Is(err, loan.ErrNotProxy) {
		t.Fatalf("old proxy still accepted: %v", err)
	}
}

func TestGet_UnknownLoan(t *testing.T) {
	h := pt.New(t)
	if _, err := h.Loans.Get(context.Background(), pt.Stranger); !errors.Is(err, loan.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := h.Loans.WithdrawLoan(context.Background(), pt.Stranger, pt.Borrower); !errors.Is(err, loan.ErrNotFound) {
		t.Fatalf("want ErrNotFound from a locked call, got %v", err)
	}
}

func TestLender_UnknownReadsAsZero(t *testing.T) {
	h := pt.New(t)
	addr := h.Deploy(t, pt.BalloonRequest())
	rec, err := h.Loans.Lender(context.Background(), addr, pt.Stranger)
	if err != nil {
		t.Fatalf("lender: %v", err)
	}
	if rec.BidAmount != "0" || rec.Withdrawn || rec.Claimable != "0" {
		t.Fatalf("want zero record, got %+v", rec)
	}
}

func TestRejectedFunding_LeavesNoTrace(t *testing.T) {
	h := pt.New(t)
	ctx := context.Background()
	addr := h.Deploy(t, pt.BalloonRequest())
	h.Lender(t, pt.Alice, 600)
	if err := h.Tokens.Approve(ctx, pt.Token, pt.Alice, pt.Proxy, pt.U(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := h.Proxies.Fund(ctx, pt.Proxy, pt.Alice, addr, pt.U(300)); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("want ErrInsufficientAllowance, got %v", err)
	}
	dto, _ := h.Loans.Get(ctx, addr)
	if dto.AuctionBalance != "0" || dto.LenderCount != 0 {
		t.Fatalf("rejected funding changed the ledger: %+v", dto)
	}
	evs, _ := h.Loans.Events(ctx, addr, 0)
	if len(evs) != 1 || evs[0].Kind != string(event.KindLoanCreated) {
		t.Fatalf("want only LoanCreated, got %+v", evs)
	}
}
