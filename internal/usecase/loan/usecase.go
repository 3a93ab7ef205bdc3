package loan

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/swap"
	"auctionlend/internal/domain/token"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/usecase/env"
	"auctionlend/pkg/id"
)

// Depositor credits collateral inside an open transaction.
type Depositor interface {
	DepositFor(ctx context.Context, r uow.Repos, from, beneficiary, tok common.Address, amount *uint256.Int) error
}

type Usecase struct {
	env      *env.Env
	gate     Depositor
	exchange swap.Exchange
}

// NewUsecase wires the loan engine. gate and ex are only needed by
// WithdrawRepaymentAndDeposit.
func NewUsecase(e *env.Env, gate Depositor, ex swap.Exchange) *Usecase {
	return &Usecase{env: e, gate: gate, exchange: ex}
}

// OnFundingReceived runs after the proxy moved amount from lender to the
// loan. Whatever the auction cannot take goes straight back to the lender.
func (u *Usecase) OnFundingReceived(ctx context.Context, r uow.Repos, b *event.Batch, l *loan.Loan, caller, lender common.Address, amount *uint256.Int) (loan.Funding, error) {
	if err := l.CheckProxy(caller); err != nil {
		return loan.Funding{}, err
	}
	now := u.env.Now()
	f, err := l.ApplyFunding(lender, amount, now)
	if err != nil {
		return loan.Funding{}, err
	}
	b.Add(event.Event{Loan: l.Address, Kind: event.KindFunded, Actor: lender, Amount: f.Accepted, At: now})
	if !f.Excess.IsZero() {
		if err := token.NewLedger(r.Tokens).Transfer(ctx, l.Token, l.Address, lender, f.Excess); err != nil {
			return loan.Funding{}, err
		}
		b.Add(event.Event{Loan: l.Address, Kind: event.KindExcessReturned, Actor: lender, Amount: f.Excess, At: now})
	}
	env.RecordTransitions(l, b)
	return f, r.Loans.Save(ctx, l)
}

// OnRepaymentReceived runs after the proxy moved amount from payer to the loan.
func (u *Usecase) OnRepaymentReceived(ctx context.Context, r uow.Repos, b *event.Batch, l *loan.Loan, caller, payer common.Address, amount *uint256.Int) (loan.Repayment, error) {
	if err := l.CheckProxy(caller); err != nil {
		return loan.Repayment{}, err
	}
	now := u.env.Now()
	rep, err := l.ApplyRepayment(amount, now)
	if err != nil {
		return loan.Repayment{}, err
	}
	b.Add(event.Event{Loan: l.Address, Kind: event.KindRepaid, Actor: payer, Amount: rep.Amount, At: now})
	env.RecordTransitions(l, b)
	return rep, r.Loans.Save(ctx, l)
}

// UpdateStateMachine applies the transitions elapsed time made due and
// returns the resulting state.
func (u *Usecase) UpdateStateMachine(ctx context.Context, addr common.Address) (loan.State, error) {
	var st loan.State
	err := u.env.RunLoan(ctx, "loan.update_state", addr, func(r uow.Repos, l *loan.Loan, b *event.Batch) error {
		changed := l.UpdateState(u.env.Now())
		st = l.State
		if !changed {
			return nil
		}
		env.RecordTransitions(l, b)
		return r.Loans.Save(ctx, l)
	})
	return st, err
}

// payout moves amount out of the loan and, when the loan just closed,
// sweeps whatever is left to the administrator.
func (u *Usecase) payout(ctx context.Context, r uow.Repos, b *event.Batch, l *loan.Loan, was loan.State, kind event.Kind, to common.Address, amount *uint256.Int) error {
	now := u.env.Now()
	ledger := token.NewLedger(r.Tokens)
	if err := ledger.Transfer(ctx, l.Token, l.Address, to, amount); err != nil {
		return err
	}
	b.Add(event.Event{Loan: l.Address, Kind: kind, Actor: to, Amount: amount, At: now})
	if was != loan.StateClosed && l.State == loan.StateClosed {
		if err := u.sweep(ctx, ledger, b, l, now); err != nil {
			return err
		}
	}
	env.RecordTransitions(l, b)
	return r.Loans.Save(ctx, l)
}

func (u *Usecase) sweep(ctx context.Context, ledger *token.Ledger, b *event.Batch, l *loan.Loan, now time.Time) error {
	l.FeesWithdrawn = true
	rest, err := ledger.BalanceOf(ctx, l.Token, l.Address)
	if err != nil || rest.IsZero() {
		return err
	}
	if err := ledger.Transfer(ctx, l.Token, l.Address, l.Administrator, rest); err != nil {
		return err
	}
	b.Add(event.Event{Loan: l.Address, Kind: event.KindResidualSwept, Actor: l.Administrator, Amount: rest, At: now})
	return nil
}

type withdrawFn func(l *loan.Loan, caller common.Address, now time.Time) (*uint256.Int, error)

func (u *Usecase) withdraw(ctx context.Context, op string, kind event.Kind, addr, caller common.Address, fn withdrawFn) (*uint256.Int, error) {
	var out *uint256.Int
	err := u.env.RunLoan(ctx, op, addr, func(r uow.Repos, l *loan.Loan, b *event.Batch) error {
		was := l.State
		amount, err := fn(l, caller, u.env.Now())
		if err != nil {
			return err
		}
		out = amount
		return u.payout(ctx, r, b, l, was, kind, caller, amount)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithdrawLoan pays the principal net of fees to the borrower.
func (u *Usecase) WithdrawLoan(ctx context.Context, addr, caller common.Address) (*uint256.Int, error) {
	return u.withdraw(ctx, "loan.withdraw_loan", event.KindLoanWithdrawn, addr, caller, (*loan.Loan).WithdrawLoan)
}

func (u *Usecase) WithdrawRefund(ctx context.Context, addr, caller common.Address) (*uint256.Int, error) {
	return u.withdraw(ctx, "loan.withdraw_refund", event.KindRefundWithdrawn, addr, caller, (*loan.Loan).WithdrawRefund)
}

func (u *Usecase) WithdrawRepayment(ctx context.Context, addr, caller common.Address) (*uint256.Int, error) {
	return u.withdraw(ctx, "loan.withdraw_repayment", event.KindRepaymentWithdrawn, addr, caller, (*loan.Loan).WithdrawRepayment)
}

func (u *Usecase) WithdrawFundsUnlocked(ctx context.Context, addr, caller common.Address) (*uint256.Int, error) {
	return u.withdraw(ctx, "loan.withdraw_unlocked", event.KindFundsUnlockedWithdrawn, addr, caller, (*loan.Loan).WithdrawFundsUnlocked)
}

func (u *Usecase) WithdrawFees(ctx context.Context, addr, caller common.Address) (*uint256.Int, error) {
	return u.withdraw(ctx, "loan.withdraw_fees", event.KindFeesWithdrawn, addr, caller,
		func(l *loan.Loan, caller common.Address, _ time.Time) (*uint256.Int, error) { return l.WithdrawFees(caller) })
}

type gateDepositor struct {
	gate Depositor
	r    uow.Repos
}

func (d gateDepositor) DepositFor(ctx context.Context, from, beneficiary, tok common.Address, amount *uint256.Int) error {
	return d.gate.DepositFor(ctx, d.r, from, beneficiary, tok, amount)
}

// WithdrawRepaymentAndDeposit claims the caller's repayment share, swaps it
// into outputToken through a one-off helper and deposits the proceeds as
// gateway collateral for the caller. It returns the deposited amount.
func (u *Usecase) WithdrawRepaymentAndDeposit(ctx context.Context, addr, caller, outputToken common.Address, minOut *uint256.Int) (*uint256.Int, error) {
	if u.gate == nil || u.exchange == nil {
		return nil, swap.ErrNoRoute
	}
	var out *uint256.Int
	err := u.env.RunLoan(ctx, "loan.withdraw_and_deposit", addr, func(r uow.Repos, l *loan.Loan, b *event.Batch) error {
		was := l.State
		amount, err := l.WithdrawRepayment(caller, u.env.Now())
		if err != nil {
			return err
		}
		ledger := token.NewLedger(r.Tokens)
		h := swap.NewHelper(l.Address, id.RandomSalt(), swap.Params{
			InputToken:   l.Token,
			OutputToken:  outputToken,
			MinAmountOut: minOut,
			Beneficiary:  caller,
		}, ledger, u.exchange, gateDepositor{gate: u.gate, r: r})
		if err := u.payout(ctx, r, b, l, was, event.KindRepaymentWithdrawn, h.Address, amount); err != nil {
			return err
		}
		out, err = h.Run(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unlock freezes the loan. Lenders can then recover their bids if the
// borrower never took the principal.
func (u *Usecase) Unlock(ctx context.Context, addr, caller common.Address) error {
	return u.env.RunLoan(ctx, "loan.unlock", addr, func(r uow.Repos, l *loan.Loan, b *event.Batch) error {
		now := u.env.Now()
		l.UpdateState(now)
		if err := l.Unlock(caller, now); err != nil {
			return err
		}
		env.RecordTransitions(l, b)
		return r.Loans.Save(ctx, l)
	})
}

func (u *Usecase) SetProxy(ctx context.Context, addr, caller, proxy common.Address) error {
	return u.env.RunLoan(ctx, "loan.set_proxy", addr, func(r uow.Repos, l *loan.Loan, b *event.Batch) error {
		if err := l.SetProxy(caller, proxy); err != nil {
			return err
		}
		b.Add(event.Event{Loan: l.Address, Kind: event.KindProxyChanged, Actor: proxy, At: u.env.Now()})
		return r.Loans.Save(ctx, l)
	})
}
