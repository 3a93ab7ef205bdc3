package uowmock

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/testutil/eventmock"
	"auctionlend/internal/testutil/loanmock"
)

var loanAddr = common.HexToAddress("0x0000000000000000000000000000000000000107")

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	events := &eventmock.Repo{}
	repos := uow.Repos{Loans: loans, Events: events}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			if fn == nil {
				t.Fatalf("WithinTx: fn is nil")
			}
			// simulate transaction body
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Events != events {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("boom")

	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error {
			return sentinel
		},
	}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Default_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinLoanTx(ctx, loanAddr, func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_WithinLoanTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	repos := uow.Repos{Loans: loans}
	lock := &loan.Loan{ID: 7, Address: loanAddr}

	innerCalled := false
	m := &UoW{
		WithinLoanTxFn: func(gotCtx context.Context, addr common.Address, fn func(r uow.Repos, l *loan.Loan) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinLoanTx: ctx mismatch")
			}
			if addr != loanAddr {
				t.Fatalf("WithinLoanTx: address mismatch, got %s", addr.Hex())
			}
			return fn(repos, lock)
		},
	}

	err := m.WithinLoanTx(ctx, loanAddr, func(r uow.Repos, l *loan.Loan) error {
		innerCalled = true
		if r.Loans != loans {
			t.Fatalf("WithinLoanTx: repos not forwarded")
		}
		if l != lock {
			t.Fatalf("WithinLoanTx: loan not forwarded correctly: %+v", l)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinLoanTx: inner fn not called")
	}
}

func TestPassthrough(t *testing.T) {
	repos := uow.Repos{Loans: &loanmock.Repo{}}
	lock := &loan.Loan{Address: loanAddr}
	m := Passthrough(repos, lock)

	var got *loan.Loan
	if err := m.WithinLoanTx(context.Background(), loanAddr, func(_ uow.Repos, l *loan.Loan) error {
		got = l
		return nil
	}); err != nil || got != lock {
		t.Fatalf("Passthrough: got %+v, %v", got, err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("New should start with nil funcs")
	}

	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinLoanTx(func(context.Context, common.Address, func(uow.Repos, *loan.Loan) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinLoanTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}

	m.Reset()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
