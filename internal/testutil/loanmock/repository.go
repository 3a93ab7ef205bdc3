package loanmock

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	domain "auctionlend/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to no-ops; reads default to context.Canceled.
type Repo struct {
	CreateFn                func(ctx context.Context, l *domain.Loan) error
	SaveFn                  func(ctx context.Context, l *domain.Loan) error
	GetByAddressFn          func(ctx context.Context, addr common.Address) (*domain.Loan, error)
	GetByAddressForUpdateFn func(ctx context.Context, addr common.Address) (*domain.Loan, error)
	ListAddressesByStateFn  func(ctx context.Context, states []domain.State, limit int) ([]common.Address, error)
	ListByBorrowerFn        func(ctx context.Context, borrower common.Address) ([]*domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByAddress(ctx context.Context, addr common.Address) (*domain.Loan, error) {
	if m.GetByAddressFn != nil {
		return m.GetByAddressFn(ctx, addr)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByAddressForUpdate(ctx context.Context, addr common.Address) (*domain.Loan, error) {
	if m.GetByAddressForUpdateFn != nil {
		return m.GetByAddressForUpdateFn(ctx, addr)
	}
	return nil, context.Canceled
}

func (m *Repo) ListAddressesByState(ctx context.Context, states []domain.State, limit int) ([]common.Address, error) {
	if m.ListAddressesByStateFn != nil {
		return m.ListAddressesByStateFn(ctx, states, limit)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByBorrower(ctx context.Context, borrower common.Address) ([]*domain.Loan, error) {
	if m.ListByBorrowerFn != nil {
		return m.ListByBorrowerFn(ctx, borrower)
	}
	return nil, context.Canceled
}
