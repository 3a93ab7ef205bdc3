package loan

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	// Save persists the ledger and every lender record of l.
	Save(ctx context.Context, l *Loan) error
	GetByAddress(ctx context.Context, addr common.Address) (*Loan, error)
	// GetByAddressForUpdate locks the loan row for the rest of the transaction.
	GetByAddressForUpdate(ctx context.Context, addr common.Address) (*Loan, error)
	ListAddressesByState(ctx context.Context, states []State, limit int) ([]common.Address, error)
	ListByBorrower(ctx context.Context, borrower common.Address) ([]*Loan, error)
}

type TemplateRepository interface {
	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, addr common.Address) (*Template, error)
}
