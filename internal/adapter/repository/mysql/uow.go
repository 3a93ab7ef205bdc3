package mysql

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	loans := &LoanRepository{db: tx}
	return uow.Repos{
		Loans:     loans,
		Templates: loans,
		Factories: &FactoryRepository{db: tx},
		Proxies:   &ProxyRepository{db: tx},
		Gateway:   &GatewayRepository{db: tx},
		Tokens:    newTxTokenStore(tx),
		Events:    &EventRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, addr common.Address, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByAddressForUpdate(ctx, addr)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
