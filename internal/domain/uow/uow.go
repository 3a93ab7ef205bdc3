package uow

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/factory"
	"auctionlend/internal/domain/gateway"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/proxy"
	"auctionlend/internal/domain/token"
)

// Repos are bound to one transaction.
type Repos struct {
	Loans     loan.Repository
	Templates loan.TemplateRepository
	Factories factory.Repository
	Proxies   proxy.Repository
	Gateway   gateway.Repository
	Tokens    token.Store
	Events    event.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, addr common.Address, fn func(r Repos, l *loan.Loan) error) error
}
