package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/token"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/usecase/env"
)

// Usecase exposes the token ledger. Only admin may mint.
type Usecase struct {
	env   *env.Env
	admin common.Address
}

func NewUsecase(e *env.Env, admin common.Address) *Usecase {
	return &Usecase{env: e, admin: admin}
}

func (u *Usecase) BalanceOf(ctx context.Context, tok, holder common.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := u.env.Read(ctx, func(r uow.Repos) error {
		var err error
		out, err = token.NewLedger(r.Tokens).BalanceOf(ctx, tok, holder)
		return err
	})
	return out, err
}

func (u *Usecase) Allowance(ctx context.Context, tok, owner, spender common.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := u.env.Read(ctx, func(r uow.Repos) error {
		var err error
		out, err = token.NewLedger(r.Tokens).Allowance(ctx, tok, owner, spender)
		return err
	})
	return out, err
}

func (u *Usecase) Approve(ctx context.Context, tok, caller, spender common.Address, amount *uint256.Int) error {
	return u.env.Run(ctx, "token.approve", func(r uow.Repos, _ *event.Batch) error {
		return token.NewLedger(r.Tokens).Approve(ctx, tok, caller, spender, amount)
	})
}

func (u *Usecase) Transfer(ctx context.Context, tok, caller, to common.Address, amount *uint256.Int) error {
	return u.env.Run(ctx, "token.transfer", func(r uow.Repos, _ *event.Batch) error {
		return token.NewLedger(r.Tokens).Transfer(ctx, tok, caller, to, amount)
	})
}

func (u *Usecase) Mint(ctx context.Context, tok, caller, to common.Address, amount *uint256.Int) error {
	if caller != u.admin || u.admin == (common.Address{}) {
		return token.ErrNotMinter
	}
	return u.env.Run(ctx, "token.mint", func(r uow.Repos, _ *event.Batch) error {
		return token.NewLedger(r.Tokens).Mint(ctx, tok, to, amount)
	})
}
