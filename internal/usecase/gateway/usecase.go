package gateway

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/gateway"
	"auctionlend/internal/domain/token"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/usecase/env"
)

// Cache holds positive verification answers.
type Cache interface {
	IsVerified(ctx context.Context, addr common.Address) (bool, error)
	MarkVerified(ctx context.Context, addr common.Address) error
	Forget(ctx context.Context, addr common.Address) error
}

type Usecase struct {
	env      *env.Env
	settings gateway.Settings
	cache    Cache
}

// NewUsecase wires the gateway. cache may be nil.
func NewUsecase(e *env.Env, s gateway.Settings, cache Cache) *Usecase {
	return &Usecase{env: e, settings: s, cache: cache}
}

type StatusDTO struct {
	Address       string `json:"address"`
	Verified      bool   `json:"verified"`
	Deposit       string `json:"deposit"`
	HasCollateral bool   `json:"has_collateral"`
}

func (u *Usecase) Settings() gateway.Settings { return u.settings }

func verified(ctx context.Context, r uow.Repos, addr common.Address) (bool, error) {
	id, err := r.Gateway.GetIdentity(ctx, addr)
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return id.Verified, nil
}

func deposit(ctx context.Context, r uow.Repos, addr common.Address) (*gateway.Deposit, error) {
	d, err := r.Gateway.GetDeposit(ctx, addr)
	if errors.Is(err, gateway.ErrNotFound) {
		return &gateway.Deposit{Address: addr, Amount: new(uint256.Int)}, nil
	}
	return d, err
}

// Allowed is the gate the proxy runs before moving funds, inside its transaction.
func (u *Usecase) Allowed(ctx context.Context, r uow.Repos, addr common.Address, requireDeposit bool) error {
	ok, err := verified(ctx, r, addr)
	if err != nil {
		return err
	}
	if !ok {
		return gateway.ErrNotVerified
	}
	if !requireDeposit {
		return nil
	}
	d, err := deposit(ctx, r, addr)
	if err != nil {
		return err
	}
	if !u.settings.Satisfies(d) {
		return gateway.ErrNoDeposit
	}
	return nil
}

// DepositFor moves collateral held by from into the gateway and credits it to beneficiary.
func (u *Usecase) DepositFor(ctx context.Context, r uow.Repos, from, beneficiary, tok common.Address, amount *uint256.Int) error {
	if tok != u.settings.CollateralToken {
		return gateway.ErrWrongCollateral
	}
	if amount == nil || amount.IsZero() {
		return gateway.ErrZeroAmount
	}
	if err := token.NewLedger(r.Tokens).Transfer(ctx, tok, from, u.settings.Address, amount); err != nil {
		return err
	}
	d, err := deposit(ctx, r, beneficiary)
	if err != nil {
		return err
	}
	d.Amount = new(uint256.Int).Add(d.Amount, amount)
	d.UpdatedAt = u.env.Now()
	return r.Gateway.SaveDeposit(ctx, d)
}

func (u *Usecase) IsVerified(ctx context.Context, addr common.Address) (bool, error) {
	if u.cache != nil {
		hit, err := u.cache.IsVerified(ctx, addr)
		if err == nil && hit {
			return true, nil
		}
		if err != nil {
			u.env.Logger().Warn("verified cache read failed", zap.String("address", addr.Hex()), zap.Error(err))
		}
	}
	var ok bool
	err := u.env.Read(ctx, func(r uow.Repos) error {
		var err error
		ok, err = verified(ctx, r, addr)
		return err
	})
	if err != nil {
		return false, err
	}
	if ok && u.cache != nil {
		if err := u.cache.MarkVerified(ctx, addr); err != nil {
			u.env.Logger().Warn("verified cache write failed", zap.String("address", addr.Hex()), zap.Error(err))
		}
	}
	return ok, nil
}

func (u *Usecase) HasCollateral(ctx context.Context, addr common.Address) (bool, error) {
	var ok bool
	err := u.env.Read(ctx, func(r uow.Repos) error {
		d, err := deposit(ctx, r, addr)
		if err != nil {
			return err
		}
		ok = u.settings.Satisfies(d)
		return nil
	})
	return ok, err
}

func (u *Usecase) Status(ctx context.Context, addr common.Address) (*StatusDTO, error) {
	out := &StatusDTO{Address: addr.Hex()}
	err := u.env.Read(ctx, func(r uow.Repos) error {
		ok, err := verified(ctx, r, addr)
		if err != nil {
			return err
		}
		d, err := deposit(ctx, r, addr)
		if err != nil {
			return err
		}
		out.Verified = ok
		out.Deposit = d.Amount.Dec()
		out.HasCollateral = u.settings.Satisfies(d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetVerified records an off-chain identity decision.
func (u *Usecase) SetVerified(ctx context.Context, caller, addr common.Address, ok bool) error {
	if caller != u.settings.Administrator {
		return gateway.ErrNotAdministrator
	}
	err := u.env.Run(ctx, "gateway.set_verified", func(r uow.Repos, _ *event.Batch) error {
		return r.Gateway.SaveIdentity(ctx, &gateway.Identity{
			Address:    addr,
			Verified:   ok,
			VerifiedBy: caller,
			UpdatedAt:  u.env.Now(),
		})
	})
	if err != nil || u.cache == nil {
		return err
	}
	if ok {
		err = u.cache.MarkVerified(ctx, addr)
	} else {
		err = u.cache.Forget(ctx, addr)
	}
	if err != nil {
		u.env.Logger().Warn("verified cache update failed", zap.String("address", addr.Hex()), zap.Error(err))
	}
	return nil
}

// Deposit moves the caller's collateral into the gateway.
func (u *Usecase) Deposit(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return u.env.Run(ctx, "gateway.deposit", func(r uow.Repos, _ *event.Batch) error {
		return u.DepositFor(ctx, r, caller, caller, u.settings.CollateralToken, amount)
	})
}
