package token

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"auctionlend/internal/domain/revert"
)

var (
	ErrInsufficientBalance   = revert.Bounds("insufficient balance")
	ErrInsufficientAllowance = revert.Bounds("insufficient allowance")
	ErrZeroAddress           = revert.Bounds("zero address")
	ErrNotMinter             = revert.Unauthorized("caller may not mint")
)

// Store persists raw balances and allowances. Missing rows read as zero.
type Store interface {
	Balance(ctx context.Context, token, holder common.Address) (*uint256.Int, error)
	SetBalance(ctx context.Context, token, holder common.Address, amount *uint256.Int) error
	Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error)
	SetAllowance(ctx context.Context, token, owner, spender common.Address, amount *uint256.Int) error
}

// Ledger applies fungible-token rules on top of a Store. When the store is
// bound to a transaction every movement commits or rolls back with it.
type Ledger struct{ store Store }

func NewLedger(s Store) *Ledger { return &Ledger{store: s} }

func (l *Ledger) BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	return l.store.Balance(ctx, token, holder)
}

func (l *Ledger) Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	return l.store.Allowance(ctx, token, owner, spender)
}

func (l *Ledger) Approve(ctx context.Context, token, owner, spender common.Address, amount *uint256.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	return l.store.SetAllowance(ctx, token, owner, spender, amount)
}

// Transfer moves amount from one holder to another. A zero amount is a no-op.
func (l *Ledger) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.IsZero() || from == to {
		return nil
	}
	bal, err := l.store.Balance(ctx, token, from)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return ErrInsufficientBalance
	}
	dst, err := l.store.Balance(ctx, token, to)
	if err != nil {
		return err
	}
	if err := l.store.SetBalance(ctx, token, from, new(uint256.Int).Sub(bal, amount)); err != nil {
		return err
	}
	return l.store.SetBalance(ctx, token, to, new(uint256.Int).Add(dst, amount))
}

// TransferFrom spends the spender's allowance over from's balance.
func (l *Ledger) TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	allowed, err := l.store.Allowance(ctx, token, from, spender)
	if err != nil {
		return err
	}
	if allowed.Lt(amount) {
		return ErrInsufficientAllowance
	}
	bal, err := l.store.Balance(ctx, token, from)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return ErrInsufficientBalance
	}
	if err := l.store.SetAllowance(ctx, token, from, spender, new(uint256.Int).Sub(allowed, amount)); err != nil {
		return err
	}
	return l.Transfer(ctx, token, from, to, amount)
}

func (l *Ledger) Mint(ctx context.Context, token, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal, err := l.store.Balance(ctx, token, to)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return errors.New("token: balance overflow")
	}
	return l.store.SetBalance(ctx, token, to, sum)
}
