package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"auctionlend/internal/domain/revert"
)

var ErrNotFound = errors.New("gateway record not found")

var (
	ErrNotVerified      = revert.Identity("identity not verified")
	ErrNoDeposit        = revert.Identity("collateral deposit missing")
	ErrNotAdministrator = revert.Unauthorized("caller is not the gateway administrator")
	ErrZeroAmount       = revert.Bounds("zero amount")
	ErrWrongCollateral  = revert.Bounds("token is not the collateral token")
)

// Settings come from the protocol genesis.
type Settings struct {
	Administrator   common.Address
	Address         common.Address // holds deposited collateral
	CollateralToken common.Address
	RequiredDeposit *uint256.Int
}

// Identity is the off-chain verification outcome for one address.
type Identity struct {
	Address    common.Address
	Verified   bool
	VerifiedBy common.Address
	UpdatedAt  time.Time
}

type Deposit struct {
	Address   common.Address
	Amount    *uint256.Int
	UpdatedAt time.Time
}

type Repository interface {
	GetIdentity(ctx context.Context, addr common.Address) (*Identity, error)
	SaveIdentity(ctx context.Context, id *Identity) error
	GetDeposit(ctx context.Context, addr common.Address) (*Deposit, error)
	SaveDeposit(ctx context.Context, d *Deposit) error
}

// Satisfies reports whether a deposit meets the required amount. A zero
// requirement is satisfied by any address.
func (s Settings) Satisfies(d *Deposit) bool {
	if s.RequiredDeposit == nil || s.RequiredDeposit.IsZero() {
		return true
	}
	if d == nil || d.Amount == nil {
		return false
	}
	return !d.Amount.Lt(s.RequiredDeposit)
}
