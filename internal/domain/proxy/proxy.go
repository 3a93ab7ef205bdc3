package proxy

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"auctionlend/internal/domain/revert"
)

var ErrNotFound = errors.New("proxy not found")

var (
	ErrNotAdministrator = revert.Unauthorized("caller is not the proxy administrator")
	ErrZeroAddress      = revert.Bounds("zero address")
	ErrZeroAmount       = revert.Bounds("zero amount")
)

// Proxy is the only party allowed to call a loan's funding and repayment
// callbacks. It spends allowances granted to its own address.
type Proxy struct {
	Address         common.Address
	Administrator   common.Address
	DepositRequired bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Proxy) SetAdministrator(caller, admin common.Address) error {
	if caller != p.Administrator {
		return ErrNotAdministrator
	}
	if admin == (common.Address{}) {
		return ErrZeroAddress
	}
	p.Administrator = admin
	return nil
}

func (p *Proxy) SetDepositRequirement(caller common.Address, required bool) error {
	if caller != p.Administrator {
		return ErrNotAdministrator
	}
	p.DepositRequired = required
	return nil
}

type Repository interface {
	Create(ctx context.Context, p *Proxy) error
	Save(ctx context.Context, p *Proxy) error
	Get(ctx context.Context, addr common.Address) (*Proxy, error)
	GetForUpdate(ctx context.Context, addr common.Address) (*Proxy, error)
	// NextNonce returns and increments the deployment counter of an account.
	NextNonce(ctx context.Context, deployer common.Address) (uint64, error)
}
