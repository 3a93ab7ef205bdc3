package factory

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/revert"
	"auctionlend/pkg/id"
)

var ErrNotFound = errors.New("factory not found")

var (
	ErrNotAdministrator = revert.Unauthorized("caller is not the factory administrator")
	ErrNoAdministrator  = revert.State("factory has no administrator")
	ErrNoProxy          = revert.State("factory has no proxy")
	ErrNoTemplate       = revert.State("factory has no template")
	ErrNoAmountBounds   = revert.State("factory has no amount bounds")

	ErrMinAmountTooLow      = revert.Bounds("minimum amount below factory bound")
	ErrMaxAmountTooHigh     = revert.Bounds("maximum amount above factory bound")
	ErrAmountRange          = revert.Bounds("minimum amount must be positive and not above maximum")
	ErrInterestRateRange    = revert.Bounds("interest rate outside factory bounds")
	ErrTermTooShort         = revert.Bounds("term length below factory bound")
	ErrAuctionTooShort      = revert.Bounds("auction length below factory bound")
	ErrInvalidInstalments   = revert.Bounds("invalid instalment count")
	ErrZeroToken            = revert.Bounds("zero token address")
	ErrZeroAddress          = revert.Bounds("zero address")
	ErrBoundsOrder          = revert.Bounds("minimum bound above maximum bound")
	ErrNonPositiveLength    = revert.Bounds("length must be positive")
	ErrInterestRateTooLarge = revert.Bounds("interest rate bound above 100 percent")
)

// Bounds limit what a borrower may request.
type Bounds struct {
	MinAmount        *uint256.Int
	MaxAmount        *uint256.Int
	MinInterestRate  uint64
	MaxInterestRate  uint64
	MinTermLength    time.Duration
	MinAuctionLength time.Duration
}

// Factory deploys loans and remembers which addresses it created.
type Factory struct {
	Address       common.Address
	Administrator common.Address
	Proxy         common.Address
	Template      common.Address // shared ruleset used by clones
	Rules         loan.Ruleset   // ruleset copied into fully deployed loans
	Bounds        Bounds
	Nonce         uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Request is what a borrower asks for.
type Request struct {
	Token           common.Address
	MinAmount       *uint256.Int
	MaxAmount       *uint256.Int
	MaxInterestRate uint64
	TermLength      time.Duration
	AuctionLength   time.Duration
	Instalments     uint64
}

// Validate checks a request against the factory bounds. It never mutates.
func (f *Factory) Validate(r Request) error {
	switch {
	case f.Administrator == (common.Address{}):
		return ErrNoAdministrator
	case f.Proxy == (common.Address{}):
		return ErrNoProxy
	case f.Bounds.MinAmount == nil || f.Bounds.MaxAmount == nil:
		return ErrNoAmountBounds
	case r.Token == (common.Address{}):
		return ErrZeroToken
	case r.MinAmount == nil || r.MaxAmount == nil || r.MinAmount.IsZero() || r.MinAmount.Gt(r.MaxAmount):
		return ErrAmountRange
	case r.MinAmount.Lt(f.Bounds.MinAmount):
		return ErrMinAmountTooLow
	case r.MaxAmount.Gt(f.Bounds.MaxAmount):
		return ErrMaxAmountTooHigh
	case r.MaxInterestRate < f.Bounds.MinInterestRate || r.MaxInterestRate > f.Bounds.MaxInterestRate:
		return ErrInterestRateRange
	case r.TermLength < f.Bounds.MinTermLength:
		return ErrTermTooShort
	case r.AuctionLength < f.Bounds.MinAuctionLength || r.AuctionLength <= 0:
		return ErrAuctionTooShort
	case r.Instalments == 0 || r.TermLength/time.Duration(r.Instalments) <= 0:
		return ErrInvalidInstalments
	}
	return nil
}

// Terms binds a validated request to the factory's minimum rate and the
// auction start.
func (f *Factory) Terms(r Request, now time.Time) loan.Terms {
	return loan.Terms{
		MinAmount:       r.MinAmount.Clone(),
		MaxAmount:       r.MaxAmount.Clone(),
		MinInterestRate: f.Bounds.MinInterestRate,
		MaxInterestRate: r.MaxInterestRate,
		AuctionStart:    now,
		AuctionLength:   r.AuctionLength,
		TermLength:      r.TermLength,
		InstalmentCount: r.Instalments,
	}
}

// DeployAddress is the address of a fully deployed loan at the given nonce.
func (f *Factory) DeployAddress(nonce uint64) common.Address {
	return crypto.CreateAddress(f.Address, nonce)
}

// CloneAddress derives a clone's address from the borrower, the nonce and
// the template it points at.
func (f *Factory) CloneAddress(borrower common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress2(f.Address, id.Salt(borrower, nonce), crypto.Keccak256(f.Template.Bytes()))
}

func (f *Factory) onlyAdmin(caller common.Address) error {
	if caller != f.Administrator {
		return ErrNotAdministrator
	}
	return nil
}

func (f *Factory) SetMinAmount(caller common.Address, v *uint256.Int) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if v == nil || v.IsZero() {
		return ErrAmountRange
	}
	if f.Bounds.MaxAmount != nil && v.Gt(f.Bounds.MaxAmount) {
		return ErrBoundsOrder
	}
	f.Bounds.MinAmount = v.Clone()
	return nil
}

func (f *Factory) SetMaxAmount(caller common.Address, v *uint256.Int) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if v == nil || (f.Bounds.MinAmount != nil && v.Lt(f.Bounds.MinAmount)) {
		return ErrBoundsOrder
	}
	f.Bounds.MaxAmount = v.Clone()
	return nil
}

func (f *Factory) SetMinInterestRate(caller common.Address, v uint64) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if v > f.Bounds.MaxInterestRate {
		return ErrBoundsOrder
	}
	f.Bounds.MinInterestRate = v
	return nil
}

func (f *Factory) SetMaxInterestRate(caller common.Address, v uint64) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if v < f.Bounds.MinInterestRate {
		return ErrBoundsOrder
	}
	if v > 100 {
		return ErrInterestRateTooLarge
	}
	f.Bounds.MaxInterestRate = v
	return nil
}

func (f *Factory) SetMinTermLength(caller common.Address, v time.Duration) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if v <= 0 {
		return ErrNonPositiveLength
	}
	f.Bounds.MinTermLength = v
	return nil
}

func (f *Factory) SetMinAuctionLength(caller common.Address, v time.Duration) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if v <= 0 {
		return ErrNonPositiveLength
	}
	f.Bounds.MinAuctionLength = v
	return nil
}

func (f *Factory) SetAdministrator(caller, admin common.Address) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if admin == (common.Address{}) {
		return ErrZeroAddress
	}
	f.Administrator = admin
	return nil
}

// SetProxy changes the proxy bound into loans deployed from now on.
func (f *Factory) SetProxy(caller, proxy common.Address) error {
	if err := f.onlyAdmin(caller); err != nil {
		return err
	}
	if proxy == (common.Address{}) {
		return ErrZeroAddress
	}
	f.Proxy = proxy
	return nil
}

type Repository interface {
	Create(ctx context.Context, f *Factory) error
	Save(ctx context.Context, f *Factory) error
	Get(ctx context.Context, addr common.Address) (*Factory, error)
	GetForUpdate(ctx context.Context, addr common.Address) (*Factory, error)
	AddLoan(ctx context.Context, factory, loan common.Address) error
	IsLoan(ctx context.Context, factory, loan common.Address) (bool, error)
}
