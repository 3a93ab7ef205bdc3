package factory

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/factory"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/usecase/env"
)

type Usecase struct {
	env     *env.Env
	address common.Address
}

// NewUsecase serves the factory at addr.
func NewUsecase(e *env.Env, addr common.Address) *Usecase {
	return &Usecase{env: e, address: addr}
}

type CreateLoanInput struct {
	Token           common.Address
	MinAmount       *uint256.Int
	MaxAmount       *uint256.Int
	MaxInterestRate uint64
	TermLength      time.Duration
	AuctionLength   time.Duration
	Instalments     uint64
}

type CreatedDTO struct {
	Address  string `json:"address"`
	Borrower string `json:"borrower"`
	Template string `json:"template,omitempty"`
	Proxy    string `json:"proxy"`
	Nonce    uint64 `json:"nonce"`
}

type FactoryDTO struct {
	Address              string `json:"address"`
	Administrator        string `json:"administrator"`
	Proxy                string `json:"proxy"`
	Template             string `json:"template,omitempty"`
	Nonce                uint64 `json:"nonce"`
	MinAmount            string `json:"min_amount"`
	MaxAmount            string `json:"max_amount"`
	MinInterestRate      uint64 `json:"min_interest_rate"`
	MaxInterestRate      uint64 `json:"max_interest_rate"`
	MinTermLengthSecs    int64  `json:"min_term_length_secs"`
	MinAuctionLengthSecs int64  `json:"min_auction_length_secs"`
	OperatorFeePercent   uint64 `json:"operator_fee_percent"`
	PenaltyMultiplier    uint64 `json:"penalty_multiplier"`
}

func toDTO(f *factory.Factory) *FactoryDTO {
	out := &FactoryDTO{
		Address:              f.Address.Hex(),
		Administrator:        f.Administrator.Hex(),
		Proxy:                f.Proxy.Hex(),
		Nonce:                f.Nonce,
		MinInterestRate:      f.Bounds.MinInterestRate,
		MaxInterestRate:      f.Bounds.MaxInterestRate,
		MinTermLengthSecs:    int64(f.Bounds.MinTermLength / time.Second),
		MinAuctionLengthSecs: int64(f.Bounds.MinAuctionLength / time.Second),
		OperatorFeePercent:   f.Rules.OperatorFeePercent,
		PenaltyMultiplier:    f.Rules.PenaltyMultiplier,
	}
	if f.Template != (common.Address{}) {
		out.Template = f.Template.Hex()
	}
	if f.Bounds.MinAmount != nil {
		out.MinAmount = f.Bounds.MinAmount.Dec()
	}
	if f.Bounds.MaxAmount != nil {
		out.MaxAmount = f.Bounds.MaxAmount.Dec()
	}
	return out
}

func (in CreateLoanInput) request() factory.Request {
	return factory.Request{
		Token:           in.Token,
		MinAmount:       in.MinAmount,
		MaxAmount:       in.MaxAmount,
		MaxInterestRate: in.MaxInterestRate,
		TermLength:      in.TermLength,
		AuctionLength:   in.AuctionLength,
		Instalments:     in.Instalments,
	}
}

// Deploy creates a loan that carries its own copy of the factory ruleset.
func (u *Usecase) Deploy(ctx context.Context, caller common.Address, in CreateLoanInput) (*CreatedDTO, error) {
	return u.create(ctx, "factory.deploy", caller, in, false)
}

// Clone creates a loan that shares the factory template's ruleset.
func (u *Usecase) Clone(ctx context.Context, caller common.Address, in CreateLoanInput) (*CreatedDTO, error) {
	return u.create(ctx, "factory.clone", caller, in, true)
}

func (u *Usecase) create(ctx context.Context, op string, caller common.Address, in CreateLoanInput, clone bool) (*CreatedDTO, error) {
	var out *CreatedDTO
	err := u.env.Run(ctx, op, func(r uow.Repos, b *event.Batch) error {
		f, err := r.Factories.GetForUpdate(ctx, u.address)
		if err != nil {
			return err
		}
		req := in.request()
		if err := f.Validate(req); err != nil {
			return err
		}

		now := u.env.Now()
		p := loan.NewParams{
			Factory:       f.Address,
			Borrower:      caller,
			Administrator: f.Administrator,
			Token:         req.Token,
			Proxy:         f.Proxy,
			Terms:         f.Terms(req, now),
		}
		if clone {
			if f.Template == (common.Address{}) {
				return factory.ErrNoTemplate
			}
			tpl, err := r.Templates.GetTemplate(ctx, f.Template)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return factory.ErrNoTemplate
			}
			if err != nil {
				return err
			}
			p.Address = f.CloneAddress(caller, f.Nonce)
			p.Template = tpl.Address
			p.Rules = &tpl.Rules
		} else {
			rules := f.Rules
			p.Address = f.DeployAddress(f.Nonce)
			p.Rules = &rules
		}

		l := loan.New(p)
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if err := r.Factories.AddLoan(ctx, f.Address, l.Address); err != nil {
			return err
		}
		out = &CreatedDTO{Address: l.Address.Hex(), Borrower: caller.Hex(), Proxy: l.Proxy.Hex(), Nonce: f.Nonce}
		if clone {
			out.Template = l.Template.Hex()
		}
		f.Nonce++
		f.UpdatedAt = now
		b.Add(event.Event{Loan: l.Address, Kind: event.KindLoanCreated, Actor: caller, Amount: l.Terms.MaxAmount, At: now})
		return r.Factories.Save(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) Get(ctx context.Context) (*FactoryDTO, error) {
	var out *FactoryDTO
	err := u.env.Read(ctx, func(r uow.Repos) error {
		f, err := r.Factories.Get(ctx, u.address)
		if err != nil {
			return err
		}
		out = toDTO(f)
		return nil
	})
	return out, err
}

// IsLoan reports whether addr was created by this factory.
func (u *Usecase) IsLoan(ctx context.Context, addr common.Address) (bool, error) {
	var ok bool
	err := u.env.Read(ctx, func(r uow.Repos) error {
		var err error
		ok, err = r.Factories.IsLoan(ctx, u.address, addr)
		return err
	})
	return ok, err
}

// Settings is a partial update of the factory; nil fields are left alone.
// The first rejection aborts the whole update.
type Settings struct {
	MinAmount        *uint256.Int
	MaxAmount        *uint256.Int
	MinInterestRate  *uint64
	MaxInterestRate  *uint64
	MinTermLength    *time.Duration
	MinAuctionLength *time.Duration
	Administrator    *common.Address
	Proxy            *common.Address
}

func (s Settings) apply(f *factory.Factory, caller common.Address) error {
	steps := []func() error{}
	if s.MinAmount != nil {
		steps = append(steps, func() error { return f.SetMinAmount(caller, s.MinAmount) })
	}
	if s.MaxAmount != nil {
		steps = append(steps, func() error { return f.SetMaxAmount(caller, s.MaxAmount) })
	}
	if s.MinInterestRate != nil {
		steps = append(steps, func() error { return f.SetMinInterestRate(caller, *s.MinInterestRate) })
	}
	if s.MaxInterestRate != nil {
		steps = append(steps, func() error { return f.SetMaxInterestRate(caller, *s.MaxInterestRate) })
	}
	if s.MinTermLength != nil {
		steps = append(steps, func() error { return f.SetMinTermLength(caller, *s.MinTermLength) })
	}
	if s.MinAuctionLength != nil {
		steps = append(steps, func() error { return f.SetMinAuctionLength(caller, *s.MinAuctionLength) })
	}
	if s.Proxy != nil {
		steps = append(steps, func() error { return f.SetProxy(caller, *s.Proxy) })
	}
	// last: it changes who may make the other changes
	if s.Administrator != nil {
		steps = append(steps, func() error { return f.SetAdministrator(caller, *s.Administrator) })
	}
	if caller != f.Administrator {
		return factory.ErrNotAdministrator
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Update applies the administrator's changes atomically.
func (u *Usecase) Update(ctx context.Context, caller common.Address, s Settings) (*FactoryDTO, error) {
	var out *FactoryDTO
	err := u.env.Run(ctx, "factory.update", func(r uow.Repos, _ *event.Batch) error {
		f, err := r.Factories.GetForUpdate(ctx, u.address)
		if err != nil {
			return err
		}
		if err := s.apply(f, caller); err != nil {
			return err
		}
		f.UpdatedAt = u.env.Now()
		out = toDTO(f)
		return r.Factories.Save(ctx, f)
	})
	return out, err
}
