package proxy

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/proxy"
	"auctionlend/internal/domain/token"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/usecase/env"
)

// Gate decides who may move funds through a proxy.
type Gate interface {
	Allowed(ctx context.Context, r uow.Repos, addr common.Address, requireDeposit bool) error
}

// Callbacks are the loan engine entry points reserved for proxies.
type Callbacks interface {
	OnFundingReceived(ctx context.Context, r uow.Repos, b *event.Batch, l *loan.Loan, caller, lender common.Address, amount *uint256.Int) (loan.Funding, error)
	OnRepaymentReceived(ctx context.Context, r uow.Repos, b *event.Batch, l *loan.Loan, caller, payer common.Address, amount *uint256.Int) (loan.Repayment, error)
}

type Usecase struct {
	env   *env.Env
	gate  Gate
	loans Callbacks
}

func NewUsecase(e *env.Env, gate Gate, loans Callbacks) *Usecase {
	return &Usecase{env: e, gate: gate, loans: loans}
}

type ProxyDTO struct {
	Address         string `json:"address"`
	Administrator   string `json:"administrator"`
	DepositRequired bool   `json:"deposit_required"`
}

type FundDTO struct {
	Loan      string `json:"loan"`
	Accepted  string `json:"accepted"`
	Excess    string `json:"excess"`
	Activated bool   `json:"activated"`
}

type RepayDTO struct {
	Loan        string `json:"loan"`
	Amount      string `json:"amount"`
	Penalty     string `json:"penalty"`
	Instalments uint64 `json:"instalments_paid"`
	Settled     bool   `json:"settled"`
}

func toDTO(p *proxy.Proxy) *ProxyDTO {
	return &ProxyDTO{Address: p.Address.Hex(), Administrator: p.Administrator.Hex(), DepositRequired: p.DepositRequired}
}

// Deploy creates a proxy administered by caller.
func (u *Usecase) Deploy(ctx context.Context, caller common.Address, depositRequired bool) (*ProxyDTO, error) {
	if caller == (common.Address{}) {
		return nil, proxy.ErrZeroAddress
	}
	var out *proxy.Proxy
	err := u.env.Run(ctx, "proxy.deploy", func(r uow.Repos, _ *event.Batch) error {
		nonce, err := r.Proxies.NextNonce(ctx, caller)
		if err != nil {
			return err
		}
		now := u.env.Now()
		out = &proxy.Proxy{
			Address:         crypto.CreateAddress(caller, nonce),
			Administrator:   caller,
			DepositRequired: depositRequired,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return r.Proxies.Create(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return toDTO(out), nil
}

func (u *Usecase) Get(ctx context.Context, addr common.Address) (*ProxyDTO, error) {
	var out *ProxyDTO
	err := u.env.Read(ctx, func(r uow.Repos) error {
		p, err := r.Proxies.Get(ctx, addr)
		if err != nil {
			return err
		}
		out = toDTO(p)
		return nil
	})
	return out, err
}

// pull gates caller and moves amount from caller to the loan on the proxy's allowance.
func (u *Usecase) pull(ctx context.Context, r uow.Repos, l *loan.Loan, addr, caller common.Address, amount *uint256.Int) (*proxy.Proxy, error) {
	p, err := r.Proxies.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, proxy.ErrZeroAmount
	}
	if err := u.gate.Allowed(ctx, r, caller, p.DepositRequired); err != nil {
		return nil, err
	}
	if err := token.NewLedger(r.Tokens).TransferFrom(ctx, l.Token, p.Address, caller, l.Address, amount); err != nil {
		return nil, err
	}
	return p, nil
}

// Fund bids amount on the loan for caller.
func (u *Usecase) Fund(ctx context.Context, addr, caller, loanAddr common.Address, amount *uint256.Int) (*FundDTO, error) {
	var f loan.Funding
	err := u.env.RunLoan(ctx, "proxy.fund", loanAddr, func(r uow.Repos, l *loan.Loan, b *event.Batch) error {
		p, err := u.pull(ctx, r, l, addr, caller, amount)
		if err != nil {
			return err
		}
		f, err = u.loans.OnFundingReceived(ctx, r, b, l, p.Address, caller, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &FundDTO{Loan: loanAddr.Hex(), Accepted: f.Accepted.Dec(), Excess: f.Excess.Dec(), Activated: f.Activated}, nil
}

// Repay pays amount towards the loan's debt from caller.
func (u *Usecase) Repay(ctx context.Context, addr, caller, loanAddr common.Address, amount *uint256.Int) (*RepayDTO, error) {
	var rep loan.Repayment
	err := u.env.RunLoan(ctx, "proxy.repay", loanAddr, func(r uow.Repos, l *loan.Loan, b *event.Batch) error {
		p, err := u.pull(ctx, r, l, addr, caller, amount)
		if err != nil {
			return err
		}
		rep, err = u.loans.OnRepaymentReceived(ctx, r, b, l, p.Address, caller, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &RepayDTO{
		Loan:        loanAddr.Hex(),
		Amount:      rep.Amount.Dec(),
		Penalty:     rep.Penalty.Dec(),
		Instalments: rep.Instalments,
		Settled:     rep.Settled,
	}, nil
}

func (u *Usecase) update(ctx context.Context, op string, addr common.Address, fn func(p *proxy.Proxy) error) (*ProxyDTO, error) {
	var out *ProxyDTO
	err := u.env.Run(ctx, op, func(r uow.Repos, _ *event.Batch) error {
		p, err := r.Proxies.GetForUpdate(ctx, addr)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = u.env.Now()
		out = toDTO(p)
		return r.Proxies.Save(ctx, p)
	})
	return out, err
}

func (u *Usecase) SetAdministrator(ctx context.Context, addr, caller, admin common.Address) (*ProxyDTO, error) {
	return u.update(ctx, "proxy.set_administrator", addr, func(p *proxy.Proxy) error {
		return p.SetAdministrator(caller, admin)
	})
}

func (u *Usecase) SetDepositRequirement(ctx context.Context, addr, caller common.Address, required bool) (*ProxyDTO, error) {
	return u.update(ctx, "proxy.set_deposit_requirement", addr, func(p *proxy.Proxy) error {
		return p.SetDepositRequirement(caller, required)
	})
}
