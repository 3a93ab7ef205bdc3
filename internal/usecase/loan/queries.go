package loan

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/uow"
)

type LoanDTO struct {
	Address         string      `json:"address"`
	Factory         string      `json:"factory,omitempty"`
	Borrower        string      `json:"borrower"`
	Administrator   string      `json:"administrator"`
	Token           string      `json:"token"`
	Proxy           string      `json:"proxy"`
	Template        string      `json:"template,omitempty"`
	State           string      `json:"state"`
	MinAmount       string      `json:"min_amount"`
	MaxAmount       string      `json:"max_amount"`
	MinInterestRate uint64      `json:"min_interest_rate"`
	MaxInterestRate uint64      `json:"max_interest_rate"`
	InterestRate    uint64      `json:"interest_rate"`
	AuctionStart    time.Time   `json:"auction_start"`
	AuctionEnd      time.Time   `json:"auction_end"`
	TermLengthSecs  int64       `json:"term_length_secs"`
	TermMonths      uint64      `json:"term_months"`
	Instalments     uint64      `json:"instalments"`
	InstalmentsPaid uint64      `json:"instalments_paid"`
	AuctionBalance  string      `json:"auction_balance"`
	OperatorBalance string      `json:"operator_balance"`
	BorrowerDebt    string      `json:"borrower_debt"`
	InstalmentDebt  string      `json:"instalment_debt"`
	TotalDebt       string      `json:"total_debt"`
	RepaidAmount    string      `json:"repaid_amount"`
	PenaltiesPaid   string      `json:"penalties_paid"`
	LoanWithdrawn   bool        `json:"loan_withdrawn"`
	MinimumReached  bool        `json:"minimum_reached"`
	FeesWithdrawn   bool        `json:"fees_withdrawn"`
	TermEnd         *time.Time  `json:"term_end,omitempty"`
	LenderCount     int         `json:"lender_count"`
	WithdrawnCount  int         `json:"withdrawn_count"`
	Lenders         []LenderDTO `json:"lenders,omitempty"`
	StateUpdatedAt  time.Time   `json:"state_updated_at"`
}

type LenderDTO struct {
	Address              string `json:"address"`
	BidAmount            string `json:"bid_amount"`
	Withdrawn            bool   `json:"withdrawn"`
	InstalmentsWithdrawn uint64 `json:"instalments_withdrawn"`
	Claimable            string `json:"claimable"`
}

type EventDTO struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	FromState string    `json:"from_state,omitempty"`
	ToState   string    `json:"to_state,omitempty"`
	At        time.Time `json:"at"`
}

func hexOrEmpty(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func lenderDTO(l *loan.Loan, addr common.Address) LenderDTO {
	rec := l.Lender(addr)
	return LenderDTO{
		Address:              addr.Hex(),
		BidAmount:            rec.BidAmount.Dec(),
		Withdrawn:            rec.Withdrawn,
		InstalmentsWithdrawn: rec.InstalmentsWithdrawn,
		Claimable:            l.Claimable(addr).Dec(),
	}
}

// toDTO renders l as it reads at now. Time-driven transitions are applied to
// the in-memory copy only.
func toDTO(l *loan.Loan, now time.Time) *LoanDTO {
	l.UpdateState(now)
	_ = l.DrainTransitions()

	out := &LoanDTO{
		Address:         l.Address.Hex(),
		Factory:         hexOrEmpty(l.Factory),
		Borrower:        l.Borrower.Hex(),
		Administrator:   l.Administrator.Hex(),
		Token:           l.Token.Hex(),
		Proxy:           l.Proxy.Hex(),
		Template:        hexOrEmpty(l.Template),
		State:           l.State.String(),
		MinAmount:       l.Terms.MinAmount.Dec(),
		MaxAmount:       l.Terms.MaxAmount.Dec(),
		MinInterestRate: l.Terms.MinInterestRate,
		MaxInterestRate: l.Terms.MaxInterestRate,
		InterestRate:    l.InterestRate(now),
		AuctionStart:    l.Terms.AuctionStart,
		AuctionEnd:      l.AuctionEnd(),
		TermLengthSecs:  int64(l.Terms.TermLength / time.Second),
		TermMonths:      l.TermMonths(),
		Instalments:     l.Terms.InstalmentCount,
		InstalmentsPaid: l.InstalmentsPaid,
		AuctionBalance:  l.AuctionBalance.Dec(),
		OperatorBalance: l.OperatorBalance.Dec(),
		BorrowerDebt:    l.BorrowerDebt.Dec(),
		InstalmentDebt:  l.InstalmentDebt(now).Dec(),
		TotalDebt:       l.TotalDebt(now).Dec(),
		RepaidAmount:    l.RepaidAmount.Dec(),
		PenaltiesPaid:   l.PenaltiesPaid.Dec(),
		LoanWithdrawn:   l.LoanWithdrawn,
		MinimumReached:  l.MinimumReached,
		FeesWithdrawn:   l.FeesWithdrawn,
		LenderCount:     l.LenderCount(),
		WithdrawnCount:  l.WithdrawnCount(),
		StateUpdatedAt:  l.StateUpdatedAt,
	}
	if !l.TermEnd.IsZero() {
		end := l.TermEnd
		out.TermEnd = &end
	}
	addrs := make([]common.Address, 0, len(l.Lenders))
	for a := range l.Lenders {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })
	for _, a := range addrs {
		out.Lenders = append(out.Lenders, lenderDTO(l, a))
	}
	return out
}

func (u *Usecase) load(ctx context.Context, r uow.Repos, addr common.Address) (*loan.Loan, error) {
	l, err := r.Loans.GetByAddress(ctx, addr)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, loan.ErrNotFound
	}
	return l, err
}

func (u *Usecase) Get(ctx context.Context, addr common.Address) (*LoanDTO, error) {
	var out *LoanDTO
	err := u.env.Read(ctx, func(r uow.Repos) error {
		l, err := u.load(ctx, r, addr)
		if err != nil {
			return err
		}
		out = toDTO(l, u.env.Now())
		return nil
	})
	return out, err
}

// Lender returns one lender's record; an address that never bid reads as the zero record.
func (u *Usecase) Lender(ctx context.Context, addr, lender common.Address) (*LenderDTO, error) {
	var out LenderDTO
	err := u.env.Read(ctx, func(r uow.Repos) error {
		l, err := u.load(ctx, r, addr)
		if err != nil {
			return err
		}
		l.UpdateState(u.env.Now())
		out = lenderDTO(l, lender)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Usecase) ListByBorrower(ctx context.Context, borrower common.Address) ([]*LoanDTO, error) {
	out := []*LoanDTO{}
	err := u.env.Read(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.ListByBorrower(ctx, borrower)
		if err != nil {
			return err
		}
		now := u.env.Now()
		for _, l := range loans {
			out = append(out, toDTO(l, now))
		}
		return nil
	})
	return out, err
}

func (u *Usecase) Events(ctx context.Context, addr common.Address, limit int) ([]EventDTO, error) {
	out := []EventDTO{}
	err := u.env.Read(ctx, func(r uow.Repos) error {
		if _, err := u.load(ctx, r, addr); err != nil {
			return err
		}
		evs, err := r.Events.ListByLoan(ctx, addr, limit)
		if err != nil {
			return err
		}
		for _, e := range evs {
			out = append(out, eventDTO(e))
		}
		return nil
	})
	return out, err
}

func eventDTO(e event.Event) EventDTO {
	d := EventDTO{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Actor:     hexOrEmpty(e.Actor),
		FromState: e.FromState,
		ToState:   e.ToState,
		At:        e.At,
	}
	if e.Amount != nil {
		d.Amount = e.Amount.Dec()
	}
	return d
}
