package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type State int

const (
	StateCreated State = iota
	StateFailedToFund
	StateActive
	StateDefaulted
	StateRepaid
	StateClosed
	StateFrozen
)

var stateNames = map[State]string{
	StateCreated:      "created",
	StateFailedToFund: "failed_to_fund",
	StateActive:       "active",
	StateDefaulted:    "defaulted",
	StateRepaid:       "repaid",
	StateClosed:       "closed",
	StateFrozen:       "frozen",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// transitions is the only place the lifecycle graph is written down.
var transitions = map[State][]State{
	StateCreated:      {StateFailedToFund, StateActive, StateFrozen},
	StateFailedToFund: {StateClosed, StateFrozen},
	StateActive:       {StateDefaulted, StateRepaid, StateFrozen},
	StateRepaid:       {StateClosed},
	StateFrozen:       {StateClosed},
}

// CanTransition reports whether the lifecycle graph has an edge from -> to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Ruleset is the immutable part of a loan that clones share with their template.
type Ruleset struct {
	OperatorFeePercent uint64
	PenaltyMultiplier  uint64
	Period             time.Duration // length of one interest month
}

const DefaultPeriod = 30 * 24 * time.Hour

func DefaultRuleset() Ruleset {
	return Ruleset{OperatorFeePercent: 2, PenaltyMultiplier: 2, Period: DefaultPeriod}
}

func (r Ruleset) Validate() error {
	if r.OperatorFeePercent > 100 {
		return ErrFeeTooHigh
	}
	if r.Period <= 0 {
		return ErrInvalidPeriod
	}
	return nil
}

// Template is a shared ruleset that cloned loans point at instead of
// carrying their own copy.
type Template struct {
	Address   common.Address
	Rules     Ruleset
	CreatedAt time.Time
}

// Terms are bound at creation and never change afterwards.
type Terms struct {
	MinAmount       *uint256.Int
	MaxAmount       *uint256.Int
	MinInterestRate uint64 // percent
	MaxInterestRate uint64 // percent
	AuctionStart    time.Time
	AuctionLength   time.Duration
	TermLength      time.Duration
	InstalmentCount uint64 // 1 for balloon loans
}

// Lender is the per-lender ledger record. A lender that never bid reads as the
// zero record: no bid, not withdrawn.
type Lender struct {
	Address              common.Address
	BidAmount            *uint256.Int
	Withdrawn            bool
	InstalmentsWithdrawn uint64
	PenaltyWithdrawn     *uint256.Int
}

// Transition records one state change applied to a loan.
type Transition struct {
	From State
	To   State
	At   time.Time
}

type Loan struct {
	ID            uint64
	Address       common.Address
	Factory       common.Address
	Borrower      common.Address
	Administrator common.Address
	Token         common.Address
	Proxy         common.Address
	Template      common.Address // zero for a full deployment

	Rules *Ruleset
	Terms Terms

	State           State
	AuctionBalance  *uint256.Int
	OperatorBalance *uint256.Int
	WithdrawnAmount *uint256.Int // paid out to the borrower
	BorrowerDebt    *uint256.Int // principal plus interest, fixed on activation
	RepaidAmount    *uint256.Int
	PenaltiesPaid   *uint256.Int
	FrozenRate      uint64 // valid once RateFrozen
	RateFrozen      bool
	InstalmentsPaid uint64
	LoanWithdrawn   bool
	MinimumReached  bool
	FeesWithdrawn   bool
	TermStart       time.Time
	TermEnd         time.Time

	Lenders map[common.Address]*Lender

	StateUpdatedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	transitions []Transition
}

// NewParams carries what the factory binds into a fresh loan.
type NewParams struct {
	Address       common.Address
	Factory       common.Address
	Borrower      common.Address
	Administrator common.Address
	Token         common.Address
	Proxy         common.Address
	Template      common.Address
	Rules         *Ruleset
	Terms         Terms
}

func New(p NewParams) *Loan {
	return &Loan{
		Address:         p.Address,
		Factory:         p.Factory,
		Borrower:        p.Borrower,
		Administrator:   p.Administrator,
		Token:           p.Token,
		Proxy:           p.Proxy,
		Template:        p.Template,
		Rules:           p.Rules,
		Terms:           p.Terms,
		State:           StateCreated,
		AuctionBalance:  new(uint256.Int),
		OperatorBalance: new(uint256.Int),
		WithdrawnAmount: new(uint256.Int),
		BorrowerDebt:    new(uint256.Int),
		RepaidAmount:    new(uint256.Int),
		PenaltiesPaid:   new(uint256.Int),
		Lenders:         map[common.Address]*Lender{},
		StateUpdatedAt:  p.Terms.AuctionStart,
	}
}

func (l *Loan) IsClone() bool { return l.Template != (common.Address{}) }

func (l *Loan) IsInstalment() bool { return l.Terms.InstalmentCount > 1 }

func (l *Loan) AuctionEnd() time.Time { return l.Terms.AuctionStart.Add(l.Terms.AuctionLength) }

// Lender returns a copy of the lender's record, or the zero record.
func (l *Loan) Lender(addr common.Address) Lender {
	if rec, ok := l.Lenders[addr]; ok && rec != nil {
		return Lender{
			Address:              rec.Address,
			BidAmount:            rec.BidAmount.Clone(),
			Withdrawn:            rec.Withdrawn,
			InstalmentsWithdrawn: rec.InstalmentsWithdrawn,
			PenaltyWithdrawn:     rec.PenaltyWithdrawn.Clone(),
		}
	}
	return Lender{Address: addr, BidAmount: new(uint256.Int), PenaltyWithdrawn: new(uint256.Int)}
}

// BidSum is the sum of every lender's bid.
func (l *Loan) BidSum() *uint256.Int {
	sum := new(uint256.Int)
	for _, rec := range l.Lenders {
		sum.Add(sum, rec.BidAmount)
	}
	return sum
}

func (l *Loan) LenderCount() int { return len(l.Lenders) }

func (l *Loan) WithdrawnCount() int {
	n := 0
	for _, rec := range l.Lenders {
		if rec.Withdrawn {
			n++
		}
	}
	return n
}

// DrainTransitions returns and clears the transitions applied since the last call.
func (l *Loan) DrainTransitions() []Transition {
	out := l.transitions
	l.transitions = nil
	return out
}
