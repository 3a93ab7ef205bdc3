package event

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Kind string

const (
	KindLoanCreated            Kind = "LoanCreated"
	KindFunded                 Kind = "Funded"
	KindExcessReturned         Kind = "ExcessReturned"
	KindStateChanged           Kind = "StateChanged"
	KindRepaid                 Kind = "Repaid"
	KindLoanWithdrawn          Kind = "LoanWithdrawn"
	KindRefundWithdrawn        Kind = "RefundWithdrawn"
	KindRepaymentWithdrawn     Kind = "RepaymentWithdrawn"
	KindFundsUnlockedWithdrawn Kind = "FundsUnlockedWithdrawn"
	KindFeesWithdrawn          Kind = "FeesWithdrawn"
	KindProxyChanged           Kind = "ProxyChanged"
	KindResidualSwept          Kind = "ResidualSwept"
)

// Event is an append-only record of something that happened to a loan.
type Event struct {
	ID        string
	Loan      common.Address
	Kind      Kind
	Actor     common.Address
	Amount    *uint256.Int
	FromState string
	ToState   string
	At        time.Time
}

type Repository interface {
	Append(ctx context.Context, events []Event) error
	ListByLoan(ctx context.Context, loan common.Address, limit int) ([]Event, error)
}

// Batch collects events inside a transaction; they are published only after commit.
type Batch struct {
	NewID  func() string // assigns IDs to events added without one
	events []Event
}

func (b *Batch) Add(e Event) {
	if e.ID == "" && b.NewID != nil {
		e.ID = b.NewID()
	}
	b.events = append(b.events, e)
}

func (b *Batch) Events() []Event { return b.events }

func (b *Batch) Len() int { return len(b.events) }
