package eventmock

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"auctionlend/internal/domain/event"
)

var _ event.Repository = (*Repo)(nil)

// Repo is a function-backed event.Repository. Append defaults to collecting
// events in Appended.
type Repo struct {
	AppendFn     func(ctx context.Context, events []event.Event) error
	ListByLoanFn func(ctx context.Context, loan common.Address, limit int) ([]event.Event, error)

	Appended []event.Event
}

func (m *Repo) Append(ctx context.Context, events []event.Event) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, events)
	}
	m.Appended = append(m.Appended, events...)
	return nil
}

func (m *Repo) ListByLoan(ctx context.Context, loan common.Address, limit int) ([]event.Event, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loan, limit)
	}
	return nil, context.Canceled
}
