package env

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/revert"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/infrastructure/metrics"
	"auctionlend/pkg/id"
)

// Publisher receives events once their transaction has committed.
type Publisher interface {
	Publish(events []event.Event)
}

// Env is what every protocol usecase shares: the unit of work, a clock, a
// logger and the post-commit side channels. Publisher and Metrics may be nil.
type Env struct {
	UoW       uow.UnitOfWork
	Log       *zap.Logger
	Clock     func() time.Time
	Publisher Publisher
	Metrics   *metrics.LendingMetrics
}

func (e *Env) Now() time.Time {
	if e.Clock != nil {
		return e.Clock().UTC()
	}
	return time.Now().UTC()
}

func (e *Env) Logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Env) newBatch() *event.Batch { return &event.Batch{NewID: id.NewID32} }

// Run executes fn in one transaction. Events added to the batch are stored
// inside the transaction and published after commit.
func (e *Env) Run(ctx context.Context, op string, fn func(r uow.Repos, b *event.Batch) error) error {
	b := e.newBatch()
	err := e.UoW.WithinTx(ctx, func(r uow.Repos) error {
		if err := fn(r, b); err != nil {
			return err
		}
		return r.Events.Append(ctx, b.Events())
	})
	e.finish(op, b, err)
	return err
}

// RunLoan is Run with the loan row locked first.
func (e *Env) RunLoan(ctx context.Context, op string, addr common.Address, fn func(r uow.Repos, l *loan.Loan, b *event.Batch) error) error {
	b := e.newBatch()
	err := e.UoW.WithinLoanTx(ctx, addr, func(r uow.Repos, l *loan.Loan) error {
		if err := fn(r, l, b); err != nil {
			return err
		}
		return r.Events.Append(ctx, b.Events())
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = loan.ErrNotFound
	}
	e.finish(op, b, err)
	return err
}

// Read runs fn in a transaction that records nothing.
func (e *Env) Read(ctx context.Context, fn func(r uow.Repos) error) error {
	return e.UoW.WithinTx(ctx, fn)
}

func (e *Env) finish(op string, b *event.Batch, err error) {
	log := e.Logger()
	if err != nil {
		kind := revert.KindOf(err)
		if kind == 0 {
			log.Error("operation failed", zap.String("op", op), zap.Error(err))
			e.Metrics.ObserveRejection(op, "error")
			return
		}
		log.Debug("operation rejected", zap.String("op", op), zap.String("kind", kind.String()), zap.Error(err))
		e.Metrics.ObserveRejection(op, kind.String())
		return
	}

	volume := 0.0
	for _, ev := range b.Events() {
		if ev.Kind == event.KindStateChanged {
			e.Metrics.ObserveTransition(ev.FromState, ev.ToState)
		}
		if ev.Amount != nil {
			volume += ev.Amount.Float64()
		}
	}
	e.Metrics.ObserveOperation(op, volume)
	if e.Publisher != nil && b.Len() > 0 {
		e.Publisher.Publish(b.Events())
	}
}

// RecordTransitions turns the state changes applied to l into events.
func RecordTransitions(l *loan.Loan, b *event.Batch) {
	for _, t := range l.DrainTransitions() {
		b.Add(event.Event{
			Loan:      l.Address,
			Kind:      event.KindStateChanged,
			FromState: t.From.String(),
			ToState:   t.To.String(),
			At:        t.At,
		})
	}
}
