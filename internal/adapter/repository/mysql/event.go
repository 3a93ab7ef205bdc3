package mysql

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"auctionlend/internal/domain/event"
)

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

func (r *EventRepository) Append(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	recs := make([]eventRecord, len(events))
	for i, e := range events {
		recs[i] = eventRecord{
			EventID:   e.ID,
			Loan:      hexOf(e.Loan),
			Kind:      string(e.Kind),
			Actor:     hexOf(e.Actor),
			Amount:    dec(e.Amount),
			FromState: e.FromState,
			ToState:   e.ToState,
			At:        e.At,
		}
	}
	return r.db.WithContext(ctx).Create(&recs).Error
}

// ListByLoan returns events oldest first.
func (r *EventRepository) ListByLoan(ctx context.Context, loan common.Address, limit int) ([]event.Event, error) {
	var recs []eventRecord
	q := r.db.WithContext(ctx).Where("loan = ?", hexOf(loan)).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]event.Event, len(recs))
	for i, rec := range recs {
		v, err := amount(rec.Amount)
		if err != nil {
			return nil, err
		}
		out[i] = event.Event{
			ID:        rec.EventID,
			Loan:      addressOf(rec.Loan),
			Kind:      event.Kind(rec.Kind),
			Actor:     addressOf(rec.Actor),
			Amount:    v,
			FromState: rec.FromState,
			ToState:   rec.ToState,
			At:        rec.At,
		}
	}
	return out, nil
}
