package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"auctionlend/internal/domain/event"
)

// EventPublisher forwards committed loan events to a Redis pub/sub channel.
type EventPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewEventPublisher(rdb *redis.Client, channel string) *EventPublisher {
	return &EventPublisher{rdb: rdb, channel: channel}
}

type eventMessage struct {
	ID        string    `json:"id"`
	Loan      string    `json:"loan"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	FromState string    `json:"from_state,omitempty"`
	ToState   string    `json:"to_state,omitempty"`
	At        time.Time `json:"at"`
}

func (p *EventPublisher) Publish(ctx context.Context, e event.Event) error {
	msg := eventMessage{
		ID:        e.ID,
		Loan:      e.Loan.Hex(),
		Kind:      string(e.Kind),
		FromState: e.FromState,
		ToState:   e.ToState,
		At:        e.At,
	}
	if e.Actor != (common.Address{}) {
		msg.Actor = e.Actor.Hex()
	}
	if e.Amount != nil && !e.Amount.IsZero() {
		msg.Amount = e.Amount.Dec()
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}
