package events

import (
	"context"
	"sync"

	gethevent "github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"auctionlend/internal/domain/event"
)

// DefaultQueue is the number of committed events that may wait for delivery.
const DefaultQueue = 1024

// Dispatcher fans committed loan events out to in-process subscribers. A
// single goroutine feeds the subscribers, so callers of Publish never wait
// on a slow sink.
type Dispatcher struct {
	feed  gethevent.FeedOf[event.Event]
	scope gethevent.SubscriptionScope
	log   *zap.Logger

	queue chan event.Event
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func NewDispatcher(queue int, log *zap.Logger) *Dispatcher {
	if queue <= 0 {
		queue = DefaultQueue
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		log:   log,
		queue: make(chan event.Event, queue),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case e := <-d.queue:
			d.feed.Send(e)
		case <-d.quit:
			return
		}
	}
}

// Publish queues events for delivery in order. Events that do not fit in the
// queue are dropped and logged; they remain in the loan_events table.
func (d *Dispatcher) Publish(events []event.Event) {
	for _, e := range events {
		select {
		case d.queue <- e:
		default:
			d.log.Warn("event queue full, dropping event",
				zap.String("event_id", e.ID),
				zap.String("kind", string(e.Kind)),
				zap.String("loan", e.Loan.Hex()))
		}
	}
}

func (d *Dispatcher) Subscribe(ch chan<- event.Event) gethevent.Subscription {
	return d.scope.Track(d.feed.Subscribe(ch))
}

// Consume calls handle for every event until ctx is done or the dispatcher closes.
func (d *Dispatcher) Consume(ctx context.Context, buffer int, handle func(event.Event)) error {
	ch := make(chan event.Event, buffer)
	sub := d.Subscribe(ch)
	defer sub.Unsubscribe()
	for {
		select {
		case e := <-ch:
			handle(e)
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close ends every subscription and stops delivery. Queued events are discarded.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.quit)
		d.scope.Close()
		<-d.done
	})
}

// LogSink writes each event to the log.
func LogSink(log *zap.Logger) func(event.Event) {
	return func(e event.Event) {
		fields := []zap.Field{
			zap.String("event_id", e.ID),
			zap.String("kind", string(e.Kind)),
			zap.String("loan", e.Loan.Hex()),
			zap.String("actor", e.Actor.Hex()),
			zap.Time("at", e.At),
		}
		if e.Amount != nil && !e.Amount.IsZero() {
			fields = append(fields, zap.String("amount", e.Amount.Dec()))
		}
		if e.ToState != "" {
			fields = append(fields, zap.String("from", e.FromState), zap.String("to", e.ToState))
		}
		log.Info("loan event", fields...)
	}
}
