package keeper

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/infrastructure/metrics"
	"auctionlend/internal/usecase/env"
)

// Updater advances one loan's time-driven state.
type Updater interface {
	UpdateStateMachine(ctx context.Context, addr common.Address) (loan.State, error)
}

// Keeper periodically nudges loans whose state may have been changed by the clock.
type Keeper struct {
	env     *env.Env
	loans   Updater
	batch   int
	metrics *metrics.LendingMetrics
}

func New(e *env.Env, loans Updater, batch int) *Keeper {
	if batch <= 0 {
		batch = 100
	}
	return &Keeper{env: e, loans: loans, batch: batch, metrics: e.Metrics}
}

// Result summarises one sweep.
type Result struct {
	Checked int
	Changed int
	Failed  int
}

// Sweep updates every CREATED or ACTIVE loan, one transaction each. A failure
// on one loan is logged and does not stop the sweep.
func (k *Keeper) Sweep(ctx context.Context) (Result, error) {
	var addrs []common.Address
	err := k.env.Read(ctx, func(r uow.Repos) error {
		var err error
		addrs, err = r.Loans.ListAddressesByState(ctx, []loan.State{loan.StateCreated, loan.StateActive}, k.batch)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, a := range addrs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++
		before, after, err := k.update(ctx, a)
		switch {
		case err != nil:
			res.Failed++
			k.metrics.ObserveKeeper("failed")
			k.env.Logger().Warn("keeper update failed", zap.String("loan", a.Hex()), zap.Error(err))
		case before != after:
			res.Changed++
			k.metrics.ObserveKeeper("changed")
		default:
			k.metrics.ObserveKeeper("unchanged")
		}
	}
	return res, nil
}

func (k *Keeper) update(ctx context.Context, addr common.Address) (loan.State, loan.State, error) {
	var before loan.State
	err := k.env.Read(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByAddress(ctx, addr)
		if err != nil {
			return err
		}
		before = l.State
		return nil
	})
	if err != nil {
		return before, before, err
	}
	after, err := k.loans.UpdateStateMachine(ctx, addr)
	return before, after, err
}

// Run sweeps every interval until ctx is done.
func (k *Keeper) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		res, err := k.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			k.env.Logger().Error("keeper sweep failed", zap.Error(err))
		} else if res.Checked > 0 {
			k.env.Logger().Info("keeper sweep",
				zap.Int("checked", res.Checked),
				zap.Int("changed", res.Changed),
				zap.Int("failed", res.Failed))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
