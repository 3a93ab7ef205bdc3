package genesis

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"auctionlend/internal/config"
	"auctionlend/internal/domain/event"
	"auctionlend/internal/domain/factory"
	"auctionlend/internal/domain/gateway"
	"auctionlend/internal/domain/loan"
	"auctionlend/internal/domain/proxy"
	"auctionlend/internal/domain/uow"
	"auctionlend/internal/infrastructure/exchange"
	"auctionlend/internal/usecase/env"
)

// Settings returns the gateway settings described by g.
func Settings(g config.Genesis) gateway.Settings {
	return gateway.Settings{
		Administrator:   config.Address(g.Gateway.Administrator),
		Address:         config.Address(g.Gateway.Address),
		CollateralToken: config.Address(g.Gateway.CollateralToken),
		RequiredDeposit: config.Amount(g.Gateway.RequiredDeposit),
	}
}

// Exchange builds the fixed-rate exchange described by g.
func Exchange(g config.Genesis) *exchange.FixedRate {
	ex := exchange.NewFixedRate(config.Address(g.Exchange.Reserve))
	for _, r := range g.Exchange.Rates {
		ex.SetRate(config.Address(r.In), config.Address(r.Out), r.Numerator, r.Denominator)
	}
	return ex
}

func rules(g config.Genesis) loan.Ruleset {
	return loan.Ruleset{
		OperatorFeePercent: g.Factory.Ruleset.OperatorFeePercent,
		PenaltyMultiplier:  g.Factory.Ruleset.PenaltyMultiplier,
		Period:             g.Factory.Ruleset.Period,
	}
}

// Apply seeds the template, the factory and the default proxy. Records that
// already exist are left untouched, so Apply can run on every start.
func Apply(ctx context.Context, e *env.Env, g config.Genesis) error {
	now := e.Now()
	rs := rules(g)
	if err := rs.Validate(); err != nil {
		return err
	}
	return e.Run(ctx, "genesis.apply", func(r uow.Repos, _ *event.Batch) error {
		tplAddr := config.Address(g.Factory.Template)
		_, err := r.Templates.GetTemplate(ctx, tplAddr)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := r.Templates.CreateTemplate(ctx, &loan.Template{Address: tplAddr, Rules: rs}); err != nil {
				return err
			}
			e.Logger().Info("genesis template created", zap.String("address", tplAddr.Hex()))
		case err != nil:
			return err
		}

		pAddr := config.Address(g.Proxy.Address)
		_, err = r.Proxies.Get(ctx, pAddr)
		switch {
		case errors.Is(err, proxy.ErrNotFound):
			p := &proxy.Proxy{
				Address:         pAddr,
				Administrator:   config.Address(g.Proxy.Administrator),
				DepositRequired: g.Proxy.DepositRequired,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := r.Proxies.Create(ctx, p); err != nil {
				return err
			}
			e.Logger().Info("genesis proxy created", zap.String("address", pAddr.Hex()))
		case err != nil:
			return err
		}

		fAddr := config.Address(g.Factory.Address)
		_, err = r.Factories.Get(ctx, fAddr)
		switch {
		case errors.Is(err, factory.ErrNotFound):
			b := g.Factory.Bounds
			f := &factory.Factory{
				Address:       fAddr,
				Administrator: config.Address(g.Factory.Administrator),
				Proxy:         pAddr,
				Template:      tplAddr,
				Rules:         rs,
				Bounds: factory.Bounds{
					MinAmount:        config.Amount(b.MinAmount),
					MaxAmount:        config.Amount(b.MaxAmount),
					MinInterestRate:  b.MinInterestRate,
					MaxInterestRate:  b.MaxInterestRate,
					MinTermLength:    b.MinTermLength,
					MinAuctionLength: b.MinAuctionLength,
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := r.Factories.Create(ctx, f); err != nil {
				return err
			}
			e.Logger().Info("genesis factory created", zap.String("address", fAddr.Hex()))
		case err != nil:
			return err
		}
		return nil
	})
}
