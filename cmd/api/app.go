package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"auctionlend/internal/adapter/repository/mysql"
	"auctionlend/internal/config"
	"auctionlend/internal/domain/event"
	"auctionlend/internal/infrastructure/cache"
	"auctionlend/internal/infrastructure/db"
	"auctionlend/internal/infrastructure/events"
	"auctionlend/internal/infrastructure/metrics"
	"auctionlend/internal/usecase/env"
	factoryuc "auctionlend/internal/usecase/factory"
	gatewayuc "auctionlend/internal/usecase/gateway"
	"auctionlend/internal/usecase/genesis"
	loanuc "auctionlend/internal/usecase/loan"
	proxyuc "auctionlend/internal/usecase/proxy"
	tokenuc "auctionlend/internal/usecase/token"
)

// app holds everything the sub-commands share once the stores are open.
type app struct {
	db         *gorm.DB
	rdb        *redis.Client
	env        *env.Env
	dispatcher *events.Dispatcher
	genesis    config.Genesis

	gateway *gatewayuc.Usecase
	tokens  *tokenuc.Usecase
	loans   *loanuc.Usecase
	proxies *proxyuc.Usecase
	factory *factoryuc.Usecase
}

func openDB(migrate bool) (*gorm.DB, error) {
	gdb, err := db.OpenGorm(cfg.MySQLDSN(), db.GormLogLevel(cfg.LogLevel), logger)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if migrate {
		if err := mysql.Migrate(gdb); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema migrated")
	}
	return gdb, nil
}

// openApp connects MySQL and Redis, applies the genesis and wires the usecases.
func openApp(ctx context.Context, migrate bool) (*app, error) {
	g, err := config.LoadGenesis(cfg.GenesisPath)
	if err != nil {
		return nil, err
	}
	gdb, err := openDB(migrate)
	if err != nil {
		return nil, err
	}
	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB, logger)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}

	d := events.NewDispatcher(events.DefaultQueue, logger)
	e := &env.Env{
		UoW:       mysql.NewGormUoW(gdb),
		Log:       logger,
		Publisher: d,
		Metrics:   metrics.Lending(),
	}
	if err := genesis.Apply(ctx, e, g); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	gw := gatewayuc.NewUsecase(e, genesis.Settings(g), cache.NewVerifiedCache(rdb, cfg.VerifiedCacheTTL()))
	loans := loanuc.NewUsecase(e, gw, genesis.Exchange(g))
	return &app{
		db:         gdb,
		rdb:        rdb,
		env:        e,
		dispatcher: d,
		genesis:    g,
		gateway:    gw,
		tokens:     tokenuc.NewUsecase(e, config.Address(g.TokenAdmin)),
		loans:      loans,
		proxies:    proxyuc.NewUsecase(e, gw, loans),
		factory:    factoryuc.NewUsecase(e, config.Address(g.Factory.Address)),
	}, nil
}

// startSinks subscribes the log sink and the Redis publisher to committed events.
func (a *app) startSinks(ctx context.Context) {
	pub := cache.NewEventPublisher(a.rdb, cfg.EventsChannel)
	go func() {
		_ = a.dispatcher.Consume(ctx, 256, events.LogSink(logger))
	}()
	go func() {
		_ = a.dispatcher.Consume(ctx, 256, func(ev event.Event) {
			if err := pub.Publish(ctx, ev); err != nil {
				logger.Warn("event publish failed", zap.String("event_id", ev.ID), zap.Error(err))
			}
		})
	}()
}

func (a *app) Close() {
	a.dispatcher.Close()
	if err := a.rdb.Close(); err != nil {
		logger.Warn("redis close", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
