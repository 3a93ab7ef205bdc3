package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpadp "auctionlend/internal/adapter/http"
	"auctionlend/internal/adapter/middleware"
	"auctionlend/internal/usecase/keeper"
)

var (
	migrateOnStart bool
	withKeeper     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "auto-migrate the schema before serving")
	serveCmd.Flags().BoolVar(&withKeeper, "keeper", false, "also run the state keeper in-process")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx, migrateOnStart)
	if err != nil {
		return err
	}
	defer a.Close()
	a.startSinks(ctx)

	if withKeeper {
		k := keeper.New(a.env, a.loans, cfg.KeeperBatch)
		go func() {
			if err := k.Run(ctx, cfg.KeeperInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("keeper stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover(), middleware.MetricsMiddleware(a.env.Metrics))

	health := httpadp.NewHandler(map[string]httpadp.Check{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() },
	})
	httpadp.Register(e, httpadp.Handlers{
		Health:  health,
		Factory: httpadp.NewFactoryHandler(a.factory),
		Proxies: httpadp.NewProxyHandler(a.proxies),
		Loans:   httpadp.NewLoanHandler(a.loans),
		Gateway: httpadp.NewGatewayHandler(a.gateway),
		Tokens:  httpadp.NewTokenHandler(a.tokens),
	},
		middleware.CallerMiddleware(cfg.RequireSignatures),
		middleware.IdempotencyMiddleware(a.rdb, cfg.IdempotencyTTL(), logger),
	)

	addr := ":" + cfg.AppPort
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.Bool("signatures", cfg.RequireSignatures))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return e.Shutdown(shutdownCtx)
}
