package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"auctionlend/internal/usecase/keeper"
)

var keeperOnce bool

var keeperCmd = &cobra.Command{
	Use:   "keeper",
	Short: "Persist time-driven loan transitions (auction expiry, default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.startSinks(ctx)

		k := keeper.New(a.env, a.loans, cfg.KeeperBatch)
		if keeperOnce {
			res, err := k.Sweep(ctx)
			logger.Info("keeper sweep",
				zap.Int("checked", res.Checked),
				zap.Int("changed", res.Changed),
				zap.Int("failed", res.Failed))
			return err
		}
		logger.Info("keeper running", zap.Duration("interval", cfg.KeeperInterval))
		if err := k.Run(ctx, cfg.KeeperInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	keeperCmd.Flags().BoolVar(&keeperOnce, "once", false, "run a single sweep and exit")
}
