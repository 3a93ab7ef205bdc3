package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"auctionlend/internal/adapter/repository/mysql"
	"auctionlend/internal/config"
	"auctionlend/internal/usecase/env"
	"auctionlend/internal/usecase/genesis"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed the genesis records",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := config.LoadGenesis(cfg.GenesisPath)
		if err != nil {
			return err
		}
		gdb, err := openDB(true)
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			defer sqlDB.Close()
		}
		e := &env.Env{UoW: mysql.NewGormUoW(gdb), Log: logger}
		if err := genesis.Apply(cmd.Context(), e, g); err != nil {
			return err
		}
		logger.Info("genesis applied",
			zap.String("factory", g.Factory.Address),
			zap.String("proxy", g.Proxy.Address),
			zap.String("template", g.Factory.Template))
		return nil
	},
}
