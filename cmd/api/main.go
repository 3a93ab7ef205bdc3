package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"auctionlend/internal/config"
	"auctionlend/internal/infrastructure/logging"
)

var (
	// Global flags
	envFile     string
	genesisPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "auctionlend",
	Short: "Auction-funded peer-to-peer lending service",
	Long: `auctionlend runs the lending protocol: a loan factory, a token transfer
proxy, an access gateway and the per-loan auction/repayment state machine,
persisted in MySQL and served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		cfg = config.Load()
		if genesisPath != "" {
			cfg.GenesisPath = genesisPath
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		var err error
		logger, err = logging.New(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment (missing is fine)")
	rootCmd.PersistentFlags().StringVar(&genesisPath, "genesis", "", "protocol genesis YAML (overrides GENESIS_PATH)")
	rootCmd.AddCommand(serveCmd, migrateCmd, keeperCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
