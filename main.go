package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ClusterM/google-assistant-smart-home/internal/bootstrap"
	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "homegate",
		Short:        "Smart home fulfillment bridge for voice assistants",
		SilenceUsage: true,
	}
	root.AddCommand(newServerCmd(), newSyncCmd(), newVersionCmd())
	return root
}

func newServerCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the OAuth and fulfillment HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.ServerAddr = addr
			}

			log, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			log.Info("starting homegate", zap.String("version", version.String()))
			if err := bootstrap.Run(cmd.Context(), cfg, log); err != nil {
				log.Error("server failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Ask Home Graph to re-sync devices for every user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			failed, err := bootstrap.RunSync(ctx, cfg, log, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("request sync failed for %d user(s)", failed)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			version.Print(cmd.OutOrStdout())
		},
	}
}

func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	if err := logger.Init(logger.Config{
		Env:   cfg.LogEnv,
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.L(), nil
}
