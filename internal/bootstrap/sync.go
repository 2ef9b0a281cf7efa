package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/directory"
	"github.com/ClusterM/google-assistant-smart-home/internal/metrics"

	"go.uber.org/zap"
)

// RunSync requests a Home Graph SYNC for every provisioned user and prints
// one status line per user to out. It returns the number of failed users.
func RunSync(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) (int, error) {
	if cfg.HomeGraphAPIKey == "" {
		return 0, errors.New("HOMEGRAPH_API_KEY must be set")
	}

	dir, err := directory.Load(cfg.UsersDirectory, cfg.DevicesDirectory, log.Named("directory"))
	if err != nil {
		return 0, fmt.Errorf("failed to load device directory: %w", err)
	}

	syncer, err := initializeSyncer(cfg, dir, metrics.NewNoopMetrics(), log)
	if err != nil {
		return 0, err
	}
	return syncer.SyncAll(ctx, out)
}
