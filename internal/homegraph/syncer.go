package homegraph

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/logger"

	"go.uber.org/zap"
)

// UserLister lists the provisioned user ids.
type UserLister interface {
	ListUserIDs() ([]string, error)
}

// SyncRequester is implemented by Client.
type SyncRequester interface {
	RequestSync(ctx context.Context, userID string) error
}

// Syncer requests a SYNC for every provisioned user.
type Syncer struct {
	users  UserLister
	client SyncRequester
	log    *zap.Logger
}

func NewSyncer(users UserLister, client SyncRequester, log *zap.Logger) *Syncer {
	return &Syncer{users: users, client: client, log: log}
}

// SyncAll requests a sync for each user in turn and writes one progress
// line per user to out. It returns the number of users that failed.
func (s *Syncer) SyncAll(ctx context.Context, out io.Writer) (int, error) {
	if out == nil {
		out = io.Discard
	}

	users, err := s.users.ListUserIDs()
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	failed := 0
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return failed, err
		}

		fmt.Fprintf(out, "User: %s ... ", userID)
		if err := s.client.RequestSync(ctx, userID); err != nil {
			failed++
			fmt.Fprintf(out, "ERROR\n%v\n", err)
			s.log.Warn("request sync failed", logger.User(userID), zap.Error(err))
			continue
		}
		fmt.Fprintln(out, "OK")
		s.log.Info("request sync sent", logger.User(userID))
	}
	return failed, nil
}

// Run calls SyncAll every interval until ctx is done.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			failed, err := s.SyncAll(ctx, nil)
			if err != nil && ctx.Err() == nil {
				s.log.Error("periodic request sync failed", zap.Error(err))
				continue
			}
			if failed > 0 {
				s.log.Warn("periodic request sync incomplete", zap.Int("failed", failed))
			}
		}
	}
}
