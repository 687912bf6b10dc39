package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/pkg/slogx"
)

// HousekeepingService deletes expired refresh and reset token rows on a
// fixed interval. Expired rows are already unusable; this keeps the tables
// from growing without bound.
type HousekeepingService struct {
	Store    store.Store
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// Start launches the background sweep loop. Call Stop to shut it down.
func (s *HousekeepingService) Start(ctx context.Context) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go func() {
		defer close(s.doneCh)

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it to finish.
func (s *HousekeepingService) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *HousekeepingService) sweep(ctx context.Context) {
	log := slogx.FromContext(ctx)

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		log.Error("housekeeping: delete expired refresh tokens", slog.Any("error", err))
	}
	if err := s.Store.ResetTokens().DeleteExpiredResetTokens(ctx); err != nil {
		log.Error("housekeeping: delete expired reset tokens", slog.Any("error", err))
	}
}
