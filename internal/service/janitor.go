package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
)

// RevokeExpired отзывает все истёкшие активные сессии. Строки остаются для аудита.
func (s *Service) RevokeExpired(ctx context.Context) (int64, error) {
	const op = "service.RevokeExpired"

	n, err := s.storage.RevokeExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	s.observeRevoked("janitor", n)

	return n, nil
}

// RunJanitor периодически вызывает RevokeExpired до отмены ctx.
// При period <= 0 сразу возвращается.
func (s *Service) RunJanitor(ctx context.Context, period time.Duration) {
	if period <= 0 {
		return
	}

	lg := log.From(ctx)

	t := s.clock.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			n, err := s.RevokeExpired(ctx)
			if err != nil {
				lg.Error("session_janitor_failed", slog.String("err", err.Error()))
				continue
			}

			if n > 0 {
				lg.Info("session_janitor_revoked", slog.Int64("count", n))
			}
		}
	}
}
