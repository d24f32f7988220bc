package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
)

// Authenticate строго проверяет access-токен для защищённых ресурсов.
//
// Если подключён кэш отзывов, токен отозванной сессии (claim sid) отклоняется
// с ErrTokenRevoked. Недоступность Redis не блокирует запросы: проверка
// пропускается с предупреждением в логе.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (_ *tokens.Claims, err error) {
	const op = "service.Authenticate"

	defer func() { s.observe("authenticate", err) }()

	lg := log.From(ctx).With(slog.String("op", op))

	claims, err := s.signer.Validate(accessToken, tokens.ValidateOptions{})
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			lg.Debug("access_token_expired")
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		lg.Warn("access_token_invalid", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	if s.rcache == nil {
		return claims, nil
	}

	revokedAt, ok, err := s.rcache.RevokedAt(ctx, claims.SID())
	if err != nil {
		lg.Warn("revocation_lookup_failed", slog.String("err", err.Error()))
		return claims, nil
	}

	if ok {
		lg.Warn("access_token_revoked",
			slog.String("user_id", claims.UserID),
			slog.String("session_id", claims.SessionID),
			slog.Time("revoked_at", revokedAt),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	return claims, nil
}

// ClaimsForRefresh проверяет access-токен без учёта exp и возвращает его claims.
// Используется эндпоинтом refresh, чтобы узнать пару (user, device) у истёкшего токена.
func (s *Service) ClaimsForRefresh(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	const op = "service.ClaimsForRefresh"

	claims, err := s.signer.Validate(accessToken, tokens.ValidateOptions{IgnoreExpiration: true})
	if err != nil {
		log.From(ctx).Warn("access_token_invalid",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	return claims, nil
}
