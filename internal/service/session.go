package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/credentials"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
)

// Login проверяет учётные данные и открывает сессию устройства.
// Предыдущая активная сессия той же пары отзывается в одной транзакции с созданием новой.
func (s *Service) Login(ctx context.Context, email, password, deviceID string) (_ *models.LoginResult, err error) {
	const op = "service.session.Login"

	defer func() { s.observe("login", err) }()

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%s: %w: empty device id", op, ErrInvalidArgument)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("device_id", deviceID))

	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			lg.Warn("login_invalid_credentials", slog.String("email", redact.Email(email)))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("login_user_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	sessionID := uuid.New()
	lg = lg.With(slog.String("user_id", user.ID.String()), slog.String("session_id", sessionID.String()))
	now := s.now()

	access, accessExp, err := s.signer.IssueAccess(identity(user, sessionID, deviceID))
	if err != nil {
		lg.Error("access_token_sign_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	plain, hash, err := tokens.NewRefreshToken()
	if err != nil {
		lg.Error("refresh_rand_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	session := &models.Session{
		ID:               sessionID,
		UserID:           user.ID,
		DeviceID:         deviceID,
		RefreshTokenHash: hash,
		ExpiresAt:        now.Add(s.cfg.RefreshTokenTTL).Truncate(time.Second),
		CreatedAt:        now,
	}

	superseded, err := s.storage.PutSession(ctx, session)
	if err != nil {
		lg.Error("put_session_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	// Access-токены вытесненных сессий устройства больше не принимаются.
	s.observeRevoked("superseded", int64(len(superseded)))
	for _, id := range superseded {
		s.markRevoked(ctx, id, now)
	}

	lg.Info("login_ok")

	return &models.LoginResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     plain,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

// Refresh выпускает новый access-токен по refresh-токену активной сессии.
//
// Порядок проверок: наличие активной сессии, совпадение хэша, отзыв, срок.
// Истёкшая сессия отзывается до возврата ErrTokenExpired.
// Refresh-токен не ротируется.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID, deviceID, refreshToken string) (_ *models.RefreshResult, err error) {
	const op = "service.session.Refresh"

	defer func() { s.observe("refresh", err) }()

	lg := log.From(ctx).With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.String("device_id", deviceID),
	)

	session, err := s.checkSession(ctx, lg, op, userID, deviceID, refreshToken)
	if err != nil {
		return nil, err
	}

	now := s.now()

	// ActiveSession отдаёт только неотозванные строки; проверка на случай иной реализации хранилища.
	if session.Revoked {
		lg.Warn("refresh_session_revoked")
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if session.Expired(now) {
		revoked, err := s.storage.RevokeSession(ctx, session.ID, now)
		if err != nil {
			lg.Error("revoke_expired_session_failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
		}

		if revoked {
			s.observeRevoked("expired", 1)
			s.markRevoked(ctx, session.ID, now)
		}

		lg.Warn("refresh_session_expired")
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_user_not_found")
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}

		lg.Error("refresh_user_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	access, accessExp, err := s.signer.IssueAccess(identity(user, session.ID, deviceID))
	if err != nil {
		lg.Error("access_token_sign_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	lg.Debug("refresh_ok")

	return &models.RefreshResult{
		AccessToken:     access,
		AccessExpiresAt: accessExp,
	}, nil
}

// Logout отзывает сессию, чей refresh-токен предъявлен. Отзывается именно
// проверенная сессия: если её уже вытеснил новый вход, новая сессия не затрагивается.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, deviceID, refreshToken string) (err error) {
	const op = "service.session.Logout"

	defer func() { s.observe("logout", err) }()

	lg := log.From(ctx).With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.String("device_id", deviceID),
	)

	session, err := s.checkSession(ctx, lg, op, userID, deviceID, refreshToken)
	if err != nil {
		return err
	}

	now := s.now()

	revoked, err := s.storage.RevokeSession(ctx, session.ID, now)
	if err != nil {
		lg.Error("revoke_session_failed", slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	// Сессию успел отозвать конкурентный запрос или вытеснить новый вход.
	if !revoked {
		lg.Warn("logout_session_gone")
		return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}

	s.observeRevoked("logout", 1)
	s.markRevoked(ctx, session.ID, now)

	lg.Info("logout_ok")

	return nil
}

// checkSession загружает активную сессию пары и сверяет refresh-токен с её хэшем.
func (s *Service) checkSession(ctx context.Context, lg *slog.Logger, op string, userID uuid.UUID, deviceID, refreshToken string) (*models.Session, error) {
	if userID == uuid.Nil || deviceID == "" {
		return nil, fmt.Errorf("%s: %w: empty user or device id", op, ErrInvalidArgument)
	}

	session, err := s.storage.ActiveSession(ctx, userID, deviceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("session_not_found")
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}

		lg.Error("session_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternalStore, err)
	}

	if !tokens.RefreshMatches(refreshToken, session.RefreshTokenHash) {
		lg.Warn("refresh_token_mismatch", slog.String("presented", redact.Token(refreshToken)))
		return nil, fmt.Errorf("%s: %w", op, ErrTokenMismatch)
	}

	return session, nil
}

// markRevoked best-effort записывает отметку отзыва в кэш; ошибка Redis только логируется.
func (s *Service) markRevoked(ctx context.Context, sessionID uuid.UUID, at time.Time) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.MarkRevoked(ctx, sessionID, at, s.cfg.AccessTokenTTL); err != nil {
		log.From(ctx).Warn("revocation_mark_failed",
			slog.String("session_id", sessionID.String()),
			slog.String("err", err.Error()),
		)
	}
}

func identity(u *models.User, sessionID uuid.UUID, deviceID string) tokens.Identity {
	return tokens.Identity{
		UserID:    u.ID,
		SessionID: sessionID,
		DeviceID:  deviceID,
		Email:     u.Email,
		Names:     u.Names,
		Lastnames: u.Lastnames,
	}
}
