// service содержит жизненный цикл сессий устройств: вход, обновление
// access-токена по refresh-токену и выход.
//
// Основные аспекты:
//   - на пару (userID, deviceID) в хранилище не более одной активной сессии;
//     атомарность замены обеспечивает хранилище, Service внутрипроцессных
//     блокировок не держит и безопасен для конкурентного использования;
//   - время берётся только из внедрённого clockwork.Clock;
//   - ошибки возвращаются как сентинелы ниже, транспорт маппит их через errors.Is.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pribylovaa/go-session-auth/internal/cache"
	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
)

var (
	// ErrInvalidCredentials — неизвестный email или неверный пароль. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound — у пары (user, device) нет активной сессии. HTTP 401.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTokenMismatch — refresh-токен не совпадает с хэшем активной сессии. HTTP 401.
	ErrTokenMismatch = errors.New("refresh token mismatch")

	// ErrTokenRevoked — сессия отозвана. HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrTokenExpired — срок сессии (или access-токена в строгом режиме) истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid — access-токен не прошёл проверку подписи/формата. HTTP 401.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInternalStore — сбой хранилища или криптографии; детали только в логах. HTTP 500.
	ErrInternalStore = errors.New("internal store error")

	// ErrInvalidArgument — пустой deviceID или нулевой userID. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")
)

// CredentialVerifier проверяет пару email/пароль.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*models.User, error)
}

// TokenSigner выпускает и проверяет access-токены.
type TokenSigner interface {
	IssueAccess(id tokens.Identity) (string, time.Time, error)
	Validate(token string, opts tokens.ValidateOptions) (*tokens.Claims, error)
}

// Recorder принимает метрики операций (реализуется internal/metrics).
type Recorder interface {
	ObserveOperation(operation, outcome string)
	ObserveRevoked(reason string, n int64)
}

// Service реализует Login, Refresh и Logout.
type Service struct {
	storage  storage.Storage
	verifier CredentialVerifier
	signer   TokenSigner
	clock    clockwork.Clock
	cfg      config.AuthConfig

	rcache  cache.RevocationCache // nil, если Redis не сконфигурирован
	metrics Recorder              // nil — метрики не пишутся
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, verifier CredentialVerifier, signer TokenSigner, clock clockwork.Clock, cfg config.AuthConfig) *Service {
	return &Service{
		storage:  st,
		verifier: verifier,
		signer:   signer,
		clock:    clock,
		cfg:      cfg,
	}
}

// SetRevocationCache устанавливает кэш отзывов (опционально).
func (s *Service) SetRevocationCache(c cache.RevocationCache) {
	s.rcache = c
}

// SetMetrics устанавливает приёмник метрик (опционально).
func (s *Service) SetMetrics(m Recorder) {
	s.metrics = m
}

// Code возвращает стабильный код ошибки для транспорта и метрик.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrTokenMismatch):
		return "token_mismatch"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	default:
		return "internal"
	}
}

func (s *Service) observe(operation string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, Code(err))
	}
}

func (s *Service) observeRevoked(reason string, n int64) {
	if s.metrics != nil {
		s.metrics.ObserveRevoked(reason, n)
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
