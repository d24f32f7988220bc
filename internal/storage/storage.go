package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/активная сессия).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email, активная сессия устройства).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionStorage выполняет операции над сессиями устройств.
//
// Инвариант: для пары (userID, deviceID) в хранилище не более одной
// неотозванной сессии. Реализация обязана обеспечивать его сама
// (транзакция/блокировка на стороне БД), без внутрипроцессных мьютексов.
type SessionStorage interface {
	// PutSession атомарно отзывает активную сессию пары и вставляет новую.
	// Возвращает id вытесненных сессий.
	PutSession(ctx context.Context, session *models.Session) ([]uuid.UUID, error)
	// ActiveSession возвращает самую свежую неотозванную сессию пары или ErrNotFound.
	ActiveSession(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Session, error)
	// RevokeSession отзывает конкретную сессию по id, если она ещё активна.
	// Идемпотентна: (false, nil), если сессия уже отозвана (в т.ч. вытеснена
	// новым входом) или не существует. Другие сессии пары не затрагиваются.
	RevokeSession(ctx context.Context, sessionID uuid.UUID, now time.Time) (bool, error)
	// RevokeExpiredSessions отзывает все истёкшие, но ещё активные сессии.
	RevokeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	SessionStorage
	Close()
}
