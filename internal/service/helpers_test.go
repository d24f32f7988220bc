package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/credentials"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
	"github.com/pribylovaa/go-session-auth/mocks"
)

const (
	testPassword = "Abcdef1!"
	testEmail    = "user@example.com"
	testDevice   = "5f0c7f5e-8a55-4a8e-9b59-6a4f1f6d2c11"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret-0123456789",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 720 * time.Hour,
		Issuer:          "session-auth",
		BcryptCost:      bcrypt.MinCost,
	}
}

// fixture собирает Service на мок-хранилище с настоящими Verifier/Signer и фейковыми часами.
type fixture struct {
	svc    *Service
	st     *mocks.MockStorage
	clk    *clockwork.FakeClock
	signer *tokens.Signer
	user   models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	clk := clockwork.NewFakeClockAt(epoch)
	cfg := testCfg()

	verifier, err := credentials.NewVerifier(st, cfg.BcryptCost)
	require.NoError(t, err)

	hash, err := verifier.Hash(testPassword)
	require.NoError(t, err)

	signer := tokens.NewSigner(cfg.JWTSecret, cfg.Issuer, cfg.AccessTokenTTL, clk)

	return &fixture{
		svc:    New(st, verifier, signer, clk, cfg),
		st:     st,
		clk:    clk,
		signer: signer,
		user: models.User{
			ID:           uuid.New(),
			Email:        testEmail,
			PasswordHash: hash,
			Names:        "Ada",
			Lastnames:    "Lovelace",
		},
	}
}

// userCopy — Verifier очищает PasswordHash у возвращённой записи, поэтому каждый вызов получает копию.
func (f *fixture) userCopy() *models.User {
	u := f.user
	return &u
}

func (f *fixture) activeSession(refresh string) *models.Session {
	return &models.Session{
		ID:               uuid.New(),
		UserID:           f.user.ID,
		DeviceID:         testDevice,
		RefreshTokenHash: tokens.HashRefresh(refresh),
		ExpiresAt:        epoch.Add(720 * time.Hour),
		CreatedAt:        epoch,
	}
}

// recorder — фейковый приёмник метрик.
type recorder struct {
	mu      sync.Mutex
	ops     map[string]int
	revoked map[string]int64
}

func newRecorder() *recorder {
	return &recorder{ops: map[string]int{}, revoked: map[string]int64{}}
}

func (r *recorder) ObserveOperation(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[operation+"/"+outcome]++
}

func (r *recorder) ObserveRevoked(reason string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[reason] += n
}

// memStorage — потокобезопасное хранилище в памяти для сценарных тестов.
type memStorage struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	sessions []models.Session

	// hook выполняется один раз после чтения ActiveSession, вне блокировки.
	hook func()
}

func newMemStorage(users ...models.User) *memStorage {
	m := &memStorage{users: map[uuid.UUID]models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memStorage) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return storage.ErrAlreadyExists
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStorage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (m *memStorage) PutSession(_ context.Context, s *models.Session) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	superseded := m.revokeLocked(s.UserID, s.DeviceID, s.CreatedAt)
	m.sessions = append(m.sessions, *s)
	return superseded, nil
}

// afterActive планирует hook на следующий вызов ActiveSession.
func (m *memStorage) afterActive(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

func (m *memStorage) ActiveSession(_ context.Context, userID uuid.UUID, deviceID string) (*models.Session, error) {
	m.mu.Lock()
	var found *models.Session
	for i := len(m.sessions) - 1; i >= 0; i-- {
		s := m.sessions[i]
		if s.UserID == userID && s.DeviceID == deviceID && !s.Revoked {
			found = &s
			break
		}
	}
	hook := m.hook
	m.hook = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}

	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

func (m *memStorage) RevokeSession(_ context.Context, sessionID uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		s := &m.sessions[i]
		if s.ID == sessionID && !s.Revoked {
			at := now
			s.Revoked, s.RevokedAt = true, &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memStorage) RevokeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.sessions {
		s := &m.sessions[i]
		if !s.Revoked && !s.ExpiresAt.After(now) {
			at := now
			s.Revoked, s.RevokedAt = true, &at
			n++
		}
	}
	return n, nil
}

func (m *memStorage) Close() {}

func (m *memStorage) revokeLocked(userID uuid.UUID, deviceID string, now time.Time) []uuid.UUID {
	var ids []uuid.UUID
	for i := range m.sessions {
		s := &m.sessions[i]
		if s.UserID == userID && s.DeviceID == deviceID && !s.Revoked {
			at := now
			s.Revoked, s.RevokedAt = true, &at
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func (m *memStorage) countActive(userID uuid.UUID, deviceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID && s.DeviceID == deviceID && !s.Revoked {
			n++
		}
	}
	return n
}

var _ storage.Storage = (*memStorage)(nil)

// memCache — RevocationCache в памяти, без TTL.
type memCache struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]time.Time
}

func newMemCache() *memCache {
	return &memCache{revoked: make(map[uuid.UUID]time.Time)}
}

func (c *memCache) MarkRevoked(_ context.Context, sessionID uuid.UUID, at time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.revoked[sessionID]; !ok {
		c.revoked[sessionID] = at
	}
	return nil
}

func (c *memCache) RevokedAt(_ context.Context, sessionID uuid.UUID) (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.revoked[sessionID]
	return at, ok, nil
}

func (c *memCache) Close() error { return nil }
