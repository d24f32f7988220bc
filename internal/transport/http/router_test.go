package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/apierrors"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/handlers"
)

const deviceID = "5f0c7f5e-8a55-4a8e-9b59-6a4f1f6d2c11"

var (
	userID = uuid.New()
	expAt  = time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
)

// fakeService — управляемая подмена сервиса сессий.
type fakeService struct {
	login   func(email, password, deviceID string) (*models.LoginResult, error)
	refresh func(uid uuid.UUID, deviceID, rt string) (*models.RefreshResult, error)
	logout  func(uid uuid.UUID, deviceID, rt string) error
}

func (f *fakeService) Login(_ context.Context, email, password, deviceID string) (*models.LoginResult, error) {
	return f.login(email, password, deviceID)
}

func (f *fakeService) Refresh(_ context.Context, uid uuid.UUID, deviceID, rt string) (*models.RefreshResult, error) {
	return f.refresh(uid, deviceID, rt)
}

func (f *fakeService) Logout(_ context.Context, uid uuid.UUID, deviceID, rt string) error {
	return f.logout(uid, deviceID, rt)
}

// Токены: "valid" проходит обе проверки, "expired" — только мягкую.
func (f *fakeService) Authenticate(_ context.Context, token string) (*tokens.Claims, error) {
	if token == "valid" {
		return testClaims(), nil
	}
	if token == "expired" {
		return nil, service.ErrTokenExpired
	}
	return nil, service.ErrTokenInvalid
}

func (f *fakeService) ClaimsForRefresh(_ context.Context, token string) (*tokens.Claims, error) {
	if token == "valid" || token == "expired" {
		return testClaims(), nil
	}
	return nil, service.ErrTokenInvalid
}

func testClaims() *tokens.Claims {
	return &tokens.Claims{UserID: userID.String(), DeviceID: deviceID, Email: "user@example.com", Names: "Ada"}
}

func newTestRouter(svc *fakeService) http.Handler {
	return NewRouter(svc, Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout: time.Second,
	})
}

func do(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errCode(t *testing.T, rr *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()
	var env apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error
}

func TestLogin_OK(t *testing.T) {
	svc := &fakeService{
		login: func(email, password, dev string) (*models.LoginResult, error) {
			require.Equal(t, "user@example.com", email)
			require.Equal(t, "Abcdef1!", password)
			require.Equal(t, deviceID, dev)
			return &models.LoginResult{
				AccessToken:      "A1",
				AccessExpiresAt:  expAt,
				RefreshToken:     "R1",
				RefreshExpiresAt: expAt.Add(720 * time.Hour),
			}, nil
		},
	}

	rr := do(t, newTestRouter(svc), http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email: "user@example.com", Password: "Abcdef1!", DeviceID: deviceID,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	var out handlers.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, "A1", out.Token)
	require.Equal(t, expAt.Unix(), out.ExpiresAt)
	require.Equal(t, "R1", out.RefreshToken)
	require.Equal(t, expAt.Add(720*time.Hour).Unix(), out.RefreshExpiresAt)
}

func TestLogin_Validation(t *testing.T) {
	svc := &fakeService{
		login: func(string, string, string) (*models.LoginResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	h := newTestRouter(svc)

	tcs := []struct {
		name  string
		body  any
		field string
	}{
		{"bad email", handlers.LoginRequest{Email: "nope", Password: "Abcdef1!", DeviceID: deviceID}, "email"},
		{"short password", handlers.LoginRequest{Email: "u@e.com", Password: "short", DeviceID: deviceID}, "password"},
		{"device not uuid", handlers.LoginRequest{Email: "u@e.com", Password: "Abcdef1!", DeviceID: "phone"}, "deviceId"},
		{"unknown field", `{"email":"u@e.com","password":"Abcdef1!","deviceId":"` + deviceID + `","x":1}`, ""},
		{"malformed", `{"email":`, ""},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/auth/login", "", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			e := errCode(t, rr)
			require.Equal(t, "invalid_argument", e.Code)
			require.NotEmpty(t, e.RequestID)
			if tc.field != "" {
				require.Contains(t, e.Message, tc.field)
			}
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &fakeService{
		login: func(string, string, string) (*models.LoginResult, error) {
			return nil, service.ErrInvalidCredentials
		},
	}

	rr := do(t, newTestRouter(svc), http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email: "user@example.com", Password: "Abcdef1!", DeviceID: deviceID,
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid_credentials", errCode(t, rr).Code)
}

func TestRefresh_AcceptsExpiredAccessToken(t *testing.T) {
	svc := &fakeService{
		refresh: func(uid uuid.UUID, dev, rt string) (*models.RefreshResult, error) {
			require.Equal(t, userID, uid)
			require.Equal(t, deviceID, dev)
			require.Equal(t, "R1", rt)
			return &models.RefreshResult{AccessToken: "A2", AccessExpiresAt: expAt}, nil
		},
	}

	rr := do(t, newTestRouter(svc), http.MethodPost, "/auth/refresh", "expired", handlers.RefreshTokenRequest{RefreshToken: "R1"})
	require.Equal(t, http.StatusOK, rr.Code)

	var out handlers.RefreshResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, "A2", out.Token)
	require.Equal(t, expAt.Unix(), out.ExpiresAt)
}

func TestRefresh_ErrorCodes(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code string
	}{
		{service.ErrSessionNotFound, "session_not_found"},
		{service.ErrTokenMismatch, "token_mismatch"},
		{service.ErrTokenRevoked, "token_revoked"},
		{service.ErrTokenExpired, "token_expired"},
	} {
		t.Run(tc.code, func(t *testing.T) {
			svc := &fakeService{
				refresh: func(uuid.UUID, string, string) (*models.RefreshResult, error) { return nil, tc.err },
			}

			rr := do(t, newTestRouter(svc), http.MethodPost, "/auth/refresh", "valid", handlers.RefreshTokenRequest{RefreshToken: "R1"})
			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.Equal(t, tc.code, errCode(t, rr).Code)
		})
	}
}

func TestRefresh_MissingOrBadBearer(t *testing.T) {
	h := newTestRouter(&fakeService{})

	rr := do(t, h, http.MethodPost, "/auth/refresh", "", handlers.RefreshTokenRequest{RefreshToken: "R1"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "token_invalid", errCode(t, rr).Code)

	rr = do(t, h, http.MethodPost, "/auth/refresh", "forged", handlers.RefreshTokenRequest{RefreshToken: "R1"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "token_invalid", errCode(t, rr).Code)
}

func TestLogout(t *testing.T) {
	var called bool
	svc := &fakeService{
		logout: func(uid uuid.UUID, dev, rt string) error {
			called = true
			require.Equal(t, userID, uid)
			require.Equal(t, "R1", rt)
			return nil
		},
	}
	h := newTestRouter(svc)

	rr := do(t, h, http.MethodPost, "/auth/logout", "valid", handlers.RefreshTokenRequest{RefreshToken: "R1"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)

	// Строгая проверка: истёкший access-токен не годится для выхода.
	called = false
	rr = do(t, h, http.MethodPost, "/auth/logout", "expired", handlers.RefreshTokenRequest{RefreshToken: "R1"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "token_expired", errCode(t, rr).Code)
	require.False(t, called)

	rr = do(t, h, http.MethodPost, "/auth/logout", "valid", handlers.RefreshTokenRequest{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogout_InternalErrorHidesDetails(t *testing.T) {
	svc := &fakeService{
		logout: func(uuid.UUID, string, string) error {
			return service.ErrInternalStore
		},
	}

	rr := do(t, newTestRouter(svc), http.MethodPost, "/auth/logout", "valid", handlers.RefreshTokenRequest{RefreshToken: "R1"})
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	e := errCode(t, rr)
	require.Equal(t, "internal", e.Code)
	require.Equal(t, "internal error", e.Message)
}

func TestMe(t *testing.T) {
	h := newTestRouter(&fakeService{})

	rr := do(t, h, http.MethodGet, "/auth/me", "valid", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var out handlers.MeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, userID.String(), out.UserID)
	require.Equal(t, deviceID, out.DeviceID)
	require.Equal(t, "Ada", out.Names)

	rr = do(t, h, http.MethodGet, "/auth/me", "expired", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	ready := false
	h := NewRouter(&fakeService{}, Options{
		Ready:   func(context.Context) bool { return ready },
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	})

	rr := do(t, h, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	ready = true
	rr = do(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.HasPrefix(rr.Body.String(), "# metrics"))
}
