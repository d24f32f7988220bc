// apierrors стандартизирует ответы об ошибках HTTP API.
// На вход принимает ошибку сервиса сессий, на выход даёт:
//   - HTTP-статус;
//   - короткий стабильный код и безопасное сообщение без деталей хранилища.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-session-auth/internal/service"
)

// StatusClientClosedRequest — нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrValidation — тело запроса не разобрано или не прошло валидацию.
var ErrValidation = errors.New("validation failed")

// APIError — единый формат ошибки для клиентов.
// Code — стабильный машиночитаемый код.
// Message — безопасное человекочитаемое описание.
// RequestID — из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и тело ответа.
//
// Все отказы сессий (нет сессии, чужой/отозванный/истёкший/битый токен) дают 401
// с различимыми кодами. Сбои хранилища дают 500 без подробностей.
// err == nil — программная ошибка вызова, тоже 500.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)

	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

func classify(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, ErrValidation), errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusUnauthorized, "session_not_found", "session not found"
	case errors.Is(err, service.ErrTokenMismatch):
		return http.StatusUnauthorized, "token_mismatch", "refresh token does not match"
	case errors.Is(err, service.ErrTokenRevoked):
		return http.StatusUnauthorized, "token_revoked", "token revoked"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "token expired"
	case errors.Is(err, service.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid", "token invalid"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// WriteError пишет статус и тело ошибки, добавляя request_id из заголовка.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorMessage(w, r, err, "")
}

// WriteErrorMessage — как WriteError, но с уточнённым сообщением (например, списком полей).
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, err error, message string) {
	status, resp := ToHTTP(err)

	if message != "" {
		resp.Error.Message = message
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
