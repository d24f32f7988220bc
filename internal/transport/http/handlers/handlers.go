package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/apierrors"
)

// maxBodyBytes — предел размера JSON-тела запроса.
const maxBodyBytes = 1 << 16

// SessionService — операции жизненного цикла сессий, нужные HTTP-слою.
type SessionService interface {
	Login(ctx context.Context, email, password, deviceID string) (*models.LoginResult, error)
	Refresh(ctx context.Context, userID uuid.UUID, deviceID, refreshToken string) (*models.RefreshResult, error)
	Logout(ctx context.Context, userID uuid.UUID, deviceID, refreshToken string) error
}

// Handlers агрегирует зависимости HTTP-обработчиков.
type Handlers struct {
	svc      SessionService
	validate *validator.Validate
}

func New(svc SessionService) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В ошибках валидации используем имена полей из JSON.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{svc: svc, validate: v}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeAndValidate — строгий JSON-декодер (неизвестные поля запрещены) + валидация тегов.
// При ошибке сам пишет 400 и возвращает false.
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, value any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		apierrors.WriteErrorMessage(w, r, apierrors.ErrValidation, "malformed json body")
		return false
	}

	if err := h.validate.StructCtx(r.Context(), value); err != nil {
		apierrors.WriteErrorMessage(w, r, apierrors.ErrValidation, validationMessage(err))
		return false
	}

	return true
}

// validationMessage перечисляет поля, не прошедшие валидацию.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid argument"
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}

	return "invalid fields: " + strings.Join(fields, ", ")
}
