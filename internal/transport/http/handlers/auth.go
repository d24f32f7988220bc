package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/apierrors"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/middleware"
)

// Login — POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if !h.decodeAndValidate(w, r, &in) {
		return
	}

	res, err := h.svc.Login(r.Context(), in.Email, in.Password, in.DeviceID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginFromResult(res))
}

// Refresh — POST /auth/refresh. Пара (user, device) берётся из claims
// access-токена, проверенного без учёта exp.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrAbort(w, r)
	if !ok {
		return
	}

	var in RefreshTokenRequest
	if !h.decodeAndValidate(w, r, &in) {
		return
	}

	res, err := h.svc.Refresh(r.Context(), claims.UID(), claims.DeviceID, in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshFromResult(res))
}

// Logout — POST /auth/logout (строгая проверка access-токена).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrAbort(w, r)
	if !ok {
		return
	}

	var in RefreshTokenRequest
	if !h.decodeAndValidate(w, r, &in) {
		return
	}

	if err := h.svc.Logout(r.Context(), claims.UID(), claims.DeviceID, in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// Me — GET /auth/me: claims проверенного access-токена.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrAbort(w, r)
	if !ok {
		return
	}

	var exp int64
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}

	writeJSON(w, http.StatusOK, MeResponse{
		UserID:    claims.UserID,
		DeviceID:  claims.DeviceID,
		Email:     claims.Email,
		Names:     claims.Names,
		Lastnames: claims.Lastnames,
		ExpiresAt: exp,
	})
}

func claimsOrAbort(w http.ResponseWriter, r *http.Request) (*tokens.Claims, bool) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrTokenInvalid)
		return nil, false
	}

	return claims, true
}
