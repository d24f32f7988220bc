package handlers

import "github.com/pribylovaa/go-session-auth/internal/models"

// LoginRequest — тело POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	DeviceID string `json:"deviceId" validate:"required,uuid"`
}

// RefreshTokenRequest — тело POST /auth/refresh и POST /auth/logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,max=256"`
}

// LoginResponse — моменты истечения в unix-секундах.
type LoginResponse struct {
	Token            string `json:"token"`
	ExpiresAt        int64  `json:"expiresAt"`
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresAt int64  `json:"refreshExpiresAt"`
}

// RefreshResponse — новый access-токен.
type RefreshResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// MessageResponse — простое подтверждение.
type MessageResponse struct {
	Message string `json:"message"`
}

// MeResponse — данные из claims проверенного access-токена.
type MeResponse struct {
	UserID    string `json:"userId"`
	DeviceID  string `json:"deviceId"`
	Email     string `json:"email"`
	Names     string `json:"names"`
	Lastnames string `json:"lastnames"`
	ExpiresAt int64  `json:"expiresAt"`
}

func loginFromResult(r *models.LoginResult) LoginResponse {
	return LoginResponse{
		Token:            r.AccessToken,
		ExpiresAt:        r.AccessExpiresAt.Unix(),
		RefreshToken:     r.RefreshToken,
		RefreshExpiresAt: r.RefreshExpiresAt.Unix(),
	}
}

func refreshFromResult(r *models.RefreshResult) RefreshResponse {
	return RefreshResponse{
		Token:     r.AccessToken,
		ExpiresAt: r.AccessExpiresAt.Unix(),
	}
}
