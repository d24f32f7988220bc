package models

import (
	"time"

	"github.com/google/uuid"
)

// Session - серверная запись сессии устройства.
//
// Описание:
//   - идентичность сессии - пара (UserID, DeviceID);
//   - исторических строк на пару может быть несколько, но не отозванной
//     (Revoked == false) в любой момент времени - не более одной;
//   - RefreshTokenHash - base64url(sha256(refresh)); сам refresh-токен не хранится;
//   - строки никогда не удаляются физически (аудит).
type Session struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	DeviceID         string
	RefreshTokenHash string
	ExpiresAt        time.Time
	Revoked          bool
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// Expired сообщает, истёк ли срок действия сессии на момент now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
