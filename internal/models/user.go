package models

import (
	"time"

	"github.com/google/uuid"
)

// User - модель пользователя в системе.
// Пользователями управляет внешний сервис; здесь запись только читается.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Names        string
	Lastnames    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
