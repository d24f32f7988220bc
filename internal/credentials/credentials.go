// credentials проверяет пару email/пароль по bcrypt-хэшам из хранилища пользователей.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

// ErrInvalidCredentials — неизвестный email или неверный пароль.
// Оба случая неразличимы для вызывающего.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserFinder — часть хранилища, нужная для проверки учётных данных.
type UserFinder interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Verifier проверяет учётные данные пользователей.
type Verifier struct {
	users UserFinder
	cost  int
	// dummy — хэш, с которым сравнивается пароль для неизвестного email,
	// чтобы время ответа не выдавало существование пользователя.
	dummy []byte
}

// NewVerifier создаёт Verifier с заданной стоимостью bcrypt.
func NewVerifier(users UserFinder, cost int) (*Verifier, error) {
	const op = "credentials.NewVerifier"

	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Verifier{users: users, cost: cost, dummy: dummy}, nil
}

// Verify возвращает пользователя, если пароль совпадает с сохранённым хэшем.
// У возвращённого пользователя PasswordHash очищен.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	const op = "credentials.Verify"

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := v.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(password))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user.PasswordHash = ""

	return user, nil
}

// Hash хэширует пароль с настроенной стоимостью bcrypt.
func (v *Verifier) Hash(password string) (string, error) {
	return HashPassword(password, v.cost)
}

// HashPassword хэширует пароль bcrypt-ом с указанной стоимостью.
func HashPassword(password string, cost int) (string, error) {
	const op = "credentials.HashPassword"

	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// NormalizeEmail обрезает пробелы и приводит email к нижнему регистру.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
