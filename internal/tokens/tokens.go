// tokens выпускает и проверяет подписанные access-токены (JWT HS256)
// и генерирует непрозрачные refresh-токены.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// TypeAccess — значение claim "type" у access-токенов.
const TypeAccess = "access"

// refreshBytes — энтропия refresh-токена.
const refreshBytes = 32

var (
	// ErrTokenInvalid — подпись, алгоритм, issuer, тип или формат claims неверны.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired — срок действия истёк (только строгий режим).
	// Ошибка истечения также матчится с ErrTokenInvalid.
	ErrTokenExpired = errors.New("token expired")
)

// Claims — плоские claims access-токена.
type Claims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sid"`
	DeviceID  string `json:"deviceId"`
	Email     string `json:"email"`
	Names     string `json:"names"`
	Lastnames string `json:"lastnames"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// UID возвращает UserID в виде uuid.
func (c *Claims) UID() uuid.UUID {
	id, _ := uuid.Parse(c.UserID)
	return id
}

// SID возвращает SessionID в виде uuid.
func (c *Claims) SID() uuid.UUID {
	id, _ := uuid.Parse(c.SessionID)
	return id
}

// Identity — данные, из которых собираются claims.
type Identity struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	DeviceID  string
	Email     string
	Names     string
	Lastnames string
}

// ValidateOptions управляет строгостью проверки.
type ValidateOptions struct {
	// IgnoreExpiration пропускает только проверку exp; подпись, issuer и type проверяются всегда.
	IgnoreExpiration bool
}

// Signer выпускает и проверяет access-токены.
type Signer struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	clock   clockwork.Clock
	strict  *jwt.Parser
	lenient *jwt.Parser
}

// NewSigner создаёт Signer. clock задаёт время выпуска и проверки exp.
func NewSigner(secret, issuer string, ttl time.Duration, clock clockwork.Clock) *Signer {
	methods := jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})

	return &Signer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		clock:  clock,
		strict: jwt.NewParser(
			methods,
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock.Now),
		),
		lenient: jwt.NewParser(
			methods,
			jwt.WithoutClaimsValidation(),
		),
	}
}

// TTL возвращает время жизни access-токена.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// IssueAccess подписывает access-токен для id.
// Возвращает токен и момент истечения с секундной точностью.
func (s *Signer) IssueAccess(id Identity) (string, time.Time, error) {
	const op = "tokens.IssueAccess"

	now := s.clock.Now().UTC()
	exp := jwt.NewNumericDate(now.Add(s.ttl))

	claims := Claims{
		UserID:    id.UserID.String(),
		SessionID: id.SessionID.String(),
		DeviceID:  id.DeviceID,
		Email:     id.Email,
		Names:     id.Names,
		Lastnames: id.Lastnames,
		Type:      TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			ExpiresAt: exp,
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp.Time.UTC(), nil
}

// Validate проверяет токен и возвращает его claims.
func (s *Signer) Validate(token string, opts ValidateOptions) (*Claims, error) {
	const op = "tokens.Validate"

	parser := s.strict
	if opts.IgnoreExpiration {
		parser = s.lenient
	}

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenInvalid, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w: %v", op, ErrTokenInvalid, err)
	}

	// В мягком режиме валидация claims выключена целиком, issuer сверяем вручную.
	if claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%s: %w: issuer mismatch", op, ErrTokenInvalid)
	}

	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%s: %w: unexpected type %q", op, ErrTokenInvalid, claims.Type)
	}

	if _, err := uuid.Parse(claims.UserID); err != nil || claims.DeviceID == "" {
		return nil, fmt.Errorf("%s: %w: bad subject", op, ErrTokenInvalid)
	}

	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return nil, fmt.Errorf("%s: %w: bad session id", op, ErrTokenInvalid)
	}

	return &claims, nil
}

func (s *Signer) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}

	return s.secret, nil
}

// NewRefreshToken возвращает случайный refresh-токен (base64url без паддинга) и его хэш.
func NewRefreshToken() (plain, hash string, err error) {
	const op = "tokens.NewRefreshToken"

	b := make([]byte, refreshBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	plain = base64.RawURLEncoding.EncodeToString(b)

	return plain, HashRefresh(plain), nil
}

// HashRefresh возвращает base64url(sha256(plain)); в хранилище попадает только он.
func HashRefresh(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshMatches сравнивает предъявленный токен с сохранённым хэшем за постоянное время.
func RefreshMatches(plain, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashRefresh(plain)), []byte(storedHash)) == 1
}
