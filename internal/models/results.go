package models

import "time"

// LoginResult — результат успешного входа.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — случайный секрет; возвращается клиенту один раз,
//     на сервере хранится только его хэш;
//   - *ExpiresAt — моменты истечения (UTC, секундная точность).
type LoginResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshResult — результат обновления access-токена.
// Refresh-токен при обновлении не ротируется.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
}
