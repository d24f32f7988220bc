// Package redact маскирует чувствительные значения перед записью в логи.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email оставляет первые две руны локальной части и домен: "fo***@example.com".
// Короткая локальная часть и некорректный адрес маскируются целиком.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	runes := []rune(local)
	if len(runes) > 2 {
		return string(runes[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Token возвращает короткий отпечаток токена (sha256, 8 hex-символов),
// по которому можно сопоставить записи логов, не раскрывая сам токен.
func Token(s string) string {
	if s == "" {
		return "[EMPTY_TOKEN]"
	}

	sum := sha256.Sum256([]byte(s))
	return "sha256:" + hex.EncodeToString(sum[:4])
}

// Password — всегда литерал.
func Password() string { return "[REDACTED_PASSWORD]" }
