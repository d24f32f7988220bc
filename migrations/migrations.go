// Package migrations хранит SQL-миграции схемы и применяет их через golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// FS содержит *.sql файлы миграций (NNN_name.up.sql / NNN_name.down.sql).
//
//go:embed *.sql
var FS embed.FS

// ErrNoChange — схема уже в целевом состоянии.
var ErrNoChange = migrate.ErrNoChange

var (
	// ErrEmptyDSN — строка подключения не задана.
	ErrEmptyDSN = errors.New("database url is empty")
	// ErrBadDirection — направление миграции не up/down.
	ErrBadDirection = errors.New("direction must be up or down")
)

// Run применяет миграции в направлении direction ("up" или "down").
// Отсутствие изменений ошибкой не считается.
func Run(dsn, direction string) error {
	const op = "migrations.Run"

	if dsn == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyDSN)
	}

	if direction != "up" && direction != "down" {
		return fmt.Errorf("%s: %w: %q", op, ErrBadDirection, direction)
	}

	src, err := iofs.New(FS, ".")
	if err != nil {
		return fmt.Errorf("%s: source: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
