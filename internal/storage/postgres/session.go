package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

const sessionColumns = `id, user_id, device_id, refresh_token_hash, expires_at, revoked, revoked_at, created_at`

// PutSession атомарно заменяет активную сессию пары (user_id, device_id)
// и возвращает id вытесненных сессий.
//
// В одной транзакции:
//  1. берётся транзакционная advisory-блокировка на пару — конкурентные
//     PutSession той же пары (в т.ч. из разных инстансов) выстраиваются в очередь;
//  2. все неотозванные строки пары помечаются revoked, revoked_at = session.CreatedAt;
//  3. вставляется новая неотозванная строка.
//
// Частичный уникальный индекс sessions_one_active_per_device страхует инвариант
// на уровне схемы; его нарушение возвращается как storage.ErrAlreadyExists.
func (s *Storage) PutSession(ctx context.Context, session *models.Session) ([]uuid.UUID, error) {
	const op = "storage.postgres.PutSession"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := lockDeviceTx(ctx, tx, session.UserID, session.DeviceID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	superseded, err := revokeActiveTx(ctx, tx, session.UserID, session.DeviceID, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions(id, user_id, device_id, refresh_token_hash, expires_at, revoked, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NULL, $6)
	`,
		session.ID,
		session.UserID,
		session.DeviceID,
		session.RefreshTokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return superseded, nil
}

// ActiveSession возвращает самую свежую неотозванную сессию пары.
func (s *Storage) ActiveSession(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Session, error) {
	const op = "storage.postgres.ActiveSession"

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND device_id = $2 AND revoked = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`

	var session models.Session
	err := s.db.QueryRow(ctx, query, userID, deviceID).Scan(
		&session.ID,
		&session.UserID,
		&session.DeviceID,
		&session.RefreshTokenHash,
		&session.ExpiresAt,
		&session.Revoked,
		&session.RevokedAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &session, nil
}

// RevokeSession помечает отозванной сессию sessionID, если она ещё активна.
// Возвращает:
//
//	(true, nil)  — сессия была активна и отозвана сейчас;
//	(false, nil) — сессия уже отозвана (например, вытеснена новым входом) или не существует.
//
// Условие revoked = FALSE и адресация по id делают проверку и отзыв одной
// атомарной операцией: вытесненная сессия не может отозвать пришедшую ей на смену.
func (s *Storage) RevokeSession(ctx context.Context, sessionID uuid.UUID, now time.Time) (bool, error) {
	const op = "storage.postgres.RevokeSession"

	cmdTag, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET revoked = TRUE, revoked_at = $2
		WHERE id = $1 AND revoked = FALSE
	`, sessionID, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

// RevokeExpiredSessions отзывает истёкшие активные сессии; строки не удаляются.
func (s *Storage) RevokeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.RevokeExpiredSessions"

	query := `
		UPDATE sessions
		SET revoked = TRUE, revoked_at = $1
		WHERE revoked = FALSE AND expires_at <= $1
	`

	cmdTag, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

func lockDeviceTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, deviceID string) error {
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`,
		userID.String(), deviceID,
	)
	return err
}

func revokeActiveTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, deviceID string, now time.Time) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		UPDATE sessions
		SET revoked = TRUE, revoked_at = $3
		WHERE user_id = $1 AND device_id = $2 AND revoked = FALSE
		RETURNING id
	`, userID, deviceID, now)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
