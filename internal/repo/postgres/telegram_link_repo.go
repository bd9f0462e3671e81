package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrLinkCodeNotFound = errors.New("telegram link code not found")
	ErrLinkCodeExpired  = errors.New("telegram link code expired")
	ErrLinkCodeUsed     = errors.New("telegram link code already used")
)

type TelegramLinkRepo struct {
	pool *pgxpool.Pool
}

func NewTelegramLinkRepo(pool *pgxpool.Pool) *TelegramLinkRepo {
	return &TelegramLinkRepo{pool: pool}
}

func (r *TelegramLinkRepo) Create(ctx context.Context, code string, userID int64, expiresAt time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" || userID <= 0 {
		return fmt.Errorf("invalid link code payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO telegram_link_codes (code, user_id, expires_at)
VALUES ($1, $2, $3)
`, code, userID, expiresAt.UTC()); err != nil {
		return fmt.Errorf("create telegram link code: %w", err)
	}

	return nil
}

// Consume marks the code used and binds the chat to its owner in one
// transaction. A second consume of the same code fails with
// ErrLinkCodeUsed.
func (r *TelegramLinkRepo) Consume(ctx context.Context, code string, chatID int64, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" || chatID == 0 {
		return 0, fmt.Errorf("invalid link consume payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var userID int64
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		var (
			expiresAt time.Time
			usedAt    *time.Time
		)
		err := tx.QueryRow(txCtx, `
SELECT user_id, expires_at, used_at
FROM telegram_link_codes
WHERE code = $1
FOR UPDATE
`, code).Scan(&userID, &expiresAt, &usedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLinkCodeNotFound
			}
			return fmt.Errorf("lock telegram link code: %w", err)
		}

		if usedAt != nil {
			return ErrLinkCodeUsed
		}
		if !expiresAt.After(now) {
			return ErrLinkCodeExpired
		}

		if _, err := tx.Exec(txCtx, `
UPDATE telegram_link_codes
SET used_at = $2
WHERE code = $1
`, code, now.UTC()); err != nil {
			return fmt.Errorf("mark telegram link code used: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
UPDATE users
SET telegram_chat_id = $2, updated_at = NOW()
WHERE id = $1
`, userID, chatID); err != nil {
			return fmt.Errorf("bind telegram chat to user: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return userID, nil
}

func (r *TelegramLinkRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM telegram_link_codes
WHERE expires_at <= $1
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired telegram link codes: %w", err)
	}

	return tag.RowsAffected(), nil
}
