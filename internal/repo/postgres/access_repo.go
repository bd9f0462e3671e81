package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

var (
	ErrAccessNotFound = errors.New("course access not found")
	ErrAccessExists   = errors.New("active course access already exists")
)

type AccessRepo struct {
	pool *pgxpool.Pool
}

func NewAccessRepo(pool *pgxpool.Pool) *AccessRepo {
	return &AccessRepo{pool: pool}
}

const accessColumns = `id, user_id, course_id, payment_id, granted_by, status, granted_at, expires_at, revoked_at, last_accessed_at, created_at, updated_at`

type grantAccessParams struct {
	UserID    int64
	CourseID  int64
	PaymentID *int64
	GrantedBy *int64
	ExpiresAt *time.Time
	Now       time.Time
}

// grantAccessTx inserts an active grant unless one already exists.
// The partial unique index makes the insert race-safe; losing the race
// returns the surviving row instead of an error.
func grantAccessTx(ctx context.Context, tx pgx.Tx, p grantAccessParams) (model.CourseAccess, error) {
	if tx == nil {
		return model.CourseAccess{}, fmt.Errorf("transaction is required")
	}
	if p.UserID <= 0 || p.CourseID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access grant payload")
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	access, err := scanAccess(tx.QueryRow(ctx, `
INSERT INTO course_access (user_id, course_id, payment_id, granted_by, status, granted_at, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'active', $5, $6, NOW(), NOW())
ON CONFLICT (user_id, course_id) WHERE status = 'active' DO NOTHING
RETURNING `+accessColumns+`
`, p.UserID, p.CourseID, p.PaymentID, p.GrantedBy, now.UTC(), p.ExpiresAt))
	if err == nil {
		return access, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.CourseAccess{}, fmt.Errorf("grant course access: %w", err)
	}

	return findActiveAccessTx(ctx, tx, p.UserID, p.CourseID)
}

func findActiveAccessTx(ctx context.Context, tx pgx.Tx, userID, courseID int64) (model.CourseAccess, error) {
	access, err := scanAccess(tx.QueryRow(ctx, `
SELECT `+accessColumns+`
FROM course_access
WHERE user_id = $1
  AND course_id = $2
  AND status = 'active'
`, userID, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CourseAccess{}, ErrAccessNotFound
		}
		return model.CourseAccess{}, fmt.Errorf("find active course access: %w", err)
	}
	return access, nil
}

// Grant creates an active grant outside of a payment, typically by an
// admin. An existing active grant is a conflict.
func (r *AccessRepo) Grant(ctx context.Context, userID, courseID int64, grantedBy *int64, expiresAt *time.Time, now time.Time) (model.CourseAccess, error) {
	if r.pool == nil {
		return model.CourseAccess{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || courseID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access grant payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	access, err := scanAccess(r.pool.QueryRow(ctx, `
INSERT INTO course_access (user_id, course_id, granted_by, status, granted_at, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, 'active', $4, $5, NOW(), NOW())
RETURNING `+accessColumns+`
`, userID, courseID, grantedBy, now.UTC(), expiresAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.CourseAccess{}, ErrAccessExists
		}
		return model.CourseAccess{}, fmt.Errorf("grant course access: %w", err)
	}

	return access, nil
}

// FindActive returns the usable grant for the pair. An active row past
// its expiry is lazily flipped to expired and reported as not found.
func (r *AccessRepo) FindActive(ctx context.Context, userID, courseID int64, now time.Time) (model.CourseAccess, error) {
	if r.pool == nil {
		return model.CourseAccess{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || courseID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access lookup")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	access, err := scanAccess(r.pool.QueryRow(ctx, `
SELECT `+accessColumns+`
FROM course_access
WHERE user_id = $1
  AND course_id = $2
  AND status = 'active'
`, userID, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CourseAccess{}, ErrAccessNotFound
		}
		return model.CourseAccess{}, fmt.Errorf("find active course access: %w", err)
	}

	if !access.Usable(now) {
		if _, err := r.pool.Exec(ctx, `
UPDATE course_access
SET status = 'expired', updated_at = NOW()
WHERE id = $1
  AND status = 'active'
`, access.ID); err != nil {
			return model.CourseAccess{}, fmt.Errorf("expire course access: %w", err)
		}
		return model.CourseAccess{}, ErrAccessNotFound
	}

	return access, nil
}

// Revoke cancels a grant but keeps the row for audit.
func (r *AccessRepo) Revoke(ctx context.Context, accessID int64, now time.Time) (model.CourseAccess, error) {
	if r.pool == nil {
		return model.CourseAccess{}, fmt.Errorf("postgres pool is nil")
	}
	if accessID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	access, err := scanAccess(r.pool.QueryRow(ctx, `
UPDATE course_access
SET status = 'cancelled', revoked_at = $2, updated_at = NOW()
WHERE id = $1
  AND status IN ('active', 'suspended')
RETURNING `+accessColumns+`
`, accessID, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CourseAccess{}, ErrAccessNotFound
		}
		return model.CourseAccess{}, fmt.Errorf("revoke course access: %w", err)
	}

	return access, nil
}

func (r *AccessRepo) SetSuspended(ctx context.Context, accessID int64, suspended bool) (model.CourseAccess, error) {
	if r.pool == nil {
		return model.CourseAccess{}, fmt.Errorf("postgres pool is nil")
	}
	if accessID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access id")
	}

	from, to := "active", "suspended"
	if !suspended {
		from, to = "suspended", "active"
	}

	access, err := scanAccess(r.pool.QueryRow(ctx, `
UPDATE course_access
SET status = $3, updated_at = NOW()
WHERE id = $1
  AND status = $2
RETURNING `+accessColumns+`
`, accessID, from, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CourseAccess{}, ErrAccessNotFound
		}
		return model.CourseAccess{}, fmt.Errorf("toggle course access suspension: %w", err)
	}

	return access, nil
}

func (r *AccessRepo) TouchLastAccessed(ctx context.Context, accessID int64, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if accessID <= 0 {
		return fmt.Errorf("invalid access id")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE course_access
SET last_accessed_at = $2, updated_at = NOW()
WHERE id = $1
`, accessID, at.UTC()); err != nil {
		return fmt.Errorf("touch course access: %w", err)
	}

	return nil
}

func (r *AccessRepo) ListByUser(ctx context.Context, userID int64) ([]model.CourseAccess, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+accessColumns+`
FROM course_access
WHERE user_id = $1
ORDER BY granted_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list course access by user: %w", err)
	}
	defer rows.Close()

	return collectAccess(rows)
}

func (r *AccessRepo) ListByCourse(ctx context.Context, courseID int64, status enums.AccessStatus, limit, offset int) ([]model.CourseAccess, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if courseID <= 0 {
		return nil, fmt.Errorf("invalid course id")
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+accessColumns+`
FROM course_access
WHERE course_id = $1
  AND ($2 = '' OR status = $2)
ORDER BY granted_at DESC
LIMIT $3 OFFSET $4
`, courseID, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list course access by course: %w", err)
	}
	defer rows.Close()

	return collectAccess(rows)
}

// ExpireDue flips every active grant whose expiry has passed. The
// deadline job calls this so expiry does not depend on reads alone.
func (r *AccessRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE course_access
SET status = 'expired', updated_at = NOW()
WHERE status = 'active'
  AND expires_at IS NOT NULL
  AND expires_at <= $1
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire due course access: %w", err)
	}

	return tag.RowsAffected(), nil
}

func collectAccess(rows pgx.Rows) ([]model.CourseAccess, error) {
	var accesses []model.CourseAccess
	for rows.Next() {
		access, err := scanAccess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course access row: %w", err)
		}
		accesses = append(accesses, access)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course access rows: %w", err)
	}
	return accesses, nil
}

func scanAccess(row pgx.Row) (model.CourseAccess, error) {
	var (
		access model.CourseAccess
		status string
	)
	if err := row.Scan(
		&access.ID,
		&access.UserID,
		&access.CourseID,
		&access.PaymentID,
		&access.GrantedBy,
		&status,
		&access.GrantedAt,
		&access.ExpiresAt,
		&access.RevokedAt,
		&access.LastAccessedAt,
		&access.CreatedAt,
		&access.UpdatedAt,
	); err != nil {
		return model.CourseAccess{}, err
	}
	access.Status = enums.AccessStatus(status)
	return access, nil
}
