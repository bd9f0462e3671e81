package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

const activityColumns = `id, user_id, activity_type, description, course_id, lesson_id, metadata, ip_address, created_at`

type RecordActivityParams struct {
	UserID       int64
	ActivityType enums.ActivityType
	Description  string
	CourseID     *int64
	LessonID     *int64
	Metadata     map[string]any
	IPAddress    string
}

func (r *ActivityRepo) Record(ctx context.Context, p RecordActivityParams) (model.ActivityLog, error) {
	if r.pool == nil {
		return model.ActivityLog{}, fmt.Errorf("postgres pool is nil")
	}
	if p.UserID <= 0 || p.ActivityType == "" {
		return model.ActivityLog{}, fmt.Errorf("invalid activity payload")
	}

	entry, err := scanActivity(r.pool.QueryRow(ctx, `
INSERT INTO activity_logs (user_id, activity_type, description, course_id, lesson_id, metadata, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NOW())
RETURNING `+activityColumns+`
`, p.UserID, string(p.ActivityType), p.Description, p.CourseID, p.LessonID, p.Metadata, p.IPAddress))
	if err != nil {
		return model.ActivityLog{}, fmt.Errorf("record activity: %w", err)
	}

	return entry, nil
}

type ListActivityParams struct {
	UserID       int64
	ActivityType enums.ActivityType
	CourseID     int64
	Since        *time.Time
	Limit        int
	Offset       int
}

func (r *ActivityRepo) List(ctx context.Context, p ListActivityParams) ([]model.ActivityLog, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+activityColumns+`
FROM activity_logs
WHERE ($1 = 0 OR user_id = $1)
  AND ($2 = '' OR activity_type = $2)
  AND ($3 = 0 OR course_id = $3)
  AND ($4::timestamptz IS NULL OR created_at >= $4)
ORDER BY created_at DESC, id DESC
LIMIT $5 OFFSET $6
`, p.UserID, string(p.ActivityType), p.CourseID, p.Since, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLog
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return entries, nil
}

// CountByType aggregates activity kinds within a window for the admin
// dashboard.
func (r *ActivityRepo) CountByType(ctx context.Context, since time.Time) (map[enums.ActivityType]int, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT activity_type, COUNT(*)
FROM activity_logs
WHERE created_at >= $1
GROUP BY activity_type
`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("count activity by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[enums.ActivityType]int)
	for rows.Next() {
		var (
			aType string
			count int
		)
		if err := rows.Scan(&aType, &count); err != nil {
			return nil, fmt.Errorf("scan activity count row: %w", err)
		}
		counts[enums.ActivityType(aType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity count rows: %w", err)
	}

	return counts, nil
}

func (r *ActivityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM activity_logs
WHERE created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old activity: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanActivity(row pgx.Row) (model.ActivityLog, error) {
	var (
		entry       model.ActivityLog
		aType       string
		description *string
		ipAddress   *string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&aType,
		&description,
		&entry.CourseID,
		&entry.LessonID,
		&entry.Metadata,
		&ipAddress,
		&entry.CreatedAt,
	); err != nil {
		return model.ActivityLog{}, err
	}
	entry.ActivityType = enums.ActivityType(aType)
	if description != nil {
		entry.Description = *description
	}
	if ipAddress != nil {
		entry.IPAddress = *ipAddress
	}
	return entry, nil
}
