package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

var ErrProgressNotFound = errors.New("progress not found")

type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

const lessonProgressColumns = `id, user_id, lesson_id, is_completed, completed_at, time_spent_minutes, last_position, created_at, updated_at`

const courseProgressColumns = `id, user_id, course_id, completed_lessons, total_lessons, percentage, last_accessed_at, completed_at, created_at, updated_at`

type TrackLessonParams struct {
	UserID           int64
	LessonID         int64
	Completed        bool
	TimeSpentMinutes int
	LastPosition     int
}

// TrackLesson upserts the per-lesson record. Time spent accumulates,
// completion is sticky and the completion timestamp keeps its first
// value.
func (r *ProgressRepo) TrackLesson(ctx context.Context, p TrackLessonParams, now time.Time) (model.LessonProgress, error) {
	if r.pool == nil {
		return model.LessonProgress{}, fmt.Errorf("postgres pool is nil")
	}
	if p.UserID <= 0 || p.LessonID <= 0 {
		return model.LessonProgress{}, fmt.Errorf("invalid lesson progress payload")
	}
	if p.TimeSpentMinutes < 0 {
		p.TimeSpentMinutes = 0
	}
	if p.LastPosition < 0 {
		p.LastPosition = 0
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	progress, err := scanLessonProgress(r.pool.QueryRow(ctx, `
INSERT INTO lesson_progress (user_id, lesson_id, is_completed, completed_at, time_spent_minutes, last_position, created_at, updated_at)
VALUES ($1, $2, $3, CASE WHEN $3 THEN $6::timestamptz ELSE NULL END, $4, $5, NOW(), NOW())
ON CONFLICT (user_id, lesson_id) DO UPDATE
SET is_completed = lesson_progress.is_completed OR EXCLUDED.is_completed,
    completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
    time_spent_minutes = lesson_progress.time_spent_minutes + EXCLUDED.time_spent_minutes,
    last_position = EXCLUDED.last_position,
    updated_at = NOW()
RETURNING `+lessonProgressColumns+`
`, p.UserID, p.LessonID, p.Completed, p.TimeSpentMinutes, p.LastPosition, now.UTC()))
	if err != nil {
		return model.LessonProgress{}, fmt.Errorf("track lesson progress: %w", err)
	}

	return progress, nil
}

func (r *ProgressRepo) FindLessonProgress(ctx context.Context, userID, lessonID int64) (model.LessonProgress, error) {
	if r.pool == nil {
		return model.LessonProgress{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || lessonID <= 0 {
		return model.LessonProgress{}, fmt.Errorf("invalid lesson progress lookup")
	}

	progress, err := scanLessonProgress(r.pool.QueryRow(ctx, `
SELECT `+lessonProgressColumns+`
FROM lesson_progress
WHERE user_id = $1
  AND lesson_id = $2
`, userID, lessonID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LessonProgress{}, ErrProgressNotFound
		}
		return model.LessonProgress{}, fmt.Errorf("find lesson progress: %w", err)
	}

	return progress, nil
}

func (r *ProgressRepo) ListLessonProgress(ctx context.Context, userID, courseID int64) ([]model.LessonProgress, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || courseID <= 0 {
		return nil, fmt.Errorf("invalid lesson progress lookup")
	}

	rows, err := r.pool.Query(ctx, `
SELECT lp.id, lp.user_id, lp.lesson_id, lp.is_completed, lp.completed_at, lp.time_spent_minutes, lp.last_position, lp.created_at, lp.updated_at
FROM lesson_progress lp
JOIN lessons l ON l.id = lp.lesson_id
JOIN course_modules m ON m.id = l.module_id
WHERE lp.user_id = $1
  AND m.course_id = $2
ORDER BY lp.lesson_id
`, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lesson progress: %w", err)
	}
	defer rows.Close()

	var progresses []model.LessonProgress
	for rows.Next() {
		progress, err := scanLessonProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson progress row: %w", err)
		}
		progresses = append(progresses, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson progress rows: %w", err)
	}

	return progresses, nil
}

// RecomputeCourse derives the course row from lesson completion. Only
// published lessons count toward the total. Completion is stamped the
// first time the percentage reaches 100.
func (r *ProgressRepo) RecomputeCourse(ctx context.Context, userID, courseID int64, now time.Time) (model.CourseProgress, error) {
	if r.pool == nil {
		return model.CourseProgress{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || courseID <= 0 {
		return model.CourseProgress{}, fmt.Errorf("invalid course progress payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	progress, err := scanCourseProgress(r.pool.QueryRow(ctx, `
WITH totals AS (
    SELECT
        COUNT(*) AS total,
        COUNT(*) FILTER (
            WHERE EXISTS (
                SELECT 1 FROM lesson_progress lp
                WHERE lp.user_id = $1 AND lp.lesson_id = l.id AND lp.is_completed
            )
        ) AS done
    FROM lessons l
    JOIN course_modules m ON m.id = l.module_id
    WHERE m.course_id = $2
)
INSERT INTO course_progress (user_id, course_id, completed_lessons, total_lessons, percentage, last_accessed_at, completed_at, created_at, updated_at)
SELECT $1, $2, done, total,
       CASE WHEN total = 0 THEN 0 ELSE done * 100.0 / total END,
       $3,
       CASE WHEN total > 0 AND done = total THEN $3::timestamptz ELSE NULL END,
       NOW(), NOW()
FROM totals
ON CONFLICT (user_id, course_id) DO UPDATE
SET completed_lessons = EXCLUDED.completed_lessons,
    total_lessons = EXCLUDED.total_lessons,
    percentage = EXCLUDED.percentage,
    last_accessed_at = EXCLUDED.last_accessed_at,
    completed_at = COALESCE(course_progress.completed_at, EXCLUDED.completed_at),
    updated_at = NOW()
RETURNING `+courseProgressColumns+`
`, userID, courseID, now.UTC()))
	if err != nil {
		return model.CourseProgress{}, fmt.Errorf("recompute course progress: %w", err)
	}

	return progress, nil
}

func (r *ProgressRepo) FindCourseProgress(ctx context.Context, userID, courseID int64) (model.CourseProgress, error) {
	if r.pool == nil {
		return model.CourseProgress{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || courseID <= 0 {
		return model.CourseProgress{}, fmt.Errorf("invalid course progress lookup")
	}

	progress, err := scanCourseProgress(r.pool.QueryRow(ctx, `
SELECT `+courseProgressColumns+`
FROM course_progress
WHERE user_id = $1
  AND course_id = $2
`, userID, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CourseProgress{}, ErrProgressNotFound
		}
		return model.CourseProgress{}, fmt.Errorf("find course progress: %w", err)
	}

	return progress, nil
}

func (r *ProgressRepo) ListCourseProgress(ctx context.Context, userID int64) ([]model.CourseProgress, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+courseProgressColumns+`
FROM course_progress
WHERE user_id = $1
ORDER BY course_id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list course progress: %w", err)
	}
	defer rows.Close()

	var progresses []model.CourseProgress
	for rows.Next() {
		progress, err := scanCourseProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course progress row: %w", err)
		}
		progresses = append(progresses, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course progress rows: %w", err)
	}

	return progresses, nil
}

func scanLessonProgress(row pgx.Row) (model.LessonProgress, error) {
	var progress model.LessonProgress
	if err := row.Scan(
		&progress.ID,
		&progress.UserID,
		&progress.LessonID,
		&progress.IsCompleted,
		&progress.CompletedAt,
		&progress.TimeSpentMinutes,
		&progress.LastPosition,
		&progress.CreatedAt,
		&progress.UpdatedAt,
	); err != nil {
		return model.LessonProgress{}, err
	}
	return progress, nil
}

func scanCourseProgress(row pgx.Row) (model.CourseProgress, error) {
	var progress model.CourseProgress
	if err := row.Scan(
		&progress.ID,
		&progress.UserID,
		&progress.CourseID,
		&progress.CompletedLessons,
		&progress.TotalLessons,
		&progress.Percentage,
		&progress.LastAccessedAt,
		&progress.CompletedAt,
		&progress.CreatedAt,
		&progress.UpdatedAt,
	); err != nil {
		return model.CourseProgress{}, err
	}
	return progress, nil
}
