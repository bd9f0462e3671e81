package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

type LessonRepo struct {
	pool *pgxpool.Pool
}

func NewLessonRepo(pool *pgxpool.Pool) *LessonRepo {
	return &LessonRepo{pool: pool}
}

const lessonColumns = `id, module_id, title, content, lesson_type, video_url, file_key, order_index, duration_minutes, is_free, created_at, updated_at`

type CreateLessonParams struct {
	ModuleID        int64
	Title           string
	Content         string
	Type            enums.LessonType
	VideoURL        string
	FileKey         string
	OrderIndex      int
	DurationMinutes int
	IsFree          bool
}

func (r *LessonRepo) Create(ctx context.Context, p CreateLessonParams) (model.Lesson, error) {
	if r.pool == nil {
		return model.Lesson{}, fmt.Errorf("postgres pool is nil")
	}
	if p.ModuleID <= 0 || strings.TrimSpace(p.Title) == "" || !p.Type.Valid() {
		return model.Lesson{}, fmt.Errorf("invalid lesson create payload")
	}

	lesson, err := scanLesson(r.pool.QueryRow(ctx, `
INSERT INTO lessons (module_id, title, content, lesson_type, video_url, file_key, order_index, duration_minutes, is_free, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
RETURNING `+lessonColumns+`
`, p.ModuleID, strings.TrimSpace(p.Title), p.Content, string(p.Type), p.VideoURL, p.FileKey, p.OrderIndex, p.DurationMinutes, p.IsFree))
	if err != nil {
		return model.Lesson{}, fmt.Errorf("create lesson: %w", err)
	}

	return lesson, nil
}

func (r *LessonRepo) FindByID(ctx context.Context, lessonID int64) (model.Lesson, error) {
	if r.pool == nil {
		return model.Lesson{}, fmt.Errorf("postgres pool is nil")
	}
	if lessonID <= 0 {
		return model.Lesson{}, fmt.Errorf("invalid lesson id")
	}

	lesson, err := scanLesson(r.pool.QueryRow(ctx, `
SELECT `+lessonColumns+`
FROM lessons
WHERE id = $1
`, lessonID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Lesson{}, ErrLessonNotFound
		}
		return model.Lesson{}, fmt.Errorf("find lesson by id: %w", err)
	}

	return lesson, nil
}

func (r *LessonRepo) ListByModule(ctx context.Context, moduleID int64) ([]model.Lesson, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if moduleID <= 0 {
		return nil, fmt.Errorf("invalid module id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+lessonColumns+`
FROM lessons
WHERE module_id = $1
ORDER BY order_index, id
`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson row: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson rows: %w", err)
	}

	return lessons, nil
}

// CourseIDForLesson resolves the owning course through the module
// chain. Access checks rely on it.
func (r *LessonRepo) CourseIDForLesson(ctx context.Context, lessonID int64) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if lessonID <= 0 {
		return 0, fmt.Errorf("invalid lesson id")
	}

	var courseID int64
	err := r.pool.QueryRow(ctx, `
SELECT m.course_id
FROM lessons l
JOIN course_modules m ON m.id = l.module_id
WHERE l.id = $1
`, lessonID).Scan(&courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrLessonNotFound
		}
		return 0, fmt.Errorf("resolve course for lesson: %w", err)
	}

	return courseID, nil
}

func (r *LessonRepo) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if courseID <= 0 {
		return 0, fmt.Errorf("invalid course id")
	}

	var total int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM lessons l
JOIN course_modules m ON m.id = l.module_id
WHERE m.course_id = $1
`, courseID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count course lessons: %w", err)
	}

	return total, nil
}

func (r *LessonRepo) Update(ctx context.Context, lessonID int64, p CreateLessonParams) (model.Lesson, error) {
	if r.pool == nil {
		return model.Lesson{}, fmt.Errorf("postgres pool is nil")
	}
	if lessonID <= 0 || strings.TrimSpace(p.Title) == "" || !p.Type.Valid() {
		return model.Lesson{}, fmt.Errorf("invalid lesson update payload")
	}

	lesson, err := scanLesson(r.pool.QueryRow(ctx, `
UPDATE lessons
SET title = $2, content = $3, lesson_type = $4, video_url = $5, file_key = $6, order_index = $7, duration_minutes = $8, is_free = $9, updated_at = NOW()
WHERE id = $1
RETURNING `+lessonColumns+`
`, lessonID, strings.TrimSpace(p.Title), p.Content, string(p.Type), p.VideoURL, p.FileKey, p.OrderIndex, p.DurationMinutes, p.IsFree))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Lesson{}, ErrLessonNotFound
		}
		return model.Lesson{}, fmt.Errorf("update lesson: %w", err)
	}

	return lesson, nil
}

func (r *LessonRepo) Delete(ctx context.Context, lessonID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if lessonID <= 0 {
		return fmt.Errorf("invalid lesson id")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM lessons
WHERE id = $1
`, lessonID)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLessonNotFound
	}

	return nil
}

func scanLesson(row pgx.Row) (model.Lesson, error) {
	var (
		lesson     model.Lesson
		content    *string
		lessonType string
		videoURL   *string
		fileKey    *string
	)
	if err := row.Scan(
		&lesson.ID,
		&lesson.ModuleID,
		&lesson.Title,
		&content,
		&lessonType,
		&videoURL,
		&fileKey,
		&lesson.OrderIndex,
		&lesson.DurationMinutes,
		&lesson.IsFree,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	); err != nil {
		return model.Lesson{}, err
	}
	lesson.Type = enums.LessonType(lessonType)
	if content != nil {
		lesson.Content = *content
	}
	if videoURL != nil {
		lesson.VideoURL = *videoURL
	}
	if fileKey != nil {
		lesson.FileKey = *fileKey
	}
	return lesson, nil
}
