package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrSlugTaken      = errors.New("course slug already taken")
	ErrModuleNotFound = errors.New("course module not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

const courseColumns = `id, title, slug, description, image_url, price, currency, duration_hours, status, is_featured, max_students, requirements, outcomes, curator_id, published_at, created_at, updated_at`

type CreateCourseParams struct {
	Title         string
	Slug          string
	Description   string
	ImageURL      string
	Price         int64
	Currency      string
	DurationHours int
	MaxStudents   *int
	Requirements  string
	Outcomes      string
	CuratorID     int64
}

func (r *CourseRepo) Create(ctx context.Context, p CreateCourseParams) (model.Course, error) {
	if r.pool == nil {
		return model.Course{}, fmt.Errorf("postgres pool is nil")
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
	if p.Title == "" || p.Slug == "" || p.CuratorID <= 0 {
		return model.Course{}, fmt.Errorf("invalid course create payload")
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "RUB"
	}

	course, err := scanCourse(r.pool.QueryRow(ctx, `
INSERT INTO courses (title, slug, description, image_url, price, currency, duration_hours, status, max_students, requirements, outcomes, curator_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'draft', $8, $9, $10, $11, NOW(), NOW())
RETURNING `+courseColumns+`
`, p.Title, p.Slug, p.Description, p.ImageURL, p.Price, currency, p.DurationHours, p.MaxStudents, p.Requirements, p.Outcomes, p.CuratorID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Course{}, ErrSlugTaken
		}
		return model.Course{}, fmt.Errorf("create course: %w", err)
	}

	return course, nil
}

func (r *CourseRepo) FindByID(ctx context.Context, courseID int64) (model.Course, error) {
	if r.pool == nil {
		return model.Course{}, fmt.Errorf("postgres pool is nil")
	}
	if courseID <= 0 {
		return model.Course{}, fmt.Errorf("invalid course id")
	}

	course, err := scanCourse(r.pool.QueryRow(ctx, `
SELECT `+courseColumns+`
FROM courses
WHERE id = $1
`, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Course{}, ErrCourseNotFound
		}
		return model.Course{}, fmt.Errorf("find course by id: %w", err)
	}

	return course, nil
}

func (r *CourseRepo) FindBySlug(ctx context.Context, slug string) (model.Course, error) {
	if r.pool == nil {
		return model.Course{}, fmt.Errorf("postgres pool is nil")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return model.Course{}, fmt.Errorf("invalid course slug")
	}

	course, err := scanCourse(r.pool.QueryRow(ctx, `
SELECT `+courseColumns+`
FROM courses
WHERE slug = $1
`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Course{}, ErrCourseNotFound
		}
		return model.Course{}, fmt.Errorf("find course by slug: %w", err)
	}

	return course, nil
}

type ListCoursesParams struct {
	Status    enums.CourseStatus
	CuratorID int64
	Featured  *bool
	Search    string
	Limit     int
	Offset    int
}

func (r *CourseRepo) List(ctx context.Context, p ListCoursesParams) ([]model.Course, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+courseColumns+`
FROM courses
WHERE ($1 = '' OR status = $1)
  AND ($2::bigint = 0 OR curator_id = $2)
  AND ($3::boolean IS NULL OR is_featured = $3)
  AND ($4 = '' OR title ILIKE '%' || $4 || '%' OR description ILIKE '%' || $4 || '%')
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`, string(p.Status), p.CuratorID, p.Featured, strings.TrimSpace(p.Search), p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course rows: %w", err)
	}

	return courses, nil
}

type UpdateCourseParams struct {
	Title         string
	Description   string
	ImageURL      string
	Price         int64
	DurationHours int
	IsFeatured    bool
	MaxStudents   *int
	Requirements  string
	Outcomes      string
	CuratorID     int64
}

func (r *CourseRepo) Update(ctx context.Context, courseID int64, p UpdateCourseParams) (model.Course, error) {
	if r.pool == nil {
		return model.Course{}, fmt.Errorf("postgres pool is nil")
	}
	if courseID <= 0 || strings.TrimSpace(p.Title) == "" || p.CuratorID <= 0 {
		return model.Course{}, fmt.Errorf("invalid course update payload")
	}

	course, err := scanCourse(r.pool.QueryRow(ctx, `
UPDATE courses
SET
	title = $2,
	description = $3,
	image_url = $4,
	price = $5,
	duration_hours = $6,
	is_featured = $7,
	max_students = $8,
	requirements = $9,
	outcomes = $10,
	curator_id = $11,
	updated_at = NOW()
WHERE id = $1
RETURNING `+courseColumns+`
`, courseID, strings.TrimSpace(p.Title), p.Description, p.ImageURL, p.Price, p.DurationHours, p.IsFeatured, p.MaxStudents, p.Requirements, p.Outcomes, p.CuratorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Course{}, ErrCourseNotFound
		}
		return model.Course{}, fmt.Errorf("update course: %w", err)
	}

	return course, nil
}

// SetStatus moves the course through draft -> published -> archived.
// published_at is stamped on the first publish only.
func (r *CourseRepo) SetStatus(ctx context.Context, courseID int64, status enums.CourseStatus, now time.Time) (model.Course, error) {
	if r.pool == nil {
		return model.Course{}, fmt.Errorf("postgres pool is nil")
	}
	if courseID <= 0 || !status.Valid() {
		return model.Course{}, fmt.Errorf("invalid course status payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	course, err := scanCourse(r.pool.QueryRow(ctx, `
UPDATE courses
SET
	status = $2,
	published_at = CASE
		WHEN $2 = 'published' AND published_at IS NULL THEN $3::timestamptz
		ELSE published_at
	END,
	updated_at = NOW()
WHERE id = $1
RETURNING `+courseColumns+`
`, courseID, string(status), now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Course{}, ErrCourseNotFound
		}
		return model.Course{}, fmt.Errorf("set course status: %w", err)
	}

	return course, nil
}

func (r *CourseRepo) Delete(ctx context.Context, courseID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if courseID <= 0 {
		return fmt.Errorf("invalid course id")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM courses
WHERE id = $1
`, courseID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCourseNotFound
	}

	return nil
}

func scanCourse(row pgx.Row) (model.Course, error) {
	var (
		course       model.Course
		status       string
		description  *string
		imageURL     *string
		requirements *string
		outcomes     *string
	)
	if err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Slug,
		&description,
		&imageURL,
		&course.Price,
		&course.Currency,
		&course.DurationHours,
		&status,
		&course.IsFeatured,
		&course.MaxStudents,
		&requirements,
		&outcomes,
		&course.CuratorID,
		&course.PublishedAt,
		&course.CreatedAt,
		&course.UpdatedAt,
	); err != nil {
		return model.Course{}, err
	}
	course.Status = enums.CourseStatus(status)
	if description != nil {
		course.Description = *description
	}
	if imageURL != nil {
		course.ImageURL = *imageURL
	}
	if requirements != nil {
		course.Requirements = *requirements
	}
	if outcomes != nil {
		course.Outcomes = *outcomes
	}
	return course, nil
}
