package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

type ModuleRepo struct {
	pool *pgxpool.Pool
}

func NewModuleRepo(pool *pgxpool.Pool) *ModuleRepo {
	return &ModuleRepo{pool: pool}
}

const moduleColumns = `id, course_id, title, description, order_index, is_required, estimated_hours, created_at, updated_at`

type CreateModuleParams struct {
	CourseID       int64
	Title          string
	Description    string
	OrderIndex     int
	IsRequired     bool
	EstimatedHours int
}

func (r *ModuleRepo) Create(ctx context.Context, p CreateModuleParams) (model.CourseModule, error) {
	if r.pool == nil {
		return model.CourseModule{}, fmt.Errorf("postgres pool is nil")
	}
	if p.CourseID <= 0 || strings.TrimSpace(p.Title) == "" {
		return model.CourseModule{}, fmt.Errorf("invalid module create payload")
	}

	mod, err := scanModule(r.pool.QueryRow(ctx, `
INSERT INTO course_modules (course_id, title, description, order_index, is_required, estimated_hours, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING `+moduleColumns+`
`, p.CourseID, strings.TrimSpace(p.Title), p.Description, p.OrderIndex, p.IsRequired, p.EstimatedHours))
	if err != nil {
		return model.CourseModule{}, fmt.Errorf("create course module: %w", err)
	}

	return mod, nil
}

func (r *ModuleRepo) FindByID(ctx context.Context, moduleID int64) (model.CourseModule, error) {
	if r.pool == nil {
		return model.CourseModule{}, fmt.Errorf("postgres pool is nil")
	}
	if moduleID <= 0 {
		return model.CourseModule{}, fmt.Errorf("invalid module id")
	}

	mod, err := scanModule(r.pool.QueryRow(ctx, `
SELECT `+moduleColumns+`
FROM course_modules
WHERE id = $1
`, moduleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CourseModule{}, ErrModuleNotFound
		}
		return model.CourseModule{}, fmt.Errorf("find module by id: %w", err)
	}

	return mod, nil
}

func (r *ModuleRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.CourseModule, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if courseID <= 0 {
		return nil, fmt.Errorf("invalid course id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+moduleColumns+`
FROM course_modules
WHERE course_id = $1
ORDER BY order_index, id
`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course modules: %w", err)
	}
	defer rows.Close()

	var modules []model.CourseModule
	for rows.Next() {
		mod, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module row: %w", err)
		}
		modules = append(modules, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module rows: %w", err)
	}

	return modules, nil
}

func (r *ModuleRepo) Update(ctx context.Context, moduleID int64, p CreateModuleParams) (model.CourseModule, error) {
	if r.pool == nil {
		return model.CourseModule{}, fmt.Errorf("postgres pool is nil")
	}
	if moduleID <= 0 || strings.TrimSpace(p.Title) == "" {
		return model.CourseModule{}, fmt.Errorf("invalid module update payload")
	}

	mod, err := scanModule(r.pool.QueryRow(ctx, `
UPDATE course_modules
SET title = $2, description = $3, order_index = $4, is_required = $5, estimated_hours = $6, updated_at = NOW()
WHERE id = $1
RETURNING `+moduleColumns+`
`, moduleID, strings.TrimSpace(p.Title), p.Description, p.OrderIndex, p.IsRequired, p.EstimatedHours))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CourseModule{}, ErrModuleNotFound
		}
		return model.CourseModule{}, fmt.Errorf("update course module: %w", err)
	}

	return mod, nil
}

func (r *ModuleRepo) Delete(ctx context.Context, moduleID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if moduleID <= 0 {
		return fmt.Errorf("invalid module id")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM course_modules
WHERE id = $1
`, moduleID)
	if err != nil {
		return fmt.Errorf("delete course module: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrModuleNotFound
	}

	return nil
}

func scanModule(row pgx.Row) (model.CourseModule, error) {
	var (
		mod         model.CourseModule
		description *string
	)
	if err := row.Scan(
		&mod.ID,
		&mod.CourseID,
		&mod.Title,
		&description,
		&mod.OrderIndex,
		&mod.IsRequired,
		&mod.EstimatedHours,
		&mod.CreatedAt,
		&mod.UpdatedAt,
	); err != nil {
		return model.CourseModule{}, err
	}
	if description != nil {
		mod.Description = *description
	}
	return mod, nil
}
