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
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadySubmitted   = errors.New("assignment already submitted")
)

type AssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{pool: pool}
}

const assignmentColumns = `id, lesson_id, created_by, title, description, instructions, assignment_type, status, max_score, due_at, created_at, updated_at`

const submissionColumns = `id, assignment_id, student_id, content, file_key, status, score, feedback, graded_by, submitted_at, graded_at`

type CreateAssignmentParams struct {
	LessonID     int64
	CreatedBy    int64
	Title        string
	Description  string
	Instructions string
	Type         enums.AssignmentType
	MaxScore     int
	DueAt        *time.Time
}

func (r *AssignmentRepo) Create(ctx context.Context, p CreateAssignmentParams) (model.Assignment, error) {
	if r.pool == nil {
		return model.Assignment{}, fmt.Errorf("postgres pool is nil")
	}
	if p.LessonID <= 0 || p.CreatedBy <= 0 || strings.TrimSpace(p.Title) == "" || !p.Type.Valid() {
		return model.Assignment{}, fmt.Errorf("invalid assignment create payload")
	}
	if p.MaxScore <= 0 {
		p.MaxScore = 100
	}

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, `
INSERT INTO assignments (lesson_id, created_by, title, description, instructions, assignment_type, status, max_score, due_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 'draft', $7, $8, NOW(), NOW())
RETURNING `+assignmentColumns+`
`, p.LessonID, p.CreatedBy, strings.TrimSpace(p.Title), p.Description, p.Instructions, string(p.Type), p.MaxScore, p.DueAt))
	if err != nil {
		return model.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}

	return assignment, nil
}

func (r *AssignmentRepo) FindByID(ctx context.Context, assignmentID int64) (model.Assignment, error) {
	if r.pool == nil {
		return model.Assignment{}, fmt.Errorf("postgres pool is nil")
	}
	if assignmentID <= 0 {
		return model.Assignment{}, fmt.Errorf("invalid assignment id")
	}

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, `
SELECT `+assignmentColumns+`
FROM assignments
WHERE id = $1
`, assignmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Assignment{}, ErrAssignmentNotFound
		}
		return model.Assignment{}, fmt.Errorf("find assignment by id: %w", err)
	}

	return assignment, nil
}

func (r *AssignmentRepo) ListByLesson(ctx context.Context, lessonID int64) ([]model.Assignment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if lessonID <= 0 {
		return nil, fmt.Errorf("invalid lesson id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+assignmentColumns+`
FROM assignments
WHERE lesson_id = $1
ORDER BY id
`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by lesson: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment rows: %w", err)
	}

	return assignments, nil
}

func (r *AssignmentRepo) Update(ctx context.Context, assignmentID int64, p CreateAssignmentParams) (model.Assignment, error) {
	if r.pool == nil {
		return model.Assignment{}, fmt.Errorf("postgres pool is nil")
	}
	if assignmentID <= 0 || strings.TrimSpace(p.Title) == "" || !p.Type.Valid() {
		return model.Assignment{}, fmt.Errorf("invalid assignment update payload")
	}

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, `
UPDATE assignments
SET title = $2, description = $3, instructions = $4, assignment_type = $5, max_score = $6, due_at = $7, updated_at = NOW()
WHERE id = $1
RETURNING `+assignmentColumns+`
`, assignmentID, strings.TrimSpace(p.Title), p.Description, p.Instructions, string(p.Type), p.MaxScore, p.DueAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Assignment{}, ErrAssignmentNotFound
		}
		return model.Assignment{}, fmt.Errorf("update assignment: %w", err)
	}

	return assignment, nil
}

func (r *AssignmentRepo) SetStatus(ctx context.Context, assignmentID int64, status enums.AssignmentStatus) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if assignmentID <= 0 {
		return fmt.Errorf("invalid assignment id")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE assignments
SET status = $2, updated_at = NOW()
WHERE id = $1
`, assignmentID, string(status))
	if err != nil {
		return fmt.Errorf("set assignment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}

	return nil
}

func (r *AssignmentRepo) Delete(ctx context.Context, assignmentID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if assignmentID <= 0 {
		return fmt.Errorf("invalid assignment id")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM assignments
WHERE id = $1
`, assignmentID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}

	return nil
}

type CreateSubmissionParams struct {
	AssignmentID int64
	StudentID    int64
	Content      string
	FileKey      string
	Status       enums.SubmissionStatus
	SubmittedAt  time.Time
}

func (r *AssignmentRepo) CreateSubmission(ctx context.Context, p CreateSubmissionParams) (model.Submission, error) {
	if r.pool == nil {
		return model.Submission{}, fmt.Errorf("postgres pool is nil")
	}
	if p.AssignmentID <= 0 || p.StudentID <= 0 {
		return model.Submission{}, fmt.Errorf("invalid submission payload")
	}
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = time.Now().UTC()
	}

	submission, err := scanSubmission(r.pool.QueryRow(ctx, `
INSERT INTO assignment_submissions (assignment_id, student_id, content, file_key, status, submitted_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING `+submissionColumns+`
`, p.AssignmentID, p.StudentID, p.Content, p.FileKey, string(p.Status), p.SubmittedAt.UTC()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Submission{}, ErrAlreadySubmitted
		}
		return model.Submission{}, fmt.Errorf("create submission: %w", err)
	}

	return submission, nil
}

func (r *AssignmentRepo) FindSubmission(ctx context.Context, submissionID int64) (model.Submission, error) {
	if r.pool == nil {
		return model.Submission{}, fmt.Errorf("postgres pool is nil")
	}
	if submissionID <= 0 {
		return model.Submission{}, fmt.Errorf("invalid submission id")
	}

	submission, err := scanSubmission(r.pool.QueryRow(ctx, `
SELECT `+submissionColumns+`
FROM assignment_submissions
WHERE id = $1
`, submissionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Submission{}, ErrSubmissionNotFound
		}
		return model.Submission{}, fmt.Errorf("find submission by id: %w", err)
	}

	return submission, nil
}

func (r *AssignmentRepo) FindSubmissionByStudent(ctx context.Context, assignmentID, studentID int64) (model.Submission, error) {
	if r.pool == nil {
		return model.Submission{}, fmt.Errorf("postgres pool is nil")
	}
	if assignmentID <= 0 || studentID <= 0 {
		return model.Submission{}, fmt.Errorf("invalid submission lookup")
	}

	submission, err := scanSubmission(r.pool.QueryRow(ctx, `
SELECT `+submissionColumns+`
FROM assignment_submissions
WHERE assignment_id = $1
  AND student_id = $2
`, assignmentID, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Submission{}, ErrSubmissionNotFound
		}
		return model.Submission{}, fmt.Errorf("find submission by student: %w", err)
	}

	return submission, nil
}

func (r *AssignmentRepo) ListSubmissions(ctx context.Context, assignmentID int64, status enums.SubmissionStatus, limit, offset int) ([]model.Submission, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if assignmentID <= 0 {
		return nil, fmt.Errorf("invalid assignment id")
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+submissionColumns+`
FROM assignment_submissions
WHERE assignment_id = $1
  AND ($2 = '' OR status = $2)
ORDER BY submitted_at
LIMIT $3 OFFSET $4
`, assignmentID, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}

	return submissions, nil
}

// UpdateSubmission replaces the content of an ungraded submission.
// Graded and missed submissions are immutable for the student.
func (r *AssignmentRepo) UpdateSubmission(ctx context.Context, submissionID int64, content, fileKey string, status enums.SubmissionStatus, now time.Time) (model.Submission, error) {
	if r.pool == nil {
		return model.Submission{}, fmt.Errorf("postgres pool is nil")
	}
	if submissionID <= 0 {
		return model.Submission{}, fmt.Errorf("invalid submission id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	submission, err := scanSubmission(r.pool.QueryRow(ctx, `
UPDATE assignment_submissions
SET content = $2, file_key = $3, status = $4, submitted_at = $5, updated_at = NOW()
WHERE id = $1 AND status IN ('submitted', 'late', 'missed')
RETURNING `+submissionColumns+`
`, submissionID, content, fileKey, string(status), now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Submission{}, ErrSubmissionNotFound
		}
		return model.Submission{}, fmt.Errorf("update submission: %w", err)
	}

	return submission, nil
}

// GradeSubmission records the curator's score and feedback. Regrading
// an already graded submission is allowed.
func (r *AssignmentRepo) GradeSubmission(ctx context.Context, submissionID int64, score int, feedback string, gradedBy int64, now time.Time) (model.Submission, error) {
	if r.pool == nil {
		return model.Submission{}, fmt.Errorf("postgres pool is nil")
	}
	if submissionID <= 0 || gradedBy <= 0 || score < 0 {
		return model.Submission{}, fmt.Errorf("invalid grade payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	submission, err := scanSubmission(r.pool.QueryRow(ctx, `
UPDATE assignment_submissions
SET status = 'graded', score = $2, feedback = $3, graded_by = $4, graded_at = $5, updated_at = NOW()
WHERE id = $1
RETURNING `+submissionColumns+`
`, submissionID, score, feedback, gradedBy, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Submission{}, ErrSubmissionNotFound
		}
		return model.Submission{}, fmt.Errorf("grade submission: %w", err)
	}

	return submission, nil
}

// MarkMissedPastDue inserts missed submissions for students with
// active course access who never submitted before the deadline. The
// deadline job drives it.
func (r *AssignmentRepo) MarkMissedPastDue(ctx context.Context, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO assignment_submissions (assignment_id, student_id, status, submitted_at, created_at, updated_at)
SELECT a.id, ca.user_id, 'missed', $1, NOW(), NOW()
FROM assignments a
JOIN lessons l ON l.id = a.lesson_id
JOIN course_modules m ON m.id = l.module_id
JOIN course_access ca ON ca.course_id = m.course_id AND ca.status = 'active'
WHERE a.status = 'published'
  AND a.due_at IS NOT NULL
  AND a.due_at <= $1
ON CONFLICT (assignment_id, student_id) DO NOTHING
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark missed submissions: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanAssignment(row pgx.Row) (model.Assignment, error) {
	var (
		assignment   model.Assignment
		aType        string
		status       string
		description  *string
		instructions *string
	)
	if err := row.Scan(
		&assignment.ID,
		&assignment.LessonID,
		&assignment.CreatedBy,
		&assignment.Title,
		&description,
		&instructions,
		&aType,
		&status,
		&assignment.MaxScore,
		&assignment.DueAt,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	); err != nil {
		return model.Assignment{}, err
	}
	assignment.Type = enums.AssignmentType(aType)
	assignment.Status = enums.AssignmentStatus(status)
	if description != nil {
		assignment.Description = *description
	}
	if instructions != nil {
		assignment.Instructions = *instructions
	}
	return assignment, nil
}

func scanSubmission(row pgx.Row) (model.Submission, error) {
	var (
		submission model.Submission
		status     string
		content    *string
		fileKey    *string
		feedback   *string
	)
	if err := row.Scan(
		&submission.ID,
		&submission.AssignmentID,
		&submission.StudentID,
		&content,
		&fileKey,
		&status,
		&submission.Score,
		&feedback,
		&submission.GradedBy,
		&submission.SubmittedAt,
		&submission.GradedAt,
	); err != nil {
		return model.Submission{}, err
	}
	submission.Status = enums.SubmissionStatus(status)
	if content != nil {
		submission.Content = *content
	}
	if fileKey != nil {
		submission.FileKey = *fileKey
	}
	if feedback != nil {
		submission.Feedback = *feedback
	}
	return submission, nil
}
