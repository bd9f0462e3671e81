package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

var (
	ErrAttemptNotFound  = errors.New("test attempt not found")
	ErrAttemptFinished  = errors.New("test attempt already submitted")
	ErrAttemptsExceeded = errors.New("no test attempts left")
)

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

const attemptColumns = `id, test_id, student_id, attempt_number, status, started_at, completed_at, graded_at, score, max_score, percent, is_passed`

// Start opens a new attempt, numbering it after the student's previous
// ones. maxAttempts == 0 means unlimited.
func (r *AttemptRepo) Start(ctx context.Context, testID, studentID int64, maxAttempts int, now time.Time) (model.TestAttempt, error) {
	if r.pool == nil {
		return model.TestAttempt{}, fmt.Errorf("postgres pool is nil")
	}
	if testID <= 0 || studentID <= 0 {
		return model.TestAttempt{}, fmt.Errorf("invalid attempt start payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out model.TestAttempt
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		// Serialize concurrent starts on the test row so the
		// attempt count cannot be read twice.
		var lockedTestID int64
		if err := tx.QueryRow(txCtx, `
SELECT id
FROM tests
WHERE id = $1
FOR UPDATE
`, testID).Scan(&lockedTestID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTestNotFound
			}
			return fmt.Errorf("lock test: %w", err)
		}

		var used int
		err := tx.QueryRow(txCtx, `
SELECT COUNT(*)
FROM test_attempts
WHERE test_id = $1
  AND student_id = $2
`, testID, studentID).Scan(&used)
		if err != nil {
			return fmt.Errorf("count previous attempts: %w", err)
		}

		if maxAttempts > 0 && used >= maxAttempts {
			return ErrAttemptsExceeded
		}

		attempt, err := scanAttempt(tx.QueryRow(txCtx, `
INSERT INTO test_attempts (test_id, student_id, attempt_number, status, started_at, created_at, updated_at)
VALUES ($1, $2, $3, 'in_progress', $4, NOW(), NOW())
RETURNING `+attemptColumns+`
`, testID, studentID, used+1, now.UTC()))
		if err != nil {
			return fmt.Errorf("start test attempt: %w", err)
		}

		out = attempt
		return nil
	})
	if err != nil {
		return model.TestAttempt{}, err
	}

	return out, nil
}

func (r *AttemptRepo) FindByID(ctx context.Context, attemptID int64) (model.TestAttempt, error) {
	if r.pool == nil {
		return model.TestAttempt{}, fmt.Errorf("postgres pool is nil")
	}
	if attemptID <= 0 {
		return model.TestAttempt{}, fmt.Errorf("invalid attempt id")
	}

	attempt, err := scanAttempt(r.pool.QueryRow(ctx, `
SELECT `+attemptColumns+`
FROM test_attempts
WHERE id = $1
`, attemptID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TestAttempt{}, ErrAttemptNotFound
		}
		return model.TestAttempt{}, fmt.Errorf("find attempt by id: %w", err)
	}

	return attempt, nil
}

func (r *AttemptRepo) ListByStudent(ctx context.Context, testID, studentID int64) ([]model.TestAttempt, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if testID <= 0 || studentID <= 0 {
		return nil, fmt.Errorf("invalid attempt lookup")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+attemptColumns+`
FROM test_attempts
WHERE test_id = $1
  AND student_id = $2
ORDER BY attempt_number
`, testID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []model.TestAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}

	return attempts, nil
}

func (r *AttemptRepo) ListNeedingReview(ctx context.Context, testID int64, limit int) ([]model.TestAttempt, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+attemptColumns+`
FROM test_attempts
WHERE status = 'needs_review'
  AND ($1::bigint = 0 OR test_id = $1)
ORDER BY completed_at
LIMIT $2
`, testID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts needing review: %w", err)
	}
	defer rows.Close()

	var attempts []model.TestAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}

	return attempts, nil
}

type GradedAnswer struct {
	QuestionID   int64
	AnswerID     *int64
	AnswerText   string
	IsCorrect    *bool
	PointsEarned *int
}

type SubmitAttemptResult struct {
	Score       int
	MaxScore    int
	Percent     int
	IsPassed    bool
	NeedsReview bool
}

// Submit persists the student's answers and the auto-grading outcome
// in one transaction. The attempt row lock makes a double submit fail
// cleanly instead of double-writing answers.
func (r *AttemptRepo) Submit(ctx context.Context, attemptID int64, answers []GradedAnswer, result SubmitAttemptResult, now time.Time) (model.TestAttempt, error) {
	if r.pool == nil {
		return model.TestAttempt{}, fmt.Errorf("postgres pool is nil")
	}
	if attemptID <= 0 {
		return model.TestAttempt{}, fmt.Errorf("invalid attempt id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out model.TestAttempt
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		attempt, err := scanAttempt(tx.QueryRow(txCtx, `
SELECT `+attemptColumns+`
FROM test_attempts
WHERE id = $1
FOR UPDATE
`, attemptID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("lock test attempt: %w", err)
		}

		if attempt.Status != enums.AttemptStatusInProgress {
			return ErrAttemptFinished
		}

		for _, a := range answers {
			if _, err := tx.Exec(txCtx, `
INSERT INTO test_answers (attempt_id, question_id, answer_id, answer_text, is_correct, points_earned, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NOW())
`, attemptID, a.QuestionID, a.AnswerID, a.AnswerText, a.IsCorrect, a.PointsEarned); err != nil {
				return fmt.Errorf("store attempt answer: %w", err)
			}
		}

		status := enums.AttemptStatusGraded
		var gradedAt *time.Time
		if result.NeedsReview {
			status = enums.AttemptStatusNeedsReview
		} else {
			at := now.UTC()
			gradedAt = &at
		}

		updated, err := scanAttempt(tx.QueryRow(txCtx, `
UPDATE test_attempts
SET
	status = $2,
	completed_at = $3,
	graded_at = $4,
	score = $5,
	max_score = $6,
	percent = $7,
	is_passed = CASE WHEN $2 = 'graded' THEN $8 ELSE NULL END,
	updated_at = NOW()
WHERE id = $1
RETURNING `+attemptColumns+`
`, attemptID, string(status), now.UTC(), gradedAt, result.Score, result.MaxScore, result.Percent, result.IsPassed))
		if err != nil {
			return fmt.Errorf("finish test attempt: %w", err)
		}

		out = updated
		return nil
	})
	if err != nil {
		return model.TestAttempt{}, err
	}

	return out, nil
}

// GradeManual applies curator scores to text answers and finalizes the
// attempt.
func (r *AttemptRepo) GradeManual(ctx context.Context, attemptID int64, points map[int64]int, result SubmitAttemptResult, now time.Time) (model.TestAttempt, error) {
	if r.pool == nil {
		return model.TestAttempt{}, fmt.Errorf("postgres pool is nil")
	}
	if attemptID <= 0 {
		return model.TestAttempt{}, fmt.Errorf("invalid attempt id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out model.TestAttempt
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		attempt, err := scanAttempt(tx.QueryRow(txCtx, `
SELECT `+attemptColumns+`
FROM test_attempts
WHERE id = $1
FOR UPDATE
`, attemptID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("lock test attempt: %w", err)
		}

		if attempt.Status != enums.AttemptStatusNeedsReview {
			return ErrAttemptFinished
		}

		for questionID, earned := range points {
			if _, err := tx.Exec(txCtx, `
UPDATE test_answers
SET points_earned = $3, is_correct = $3 > 0
WHERE attempt_id = $1
  AND question_id = $2
`, attemptID, questionID, earned); err != nil {
				return fmt.Errorf("apply manual points: %w", err)
			}
		}

		updated, err := scanAttempt(tx.QueryRow(txCtx, `
UPDATE test_attempts
SET
	status = 'graded',
	graded_at = $2,
	score = $3,
	max_score = $4,
	percent = $5,
	is_passed = $6,
	updated_at = NOW()
WHERE id = $1
RETURNING `+attemptColumns+`
`, attemptID, now.UTC(), result.Score, result.MaxScore, result.Percent, result.IsPassed))
		if err != nil {
			return fmt.Errorf("finalize manual grading: %w", err)
		}

		out = updated
		return nil
	})
	if err != nil {
		return model.TestAttempt{}, err
	}

	return out, nil
}

func (r *AttemptRepo) ListAnswers(ctx context.Context, attemptID int64) ([]model.TestAnswer, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if attemptID <= 0 {
		return nil, fmt.Errorf("invalid attempt id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, attempt_id, question_id, answer_id, answer_text, is_correct, points_earned
FROM test_answers
WHERE attempt_id = $1
ORDER BY id
`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list attempt answers: %w", err)
	}
	defer rows.Close()

	var answers []model.TestAnswer
	for rows.Next() {
		var (
			ans        model.TestAnswer
			answerText *string
		)
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &ans.AnswerID, &answerText, &ans.IsCorrect, &ans.PointsEarned); err != nil {
			return nil, fmt.Errorf("scan attempt answer row: %w", err)
		}
		if answerText != nil {
			ans.AnswerText = *answerText
		}
		answers = append(answers, ans)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt answer rows: %w", err)
	}

	return answers, nil
}

func scanAttempt(row pgx.Row) (model.TestAttempt, error) {
	var (
		attempt model.TestAttempt
		status  string
	)
	if err := row.Scan(
		&attempt.ID,
		&attempt.TestID,
		&attempt.StudentID,
		&attempt.AttemptNumber,
		&status,
		&attempt.StartedAt,
		&attempt.CompletedAt,
		&attempt.GradedAt,
		&attempt.Score,
		&attempt.MaxScore,
		&attempt.Percent,
		&attempt.IsPassed,
	); err != nil {
		return model.TestAttempt{}, err
	}
	attempt.Status = enums.AttemptStatus(status)
	return attempt, nil
}
