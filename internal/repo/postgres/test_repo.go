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

var (
	ErrTestNotFound     = errors.New("test not found")
	ErrQuestionNotFound = errors.New("question not found")
)

type TestRepo struct {
	pool *pgxpool.Pool
}

func NewTestRepo(pool *pgxpool.Pool) *TestRepo {
	return &TestRepo{pool: pool}
}

const testColumns = `id, lesson_id, created_by, title, description, instructions, status, time_limit_minutes, passing_score, max_attempts, shuffle_questions, show_results, created_at, updated_at`

type CreateTestParams struct {
	LessonID         int64
	CreatedBy        int64
	Title            string
	Description      string
	Instructions     string
	TimeLimitMinutes *int
	PassingScore     int
	MaxAttempts      int
	ShuffleQuestions bool
	ShowResults      bool
}

func (r *TestRepo) Create(ctx context.Context, p CreateTestParams) (model.Test, error) {
	if r.pool == nil {
		return model.Test{}, fmt.Errorf("postgres pool is nil")
	}
	if p.LessonID <= 0 || p.CreatedBy <= 0 || strings.TrimSpace(p.Title) == "" {
		return model.Test{}, fmt.Errorf("invalid test create payload")
	}
	if p.PassingScore < 0 || p.PassingScore > 100 {
		return model.Test{}, fmt.Errorf("passing score out of range")
	}

	test, err := scanTest(r.pool.QueryRow(ctx, `
INSERT INTO tests (lesson_id, created_by, title, description, instructions, status, time_limit_minutes, passing_score, max_attempts, shuffle_questions, show_results, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 'draft', $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING `+testColumns+`
`, p.LessonID, p.CreatedBy, strings.TrimSpace(p.Title), p.Description, p.Instructions, p.TimeLimitMinutes, p.PassingScore, p.MaxAttempts, p.ShuffleQuestions, p.ShowResults))
	if err != nil {
		return model.Test{}, fmt.Errorf("create test: %w", err)
	}

	return test, nil
}

func (r *TestRepo) FindByID(ctx context.Context, testID int64) (model.Test, error) {
	if r.pool == nil {
		return model.Test{}, fmt.Errorf("postgres pool is nil")
	}
	if testID <= 0 {
		return model.Test{}, fmt.Errorf("invalid test id")
	}

	test, err := scanTest(r.pool.QueryRow(ctx, `
SELECT `+testColumns+`
FROM tests
WHERE id = $1
`, testID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Test{}, ErrTestNotFound
		}
		return model.Test{}, fmt.Errorf("find test by id: %w", err)
	}

	return test, nil
}

func (r *TestRepo) ListByLesson(ctx context.Context, lessonID int64) ([]model.Test, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if lessonID <= 0 {
		return nil, fmt.Errorf("invalid lesson id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+testColumns+`
FROM tests
WHERE lesson_id = $1
ORDER BY id
`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list tests by lesson: %w", err)
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test row: %w", err)
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test rows: %w", err)
	}

	return tests, nil
}

func (r *TestRepo) Update(ctx context.Context, testID int64, p CreateTestParams) (model.Test, error) {
	if r.pool == nil {
		return model.Test{}, fmt.Errorf("postgres pool is nil")
	}
	if testID <= 0 || strings.TrimSpace(p.Title) == "" {
		return model.Test{}, fmt.Errorf("invalid test update payload")
	}
	if p.PassingScore < 0 || p.PassingScore > 100 {
		return model.Test{}, fmt.Errorf("passing score out of range")
	}

	test, err := scanTest(r.pool.QueryRow(ctx, `
UPDATE tests
SET title = $2, description = $3, instructions = $4, time_limit_minutes = $5, passing_score = $6, max_attempts = $7, shuffle_questions = $8, show_results = $9, updated_at = NOW()
WHERE id = $1
RETURNING `+testColumns+`
`, testID, strings.TrimSpace(p.Title), p.Description, p.Instructions, p.TimeLimitMinutes, p.PassingScore, p.MaxAttempts, p.ShuffleQuestions, p.ShowResults))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Test{}, ErrTestNotFound
		}
		return model.Test{}, fmt.Errorf("update test: %w", err)
	}

	return test, nil
}

func (r *TestRepo) SetStatus(ctx context.Context, testID int64, status enums.TestStatus) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if testID <= 0 {
		return fmt.Errorf("invalid test id")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE tests
SET status = $2, updated_at = NOW()
WHERE id = $1
`, testID, string(status))
	if err != nil {
		return fmt.Errorf("set test status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}

	return nil
}

func (r *TestRepo) Delete(ctx context.Context, testID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if testID <= 0 {
		return fmt.Errorf("invalid test id")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM tests
WHERE id = $1
`, testID)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}

	return nil
}

type CreateQuestionParams struct {
	TestID     int64
	Text       string
	Type       enums.QuestionType
	Points     int
	OrderIndex int
	IsRequired bool
	Answers    []CreateAnswerParams
}

type CreateAnswerParams struct {
	Text       string
	IsCorrect  bool
	OrderIndex int
}

// CreateQuestion inserts the question and its options atomically.
func (r *TestRepo) CreateQuestion(ctx context.Context, p CreateQuestionParams) (model.Question, error) {
	if r.pool == nil {
		return model.Question{}, fmt.Errorf("postgres pool is nil")
	}
	if p.TestID <= 0 || strings.TrimSpace(p.Text) == "" || !p.Type.Valid() {
		return model.Question{}, fmt.Errorf("invalid question create payload")
	}
	if p.Points <= 0 {
		p.Points = 1
	}

	var out model.Question
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(txCtx, `
INSERT INTO questions (test_id, text, question_type, points, order_index, is_required, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING id, test_id, text, question_type, points, order_index, is_required
`, p.TestID, strings.TrimSpace(p.Text), string(p.Type), p.Points, p.OrderIndex, p.IsRequired).Scan(
			&out.ID, &out.TestID, &out.Text, &out.Type, &out.Points, &out.OrderIndex, &out.IsRequired,
		)
		if err != nil {
			return fmt.Errorf("create question: %w", err)
		}

		for _, a := range p.Answers {
			var ans model.Answer
			err := tx.QueryRow(txCtx, `
INSERT INTO answers (question_id, text, is_correct, order_index, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING id, question_id, text, is_correct, order_index
`, out.ID, strings.TrimSpace(a.Text), a.IsCorrect, a.OrderIndex).Scan(
				&ans.ID, &ans.QuestionID, &ans.Text, &ans.IsCorrect, &ans.OrderIndex,
			)
			if err != nil {
				return fmt.Errorf("create answer option: %w", err)
			}
			out.Answers = append(out.Answers, ans)
		}

		return nil
	})
	if err != nil {
		return model.Question{}, err
	}

	return out, nil
}

// ListQuestions returns questions with their options, correct flags
// included. Callers decide what to expose to students.
func (r *TestRepo) ListQuestions(ctx context.Context, testID int64) ([]model.Question, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if testID <= 0 {
		return nil, fmt.Errorf("invalid test id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, test_id, text, question_type, points, order_index, is_required
FROM questions
WHERE test_id = $1
ORDER BY order_index, id
`, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var (
		questions []model.Question
		byID      = map[int64]int{}
	)
	for rows.Next() {
		var (
			q     model.Question
			qType string
		)
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &qType, &q.Points, &q.OrderIndex, &q.IsRequired); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		q.Type = enums.QuestionType(qType)
		byID[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question rows: %w", err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	answerRows, err := r.pool.Query(ctx, `
SELECT a.id, a.question_id, a.text, a.is_correct, a.order_index
FROM answers a
JOIN questions q ON q.id = a.question_id
WHERE q.test_id = $1
ORDER BY a.order_index, a.id
`, testID)
	if err != nil {
		return nil, fmt.Errorf("list answer options: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var ans model.Answer
		if err := answerRows.Scan(&ans.ID, &ans.QuestionID, &ans.Text, &ans.IsCorrect, &ans.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan answer row: %w", err)
		}
		if idx, ok := byID[ans.QuestionID]; ok {
			questions[idx].Answers = append(questions[idx].Answers, ans)
		}
	}
	if err := answerRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer rows: %w", err)
	}

	return questions, nil
}

func (r *TestRepo) DeleteQuestion(ctx context.Context, questionID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if questionID <= 0 {
		return fmt.Errorf("invalid question id")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM questions
WHERE id = $1
`, questionID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}

	return nil
}

func scanTest(row pgx.Row) (model.Test, error) {
	var (
		test         model.Test
		status       string
		description  *string
		instructions *string
	)
	if err := row.Scan(
		&test.ID,
		&test.LessonID,
		&test.CreatedBy,
		&test.Title,
		&description,
		&instructions,
		&status,
		&test.TimeLimitMinutes,
		&test.PassingScore,
		&test.MaxAttempts,
		&test.ShuffleQuestions,
		&test.ShowResults,
		&test.CreatedAt,
		&test.UpdatedAt,
	); err != nil {
		return model.Test{}, err
	}
	test.Status = enums.TestStatus(status)
	if description != nil {
		test.Description = *description
	}
	if instructions != nil {
		test.Instructions = *instructions
	}
	return test, nil
}

