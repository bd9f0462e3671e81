package model

import (
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

type Test struct {
	ID               int64            `json:"id"`
	LessonID         int64            `json:"lesson_id"`
	CreatedBy        int64            `json:"created_by"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Instructions     string           `json:"instructions,omitempty"`
	Status           enums.TestStatus `json:"status"`
	TimeLimitMinutes *int             `json:"time_limit_minutes,omitempty"`
	PassingScore     int              `json:"passing_score"` // percent, 0..100
	MaxAttempts      int              `json:"max_attempts"`
	ShuffleQuestions bool             `json:"shuffle_questions"`
	ShowResults      bool             `json:"show_results"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type Question struct {
	ID         int64              `json:"id"`
	TestID     int64              `json:"test_id"`
	Text       string             `json:"text"`
	Type       enums.QuestionType `json:"question_type"`
	Points     int                `json:"points"`
	OrderIndex int                `json:"order_index"`
	IsRequired bool               `json:"is_required"`
	Answers    []Answer           `json:"answers,omitempty"`
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"-"`
	OrderIndex int    `json:"order_index"`
}

type TestAttempt struct {
	ID            int64               `json:"id"`
	TestID        int64               `json:"test_id"`
	StudentID     int64               `json:"student_id"`
	AttemptNumber int                 `json:"attempt_number"`
	Status        enums.AttemptStatus `json:"status"`
	StartedAt     time.Time           `json:"started_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	GradedAt      *time.Time          `json:"graded_at,omitempty"`
	Score         *int                `json:"score,omitempty"`
	MaxScore      *int                `json:"max_score,omitempty"`
	Percent       *int                `json:"percent,omitempty"`
	IsPassed      *bool               `json:"is_passed,omitempty"`
}

// TestAnswer is one selected option or free-text reply inside an
// attempt. Multiple-choice questions produce one row per selection.
type TestAnswer struct {
	ID           int64  `json:"id"`
	AttemptID    int64  `json:"attempt_id"`
	QuestionID   int64  `json:"question_id"`
	AnswerID     *int64 `json:"answer_id,omitempty"`
	AnswerText   string `json:"answer_text,omitempty"`
	IsCorrect    *bool  `json:"is_correct,omitempty"`
	PointsEarned *int   `json:"points_earned,omitempty"`
}
