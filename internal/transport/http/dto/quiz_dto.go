package dto

type TestRequest struct {
	LessonID         int64  `json:"lesson_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Instructions     string `json:"instructions"`
	TimeLimitMinutes *int   `json:"time_limit_minutes,omitempty"`
	PassingScore     int    `json:"passing_score"`
	MaxAttempts      int    `json:"max_attempts"`
	ShuffleQuestions bool   `json:"shuffle_questions"`
	ShowResults      bool   `json:"show_results"`
}

type AnswerOptionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionRequest struct {
	Text       string                `json:"text"`
	Type       string                `json:"type"`
	Points     int                   `json:"points"`
	OrderIndex int                   `json:"order_index"`
	IsRequired bool                  `json:"is_required"`
	Answers    []AnswerOptionRequest `json:"answers"`
}

type SubmittedAnswerRequest struct {
	QuestionID int64   `json:"question_id"`
	AnswerIDs  []int64 `json:"answer_ids,omitempty"`
	Text       string  `json:"text,omitempty"`
}

type SubmitAttemptRequest struct {
	Answers []SubmittedAnswerRequest `json:"answers"`
}

type GradeAttemptRequest struct {
	Points map[int64]int `json:"points"`
}
