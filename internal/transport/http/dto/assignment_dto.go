package dto

import "time"

type AssignmentRequest struct {
	LessonID     int64      `json:"lesson_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Instructions string     `json:"instructions"`
	Type         string     `json:"type"`
	MaxScore     int        `json:"max_score"`
	DueAt        *time.Time `json:"due_at,omitempty"`
}

type SubmitAssignmentRequest struct {
	Content string `json:"content"`
	FileKey string `json:"file_key"`
}

type GradeSubmissionRequest struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}
