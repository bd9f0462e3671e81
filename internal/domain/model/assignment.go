package model

import (
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

type Assignment struct {
	ID           int64                  `json:"id"`
	LessonID     int64                  `json:"lesson_id"`
	CreatedBy    int64                  `json:"created_by"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description,omitempty"`
	Instructions string                 `json:"instructions,omitempty"`
	Type         enums.AssignmentType   `json:"assignment_type"`
	Status       enums.AssignmentStatus `json:"status"`
	MaxScore     int                    `json:"max_score"`
	DueAt        *time.Time             `json:"due_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type Submission struct {
	ID           int64                  `json:"id"`
	AssignmentID int64                  `json:"assignment_id"`
	StudentID    int64                  `json:"student_id"`
	Content      string                 `json:"content,omitempty"`
	FileKey      string                 `json:"file_key,omitempty"`
	Status       enums.SubmissionStatus `json:"status"`
	Score        *int                   `json:"score,omitempty"`
	Feedback     string                 `json:"feedback,omitempty"`
	GradedBy     *int64                 `json:"graded_by,omitempty"`
	SubmittedAt  time.Time              `json:"submitted_at"`
	GradedAt     *time.Time             `json:"graded_at,omitempty"`
}
