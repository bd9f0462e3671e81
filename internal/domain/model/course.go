package model

import (
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

type Course struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	Slug          string             `json:"slug"`
	Description   string             `json:"description,omitempty"`
	ImageURL      string             `json:"image_url,omitempty"`
	Price         int64              `json:"price"` // minor units
	Currency      string             `json:"currency"`
	DurationHours int                `json:"duration_hours"`
	Status        enums.CourseStatus `json:"status"`
	IsFeatured    bool               `json:"is_featured"`
	MaxStudents   *int               `json:"max_students,omitempty"`
	Requirements  string             `json:"requirements,omitempty"`
	Outcomes      string             `json:"outcomes,omitempty"`
	CuratorID     int64              `json:"curator_id"`
	PublishedAt   *time.Time         `json:"published_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type CourseModule struct {
	ID             int64     `json:"id"`
	CourseID       int64     `json:"course_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	OrderIndex     int       `json:"order_index"`
	IsRequired     bool      `json:"is_required"`
	EstimatedHours int       `json:"estimated_hours"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Lesson struct {
	ID              int64            `json:"id"`
	ModuleID        int64            `json:"module_id"`
	Title           string           `json:"title"`
	Content         string           `json:"content,omitempty"`
	Type            enums.LessonType `json:"lesson_type"`
	VideoURL        string           `json:"video_url,omitempty"`
	FileKey         string           `json:"file_key,omitempty"`
	OrderIndex      int              `json:"order_index"`
	DurationMinutes int              `json:"duration_minutes"`
	IsFree          bool             `json:"is_free"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type CourseProgress struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	CourseID         int64      `json:"course_id"`
	CompletedLessons int        `json:"completed_lessons"`
	TotalLessons     int        `json:"total_lessons"`
	Percentage       float64    `json:"percentage"`
	LastAccessedAt   *time.Time `json:"last_accessed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type LessonProgress struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	LessonID         int64      `json:"lesson_id"`
	IsCompleted      bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TimeSpentMinutes int        `json:"time_spent_minutes"`
	LastPosition     int        `json:"last_position"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
