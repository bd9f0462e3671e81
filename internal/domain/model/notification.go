package model

import (
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

type Notification struct {
	ID        int64                     `json:"id"`
	UserID    int64                     `json:"user_id"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
	Channel   enums.NotificationChannel `json:"channel"`
	Priority  int                       `json:"priority"`
	IsRead    bool                      `json:"is_read"`
	ReadAt    *time.Time                `json:"read_at,omitempty"`
	Payload   map[string]string         `json:"payload,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
}

type ActivityLog struct {
	ID           int64              `json:"id"`
	UserID       int64              `json:"user_id"`
	ActivityType enums.ActivityType `json:"activity_type"`
	Description  string             `json:"description,omitempty"`
	CourseID     *int64             `json:"course_id,omitempty"`
	LessonID     *int64             `json:"lesson_id,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	IPAddress    string             `json:"ip_address,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}
