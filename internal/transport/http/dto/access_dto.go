package dto

import "time"

type GrantAccessRequest struct {
	UserID    int64      `json:"user_id"`
	CourseID  int64      `json:"course_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
