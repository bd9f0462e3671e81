package dto

type CourseRequest struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	Price         int64  `json:"price"`
	Currency      string `json:"currency"`
	DurationHours int    `json:"duration_hours"`
	IsFeatured    bool   `json:"is_featured"`
	MaxStudents   *int   `json:"max_students,omitempty"`
	Requirements  string `json:"requirements"`
	Outcomes      string `json:"outcomes"`
	CuratorID     int64  `json:"curator_id,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type ModuleRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	OrderIndex     int    `json:"order_index"`
	IsRequired     bool   `json:"is_required"`
	EstimatedHours int    `json:"estimated_hours"`
}

type LessonRequest struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Type            string `json:"type"`
	VideoURL        string `json:"video_url"`
	FileKey         string `json:"file_key"`
	OrderIndex      int    `json:"order_index"`
	DurationMinutes int    `json:"duration_minutes"`
	IsFree          bool   `json:"is_free"`
}

type TrackProgressRequest struct {
	Completed        bool `json:"completed"`
	TimeSpentMinutes int  `json:"time_spent_minutes"`
	LastPosition     int  `json:"last_position"`
}
