package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	activitysvc "github.com/Pavlentius2007/school-photobusiness/internal/services/activity"
)

type ActivityHandler struct {
	service *activitysvc.Service
}

func NewActivityHandler(service *activitysvc.Service) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACTIVITY_SERVICE_UNAVAILABLE", "activity service is unavailable")
		return
	}

	f := activitysvc.Filter{
		UserID:   int64(queryInt(r, "user_id", 0)),
		Type:     enums.ActivityType(r.URL.Query().Get("type")),
		CourseID: int64(queryInt(r, "course_id", 0)),
		Limit:    queryInt(r, "limit", 100),
		Offset:   queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "since must be RFC3339")
			return
		}
		f.Since = &since
	}

	logs, err := h.service.List(r.Context(), f)
	if err != nil {
		handleActivityError(w, err)
		return
	}
	writeOK(w, logs)
}

// Stats returns per-type event counts since the given time, default
// the last 30 days.
func (h *ActivityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACTIVITY_SERVICE_UNAVAILABLE", "activity service is unavailable")
		return
	}

	since := time.Now().AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "since must be RFC3339")
			return
		}
		since = parsed
	}

	stats, err := h.service.Stats(r.Context(), since)
	if err != nil {
		handleActivityError(w, err)
		return
	}
	writeOK(w, stats)
}

func handleActivityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, activitysvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
