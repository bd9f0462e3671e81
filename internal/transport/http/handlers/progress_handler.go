package handlers

import (
	"errors"
	"net/http"

	progresssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/progress"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

type ProgressHandler struct {
	service *progresssvc.Service
}

func NewProgressHandler(service *progresssvc.Service) *ProgressHandler {
	return &ProgressHandler{service: service}
}

func (h *ProgressHandler) Track(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PROGRESS_SERVICE_UNAVAILABLE", "progress service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "lesson id must be a positive integer")
		return
	}

	var req dto.TrackProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	lp, err := h.service.Track(r.Context(), caller.UserID, progresssvc.TrackInput{
		LessonID:         lessonID,
		Completed:        req.Completed,
		TimeSpentMinutes: req.TimeSpentMinutes,
		LastPosition:     req.LastPosition,
	})
	if err != nil {
		handleProgressError(w, err)
		return
	}
	writeOK(w, lp)
}

func (h *ProgressHandler) MyCourses(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PROGRESS_SERVICE_UNAVAILABLE", "progress service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	list, err := h.service.MyCourses(r.Context(), caller.UserID)
	if err != nil {
		handleProgressError(w, err)
		return
	}
	writeOK(w, list)
}

func (h *ProgressHandler) CourseProgress(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PROGRESS_SERVICE_UNAVAILABLE", "progress service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	cp, err := h.service.CourseProgress(r.Context(), caller.UserID, courseID)
	if err != nil {
		handleProgressError(w, err)
		return
	}
	writeOK(w, cp)
}

func (h *ProgressHandler) CourseLessons(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PROGRESS_SERVICE_UNAVAILABLE", "progress service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	list, err := h.service.Lessons(r.Context(), caller.UserID, courseID)
	if err != nil {
		handleProgressError(w, err)
		return
	}
	writeOK(w, list)
}

func handleProgressError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progresssvc.ErrNotFound):
		writeNotFound(w, "PROGRESS_NOT_FOUND", "no progress recorded")
	case errors.Is(err, progresssvc.ErrAccessRequired):
		writeForbidden(w, "ACCESS_REQUIRED", "course access required")
	case errors.Is(err, progresssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
