package handlers

import (
	"errors"
	"net/http"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	accesssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/access"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

type AccessHandler struct {
	service *accesssvc.Service
}

func NewAccessHandler(service *accesssvc.Service) *AccessHandler {
	return &AccessHandler{service: service}
}

func (h *AccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCESS_SERVICE_UNAVAILABLE", "access service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req dto.GrantAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	access, err := h.service.GrantManual(r.Context(), req.UserID, req.CourseID, caller.UserID, req.ExpiresAt)
	if err != nil {
		handleAccessError(w, err)
		return
	}
	writeCreated(w, access)
}

func (h *AccessHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCESS_SERVICE_UNAVAILABLE", "access service is unavailable")
		return
	}
	accessID, ok := pathID(r, "accessID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "access id must be a positive integer")
		return
	}

	access, err := h.service.Revoke(r.Context(), accessID)
	if err != nil {
		handleAccessError(w, err)
		return
	}
	writeOK(w, access)
}

func (h *AccessHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCESS_SERVICE_UNAVAILABLE", "access service is unavailable")
		return
	}
	accessID, ok := pathID(r, "accessID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "access id must be a positive integer")
		return
	}

	access, err := h.service.Suspend(r.Context(), accessID)
	if err != nil {
		handleAccessError(w, err)
		return
	}
	writeOK(w, access)
}

func (h *AccessHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCESS_SERVICE_UNAVAILABLE", "access service is unavailable")
		return
	}
	accessID, ok := pathID(r, "accessID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "access id must be a positive integer")
		return
	}

	access, err := h.service.Resume(r.Context(), accessID)
	if err != nil {
		handleAccessError(w, err)
		return
	}
	writeOK(w, access)
}

// Mine lists the caller's own course grants.
func (h *AccessHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCESS_SERVICE_UNAVAILABLE", "access service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListForUser(r.Context(), caller.UserID)
	if err != nil {
		handleAccessError(w, err)
		return
	}
	writeOK(w, list)
}

func (h *AccessHandler) ListForCourse(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCESS_SERVICE_UNAVAILABLE", "access service is unavailable")
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	list, err := h.service.ListForCourse(r.Context(), courseID,
		enums.AccessStatus(r.URL.Query().Get("status")),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		handleAccessError(w, err)
		return
	}
	writeOK(w, list)
}

func handleAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accesssvc.ErrNotFound):
		writeNotFound(w, "ACCESS_NOT_FOUND", "access grant not found")
	case errors.Is(err, accesssvc.ErrAlreadyActive):
		writeConflict(w, "ALREADY_ACTIVE", "access is already active")
	case errors.Is(err, accesssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
