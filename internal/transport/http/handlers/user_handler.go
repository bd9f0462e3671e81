package handlers

import (
	"errors"
	"net/http"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	userssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/users"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

type UserHandler struct {
	service *userssvc.Service
}

func NewUserHandler(service *userssvc.Service) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), caller.UserID)
	if err != nil {
		handleUserError(w, err)
		return
	}
	writeOK(w, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), caller.UserID, userssvc.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		handleUserError(w, err)
		return
	}
	writeOK(w, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	role := enums.Role(r.URL.Query().Get("role"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	users, err := h.service.List(r.Context(), role, limit, offset)
	if err != nil {
		handleUserError(w, err)
		return
	}
	writeOK(w, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "user id must be a positive integer")
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleUserError(w, err)
		return
	}
	writeOK(w, user)
}

func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "user id must be a positive integer")
		return
	}

	var req dto.ChangeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.ChangeRole(r.Context(), userID, enums.Role(req.Role)); err != nil {
		handleUserError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "user id must be a positive integer")
		return
	}

	var req dto.SetActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.SetActive(r.Context(), userID, req.IsActive); err != nil {
		handleUserError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

// LinkCode issues a one-time code the caller sends to the bot via
// /start to bind their telegram chat.
func (h *UserHandler) LinkCode(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	code, expiresAt, err := h.service.IssueLinkCode(r.Context(), caller.UserID)
	if err != nil {
		handleUserError(w, err)
		return
	}
	writeOK(w, dto.LinkCodeResponse{Code: code, ExpiresAt: expiresAt})
}

func handleUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userssvc.ErrNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, userssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
