package handlers

import (
	"errors"
	"net/http"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	assignmentssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/assignments"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

type AssignmentHandler struct {
	service *assignmentssvc.Service
}

func NewAssignmentHandler(service *assignmentssvc.Service) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

func (h *AssignmentHandler) actor(w http.ResponseWriter, r *http.Request) (assignmentssvc.Actor, bool) {
	caller, ok := identity(w, r)
	if !ok {
		return assignmentssvc.Actor{}, false
	}
	return assignmentssvc.Actor{UserID: caller.UserID, Role: roleOf(caller)}, true
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.AssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	assignment, err := h.service.Create(r.Context(), actor, assignmentInput(req))
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeCreated(w, assignment)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	assignmentID, ok := pathID(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "assignment id must be a positive integer")
		return
	}

	assignment, err := h.service.Get(r.Context(), assignmentID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, assignment)
}

func (h *AssignmentHandler) ListByLesson(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "lesson id must be a positive integer")
		return
	}

	assignments, err := h.service.ListByLesson(r.Context(), lessonID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, assignments)
}

func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	assignmentID, ok := pathID(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "assignment id must be a positive integer")
		return
	}

	var req dto.AssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	assignment, err := h.service.Update(r.Context(), actor, assignmentID, assignmentInput(req))
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, assignment)
}

func (h *AssignmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	assignmentID, ok := pathID(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "assignment id must be a positive integer")
		return
	}

	var req dto.SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.SetStatus(r.Context(), actor, assignmentID, enums.AssignmentStatus(req.Status)); err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	assignmentID, ok := pathID(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "assignment id must be a positive integer")
		return
	}

	if err := h.service.Delete(r.Context(), actor, assignmentID); err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AssignmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	assignmentID, ok := pathID(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "assignment id must be a positive integer")
		return
	}

	var req dto.SubmitAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	submission, err := h.service.Submit(r.Context(), caller.UserID, assignmentID, assignmentssvc.SubmissionInput{
		Content: req.Content,
		FileKey: req.FileKey,
	})
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, submission)
}

func (h *AssignmentHandler) MySubmission(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	assignmentID, ok := pathID(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "assignment id must be a positive integer")
		return
	}

	submission, err := h.service.MySubmission(r.Context(), caller.UserID, assignmentID)
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, submission)
}

func (h *AssignmentHandler) Grade(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submissionID, ok := pathID(r, "submissionID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "submission id must be a positive integer")
		return
	}

	var req dto.GradeSubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	submission, err := h.service.Grade(r.Context(), actor, submissionID, assignmentssvc.GradeInput{
		Score:    req.Score,
		Feedback: req.Feedback,
	})
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, submission)
}

func (h *AssignmentHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ASSIGNMENT_SERVICE_UNAVAILABLE", "assignment service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	assignmentID, ok := pathID(r, "assignmentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "assignment id must be a positive integer")
		return
	}

	submissions, err := h.service.ListSubmissions(r.Context(), actor, assignmentID,
		enums.SubmissionStatus(r.URL.Query().Get("status")),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		handleAssignmentError(w, err)
		return
	}
	writeOK(w, submissions)
}

func assignmentInput(req dto.AssignmentRequest) assignmentssvc.AssignmentInput {
	return assignmentssvc.AssignmentInput{
		LessonID:     req.LessonID,
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		Type:         enums.AssignmentType(req.Type),
		MaxScore:     req.MaxScore,
		DueAt:        req.DueAt,
	}
}

func handleAssignmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assignmentssvc.ErrNotFound):
		writeNotFound(w, "ASSIGNMENT_NOT_FOUND", "assignment or submission not found")
	case errors.Is(err, assignmentssvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "operation not allowed")
	case errors.Is(err, assignmentssvc.ErrAccessRequired):
		writeForbidden(w, "ACCESS_REQUIRED", "course access required")
	case errors.Is(err, assignmentssvc.ErrNotAccepting):
		writeConflict(w, "NOT_ACCEPTING", "assignment is not accepting submissions")
	case errors.Is(err, assignmentssvc.ErrAlreadyGraded):
		writeConflict(w, "ALREADY_GRADED", "submission is already graded")
	case errors.Is(err, assignmentssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
