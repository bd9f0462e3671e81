package handlers

import (
	"errors"
	"net/http"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	coursessvc "github.com/Pavlentius2007/school-photobusiness/internal/services/courses"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"

	"github.com/go-chi/chi/v5"
)

type CourseHandler struct {
	service *coursessvc.Service
}

func NewCourseHandler(service *coursessvc.Service) *CourseHandler {
	return &CourseHandler{service: service}
}

func (h *CourseHandler) actor(w http.ResponseWriter, r *http.Request) (coursessvc.Actor, bool) {
	caller, ok := identity(w, r)
	if !ok {
		return coursessvc.Actor{}, false
	}
	return coursessvc.Actor{UserID: caller.UserID, Role: roleOf(caller)}, true
}

// Catalog is the public published-course listing.
func (h *CourseHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}

	courses, err := h.service.Catalog(r.Context())
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, courses)
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	course, err := h.service.Get(r.Context(), courseID)
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, course)
}

func (h *CourseHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "slug is required")
		return
	}

	course, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, course)
}

// List is the staff listing with status and curator filters. Curators
// only see their own courses.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	params := pgrepo.ListCoursesParams{
		Status: enums.CourseStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if r.URL.Query().Get("featured") != "" {
		featured := queryBool(r, "featured")
		params.Featured = &featured
	}

	courses, err := h.service.List(r.Context(), actor, params)
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, courses)
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.CourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	course, err := h.service.Create(r.Context(), actor, courseInput(req))
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeCreated(w, course)
}

func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	var req dto.CourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	course, err := h.service.Update(r.Context(), actor, courseID, courseInput(req))
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, course)
}

func (h *CourseHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	var req dto.SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.SetStatus(r.Context(), actor, courseID, enums.CourseStatus(req.Status)); err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	if err := h.service.Delete(r.Context(), actor, courseID); err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *CourseHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	modules, err := h.service.ListModules(r.Context(), courseID)
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, modules)
}

func (h *CourseHandler) AddModule(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "course id must be a positive integer")
		return
	}

	var req dto.ModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	courseModule, err := h.service.AddModule(r.Context(), actor, courseID, moduleInput(req))
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeCreated(w, courseModule)
}

func (h *CourseHandler) UpdateModule(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	moduleID, ok := pathID(r, "moduleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "module id must be a positive integer")
		return
	}

	var req dto.ModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	courseModule, err := h.service.UpdateModule(r.Context(), actor, moduleID, moduleInput(req))
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, courseModule)
}

func (h *CourseHandler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	moduleID, ok := pathID(r, "moduleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "module id must be a positive integer")
		return
	}

	if err := h.service.DeleteModule(r.Context(), actor, moduleID); err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *CourseHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	moduleID, ok := pathID(r, "moduleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "module id must be a positive integer")
		return
	}

	lessons, err := h.service.ListLessons(r.Context(), moduleID)
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, lessons)
}

func (h *CourseHandler) AddLesson(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	moduleID, ok := pathID(r, "moduleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "module id must be a positive integer")
		return
	}

	var req dto.LessonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	lesson, err := h.service.AddLesson(r.Context(), actor, moduleID, lessonInput(req))
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeCreated(w, lesson)
}

func (h *CourseHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "lesson id must be a positive integer")
		return
	}

	var req dto.LessonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	lesson, err := h.service.UpdateLesson(r.Context(), actor, lessonID, lessonInput(req))
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, lesson)
}

func (h *CourseHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "lesson id must be a positive integer")
		return
	}

	if err := h.service.DeleteLesson(r.Context(), actor, lessonID); err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

// LessonContent returns the full lesson body. Free lessons are open,
// the rest require active course access.
func (h *CourseHandler) LessonContent(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COURSE_SERVICE_UNAVAILABLE", "course service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "lesson id must be a positive integer")
		return
	}

	lesson, err := h.service.GetLessonContent(r.Context(), actor, lessonID)
	if err != nil {
		handleCourseError(w, err)
		return
	}
	writeOK(w, lesson)
}

func courseInput(req dto.CourseRequest) coursessvc.CourseInput {
	return coursessvc.CourseInput{
		Title:         req.Title,
		Slug:          req.Slug,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Price:         req.Price,
		Currency:      req.Currency,
		DurationHours: req.DurationHours,
		IsFeatured:    req.IsFeatured,
		MaxStudents:   req.MaxStudents,
		Requirements:  req.Requirements,
		Outcomes:      req.Outcomes,
		CuratorID:     req.CuratorID,
	}
}

func moduleInput(req dto.ModuleRequest) coursessvc.ModuleInput {
	return coursessvc.ModuleInput{
		Title:          req.Title,
		Description:    req.Description,
		OrderIndex:     req.OrderIndex,
		IsRequired:     req.IsRequired,
		EstimatedHours: req.EstimatedHours,
	}
}

func lessonInput(req dto.LessonRequest) coursessvc.LessonInput {
	return coursessvc.LessonInput{
		Title:           req.Title,
		Content:         req.Content,
		Type:            enums.LessonType(req.Type),
		VideoURL:        req.VideoURL,
		FileKey:         req.FileKey,
		OrderIndex:      req.OrderIndex,
		DurationMinutes: req.DurationMinutes,
		IsFree:          req.IsFree,
	}
}

func handleCourseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coursessvc.ErrNotFound):
		writeNotFound(w, "COURSE_NOT_FOUND", "course not found")
	case errors.Is(err, coursessvc.ErrSlugTaken):
		writeConflict(w, "SLUG_TAKEN", "slug is already in use")
	case errors.Is(err, coursessvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "operation not allowed")
	case errors.Is(err, coursessvc.ErrAccessRequired):
		writeForbidden(w, "ACCESS_REQUIRED", "course access required")
	case errors.Is(err, coursessvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
