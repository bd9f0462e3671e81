package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	coursessvc "github.com/Pavlentius2007/school-photobusiness/internal/services/courses"
	httperrors "github.com/Pavlentius2007/school-photobusiness/internal/transport/http/errors"
)

func TestCatalogReturnsPublishedCourses(t *testing.T) {
	store := &courseTestStore{
		courses: map[int64]model.Course{
			1: {ID: 1, Title: "Съёмка выпускных альбомов", Slug: "albums", Status: enums.CourseStatusPublished},
			2: {ID: 2, Title: "Черновик", Slug: "draft", Status: enums.CourseStatusDraft},
		},
	}
	service := coursessvc.NewService(store, nil, nil, nil, nil, nil)
	handler := NewCourseHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	rr := httptest.NewRecorder()
	handler.Catalog(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d, body %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var courses []model.Course
	if err := json.Unmarshal(rr.Body.Bytes(), &courses); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("catalog must list only published courses, got %d", len(courses))
	}
	if courses[0].Slug != "albums" {
		t.Fatalf("unexpected course: %+v", courses[0])
	}
}

func TestGetCourseMapsMissingCourseToNotFound(t *testing.T) {
	service := coursessvc.NewService(&courseTestStore{}, nil, nil, nil, nil, nil)
	handler := NewCourseHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/999", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseID", "999")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}

	var apiErr httperrors.APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if apiErr.Code != "COURSE_NOT_FOUND" {
		t.Fatalf("unexpected error code: got %q want %q", apiErr.Code, "COURSE_NOT_FOUND")
	}
}

func TestGetCourseRejectsBadPathID(t *testing.T) {
	service := coursessvc.NewService(&courseTestStore{}, nil, nil, nil, nil, nil)
	handler := NewCourseHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/abc", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseID", "abc")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

type courseTestStore struct {
	courses map[int64]model.Course
}

func (s *courseTestStore) Create(_ context.Context, p pgrepo.CreateCourseParams) (model.Course, error) {
	return model.Course{ID: 100, Title: p.Title, Slug: p.Slug, Status: enums.CourseStatusDraft}, nil
}

func (s *courseTestStore) FindByID(_ context.Context, courseID int64) (model.Course, error) {
	course, ok := s.courses[courseID]
	if !ok {
		return model.Course{}, pgrepo.ErrCourseNotFound
	}
	return course, nil
}

func (s *courseTestStore) FindBySlug(_ context.Context, slug string) (model.Course, error) {
	for _, course := range s.courses {
		if course.Slug == slug {
			return course, nil
		}
	}
	return model.Course{}, pgrepo.ErrCourseNotFound
}

func (s *courseTestStore) List(_ context.Context, p pgrepo.ListCoursesParams) ([]model.Course, error) {
	var out []model.Course
	for _, course := range s.courses {
		if p.Status != "" && course.Status != p.Status {
			continue
		}
		out = append(out, course)
	}
	return out, nil
}

func (s *courseTestStore) Update(_ context.Context, courseID int64, _ pgrepo.UpdateCourseParams) (model.Course, error) {
	return s.FindByID(context.Background(), courseID)
}

func (s *courseTestStore) SetStatus(context.Context, int64, enums.CourseStatus) error {
	return nil
}

func (s *courseTestStore) Delete(context.Context, int64) error {
	return nil
}
