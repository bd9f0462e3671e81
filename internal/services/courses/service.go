package courses

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("course not found")
	ErrForbidden      = errors.New("forbidden")
	ErrSlugTaken      = errors.New("slug already taken")
	ErrAccessRequired = errors.New("course access required")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type CourseStore interface {
	Create(ctx context.Context, p pgrepo.CreateCourseParams) (model.Course, error)
	FindByID(ctx context.Context, courseID int64) (model.Course, error)
	FindBySlug(ctx context.Context, slug string) (model.Course, error)
	List(ctx context.Context, p pgrepo.ListCoursesParams) ([]model.Course, error)
	Update(ctx context.Context, courseID int64, p pgrepo.UpdateCourseParams) (model.Course, error)
	SetStatus(ctx context.Context, courseID int64, status enums.CourseStatus) error
	Delete(ctx context.Context, courseID int64) error
}

type ModuleStore interface {
	Create(ctx context.Context, p pgrepo.CreateModuleParams) (model.CourseModule, error)
	FindByID(ctx context.Context, moduleID int64) (model.CourseModule, error)
	ListByCourse(ctx context.Context, courseID int64) ([]model.CourseModule, error)
	Update(ctx context.Context, moduleID int64, p pgrepo.CreateModuleParams) (model.CourseModule, error)
	Delete(ctx context.Context, moduleID int64) error
}

type LessonStore interface {
	Create(ctx context.Context, p pgrepo.CreateLessonParams) (model.Lesson, error)
	FindByID(ctx context.Context, lessonID int64) (model.Lesson, error)
	ListByModule(ctx context.Context, moduleID int64) ([]model.Lesson, error)
	Update(ctx context.Context, lessonID int64, p pgrepo.CreateLessonParams) (model.Lesson, error)
	Delete(ctx context.Context, lessonID int64) error
	CourseIDForLesson(ctx context.Context, lessonID int64) (int64, error)
}

// AccessChecker reports whether the student holds usable access to a
// course. Implemented by the access service.
type AccessChecker interface {
	HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error)
}

// CatalogCache is optional, a nil cache disables it.
type CatalogCache interface {
	GetPublished(ctx context.Context) ([]model.Course, bool, error)
	SetPublished(ctx context.Context, courses []model.Course) error
	GetCourse(ctx context.Context, courseID int64) (model.Course, bool, error)
	SetCourse(ctx context.Context, course model.Course) error
	Invalidate(ctx context.Context, courseID int64) error
}

type Service struct {
	courses CourseStore
	modules ModuleStore
	lessons LessonStore
	access  AccessChecker
	cache   CatalogCache
	log     *zap.Logger
}

func NewService(courses CourseStore, modules ModuleStore, lessons LessonStore, access AccessChecker, cache CatalogCache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		courses: courses,
		modules: modules,
		lessons: lessons,
		access:  access,
		cache:   cache,
		log:     log,
	}
}

type CourseInput struct {
	Title         string
	Slug          string
	Description   string
	ImageURL      string
	Price         int64
	Currency      string
	DurationHours int
	IsFeatured    bool
	MaxStudents   *int
	Requirements  string
	Outcomes      string
	CuratorID     int64
}

func (s *Service) Create(ctx context.Context, actor Actor, in CourseInput) (model.Course, error) {
	if err := requireCuratorOrAdmin(actor); err != nil {
		return model.Course{}, err
	}
	if err := validateCourseInput(in); err != nil {
		return model.Course{}, err
	}
	curatorID := in.CuratorID
	if curatorID <= 0 || actor.Role != enums.RoleAdmin {
		// Curators always own what they create.
		curatorID = actor.UserID
	}

	course, err := s.courses.Create(ctx, pgrepo.CreateCourseParams{
		Title:         strings.TrimSpace(in.Title),
		Slug:          strings.ToLower(strings.TrimSpace(in.Slug)),
		Description:   in.Description,
		ImageURL:      strings.TrimSpace(in.ImageURL),
		Price:         in.Price,
		Currency:      in.Currency,
		DurationHours: in.DurationHours,
		MaxStudents:   in.MaxStudents,
		Requirements:  in.Requirements,
		Outcomes:      in.Outcomes,
		CuratorID:     curatorID,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrSlugTaken) {
			return model.Course{}, ErrSlugTaken
		}
		return model.Course{}, fmt.Errorf("create course: %w", err)
	}

	s.log.Info("course created",
		zap.Int64("course_id", course.ID),
		zap.Int64("curator_id", course.CuratorID),
		zap.String("slug", course.Slug))

	return course, nil
}

func (s *Service) Get(ctx context.Context, courseID int64) (model.Course, error) {
	if courseID <= 0 {
		return model.Course{}, fmt.Errorf("invalid course id: %w", ErrValidation)
	}

	if s.cache != nil {
		if course, ok, err := s.cache.GetCourse(ctx, courseID); err == nil && ok {
			return course, nil
		}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return model.Course{}, ErrNotFound
		}
		return model.Course{}, fmt.Errorf("find course: %w", err)
	}

	if s.cache != nil && course.Status == enums.CourseStatusPublished {
		if err := s.cache.SetCourse(ctx, course); err != nil {
			s.log.Warn("cache course", zap.Int64("course_id", course.ID), zap.Error(err))
		}
	}

	return course, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (model.Course, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return model.Course{}, fmt.Errorf("slug is required: %w", ErrValidation)
	}

	course, err := s.courses.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return model.Course{}, ErrNotFound
		}
		return model.Course{}, fmt.Errorf("find course by slug: %w", err)
	}

	return course, nil
}

// Catalog lists published courses for the public storefront, cached
// in redis for a few minutes.
func (s *Service) Catalog(ctx context.Context) ([]model.Course, error) {
	if s.cache != nil {
		if courses, ok, err := s.cache.GetPublished(ctx); err == nil && ok {
			return courses, nil
		}
	}

	courses, err := s.courses.List(ctx, pgrepo.ListCoursesParams{
		Status: enums.CourseStatusPublished,
		Limit:  100,
	})
	if err != nil {
		return nil, fmt.Errorf("list published courses: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPublished(ctx, courses); err != nil {
			s.log.Warn("cache catalog", zap.Error(err))
		}
	}

	return courses, nil
}

func (s *Service) List(ctx context.Context, actor Actor, p pgrepo.ListCoursesParams) ([]model.Course, error) {
	if err := requireCuratorOrAdmin(actor); err != nil {
		return nil, err
	}
	if actor.Role == enums.RoleCurator {
		// Curators only see their own courses.
		p.CuratorID = actor.UserID
	}

	courses, err := s.courses.List(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	return courses, nil
}

func (s *Service) Update(ctx context.Context, actor Actor, courseID int64, in CourseInput) (model.Course, error) {
	course, err := s.requireOwnership(ctx, actor, courseID)
	if err != nil {
		return model.Course{}, err
	}
	if strings.TrimSpace(in.Title) == "" || in.Price < 0 {
		return model.Course{}, fmt.Errorf("invalid course payload: %w", ErrValidation)
	}

	curatorID := course.CuratorID
	if actor.Role == enums.RoleAdmin && in.CuratorID > 0 {
		curatorID = in.CuratorID
	}

	updated, err := s.courses.Update(ctx, courseID, pgrepo.UpdateCourseParams{
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		ImageURL:      strings.TrimSpace(in.ImageURL),
		Price:         in.Price,
		DurationHours: in.DurationHours,
		IsFeatured:    in.IsFeatured,
		MaxStudents:   in.MaxStudents,
		Requirements:  in.Requirements,
		Outcomes:      in.Outcomes,
		CuratorID:     curatorID,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return model.Course{}, ErrNotFound
		}
		return model.Course{}, fmt.Errorf("update course: %w", err)
	}

	s.invalidate(ctx, courseID)
	return updated, nil
}

func (s *Service) SetStatus(ctx context.Context, actor Actor, courseID int64, status enums.CourseStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown course status %q: %w", status, ErrValidation)
	}
	course, err := s.requireOwnership(ctx, actor, courseID)
	if err != nil {
		return err
	}
	if status == enums.CourseStatusPublished && course.Status == enums.CourseStatusArchived && actor.Role != enums.RoleAdmin {
		// Unarchiving is an admin call.
		return ErrForbidden
	}

	if err := s.courses.SetStatus(ctx, courseID, status); err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set course status: %w", err)
	}

	s.invalidate(ctx, courseID)
	s.log.Info("course status changed",
		zap.Int64("course_id", courseID),
		zap.String("status", string(status)))

	return nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, courseID int64) error {
	if actor.Role != enums.RoleAdmin {
		return ErrForbidden
	}
	if courseID <= 0 {
		return fmt.Errorf("invalid course id: %w", ErrValidation)
	}

	if err := s.courses.Delete(ctx, courseID); err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete course: %w", err)
	}

	s.invalidate(ctx, courseID)
	return nil
}

type ModuleInput struct {
	Title          string
	Description    string
	OrderIndex     int
	IsRequired     bool
	EstimatedHours int
}

func (s *Service) AddModule(ctx context.Context, actor Actor, courseID int64, in ModuleInput) (model.CourseModule, error) {
	if _, err := s.requireOwnership(ctx, actor, courseID); err != nil {
		return model.CourseModule{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return model.CourseModule{}, fmt.Errorf("module title is required: %w", ErrValidation)
	}

	courseModule, err := s.modules.Create(ctx, pgrepo.CreateModuleParams{
		CourseID:       courseID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		OrderIndex:     in.OrderIndex,
		IsRequired:     in.IsRequired,
		EstimatedHours: in.EstimatedHours,
	})
	if err != nil {
		return model.CourseModule{}, fmt.Errorf("create module: %w", err)
	}

	return courseModule, nil
}

func (s *Service) UpdateModule(ctx context.Context, actor Actor, moduleID int64, in ModuleInput) (model.CourseModule, error) {
	courseModule, err := s.findModule(ctx, moduleID)
	if err != nil {
		return model.CourseModule{}, err
	}
	if _, err := s.requireOwnership(ctx, actor, courseModule.CourseID); err != nil {
		return model.CourseModule{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return model.CourseModule{}, fmt.Errorf("module title is required: %w", ErrValidation)
	}

	updated, err := s.modules.Update(ctx, moduleID, pgrepo.CreateModuleParams{
		CourseID:       courseModule.CourseID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		OrderIndex:     in.OrderIndex,
		IsRequired:     in.IsRequired,
		EstimatedHours: in.EstimatedHours,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrModuleNotFound) {
			return model.CourseModule{}, ErrNotFound
		}
		return model.CourseModule{}, fmt.Errorf("update module: %w", err)
	}

	return updated, nil
}

func (s *Service) DeleteModule(ctx context.Context, actor Actor, moduleID int64) error {
	courseModule, err := s.findModule(ctx, moduleID)
	if err != nil {
		return err
	}
	if _, err := s.requireOwnership(ctx, actor, courseModule.CourseID); err != nil {
		return err
	}

	if err := s.modules.Delete(ctx, moduleID); err != nil {
		if errors.Is(err, pgrepo.ErrModuleNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete module: %w", err)
	}

	return nil
}

func (s *Service) ListModules(ctx context.Context, courseID int64) ([]model.CourseModule, error) {
	if courseID <= 0 {
		return nil, fmt.Errorf("invalid course id: %w", ErrValidation)
	}

	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	return modules, nil
}

type LessonInput struct {
	Title           string
	Content         string
	Type            enums.LessonType
	VideoURL        string
	FileKey         string
	OrderIndex      int
	DurationMinutes int
	IsFree          bool
}

func (s *Service) AddLesson(ctx context.Context, actor Actor, moduleID int64, in LessonInput) (model.Lesson, error) {
	courseModule, err := s.findModule(ctx, moduleID)
	if err != nil {
		return model.Lesson{}, err
	}
	if _, err := s.requireOwnership(ctx, actor, courseModule.CourseID); err != nil {
		return model.Lesson{}, err
	}
	if strings.TrimSpace(in.Title) == "" || !in.Type.Valid() {
		return model.Lesson{}, fmt.Errorf("invalid lesson payload: %w", ErrValidation)
	}

	lesson, err := s.lessons.Create(ctx, pgrepo.CreateLessonParams{
		ModuleID:        moduleID,
		Title:           strings.TrimSpace(in.Title),
		Content:         in.Content,
		Type:            in.Type,
		VideoURL:        strings.TrimSpace(in.VideoURL),
		FileKey:         strings.TrimSpace(in.FileKey),
		OrderIndex:      in.OrderIndex,
		DurationMinutes: in.DurationMinutes,
		IsFree:          in.IsFree,
	})
	if err != nil {
		return model.Lesson{}, fmt.Errorf("create lesson: %w", err)
	}

	return lesson, nil
}

func (s *Service) UpdateLesson(ctx context.Context, actor Actor, lessonID int64, in LessonInput) (model.Lesson, error) {
	lesson, err := s.findLesson(ctx, lessonID)
	if err != nil {
		return model.Lesson{}, err
	}
	if err := s.requireLessonOwnership(ctx, actor, lessonID); err != nil {
		return model.Lesson{}, err
	}
	if strings.TrimSpace(in.Title) == "" || !in.Type.Valid() {
		return model.Lesson{}, fmt.Errorf("invalid lesson payload: %w", ErrValidation)
	}

	updated, err := s.lessons.Update(ctx, lessonID, pgrepo.CreateLessonParams{
		ModuleID:        lesson.ModuleID,
		Title:           strings.TrimSpace(in.Title),
		Content:         in.Content,
		Type:            in.Type,
		VideoURL:        strings.TrimSpace(in.VideoURL),
		FileKey:         strings.TrimSpace(in.FileKey),
		OrderIndex:      in.OrderIndex,
		DurationMinutes: in.DurationMinutes,
		IsFree:          in.IsFree,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrLessonNotFound) {
			return model.Lesson{}, ErrNotFound
		}
		return model.Lesson{}, fmt.Errorf("update lesson: %w", err)
	}

	return updated, nil
}

func (s *Service) DeleteLesson(ctx context.Context, actor Actor, lessonID int64) error {
	if err := s.requireLessonOwnership(ctx, actor, lessonID); err != nil {
		return err
	}

	if err := s.lessons.Delete(ctx, lessonID); err != nil {
		if errors.Is(err, pgrepo.ErrLessonNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete lesson: %w", err)
	}

	return nil
}

func (s *Service) ListLessons(ctx context.Context, moduleID int64) ([]model.Lesson, error) {
	if moduleID <= 0 {
		return nil, fmt.Errorf("invalid module id: %w", ErrValidation)
	}

	lessons, err := s.lessons.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	return lessons, nil
}

// GetLessonContent gates paid lesson content. Free lessons and staff
// pass through, students need usable course access.
func (s *Service) GetLessonContent(ctx context.Context, actor Actor, lessonID int64) (model.Lesson, error) {
	lesson, err := s.findLesson(ctx, lessonID)
	if err != nil {
		return model.Lesson{}, err
	}
	if lesson.IsFree || actor.Role == enums.RoleAdmin || actor.Role == enums.RoleCurator {
		return lesson, nil
	}

	courseID, err := s.lessons.CourseIDForLesson(ctx, lessonID)
	if err != nil {
		return model.Lesson{}, fmt.Errorf("resolve lesson course: %w", err)
	}

	ok, err := s.access.HasActiveAccess(ctx, actor.UserID, courseID)
	if err != nil {
		return model.Lesson{}, fmt.Errorf("check course access: %w", err)
	}
	if !ok {
		return model.Lesson{}, ErrAccessRequired
	}

	return lesson, nil
}

type Actor struct {
	UserID int64
	Role   enums.Role
}

func (s *Service) requireOwnership(ctx context.Context, actor Actor, courseID int64) (model.Course, error) {
	if err := requireCuratorOrAdmin(actor); err != nil {
		return model.Course{}, err
	}
	if courseID <= 0 {
		return model.Course{}, fmt.Errorf("invalid course id: %w", ErrValidation)
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return model.Course{}, ErrNotFound
		}
		return model.Course{}, fmt.Errorf("find course: %w", err)
	}
	if actor.Role == enums.RoleCurator && course.CuratorID != actor.UserID {
		return model.Course{}, ErrForbidden
	}

	return course, nil
}

func (s *Service) requireLessonOwnership(ctx context.Context, actor Actor, lessonID int64) error {
	courseID, err := s.lessons.CourseIDForLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrLessonNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("resolve lesson course: %w", err)
	}
	_, err = s.requireOwnership(ctx, actor, courseID)
	return err
}

func (s *Service) findModule(ctx context.Context, moduleID int64) (model.CourseModule, error) {
	if moduleID <= 0 {
		return model.CourseModule{}, fmt.Errorf("invalid module id: %w", ErrValidation)
	}

	courseModule, err := s.modules.FindByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrModuleNotFound) {
			return model.CourseModule{}, ErrNotFound
		}
		return model.CourseModule{}, fmt.Errorf("find module: %w", err)
	}

	return courseModule, nil
}

func (s *Service) findLesson(ctx context.Context, lessonID int64) (model.Lesson, error) {
	if lessonID <= 0 {
		return model.Lesson{}, fmt.Errorf("invalid lesson id: %w", ErrValidation)
	}

	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrLessonNotFound) {
			return model.Lesson{}, ErrNotFound
		}
		return model.Lesson{}, fmt.Errorf("find lesson: %w", err)
	}

	return lesson, nil
}

func (s *Service) invalidate(ctx context.Context, courseID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, courseID); err != nil {
		s.log.Warn("invalidate catalog cache", zap.Int64("course_id", courseID), zap.Error(err))
	}
}

func requireCuratorOrAdmin(actor Actor) error {
	if actor.Role != enums.RoleAdmin && actor.Role != enums.RoleCurator {
		return ErrForbidden
	}
	return nil
}

func validateCourseInput(in CourseInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug %q: %w", in.Slug, ErrValidation)
	}
	if in.Price < 0 {
		return fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}
	return nil
}

