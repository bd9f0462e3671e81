package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("progress validation error")
	ErrNotFound       = errors.New("progress not found")
	ErrAccessRequired = errors.New("course access required")
)

// Store persists per-lesson and per-course progress.
type Store interface {
	TrackLesson(ctx context.Context, p pgrepo.TrackLessonParams, now time.Time) (model.LessonProgress, error)
	FindLessonProgress(ctx context.Context, userID, lessonID int64) (model.LessonProgress, error)
	ListLessonProgress(ctx context.Context, userID, courseID int64) ([]model.LessonProgress, error)
	RecomputeCourse(ctx context.Context, userID, courseID int64, now time.Time) (model.CourseProgress, error)
	FindCourseProgress(ctx context.Context, userID, courseID int64) (model.CourseProgress, error)
	ListCourseProgress(ctx context.Context, userID int64) ([]model.CourseProgress, error)
}

// LessonStore resolves lessons and their owning course.
type LessonStore interface {
	FindByID(ctx context.Context, lessonID int64) (model.Lesson, error)
	CourseIDForLesson(ctx context.Context, lessonID int64) (int64, error)
}

// AccessChecker gates tracking to students with active access.
type AccessChecker interface {
	HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error)
}

type Service struct {
	store   Store
	lessons LessonStore
	access  AccessChecker
	log     *zap.Logger

	notify     func(ctx context.Context, userID int64, lesson model.Lesson, course model.CourseProgress)
	onComplete func(ctx context.Context, userID int64, lesson model.Lesson)
	now        func() time.Time
}

func NewService(store Store, lessons LessonStore, access AccessChecker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		lessons: lessons,
		access:  access,
		log:     log,
		now:     time.Now,
	}
}

// AttachNotifier enables the lesson-completed notification. Delivery
// failures are logged, never surfaced to the student.
func (s *Service) AttachNotifier(send func(ctx context.Context, userID int64, name string, vars map[string]string, channels ...enums.NotificationChannel) error) {
	s.notify = func(ctx context.Context, userID int64, lesson model.Lesson, course model.CourseProgress) {
		vars := map[string]string{
			"lesson_title": lesson.Title,
			"progress":     strconv.FormatFloat(course.Percentage, 'f', 0, 64),
		}
		if err := send(ctx, userID, "lesson_completed", vars, enums.ChannelInternal); err != nil {
			s.log.Warn("lesson completion notification failed",
				zap.Int64("user_id", userID),
				zap.Int64("lesson_id", lesson.ID),
				zap.Error(err))
		}
	}
}

// AttachActivity enables the audit record on lesson completion.
func (s *Service) AttachActivity(onComplete func(ctx context.Context, userID int64, lesson model.Lesson)) {
	s.onComplete = onComplete
}

type TrackInput struct {
	LessonID         int64
	Completed        bool
	TimeSpentMinutes int
	LastPosition     int
}

// Track records viewing progress for a lesson and, on completion,
// recomputes the course rollup and notifies the student.
func (s *Service) Track(ctx context.Context, userID int64, in TrackInput) (model.LessonProgress, error) {
	if userID <= 0 || in.LessonID <= 0 {
		return model.LessonProgress{}, fmt.Errorf("invalid track payload: %w", ErrValidation)
	}
	if in.TimeSpentMinutes < 0 || in.LastPosition < 0 {
		return model.LessonProgress{}, fmt.Errorf("negative counters: %w", ErrValidation)
	}

	lesson, err := s.lessons.FindByID(ctx, in.LessonID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrLessonNotFound) {
			return model.LessonProgress{}, ErrNotFound
		}
		return model.LessonProgress{}, fmt.Errorf("find lesson: %w", err)
	}
	courseID, err := s.lessons.CourseIDForLesson(ctx, in.LessonID)
	if err != nil {
		return model.LessonProgress{}, fmt.Errorf("resolve course: %w", err)
	}
	if !lesson.IsFree {
		ok, err := s.access.HasActiveAccess(ctx, userID, courseID)
		if err != nil {
			return model.LessonProgress{}, fmt.Errorf("check access: %w", err)
		}
		if !ok {
			return model.LessonProgress{}, ErrAccessRequired
		}
	}

	now := s.now().UTC()
	wasCompleted := false
	if prev, err := s.store.FindLessonProgress(ctx, userID, in.LessonID); err == nil {
		wasCompleted = prev.IsCompleted
	}

	lp, err := s.store.TrackLesson(ctx, pgrepo.TrackLessonParams{
		UserID:           userID,
		LessonID:         in.LessonID,
		Completed:        in.Completed,
		TimeSpentMinutes: in.TimeSpentMinutes,
		LastPosition:     in.LastPosition,
	}, now)
	if err != nil {
		return model.LessonProgress{}, fmt.Errorf("track lesson: %w", err)
	}

	if lp.IsCompleted && !wasCompleted {
		cp, err := s.store.RecomputeCourse(ctx, userID, courseID, now)
		if err != nil {
			return model.LessonProgress{}, fmt.Errorf("recompute course progress: %w", err)
		}
		s.log.Info("lesson completed",
			zap.Int64("user_id", userID),
			zap.Int64("lesson_id", in.LessonID),
			zap.Float64("course_percent", cp.Percentage))
		if s.notify != nil {
			s.notify(ctx, userID, lesson, cp)
		}
		if s.onComplete != nil {
			s.onComplete(ctx, userID, lesson)
		}
	}
	return lp, nil
}

func (s *Service) CourseProgress(ctx context.Context, userID, courseID int64) (model.CourseProgress, error) {
	cp, err := s.store.FindCourseProgress(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProgressNotFound) {
			return model.CourseProgress{}, ErrNotFound
		}
		return model.CourseProgress{}, fmt.Errorf("find course progress: %w", err)
	}
	return cp, nil
}

func (s *Service) MyCourses(ctx context.Context, userID int64) ([]model.CourseProgress, error) {
	list, err := s.store.ListCourseProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list course progress: %w", err)
	}
	return list, nil
}

func (s *Service) Lessons(ctx context.Context, userID, courseID int64) ([]model.LessonProgress, error) {
	list, err := s.store.ListLessonProgress(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lesson progress: %w", err)
	}
	return list, nil
}
