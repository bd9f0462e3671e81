package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/rules"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("assignments validation error")
	ErrNotFound       = errors.New("assignment not found")
	ErrForbidden      = errors.New("operation not allowed")
	ErrAccessRequired = errors.New("course access required")
	ErrNotAccepting   = errors.New("assignment is not accepting submissions")
	ErrAlreadyGraded  = errors.New("submission already graded")
)

const maxContentLen = 50000

// AssignmentStore persists assignments and student submissions.
type AssignmentStore interface {
	Create(ctx context.Context, p pgrepo.CreateAssignmentParams) (model.Assignment, error)
	FindByID(ctx context.Context, assignmentID int64) (model.Assignment, error)
	ListByLesson(ctx context.Context, lessonID int64) ([]model.Assignment, error)
	Update(ctx context.Context, assignmentID int64, p pgrepo.CreateAssignmentParams) (model.Assignment, error)
	SetStatus(ctx context.Context, assignmentID int64, status enums.AssignmentStatus) error
	Delete(ctx context.Context, assignmentID int64) error
	CreateSubmission(ctx context.Context, p pgrepo.CreateSubmissionParams) (model.Submission, error)
	FindSubmission(ctx context.Context, submissionID int64) (model.Submission, error)
	FindSubmissionByStudent(ctx context.Context, assignmentID, studentID int64) (model.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID int64, status enums.SubmissionStatus, limit, offset int) ([]model.Submission, error)
	UpdateSubmission(ctx context.Context, submissionID int64, content, fileKey string, status enums.SubmissionStatus, now time.Time) (model.Submission, error)
	GradeSubmission(ctx context.Context, submissionID int64, score int, feedback string, gradedBy int64, now time.Time) (model.Submission, error)
	MarkMissedPastDue(ctx context.Context, now time.Time) (int64, error)
}

// CourseResolver maps a lesson to its owning course.
type CourseResolver interface {
	CourseIDForLesson(ctx context.Context, lessonID int64) (int64, error)
}

// CourseStore exposes the course fields needed for ownership checks.
type CourseStore interface {
	FindByID(ctx context.Context, courseID int64) (model.Course, error)
}

// AccessChecker reports whether a student may submit work in a course.
type AccessChecker interface {
	HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error)
}

// Actor identifies the caller for authorization decisions.
type Actor struct {
	UserID int64
	Role   enums.Role
}

type Service struct {
	assignments AssignmentStore
	lessons     CourseResolver
	courses     CourseStore
	access      AccessChecker
	log         *zap.Logger

	now         func() time.Time
	onSubmitted func(ctx context.Context, studentID int64, submission model.Submission)
}

// AttachActivity enables the audit record on first submission.
func (s *Service) AttachActivity(onSubmitted func(ctx context.Context, studentID int64, submission model.Submission)) {
	s.onSubmitted = onSubmitted
}

func NewService(assignments AssignmentStore, lessons CourseResolver, courses CourseStore, access AccessChecker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		assignments: assignments,
		lessons:     lessons,
		courses:     courses,
		access:      access,
		log:         log,
		now:         time.Now,
	}
}

type AssignmentInput struct {
	LessonID     int64
	Title        string
	Description  string
	Instructions string
	Type         enums.AssignmentType
	MaxScore     int
	DueAt        *time.Time
}

func (s *Service) Create(ctx context.Context, actor Actor, in AssignmentInput) (model.Assignment, error) {
	p, err := s.assignmentParams(actor.UserID, in)
	if err != nil {
		return model.Assignment{}, err
	}
	if _, err := s.requireLessonOwnership(ctx, actor, in.LessonID); err != nil {
		return model.Assignment{}, err
	}

	assignment, err := s.assignments.Create(ctx, p)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	s.log.Info("assignment created",
		zap.Int64("assignment_id", assignment.ID),
		zap.Int64("lesson_id", assignment.LessonID),
		zap.Int64("created_by", actor.UserID))
	return assignment, nil
}

func (s *Service) Get(ctx context.Context, assignmentID int64) (model.Assignment, error) {
	return s.findAssignment(ctx, assignmentID)
}

func (s *Service) ListByLesson(ctx context.Context, lessonID int64) ([]model.Assignment, error) {
	if lessonID <= 0 {
		return nil, fmt.Errorf("invalid lesson id: %w", ErrValidation)
	}
	assignments, err := s.assignments.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

func (s *Service) Update(ctx context.Context, actor Actor, assignmentID int64, in AssignmentInput) (model.Assignment, error) {
	assignment, err := s.requireOwnership(ctx, actor, assignmentID)
	if err != nil {
		return model.Assignment{}, err
	}
	// Lesson binding is immutable.
	in.LessonID = assignment.LessonID

	p, err := s.assignmentParams(assignment.CreatedBy, in)
	if err != nil {
		return model.Assignment{}, err
	}
	updated, err := s.assignments.Update(ctx, assignmentID, p)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAssignmentNotFound) {
			return model.Assignment{}, ErrNotFound
		}
		return model.Assignment{}, fmt.Errorf("update assignment: %w", err)
	}
	return updated, nil
}

func (s *Service) SetStatus(ctx context.Context, actor Actor, assignmentID int64, status enums.AssignmentStatus) error {
	switch status {
	case enums.AssignmentStatusDraft, enums.AssignmentStatusPublished, enums.AssignmentStatusClosed:
	default:
		return fmt.Errorf("invalid assignment status %q: %w", status, ErrValidation)
	}
	assignment, err := s.requireOwnership(ctx, actor, assignmentID)
	if err != nil {
		return err
	}
	if err := s.assignments.SetStatus(ctx, assignmentID, status); err != nil {
		if errors.Is(err, pgrepo.ErrAssignmentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set assignment status: %w", err)
	}
	s.log.Info("assignment status changed",
		zap.Int64("assignment_id", assignmentID),
		zap.String("from", string(assignment.Status)),
		zap.String("to", string(status)))
	return nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, assignmentID int64) error {
	if _, err := s.requireOwnership(ctx, actor, assignmentID); err != nil {
		return err
	}
	if err := s.assignments.Delete(ctx, assignmentID); err != nil {
		if errors.Is(err, pgrepo.ErrAssignmentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

type SubmissionInput struct {
	Content string
	FileKey string
}

// Submit creates or replaces the student's submission. Resubmission
// is allowed until the work is graded. Deadline state is derived from
// the submit time, a late resubmission turns an on-time one late.
func (s *Service) Submit(ctx context.Context, studentID, assignmentID int64, in SubmissionInput) (model.Submission, error) {
	content := strings.TrimSpace(in.Content)
	fileKey := strings.TrimSpace(in.FileKey)
	if content == "" && fileKey == "" {
		return model.Submission{}, fmt.Errorf("submission needs content or a file: %w", ErrValidation)
	}
	if len(content) > maxContentLen {
		return model.Submission{}, fmt.Errorf("submission content too long: %w", ErrValidation)
	}

	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return model.Submission{}, err
	}
	if assignment.Status != enums.AssignmentStatusPublished {
		return model.Submission{}, ErrNotAccepting
	}
	if err := s.requireCourseAccess(ctx, studentID, assignment.LessonID); err != nil {
		return model.Submission{}, err
	}

	now := s.now().UTC()
	status := rules.SubmissionStatusFor(assignment.DueAt, now)

	existing, err := s.assignments.FindSubmissionByStudent(ctx, assignmentID, studentID)
	switch {
	case err == nil:
		if existing.Status == enums.SubmissionStatusGraded {
			return model.Submission{}, ErrAlreadyGraded
		}
		updated, err := s.assignments.UpdateSubmission(ctx, existing.ID, content, fileKey, status, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrSubmissionNotFound) {
				return model.Submission{}, ErrAlreadyGraded
			}
			return model.Submission{}, fmt.Errorf("update submission: %w", err)
		}
		return updated, nil
	case errors.Is(err, pgrepo.ErrSubmissionNotFound):
		submission, err := s.assignments.CreateSubmission(ctx, pgrepo.CreateSubmissionParams{
			AssignmentID: assignmentID,
			StudentID:    studentID,
			Content:      content,
			FileKey:      fileKey,
			Status:       status,
			SubmittedAt:  now,
		})
		if err != nil {
			return model.Submission{}, fmt.Errorf("create submission: %w", err)
		}
		s.log.Info("assignment submitted",
			zap.Int64("assignment_id", assignmentID),
			zap.Int64("student_id", studentID),
			zap.String("status", string(status)))
		if s.onSubmitted != nil {
			s.onSubmitted(ctx, studentID, submission)
		}
		return submission, nil
	default:
		return model.Submission{}, fmt.Errorf("find submission: %w", err)
	}
}

func (s *Service) MySubmission(ctx context.Context, studentID, assignmentID int64) (model.Submission, error) {
	if assignmentID <= 0 {
		return model.Submission{}, fmt.Errorf("invalid assignment id: %w", ErrValidation)
	}
	submission, err := s.assignments.FindSubmissionByStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSubmissionNotFound) {
			return model.Submission{}, ErrNotFound
		}
		return model.Submission{}, fmt.Errorf("find submission: %w", err)
	}
	return submission, nil
}

type GradeInput struct {
	Score    int
	Feedback string
}

func (s *Service) Grade(ctx context.Context, actor Actor, submissionID int64, in GradeInput) (model.Submission, error) {
	if submissionID <= 0 {
		return model.Submission{}, fmt.Errorf("invalid submission id: %w", ErrValidation)
	}
	submission, err := s.assignments.FindSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSubmissionNotFound) {
			return model.Submission{}, ErrNotFound
		}
		return model.Submission{}, fmt.Errorf("find submission: %w", err)
	}
	assignment, err := s.requireOwnership(ctx, actor, submission.AssignmentID)
	if err != nil {
		return model.Submission{}, err
	}
	if in.Score < 0 || in.Score > assignment.MaxScore {
		return model.Submission{}, fmt.Errorf("score must be 0..%d: %w", assignment.MaxScore, ErrValidation)
	}
	if submission.Status == enums.SubmissionStatusMissed {
		return model.Submission{}, fmt.Errorf("missed submissions have nothing to grade: %w", ErrValidation)
	}

	graded, err := s.assignments.GradeSubmission(ctx, submissionID, in.Score, strings.TrimSpace(in.Feedback), actor.UserID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrSubmissionNotFound) {
			return model.Submission{}, ErrNotFound
		}
		return model.Submission{}, fmt.Errorf("grade submission: %w", err)
	}
	s.log.Info("submission graded",
		zap.Int64("submission_id", submissionID),
		zap.Int64("graded_by", actor.UserID),
		zap.Int("score", in.Score))
	return graded, nil
}

func (s *Service) ListSubmissions(ctx context.Context, actor Actor, assignmentID int64, status enums.SubmissionStatus, limit, offset int) ([]model.Submission, error) {
	if _, err := s.requireOwnership(ctx, actor, assignmentID); err != nil {
		return nil, err
	}
	submissions, err := s.assignments.ListSubmissions(ctx, assignmentID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// SweepMissed marks unsubmitted past-due work as missed. The deadline
// job calls it on a schedule.
func (s *Service) SweepMissed(ctx context.Context) (int64, error) {
	n, err := s.assignments.MarkMissedPastDue(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark missed submissions: %w", err)
	}
	if n > 0 {
		s.log.Info("missed submissions recorded", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Service) findAssignment(ctx context.Context, assignmentID int64) (model.Assignment, error) {
	if assignmentID <= 0 {
		return model.Assignment{}, fmt.Errorf("invalid assignment id: %w", ErrValidation)
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAssignmentNotFound) {
			return model.Assignment{}, ErrNotFound
		}
		return model.Assignment{}, fmt.Errorf("find assignment: %w", err)
	}
	return assignment, nil
}

func (s *Service) requireCourseAccess(ctx context.Context, studentID, lessonID int64) error {
	courseID, err := s.lessons.CourseIDForLesson(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("resolve course for lesson: %w", err)
	}
	ok, err := s.access.HasActiveAccess(ctx, studentID, courseID)
	if err != nil {
		return fmt.Errorf("check course access: %w", err)
	}
	if !ok {
		return ErrAccessRequired
	}
	return nil
}

func (s *Service) requireOwnership(ctx context.Context, actor Actor, assignmentID int64) (model.Assignment, error) {
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return model.Assignment{}, err
	}
	if _, err := s.requireLessonOwnership(ctx, actor, assignment.LessonID); err != nil {
		return model.Assignment{}, err
	}
	return assignment, nil
}

func (s *Service) requireLessonOwnership(ctx context.Context, actor Actor, lessonID int64) (model.Course, error) {
	if actor.Role != enums.RoleAdmin && actor.Role != enums.RoleCurator {
		return model.Course{}, ErrForbidden
	}
	if lessonID <= 0 {
		return model.Course{}, fmt.Errorf("invalid lesson id: %w", ErrValidation)
	}
	courseID, err := s.lessons.CourseIDForLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrLessonNotFound) {
			return model.Course{}, ErrNotFound
		}
		return model.Course{}, fmt.Errorf("resolve course for lesson: %w", err)
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return model.Course{}, fmt.Errorf("find course: %w", err)
	}
	if actor.Role == enums.RoleCurator && course.CuratorID != actor.UserID {
		return model.Course{}, ErrForbidden
	}
	return course, nil
}

func (s *Service) assignmentParams(createdBy int64, in AssignmentInput) (pgrepo.CreateAssignmentParams, error) {
	title := strings.TrimSpace(in.Title)
	if in.LessonID <= 0 {
		return pgrepo.CreateAssignmentParams{}, fmt.Errorf("invalid lesson id: %w", ErrValidation)
	}
	if title == "" {
		return pgrepo.CreateAssignmentParams{}, fmt.Errorf("title is required: %w", ErrValidation)
	}
	if !in.Type.Valid() {
		return pgrepo.CreateAssignmentParams{}, fmt.Errorf("invalid assignment type %q: %w", in.Type, ErrValidation)
	}
	if in.MaxScore < 0 {
		return pgrepo.CreateAssignmentParams{}, fmt.Errorf("max score must not be negative: %w", ErrValidation)
	}
	if in.DueAt != nil && in.DueAt.Before(s.now()) {
		return pgrepo.CreateAssignmentParams{}, fmt.Errorf("due date is in the past: %w", ErrValidation)
	}
	return pgrepo.CreateAssignmentParams{
		LessonID:     in.LessonID,
		CreatedBy:    createdBy,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Instructions: strings.TrimSpace(in.Instructions),
		Type:         in.Type,
		MaxScore:     in.MaxScore,
		DueAt:        in.DueAt,
	}, nil
}
