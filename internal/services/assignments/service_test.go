package assignments_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	"github.com/Pavlentius2007/school-photobusiness/internal/services/assignments"
)

type fakeAssignmentStore struct {
	mu          sync.Mutex
	nextID      int64
	assignments map[int64]model.Assignment
	submissions map[int64]model.Submission
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{
		nextID:      1,
		assignments: make(map[int64]model.Assignment),
		submissions: make(map[int64]model.Submission),
	}
}

func (f *fakeAssignmentStore) Create(_ context.Context, p pgrepo.CreateAssignmentParams) (model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.MaxScore <= 0 {
		p.MaxScore = 100
	}
	a := model.Assignment{
		ID:        f.nextID,
		LessonID:  p.LessonID,
		CreatedBy: p.CreatedBy,
		Title:     p.Title,
		Type:      p.Type,
		Status:    enums.AssignmentStatusDraft,
		MaxScore:  p.MaxScore,
		DueAt:     p.DueAt,
	}
	f.nextID++
	f.assignments[a.ID] = a
	return a, nil
}

func (f *fakeAssignmentStore) FindByID(_ context.Context, assignmentID int64) (model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentID]
	if !ok {
		return model.Assignment{}, pgrepo.ErrAssignmentNotFound
	}
	return a, nil
}

func (f *fakeAssignmentStore) ListByLesson(_ context.Context, lessonID int64) ([]model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Assignment
	for _, a := range f.assignments {
		if a.LessonID == lessonID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentStore) Update(_ context.Context, assignmentID int64, p pgrepo.CreateAssignmentParams) (model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentID]
	if !ok {
		return model.Assignment{}, pgrepo.ErrAssignmentNotFound
	}
	a.Title, a.Type, a.MaxScore, a.DueAt = p.Title, p.Type, p.MaxScore, p.DueAt
	f.assignments[assignmentID] = a
	return a, nil
}

func (f *fakeAssignmentStore) SetStatus(_ context.Context, assignmentID int64, status enums.AssignmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentID]
	if !ok {
		return pgrepo.ErrAssignmentNotFound
	}
	a.Status = status
	f.assignments[assignmentID] = a
	return nil
}

func (f *fakeAssignmentStore) Delete(_ context.Context, assignmentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assignments[assignmentID]; !ok {
		return pgrepo.ErrAssignmentNotFound
	}
	delete(f.assignments, assignmentID)
	return nil
}

func (f *fakeAssignmentStore) CreateSubmission(_ context.Context, p pgrepo.CreateSubmissionParams) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submissions {
		if s.AssignmentID == p.AssignmentID && s.StudentID == p.StudentID {
			return model.Submission{}, pgrepo.ErrAlreadySubmitted
		}
	}
	s := model.Submission{
		ID:           f.nextID,
		AssignmentID: p.AssignmentID,
		StudentID:    p.StudentID,
		Content:      p.Content,
		FileKey:      p.FileKey,
		Status:       p.Status,
		SubmittedAt:  p.SubmittedAt,
	}
	f.nextID++
	f.submissions[s.ID] = s
	return s, nil
}

func (f *fakeAssignmentStore) FindSubmission(_ context.Context, submissionID int64) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[submissionID]
	if !ok {
		return model.Submission{}, pgrepo.ErrSubmissionNotFound
	}
	return s, nil
}

func (f *fakeAssignmentStore) FindSubmissionByStudent(_ context.Context, assignmentID, studentID int64) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return s, nil
		}
	}
	return model.Submission{}, pgrepo.ErrSubmissionNotFound
}

func (f *fakeAssignmentStore) ListSubmissions(_ context.Context, assignmentID int64, status enums.SubmissionStatus, _, _ int) ([]model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Submission
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID && (status == "" || s.Status == status) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAssignmentStore) UpdateSubmission(_ context.Context, submissionID int64, content, fileKey string, status enums.SubmissionStatus, now time.Time) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[submissionID]
	if !ok || s.Status == enums.SubmissionStatusGraded {
		return model.Submission{}, pgrepo.ErrSubmissionNotFound
	}
	s.Content, s.FileKey, s.Status, s.SubmittedAt = content, fileKey, status, now
	f.submissions[submissionID] = s
	return s, nil
}

func (f *fakeAssignmentStore) GradeSubmission(_ context.Context, submissionID int64, score int, feedback string, gradedBy int64, now time.Time) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[submissionID]
	if !ok {
		return model.Submission{}, pgrepo.ErrSubmissionNotFound
	}
	s.Status = enums.SubmissionStatusGraded
	s.Score = &score
	s.Feedback = feedback
	s.GradedBy = &gradedBy
	s.GradedAt = &now
	f.submissions[submissionID] = s
	return s, nil
}

func (f *fakeAssignmentStore) MarkMissedPastDue(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeResolver struct{ courseByLesson map[int64]int64 }

func (f *fakeResolver) CourseIDForLesson(_ context.Context, lessonID int64) (int64, error) {
	id, ok := f.courseByLesson[lessonID]
	if !ok {
		return 0, pgrepo.ErrLessonNotFound
	}
	return id, nil
}

type fakeCourses struct{ courses map[int64]model.Course }

func (f *fakeCourses) FindByID(_ context.Context, courseID int64) (model.Course, error) {
	c, ok := f.courses[courseID]
	if !ok {
		return model.Course{}, pgrepo.ErrCourseNotFound
	}
	return c, nil
}

type fakeAccess struct{ granted map[[2]int64]bool }

func (f *fakeAccess) HasActiveAccess(_ context.Context, userID, courseID int64) (bool, error) {
	return f.granted[[2]int64{userID, courseID}], nil
}

type fixture struct {
	svc     *assignments.Service
	store   *fakeAssignmentStore
	access  *fakeAccess
	curator assignments.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeAssignmentStore()
	resolver := &fakeResolver{courseByLesson: map[int64]int64{10: 1}}
	courses := &fakeCourses{courses: map[int64]model.Course{
		1: {ID: 1, CuratorID: 100, Status: enums.CourseStatusPublished},
	}}
	access := &fakeAccess{granted: map[[2]int64]bool{}}
	return &fixture{
		svc:     assignments.NewService(store, resolver, courses, access, nil),
		store:   store,
		access:  access,
		curator: assignments.Actor{UserID: 100, Role: enums.RoleCurator},
	}
}

func (fx *fixture) published(t *testing.T, due *time.Time) model.Assignment {
	t.Helper()
	ctx := context.Background()
	a, err := fx.svc.Create(ctx, fx.curator, assignments.AssignmentInput{
		LessonID: 10,
		Title:    "Retouch a portrait",
		Type:     enums.AssignmentTypeHomework,
		MaxScore: 10,
		DueAt:    due,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := fx.svc.SetStatus(ctx, fx.curator, a.ID, enums.AssignmentStatusPublished); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	a.Status = enums.AssignmentStatusPublished
	return a
}

func TestSubmitRequiresPublishedAssignmentAndAccess(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	draft, err := fx.svc.Create(ctx, fx.curator, assignments.AssignmentInput{
		LessonID: 10, Title: "Draft work", Type: enums.AssignmentTypeEssay, MaxScore: 5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const studentID = int64(200)
	fx.access.granted[[2]int64{studentID, 1}] = true
	if _, err := fx.svc.Submit(ctx, studentID, draft.ID, assignments.SubmissionInput{Content: "text"}); !errors.Is(err, assignments.ErrNotAccepting) {
		t.Fatalf("draft submit error = %v, want ErrNotAccepting", err)
	}

	a := fx.published(t, nil)
	if _, err := fx.svc.Submit(ctx, 999, a.ID, assignments.SubmissionInput{Content: "text"}); !errors.Is(err, assignments.ErrAccessRequired) {
		t.Fatalf("no-access submit error = %v, want ErrAccessRequired", err)
	}
	if _, err := fx.svc.Submit(ctx, studentID, a.ID, assignments.SubmissionInput{}); !errors.Is(err, assignments.ErrValidation) {
		t.Fatalf("empty submit error = %v, want ErrValidation", err)
	}
}

func TestSubmitMarksLateAfterDeadlineAndAllowsResubmission(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	due := time.Now().UTC().Add(time.Hour)
	a := fx.published(t, &due)

	const studentID = int64(201)
	fx.access.granted[[2]int64{studentID, 1}] = true

	first, err := fx.svc.Submit(ctx, studentID, a.ID, assignments.SubmissionInput{Content: "v1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Status != enums.SubmissionStatusSubmitted {
		t.Fatalf("status = %s, want submitted", first.Status)
	}

	second, err := fx.svc.Submit(ctx, studentID, a.ID, assignments.SubmissionInput{Content: "v2"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.ID != first.ID || second.Content != "v2" {
		t.Fatalf("resubmission should replace in place, got id %d content %q", second.ID, second.Content)
	}

	// Past-due assignment, fresh submission comes in late.
	past := time.Now().UTC().Add(-time.Hour)
	late := fx.published(t, nil)
	fx.store.mu.Lock()
	stored := fx.store.assignments[late.ID]
	stored.DueAt = &past
	fx.store.assignments[late.ID] = stored
	fx.store.mu.Unlock()

	sub, err := fx.svc.Submit(ctx, studentID, late.ID, assignments.SubmissionInput{Content: "after deadline"})
	if err != nil {
		t.Fatalf("late submit: %v", err)
	}
	if sub.Status != enums.SubmissionStatusLate {
		t.Fatalf("status = %s, want late", sub.Status)
	}
}

func TestGradeEnforcesMaxScoreAndLocksSubmission(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	a := fx.published(t, nil)

	const studentID = int64(202)
	fx.access.granted[[2]int64{studentID, 1}] = true
	sub, err := fx.svc.Submit(ctx, studentID, a.ID, assignments.SubmissionInput{Content: "work"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := fx.svc.Grade(ctx, fx.curator, sub.ID, assignments.GradeInput{Score: 11}); !errors.Is(err, assignments.ErrValidation) {
		t.Fatalf("overscore error = %v, want ErrValidation", err)
	}

	graded, err := fx.svc.Grade(ctx, fx.curator, sub.ID, assignments.GradeInput{Score: 9, Feedback: "good light"})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if graded.Score == nil || *graded.Score != 9 || graded.Status != enums.SubmissionStatusGraded {
		t.Fatalf("graded = %+v", graded)
	}

	if _, err := fx.svc.Submit(ctx, studentID, a.ID, assignments.SubmissionInput{Content: "v2"}); !errors.Is(err, assignments.ErrAlreadyGraded) {
		t.Fatalf("post-grade resubmit error = %v, want ErrAlreadyGraded", err)
	}
}

func TestForeignCuratorCannotGradeOrEdit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	a := fx.published(t, nil)

	const studentID = int64(203)
	fx.access.granted[[2]int64{studentID, 1}] = true
	sub, err := fx.svc.Submit(ctx, studentID, a.ID, assignments.SubmissionInput{Content: "work"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stranger := assignments.Actor{UserID: 777, Role: enums.RoleCurator}
	if _, err := fx.svc.Grade(ctx, stranger, sub.ID, assignments.GradeInput{Score: 1}); !errors.Is(err, assignments.ErrForbidden) {
		t.Fatalf("foreign grade error = %v, want ErrForbidden", err)
	}
	if err := fx.svc.Delete(ctx, stranger, a.ID); !errors.Is(err, assignments.ErrForbidden) {
		t.Fatalf("foreign delete error = %v, want ErrForbidden", err)
	}

	student := assignments.Actor{UserID: studentID, Role: enums.RoleStudent}
	if _, err := fx.svc.ListSubmissions(ctx, student, a.ID, "", 0, 0); !errors.Is(err, assignments.ErrForbidden) {
		t.Fatalf("student list error = %v, want ErrForbidden", err)
	}
}
