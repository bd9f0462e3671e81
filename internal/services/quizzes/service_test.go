package quizzes_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	"github.com/Pavlentius2007/school-photobusiness/internal/services/quizzes"
)

type fakeTestStore struct {
	mu        sync.Mutex
	nextID    int64
	tests     map[int64]model.Test
	questions map[int64][]model.Question
}

func newFakeTestStore() *fakeTestStore {
	return &fakeTestStore{
		nextID:    1,
		tests:     make(map[int64]model.Test),
		questions: make(map[int64][]model.Question),
	}
}

func (f *fakeTestStore) Create(_ context.Context, p pgrepo.CreateTestParams) (model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Test{
		ID:               f.nextID,
		LessonID:         p.LessonID,
		CreatedBy:        p.CreatedBy,
		Title:            p.Title,
		Status:           enums.TestStatusDraft,
		TimeLimitMinutes: p.TimeLimitMinutes,
		PassingScore:     p.PassingScore,
		MaxAttempts:      p.MaxAttempts,
		ShuffleQuestions: p.ShuffleQuestions,
		ShowResults:      p.ShowResults,
	}
	f.nextID++
	f.tests[t.ID] = t
	return t, nil
}

func (f *fakeTestStore) FindByID(_ context.Context, testID int64) (model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[testID]
	if !ok {
		return model.Test{}, pgrepo.ErrTestNotFound
	}
	return t, nil
}

func (f *fakeTestStore) ListByLesson(_ context.Context, lessonID int64) ([]model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Test
	for _, t := range f.tests {
		if t.LessonID == lessonID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTestStore) Update(_ context.Context, testID int64, p pgrepo.CreateTestParams) (model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[testID]
	if !ok {
		return model.Test{}, pgrepo.ErrTestNotFound
	}
	t.Title = p.Title
	t.PassingScore = p.PassingScore
	t.MaxAttempts = p.MaxAttempts
	t.ShowResults = p.ShowResults
	f.tests[testID] = t
	return t, nil
}

func (f *fakeTestStore) SetStatus(_ context.Context, testID int64, status enums.TestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[testID]
	if !ok {
		return pgrepo.ErrTestNotFound
	}
	t.Status = status
	f.tests[testID] = t
	return nil
}

func (f *fakeTestStore) Delete(_ context.Context, testID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tests[testID]; !ok {
		return pgrepo.ErrTestNotFound
	}
	delete(f.tests, testID)
	delete(f.questions, testID)
	return nil
}

func (f *fakeTestStore) CreateQuestion(_ context.Context, p pgrepo.CreateQuestionParams) (model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := model.Question{
		ID:         f.nextID,
		TestID:     p.TestID,
		Text:       p.Text,
		Type:       p.Type,
		Points:     p.Points,
		OrderIndex: p.OrderIndex,
		IsRequired: p.IsRequired,
	}
	f.nextID++
	for _, a := range p.Answers {
		q.Answers = append(q.Answers, model.Answer{
			ID:         f.nextID,
			QuestionID: q.ID,
			Text:       a.Text,
			IsCorrect:  a.IsCorrect,
			OrderIndex: a.OrderIndex,
		})
		f.nextID++
	}
	f.questions[p.TestID] = append(f.questions[p.TestID], q)
	return q, nil
}

func (f *fakeTestStore) ListQuestions(_ context.Context, testID int64) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Question(nil), f.questions[testID]...), nil
}

func (f *fakeTestStore) DeleteQuestion(_ context.Context, questionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for testID, qs := range f.questions {
		for i, q := range qs {
			if q.ID == questionID {
				f.questions[testID] = append(qs[:i], qs[i+1:]...)
				return nil
			}
		}
	}
	return pgrepo.ErrQuestionNotFound
}

type fakeAttemptStore struct {
	mu       sync.Mutex
	nextID   int64
	attempts map[int64]model.TestAttempt
	answers  map[int64][]model.TestAnswer
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		nextID:   1,
		attempts: make(map[int64]model.TestAttempt),
		answers:  make(map[int64][]model.TestAnswer),
	}
}

func (f *fakeAttemptStore) Start(_ context.Context, testID, studentID int64, maxAttempts int, now time.Time) (model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	used := 0
	for _, a := range f.attempts {
		if a.TestID == testID && a.StudentID == studentID {
			used++
		}
	}
	if maxAttempts > 0 && used >= maxAttempts {
		return model.TestAttempt{}, pgrepo.ErrAttemptsExceeded
	}
	a := model.TestAttempt{
		ID:            f.nextID,
		TestID:        testID,
		StudentID:     studentID,
		AttemptNumber: used + 1,
		Status:        enums.AttemptStatusInProgress,
		StartedAt:     now,
	}
	f.nextID++
	f.attempts[a.ID] = a
	return a, nil
}

func (f *fakeAttemptStore) FindByID(_ context.Context, attemptID int64) (model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok {
		return model.TestAttempt{}, pgrepo.ErrAttemptNotFound
	}
	return a, nil
}

func (f *fakeAttemptStore) ListByStudent(_ context.Context, testID, studentID int64) ([]model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range f.attempts {
		if a.TestID == testID && a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) ListNeedingReview(_ context.Context, testID int64, _ int) ([]model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range f.attempts {
		if a.TestID == testID && a.Status == enums.AttemptStatusNeedsReview {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) Submit(_ context.Context, attemptID int64, answers []pgrepo.GradedAnswer, result pgrepo.SubmitAttemptResult, now time.Time) (model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok {
		return model.TestAttempt{}, pgrepo.ErrAttemptNotFound
	}
	if a.Status != enums.AttemptStatusInProgress {
		return model.TestAttempt{}, pgrepo.ErrAttemptFinished
	}
	a.Status = enums.AttemptStatusGraded
	if result.NeedsReview {
		a.Status = enums.AttemptStatusNeedsReview
	}
	score, maxScore, percent, passed := result.Score, result.MaxScore, result.Percent, result.IsPassed
	a.Score, a.MaxScore, a.Percent = &score, &maxScore, &percent
	if !result.NeedsReview {
		a.IsPassed = &passed
	}
	a.CompletedAt = &now
	f.attempts[attemptID] = a
	for _, g := range answers {
		f.answers[attemptID] = append(f.answers[attemptID], model.TestAnswer{
			AttemptID:    attemptID,
			QuestionID:   g.QuestionID,
			AnswerID:     g.AnswerID,
			AnswerText:   g.AnswerText,
			IsCorrect:    g.IsCorrect,
			PointsEarned: g.PointsEarned,
		})
	}
	return a, nil
}

func (f *fakeAttemptStore) GradeManual(_ context.Context, attemptID int64, points map[int64]int, result pgrepo.SubmitAttemptResult, now time.Time) (model.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok {
		return model.TestAttempt{}, pgrepo.ErrAttemptNotFound
	}
	a.Status = enums.AttemptStatusGraded
	score, maxScore, percent, passed := result.Score, result.MaxScore, result.Percent, result.IsPassed
	a.Score, a.MaxScore, a.Percent, a.IsPassed = &score, &maxScore, &percent, &passed
	a.GradedAt = &now
	f.attempts[attemptID] = a
	for i := range f.answers[attemptID] {
		if p, ok := points[f.answers[attemptID][i].QuestionID]; ok {
			earned := p
			f.answers[attemptID][i].PointsEarned = &earned
		}
	}
	return a, nil
}

func (f *fakeAttemptStore) ListAnswers(_ context.Context, attemptID int64) ([]model.TestAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.TestAnswer(nil), f.answers[attemptID]...), nil
}

type fakeCourseResolver struct {
	courseByLesson map[int64]int64
}

func (f *fakeCourseResolver) CourseIDForLesson(_ context.Context, lessonID int64) (int64, error) {
	id, ok := f.courseByLesson[lessonID]
	if !ok {
		return 0, pgrepo.ErrLessonNotFound
	}
	return id, nil
}

type fakeCourseStore struct {
	courses map[int64]model.Course
}

func (f *fakeCourseStore) FindByID(_ context.Context, courseID int64) (model.Course, error) {
	c, ok := f.courses[courseID]
	if !ok {
		return model.Course{}, pgrepo.ErrCourseNotFound
	}
	return c, nil
}

type fakeAccess struct {
	granted map[[2]int64]bool
}

func (f *fakeAccess) HasActiveAccess(_ context.Context, userID, courseID int64) (bool, error) {
	return f.granted[[2]int64{userID, courseID}], nil
}

type quizFixture struct {
	svc      *quizzes.Service
	tests    *fakeTestStore
	attempts *fakeAttemptStore
	access   *fakeAccess
	curator  quizzes.Actor
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	tests := newFakeTestStore()
	attempts := newFakeAttemptStore()
	resolver := &fakeCourseResolver{courseByLesson: map[int64]int64{10: 1}}
	courses := &fakeCourseStore{courses: map[int64]model.Course{
		1: {ID: 1, CuratorID: 100, Status: enums.CourseStatusPublished},
	}}
	access := &fakeAccess{granted: map[[2]int64]bool{}}
	return &quizFixture{
		svc:      quizzes.NewService(tests, attempts, resolver, courses, access, nil),
		tests:    tests,
		attempts: attempts,
		access:   access,
		curator:  quizzes.Actor{UserID: 100, Role: enums.RoleCurator},
	}
}

// buildTest publishes a three question test worth 10 points: a 3 point
// single choice, a 5 point multiple choice and a 2 point text question.
func (fx *quizFixture) buildTest(t *testing.T, maxAttempts int, showResults bool) model.Test {
	t.Helper()
	ctx := context.Background()

	test, err := fx.svc.CreateTest(ctx, fx.curator, quizzes.TestInput{
		LessonID:     10,
		Title:        "Lighting basics",
		PassingScore: 60,
		MaxAttempts:  maxAttempts,
		ShowResults:  showResults,
	})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}

	if _, err := fx.svc.AddQuestion(ctx, fx.curator, test.ID, quizzes.QuestionInput{
		Text:   "Key light position",
		Type:   enums.QuestionTypeSingleChoice,
		Points: 3,
		Answers: []quizzes.AnswerInput{
			{Text: "45 degrees", IsCorrect: true},
			{Text: "Behind the subject"},
		},
	}); err != nil {
		t.Fatalf("AddQuestion single: %v", err)
	}
	if _, err := fx.svc.AddQuestion(ctx, fx.curator, test.ID, quizzes.QuestionInput{
		Text:   "Pick the hard light sources",
		Type:   enums.QuestionTypeMultipleChoice,
		Points: 5,
		Answers: []quizzes.AnswerInput{
			{Text: "Bare flash", IsCorrect: true},
			{Text: "Midday sun", IsCorrect: true},
			{Text: "Softbox"},
		},
	}); err != nil {
		t.Fatalf("AddQuestion multiple: %v", err)
	}
	if _, err := fx.svc.AddQuestion(ctx, fx.curator, test.ID, quizzes.QuestionInput{
		Text:   "Describe your fill setup",
		Type:   enums.QuestionTypeText,
		Points: 2,
	}); err != nil {
		t.Fatalf("AddQuestion text: %v", err)
	}

	if err := fx.svc.SetTestStatus(ctx, fx.curator, test.ID, enums.TestStatusPublished); err != nil {
		t.Fatalf("SetTestStatus: %v", err)
	}
	published, err := fx.tests.FindByID(ctx, test.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	return published
}

func (fx *quizFixture) optionIDs(t *testing.T, testID int64) (single model.Question, multi model.Question, text model.Question) {
	t.Helper()
	questions, err := fx.tests.ListQuestions(context.Background(), testID)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	for _, q := range questions {
		switch q.Type {
		case enums.QuestionTypeSingleChoice:
			single = q
		case enums.QuestionTypeMultipleChoice:
			multi = q
		case enums.QuestionTypeText:
			text = q
		}
	}
	return single, multi, text
}

func correctIDs(q model.Question) []int64 {
	var ids []int64
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestQuestionValidation(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()

	test, err := fx.svc.CreateTest(ctx, fx.curator, quizzes.TestInput{LessonID: 10, Title: "t", PassingScore: 50, MaxAttempts: 1})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}

	cases := []quizzes.QuestionInput{
		{Text: "no correct option", Type: enums.QuestionTypeSingleChoice, Points: 1,
			Answers: []quizzes.AnswerInput{{Text: "a"}, {Text: "b"}}},
		{Text: "two correct options", Type: enums.QuestionTypeSingleChoice, Points: 1,
			Answers: []quizzes.AnswerInput{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}}},
		{Text: "three options", Type: enums.QuestionTypeTrueFalse, Points: 1,
			Answers: []quizzes.AnswerInput{{Text: "a", IsCorrect: true}, {Text: "b"}, {Text: "c"}}},
		{Text: "none correct", Type: enums.QuestionTypeMultipleChoice, Points: 1,
			Answers: []quizzes.AnswerInput{{Text: "a"}, {Text: "b"}}},
		{Text: "options on a text question", Type: enums.QuestionTypeText, Points: 1,
			Answers: []quizzes.AnswerInput{{Text: "a"}}},
		{Text: "zero points", Type: enums.QuestionTypeText, Points: 0},
	}
	for _, in := range cases {
		if _, err := fx.svc.AddQuestion(ctx, fx.curator, test.ID, in); !errors.Is(err, quizzes.ErrValidation) {
			t.Fatalf("AddQuestion(%q) error = %v, want ErrValidation", in.Text, err)
		}
	}

	if err := fx.svc.SetTestStatus(ctx, fx.curator, test.ID, enums.TestStatusPublished); !errors.Is(err, quizzes.ErrValidation) {
		t.Fatalf("publishing an empty test error = %v, want ErrValidation", err)
	}
}

func TestSubmitGradesChoiceQuestionsAndFlagsTextForReview(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()
	test := fx.buildTest(t, 3, true)

	const studentID = int64(200)
	fx.access.granted[[2]int64{studentID, 1}] = true
	single, multi, text := fx.optionIDs(t, test.ID)

	attempt, err := fx.svc.StartAttempt(ctx, studentID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	graded, err := fx.svc.SubmitAttempt(ctx, studentID, attempt.ID, []quizzes.SubmittedAnswer{
		{QuestionID: single.ID, AnswerIDs: correctIDs(single)},
		{QuestionID: multi.ID, AnswerIDs: correctIDs(multi)},
		{QuestionID: text.ID, Text: "Reflector camera left"},
	})
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	if graded.Status != enums.AttemptStatusNeedsReview {
		t.Fatalf("status = %s, want needs_review", graded.Status)
	}
	if graded.Score == nil || *graded.Score != 8 {
		t.Fatalf("score = %v, want 8", graded.Score)
	}
	if graded.MaxScore == nil || *graded.MaxScore != 10 {
		t.Fatalf("max score = %v, want 10", graded.MaxScore)
	}
	if graded.IsPassed != nil {
		t.Fatalf("is_passed should stay unset until review, got %v", *graded.IsPassed)
	}
}

func TestSubmitMultipleChoiceForfeitsOnPartialSelection(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()
	test := fx.buildTest(t, 3, true)

	const studentID = int64(201)
	fx.access.granted[[2]int64{studentID, 1}] = true
	single, multi, _ := fx.optionIDs(t, test.ID)

	attempt, err := fx.svc.StartAttempt(ctx, studentID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// Only one of the two correct options, full question forfeited.
	graded, err := fx.svc.SubmitAttempt(ctx, studentID, attempt.ID, []quizzes.SubmittedAnswer{
		{QuestionID: single.ID, AnswerIDs: correctIDs(single)},
		{QuestionID: multi.ID, AnswerIDs: correctIDs(multi)[:1]},
	})
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if graded.Score == nil || *graded.Score != 3 {
		t.Fatalf("score = %v, want 3", graded.Score)
	}
	if graded.Status != enums.AttemptStatusGraded {
		t.Fatalf("status = %s, want graded (text question unanswered and optional)", graded.Status)
	}
	if graded.IsPassed == nil || *graded.IsPassed {
		t.Fatalf("is_passed = %v, want false at 30%%", graded.IsPassed)
	}
}

func TestManualGradingSettlesPassFail(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()
	test := fx.buildTest(t, 3, true)

	const studentID = int64(202)
	fx.access.granted[[2]int64{studentID, 1}] = true
	single, multi, text := fx.optionIDs(t, test.ID)

	attempt, err := fx.svc.StartAttempt(ctx, studentID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if _, err := fx.svc.SubmitAttempt(ctx, studentID, attempt.ID, []quizzes.SubmittedAnswer{
		{QuestionID: single.ID, AnswerIDs: correctIDs(single)},
		{QuestionID: multi.ID, AnswerIDs: []int64{multi.Answers[2].ID}},
		{QuestionID: text.ID, Text: "Two strip boxes"},
	}); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	pending, err := fx.svc.ListNeedingReview(ctx, fx.curator, test.ID, 10)
	if err != nil {
		t.Fatalf("ListNeedingReview: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending reviews = %d, want 1", len(pending))
	}

	if _, err := fx.svc.GradeAttempt(ctx, fx.curator, attempt.ID, map[int64]int{text.ID: 5}); !errors.Is(err, quizzes.ErrValidation) {
		t.Fatalf("overgrading error = %v, want ErrValidation", err)
	}

	// 3 auto points plus 2 manual of 10 total is 50%, below the 60%
	// passing score.
	graded, err := fx.svc.GradeAttempt(ctx, fx.curator, attempt.ID, map[int64]int{text.ID: 2})
	if err != nil {
		t.Fatalf("GradeAttempt: %v", err)
	}
	if graded.Score == nil || *graded.Score != 5 {
		t.Fatalf("score = %v, want 5", graded.Score)
	}
	if graded.IsPassed == nil || *graded.IsPassed {
		t.Fatalf("is_passed = %v, want false", graded.IsPassed)
	}
	if graded.Status != enums.AttemptStatusGraded {
		t.Fatalf("status = %s, want graded", graded.Status)
	}
}

func TestStartAttemptEnforcesLimitAndAccess(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()
	test := fx.buildTest(t, 2, true)
	single, multi, _ := fx.optionIDs(t, test.ID)

	const studentID = int64(203)
	if _, err := fx.svc.StartAttempt(ctx, studentID, test.ID); !errors.Is(err, quizzes.ErrAccessRequired) {
		t.Fatalf("StartAttempt without access error = %v, want ErrAccessRequired", err)
	}

	fx.access.granted[[2]int64{studentID, 1}] = true
	for i := 0; i < 2; i++ {
		attempt, err := fx.svc.StartAttempt(ctx, studentID, test.ID)
		if err != nil {
			t.Fatalf("StartAttempt %d: %v", i+1, err)
		}
		if _, err := fx.svc.SubmitAttempt(ctx, studentID, attempt.ID, []quizzes.SubmittedAnswer{
			{QuestionID: single.ID, AnswerIDs: correctIDs(single)},
			{QuestionID: multi.ID, AnswerIDs: correctIDs(multi)},
		}); err != nil {
			t.Fatalf("SubmitAttempt %d: %v", i+1, err)
		}
	}
	if _, err := fx.svc.StartAttempt(ctx, studentID, test.ID); !errors.Is(err, quizzes.ErrAttemptsExceeded) {
		t.Fatalf("third StartAttempt error = %v, want ErrAttemptsExceeded", err)
	}
}

func TestQuestionsForStudentStripCorrectFlags(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()
	test := fx.buildTest(t, 1, true)

	const studentID = int64(204)
	fx.access.granted[[2]int64{studentID, 1}] = true

	_, questions, err := fx.svc.QuestionsForStudent(ctx, studentID, test.ID)
	if err != nil {
		t.Fatalf("QuestionsForStudent: %v", err)
	}
	for _, q := range questions {
		for _, a := range q.Answers {
			if a.IsCorrect {
				t.Fatalf("question %q leaks a correct flag", q.Text)
			}
		}
	}
}

func TestAttemptResultVisibility(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()
	test := fx.buildTest(t, 1, false)
	single, multi, _ := fx.optionIDs(t, test.ID)

	const studentID = int64(205)
	fx.access.granted[[2]int64{studentID, 1}] = true
	attempt, err := fx.svc.StartAttempt(ctx, studentID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if _, err := fx.svc.SubmitAttempt(ctx, studentID, attempt.ID, []quizzes.SubmittedAnswer{
		{QuestionID: single.ID, AnswerIDs: correctIDs(single)},
		{QuestionID: multi.ID, AnswerIDs: correctIDs(multi)},
	}); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	student := quizzes.Actor{UserID: studentID, Role: enums.RoleStudent}
	if _, _, err := fx.svc.AttemptResult(ctx, student, attempt.ID); !errors.Is(err, quizzes.ErrResultsHidden) {
		t.Fatalf("student result error = %v, want ErrResultsHidden", err)
	}

	other := quizzes.Actor{UserID: 999, Role: enums.RoleStudent}
	if _, _, err := fx.svc.AttemptResult(ctx, other, attempt.ID); !errors.Is(err, quizzes.ErrForbidden) {
		t.Fatalf("other student error = %v, want ErrForbidden", err)
	}

	got, answers, err := fx.svc.AttemptResult(ctx, fx.curator, attempt.ID)
	if err != nil {
		t.Fatalf("curator result: %v", err)
	}
	if got.ID != attempt.ID || len(answers) == 0 {
		t.Fatalf("curator sees attempt %d with %d answers", got.ID, len(answers))
	}
}

func TestForeignCuratorCannotTouchTest(t *testing.T) {
	fx := newQuizFixture(t)
	ctx := context.Background()
	test := fx.buildTest(t, 1, true)

	stranger := quizzes.Actor{UserID: 777, Role: enums.RoleCurator}
	if _, err := fx.svc.AddQuestion(ctx, stranger, test.ID, quizzes.QuestionInput{
		Text: "q", Type: enums.QuestionTypeText, Points: 1,
	}); !errors.Is(err, quizzes.ErrForbidden) {
		t.Fatalf("foreign AddQuestion error = %v, want ErrForbidden", err)
	}
	if err := fx.svc.DeleteTest(ctx, stranger, test.ID); !errors.Is(err, quizzes.ErrForbidden) {
		t.Fatalf("foreign DeleteTest error = %v, want ErrForbidden", err)
	}
}
