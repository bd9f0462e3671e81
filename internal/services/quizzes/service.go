package quizzes

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
	ErrValidation       = errors.New("quizzes validation error")
	ErrNotFound         = errors.New("test not found")
	ErrForbidden        = errors.New("operation not allowed")
	ErrAccessRequired   = errors.New("course access required")
	ErrAttemptsExceeded = errors.New("no attempts left")
	ErrAttemptFinished  = errors.New("attempt already submitted")
	ErrResultsHidden    = errors.New("results are hidden for this test")
)

// TestStore persists tests and their question banks.
type TestStore interface {
	Create(ctx context.Context, p pgrepo.CreateTestParams) (model.Test, error)
	FindByID(ctx context.Context, testID int64) (model.Test, error)
	ListByLesson(ctx context.Context, lessonID int64) ([]model.Test, error)
	Update(ctx context.Context, testID int64, p pgrepo.CreateTestParams) (model.Test, error)
	SetStatus(ctx context.Context, testID int64, status enums.TestStatus) error
	Delete(ctx context.Context, testID int64) error
	CreateQuestion(ctx context.Context, p pgrepo.CreateQuestionParams) (model.Question, error)
	ListQuestions(ctx context.Context, testID int64) ([]model.Question, error)
	DeleteQuestion(ctx context.Context, questionID int64) error
}

// AttemptStore persists attempts and graded answers.
type AttemptStore interface {
	Start(ctx context.Context, testID, studentID int64, maxAttempts int, now time.Time) (model.TestAttempt, error)
	FindByID(ctx context.Context, attemptID int64) (model.TestAttempt, error)
	ListByStudent(ctx context.Context, testID, studentID int64) ([]model.TestAttempt, error)
	ListNeedingReview(ctx context.Context, testID int64, limit int) ([]model.TestAttempt, error)
	Submit(ctx context.Context, attemptID int64, answers []pgrepo.GradedAnswer, result pgrepo.SubmitAttemptResult, now time.Time) (model.TestAttempt, error)
	GradeManual(ctx context.Context, attemptID int64, points map[int64]int, result pgrepo.SubmitAttemptResult, now time.Time) (model.TestAttempt, error)
	ListAnswers(ctx context.Context, attemptID int64) ([]model.TestAnswer, error)
}

// CourseResolver maps a lesson to its owning course.
type CourseResolver interface {
	CourseIDForLesson(ctx context.Context, lessonID int64) (int64, error)
}

// CourseStore exposes the course fields needed for ownership checks.
type CourseStore interface {
	FindByID(ctx context.Context, courseID int64) (model.Course, error)
}

// AccessChecker reports whether a student may take tests in a course.
type AccessChecker interface {
	HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error)
}

// Actor identifies the caller for authorization decisions.
type Actor struct {
	UserID int64
	Role   enums.Role
}

type Service struct {
	tests    TestStore
	attempts AttemptStore
	lessons  CourseResolver
	courses  CourseStore
	access   AccessChecker
	log      *zap.Logger

	now         func() time.Time
	onSubmitted func(ctx context.Context, studentID int64, attempt model.TestAttempt)
}

// AttachActivity enables the audit record on attempt submission.
func (s *Service) AttachActivity(onSubmitted func(ctx context.Context, studentID int64, attempt model.TestAttempt)) {
	s.onSubmitted = onSubmitted
}

func NewService(tests TestStore, attempts AttemptStore, lessons CourseResolver, courses CourseStore, access AccessChecker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tests:    tests,
		attempts: attempts,
		lessons:  lessons,
		courses:  courses,
		access:   access,
		log:      log,
		now:      time.Now,
	}
}

type TestInput struct {
	LessonID         int64
	Title            string
	Description      string
	Instructions     string
	TimeLimitMinutes *int
	PassingScore     int
	MaxAttempts      int
	ShuffleQuestions bool
	ShowResults      bool
}

func (s *Service) CreateTest(ctx context.Context, actor Actor, in TestInput) (model.Test, error) {
	p, err := testParams(actor.UserID, in)
	if err != nil {
		return model.Test{}, err
	}
	if _, err := s.requireLessonOwnership(ctx, actor, in.LessonID); err != nil {
		return model.Test{}, err
	}

	test, err := s.tests.Create(ctx, p)
	if err != nil {
		return model.Test{}, fmt.Errorf("create test: %w", err)
	}
	s.log.Info("test created",
		zap.Int64("test_id", test.ID),
		zap.Int64("lesson_id", test.LessonID),
		zap.Int64("created_by", actor.UserID))
	return test, nil
}

func (s *Service) UpdateTest(ctx context.Context, actor Actor, testID int64, in TestInput) (model.Test, error) {
	test, err := s.requireTestOwnership(ctx, actor, testID)
	if err != nil {
		return model.Test{}, err
	}
	// Lesson binding is immutable, edits apply to the test in place.
	in.LessonID = test.LessonID

	p, err := testParams(test.CreatedBy, in)
	if err != nil {
		return model.Test{}, err
	}
	updated, err := s.tests.Update(ctx, testID, p)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTestNotFound) {
			return model.Test{}, ErrNotFound
		}
		return model.Test{}, fmt.Errorf("update test: %w", err)
	}
	return updated, nil
}

func (s *Service) SetTestStatus(ctx context.Context, actor Actor, testID int64, status enums.TestStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid test status %q: %w", status, ErrValidation)
	}
	test, err := s.requireTestOwnership(ctx, actor, testID)
	if err != nil {
		return err
	}
	if status == enums.TestStatusPublished {
		questions, err := s.tests.ListQuestions(ctx, testID)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		if len(questions) == 0 {
			return fmt.Errorf("cannot publish a test without questions: %w", ErrValidation)
		}
	}
	if err := s.tests.SetStatus(ctx, testID, status); err != nil {
		if errors.Is(err, pgrepo.ErrTestNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set test status: %w", err)
	}
	s.log.Info("test status changed",
		zap.Int64("test_id", testID),
		zap.String("from", string(test.Status)),
		zap.String("to", string(status)))
	return nil
}

func (s *Service) DeleteTest(ctx context.Context, actor Actor, testID int64) error {
	if _, err := s.requireTestOwnership(ctx, actor, testID); err != nil {
		return err
	}
	if err := s.tests.Delete(ctx, testID); err != nil {
		if errors.Is(err, pgrepo.ErrTestNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete test: %w", err)
	}
	return nil
}

func (s *Service) ListByLesson(ctx context.Context, lessonID int64) ([]model.Test, error) {
	if lessonID <= 0 {
		return nil, fmt.Errorf("invalid lesson id: %w", ErrValidation)
	}
	tests, err := s.tests.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return tests, nil
}

type AnswerInput struct {
	Text      string
	IsCorrect bool
}

type QuestionInput struct {
	Text       string
	Type       enums.QuestionType
	Points     int
	OrderIndex int
	IsRequired bool
	Answers    []AnswerInput
}

func (s *Service) AddQuestion(ctx context.Context, actor Actor, testID int64, in QuestionInput) (model.Question, error) {
	if _, err := s.requireTestOwnership(ctx, actor, testID); err != nil {
		return model.Question{}, err
	}
	p, err := questionParams(testID, in)
	if err != nil {
		return model.Question{}, err
	}
	question, err := s.tests.CreateQuestion(ctx, p)
	if err != nil {
		return model.Question{}, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, actor Actor, testID, questionID int64) error {
	if _, err := s.requireTestOwnership(ctx, actor, testID); err != nil {
		return err
	}
	if err := s.tests.DeleteQuestion(ctx, questionID); err != nil {
		if errors.Is(err, pgrepo.ErrQuestionNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// QuestionsForStudent returns the published question list with correct
// flags stripped. Option order is kept, shuffling happens client side
// using the shuffle_questions hint.
func (s *Service) QuestionsForStudent(ctx context.Context, studentID, testID int64) (model.Test, []model.Question, error) {
	test, err := s.findTest(ctx, testID)
	if err != nil {
		return model.Test{}, nil, err
	}
	if test.Status != enums.TestStatusPublished {
		return model.Test{}, nil, ErrNotFound
	}
	if err := s.requireCourseAccess(ctx, studentID, test.LessonID); err != nil {
		return model.Test{}, nil, err
	}

	questions, err := s.tests.ListQuestions(ctx, testID)
	if err != nil {
		return model.Test{}, nil, fmt.Errorf("list questions: %w", err)
	}
	for qi := range questions {
		for ai := range questions[qi].Answers {
			questions[qi].Answers[ai].IsCorrect = false
		}
	}
	return test, questions, nil
}

func (s *Service) StartAttempt(ctx context.Context, studentID, testID int64) (model.TestAttempt, error) {
	test, err := s.findTest(ctx, testID)
	if err != nil {
		return model.TestAttempt{}, err
	}
	if test.Status != enums.TestStatusPublished {
		return model.TestAttempt{}, ErrNotFound
	}
	if err := s.requireCourseAccess(ctx, studentID, test.LessonID); err != nil {
		return model.TestAttempt{}, err
	}

	attempt, err := s.attempts.Start(ctx, testID, studentID, test.MaxAttempts, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrAttemptsExceeded) {
			return model.TestAttempt{}, ErrAttemptsExceeded
		}
		return model.TestAttempt{}, fmt.Errorf("start attempt: %w", err)
	}
	s.log.Info("test attempt started",
		zap.Int64("attempt_id", attempt.ID),
		zap.Int64("test_id", testID),
		zap.Int64("student_id", studentID),
		zap.Int("attempt_number", attempt.AttemptNumber))
	return attempt, nil
}

// SubmittedAnswer is one student reply. Choice questions carry option
// ids, text questions carry the free-form text.
type SubmittedAnswer struct {
	QuestionID int64
	AnswerIDs  []int64
	Text       string
}

func (s *Service) SubmitAttempt(ctx context.Context, studentID, attemptID int64, submitted []SubmittedAnswer) (model.TestAttempt, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return model.TestAttempt{}, err
	}
	if attempt.StudentID != studentID {
		return model.TestAttempt{}, ErrForbidden
	}
	if attempt.Status != enums.AttemptStatusInProgress {
		return model.TestAttempt{}, ErrAttemptFinished
	}

	test, err := s.findTest(ctx, attempt.TestID)
	if err != nil {
		return model.TestAttempt{}, err
	}
	now := s.now().UTC()
	if test.TimeLimitMinutes != nil && *test.TimeLimitMinutes > 0 {
		deadline := attempt.StartedAt.Add(time.Duration(*test.TimeLimitMinutes) * time.Minute)
		if now.After(deadline) {
			// Grade whatever arrived, the time limit caps the window
			// for sending answers, not for the submit round trip.
			s.log.Warn("attempt submitted past the time limit",
				zap.Int64("attempt_id", attemptID),
				zap.Duration("overdue", now.Sub(deadline)))
		}
	}

	questions, err := s.tests.ListQuestions(ctx, attempt.TestID)
	if err != nil {
		return model.TestAttempt{}, fmt.Errorf("list questions: %w", err)
	}

	graded, result, err := gradeSubmission(test, questions, submitted)
	if err != nil {
		return model.TestAttempt{}, err
	}

	updated, err := s.attempts.Submit(ctx, attemptID, graded, result, now)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAttemptFinished) {
			return model.TestAttempt{}, ErrAttemptFinished
		}
		return model.TestAttempt{}, fmt.Errorf("submit attempt: %w", err)
	}
	s.log.Info("test attempt submitted",
		zap.Int64("attempt_id", attemptID),
		zap.Int("score", result.Score),
		zap.Int("percent", result.Percent),
		zap.Bool("needs_review", result.NeedsReview))
	if s.onSubmitted != nil {
		s.onSubmitted(ctx, studentID, updated)
	}
	return updated, nil
}

// gradeSubmission scores every auto-gradable question against the
// stored option flags. Text questions get zero points and flag the
// attempt for manual review. Unanswered questions still produce no
// rows, their points simply stay unearned.
func gradeSubmission(test model.Test, questions []model.Question, submitted []SubmittedAnswer) ([]pgrepo.GradedAnswer, pgrepo.SubmitAttemptResult, error) {
	byQuestion := make(map[int64][]SubmittedAnswer, len(submitted))
	for _, a := range submitted {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}

	var (
		graded      []pgrepo.GradedAnswer
		score       int
		maxScore    int
		needsReview bool
	)
	for _, q := range questions {
		maxScore += q.Points
		replies := byQuestion[q.ID]
		delete(byQuestion, q.ID)

		switch q.Type {
		case enums.QuestionTypeText:
			text := ""
			for _, r := range replies {
				if strings.TrimSpace(r.Text) != "" {
					text = strings.TrimSpace(r.Text)
				}
			}
			if text == "" {
				if q.IsRequired {
					return nil, pgrepo.SubmitAttemptResult{}, fmt.Errorf("question %d requires an answer: %w", q.ID, ErrValidation)
				}
				continue
			}
			needsReview = true
			graded = append(graded, pgrepo.GradedAnswer{
				QuestionID: q.ID,
				AnswerText: text,
			})
		default:
			selected := selectedOptions(replies)
			if len(selected) == 0 {
				if q.IsRequired {
					return nil, pgrepo.SubmitAttemptResult{}, fmt.Errorf("question %d requires an answer: %w", q.ID, ErrValidation)
				}
				continue
			}
			if q.Type != enums.QuestionTypeMultipleChoice && len(selected) > 1 {
				return nil, pgrepo.SubmitAttemptResult{}, fmt.Errorf("question %d accepts a single option: %w", q.ID, ErrValidation)
			}

			valid := make(map[int64]bool, len(q.Answers))
			correct := make(map[int64]bool)
			for _, opt := range q.Answers {
				valid[opt.ID] = true
				if opt.IsCorrect {
					correct[opt.ID] = true
				}
			}

			allCorrect := len(selected) == len(correct)
			rows := make([]pgrepo.GradedAnswer, 0, len(selected))
			for _, id := range selected {
				if !valid[id] {
					return nil, pgrepo.SubmitAttemptResult{}, fmt.Errorf("question %d: unknown option %d: %w", q.ID, id, ErrValidation)
				}
				ok := correct[id]
				if !ok {
					allCorrect = false
				}
				optionID := id
				isCorrect := ok
				rows = append(rows, pgrepo.GradedAnswer{
					QuestionID: q.ID,
					AnswerID:   &optionID,
					IsCorrect:  &isCorrect,
				})
			}

			// All-and-only scoring, a wrong or missing selection
			// forfeits the whole question.
			earned := 0
			if allCorrect {
				earned = q.Points
			}
			score += earned
			per := earned
			rows[0].PointsEarned = &per
			if len(rows) > 1 {
				zero := 0
				for i := 1; i < len(rows); i++ {
					rows[i].PointsEarned = &zero
				}
			}
			graded = append(graded, rows...)
		}
	}
	for questionID := range byQuestion {
		return nil, pgrepo.SubmitAttemptResult{}, fmt.Errorf("unknown question %d: %w", questionID, ErrValidation)
	}

	result := pgrepo.SubmitAttemptResult{
		Score:       score,
		MaxScore:    maxScore,
		Percent:     rules.Percent(score, maxScore),
		NeedsReview: needsReview,
	}
	// Only fully auto-graded attempts settle pass or fail here,
	// review can still add points for text questions.
	if !needsReview {
		result.IsPassed = rules.Passed(score, maxScore, test.PassingScore)
	}
	return graded, result, nil
}

func selectedOptions(replies []SubmittedAnswer) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range replies {
		for _, id := range r.AnswerIDs {
			if id > 0 && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// GradeAttempt resolves text questions after manual review. points maps
// question id to awarded points, capped at the question's maximum.
func (s *Service) GradeAttempt(ctx context.Context, actor Actor, attemptID int64, points map[int64]int) (model.TestAttempt, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return model.TestAttempt{}, err
	}
	if attempt.Status != enums.AttemptStatusNeedsReview {
		return model.TestAttempt{}, fmt.Errorf("attempt is not awaiting review: %w", ErrValidation)
	}
	test, err := s.requireTestOwnership(ctx, actor, attempt.TestID)
	if err != nil {
		return model.TestAttempt{}, err
	}

	questions, err := s.tests.ListQuestions(ctx, attempt.TestID)
	if err != nil {
		return model.TestAttempt{}, fmt.Errorf("list questions: %w", err)
	}
	textQuestions := make(map[int64]model.Question)
	maxScore := 0
	for _, q := range questions {
		maxScore += q.Points
		if q.Type == enums.QuestionTypeText {
			textQuestions[q.ID] = q
		}
	}
	for questionID, awarded := range points {
		q, ok := textQuestions[questionID]
		if !ok {
			return model.TestAttempt{}, fmt.Errorf("question %d is not manually graded: %w", questionID, ErrValidation)
		}
		if awarded < 0 || awarded > q.Points {
			return model.TestAttempt{}, fmt.Errorf("question %d: points out of range 0..%d: %w", questionID, q.Points, ErrValidation)
		}
	}

	autoScore := 0
	if attempt.Score != nil {
		autoScore = *attempt.Score
	}
	total := autoScore
	for _, awarded := range points {
		total += awarded
	}

	result := pgrepo.SubmitAttemptResult{
		Score:    total,
		MaxScore: maxScore,
		Percent:  rules.Percent(total, maxScore),
		IsPassed: rules.Passed(total, maxScore, test.PassingScore),
	}
	graded, err := s.attempts.GradeManual(ctx, attemptID, points, result, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrAttemptNotFound) {
			return model.TestAttempt{}, ErrNotFound
		}
		return model.TestAttempt{}, fmt.Errorf("grade attempt: %w", err)
	}
	s.log.Info("test attempt graded",
		zap.Int64("attempt_id", attemptID),
		zap.Int64("graded_by", actor.UserID),
		zap.Int("score", total),
		zap.Bool("passed", result.IsPassed))
	return graded, nil
}

// AttemptResult returns the attempt with its answers, honoring the
// test's result visibility setting for students.
func (s *Service) AttemptResult(ctx context.Context, actor Actor, attemptID int64) (model.TestAttempt, []model.TestAnswer, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return model.TestAttempt{}, nil, err
	}
	staff := actor.Role == enums.RoleAdmin || actor.Role == enums.RoleCurator
	if !staff && attempt.StudentID != actor.UserID {
		return model.TestAttempt{}, nil, ErrForbidden
	}
	if !staff {
		test, err := s.findTest(ctx, attempt.TestID)
		if err != nil {
			return model.TestAttempt{}, nil, err
		}
		if !test.ShowResults {
			return model.TestAttempt{}, nil, ErrResultsHidden
		}
	}

	answers, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return model.TestAttempt{}, nil, fmt.Errorf("list attempt answers: %w", err)
	}
	return attempt, answers, nil
}

func (s *Service) ListAttempts(ctx context.Context, actor Actor, testID, studentID int64) ([]model.TestAttempt, error) {
	staff := actor.Role == enums.RoleAdmin || actor.Role == enums.RoleCurator
	if !staff && studentID != actor.UserID {
		return nil, ErrForbidden
	}
	attempts, err := s.attempts.ListByStudent(ctx, testID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

func (s *Service) ListNeedingReview(ctx context.Context, actor Actor, testID int64, limit int) ([]model.TestAttempt, error) {
	if _, err := s.requireTestOwnership(ctx, actor, testID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListNeedingReview(ctx, testID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts needing review: %w", err)
	}
	return attempts, nil
}

func (s *Service) findTest(ctx context.Context, testID int64) (model.Test, error) {
	if testID <= 0 {
		return model.Test{}, fmt.Errorf("invalid test id: %w", ErrValidation)
	}
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTestNotFound) {
			return model.Test{}, ErrNotFound
		}
		return model.Test{}, fmt.Errorf("find test: %w", err)
	}
	return test, nil
}

func (s *Service) findAttempt(ctx context.Context, attemptID int64) (model.TestAttempt, error) {
	if attemptID <= 0 {
		return model.TestAttempt{}, fmt.Errorf("invalid attempt id: %w", ErrValidation)
	}
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAttemptNotFound) {
			return model.TestAttempt{}, ErrNotFound
		}
		return model.TestAttempt{}, fmt.Errorf("find attempt: %w", err)
	}
	return attempt, nil
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

func (s *Service) requireTestOwnership(ctx context.Context, actor Actor, testID int64) (model.Test, error) {
	test, err := s.findTest(ctx, testID)
	if err != nil {
		return model.Test{}, err
	}
	if _, err := s.requireLessonOwnership(ctx, actor, test.LessonID); err != nil {
		return model.Test{}, err
	}
	return test, nil
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

func testParams(createdBy int64, in TestInput) (pgrepo.CreateTestParams, error) {
	title := strings.TrimSpace(in.Title)
	if in.LessonID <= 0 {
		return pgrepo.CreateTestParams{}, fmt.Errorf("invalid lesson id: %w", ErrValidation)
	}
	if title == "" {
		return pgrepo.CreateTestParams{}, fmt.Errorf("title is required: %w", ErrValidation)
	}
	if in.PassingScore < 0 || in.PassingScore > 100 {
		return pgrepo.CreateTestParams{}, fmt.Errorf("passing score must be 0..100: %w", ErrValidation)
	}
	if in.MaxAttempts < 0 {
		return pgrepo.CreateTestParams{}, fmt.Errorf("max attempts must not be negative: %w", ErrValidation)
	}
	if in.TimeLimitMinutes != nil && *in.TimeLimitMinutes <= 0 {
		return pgrepo.CreateTestParams{}, fmt.Errorf("time limit must be positive: %w", ErrValidation)
	}
	return pgrepo.CreateTestParams{
		LessonID:         in.LessonID,
		CreatedBy:        createdBy,
		Title:            title,
		Description:      strings.TrimSpace(in.Description),
		Instructions:     strings.TrimSpace(in.Instructions),
		TimeLimitMinutes: in.TimeLimitMinutes,
		PassingScore:     in.PassingScore,
		MaxAttempts:      in.MaxAttempts,
		ShuffleQuestions: in.ShuffleQuestions,
		ShowResults:      in.ShowResults,
	}, nil
}

func questionParams(testID int64, in QuestionInput) (pgrepo.CreateQuestionParams, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return pgrepo.CreateQuestionParams{}, fmt.Errorf("question text is required: %w", ErrValidation)
	}
	if !in.Type.Valid() {
		return pgrepo.CreateQuestionParams{}, fmt.Errorf("invalid question type %q: %w", in.Type, ErrValidation)
	}
	if in.Points <= 0 {
		return pgrepo.CreateQuestionParams{}, fmt.Errorf("points must be positive: %w", ErrValidation)
	}

	correct := 0
	answers := make([]pgrepo.CreateAnswerParams, 0, len(in.Answers))
	for i, a := range in.Answers {
		optText := strings.TrimSpace(a.Text)
		if optText == "" {
			return pgrepo.CreateQuestionParams{}, fmt.Errorf("option %d: text is required: %w", i+1, ErrValidation)
		}
		if a.IsCorrect {
			correct++
		}
		answers = append(answers, pgrepo.CreateAnswerParams{
			Text:       optText,
			IsCorrect:  a.IsCorrect,
			OrderIndex: i,
		})
	}

	switch in.Type {
	case enums.QuestionTypeText:
		if len(answers) != 0 {
			return pgrepo.CreateQuestionParams{}, fmt.Errorf("text questions take no options: %w", ErrValidation)
		}
	case enums.QuestionTypeSingleChoice:
		if len(answers) < 2 || correct != 1 {
			return pgrepo.CreateQuestionParams{}, fmt.Errorf("single choice needs two or more options with exactly one correct: %w", ErrValidation)
		}
	case enums.QuestionTypeTrueFalse:
		if len(answers) != 2 || correct != 1 {
			return pgrepo.CreateQuestionParams{}, fmt.Errorf("true/false needs exactly two options with one correct: %w", ErrValidation)
		}
	case enums.QuestionTypeMultipleChoice:
		if len(answers) < 2 || correct < 1 {
			return pgrepo.CreateQuestionParams{}, fmt.Errorf("multiple choice needs two or more options with at least one correct: %w", ErrValidation)
		}
	}

	return pgrepo.CreateQuestionParams{
		TestID:     testID,
		Text:       text,
		Type:       in.Type,
		Points:     in.Points,
		OrderIndex: in.OrderIndex,
		IsRequired: in.IsRequired,
		Answers:    answers,
	}, nil
}
