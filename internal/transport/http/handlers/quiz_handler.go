package handlers

import (
	"errors"
	"net/http"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	quizzessvc "github.com/Pavlentius2007/school-photobusiness/internal/services/quizzes"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

type QuizHandler struct {
	service *quizzessvc.Service
}

func NewQuizHandler(service *quizzessvc.Service) *QuizHandler {
	return &QuizHandler{service: service}
}

func (h *QuizHandler) actor(w http.ResponseWriter, r *http.Request) (quizzessvc.Actor, bool) {
	caller, ok := identity(w, r)
	if !ok {
		return quizzessvc.Actor{}, false
	}
	return quizzessvc.Actor{UserID: caller.UserID, Role: roleOf(caller)}, true
}

func (h *QuizHandler) CreateTest(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.TestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	test, err := h.service.CreateTest(r.Context(), actor, testInput(req))
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeCreated(w, test)
}

func (h *QuizHandler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	var req dto.TestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	test, err := h.service.UpdateTest(r.Context(), actor, testID, testInput(req))
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, test)
}

func (h *QuizHandler) SetTestStatus(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	var req dto.SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.SetTestStatus(r.Context(), actor, testID, enums.TestStatus(req.Status)); err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *QuizHandler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	if err := h.service.DeleteTest(r.Context(), actor, testID); err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *QuizHandler) ListByLesson(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "lesson id must be a positive integer")
		return
	}

	tests, err := h.service.ListByLesson(r.Context(), lessonID)
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, tests)
}

func (h *QuizHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	var req dto.QuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	answers := make([]quizzessvc.AnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, quizzessvc.AnswerInput{Text: a.Text, IsCorrect: a.IsCorrect})
	}

	question, err := h.service.AddQuestion(r.Context(), actor, testID, quizzessvc.QuestionInput{
		Text:       req.Text,
		Type:       enums.QuestionType(req.Type),
		Points:     req.Points,
		OrderIndex: req.OrderIndex,
		IsRequired: req.IsRequired,
		Answers:    answers,
	})
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeCreated(w, question)
}

func (h *QuizHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}
	questionID, ok := pathID(r, "questionID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "question id must be a positive integer")
		return
	}

	if err := h.service.DeleteQuestion(r.Context(), actor, testID, questionID); err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

// Questions returns the student view of a published test. Correctness
// flags are stripped server-side.
func (h *QuizHandler) Questions(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	test, questions, err := h.service.QuestionsForStudent(r.Context(), caller.UserID, testID)
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, map[string]any{"test": test, "questions": questions})
}

func (h *QuizHandler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	attempt, err := h.service.StartAttempt(r.Context(), caller.UserID, testID)
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeCreated(w, attempt)
}

func (h *QuizHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	attemptID, ok := pathID(r, "attemptID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "attempt id must be a positive integer")
		return
	}

	var req dto.SubmitAttemptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	submitted := make([]quizzessvc.SubmittedAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		submitted = append(submitted, quizzessvc.SubmittedAnswer{
			QuestionID: a.QuestionID,
			AnswerIDs:  a.AnswerIDs,
			Text:       a.Text,
		})
	}

	attempt, err := h.service.SubmitAttempt(r.Context(), caller.UserID, attemptID, submitted)
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, attempt)
}

func (h *QuizHandler) GradeAttempt(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	attemptID, ok := pathID(r, "attemptID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "attempt id must be a positive integer")
		return
	}

	var req dto.GradeAttemptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	attempt, err := h.service.GradeAttempt(r.Context(), actor, attemptID, req.Points)
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, attempt)
}

func (h *QuizHandler) AttemptResult(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	attemptID, ok := pathID(r, "attemptID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "attempt id must be a positive integer")
		return
	}

	attempt, answers, err := h.service.AttemptResult(r.Context(), actor, attemptID)
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, map[string]any{"attempt": attempt, "answers": answers})
}

func (h *QuizHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	attempts, err := h.service.ListAttempts(r.Context(), actor, testID, int64(queryInt(r, "student_id", 0)))
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, attempts)
}

func (h *QuizHandler) ListNeedingReview(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "QUIZ_SERVICE_UNAVAILABLE", "quiz service is unavailable")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	testID, ok := pathID(r, "testID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "test id must be a positive integer")
		return
	}

	attempts, err := h.service.ListNeedingReview(r.Context(), actor, testID, queryInt(r, "limit", 50))
	if err != nil {
		handleQuizError(w, err)
		return
	}
	writeOK(w, attempts)
}

func testInput(req dto.TestRequest) quizzessvc.TestInput {
	return quizzessvc.TestInput{
		LessonID:         req.LessonID,
		Title:            req.Title,
		Description:      req.Description,
		Instructions:     req.Instructions,
		TimeLimitMinutes: req.TimeLimitMinutes,
		PassingScore:     req.PassingScore,
		MaxAttempts:      req.MaxAttempts,
		ShuffleQuestions: req.ShuffleQuestions,
		ShowResults:      req.ShowResults,
	}
}

func handleQuizError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quizzessvc.ErrNotFound):
		writeNotFound(w, "TEST_NOT_FOUND", "test or attempt not found")
	case errors.Is(err, quizzessvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "operation not allowed")
	case errors.Is(err, quizzessvc.ErrAccessRequired):
		writeForbidden(w, "ACCESS_REQUIRED", "course access required")
	case errors.Is(err, quizzessvc.ErrResultsHidden):
		writeForbidden(w, "RESULTS_HIDDEN", "results are hidden for this test")
	case errors.Is(err, quizzessvc.ErrAttemptsExceeded):
		writeConflict(w, "ATTEMPTS_EXCEEDED", "no attempts left")
	case errors.Is(err, quizzessvc.ErrAttemptFinished):
		writeConflict(w, "ATTEMPT_FINISHED", "attempt is already submitted")
	case errors.Is(err, quizzessvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
