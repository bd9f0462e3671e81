package enums

type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeText           QuestionType = "text"
	QuestionTypeTrueFalse      QuestionType = "true_false"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeText, QuestionTypeTrueFalse:
		return true
	}
	return false
}

// AutoGraded reports whether answers of this type are scored by the
// platform without curator review.
func (t QuestionType) AutoGraded() bool {
	return t != QuestionTypeText
}

type TestStatus string

const (
	TestStatusDraft     TestStatus = "draft"
	TestStatusPublished TestStatus = "published"
	TestStatusArchived  TestStatus = "archived"
)

func (s TestStatus) Valid() bool {
	switch s {
	case TestStatusDraft, TestStatusPublished, TestStatusArchived:
		return true
	}
	return false
}

type AttemptStatus string

const (
	AttemptStatusInProgress  AttemptStatus = "in_progress"
	AttemptStatusSubmitted   AttemptStatus = "submitted"
	AttemptStatusGraded      AttemptStatus = "graded"
	AttemptStatusNeedsReview AttemptStatus = "needs_review"
)
