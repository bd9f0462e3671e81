package rules

import (
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

// Percent converts earned points to an integer percentage, rounding
// half up. A zero max score yields zero.
func Percent(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return (score*100 + maxScore/2) / maxScore
}

func Passed(score, maxScore, passingScore int) bool {
	return Percent(score, maxScore) >= passingScore
}

// AttemptsLeft returns how many attempts remain. maxAttempts == 0
// means unlimited and always leaves at least one.
func AttemptsLeft(maxAttempts, used int) int {
	if maxAttempts <= 0 {
		return 1
	}
	left := maxAttempts - used
	if left < 0 {
		return 0
	}
	return left
}

// SubmissionStatusFor classifies a submission against the assignment
// deadline. No deadline means the work is always on time.
func SubmissionStatusFor(deadline *time.Time, submittedAt time.Time) enums.SubmissionStatus {
	if deadline != nil && submittedAt.After(*deadline) {
		return enums.SubmissionStatusLate
	}
	return enums.SubmissionStatusSubmitted
}
