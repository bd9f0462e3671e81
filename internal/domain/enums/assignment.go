package enums

type AssignmentType string

const (
	AssignmentTypeHomework     AssignmentType = "homework"
	AssignmentTypeProject      AssignmentType = "project"
	AssignmentTypeEssay        AssignmentType = "essay"
	AssignmentTypePresentation AssignmentType = "presentation"
)

func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentTypeHomework, AssignmentTypeProject, AssignmentTypeEssay, AssignmentTypePresentation:
		return true
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentStatusDraft     AssignmentStatus = "draft"
	AssignmentStatusPublished AssignmentStatus = "published"
	AssignmentStatusClosed    AssignmentStatus = "closed"
)

type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusGraded    SubmissionStatus = "graded"
	SubmissionStatusLate      SubmissionStatus = "late"
	SubmissionStatusMissed    SubmissionStatus = "missed"
)
